// Package restserver exposes the ablation engine and sweep runner over HTTP.
package restserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chrissnell/glacierfront/internal/database"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"github.com/chrissnell/glacierfront/pkg/ablation"
	"github.com/chrissnell/glacierfront/pkg/config"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RunStore persists completed sweep runs and reads them back
type RunStore interface {
	SaveRun(ctx context.Context, run *sweep.Run) error
	GetRun(ctx context.Context, runID string) (*database.SweepRun, error)
}

// Controller represents the REST server controller
type Controller struct {
	ctx      context.Context
	wg       *sync.WaitGroup
	config   *config.ConfigData
	engine   *ablation.Engine
	store    RunStore
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller. store may be nil, in
// which case sweep runs are returned but not persisted.
func NewController(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, engine *ablation.Engine, store RunStore, logger *zap.SugaredLogger) (*Controller, error) {
	if engine == nil {
		return nil, fmt.Errorf("REST server needs an ablation engine")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	ctrl := &Controller{
		ctx:    ctx,
		wg:     wg,
		config: cfg,
		engine: engine,
		store:  store,
		logger: logger,
	}

	rc := config.RESTServerData{}
	if cfg.REST != nil {
		rc = *cfg.REST
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen_addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.HTTPPort == 0 {
		logger.Info("rest.http_port not provided; defaulting to 8080")
		rc.HTTPPort = 8080
	}

	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.HTTPPort)
	ctrl.Server.Handler = ctrl.setupRouter()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	c.logger.Infow("starting REST server", "addr", c.Server.Addr)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
			c.logger.Errorf("REST server error: %v", err)
		}
	}()

	go func() {
		<-c.ctx.Done()
		c.logger.Info("shutting down the REST server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		c.Server.Shutdown(shutdownCtx)
	}()

	return nil
}

// Handler returns the configured router, for tests and embedding
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", c.handlers.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/scenarios", c.handlers.ListScenarios).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{name}/ablation", c.handlers.GetScenarioAblation).Methods(http.MethodGet)
	api.HandleFunc("/ablation", c.handlers.PostAblation).Methods(http.MethodPost)
	api.HandleFunc("/sweeps/{name}", c.handlers.PostSweep).Methods(http.MethodPost)
	api.HandleFunc("/sweeps/runs/{id}", c.handlers.GetSweepRun).Methods(http.MethodGet)

	return router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// loggingMiddleware logs one line per request
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"size", rec.size,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}
