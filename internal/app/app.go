// Package app wires configuration, the ablation engine, the sweep runner,
// result storage and the REST server together.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/glacierfront/internal/controllers/restserver"
	"github.com/chrissnell/glacierfront/internal/database"
	"github.com/chrissnell/glacierfront/internal/log"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"github.com/chrissnell/glacierfront/pkg/ablation"
	"github.com/chrissnell/glacierfront/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	config *config.ConfigData
	engine *ablation.Engine
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	engine, err := cfg.Engine(logger.Named("ablation"))
	if err != nil {
		return nil, fmt.Errorf("error building ablation engine: %w", err)
	}

	return &App{
		config: cfg,
		engine: engine,
		logger: logger,
	}, nil
}

// Engine returns the configured engine
func (a *App) Engine() *ablation.Engine {
	return a.engine
}

// Evaluate computes the frontal ablation rate of a configured scenario.
// An ill-conditioned result is returned without error; callers check
// Result.IllConditioned.
func (a *App) Evaluate(name string, verbose bool) (ablation.Result, error) {
	sc, err := a.config.FindScenario(name)
	if err != nil {
		return ablation.Result{}, err
	}

	in, err := sc.Input()
	if err != nil {
		return ablation.Result{}, err
	}
	in.Verbose = in.Verbose || verbose

	res, err := a.engine.FrontalAblationRate(in)
	if err != nil {
		return ablation.Result{}, fmt.Errorf("scenario %s: %w", name, err)
	}

	if res.IllConditioned() {
		a.logger.Warnw("ill-conditioned ablation result",
			"scenario", name, "denominator", res.Denominator, "tolerance", res.Tolerance, "rate", res.Rate)
	}
	return res, nil
}

// Sweep runs a configured sweep. When result storage is configured the run
// is saved before it is returned.
func (a *App) Sweep(ctx context.Context, name string) (*sweep.Run, error) {
	sw, err := a.config.FindSweep(name)
	if err != nil {
		return nil, err
	}
	sc, err := a.config.FindScenario(sw.Scenario)
	if err != nil {
		return nil, err
	}

	base, err := sc.Input()
	if err != nil {
		return nil, err
	}
	base.Verbose = false

	param, err := sweep.ParseParameter(sw.Parameter)
	if err != nil {
		return nil, err
	}

	runner := sweep.NewRunner(a.engine, a.logger.Named("sweep"), sw.Workers)
	run, err := runner.Run(ctx, sweep.Spec{
		Name:      sw.Name,
		Scenario:  sw.Scenario,
		Parameter: param,
		Start:     sw.Start,
		Stop:      sw.Stop,
		Count:     sw.Count,
	}, base)
	if err != nil {
		return nil, err
	}

	client, err := a.openStore()
	if err != nil {
		return run, err
	}
	if client == nil {
		return run, nil
	}
	defer a.closeStore(client)

	if err := client.SaveRun(ctx, run); err != nil {
		return run, err
	}
	return run, nil
}

// Serve runs the REST server until a signal arrives or ctx is cancelled
func (a *App) Serve(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var store restserver.RunStore
	client, err := a.openStore()
	if err != nil {
		return err
	}
	if client != nil {
		store = client
	}

	rest, err := restserver.NewController(ctx, &wg, a.config, a.engine, store, a.logger.Named("rest"))
	if err != nil {
		a.closeStore(client)
		return err
	}
	if err := rest.StartController(); err != nil {
		a.closeStore(client)
		return err
	}

	log.Info("application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	a.closeStore(client)
	log.Info("shutdown complete")

	return nil
}

// openStore connects to the results database. It returns nil when no
// storage backend is configured.
func (a *App) openStore() (*database.Client, error) {
	pg := a.config.Storage.Postgres
	if pg == nil || pg.ConnectionString == "" {
		return nil, nil
	}

	db, err := database.CreateConnection(pg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("error connecting to results database: %w", err)
	}

	client := database.NewClient(db, a.logger.Named("database"))
	if err := client.Migrate(); err != nil {
		a.closeStore(client)
		return nil, err
	}
	return client, nil
}

// closeStore releases the results database pool. A nil client is a no-op.
func (a *App) closeStore(client *database.Client) {
	if err := client.Close(); err != nil {
		a.logger.Warnw("error closing results database", "error", err)
	}
}
