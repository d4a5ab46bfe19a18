package restserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/chrissnell/glacierfront/internal/constants"
	"github.com/chrissnell/glacierfront/internal/database"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"github.com/chrissnell/glacierfront/pkg/ablation"
	"github.com/chrissnell/glacierfront/pkg/config"
	"github.com/chrissnell/glacierfront/pkg/responseformat"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps request bodies on POST endpoints
const maxBodyBytes = 8 << 20

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// GetStatus reports the version and engine settings
func (h *Handlers) GetStatus(w http.ResponseWriter, req *http.Request) {
	cfg := h.controller.config
	h.write(w, req, StatusResponse{
		Version:    constants.Version,
		Convention: h.controller.engine.Convention().String(),
		Tolerance:  h.controller.engine.Tolerance(),
		Scenarios:  len(cfg.Scenarios),
		Sweeps:     len(cfg.Sweeps),
		Storage:    h.controller.store != nil,
	})
}

// ListScenarios lists the configured scenarios
func (h *Handlers) ListScenarios(w http.ResponseWriter, req *http.Request) {
	scenarios := make([]ScenarioSummary, 0, len(h.controller.config.Scenarios))
	for _, s := range h.controller.config.Scenarios {
		scenarios = append(scenarios, ScenarioSummary{
			Name:      s.Name,
			YieldType: s.Yield.Type,
			Points:    len(s.Profile.X),
			Trim:      s.Yield.Trim,
		})
	}
	h.write(w, req, scenarios)
}

// GetScenarioAblation evaluates a configured scenario. verbose=true adds the trace.
func (h *Handlers) GetScenarioAblation(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]

	sc, err := h.controller.config.FindScenario(name)
	if err != nil {
		h.fail(w, req, http.StatusNotFound, err)
		return
	}

	scenario := *sc
	if req.URL.Query().Get("verbose") == "true" {
		scenario.Verbose = true
	}

	h.evaluate(w, req, scenario)
}

// PostAblation evaluates a scenario supplied in the request body
func (h *Handlers) PostAblation(w http.ResponseWriter, req *http.Request) {
	var scenario config.ScenarioData

	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&scenario); err != nil {
		h.fail(w, req, http.StatusBadRequest, fmt.Errorf("invalid scenario body: %w", err))
		return
	}

	h.evaluate(w, req, scenario)
}

// PostSweep runs a configured sweep and stores it when storage is configured
func (h *Handlers) PostSweep(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]
	cfg := h.controller.config

	sw, err := cfg.FindSweep(name)
	if err != nil {
		h.fail(w, req, http.StatusNotFound, err)
		return
	}
	sc, err := cfg.FindScenario(sw.Scenario)
	if err != nil {
		h.fail(w, req, http.StatusNotFound, err)
		return
	}

	base, err := sc.Input()
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err)
		return
	}
	// Sweeps report summaries; per-point traces would only bloat the response
	base.Verbose = false

	param, err := sweep.ParseParameter(sw.Parameter)
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err)
		return
	}

	runner := sweep.NewRunner(h.controller.engine, h.controller.logger, sw.Workers)
	run, err := runner.Run(req.Context(), sweep.Spec{
		Name:      sw.Name,
		Scenario:  sw.Scenario,
		Parameter: param,
		Start:     sw.Start,
		Stop:      sw.Stop,
		Count:     sw.Count,
	}, base)
	if err != nil {
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}

	stored := false
	if h.controller.store != nil {
		if err := h.controller.store.SaveRun(req.Context(), run); err != nil {
			h.controller.logger.Errorw("could not store sweep run", "run_id", run.ID, "error", err)
		} else {
			stored = true
		}
	}

	h.write(w, req, transformSweep(run, stored))
}

// GetSweepRun returns a stored sweep run by its ID
func (h *Handlers) GetSweepRun(w http.ResponseWriter, req *http.Request) {
	if h.controller.store == nil {
		h.fail(w, req, http.StatusServiceUnavailable, errors.New("no results store configured"))
		return
	}

	id, err := uuid.Parse(mux.Vars(req)["id"])
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, fmt.Errorf("invalid run id: %w", err))
		return
	}

	rec, err := h.controller.store.GetRun(req.Context(), id.String())
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		h.fail(w, req, http.StatusNotFound, err)
		return
	case err != nil:
		h.fail(w, req, http.StatusInternalServerError, err)
		return
	}

	h.write(w, req, transformStoredRun(rec))
}

func (h *Handlers) evaluate(w http.ResponseWriter, req *http.Request, scenario config.ScenarioData) {
	in, err := scenario.Input()
	if err != nil {
		h.fail(w, req, http.StatusBadRequest, err)
		return
	}

	res, err := h.controller.engine.FrontalAblationRate(in)
	if err != nil {
		h.fail(w, req, statusFor(err), err)
		return
	}

	if res.IllConditioned() {
		h.controller.logger.Warnw("ill-conditioned ablation result",
			"scenario", scenario.Name, "denominator", res.Denominator, "tolerance", res.Tolerance)
	}

	h.write(w, req, transformResult(scenario.Name, res))
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ablation.ErrConfiguration),
		errors.Is(err, ablation.ErrInsufficientData),
		errors.Is(err, ablation.ErrDegenerateGrid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data); err != nil {
		h.controller.logger.Errorw("error writing response", "path", req.URL.Path, "error", err)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, req *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorw("request failed", "path", req.URL.Path, "error", err)
	}
	if werr := h.formatter.WriteError(w, req, status, err); werr != nil {
		h.controller.logger.Errorw("error writing error response", "path", req.URL.Path, "error", werr)
	}
}
