package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/chrissnell/glacierfront/internal/database"
	"github.com/chrissnell/glacierfront/internal/sweep"
	"github.com/chrissnell/glacierfront/pkg/config"
	"github.com/chrissnell/glacierfront/pkg/responseformat"
)

const testConfig = `
scenarios:
  - name: example
    profile: {x: [0, 100], surface: [50, 40], bed: [-10, -10]}
    velocity: [5, 4]
    terminus_mass_balance: 0
    yield: {type: constant, tau0: 150000}
sweeps:
  - name: mass-balance
    scenario: example
    parameter: mass_balance
    start: -1
    stop: 1
    count: 5
    workers: 2
rest:
  listen_addr: 127.0.0.1
  http_port: 18080
`

type memoryStore struct {
	mu   sync.Mutex
	runs []*sweep.Run
}

func (m *memoryStore) SaveRun(_ context.Context, run *sweep.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryStore) GetRun(_ context.Context, runID string) (*database.SweepRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		if run.ID.String() == runID {
			rec, points := database.RecordsFromRun(run)
			rec.Points = points
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", database.ErrRunNotFound, runID)
}

func newTestController(t *testing.T, store RunStore) *Controller {
	t.Helper()

	cfg, err := config.ParseYAML([]byte(testConfig))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	engine, err := cfg.Engine(nil)
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}

	var wg sync.WaitGroup
	ctrl, err := NewController(context.Background(), &wg, cfg, engine, store, nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl
}

func serve(ctrl *Controller, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	ctrl.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServerAddress(t *testing.T) {
	ctrl := newTestController(t, nil)
	if ctrl.Server.Addr != "127.0.0.1:18080" {
		t.Errorf("expected 127.0.0.1:18080, got %s", ctrl.Server.Addr)
	}
}

func TestGetStatus(t *testing.T) {
	rec := serve(newTestController(t, nil), http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var status StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Scenarios != 1 || status.Sweeps != 1 || status.Convention != "squared" || status.Storage {
		t.Errorf("unexpected status: %+v", status)
	}
}

func TestListScenarios(t *testing.T) {
	rec := serve(newTestController(t, nil), http.MethodGet, "/api/scenarios", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var scenarios []ScenarioSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &scenarios); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].Name != "example" || scenarios[0].Points != 2 {
		t.Errorf("unexpected scenarios: %+v", scenarios)
	}
}

func TestGetScenarioAblation(t *testing.T) {
	ctrl := newTestController(t, nil)

	rec := serve(ctrl, http.MethodGet, "/api/scenarios/example/ablation", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res ResultResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Rate == nil || *res.Rate != -5 || res.Condition != "ok" || res.Trace != nil {
		t.Errorf("unexpected result: %+v", res)
	}

	rec = serve(ctrl, http.MethodGet, "/api/scenarios/example/ablation?verbose=true", nil)
	res = ResultResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Trace == nil || res.Trace.Dx == nil || *res.Trace.Dx != 100 {
		t.Errorf("expected a trace with dx=100, got %+v", res.Trace)
	}

	rec = serve(ctrl, http.MethodGet, "/api/scenarios/missing/ablation", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetScenarioAblationMsgPack(t *testing.T) {
	rec := serve(newTestController(t, nil), http.MethodGet, "/api/scenarios/example/ablation?format=msgpack", nil)
	if ct := rec.Header().Get("Content-Type"); ct != "application/x-msgpack" {
		t.Fatalf("expected MessagePack, got %q", ct)
	}

	var res ResultResponse
	if err := responseformat.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Rate == nil || *res.Rate != -5 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestPostAblation(t *testing.T) {
	ctrl := newTestController(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCond   string
	}{
		{
			name:       "well conditioned",
			body:       `{"name":"posted","profile":{"x":[0,100],"surface":[50,40],"bed":[-10,-10]},"velocity":[5,4],"terminus_mass_balance":0,"yield":{"type":"constant","tau0":150000}}`,
			wantStatus: http.StatusOK,
			wantCond:   "ok",
		},
		{
			name:       "zero denominator is reported, not rejected",
			body:       `{"name":"flat","profile":{"x":[0,100],"surface":[40,40],"bed":[-60,-60]},"velocity":[300,300],"terminus_mass_balance":-1,"yield":{"type":"constant","tau0":150000}}`,
			wantStatus: http.StatusOK,
			wantCond:   "ill-conditioned",
		},
		{
			name:       "missing mass balance",
			body:       `{"name":"nomb","profile":{"x":[0,100],"surface":[50,40],"bed":[-10,-10]},"velocity":[5,4],"yield":{"type":"constant","tau0":150000}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown yield type",
			body:       `{"name":"bad","profile":{"x":[0,100],"surface":[50,40],"bed":[-10,-10]},"velocity":[5,4],"terminus_mass_balance":0,"yield":{"type":"plastic","tau0":1}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "degenerate grid",
			body:       `{"name":"dup","profile":{"x":[5,5],"surface":[50,40],"bed":[-10,-10]},"velocity":[5,4],"terminus_mass_balance":0,"yield":{"type":"constant","tau0":1}}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			body:       `{"name":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(ctrl, http.MethodPost, "/api/ablation", []byte(tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				var e responseformat.ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil || e.Error == "" {
					t.Errorf("expected an error body, got %q", rec.Body.String())
				}
				return
			}

			var res ResultResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Condition != tt.wantCond {
				t.Errorf("expected condition %q, got %q", tt.wantCond, res.Condition)
			}
			if tt.wantCond == "ill-conditioned" && res.Rate != nil {
				t.Errorf("expected unbounded rate to be sent as null, got %v", *res.Rate)
			}
		})
	}
}

func TestPostSweep(t *testing.T) {
	store := &memoryStore{}
	ctrl := newTestController(t, store)

	rec := serve(ctrl, http.MethodPost, "/api/sweeps/mass-balance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SweepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Stored || len(store.runs) != 1 || store.runs[0].ID.String() != resp.RunID {
		t.Errorf("expected the run to be stored, got stored=%v runs=%d", resp.Stored, len(store.runs))
	}
	if len(resp.Points) != 5 || resp.Summary.Conditioned != 5 {
		t.Fatalf("unexpected sweep response: %+v", resp.Summary)
	}

	// rate = U - (m + 0.9)/0.1 for the example geometry
	for _, p := range resp.Points {
		if p.Result == nil || p.Result.Rate == nil {
			t.Fatalf("point %d has no rate", p.Index)
		}
		want := 4 - (p.Value+0.9)/0.1
		if diff := *p.Result.Rate - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("point %d: expected %v, got %v", p.Index, want, *p.Result.Rate)
		}
	}

	rec = serve(ctrl, http.MethodPost, "/api/sweeps/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetSweepRun(t *testing.T) {
	store := &memoryStore{}
	ctrl := newTestController(t, store)

	rec := serve(ctrl, http.MethodPost, "/api/sweeps/mass-balance", nil)
	var posted SweepResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &posted); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = serve(ctrl, http.MethodGet, "/api/sweeps/runs/"+posted.RunID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var stored StoredRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.RunID != posted.RunID || stored.Sweep != "mass-balance" || stored.Parameter != "mass_balance" {
		t.Errorf("unexpected stored run: %+v", stored)
	}
	if len(stored.Points) != len(posted.Points) || stored.Summary.Conditioned != posted.Summary.Conditioned {
		t.Fatalf("stored run differs from posted run: %d points, summary %+v", len(stored.Points), stored.Summary)
	}
	for i, p := range stored.Points {
		if p.Rate == nil || *p.Rate != *posted.Points[i].Result.Rate {
			t.Errorf("point %d: stored rate %v differs from posted rate", i, p.Rate)
		}
	}

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"unknown run", "/api/sweeps/runs/6f1c3a0e-58a7-4f52-9a8e-0d7d3c1f2b9a", http.StatusNotFound},
		{"malformed id", "/api/sweeps/runs/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(ctrl, http.MethodGet, tt.target, nil)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestGetSweepRunWithoutStore(t *testing.T) {
	rec := serve(newTestController(t, nil), http.MethodGet, "/api/sweeps/runs/6f1c3a0e-58a7-4f52-9a8e-0d7d3c1f2b9a", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
