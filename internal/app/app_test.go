package app

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chrissnell/glacierfront/internal/database"
	"github.com/chrissnell/glacierfront/pkg/ablation"
	"github.com/chrissnell/glacierfront/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

const appConfig = `
convention: squared
scenarios:
  - name: example
    profile: {x: [0, 100], surface: [50, 40], bed: [-10, -10]}
    velocity: [5, 4]
    terminus_mass_balance: 0
    yield: {type: constant, tau0: 150000}
  - name: no-mass-balance
    profile: {x: [0, 100], surface: [50, 40], bed: [-10, -10]}
    velocity: [5, 4]
    yield: {type: constant, tau0: 150000}
sweeps:
  - name: speed
    scenario: example
    parameter: velocity_scale
    start: 1
    stop: 2
    count: 3
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.ParseYAML([]byte(appConfig))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	a, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestEvaluate(t *testing.T) {
	a := newTestApp(t)

	res, err := a.Evaluate("example", true)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Rate != -5 || res.IllConditioned() {
		t.Errorf("expected a well-conditioned rate of -5, got %+v", res)
	}
	if res.Trace == nil {
		t.Error("expected a trace when verbose is requested")
	}

	if _, err := a.Evaluate("missing", false); err == nil {
		t.Error("expected an error for an unknown scenario")
	}

	_, err = a.Evaluate("no-mass-balance", false)
	if !errors.Is(err, ablation.ErrConfiguration) {
		t.Errorf("expected a configuration error, got %v", err)
	}
}

func TestSweep(t *testing.T) {
	a := newTestApp(t)

	run, err := a.Sweep(context.Background(), "speed")
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(run.Points) != 3 || run.Summary.Conditioned != 3 {
		t.Fatalf("unexpected sweep summary: %+v", run.Summary)
	}

	// Scaling the velocity by s scales every term of the rate by s.
	for _, p := range run.Points {
		want := -5 * p.Value
		if diff := p.Result.Rate - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("scale %v: expected %v, got %v", p.Value, want, p.Result.Rate)
		}
	}

	if _, err := a.Sweep(context.Background(), "missing"); err == nil {
		t.Error("expected an error for an unknown sweep")
	}
}

func TestCloseStore(t *testing.T) {
	a := newTestApp(t)

	// No storage configured
	a.closeStore(nil)

	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "pool.db"))
	if err != nil {
		t.Fatal(err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}

	a.closeStore(database.NewClient(db, nil))
	if err := sqlDB.Ping(); err == nil {
		t.Error("expected the results pool to be closed")
	}
}
