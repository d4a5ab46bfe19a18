// Package sweep evaluates the frontal ablation engine over a range of values
// of one parameter. Points are independent, so they are evaluated on a
// bounded pool of goroutines and gathered by index.
package sweep

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/chrissnell/glacierfront/pkg/ablation"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// Parameter names the input varied by a sweep.
type Parameter string

const (
	// ParamTau0 varies the yield stress intercept, keeping the closure type.
	ParamTau0 Parameter = "tau0"

	// ParamMu varies the Mohr-Coulomb friction coefficient.
	ParamMu Parameter = "mu"

	// ParamMassBalance varies the terminus mass balance.
	ParamMassBalance Parameter = "mass_balance"

	// ParamVelocityScale multiplies every speed in the velocity field.
	ParamVelocityScale Parameter = "velocity_scale"
)

// ParseParameter validates a parameter name.
func ParseParameter(s string) (Parameter, error) {
	switch p := Parameter(s); p {
	case ParamTau0, ParamMu, ParamMassBalance, ParamVelocityScale:
		return p, nil
	default:
		return "", fmt.Errorf("unknown sweep parameter %q", s)
	}
}

// Spec describes a sweep.
type Spec struct {
	Name      string
	Scenario  string
	Parameter Parameter
	Start     float64
	Stop      float64
	Count     int
}

// Values returns Count evenly spaced values from Start to Stop inclusive.
func (s Spec) Values() ([]float64, error) {
	switch {
	case s.Count < 1:
		return nil, fmt.Errorf("sweep %s: count must be positive, got %d", s.Name, s.Count)
	case s.Count == 1:
		return []float64{s.Start}, nil
	}
	return floats.Span(make([]float64, s.Count), s.Start, s.Stop), nil
}

// Point is one evaluated sweep value.
type Point struct {
	Index  int
	Value  float64
	Result ablation.Result
	Err    error
}

// Run is a completed sweep.
type Run struct {
	ID         uuid.UUID
	Spec       Spec
	Convention ablation.BalanceConvention
	StartedAt  time.Time
	FinishedAt time.Time
	Points     []Point
	Summary    Summary
}

// Runner evaluates sweeps with one engine.
type Runner struct {
	engine  *ablation.Engine
	logger  *zap.SugaredLogger
	workers int
}

// NewRunner creates a Runner. workers <= 0 uses GOMAXPROCS.
func NewRunner(engine *ablation.Engine, logger *zap.SugaredLogger, workers int) *Runner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Runner{
		engine:  engine,
		logger:  logger,
		workers: workers,
	}
}

// Run evaluates base once per sweep value. Per-point engine errors are
// recorded on the point; only cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, spec Spec, base ablation.Input) (*Run, error) {
	values, err := spec.Values()
	if err != nil {
		return nil, err
	}
	if _, err := ParseParameter(string(spec.Parameter)); err != nil {
		return nil, err
	}

	run := &Run{
		ID:         uuid.New(),
		Spec:       spec,
		Convention: r.engine.Convention(),
		StartedAt:  time.Now().UTC(),
		Points:     make([]Point, len(values)),
	}

	r.logger.Infow("starting sweep",
		"run_id", run.ID, "sweep", spec.Name, "scenario", spec.Scenario,
		"parameter", spec.Parameter, "points", len(values), "workers", r.workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, v := range values {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := Point{Index: i, Value: v}
			in, err := Apply(spec.Parameter, base, v)
			if err == nil {
				p.Result, err = r.engine.FrontalAblationRate(in)
			}
			p.Err = err
			run.Points[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep %s cancelled: %w", spec.Name, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep %s cancelled: %w", spec.Name, err)
	}

	run.FinishedAt = time.Now().UTC()
	run.Summary = Summarize(run.Points)

	r.logger.Infow("sweep finished",
		"run_id", run.ID, "sweep", spec.Name,
		"ill_conditioned", run.Summary.IllConditioned, "failed", run.Summary.Failed,
		"duration", run.FinishedAt.Sub(run.StartedAt))
	for _, p := range run.Points {
		if p.Err != nil {
			r.logger.Warnw("sweep point failed", "run_id", run.ID, "index", p.Index, "value", p.Value, "error", p.Err)
		}
	}

	return run, nil
}

// Apply returns a copy of base with the parameter set to v. base is not modified.
func Apply(param Parameter, base ablation.Input, v float64) (ablation.Input, error) {
	in := base

	switch param {
	case ParamTau0:
		switch y := base.Yield.(type) {
		case ablation.Constant:
			in.Yield = ablation.Constant{Tau0: v}
		case ablation.MohrCoulomb:
			in.Yield = ablation.MohrCoulomb{Tau0: v, Mu: y.Mu}
		default:
			return ablation.Input{}, &ablation.ConfigurationError{Field: "yield", Reason: "no yield model to sweep tau0 on"}
		}
	case ParamMu:
		y, ok := base.Yield.(ablation.MohrCoulomb)
		if !ok {
			return ablation.Input{}, &ablation.ConfigurationError{Field: "mu", Reason: "mu sweeps need a variable yield model"}
		}
		in.Yield = ablation.MohrCoulomb{Tau0: y.Tau0, Mu: v}
	case ParamMassBalance:
		in.TerminusMassBalance = ablation.Float(v)
	case ParamVelocityScale:
		scaled := make([]float64, len(base.Velocity))
		for i, u := range base.Velocity {
			scaled[i] = u * v
		}
		in.Velocity = scaled
	default:
		return ablation.Input{}, fmt.Errorf("unknown sweep parameter %q", param)
	}

	return in, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
