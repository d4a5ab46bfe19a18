package ablation

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// DefaultTolerance is the |denominator| (m/m) below which a result is flagged
// as ill-conditioned.
const DefaultTolerance = 1e-9

// Condition classifies a computed rate.
type Condition string

const (
	// WellConditioned means the denominator cleared the tolerance.
	WellConditioned Condition = "ok"

	// IllConditioned means the denominator is numerically zero and the raw
	// rate is unbounded or meaningless.
	IllConditioned Condition = "ill-conditioned"
)

// Input is one snapshot handed over by the host flow model.
type Input struct {
	Profile  Profile
	Velocity []float64 // m/a, aligned with Profile from the terminus end; may be shorter, never longer

	// TerminusMassBalance is the surface mass balance at the terminus in m/a.
	// It has no safe default, so nil is a *ConfigurationError.
	TerminusMassBalance *float64

	Yield   YieldModel
	Trim    int
	Verbose bool
}

// Trace records every intermediate quantity of one evaluation.
type Trace struct {
	Gradients
	MassBalance float64 `json:"mass_balance"`
	Numerator   float64 `json:"numerator"`
	Denominator float64 `json:"denominator"`
	DLDt        float64 `json:"dl_dt"`
	Rate        float64 `json:"rate"`
}

// Result is the outcome of one engine evaluation. Rate is always the raw
// quotient; check Condition before trusting it.
type Result struct {
	Rate        float64   `json:"rate"`  // m/a, frontal ablation rate
	DLDt        float64   `json:"dl_dt"` // m/a, implied terminus migration rate
	Numerator   float64   `json:"numerator"`
	Denominator float64   `json:"denominator"`
	Tolerance   float64   `json:"tolerance"`
	Condition   Condition `json:"condition"`
	Trace       *Trace    `json:"trace,omitempty"`
}

// IllConditioned reports whether the denominator fell within tolerance of zero.
func (r Result) IllConditioned() bool {
	return r.Condition == IllConditioned
}

// Err returns an *IllConditionedError for flagged results and nil otherwise.
func (r Result) Err() error {
	if !r.IllConditioned() {
		return nil
	}
	return &IllConditionedError{Denominator: r.Denominator, Tolerance: r.Tolerance, Rate: r.Rate}
}

// Engine evaluates the frontal ablation rate for a fixed set of physical
// constants. An Engine is immutable and safe for concurrent use.
type Engine struct {
	physics    Physics
	convention BalanceConvention
	tolerance  float64
	logger     *zap.SugaredLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithConvention selects the balance thickness convention.
func WithConvention(c BalanceConvention) Option {
	return func(e *Engine) { e.convention = c }
}

// WithTolerance sets the ill-conditioning threshold on |denominator|.
func WithTolerance(eps float64) Option {
	return func(e *Engine) { e.tolerance = eps }
}

// WithLogger makes verbose evaluations log their trace at debug level.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine validates p and returns an Engine.
func NewEngine(p Physics, opts ...Option) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		physics:    p,
		convention: DefaultBalanceConvention,
		tolerance:  DefaultTolerance,
	}
	for _, opt := range opts {
		opt(e)
	}

	if math.IsNaN(e.tolerance) || e.tolerance < 0 {
		return nil, &ConfigurationError{Field: "tolerance", Reason: fmt.Sprintf("must be non-negative, got %v", e.tolerance)}
	}
	if e.convention != SquaredYieldTerm && e.convention != LinearYieldTerm {
		return nil, &ConfigurationError{Field: "convention", Reason: fmt.Sprintf("unknown balance convention %v", e.convention)}
	}

	return e, nil
}

// Physics returns the engine's physical constants.
func (e *Engine) Physics() Physics { return e.physics }

// Convention returns the engine's balance thickness convention.
func (e *Engine) Convention() BalanceConvention { return e.convention }

// Tolerance returns the ill-conditioning threshold.
func (e *Engine) Tolerance() float64 { return e.tolerance }

// FrontalAblationRate computes
//
//	dL/dt = (m - H*dU/dx - U*dH/dx) / (dHy/dx - dH/dx)
//	rate  = U - dL/dt
//
// at the terminus. Structural problems with the input are returned as errors.
// A vanishing denominator is not an error: the result comes back with
// Condition set to IllConditioned.
func (e *Engine) FrontalAblationRate(in Input) (Result, error) {
	if in.TerminusMassBalance == nil {
		return Result{}, &ConfigurationError{Field: "terminus_mass_balance", Reason: "must be supplied explicitly"}
	}
	if in.Yield == nil {
		return Result{}, &ConfigurationError{Field: "yield", Reason: "no yield model supplied"}
	}
	if err := in.Yield.Validate(); err != nil {
		return Result{}, err
	}

	g, err := TerminusGradients(e.physics, e.convention, in.Profile, in.Velocity, in.Yield, in.Trim)
	if err != nil {
		return Result{}, err
	}

	mb := *in.TerminusMassBalance

	// Explicit float64 conversions keep each product rounded on its own so the
	// answer does not depend on whether the target fuses multiply-adds.
	numerator := mb - float64(g.HTerminus*g.DUDx) - float64(g.UTerminus*g.DHDx)
	denominator := g.DHyDx - g.DHDx
	dLdt := numerator / denominator
	rate := g.UTerminus - dLdt

	res := Result{
		Rate:        rate,
		DLDt:        dLdt,
		Numerator:   numerator,
		Denominator: denominator,
		Tolerance:   e.tolerance,
		Condition:   WellConditioned,
	}
	if math.Abs(denominator) < e.tolerance || math.IsNaN(rate) || math.IsInf(rate, 0) {
		res.Condition = IllConditioned
	}

	if in.Verbose {
		res.Trace = &Trace{
			Gradients:   g,
			MassBalance: mb,
			Numerator:   numerator,
			Denominator: denominator,
			DLDt:        dLdt,
			Rate:        rate,
		}
		if e.logger != nil {
			e.logger.Debugw("frontal ablation trace",
				"h_terminus", g.HTerminus, "h_adjacent", g.HAdjacent,
				"hy_terminus", g.HyTerminus, "hy_adjacent", g.HyAdjacent,
				"u_terminus", g.UTerminus, "u_adjacent", g.UAdjacent,
				"dx", g.Dx, "dh_dx", g.DHDx, "dhy_dx", g.DHyDx, "du_dx", g.DUDx,
				"numerator", numerator, "denominator", denominator,
				"dl_dt", dLdt, "rate", rate, "condition", res.Condition)
		}
	}

	return res, nil
}

// FrontalAblationRate evaluates in with a default engine for p.
func FrontalAblationRate(p Physics, in Input) (Result, error) {
	e, err := NewEngine(p)
	if err != nil {
		return Result{}, err
	}
	return e.FrontalAblationRate(in)
}

// Float returns a pointer to v, for filling Input.TerminusMassBalance.
func Float(v float64) *float64 {
	return &v
}
