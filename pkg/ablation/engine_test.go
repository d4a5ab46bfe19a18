package ablation

import (
	"errors"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func exampleInput() Input {
	return Input{
		Profile:             exampleProfile(),
		Velocity:            []float64{5, 4},
		TerminusMassBalance: Float(0),
		Yield:               Constant{Tau0: 150000},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultPhysics(), opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestFrontalAblationRateGolden(t *testing.T) {
	// numerator = 0 - 50*(-0.01) - 4*(-0.1) = 0.9
	// denominator = 0 - (-0.1) = 0.1
	// dL/dt = 9, rate = 4 - 9
	const golden = -5.0

	for _, conv := range []BalanceConvention{SquaredYieldTerm, LinearYieldTerm} {
		res, err := newTestEngine(t, WithConvention(conv)).FrontalAblationRate(exampleInput())
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", conv, err)
		}
		if res.Rate != golden {
			t.Errorf("%v: expected rate %v, got %v", conv, golden, res.Rate)
		}
		if res.IllConditioned() {
			t.Errorf("%v: golden scenario must not be flagged", conv)
		}
		if res.Err() != nil {
			t.Errorf("%v: expected nil Err, got %v", conv, res.Err())
		}
	}
}

func TestFrontalAblationRateIdempotent(t *testing.T) {
	e := newTestEngine(t)
	in := exampleInput()
	in.Yield = MohrCoulomb{Tau0: 90000, Mu: 0.35}
	in.TerminusMassBalance = Float(-2.5)

	first, err := e.FrontalAblationRate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := e.FrontalAblationRate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}

	if in.Velocity[0] != 5 || in.Velocity[1] != 4 || in.Profile.Surface[1] != 40 {
		t.Errorf("input was mutated: %+v", in)
	}
}

func TestFrontalAblationRateUniformColumn(t *testing.T) {
	// Equal thickness and speed at both points with zero mass balance: the
	// numerator vanishes and the rate is exactly the terminus speed.
	in := Input{
		Profile: Profile{
			X:       []float64{0, 100},
			Surface: []float64{30, 0},
			Bed:     []float64{-50, -80},
		},
		Velocity:            []float64{700, 700},
		TerminusMassBalance: Float(0),
		Yield:               Constant{Tau0: 100000},
	}

	res, err := newTestEngine(t).FrontalAblationRate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Numerator != 0 {
		t.Errorf("expected zero numerator, got %v", res.Numerator)
	}
	if res.DLDt != 0 {
		t.Errorf("expected zero dL/dt, got %v", res.DLDt)
	}
	if res.Rate != 700 {
		t.Errorf("expected rate 700, got %v", res.Rate)
	}
}

func TestFrontalAblationRateRequiresMassBalance(t *testing.T) {
	in := exampleInput()
	in.TerminusMassBalance = nil

	_, err := newTestEngine(t).FrontalAblationRate(in)
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %v", err)
	}
	if cfgErr.Field != "terminus_mass_balance" {
		t.Errorf("expected field terminus_mass_balance, got %q", cfgErr.Field)
	}
}

func TestFrontalAblationRateRejectsInvalidYield(t *testing.T) {
	in := exampleInput()
	in.Yield = MohrCoulomb{Tau0: 1000, Mu: 2}

	_, err := newTestEngine(t).FrontalAblationRate(in)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFrontalAblationRatePropagatesStructuralErrors(t *testing.T) {
	e := newTestEngine(t)

	in := exampleInput()
	in.Trim = 1
	if _, err := e.FrontalAblationRate(in); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected insufficient data, got %v", err)
	}

	in = exampleInput()
	in.Profile.X = []float64{3, 3}
	if _, err := e.FrontalAblationRate(in); !errors.Is(err, ErrDegenerateGrid) {
		t.Errorf("expected degenerate grid, got %v", err)
	}
}

func TestFrontalAblationRateZeroDenominator(t *testing.T) {
	// Same bed and same thickness at both points: dHy/dx = dH/dx = 0.
	in := Input{
		Profile: Profile{
			X:       []float64{0, 100},
			Surface: []float64{40, 40},
			Bed:     []float64{-60, -60},
		},
		Velocity:            []float64{300, 300},
		TerminusMassBalance: Float(-1),
		Yield:               Constant{Tau0: 150000},
	}

	res, err := newTestEngine(t).FrontalAblationRate(in)
	if err != nil {
		t.Fatalf("ill-conditioning must not be an error, got %v", err)
	}
	if !res.IllConditioned() {
		t.Fatalf("expected ill-conditioned result, got %+v", res)
	}
	if !math.IsInf(res.Rate, 0) {
		t.Errorf("expected the raw unbounded rate, got %v", res.Rate)
	}

	var icErr *IllConditionedError
	if !errors.As(res.Err(), &icErr) {
		t.Fatalf("expected *IllConditionedError, got %v", res.Err())
	}
	if !errors.Is(res.Err(), ErrIllConditioned) {
		t.Errorf("expected errors.Is(ErrIllConditioned)")
	}
}

func TestFrontalAblationRateNearZeroDenominator(t *testing.T) {
	// Build each column exactly at its balance thickness so that dH/dx and
	// dHy/dx agree to rounding.
	p := DefaultPhysics()
	yield := Constant{Tau0: 120000}
	bed := []float64{-100, -150}
	surface := make([]float64, len(bed))
	for i, b := range bed {
		surface[i] = b + BalanceThickness(p, SquaredYieldTerm, yield.Tau0, b)
	}

	in := Input{
		Profile:             Profile{X: []float64{0, 250}, Surface: surface, Bed: bed},
		Velocity:            []float64{1500, 1800},
		TerminusMassBalance: Float(1),
		Yield:               yield,
	}

	res, err := newTestEngine(t).FrontalAblationRate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Denominator) >= DefaultTolerance {
		t.Fatalf("test geometry should give a vanishing denominator, got %v", res.Denominator)
	}
	if !res.IllConditioned() {
		t.Errorf("expected ill-conditioned flag for denominator %v", res.Denominator)
	}
}

func TestFrontalAblationRateYieldSweepFlagsBand(t *testing.T) {
	// dH/dx = 0.25 while dHy/dx falls slowly with tau0, so the denominator
	// crosses zero once near tau0 = 350 kPa.
	e := newTestEngine(t, WithTolerance(1e-3))
	in := Input{
		Profile: Profile{
			X:       []float64{0, 200},
			Surface: []float64{100, 100},
			Bed:     []float64{-200, -250},
		},
		Velocity:            []float64{1000, 1200},
		TerminusMassBalance: Float(0),
	}

	var flagged []int
	signChanges := 0
	prevSign := 0.0
	for i := 0; i <= 200; i++ {
		in.Yield = Constant{Tau0: float64(i) * 5000}
		res, err := e.FrontalAblationRate(in)
		if err != nil {
			t.Fatalf("tau0=%v: unexpected error: %v", float64(i)*5000, err)
		}

		small := math.Abs(res.Denominator) < e.Tolerance()
		if small != res.IllConditioned() {
			t.Fatalf("tau0=%v: denominator %v flagged=%v", float64(i)*5000, res.Denominator, res.IllConditioned())
		}
		if res.IllConditioned() {
			flagged = append(flagged, i)
			continue
		}

		if math.IsInf(res.Rate, 0) || math.IsNaN(res.Rate) {
			t.Fatalf("tau0=%v: unflagged non-finite rate %v", float64(i)*5000, res.Rate)
		}
		sign := math.Copysign(1, res.Denominator)
		if prevSign != 0 && sign != prevSign {
			signChanges++
		}
		prevSign = sign
	}

	want := []int{68, 69, 70, 71, 72}
	if len(flagged) != len(want) {
		t.Fatalf("expected flagged indices %v, got %v", want, flagged)
	}
	for i := range want {
		if flagged[i] != want[i] {
			t.Fatalf("expected flagged indices %v, got %v", want, flagged)
		}
	}
	if signChanges != 1 {
		t.Errorf("expected one sign change across the flagged band, got %d", signChanges)
	}
}

func TestFrontalAblationRateVerboseTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := newTestEngine(t, WithLogger(zap.New(core).Sugar()))

	quiet, err := e.FrontalAblationRate(exampleInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quiet.Trace != nil {
		t.Errorf("expected no trace without verbose")
	}
	if logs.Len() != 0 {
		t.Errorf("expected no log entries without verbose, got %d", logs.Len())
	}

	in := exampleInput()
	in.Verbose = true
	loud, err := e.FrontalAblationRate(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loud.Rate != quiet.Rate {
		t.Errorf("verbose changed the rate: %v vs %v", loud.Rate, quiet.Rate)
	}
	if loud.Trace == nil {
		t.Fatalf("expected a trace")
	}

	tr := loud.Trace
	if tr.HTerminus != 50 || tr.HAdjacent != 60 || tr.UTerminus != 4 || tr.UAdjacent != 5 || tr.Dx != 100 {
		t.Errorf("unexpected sample points in trace: %+v", tr.Gradients)
	}
	if tr.Numerator != loud.Numerator || tr.Denominator != loud.Denominator || tr.DLDt != loud.DLDt || tr.Rate != loud.Rate {
		t.Errorf("trace disagrees with result: %+v vs %+v", tr, loud)
	}
	if logs.FilterMessage("frontal ablation trace").Len() != 1 {
		t.Errorf("expected one trace log entry, got %d", logs.Len())
	}
}

func TestNewEngineValidation(t *testing.T) {
	bad := DefaultPhysics()
	bad.RhoIce = 0
	if _, err := NewEngine(bad); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for zero density, got %v", err)
	}
	if _, err := NewEngine(DefaultPhysics(), WithTolerance(-1)); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for negative tolerance, got %v", err)
	}
	if _, err := NewEngine(DefaultPhysics(), WithConvention(BalanceConvention(7))); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected configuration error for unknown convention, got %v", err)
	}
}

func TestFreshwaterPhysicsChangesResult(t *testing.T) {
	in := Input{
		Profile: Profile{
			X:       []float64{0, 150},
			Surface: []float64{60, 45},
			Bed:     []float64{-120, -160},
		},
		Velocity:            []float64{400, 450},
		TerminusMassBalance: Float(-3),
		Yield:               MohrCoulomb{Tau0: 50000, Mu: 0.2},
	}

	sea, err := FrontalAblationRate(DefaultPhysics(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fresh, err := FrontalAblationRate(FreshwaterPhysics(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sea.Rate == fresh.Rate {
		t.Errorf("expected water density to change the rate, both gave %v", sea.Rate)
	}
}

func TestFrontalAblationRateNegativeYieldIsAnError(t *testing.T) {
	in := Input{
		Profile: Profile{
			X:       []float64{0, 100},
			Surface: []float64{0.5, -0.9},
			Bed:     []float64{-0.5, -1},
		},
		Velocity:            []float64{5, 4},
		TerminusMassBalance: Float(0),
		Yield:               MohrCoulomb{Tau0: 0, Mu: 1},
	}

	res, err := newTestEngine(t, WithConvention(LinearYieldTerm)).FrontalAblationRate(in)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v (result %+v)", err, res)
	}
	if errors.Is(err, ErrIllConditioned) {
		t.Errorf("negative yield stress must not be reported as ill-conditioning")
	}
}
