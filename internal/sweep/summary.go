package sweep

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary aggregates the well-conditioned rates of a sweep. Ill-conditioned
// and failed points are counted but never averaged in.
type Summary struct {
	Points         int
	Conditioned    int
	IllConditioned int
	Failed         int

	MeanRate   float64
	StdDevRate float64
	MinRate    float64
	MaxRate    float64

	// SignChanges counts sign flips of the rate-equation denominator between
	// consecutive well-conditioned points.
	SignChanges int
}

// Summarize computes a Summary over points in index order.
func Summarize(points []Point) Summary {
	s := Summary{
		Points:     len(points),
		MeanRate:   math.NaN(),
		StdDevRate: math.NaN(),
		MinRate:    math.NaN(),
		MaxRate:    math.NaN(),
	}

	var rates []float64
	prevSign := 0.0
	for _, p := range points {
		switch {
		case p.Err != nil:
			s.Failed++
			continue
		case p.Result.IllConditioned():
			s.IllConditioned++
			continue
		}

		s.Conditioned++
		if finite(p.Result.Rate) {
			rates = append(rates, p.Result.Rate)
		}

		sign := math.Copysign(1, p.Result.Denominator)
		if prevSign != 0 && sign != prevSign {
			s.SignChanges++
		}
		prevSign = sign
	}

	switch len(rates) {
	case 0:
	case 1:
		s.MeanRate, s.StdDevRate = rates[0], 0
		s.MinRate, s.MaxRate = rates[0], rates[0]
	default:
		s.MeanRate, s.StdDevRate = stat.MeanStdDev(rates, nil)
		s.MinRate, s.MaxRate = floats.Min(rates), floats.Max(rates)
	}

	return s
}
