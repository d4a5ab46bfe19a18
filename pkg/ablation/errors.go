package ablation

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is matching against the typed errors below.
var (
	// ErrConfiguration indicates a required parameter is missing or inconsistent.
	ErrConfiguration = errors.New("ablation: configuration error")

	// ErrInsufficientData indicates fewer than two usable grid points after trimming.
	ErrInsufficientData = errors.New("ablation: insufficient data")

	// ErrDegenerateGrid indicates zero spacing between the terminus and its upstream neighbour.
	ErrDegenerateGrid = errors.New("ablation: degenerate grid")

	// ErrIllConditioned indicates the rate equation's denominator is numerically zero.
	ErrIllConditioned = errors.New("ablation: ill-conditioned result")
)

// ConfigurationError reports a missing or inconsistent parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// InsufficientDataError reports that a sequence is too short once trim cells are discarded.
type InsufficientDataError struct {
	Sequence string
	Points   int
	Trim     int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%v: %s has %d points, need at least %d with trim=%d",
		ErrInsufficientData, e.Sequence, e.Points, e.Trim+2, e.Trim)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// DegenerateGridError reports a zero or non-finite spacing between the two sample points.
type DegenerateGridError struct {
	Terminus  int
	Adjacent  int
	XTerminus float64
	XAdjacent float64
}

func (e *DegenerateGridError) Error() string {
	return fmt.Sprintf("%v: x[%d]=%v and x[%d]=%v give no usable spacing",
		ErrDegenerateGrid, e.Adjacent, e.XAdjacent, e.Terminus, e.XTerminus)
}

func (e *DegenerateGridError) Is(target error) bool {
	return target == ErrDegenerateGrid
}

// IllConditionedError describes a result whose denominator fell below the
// engine tolerance. It is returned by Result.Err, never by the engine itself.
type IllConditionedError struct {
	Denominator float64
	Tolerance   float64
	Rate        float64
}

func (e *IllConditionedError) Error() string {
	return fmt.Sprintf("%v: denominator %g is within tolerance %g of zero (raw rate %g)",
		ErrIllConditioned, e.Denominator, e.Tolerance, e.Rate)
}

func (e *IllConditionedError) Is(target error) bool {
	return target == ErrIllConditioned
}
