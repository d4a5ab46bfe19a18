// Package ablation computes the frontal ablation rate of a marine-terminating
// glacier from a yield-stress force balance at the calving front.
//
// Every function in this package is pure: inputs are never mutated and no
// state survives between calls. Physical constants are passed explicitly as a
// Physics value so that different regimes (seawater, freshwater) can be
// evaluated side by side in one process.
package ablation

import (
	"fmt"
	"math"
)

// Physics holds the physical constants used by every formula in the package.
// Treat a Physics value as immutable once constructed.
type Physics struct {
	Gravity float64 `json:"gravity" yaml:"gravity"` // m/s²
	RhoIce  float64 `json:"rho_ice" yaml:"rho_ice"` // kg/m³
	RhoSea  float64 `json:"rho_sea" yaml:"rho_sea"` // kg/m³, density of the water at the front
}

// DefaultPhysics returns constants for a tidewater glacier in seawater.
func DefaultPhysics() Physics {
	return Physics{
		Gravity: 9.8,
		RhoIce:  920.0,
		RhoSea:  1020.0,
	}
}

// FreshwaterPhysics returns constants for a lake-terminating glacier.
func FreshwaterPhysics() Physics {
	p := DefaultPhysics()
	p.RhoSea = 1000.0
	return p
}

// Validate checks that every constant is finite and strictly positive.
func (p Physics) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"gravity", p.Gravity},
		{"rho_ice", p.RhoIce},
		{"rho_sea", p.RhoSea},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) || c.value <= 0 {
			return &ConfigurationError{
				Field:  c.name,
				Reason: fmt.Sprintf("must be finite and positive, got %v", c.value),
			}
		}
	}
	return nil
}

// waterDepth is the submerged depth of the bed; zero when the bed sits above sea level.
func waterDepth(bed float64) float64 {
	return math.Max(0, -bed)
}
