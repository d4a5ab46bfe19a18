package ablation

import (
	"fmt"
	"math"
)

// YieldKind names a yield strength closure.
type YieldKind string

const (
	// YieldConstant uses a fixed yield stress everywhere.
	YieldConstant YieldKind = "constant"

	// YieldVariable uses a Mohr-Coulomb closure on effective normal stress.
	YieldVariable YieldKind = "variable"
)

// Column is the local ice column a yield stress is evaluated for.
type Column struct {
	Bed       float64 // bed elevation, m, negative below sea level
	Thickness float64 // ice thickness, m
}

// YieldModel is the closed set of yield strength closures. The only
// implementations are Constant and MohrCoulomb.
type YieldModel interface {
	// Kind reports which closure this is.
	Kind() YieldKind

	// Validate reports a *ConfigurationError when the parameters are unusable.
	Validate() error

	// YieldStress returns the yield stress in Pa for the given column.
	YieldStress(p Physics, col *Column) (float64, error)

	yieldModel()
}

// Constant is a spatially uniform yield stress.
type Constant struct {
	Tau0 float64 // Pa
}

func (Constant) Kind() YieldKind { return YieldConstant }

func (c Constant) Validate() error {
	return validateTau0(c.Tau0)
}

// YieldStress returns Tau0. The column is ignored and may be nil.
func (c Constant) YieldStress(_ Physics, _ *Column) (float64, error) {
	return c.Tau0, nil
}

func (Constant) yieldModel() {}

// MohrCoulomb makes the yield stress grow linearly with effective pressure:
// tau = Tau0 + Mu*(rho_ice*g*H - rho_sea*g*D), where D is the water depth at the bed.
type MohrCoulomb struct {
	Tau0 float64 // Pa
	Mu   float64 // dimensionless friction coefficient in [0, 1]
}

func (MohrCoulomb) Kind() YieldKind { return YieldVariable }

func (m MohrCoulomb) Validate() error {
	if err := validateTau0(m.Tau0); err != nil {
		return err
	}
	if math.IsNaN(m.Mu) || m.Mu < 0 || m.Mu > 1 {
		return &ConfigurationError{Field: "mu", Reason: fmt.Sprintf("must lie in [0, 1], got %v", m.Mu)}
	}
	return nil
}

// YieldStress requires a column; a nil column is a *ConfigurationError.
func (m MohrCoulomb) YieldStress(p Physics, col *Column) (float64, error) {
	if col == nil {
		return 0, &ConfigurationError{
			Field:  "column",
			Reason: "variable yield needs bed elevation and thickness",
		}
	}
	d := waterDepth(col.Bed)
	n := float64(p.RhoIce*p.Gravity*col.Thickness) - float64(p.RhoSea*p.Gravity*d)
	return m.Tau0 + float64(m.Mu*n), nil
}

func (MohrCoulomb) yieldModel() {}

// YieldStress evaluates m for the given column. It exists so callers holding
// only the interface read the same as the closure definitions above.
func YieldStress(p Physics, m YieldModel, col *Column) (float64, error) {
	if m == nil {
		return 0, &ConfigurationError{Field: "yield", Reason: "no yield model supplied"}
	}
	return m.YieldStress(p, col)
}

// NewYieldModel builds a YieldModel from its string-tagged form. Unknown kinds
// are rejected rather than treated as constant.
func NewYieldModel(kind YieldKind, tau0, mu float64) (YieldModel, error) {
	var m YieldModel
	switch kind {
	case YieldConstant:
		m = Constant{Tau0: tau0}
	case YieldVariable:
		m = MohrCoulomb{Tau0: tau0, Mu: mu}
	default:
		return nil, &ConfigurationError{Field: "yield.type", Reason: fmt.Sprintf("unknown yield type %q", kind)}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func validateTau0(tau0 float64) error {
	if math.IsNaN(tau0) || math.IsInf(tau0, 0) || tau0 < 0 {
		return &ConfigurationError{Field: "tau0", Reason: fmt.Sprintf("must be finite and non-negative, got %v", tau0)}
	}
	return nil
}
