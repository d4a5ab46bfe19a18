package ablation

import (
	"fmt"
	"math"
)

// BalanceConvention selects the exponent applied to the yield term inside the
// square root of the balance thickness:
//
//	H_y = a + sqrt(rho_sea*D²/rho_ice + a^k),  a = 2*tau/(rho_ice*g)
//
// Published derivations of this closure disagree on k. The squared form is
// dimensionally consistent; the linear form reproduces the alternative
// derivation. Neither is applied silently: callers pick one.
type BalanceConvention int

const (
	// SquaredYieldTerm uses k = 2.
	SquaredYieldTerm BalanceConvention = iota

	// LinearYieldTerm uses k = 1.
	LinearYieldTerm
)

// DefaultBalanceConvention is the convention used when none is configured.
const DefaultBalanceConvention = SquaredYieldTerm

// Exponent returns k.
func (c BalanceConvention) Exponent() int {
	if c == LinearYieldTerm {
		return 1
	}
	return 2
}

func (c BalanceConvention) String() string {
	switch c {
	case SquaredYieldTerm:
		return "squared"
	case LinearYieldTerm:
		return "linear"
	default:
		return fmt.Sprintf("BalanceConvention(%d)", int(c))
	}
}

// ParseBalanceConvention maps "squared"/"linear" (or "" for the default) to a convention.
func ParseBalanceConvention(s string) (BalanceConvention, error) {
	switch s {
	case "", "squared":
		return SquaredYieldTerm, nil
	case "linear":
		return LinearYieldTerm, nil
	default:
		return 0, &ConfigurationError{Field: "convention", Reason: fmt.Sprintf("unknown balance convention %q", s)}
	}
}

// BalanceThickness returns the ice thickness (m) at which the driving stress
// of a column standing on bed equals yieldStrength. The result is real and
// finite for any yieldStrength >= 0 and finite bed.
func BalanceThickness(p Physics, conv BalanceConvention, yieldStrength, bed float64) float64 {
	d := waterDepth(bed)
	a := 2 * yieldStrength / (p.RhoIce * p.Gravity)

	var yieldTerm float64
	switch conv {
	case LinearYieldTerm:
		yieldTerm = a
	default:
		yieldTerm = float64(a * a)
	}

	return a + math.Sqrt(float64(p.RhoSea*d*d/p.RhoIce)+yieldTerm)
}
