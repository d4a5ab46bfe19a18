package ablation

import (
	"fmt"
	"math"
)

// Profile is a flowline: three index-aligned sequences ordered downstream.
type Profile struct {
	X       []float64 `json:"x" yaml:"x"`             // m
	Surface []float64 `json:"surface" yaml:"surface"` // m
	Bed     []float64 `json:"bed" yaml:"bed"`         // m, negative below sea level
}

// Len returns the number of grid points, or -1 when the sequences disagree.
func (p Profile) Len() int {
	n := len(p.X)
	if len(p.Surface) != n || len(p.Bed) != n {
		return -1
	}
	return n
}

// Thickness returns surface minus bed at point i. A negative value is passed
// through unchanged.
func (p Profile) Thickness(i int) float64 {
	return p.Surface[i] - p.Bed[i]
}

// Gradients holds the two sample points nearest the terminus and the
// two-point finite differences between them. Every difference is terminus
// minus upstream, divided by a positive Dx.
type Gradients struct {
	HTerminus  float64 `json:"h_terminus"`
	HAdjacent  float64 `json:"h_adjacent"`
	HyTerminus float64 `json:"hy_terminus"`
	HyAdjacent float64 `json:"hy_adjacent"`
	UTerminus  float64 `json:"u_terminus"`
	UAdjacent  float64 `json:"u_adjacent"`
	Dx         float64 `json:"dx"`
	DHDx       float64 `json:"dh_dx"`
	DHyDx      float64 `json:"dhy_dx"`
	DUDx       float64 `json:"du_dx"`
}

// TerminusGradients samples the terminus (trim cells in from the end of each
// sequence) and its upstream neighbour, evaluates thickness, balance
// thickness and speed at both, and differences them.
//
// Profile and velocity are each indexed from their own end, so the velocity
// slice only needs to cover the last trim+2 points. It may not be longer
// than the profile.
func TerminusGradients(p Physics, conv BalanceConvention, prof Profile, velocity []float64, yield YieldModel, trim int) (Gradients, error) {
	if trim < 0 {
		return Gradients{}, &ConfigurationError{Field: "trim", Reason: fmt.Sprintf("must be non-negative, got %d", trim)}
	}
	if yield == nil {
		return Gradients{}, &ConfigurationError{Field: "yield", Reason: "no yield model supplied"}
	}

	n := prof.Len()
	if n < 0 {
		return Gradients{}, &ConfigurationError{
			Field: "profile",
			Reason: fmt.Sprintf("x, surface and bed lengths differ (%d, %d, %d)",
				len(prof.X), len(prof.Surface), len(prof.Bed)),
		}
	}
	if n < trim+2 {
		return Gradients{}, &InsufficientDataError{Sequence: "profile", Points: n, Trim: trim}
	}
	if len(velocity) < trim+2 {
		return Gradients{}, &InsufficientDataError{Sequence: "velocity", Points: len(velocity), Trim: trim}
	}
	if len(velocity) > n {
		return Gradients{}, &ConfigurationError{
			Field:  "velocity",
			Reason: fmt.Sprintf("%d speeds for a %d point profile", len(velocity), n),
		}
	}

	term := n - 1 - trim
	adj := term - 1
	uTerm := len(velocity) - 1 - trim
	uAdj := uTerm - 1

	dx := math.Abs(prof.X[adj] - prof.X[term])
	if dx == 0 || math.IsNaN(dx) || math.IsInf(dx, 0) {
		return Gradients{}, &DegenerateGridError{
			Terminus:  term,
			Adjacent:  adj,
			XTerminus: prof.X[term],
			XAdjacent: prof.X[adj],
		}
	}

	hTerm := prof.Thickness(term)
	hAdj := prof.Thickness(adj)

	hyTerm, err := balanceAt(p, conv, yield, term, prof.Bed[term], hTerm)
	if err != nil {
		return Gradients{}, err
	}
	hyAdj, err := balanceAt(p, conv, yield, adj, prof.Bed[adj], hAdj)
	if err != nil {
		return Gradients{}, err
	}

	return Gradients{
		HTerminus:  hTerm,
		HAdjacent:  hAdj,
		HyTerminus: hyTerm,
		HyAdjacent: hyAdj,
		UTerminus:  velocity[uTerm],
		UAdjacent:  velocity[uAdj],
		Dx:         dx,
		DHDx:       (hTerm - hAdj) / dx,
		DHyDx:      (hyTerm - hyAdj) / dx,
		DUDx:       (velocity[uTerm] - velocity[uAdj]) / dx,
	}, nil
}

// balanceAt evaluates the yield stress for the column at sample point i and
// converts it to a balance thickness. A negative or non-finite strength has
// no balance thickness and is rejected.
func balanceAt(p Physics, conv BalanceConvention, yield YieldModel, i int, bed, thickness float64) (float64, error) {
	tau, err := yield.YieldStress(p, &Column{Bed: bed, Thickness: thickness})
	if err != nil {
		return 0, err
	}
	if tau < 0 || math.IsNaN(tau) || math.IsInf(tau, 0) {
		return 0, &ConfigurationError{
			Field:  "yield",
			Reason: fmt.Sprintf("yield stress %g Pa at point %d (bed %g m, thickness %g m) is not a finite non-negative value", tau, i, bed, thickness),
		}
	}
	return BalanceThickness(p, conv, tau, bed), nil
}
