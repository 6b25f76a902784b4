// Package policy implements the deterministic loan-limit calculations.
// Both the underwriting advisory pre-check and the approval transition use
// these functions, so the ceiling can never drift between the two.
package policy

import "math"

// largeMarginFraction is the fraction over the ceiling beyond which an
// out-of-policy request is auto-flagged reject rather than conditional.
const largeMarginFraction = 0.2

// Limits holds the configured lending constants.
type Limits struct {
	// AbsoluteCap is the hard maximum loan amount in currency units.
	AbsoluteCap float64
	// MaxLTVRatio is the maximum loan-to-value fraction, e.g. 0.5.
	MaxLTVRatio float64
}

// Violation carries the computed policy inputs for a rejected amount, so the
// caller can self-correct.
type Violation struct {
	VehicleValue float64 `json:"vehicleValue"`
	MaxLTVRatio  float64 `json:"maxLtvRatio"`
	AbsoluteCap  float64 `json:"absoluteCap"`
	MaxEligible  float64 `json:"maxEligible"`
}

// MaxEligibleAmount computes the policy ceiling for the given collateral
// value. An unknown or non-positive value yields the absolute cap.
func (l Limits) MaxEligibleAmount(collateralValue float64) float64 {
	if collateralValue <= 0 {
		return l.AbsoluteCap
	}
	return math.Min(collateralValue*l.MaxLTVRatio, l.AbsoluteCap)
}

// LTVRatio returns the requested amount as a percentage of collateral value,
// or 0 when the collateral value is unknown.
func (l Limits) LTVRatio(requestedAmount, collateralValue float64) float64 {
	if collateralValue <= 0 {
		return 0
	}
	return requestedAmount / collateralValue * 100
}

// WithinLimits reports whether the requested amount is at or under the ceiling.
func (l Limits) WithinLimits(requestedAmount, collateralValue float64) bool {
	return requestedAmount <= l.MaxEligibleAmount(collateralValue)
}

// ExceedsByLargeMargin reports whether the requested amount overshoots the
// ceiling by more than the fixed margin fraction.
func (l Limits) ExceedsByLargeMargin(requestedAmount, collateralValue float64) bool {
	maxEligible := l.MaxEligibleAmount(collateralValue)
	return requestedAmount-maxEligible > largeMarginFraction*maxEligible
}

// Check validates the requested amount and returns the violation detail when
// it is out of policy.
func (l Limits) Check(requestedAmount, collateralValue float64) *Violation {
	if l.WithinLimits(requestedAmount, collateralValue) {
		return nil
	}
	return &Violation{
		VehicleValue: collateralValue,
		MaxLTVRatio:  l.MaxLTVRatio,
		AbsoluteCap:  l.AbsoluteCap,
		MaxEligible:  l.MaxEligibleAmount(collateralValue),
	}
}
