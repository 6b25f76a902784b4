package policy

import "testing"

var standard = Limits{AbsoluteCap: 25000, MaxLTVRatio: 0.5}

func TestMaxEligibleAmount(t *testing.T) {
	cases := []struct {
		name            string
		collateralValue float64
		want            float64
	}{
		{"ltv below cap", 40000, 20000},
		{"cap binds", 100000, 25000},
		{"exactly at cap boundary", 50000, 25000},
		{"zero value falls back to cap", 0, 25000},
		{"negative value falls back to cap", -1, 25000},
		{"small value", 1000, 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := standard.MaxEligibleAmount(tc.collateralValue); got != tc.want {
				t.Errorf("MaxEligibleAmount(%v) = %v, want %v", tc.collateralValue, got, tc.want)
			}
		})
	}
}

func TestMaxEligibleAmountProperties(t *testing.T) {
	for _, value := range []float64{1, 500, 10000, 40000, 49999, 50000, 50001, 100000, 1e9} {
		got := standard.MaxEligibleAmount(value)
		if got > standard.AbsoluteCap {
			t.Errorf("MaxEligibleAmount(%v) = %v exceeds absolute cap", value, got)
		}
		if got > value*standard.MaxLTVRatio {
			t.Errorf("MaxEligibleAmount(%v) = %v exceeds value*LTV", value, got)
		}
	}
}

func TestLTVRatio(t *testing.T) {
	if got := standard.LTVRatio(20000, 40000); got != 50 {
		t.Errorf("LTVRatio(20000, 40000) = %v, want 50", got)
	}
	if got := standard.LTVRatio(20000, 0); got != 0 {
		t.Errorf("LTVRatio with zero collateral = %v, want 0", got)
	}
}

func TestWithinLimits(t *testing.T) {
	// Scenario A: $40,000 collateral, 0.5 LTV, $25,000 cap -> ceiling $20,000.
	if !standard.WithinLimits(20000, 40000) {
		t.Error("requested 20000 against 40000 collateral should be within limits")
	}
	if standard.WithinLimits(20001, 40000) {
		t.Error("requested 20001 against 40000 collateral should exceed limits")
	}

	// Scenario B: $100,000 collateral -> ceiling min(50000, 25000) = 25000.
	if !standard.WithinLimits(25000, 100000) {
		t.Error("requested 25000 against 100000 collateral should be within limits")
	}
}

func TestExceedsByLargeMargin(t *testing.T) {
	// Ceiling for 40000 collateral is 20000; 20% margin is 4000.
	if standard.ExceedsByLargeMargin(24000, 40000) {
		t.Error("24000 is exactly at the margin edge, not beyond it")
	}
	if !standard.ExceedsByLargeMargin(24001, 40000) {
		t.Error("24001 exceeds the ceiling by more than 20%")
	}
	if standard.ExceedsByLargeMargin(15000, 40000) {
		t.Error("in-policy amount must not flag large margin")
	}
}

func TestCheck(t *testing.T) {
	if v := standard.Check(20000, 40000); v != nil {
		t.Errorf("in-policy amount returned violation: %+v", v)
	}

	v := standard.Check(30000, 40000)
	if v == nil {
		t.Fatal("expected violation for 30000 against 40000 collateral")
	}
	if v.MaxEligible != 20000 {
		t.Errorf("violation maxEligible = %v, want 20000", v.MaxEligible)
	}
	if v.VehicleValue != 40000 || v.AbsoluteCap != 25000 || v.MaxLTVRatio != 0.5 {
		t.Errorf("violation detail mismatch: %+v", v)
	}
}
