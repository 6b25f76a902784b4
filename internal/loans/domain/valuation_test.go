package domain

import (
	"testing"
	"time"
)

func TestAggregatePhotoAnalyses(t *testing.T) {
	now := time.Now()
	results := []PhotoAnalysis{
		{
			Make: "Toyota", Model: "Camry", Year: 2019,
			Condition:          "good",
			EstimatedValueLow:  14000,
			EstimatedValueHigh: 18000,
			DetectedIssues:     []string{"scratched bumper"},
			DetectedFeatures:   []string{"sunroof"},
		},
		{
			Condition:          "fair",
			EstimatedValueLow:  12000,
			EstimatedValueHigh: 16000,
			DetectedIssues:     []string{"scratched bumper", "worn tires"},
			DetectedFeatures:   []string{"alloy wheels"},
		},
		{
			Condition:          "good",
			EstimatedValueLow:  13000,
			EstimatedValueHigh: 17000,
		},
	}

	v := AggregatePhotoAnalyses(results, now)
	if v == nil {
		t.Fatal("expected a valuation")
	}

	if v.Make != "Toyota" || v.Model != "Camry" || v.Year != 2019 {
		t.Errorf("vehicle identity not taken from first identifying photo: %s %s %d", v.Make, v.Model, v.Year)
	}
	if v.Condition != "fair" {
		t.Errorf("condition = %s, want worst-case fair", v.Condition)
	}
	if v.EstimatedValueLow != 13000 {
		t.Errorf("low = %v, want mean 13000", v.EstimatedValueLow)
	}
	if v.EstimatedValueHigh != 17000 {
		t.Errorf("high = %v, want mean 17000", v.EstimatedValueHigh)
	}
	if v.EstimatedValueAvg != 15000 {
		t.Errorf("avg = %v, want 15000", v.EstimatedValueAvg)
	}
	if v.Confidence != "high" {
		t.Errorf("confidence = %s, want high with 3 photos", v.Confidence)
	}
	if len(v.DetectedIssues) != 2 {
		t.Errorf("issues = %v, want deduplicated union of 2", v.DetectedIssues)
	}
	if len(v.DetectedFeatures) != 2 {
		t.Errorf("features = %v, want union of 2", v.DetectedFeatures)
	}
	if v.PhotosAnalyzed != 3 {
		t.Errorf("photosAnalyzed = %d, want 3", v.PhotosAnalyzed)
	}
}

func TestAggregatePhotoAnalysesConfidence(t *testing.T) {
	now := time.Now()
	two := []PhotoAnalysis{
		{Condition: "good", EstimatedValueLow: 10000, EstimatedValueHigh: 12000},
		{Condition: "good", EstimatedValueLow: 10000, EstimatedValueHigh: 12000},
	}

	v := AggregatePhotoAnalyses(two, now)
	if v.Confidence != "medium" {
		t.Errorf("confidence = %s, want medium with fewer than 3 photos", v.Confidence)
	}
}

func TestAggregatePhotoAnalysesEmpty(t *testing.T) {
	if v := AggregatePhotoAnalyses(nil, time.Now()); v != nil {
		t.Errorf("expected nil valuation for no photos, got %+v", v)
	}
}

func TestCompareValues(t *testing.T) {
	cases := []struct {
		name      string
		applicant float64
		ai        float64
		want      string
	}{
		{"aligned exact", 15000, 15000, "aligned"},
		{"aligned within variance", 16000, 15000, "aligned"},
		{"overvalued", 20000, 15000, "overvalued"},
		{"undervalued", 10000, 15000, "undervalued"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmp := CompareValues(tc.applicant, tc.ai)
			if cmp == nil {
				t.Fatal("expected a comparison")
			}
			if cmp.Assessment != tc.want {
				t.Errorf("assessment = %s, want %s", cmp.Assessment, tc.want)
			}
		})
	}

	if CompareValues(0, 15000) != nil {
		t.Error("expected nil comparison when applicant value missing")
	}
	if CompareValues(15000, 0) != nil {
		t.Error("expected nil comparison when AI value missing")
	}
}
