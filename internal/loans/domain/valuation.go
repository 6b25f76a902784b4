package domain

import "time"

// conditionRank orders vehicle conditions worst-first so aggregation can pick
// the lowest across photos.
var conditionRank = map[string]int{
	"poor":      0,
	"fair":      1,
	"good":      2,
	"excellent": 3,
}

// PhotoAnalysis is the per-photo result returned by the vision capability.
type PhotoAnalysis struct {
	Make               string
	Model              string
	Year               int
	Condition          string
	EstimatedValueLow  float64
	EstimatedValueHigh float64
	DetectedIssues     []string
	DetectedFeatures   []string
}

// AggregatePhotoAnalyses combines per-photo estimates into one valuation:
// mean of low/high values, worst condition across photos, deduplicated union
// of issues and features. Confidence is high only when at least three photos
// were successfully analyzed. Returns nil when no photos were analyzed.
func AggregatePhotoAnalyses(results []PhotoAnalysis, now time.Time) *CollateralValuation {
	if len(results) == 0 {
		return nil
	}

	var lowSum, highSum float64
	worst := "excellent"
	issues := make([]string, 0)
	features := make([]string, 0)
	seenIssues := make(map[string]bool)
	seenFeatures := make(map[string]bool)
	var make_, model string
	var year int

	for _, r := range results {
		lowSum += r.EstimatedValueLow
		highSum += r.EstimatedValueHigh

		if rank, ok := conditionRank[r.Condition]; ok {
			if rank < conditionRank[worst] {
				worst = r.Condition
			}
		}

		for _, issue := range r.DetectedIssues {
			if issue != "" && !seenIssues[issue] {
				seenIssues[issue] = true
				issues = append(issues, issue)
			}
		}
		for _, feature := range r.DetectedFeatures {
			if feature != "" && !seenFeatures[feature] {
				seenFeatures[feature] = true
				features = append(features, feature)
			}
		}

		// First photo that identified the vehicle wins.
		if make_ == "" && r.Make != "" {
			make_, model, year = r.Make, r.Model, r.Year
		}
	}

	n := float64(len(results))
	low := lowSum / n
	high := highSum / n

	confidence := "medium"
	if len(results) >= 3 {
		confidence = "high"
	}

	return &CollateralValuation{
		Make:               make_,
		Model:              model,
		Year:               year,
		Condition:          worst,
		EstimatedValueLow:  low,
		EstimatedValueHigh: high,
		EstimatedValueAvg:  (low + high) / 2,
		Confidence:         confidence,
		DetectedIssues:     issues,
		DetectedFeatures:   features,
		PhotosAnalyzed:     len(results),
		EvaluatedAt:        now,
	}
}

// acceptableVariance is the fraction by which the applicant's self-estimate
// may deviate from the AI valuation before being flagged.
const acceptableVariance = 0.15

// ValueComparison relates the applicant's self-estimate to the AI valuation.
type ValueComparison struct {
	Assessment      string  `json:"assessment"` // aligned, overvalued, undervalued
	ApplicantValue  float64 `json:"applicantValue"`
	AIValue         float64 `json:"aiValue"`
	VariancePercent float64 `json:"variancePercent"`
}

// CompareValues assesses the applicant's estimate against the AI valuation
// average. Returns nil when either value is missing.
func CompareValues(applicantValue, aiValue float64) *ValueComparison {
	if applicantValue <= 0 || aiValue <= 0 {
		return nil
	}

	variance := (applicantValue - aiValue) / aiValue
	assessment := "aligned"
	if variance > acceptableVariance {
		assessment = "overvalued"
	} else if variance < -acceptableVariance {
		assessment = "undervalued"
	}

	return &ValueComparison{
		Assessment:      assessment,
		ApplicantValue:  applicantValue,
		AIValue:         aiValue,
		VariancePercent: variance * 100,
	}
}
