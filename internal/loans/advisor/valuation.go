package advisor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/policy"
	"drivecash_backend/platform/logger"
)

// PhotoFetcher loads photo bytes from object storage by key.
type PhotoFetcher interface {
	FetchPhoto(ctx context.Context, key string) (data []byte, contentType string, err error)
}

// ValuationAdvisor produces a best-effort collateral valuation from vehicle
// photos. A nil result with a non-nil error means no valuation is available;
// callers proceed with the applicant's self-estimate.
type ValuationAdvisor struct {
	model   Model
	photos  PhotoFetcher
	limits  policy.Limits
	timeout time.Duration
	log     *logger.Logger
}

// NewValuationAdvisor wires the valuation advisory.
func NewValuationAdvisor(model Model, photos PhotoFetcher, limits policy.Limits, timeout time.Duration, log *logger.Logger) *ValuationAdvisor {
	return &ValuationAdvisor{model: model, photos: photos, limits: limits, timeout: timeout, log: log}
}

type photoValuationResponse struct {
	Make               string   `json:"make"`
	Model              string   `json:"model"`
	Year               int      `json:"year"`
	Condition          string   `json:"condition"`
	EstimatedValueLow  float64  `json:"estimated_value_low"`
	EstimatedValueHigh float64  `json:"estimated_value_high"`
	DetectedIssues     []string `json:"detected_issues"`
	DetectedFeatures   []string `json:"detected_features"`
}

// Evaluate analyzes each photo, aggregates the per-photo estimates and
// completes the valuation with the policy-derived LTV, ceiling and risk tier.
// Photos that fail to fetch or analyze are skipped; the call fails only when
// no photo could be analyzed at all.
func (a *ValuationAdvisor) Evaluate(ctx context.Context, photoKeys []string, requestedAmount float64) (*domain.CollateralValuation, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	analyses := make([]domain.PhotoAnalysis, 0, len(photoKeys))
	for _, key := range photoKeys {
		analysis, err := a.analyzePhoto(ctx, key)
		if err != nil {
			a.log.Warn("photo analysis skipped", "key", key, "error", err)
			continue
		}
		analyses = append(analyses, analysis)
	}

	valuation := domain.AggregatePhotoAnalyses(analyses, time.Now())
	if valuation == nil {
		return nil, ErrNoAdvice
	}

	valuation.LTVRatio = a.limits.LTVRatio(requestedAmount, valuation.EstimatedValueAvg)
	valuation.MaxEligibleAmount = a.limits.MaxEligibleAmount(valuation.EstimatedValueAvg)
	valuation.RiskTier = riskTier(requestedAmount, valuation.MaxEligibleAmount, valuation.Condition)

	return valuation, nil
}

func (a *ValuationAdvisor) analyzePhoto(ctx context.Context, key string) (domain.PhotoAnalysis, error) {
	data, contentType, err := a.photos.FetchPhoto(ctx, key)
	if err != nil {
		return domain.PhotoAnalysis{}, err
	}

	raw, err := a.model.GenerateWithImage(ctx, photoValuationPrompt, data, contentType)
	if err != nil {
		return domain.PhotoAnalysis{}, err
	}

	var parsed photoValuationResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return domain.PhotoAnalysis{}, err
	}

	return domain.PhotoAnalysis{
		Make:               parsed.Make,
		Model:              parsed.Model,
		Year:               parsed.Year,
		Condition:          strings.ToLower(parsed.Condition),
		EstimatedValueLow:  parsed.EstimatedValueLow,
		EstimatedValueHigh: parsed.EstimatedValueHigh,
		DetectedIssues:     parsed.DetectedIssues,
		DetectedFeatures:   parsed.DetectedFeatures,
	}, nil
}

// riskTier grades the request against the policy ceiling and vehicle condition.
func riskTier(requestedAmount, maxEligible float64, condition string) string {
	switch {
	case requestedAmount > maxEligible:
		return "high"
	case condition == "poor" || requestedAmount > 0.8*maxEligible:
		return "medium"
	default:
		return "low"
	}
}

// stripCodeFence removes a markdown code fence if the model wrapped its JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
