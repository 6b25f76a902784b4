package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"drivecash_backend/internal/loans/policy"
	"drivecash_backend/platform/logger"
)

type fakeModel struct {
	textResponse  string
	imageResponse string
	err           error
	calls         int
}

func (f *fakeModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.textResponse, f.err
}

func (f *fakeModel) GenerateWithImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	f.calls++
	return f.imageResponse, f.err
}

type fakeFetcher struct {
	err error
}

func (f *fakeFetcher) FetchPhoto(ctx context.Context, key string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte{0xFF, 0xD8}, "image/jpeg", nil
}

var testLimits = policy.Limits{AbsoluteCap: 25000, MaxLTVRatio: 0.5}

func TestValuationAdvisorEvaluate(t *testing.T) {
	model := &fakeModel{imageResponse: `{
		"make": "Honda", "model": "Civic", "year": 2020,
		"condition": "good",
		"estimated_value_low": 14000, "estimated_value_high": 18000,
		"detected_issues": ["curb rash"], "detected_features": ["backup camera"]
	}`}

	adv := NewValuationAdvisor(model, &fakeFetcher{}, testLimits, time.Minute, logger.New("development"))
	v, err := adv.Evaluate(context.Background(), []string{"a.jpg", "b.jpg"}, 7000)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if v.Make != "Honda" || v.Condition != "good" {
		t.Errorf("unexpected valuation identity: %+v", v)
	}
	if v.EstimatedValueAvg != 16000 {
		t.Errorf("avg = %v, want 16000", v.EstimatedValueAvg)
	}
	if v.MaxEligibleAmount != 8000 {
		t.Errorf("maxEligible = %v, want 8000", v.MaxEligibleAmount)
	}
	if v.RiskTier != "medium" {
		// 7000 requested against an 8000 ceiling is above the 80% band.
		t.Errorf("riskTier = %s, want medium", v.RiskTier)
	}
	if v.PhotosAnalyzed != 2 {
		t.Errorf("photosAnalyzed = %d, want 2", v.PhotosAnalyzed)
	}
}

func TestValuationAdvisorAllPhotosFail(t *testing.T) {
	adv := NewValuationAdvisor(&fakeModel{err: errors.New("quota")}, &fakeFetcher{}, testLimits, time.Minute, logger.New("development"))
	if _, err := adv.Evaluate(context.Background(), []string{"a.jpg"}, 5000); !errors.Is(err, ErrNoAdvice) {
		t.Errorf("expected ErrNoAdvice, got %v", err)
	}
}

func TestValuationAdvisorCodeFencedResponse(t *testing.T) {
	model := &fakeModel{imageResponse: "```json\n{\"condition\":\"fair\",\"estimated_value_low\":10000,\"estimated_value_high\":12000}\n```"}
	adv := NewValuationAdvisor(model, &fakeFetcher{}, testLimits, time.Minute, logger.New("development"))

	v, err := adv.Evaluate(context.Background(), []string{"a.jpg"}, 3000)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Condition != "fair" {
		t.Errorf("condition = %s, want fair", v.Condition)
	}
}

func TestUnderwritingAdvisorInPolicy(t *testing.T) {
	model := &fakeModel{textResponse: `{
		"risk_tier": "low", "approval_suggestion": "approve",
		"suggested_amount": 7000, "rationale": "stable income", "confidence": "high"
	}`}
	adv := NewUnderwritingAdvisor(model, testLimits, time.Minute, logger.New("development"))

	advice, err := adv.Recommend(context.Background(), Snapshot{
		RequestedAmount: 7000,
		CollateralValue: 16000,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if advice.ApprovalSuggestion != "approve" {
		t.Errorf("suggestion = %s, want approve", advice.ApprovalSuggestion)
	}
	if advice.SuggestedAmount != 7000 {
		t.Errorf("suggestedAmount = %v, want 7000", advice.SuggestedAmount)
	}
}

func TestUnderwritingAdvisorPolicyOverride(t *testing.T) {
	// Model says approve, but the request is out of policy.
	model := &fakeModel{textResponse: `{
		"risk_tier": "low", "approval_suggestion": "approve",
		"suggested_amount": 9000, "rationale": "looks fine", "confidence": "high"
	}`}
	adv := NewUnderwritingAdvisor(model, testLimits, time.Minute, logger.New("development"))

	// Ceiling for 16000 collateral is 8000; 9000 exceeds it by 12.5% (not a
	// large margin), so the override downgrades to conditional.
	advice, err := adv.Recommend(context.Background(), Snapshot{
		RequestedAmount: 9000,
		CollateralValue: 16000,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if advice.ApprovalSuggestion != "conditional" {
		t.Errorf("suggestion = %s, want conditional", advice.ApprovalSuggestion)
	}
	if advice.SuggestedAmount != 8000 {
		t.Errorf("suggestedAmount = %v, want ceiling 8000", advice.SuggestedAmount)
	}

	// 10000 exceeds the 8000 ceiling by 25%, beyond the margin: auto-reject.
	advice, err = adv.Recommend(context.Background(), Snapshot{
		RequestedAmount: 10000,
		CollateralValue: 16000,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if advice.ApprovalSuggestion != "reject" {
		t.Errorf("suggestion = %s, want reject beyond large margin", advice.ApprovalSuggestion)
	}
}

func TestUnderwritingAdvisorModelFailure(t *testing.T) {
	adv := NewUnderwritingAdvisor(&fakeModel{err: errors.New("timeout")}, testLimits, time.Minute, logger.New("development"))
	if _, err := adv.Recommend(context.Background(), Snapshot{RequestedAmount: 5000, CollateralValue: 20000}); err == nil {
		t.Fatal("expected error from failing model")
	}
}
