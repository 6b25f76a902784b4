package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/policy"
	"drivecash_backend/platform/logger"
)

// ErrNoAdvice signals that no advisory result is available. Callers log it
// and proceed; the application is flagged for manual review instead.
var ErrNoAdvice = errors.New("no advisory result available")

// Snapshot is the normalized application view handed to the underwriting
// advisory. It is assembled outside any row lock.
type Snapshot struct {
	RequestedAmount  float64
	TermMonths       int
	CollateralValue  float64
	CollateralSource string // ai_valuation, applicant_estimate, none
	EmploymentStatus string
	AnnualIncome     float64
	VehicleMake      string
	VehicleModel     string
	VehicleYear      int
	Condition        string
	DetectedIssues   []string
}

// UnderwritingAdvisor produces a structured recommendation for a submitted
// application. The policy calculator runs before the external call; an
// out-of-policy request overrides whatever the model suggests.
type UnderwritingAdvisor struct {
	model   Model
	limits  policy.Limits
	timeout time.Duration
	log     *logger.Logger
}

// NewUnderwritingAdvisor wires the underwriting advisory.
func NewUnderwritingAdvisor(model Model, limits policy.Limits, timeout time.Duration, log *logger.Logger) *UnderwritingAdvisor {
	return &UnderwritingAdvisor{model: model, limits: limits, timeout: timeout, log: log}
}

type underwritingResponse struct {
	RiskTier           string  `json:"risk_tier"`
	ApprovalSuggestion string  `json:"approval_suggestion"`
	SuggestedAmount    float64 `json:"suggested_amount"`
	Rationale          string  `json:"rationale"`
	Confidence         string  `json:"confidence"`
}

// Recommend calls the reasoning capability and applies the policy override.
func (a *UnderwritingAdvisor) Recommend(ctx context.Context, snapshot Snapshot) (*domain.UnderwritingAdvice, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	maxEligible := a.limits.MaxEligibleAmount(snapshot.CollateralValue)
	ltv := a.limits.LTVRatio(snapshot.RequestedAmount, snapshot.CollateralValue)

	prompt := fmt.Sprintf(underwritingPromptTemplate,
		snapshot.RequestedAmount, snapshot.TermMonths,
		snapshot.CollateralValue, snapshot.CollateralSource,
		ltv, maxEligible,
		snapshot.EmploymentStatus, snapshot.AnnualIncome,
		snapshot.VehicleYear, snapshot.VehicleMake, snapshot.VehicleModel,
		snapshot.Condition, strings.Join(snapshot.DetectedIssues, "; "),
	)

	raw, err := a.model.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed underwritingResponse
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &parsed); err != nil {
		return nil, err
	}

	advice := &domain.UnderwritingAdvice{
		RiskTier:           strings.ToLower(parsed.RiskTier),
		ApprovalSuggestion: strings.ToLower(parsed.ApprovalSuggestion),
		SuggestedAmount:    parsed.SuggestedAmount,
		Rationale:          parsed.Rationale,
		Confidence:         strings.ToLower(parsed.Confidence),
		GeneratedAt:        time.Now(),
	}

	// Policy override: an out-of-policy request can never receive an approve
	// suggestion, and the suggested amount is forced down to the ceiling.
	if !a.limits.WithinLimits(snapshot.RequestedAmount, snapshot.CollateralValue) {
		if a.limits.ExceedsByLargeMargin(snapshot.RequestedAmount, snapshot.CollateralValue) {
			advice.ApprovalSuggestion = "reject"
		} else {
			advice.ApprovalSuggestion = "conditional"
		}
		advice.SuggestedAmount = maxEligible
	} else if advice.SuggestedAmount > maxEligible {
		advice.SuggestedAmount = maxEligible
	}

	return advice, nil
}
