package service

import (
	"context"
	"time"

	"drivecash_backend/internal/events"
	"drivecash_backend/internal/loans/advisor"
	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SubmissionResult is the submit payload: the persisted application plus the
// advisory summaries that were available in time.
type SubmissionResult struct {
	Application     domain.Application
	Valuation       *domain.CollateralValuation
	Advice          *domain.UnderwritingAdvice
	ValueComparison *domain.ValueComparison
}

// Submit performs the draft-to-pending transition: collect-all validation,
// both advisories (bounded, outside any row lock), then a compare-and-swap
// status flip retried once. Advisory failure degrades the result; only
// validation failure blocks submission.
func (s *Service) Submit(ctx context.Context, actor Actor, id uuid.UUID) (SubmissionResult, error) {
	app, err := s.authorize(ctx, actor, id)
	if err != nil {
		return SubmissionResult{}, err
	}

	if app.Status != domain.StatusDraft {
		return SubmissionResult{}, apperr.Conflict("application has already been submitted").
			WithDetails(map[string]string{"status": string(app.Status)})
	}

	if violations := validateForSubmission(app); len(violations) > 0 {
		return SubmissionResult{}, apperr.Validation("application is incomplete").WithDetails(violations)
	}

	valuation, advice := s.runAdvisors(ctx, app)

	// Persist advisory output before the status flip; a CAS loss leaves the
	// application in draft with refreshed (idempotent) advisory data only.
	if valuation != nil {
		if err := s.repo.SaveValuation(ctx, app.ID, *valuation); err != nil {
			s.log.DatabaseError("save valuation", err)
			valuation = nil
		} else {
			app.Valuation = valuation
		}
	}
	if advice != nil {
		if err := s.repo.SaveUnderwritingAdvice(ctx, app.ID, *advice); err != nil {
			s.log.DatabaseError("save underwriting advice", err)
			advice = nil
		} else {
			app.UnderwritingAdvice = advice
		}
	}

	now := time.Now()
	params := repository.TransitionParams{
		From:        domain.StatusDraft,
		To:          domain.StatusPending,
		SubmittedAt: &now,
	}
	// An authenticated submitter claims an anonymous draft at submission time.
	if actor.Authenticated() && app.OwnerUserID == nil {
		params.OwnerUserID = actor.UserID
		params.ClearSession = true
	}

	if err := s.transitionWithRetry(ctx, app.ID, params); err != nil {
		return SubmissionResult{}, err
	}

	final, err := s.repo.GetByID(ctx, app.ID)
	if err != nil {
		return SubmissionResult{}, s.wrapRepoErr("failed to reload application", err)
	}

	s.log.ApplicationTransition(app.ID.String(), string(domain.StatusDraft), string(domain.StatusPending), actorLabel(actor))
	s.publish(ctx, events.ApplicationSubmitted{
		BaseEvent:       events.NewBaseEvent(),
		ApplicationID:   final.ID,
		OwnerUserID:     final.OwnerUserID,
		ApplicantEmail:  s.applicantEmail(final),
		ApplicantName:   s.applicantName(final),
		RequestedAmount: final.Amount,
	})

	result := SubmissionResult{
		Application: final,
		Valuation:   final.Valuation,
		Advice:      final.UnderwritingAdvice,
	}
	if final.Valuation != nil && final.ApplicantEstimatedValue != nil {
		result.ValueComparison = domain.CompareValues(*final.ApplicantEstimatedValue, final.Valuation.EstimatedValueAvg)
	}
	return result, nil
}

// runAdvisors invokes both advisories concurrently, each under its own
// timeout. Failures are logged as manual-review flags and swallowed.
func (s *Service) runAdvisors(ctx context.Context, app domain.Application) (*domain.CollateralValuation, *domain.UnderwritingAdvice) {
	var valuation *domain.CollateralValuation
	var advice *domain.UnderwritingAdvice

	var photoKeys []string
	if app.Vehicle != nil {
		photoKeys = app.Vehicle.PhotoKeys
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.valuation != nil && len(photoKeys) > 0 {
		g.Go(func() error {
			v, err := s.valuation.Evaluate(gctx, photoKeys, app.Amount)
			if err != nil {
				s.log.AdvisoryFailure(app.ID.String(), "collateral_valuation", err)
				return nil
			}
			valuation = v
			return nil
		})
	}

	// The underwriting snapshot uses the applicant estimate when no AI
	// valuation exists yet; when the valuation call above succeeds its
	// result is folded in afterwards for the persisted advice.
	if s.underwriting != nil {
		g.Go(func() error {
			snapshot := s.buildSnapshot(app, nil)
			a, err := s.underwriting.Recommend(gctx, snapshot)
			if err != nil {
				s.log.AdvisoryFailure(app.ID.String(), "underwriting", err)
				return nil
			}
			advice = a
			return nil
		})
	}

	_ = g.Wait()

	// Re-run the deterministic policy override against the fresher collateral
	// value when the valuation changed the picture.
	if advice != nil && valuation != nil {
		collateral := valuation.EstimatedValueAvg
		if !s.limits.WithinLimits(app.Amount, collateral) {
			if s.limits.ExceedsByLargeMargin(app.Amount, collateral) {
				advice.ApprovalSuggestion = "reject"
			} else if advice.ApprovalSuggestion == "approve" {
				advice.ApprovalSuggestion = "conditional"
			}
			advice.SuggestedAmount = s.limits.MaxEligibleAmount(collateral)
		}
	}

	return valuation, advice
}

func (s *Service) buildSnapshot(app domain.Application, valuation *domain.CollateralValuation) advisor.Snapshot {
	snapshot := advisor.Snapshot{
		RequestedAmount:  app.Amount,
		TermMonths:       app.TermMonths,
		CollateralSource: "none",
	}

	if valuation != nil {
		snapshot.CollateralValue = valuation.EstimatedValueAvg
		snapshot.CollateralSource = "ai_valuation"
		snapshot.Condition = valuation.Condition
		snapshot.DetectedIssues = valuation.DetectedIssues
	} else if app.ApplicantEstimatedValue != nil && *app.ApplicantEstimatedValue > 0 {
		snapshot.CollateralValue = *app.ApplicantEstimatedValue
		snapshot.CollateralSource = "applicant_estimate"
	}

	if app.Financial != nil {
		snapshot.EmploymentStatus = app.Financial.EmploymentStatus
		if app.Financial.AnnualIncome != nil {
			snapshot.AnnualIncome = *app.Financial.AnnualIncome
		} else if app.Financial.GrossMonthlyIncome != nil {
			snapshot.AnnualIncome = *app.Financial.GrossMonthlyIncome * 12
		}
	}
	if app.Vehicle != nil {
		snapshot.VehicleMake = app.Vehicle.Make
		snapshot.VehicleModel = app.Vehicle.Model
		snapshot.VehicleYear = app.Vehicle.Year
	}

	return snapshot
}

// transitionWithRetry runs the compare-and-swap transition, retrying exactly
// once when the swap is lost while the stored status still permits it.
func (s *Service) transitionWithRetry(ctx context.Context, id uuid.UUID, params repository.TransitionParams) error {
	for attempt := 0; attempt < 2; attempt++ {
		applied, err := s.repo.TransitionStatus(ctx, id, params)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "failed to update application status", err)
		}
		if applied {
			return nil
		}

		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return s.wrapRepoErr("failed to reload application", err)
		}
		if current.Status != params.From {
			return apperr.Conflict("application state changed concurrently").
				WithDetails(map[string]string{"status": string(current.Status)})
		}
	}
	return apperr.Conflict("application state changed concurrently")
}

func actorLabel(actor Actor) string {
	switch {
	case actor.IsAdmin:
		return "admin"
	case actor.Authenticated():
		return "owner"
	default:
		return "anonymous"
	}
}
