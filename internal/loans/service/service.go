// Package service implements the loan application lifecycle: draft intake,
// submission orchestration, review decisions and draft ownership resolution.
package service

import (
	"context"
	"errors"
	"time"

	"drivecash_backend/internal/events"
	"drivecash_backend/internal/loans/advisor"
	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/policy"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/platform/apperr"
	"drivecash_backend/platform/logger"
	"drivecash_backend/platform/phone"

	"github.com/google/uuid"
)

// CollateralValuator is the photo-based valuation advisory contract.
type CollateralValuator interface {
	Evaluate(ctx context.Context, photoKeys []string, requestedAmount float64) (*domain.CollateralValuation, error)
}

// UnderwritingRecommender is the underwriting advisory contract.
type UnderwritingRecommender interface {
	Recommend(ctx context.Context, snapshot advisor.Snapshot) (*domain.UnderwritingAdvice, error)
}

// Actor identifies the caller of a transition. Anonymous applicants carry a
// session key instead of a user id.
type Actor struct {
	UserID     *uuid.UUID
	Email      string
	IsAdmin    bool
	SessionKey string
}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool { return a.UserID != nil }

// Service coordinates the application aggregate, the advisors and the policy
// calculator.
type Service struct {
	repo         repository.Repository
	valuation    CollateralValuator
	underwriting UnderwritingRecommender
	limits       policy.Limits
	bus          events.Bus
	log          *logger.Logger
}

// New creates the loans service. Either advisor may be nil when the external
// capability is not configured; submissions then proceed without advice.
func New(repo repository.Repository, valuation CollateralValuator, underwriting UnderwritingRecommender, limits policy.Limits, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:         repo,
		valuation:    valuation,
		underwriting: underwriting,
		limits:       limits,
		bus:          bus,
		log:          log,
	}
}

// Limits exposes the configured policy constants (read-only).
func (s *Service) Limits() policy.Limits { return s.limits }

// CreateDraftInput carries the initial draft fields; everything is optional.
type CreateDraftInput struct {
	Amount                  float64
	TermMonths              int
	ApplicantEstimatedValue *float64
	Personal                *domain.PersonalInfo
	Vehicle                 *domain.VehicleInfo
}

// CreateDraft opens a new application in draft status. Anonymous callers
// receive a freshly issued session key proving draft continuity.
func (s *Service) CreateDraft(ctx context.Context, actor Actor, input CreateDraftInput) (domain.Application, string, error) {
	params := repository.CreateParams{
		Amount:                  input.Amount,
		TermMonths:              input.TermMonths,
		ApplicantEstimatedValue: input.ApplicantEstimatedValue,
	}

	sessionKey := ""
	if actor.Authenticated() {
		params.OwnerUserID = actor.UserID
	} else {
		sessionKey = uuid.NewString()
		params.SessionKey = &sessionKey
	}

	app, err := s.repo.Create(ctx, params)
	if err != nil {
		return domain.Application{}, "", apperr.Wrap(apperr.KindInternal, "failed to create application", err)
	}

	if input.Personal != nil {
		input.Personal.Phone = phone.NormalizeE164(input.Personal.Phone)
		if err := s.repo.UpsertPersonal(ctx, app.ID, *input.Personal); err != nil {
			return domain.Application{}, "", apperr.Wrap(apperr.KindInternal, "failed to save personal info", err)
		}
		app.Personal = input.Personal
	}
	if input.Vehicle != nil {
		if err := s.repo.UpsertVehicle(ctx, app.ID, *input.Vehicle); err != nil {
			return domain.Application{}, "", apperr.Wrap(apperr.KindInternal, "failed to save vehicle info", err)
		}
		app.Vehicle = input.Vehicle
	}

	return app, sessionKey, nil
}

// UpdateDraftInput patches draft fields; nil sections are left untouched.
type UpdateDraftInput struct {
	Core           repository.UpdateCoreParams
	Personal       *domain.PersonalInfo
	Identification *domain.IdentificationInfo
	Financial      *domain.FinancialProfile
	Address        *domain.Address
	Vehicle        *domain.VehicleInfo
}

// UpdateDraft mutates a draft. Non-draft applications refuse applicant edits.
func (s *Service) UpdateDraft(ctx context.Context, actor Actor, id uuid.UUID, input UpdateDraftInput) (domain.Application, error) {
	app, err := s.authorize(ctx, actor, id)
	if err != nil {
		return domain.Application{}, err
	}

	if !app.Status.IsDraft() {
		return domain.Application{}, apperr.BadRequest("application is no longer editable").
			WithDetails(map[string]string{"status": string(app.Status)})
	}

	if input.Core.Signature != nil && *input.Core.Signature != "" && input.Core.SignedAt == nil {
		now := time.Now()
		input.Core.SignedAt = &now
	}
	if err := s.repo.UpdateCore(ctx, id, input.Core); err != nil {
		return domain.Application{}, s.wrapRepoErr("failed to update application", err)
	}

	if input.Personal != nil {
		input.Personal.Phone = phone.NormalizeE164(input.Personal.Phone)
		if err := s.repo.UpsertPersonal(ctx, id, *input.Personal); err != nil {
			return domain.Application{}, s.wrapRepoErr("failed to save personal info", err)
		}
	}
	if input.Identification != nil {
		if err := s.repo.UpsertIdentification(ctx, id, *input.Identification); err != nil {
			return domain.Application{}, s.wrapRepoErr("failed to save identification", err)
		}
	}
	if input.Financial != nil {
		if err := s.repo.UpsertFinancial(ctx, id, *input.Financial); err != nil {
			return domain.Application{}, s.wrapRepoErr("failed to save financial profile", err)
		}
	}
	if input.Address != nil {
		if err := s.repo.UpsertAddress(ctx, id, *input.Address); err != nil {
			return domain.Application{}, s.wrapRepoErr("failed to save address", err)
		}
	}
	if input.Vehicle != nil {
		if err := s.repo.UpsertVehicle(ctx, id, *input.Vehicle); err != nil {
			return domain.Application{}, s.wrapRepoErr("failed to save vehicle info", err)
		}
	}

	return s.repo.GetByID(ctx, id)
}

// Get retrieves an application, ownership-scoped.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (domain.Application, error) {
	return s.authorize(ctx, actor, id)
}

// ListMine returns the authenticated user's applications.
func (s *Service) ListMine(ctx context.Context, actor Actor) ([]domain.Application, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("authentication required")
	}
	return s.repo.ListByOwner(ctx, *actor.UserID)
}

// ListAll returns applications for admin review.
func (s *Service) ListAll(ctx context.Context, actor Actor, params repository.ListParams) ([]domain.Application, int, error) {
	if !actor.IsAdmin {
		return nil, 0, apperr.Forbidden("admin access required")
	}
	return s.repo.List(ctx, params)
}

// Statistics returns per-status counts, scoped to the actor.
func (s *Service) Statistics(ctx context.Context, actor Actor) (domain.StatusCounts, error) {
	if actor.IsAdmin {
		return s.repo.CountByStatus(ctx, nil)
	}
	if !actor.Authenticated() {
		return domain.StatusCounts{}, apperr.Unauthorized("authentication required")
	}
	return s.repo.CountByStatus(ctx, actor.UserID)
}

// authorize loads the application and verifies the actor controls it.
func (s *Service) authorize(ctx context.Context, actor Actor, id uuid.UUID) (domain.Application, error) {
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Application{}, s.wrapRepoErr("failed to load application", err)
	}

	if actor.IsAdmin {
		return app, nil
	}
	if actor.Authenticated() && app.IsOwnedBy(*actor.UserID) {
		return app, nil
	}
	if app.MatchesSessionKey(actor.SessionKey) {
		return app, nil
	}

	// Reveal nothing about applications the actor does not control.
	return domain.Application{}, apperr.NotFound("application not found")
}

func (s *Service) wrapRepoErr(message string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("application not found")
	}
	return apperr.Wrap(apperr.KindInternal, message, err)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func (s *Service) applicantEmail(app domain.Application) string {
	if app.Personal != nil {
		return app.Personal.Email
	}
	return ""
}

func (s *Service) applicantName(app domain.Application) string {
	return app.Personal.FullName()
}
