package service

import (
	"context"
	"strings"

	"drivecash_backend/internal/events"
	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/platform/apperr"

	"github.com/google/uuid"
)

// ResolveDraftOwnership assigns every ownerless application whose recorded
// email matches the authenticated user to that user. Called after login or
// registration; repeated calls are no-ops.
func (s *Service) ResolveDraftOwnership(ctx context.Context, actor Actor) ([]uuid.UUID, error) {
	if !actor.Authenticated() {
		return nil, apperr.Unauthorized("authentication required")
	}
	if actor.Email == "" {
		return nil, apperr.BadRequest("account has no email on file")
	}

	claimed, err := s.repo.ClaimDrafts(ctx, *actor.UserID, actor.Email)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to resolve draft ownership", err)
	}
	if len(claimed) == 0 {
		return []uuid.UUID{}, nil
	}

	s.publish(ctx, events.DraftOwnershipResolved{
		BaseEvent:      events.NewBaseEvent(),
		OwnerUserID:    *actor.UserID,
		ApplicationIDs: claimed,
		Email:          actor.Email,
	})
	return claimed, nil
}

// ClaimDraft attaches one specific anonymous draft to the authenticated
// user. A matching session key proves same-device continuity; failing that,
// a recorded personal-info email matching the account is accepted as proof,
// so applicants who started on another device can still pick up their draft.
func (s *Service) ClaimDraft(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.Authenticated() {
		return apperr.Unauthorized("authentication required")
	}

	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.wrapRepoErr("failed to load application", err)
	}

	if app.OwnerUserID != nil {
		if app.IsOwnedBy(*actor.UserID) {
			return nil // already theirs
		}
		return apperr.Forbidden("application belongs to another account")
	}
	if !app.MatchesSessionKey(actor.SessionKey) && !matchesEmail(app, actor.Email) {
		return apperr.NotFound("application not found")
	}

	params := repository.TransitionParams{
		From:         app.Status,
		To:           app.Status,
		OwnerUserID:  actor.UserID,
		ClearSession: true,
	}
	if err := s.transitionWithRetry(ctx, id, params); err != nil {
		return err
	}

	// Sweep any other ownerless applications recorded under the same email.
	if app.Personal != nil && app.Personal.Email != "" {
		if _, err := s.repo.ClaimDrafts(ctx, *actor.UserID, app.Personal.Email); err != nil {
			s.log.DatabaseError("claim sibling drafts", err)
		}
	}

	s.publish(ctx, events.DraftOwnershipResolved{
		BaseEvent:      events.NewBaseEvent(),
		OwnerUserID:    *actor.UserID,
		ApplicationIDs: []uuid.UUID{id},
		Email:          actor.Email,
	})
	return nil
}

// matchesEmail reports whether the application's recorded personal-info
// email equals the given address, ignoring case.
func matchesEmail(app domain.Application, email string) bool {
	if email == "" || app.Personal == nil {
		return false
	}
	return strings.EqualFold(app.Personal.Email, email)
}
