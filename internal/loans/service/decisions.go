package service

import (
	"context"
	"strings"
	"time"

	"drivecash_backend/internal/events"
	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/platform/apperr"

	"github.com/google/uuid"
)

// ApproveInput carries the admin's approval decision.
type ApproveInput struct {
	ApprovedAmount float64
	Notes          string
}

// Approve moves a pending application to approved. The approved amount is
// checked against the lending policy using the best collateral value on file;
// a violation blocks the decision with the full policy context attached.
func (s *Service) Approve(ctx context.Context, actor Actor, id uuid.UUID, input ApproveInput) (domain.Application, error) {
	app, err := s.requireAdmin(ctx, actor, id)
	if err != nil {
		return domain.Application{}, err
	}
	if input.ApprovedAmount <= 0 {
		return domain.Application{}, apperr.Validation("approved amount must be positive").
			WithDetails(map[string]string{"approved_amount": "must be greater than zero"})
	}

	if violation := s.limits.Check(input.ApprovedAmount, app.CollateralValue()); violation != nil {
		return domain.Application{}, apperr.PolicyViolation("approved amount exceeds lending policy").
			WithDetails(violation)
	}

	now := time.Now()
	notes := strings.TrimSpace(input.Notes)
	params := repository.TransitionParams{
		From:           domain.StatusPending,
		To:             domain.StatusApproved,
		ApprovedAmount: &input.ApprovedAmount,
		ApprovedBy:     actor.UserID,
		ApprovedAt:     &now,
	}
	if notes != "" {
		params.ApprovalNotes = &notes
	}

	final, err := s.decide(ctx, actor, app, params)
	if err != nil {
		return domain.Application{}, err
	}

	s.publish(ctx, events.ApplicationApproved{
		BaseEvent:      events.NewBaseEvent(),
		ApplicationID:  final.ID,
		OwnerUserID:    final.OwnerUserID,
		ApplicantEmail: s.applicantEmail(final),
		ApplicantName:  s.applicantName(final),
		ApprovedAmount: input.ApprovedAmount,
		ApprovedBy:     *actor.UserID,
	})
	return final, nil
}

// Reject moves a pending application to rejected, clearing any approved
// amount a prior reviewer may have entered.
func (s *Service) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (domain.Application, error) {
	app, err := s.requireAdmin(ctx, actor, id)
	if err != nil {
		return domain.Application{}, err
	}

	now := time.Now()
	reason = strings.TrimSpace(reason)
	params := repository.TransitionParams{
		From:          domain.StatusPending,
		To:            domain.StatusRejected,
		ApprovedBy:    actor.UserID,
		ApprovedAt:    &now,
		ClearApproved: true,
	}
	if reason != "" {
		params.ApprovalNotes = &reason
	}

	final, err := s.decide(ctx, actor, app, params)
	if err != nil {
		return domain.Application{}, err
	}

	s.publish(ctx, events.ApplicationRejected{
		BaseEvent:      events.NewBaseEvent(),
		ApplicationID:  final.ID,
		OwnerUserID:    final.OwnerUserID,
		ApplicantEmail: s.applicantEmail(final),
		ApplicantName:  s.applicantName(final),
		Reason:         reason,
	})
	return final, nil
}

// RaiseQuery moves a pending application to query, recording the reviewer's
// question as an internal note.
func (s *Service) RaiseQuery(ctx context.Context, actor Actor, id uuid.UUID, question string) (domain.Application, error) {
	app, err := s.requireAdmin(ctx, actor, id)
	if err != nil {
		return domain.Application{}, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Application{}, apperr.Validation("question is required").
			WithDetails(map[string]string{"question": "must not be empty"})
	}

	params := repository.TransitionParams{
		From: domain.StatusPending,
		To:   domain.StatusQuery,
	}
	final, err := s.decide(ctx, actor, app, params)
	if err != nil {
		return domain.Application{}, err
	}

	note := domain.Note{
		ID:            uuid.New(),
		ApplicationID: final.ID,
		AuthorID:      actor.UserID,
		Body:          question,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		s.log.DatabaseError("record query note", err)
	}

	s.publish(ctx, events.ApplicationQueryRaised{
		BaseEvent:      events.NewBaseEvent(),
		ApplicationID:  final.ID,
		OwnerUserID:    final.OwnerUserID,
		ApplicantEmail: s.applicantEmail(final),
		ApplicantName:  s.applicantName(final),
		Question:       question,
	})
	return final, nil
}

// ResolveQuery returns a queried application to the review queue. Only the
// owner may answer; admins use the decision endpoints instead.
func (s *Service) ResolveQuery(ctx context.Context, actor Actor, id uuid.UUID) (domain.Application, error) {
	app, err := s.authorize(ctx, actor, id)
	if err != nil {
		return domain.Application{}, err
	}
	isOwner := actor.Authenticated() && app.IsOwnedBy(*actor.UserID)
	if !isOwner && !app.MatchesSessionKey(actor.SessionKey) {
		return domain.Application{}, apperr.Forbidden("only the applicant can resolve a query")
	}
	if app.Status != domain.StatusQuery {
		return domain.Application{}, apperr.Conflict("application has no open query").
			WithDetails(map[string]string{"status": string(app.Status)})
	}

	params := repository.TransitionParams{
		From: domain.StatusQuery,
		To:   domain.StatusPending,
	}
	if err := s.transitionWithRetry(ctx, app.ID, params); err != nil {
		return domain.Application{}, err
	}

	final, err := s.repo.GetByID(ctx, app.ID)
	if err != nil {
		return domain.Application{}, s.wrapRepoErr("failed to reload application", err)
	}

	s.log.ApplicationTransition(app.ID.String(), string(domain.StatusQuery), string(domain.StatusPending), actorLabel(actor))
	if final.OwnerUserID != nil {
		s.publish(ctx, events.ApplicationQueryResolved{
			BaseEvent:     events.NewBaseEvent(),
			ApplicationID: final.ID,
			OwnerUserID:   *final.OwnerUserID,
		})
	}
	return final, nil
}

// Withdraw lets the applicant pull a draft or pending application out of the
// pipeline. Withdrawn is terminal. Only the applicant may withdraw; admins
// who are not the owner use reject instead.
func (s *Service) Withdraw(ctx context.Context, actor Actor, id uuid.UUID) (domain.Application, error) {
	app, err := s.authorize(ctx, actor, id)
	if err != nil {
		return domain.Application{}, err
	}
	isOwner := actor.Authenticated() && app.IsOwnedBy(*actor.UserID)
	if !isOwner && !app.MatchesSessionKey(actor.SessionKey) {
		return domain.Application{}, apperr.Forbidden("only the applicant can withdraw an application")
	}

	if !app.Status.CanTransition(domain.StatusWithdrawn) {
		return domain.Application{}, apperr.Conflict("application can no longer be withdrawn").
			WithDetails(map[string]string{"status": string(app.Status)})
	}

	params := repository.TransitionParams{
		From: app.Status,
		To:   domain.StatusWithdrawn,
	}
	if err := s.transitionWithRetry(ctx, app.ID, params); err != nil {
		return domain.Application{}, err
	}

	final, err := s.repo.GetByID(ctx, app.ID)
	if err != nil {
		return domain.Application{}, s.wrapRepoErr("failed to reload application", err)
	}

	s.log.ApplicationTransition(app.ID.String(), string(app.Status), string(domain.StatusWithdrawn), actorLabel(actor))
	s.publish(ctx, events.ApplicationWithdrawn{
		BaseEvent:      events.NewBaseEvent(),
		ApplicationID:  final.ID,
		OwnerUserID:    final.OwnerUserID,
		ApplicantEmail: s.applicantEmail(final),
	})
	return final, nil
}

// DeleteDraft removes an unsubmitted draft entirely.
func (s *Service) DeleteDraft(ctx context.Context, actor Actor, id uuid.UUID) error {
	app, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}
	if !app.Status.IsDraft() {
		return apperr.Conflict("only drafts can be deleted").
			WithDetails(map[string]string{"status": string(app.Status)})
	}
	if err := s.repo.DeleteDraft(ctx, id); err != nil {
		return s.wrapRepoErr("failed to delete draft", err)
	}
	return nil
}

// requireAdmin loads the application for a reviewer decision and verifies it
// is awaiting review.
func (s *Service) requireAdmin(ctx context.Context, actor Actor, id uuid.UUID) (domain.Application, error) {
	if !actor.IsAdmin || actor.UserID == nil {
		return domain.Application{}, apperr.Forbidden("admin access required")
	}
	app, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Application{}, s.wrapRepoErr("failed to load application", err)
	}
	if app.Status != domain.StatusPending {
		return domain.Application{}, apperr.Conflict("application is not awaiting review").
			WithDetails(map[string]string{"status": string(app.Status)})
	}
	return app, nil
}

// decide runs a reviewer transition and reloads the result.
func (s *Service) decide(ctx context.Context, actor Actor, app domain.Application, params repository.TransitionParams) (domain.Application, error) {
	if err := s.transitionWithRetry(ctx, app.ID, params); err != nil {
		return domain.Application{}, err
	}
	final, err := s.repo.GetByID(ctx, app.ID)
	if err != nil {
		return domain.Application{}, s.wrapRepoErr("failed to reload application", err)
	}
	s.log.ApplicationTransition(app.ID.String(), string(params.From), string(params.To), actorLabel(actor))
	return final, nil
}
