package service

import (
	"context"
	"strings"
	"time"

	"drivecash_backend/internal/events"
	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/platform/apperr"

	"github.com/google/uuid"
)

// DocumentInput describes an uploaded artifact after the bytes landed in
// object storage.
type DocumentInput struct {
	DocumentType string
	Title        string
	FileName     string
	StorageKey   string
	ContentType  string
	SizeBytes    int64
}

// RecordDocument stores document metadata against an application the actor
// controls. Uploads are refused once the application reaches a terminal state.
func (s *Service) RecordDocument(ctx context.Context, actor Actor, applicationID uuid.UUID, input DocumentInput) (domain.Document, error) {
	app, err := s.authorize(ctx, actor, applicationID)
	if err != nil {
		return domain.Document{}, err
	}
	if app.Status.IsTerminal() {
		return domain.Document{}, apperr.Conflict("application is closed").
			WithDetails(map[string]string{"status": string(app.Status)})
	}

	if !domain.IsValidDocumentType(input.DocumentType) {
		return domain.Document{}, apperr.Validation("unknown document type").
			WithDetails(map[string]string{"document_type": input.DocumentType})
	}
	if input.StorageKey == "" || input.FileName == "" {
		return domain.Document{}, apperr.Validation("document is incomplete").
			WithDetails(map[string]string{"file": "file name and storage key are required"})
	}

	doc := domain.Document{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		DocumentType:  input.DocumentType,
		Title:         strings.TrimSpace(input.Title),
		FileName:      input.FileName,
		StorageKey:    input.StorageKey,
		ContentType:   input.ContentType,
		SizeBytes:     input.SizeBytes,
		UploadedAt:    time.Now(),
	}
	if doc.Title == "" {
		doc.Title = doc.FileName
	}

	if err := s.repo.AddDocument(ctx, doc); err != nil {
		return domain.Document{}, s.wrapRepoErr("failed to record document", err)
	}

	// Vehicle photos double as valuation input; keep the key list current.
	if doc.DocumentType == domain.DocumentTypeVehiclePhoto && app.Vehicle != nil {
		vehicle := *app.Vehicle
		vehicle.PhotoKeys = append(vehicle.PhotoKeys, doc.StorageKey)
		if err := s.repo.UpsertVehicle(ctx, app.ID, vehicle); err != nil {
			s.log.DatabaseError("append vehicle photo key", err)
		}
	}

	s.publish(ctx, events.DocumentUploaded{
		BaseEvent:     events.NewBaseEvent(),
		ApplicationID: app.ID,
		DocumentID:    doc.ID,
		DocumentType:  doc.DocumentType,
		FileName:      doc.FileName,
		SizeBytes:     doc.SizeBytes,
	})
	return doc, nil
}

// ListDocuments returns an application's uploaded artifacts.
func (s *Service) ListDocuments(ctx context.Context, actor Actor, applicationID uuid.UUID) ([]domain.Document, error) {
	app, err := s.authorize(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListDocuments(ctx, app.ID)
}

// AddNote records an internal reviewer annotation. Notes are admin-only on
// both ends; applicants never see them.
func (s *Service) AddNote(ctx context.Context, actor Actor, applicationID uuid.UUID, body string) (domain.Note, error) {
	if !actor.IsAdmin || actor.UserID == nil {
		return domain.Note{}, apperr.Forbidden("admin access required")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.Note{}, apperr.Validation("note body is required").
			WithDetails(map[string]string{"body": "must not be empty"})
	}

	app, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		return domain.Note{}, s.wrapRepoErr("failed to load application", err)
	}

	note := domain.Note{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		AuthorID:      actor.UserID,
		Body:          body,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.AddNote(ctx, note); err != nil {
		return domain.Note{}, s.wrapRepoErr("failed to record note", err)
	}
	return note, nil
}

// ListNotes returns reviewer annotations, admin-only.
func (s *Service) ListNotes(ctx context.Context, actor Actor, applicationID uuid.UUID) ([]domain.Note, error) {
	if !actor.IsAdmin {
		return nil, apperr.Forbidden("admin access required")
	}
	if _, err := s.repo.GetByID(ctx, applicationID); err != nil {
		return nil, s.wrapRepoErr("failed to load application", err)
	}
	return s.repo.ListNotes(ctx, applicationID)
}
