package repository

import (
	"context"
	"time"

	"drivecash_backend/internal/loans/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// ApplicationReader provides read-only access to applications.
type ApplicationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Application, error)
	ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]domain.Application, error)
	List(ctx context.Context, params ListParams) ([]domain.Application, int, error)
	CountByStatus(ctx context.Context, ownerUserID *uuid.UUID) (domain.StatusCounts, error)
}

// ApplicationWriter provides draft creation and mutation.
type ApplicationWriter interface {
	Create(ctx context.Context, params CreateParams) (domain.Application, error)
	UpdateCore(ctx context.Context, id uuid.UUID, params UpdateCoreParams) error
	UpsertPersonal(ctx context.Context, id uuid.UUID, info domain.PersonalInfo) error
	UpsertIdentification(ctx context.Context, id uuid.UUID, info domain.IdentificationInfo) error
	UpsertFinancial(ctx context.Context, id uuid.UUID, profile domain.FinancialProfile) error
	UpsertAddress(ctx context.Context, id uuid.UUID, addr domain.Address) error
	UpsertVehicle(ctx context.Context, id uuid.UUID, vehicle domain.VehicleInfo) error
	DeleteDraft(ctx context.Context, id uuid.UUID) error
}

// StatusWriter performs the compare-and-swap status transitions. The update
// only applies when the stored status still equals From; Applied reports
// whether the swap won.
type StatusWriter interface {
	TransitionStatus(ctx context.Context, id uuid.UUID, params TransitionParams) (bool, error)
}

// AdvisoryWriter persists advisory results against an application.
type AdvisoryWriter interface {
	SaveValuation(ctx context.Context, applicationID uuid.UUID, v domain.CollateralValuation) error
	SaveUnderwritingAdvice(ctx context.Context, applicationID uuid.UUID, advice domain.UnderwritingAdvice) error
}

// OwnershipWriter resolves anonymous drafts to authenticated owners.
type OwnershipWriter interface {
	// ClaimDrafts assigns every ownerless application whose personal-info
	// email matches (case-insensitively) to the given user, clearing the
	// session key. Returns the ids claimed by this call; already-owned
	// applications are untouched, making repeated calls no-ops.
	ClaimDrafts(ctx context.Context, ownerUserID uuid.UUID, email string) ([]uuid.UUID, error)
}

// DocumentStore records uploaded artifact metadata.
type DocumentStore interface {
	AddDocument(ctx context.Context, doc domain.Document) error
	ListDocuments(ctx context.Context, applicationID uuid.UUID) ([]domain.Document, error)
}

// NoteStore records internal annotations.
type NoteStore interface {
	AddNote(ctx context.Context, note domain.Note) error
	ListNotes(ctx context.Context, applicationID uuid.UUID) ([]domain.Note, error)
}

// Repository is the full persistence surface consumed by the loans service.
type Repository interface {
	ApplicationReader
	ApplicationWriter
	StatusWriter
	AdvisoryWriter
	OwnershipWriter
	DocumentStore
	NoteStore
}

// CreateParams creates a new draft. Exactly one of OwnerUserID and SessionKey
// must be set.
type CreateParams struct {
	OwnerUserID             *uuid.UUID
	SessionKey              *string
	Amount                  float64
	TermMonths              int
	ApplicantEstimatedValue *float64
}

// UpdateCoreParams patches the aggregate's own fields. Nil pointers leave the
// stored value unchanged.
type UpdateCoreParams struct {
	Amount                  *float64
	TermMonths              *int
	ApplicantEstimatedValue *float64
	AcceptTerms             *bool
	Signature               *string
	SignedAt                *time.Time
}

// TransitionParams is a compare-and-swap status update plus the fields the
// target state requires.
type TransitionParams struct {
	From Status
	To   Status

	OwnerUserID    *uuid.UUID // assigned on submit when the draft was anonymous
	ClearSession   bool
	SubmittedAt    *time.Time
	ApprovedAmount *float64
	ApprovedBy     *uuid.UUID
	ApprovedAt     *time.Time
	ApprovalNotes  *string
	ClearApproved  bool // reject clears any previously entered approved amount
}

// Status aliases the domain status for parameter structs.
type Status = domain.Status

// ListParams filters admin application listings.
type ListParams struct {
	Status *domain.Status
	Limit  int
	Offset int
}
