// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"drivecash_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Loan Application Domain Events
// =============================================================================

// ApplicationSubmitted is published when an application moves from draft to pending.
type ApplicationSubmitted struct {
	BaseEvent
	ApplicationID   uuid.UUID  `json:"applicationId"`
	OwnerUserID     *uuid.UUID `json:"ownerUserId,omitempty"`
	ApplicantEmail  string     `json:"applicantEmail"`
	ApplicantName   string     `json:"applicantName"`
	RequestedAmount float64    `json:"requestedAmount"`
}

func (e ApplicationSubmitted) EventName() string { return "loans.application.submitted" }

// ApplicationApproved is published when an admin approves an application.
type ApplicationApproved struct {
	BaseEvent
	ApplicationID  uuid.UUID  `json:"applicationId"`
	OwnerUserID    *uuid.UUID `json:"ownerUserId,omitempty"`
	ApplicantEmail string     `json:"applicantEmail"`
	ApplicantName  string     `json:"applicantName"`
	ApprovedAmount float64    `json:"approvedAmount"`
	ApprovedBy     uuid.UUID  `json:"approvedBy"`
}

func (e ApplicationApproved) EventName() string { return "loans.application.approved" }

// ApplicationRejected is published when an admin rejects an application.
type ApplicationRejected struct {
	BaseEvent
	ApplicationID  uuid.UUID  `json:"applicationId"`
	OwnerUserID    *uuid.UUID `json:"ownerUserId,omitempty"`
	ApplicantEmail string     `json:"applicantEmail"`
	ApplicantName  string     `json:"applicantName"`
	Reason         string     `json:"reason,omitempty"`
}

func (e ApplicationRejected) EventName() string { return "loans.application.rejected" }

// ApplicationQueryRaised is published when an admin requests more information.
type ApplicationQueryRaised struct {
	BaseEvent
	ApplicationID  uuid.UUID  `json:"applicationId"`
	OwnerUserID    *uuid.UUID `json:"ownerUserId,omitempty"`
	ApplicantEmail string     `json:"applicantEmail"`
	ApplicantName  string     `json:"applicantName"`
	Question       string     `json:"question"`
}

func (e ApplicationQueryRaised) EventName() string { return "loans.application.query_raised" }

// ApplicationQueryResolved is published when the applicant answers an open query.
type ApplicationQueryResolved struct {
	BaseEvent
	ApplicationID uuid.UUID `json:"applicationId"`
	OwnerUserID   uuid.UUID `json:"ownerUserId"`
}

func (e ApplicationQueryResolved) EventName() string { return "loans.application.query_resolved" }

// ApplicationWithdrawn is published when the applicant withdraws.
type ApplicationWithdrawn struct {
	BaseEvent
	ApplicationID  uuid.UUID  `json:"applicationId"`
	OwnerUserID    *uuid.UUID `json:"ownerUserId,omitempty"`
	ApplicantEmail string     `json:"applicantEmail"`
}

func (e ApplicationWithdrawn) EventName() string { return "loans.application.withdrawn" }

// DraftOwnershipResolved is published when anonymous drafts are associated
// with an authenticated user account.
type DraftOwnershipResolved struct {
	BaseEvent
	OwnerUserID    uuid.UUID   `json:"ownerUserId"`
	ApplicationIDs []uuid.UUID `json:"applicationIds"`
	Email          string      `json:"email"`
}

func (e DraftOwnershipResolved) EventName() string { return "loans.draft.ownership_resolved" }

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record's run time has arrived and delivery should be attempted.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }

// DocumentUploaded is published when a document is stored for an application.
type DocumentUploaded struct {
	BaseEvent
	ApplicationID uuid.UUID `json:"applicationId"`
	DocumentID    uuid.UUID `json:"documentId"`
	DocumentType  string    `json:"documentType"`
	FileName      string    `json:"fileName"`
	SizeBytes     int64     `json:"sizeBytes"`
}

func (e DocumentUploaded) EventName() string { return "loans.document.uploaded" }
