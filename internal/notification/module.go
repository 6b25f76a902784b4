// Package notification turns loan lifecycle events into applicant and
// review-team emails. The module subscribes to domain events, records each
// message in the notification outbox, and delivers records when the
// scheduler signals they are due. Domain modules never talk to the email
// provider directly.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"drivecash_backend/internal/email"
	"drivecash_backend/internal/events"
	"drivecash_backend/internal/notification/outbox"
	"drivecash_backend/platform/config"
	"drivecash_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	kindEmail = "email"

	templateApplicationSubmitted = "application_submitted"
	templateApplicationApproved  = "application_approved"
	templateApplicationRejected  = "application_rejected"
	templateQueryRaised          = "query_raised"
	templateAdminNewApplication  = "admin_new_application"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = 30 * time.Second
	outboxRetryMaxDelay        = 10 * time.Minute
)

// emailOutboxPayload is the stored form of a lifecycle email. The template
// decides which optional fields are meaningful.
type emailOutboxPayload struct {
	ToEmail       string  `json:"toEmail"`
	ApplicantName string  `json:"applicantName"`
	ApplicationID string  `json:"applicationId"`
	Amount        float64 `json:"amount,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	Question      string  `json:"question,omitempty"`
}

// Module wires domain events to outbox-backed email delivery.
type Module struct {
	sender email.Sender
	outbox *outbox.Repository
	cfg    config.EmailConfig
	log    *logger.Logger
}

// NewModule creates the notification module. outboxRepo may be nil when no
// scheduler runs; messages are then sent inline on the event handler.
func NewModule(sender email.Sender, outboxRepo *outbox.Repository, cfg config.EmailConfig, log *logger.Logger) *Module {
	return &Module{
		sender: sender,
		outbox: outboxRepo,
		cfg:    cfg,
		log:    log,
	}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ApplicationSubmitted{}.EventName(), m)
	bus.Subscribe(events.ApplicationApproved{}.EventName(), m)
	bus.Subscribe(events.ApplicationRejected{}.EventName(), m)
	bus.Subscribe(events.ApplicationQueryRaised{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)
}

// Handle dispatches events to the appropriate handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ApplicationSubmitted:
		return m.handleApplicationSubmitted(ctx, e)
	case events.ApplicationApproved:
		return m.handleApplicationApproved(ctx, e)
	case events.ApplicationRejected:
		return m.handleApplicationRejected(ctx, e)
	case events.ApplicationQueryRaised:
		return m.handleApplicationQueryRaised(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleApplicationSubmitted(ctx context.Context, e events.ApplicationSubmitted) error {
	if e.ApplicantEmail != "" {
		if err := m.enqueueEmail(ctx, templateApplicationSubmitted, emailOutboxPayload{
			ToEmail:       e.ApplicantEmail,
			ApplicantName: e.ApplicantName,
			ApplicationID: e.ApplicationID.String(),
			Amount:        e.RequestedAmount,
		}); err != nil {
			return err
		}
	}

	adminAddr := m.cfg.GetAdminNotifyAddress()
	if adminAddr == "" {
		return nil
	}
	return m.enqueueEmail(ctx, templateAdminNewApplication, emailOutboxPayload{
		ToEmail:       adminAddr,
		ApplicantName: e.ApplicantName,
		ApplicationID: e.ApplicationID.String(),
		Amount:        e.RequestedAmount,
	})
}

func (m *Module) handleApplicationApproved(ctx context.Context, e events.ApplicationApproved) error {
	if e.ApplicantEmail == "" {
		m.log.Debug("approved application has no applicant email; skipping notification", "applicationId", e.ApplicationID)
		return nil
	}
	return m.enqueueEmail(ctx, templateApplicationApproved, emailOutboxPayload{
		ToEmail:       e.ApplicantEmail,
		ApplicantName: e.ApplicantName,
		ApplicationID: e.ApplicationID.String(),
		Amount:        e.ApprovedAmount,
	})
}

func (m *Module) handleApplicationRejected(ctx context.Context, e events.ApplicationRejected) error {
	if e.ApplicantEmail == "" {
		m.log.Debug("rejected application has no applicant email; skipping notification", "applicationId", e.ApplicationID)
		return nil
	}
	return m.enqueueEmail(ctx, templateApplicationRejected, emailOutboxPayload{
		ToEmail:       e.ApplicantEmail,
		ApplicantName: e.ApplicantName,
		ApplicationID: e.ApplicationID.String(),
		Reason:        e.Reason,
	})
}

func (m *Module) handleApplicationQueryRaised(ctx context.Context, e events.ApplicationQueryRaised) error {
	if e.ApplicantEmail == "" {
		m.log.Debug("queried application has no applicant email; skipping notification", "applicationId", e.ApplicationID)
		return nil
	}
	return m.enqueueEmail(ctx, templateQueryRaised, emailOutboxPayload{
		ToEmail:       e.ApplicantEmail,
		ApplicantName: e.ApplicantName,
		ApplicationID: e.ApplicationID.String(),
		Question:      e.Question,
	})
}

// enqueueEmail records the message in the outbox for the dispatcher to pick
// up. Without an outbox the message is sent inline instead.
func (m *Module) enqueueEmail(ctx context.Context, template string, payload emailOutboxPayload) error {
	if !m.cfg.GetEmailEnabled() || m.sender == nil {
		m.log.Debug("email disabled; dropping notification", "template", template, "applicationId", payload.ApplicationID)
		return nil
	}

	if m.outbox == nil {
		return m.deliver(ctx, template, payload)
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		Kind:     kindEmail,
		Template: template,
		Payload:  payload,
		RunAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	m.log.Info("outbox message enqueued", "outboxId", id.String(), "kind", kindEmail, "template", template, "applicationId", payload.ApplicationID)
	return nil
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; skipping due event", "outboxId", e.OutboxID)
		return nil
	}

	rec, process, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", e.OutboxID, "error", err)
		}
		return err
	}

	if rec.Kind != kindEmail {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	var payload emailOutboxPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if strings.TrimSpace(payload.ToEmail) == "" {
		m.log.Debug("outbox email payload has no recipient; marking succeeded", "outboxId", rec.ID.String())
		_ = m.outbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}

	if deliverErr := m.deliver(ctx, rec.Template, payload); deliverErr != nil {
		if isUnsupportedTemplate(deliverErr) {
			m.markOutboxUnsupported(ctx, rec)
			return nil
		}
		m.handleOutboxDeliveryError(ctx, rec, deliverErr)
		return deliverErr
	}

	_ = m.outbox.MarkSucceeded(ctx, rec.ID)
	m.log.Info("outbox record delivered", "outboxId", rec.ID.String(), "template", rec.Template, "toEmail", payload.ToEmail)
	return nil
}

// deliver renders and sends one message through the configured sender.
func (m *Module) deliver(ctx context.Context, template string, payload emailOutboxPayload) error {
	if m.sender == nil {
		return fmt.Errorf("email sender not configured")
	}

	switch template {
	case templateApplicationSubmitted:
		return m.sender.SendApplicationSubmitted(ctx, payload.ToEmail, payload.ApplicantName, payload.ApplicationID, payload.Amount)
	case templateApplicationApproved:
		return m.sender.SendApplicationApproved(ctx, payload.ToEmail, payload.ApplicantName, payload.ApplicationID, payload.Amount)
	case templateApplicationRejected:
		return m.sender.SendApplicationRejected(ctx, payload.ToEmail, payload.ApplicantName, payload.ApplicationID, payload.Reason)
	case templateQueryRaised:
		return m.sender.SendQueryRaised(ctx, payload.ToEmail, payload.ApplicantName, payload.ApplicationID, payload.Question)
	case templateAdminNewApplication:
		return m.sender.SendAdminNewApplication(ctx, payload.ToEmail, payload.ApplicantName, payload.ApplicationID, payload.Amount)
	default:
		return errUnsupportedTemplate(template)
	}
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded {
		m.log.Debug("outbox record already succeeded; skipping", "outboxId", rec.ID.String())
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := time.Now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"maxAttempts", maxOutboxRetryAttempts,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	msg := fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

type errUnsupportedTemplate string

func (e errUnsupportedTemplate) Error() string {
	return "unsupported email template: " + string(e)
}

func isUnsupportedTemplate(err error) bool {
	_, ok := err.(errUnsupportedTemplate)
	return ok
}

var _ events.Handler = (*Module)(nil)
