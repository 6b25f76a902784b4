package notification

import (
	"context"
	"testing"
	"time"

	"drivecash_backend/internal/events"
	"drivecash_backend/platform/logger"

	"github.com/google/uuid"
)

type stubEmailConfig struct {
	enabled   bool
	adminAddr string
}

func (c stubEmailConfig) GetEmailEnabled() bool         { return c.enabled }
func (c stubEmailConfig) GetSMTPHost() string           { return "smtp.example.com" }
func (c stubEmailConfig) GetSMTPPort() int              { return 587 }
func (c stubEmailConfig) GetSMTPUsername() string       { return "" }
func (c stubEmailConfig) GetSMTPPassword() string       { return "" }
func (c stubEmailConfig) GetEmailFromName() string      { return "DriveCash" }
func (c stubEmailConfig) GetEmailFromAddress() string   { return "noreply@example.com" }
func (c stubEmailConfig) GetAdminNotifyAddress() string { return c.adminAddr }

type sentEmail struct {
	method        string
	toEmail       string
	applicantName string
	applicationID string
	amount        float64
	reason        string
	question      string
}

type fakeSender struct {
	sent []sentEmail
	fail error
}

func (s *fakeSender) SendApplicationSubmitted(_ context.Context, toEmail, name, appID string, amount float64) error {
	s.sent = append(s.sent, sentEmail{method: "submitted", toEmail: toEmail, applicantName: name, applicationID: appID, amount: amount})
	return s.fail
}

func (s *fakeSender) SendApplicationApproved(_ context.Context, toEmail, name, appID string, amount float64) error {
	s.sent = append(s.sent, sentEmail{method: "approved", toEmail: toEmail, applicantName: name, applicationID: appID, amount: amount})
	return s.fail
}

func (s *fakeSender) SendApplicationRejected(_ context.Context, toEmail, name, appID, reason string) error {
	s.sent = append(s.sent, sentEmail{method: "rejected", toEmail: toEmail, applicantName: name, applicationID: appID, reason: reason})
	return s.fail
}

func (s *fakeSender) SendQueryRaised(_ context.Context, toEmail, name, appID, question string) error {
	s.sent = append(s.sent, sentEmail{method: "query", toEmail: toEmail, applicantName: name, applicationID: appID, question: question})
	return s.fail
}

func (s *fakeSender) SendAdminNewApplication(_ context.Context, toEmail, name, appID string, amount float64) error {
	s.sent = append(s.sent, sentEmail{method: "admin", toEmail: toEmail, applicantName: name, applicationID: appID, amount: amount})
	return s.fail
}

// Without an outbox the module delivers inline, which lets the dispatch
// logic be exercised against the fake sender directly.
func newInlineModule(sender *fakeSender, adminAddr string) *Module {
	return NewModule(sender, nil, stubEmailConfig{enabled: true, adminAddr: adminAddr}, logger.New("development"))
}

func TestSubmittedNotifiesApplicantAndAdmin(t *testing.T) {
	sender := &fakeSender{}
	m := newInlineModule(sender, "review@example.com")

	appID := uuid.New()
	err := m.Handle(context.Background(), events.ApplicationSubmitted{
		BaseEvent:       events.NewBaseEvent(),
		ApplicationID:   appID,
		ApplicantEmail:  "jordan@example.com",
		ApplicantName:   "Jordan Li",
		RequestedAmount: 12000,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent = %d emails, want 2", len(sender.sent))
	}
	if sender.sent[0].method != "submitted" || sender.sent[0].toEmail != "jordan@example.com" {
		t.Errorf("first email = %+v, want submitted to applicant", sender.sent[0])
	}
	if sender.sent[0].amount != 12000 || sender.sent[0].applicationID != appID.String() {
		t.Errorf("applicant email payload = %+v", sender.sent[0])
	}
	if sender.sent[1].method != "admin" || sender.sent[1].toEmail != "review@example.com" {
		t.Errorf("second email = %+v, want admin notification", sender.sent[1])
	}
}

func TestSubmittedWithoutAdminAddressSkipsAdminEmail(t *testing.T) {
	sender := &fakeSender{}
	m := newInlineModule(sender, "")

	err := m.Handle(context.Background(), events.ApplicationSubmitted{
		BaseEvent:      events.NewBaseEvent(),
		ApplicationID:  uuid.New(),
		ApplicantEmail: "jordan@example.com",
		ApplicantName:  "Jordan Li",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d emails, want 1", len(sender.sent))
	}
}

func TestLifecycleEventsReachTheApplicant(t *testing.T) {
	appID := uuid.New()
	tests := []struct {
		name       string
		event      events.Event
		wantMethod string
		check      func(t *testing.T, e sentEmail)
	}{
		{
			name: "approved carries the approved amount",
			event: events.ApplicationApproved{
				BaseEvent:      events.NewBaseEvent(),
				ApplicationID:  appID,
				ApplicantEmail: "jordan@example.com",
				ApplicantName:  "Jordan Li",
				ApprovedAmount: 9500,
			},
			wantMethod: "approved",
			check: func(t *testing.T, e sentEmail) {
				if e.amount != 9500 {
					t.Errorf("amount = %v, want 9500", e.amount)
				}
			},
		},
		{
			name: "rejected carries the reason",
			event: events.ApplicationRejected{
				BaseEvent:      events.NewBaseEvent(),
				ApplicationID:  appID,
				ApplicantEmail: "jordan@example.com",
				ApplicantName:  "Jordan Li",
				Reason:         "insufficient collateral",
			},
			wantMethod: "rejected",
			check: func(t *testing.T, e sentEmail) {
				if e.reason != "insufficient collateral" {
					t.Errorf("reason = %q", e.reason)
				}
			},
		},
		{
			name: "query carries the question",
			event: events.ApplicationQueryRaised{
				BaseEvent:      events.NewBaseEvent(),
				ApplicationID:  appID,
				ApplicantEmail: "jordan@example.com",
				ApplicantName:  "Jordan Li",
				Question:       "please provide proof of income",
			},
			wantMethod: "query",
			check: func(t *testing.T, e sentEmail) {
				if e.question != "please provide proof of income" {
					t.Errorf("question = %q", e.question)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			m := newInlineModule(sender, "")

			if err := m.Handle(context.Background(), tt.event); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if len(sender.sent) != 1 {
				t.Fatalf("sent = %d emails, want 1", len(sender.sent))
			}
			if sender.sent[0].method != tt.wantMethod {
				t.Errorf("method = %s, want %s", sender.sent[0].method, tt.wantMethod)
			}
			tt.check(t, sender.sent[0])
		})
	}
}

func TestMissingApplicantEmailSkipsDelivery(t *testing.T) {
	sender := &fakeSender{}
	m := newInlineModule(sender, "")

	err := m.Handle(context.Background(), events.ApplicationApproved{
		BaseEvent:     events.NewBaseEvent(),
		ApplicationID: uuid.New(),
		ApplicantName: "Jordan Li",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %d emails, want 0", len(sender.sent))
	}
}

func TestDisabledEmailDropsNotifications(t *testing.T) {
	sender := &fakeSender{}
	m := NewModule(sender, nil, stubEmailConfig{enabled: false}, logger.New("development"))

	err := m.Handle(context.Background(), events.ApplicationApproved{
		BaseEvent:      events.NewBaseEvent(),
		ApplicationID:  uuid.New(),
		ApplicantEmail: "jordan@example.com",
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %d emails, want 0 when disabled", len(sender.sent))
	}
}

func TestUnrelatedEventsAreIgnored(t *testing.T) {
	sender := &fakeSender{}
	m := newInlineModule(sender, "review@example.com")

	err := m.Handle(context.Background(), events.ApplicationWithdrawn{
		BaseEvent:     events.NewBaseEvent(),
		ApplicationID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent = %d emails, want 0", len(sender.sent))
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 30 * time.Second},
		{attempt: 1, want: 30 * time.Second},
		{attempt: 2, want: time.Minute},
		{attempt: 3, want: 2 * time.Minute},
		{attempt: 5, want: 8 * time.Minute},
		{attempt: 6, want: 10 * time.Minute},
		{attempt: 20, want: 10 * time.Minute},
	}
	for _, tt := range tests {
		if got := computeOutboxRetryDelay(tt.attempt); got != tt.want {
			t.Errorf("computeOutboxRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDeliverRejectsUnknownTemplate(t *testing.T) {
	m := newInlineModule(&fakeSender{}, "")

	err := m.deliver(context.Background(), "no_such_template", emailOutboxPayload{ToEmail: "jordan@example.com"})
	if err == nil {
		t.Fatal("expected error for unknown template")
	}
	if !isUnsupportedTemplate(err) {
		t.Errorf("error = %v, want unsupported template", err)
	}
}
