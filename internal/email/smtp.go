package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host       string
	port       int
	username   string
	password   string
	fromName   string
	fromEmail  string
	appBaseURL string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
// appBaseURL, when set, is used to build the action links in the messages.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName, appBaseURL string) *SMTPSender {
	return &SMTPSender{
		host:       host,
		port:       port,
		username:   username,
		password:   password,
		fromName:   fromName,
		fromEmail:  fromEmail,
		appBaseURL: appBaseURL,
	}
}

// applicationURL builds the applicant-facing link for an application, or ""
// when no base URL is configured.
func (s *SMTPSender) applicationURL(applicationID string) string {
	if s.appBaseURL == "" {
		return ""
	}
	return strings.TrimRight(s.appBaseURL, "/") + "/applications/" + applicationID
}

func (s *SMTPSender) adminApplicationURL(applicationID string) string {
	if s.appBaseURL == "" {
		return ""
	}
	return strings.TrimRight(s.appBaseURL, "/") + "/admin/applications/" + applicationID
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string, attachments ...Attachment) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	for _, att := range attachments {
		msg.AttachReader(att.FileName, bytes.NewReader(att.Content))
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendApplicationSubmitted(ctx context.Context, toEmail, applicantName, applicationID string, requestedAmount float64) error {
	ref := shortRef(applicationID)
	content, err := renderEmailTemplate("application_submitted.html", applicationSubmittedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Application received",
			Heading:  "We received your application",
			CTALabel: "Track your application",
			CTAURL:   s.applicationURL(applicationID),
		},
		ApplicantName:   applicantName,
		ApplicationRef:  ref,
		AmountFormatted: formatCurrencyUSD(requestedAmount),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectApplicationSubmittedFmt, ref), content)
}

func (s *SMTPSender) SendApplicationApproved(ctx context.Context, toEmail, applicantName, applicationID string, approvedAmount float64) error {
	ref := shortRef(applicationID)
	content, err := renderEmailTemplate("application_approved.html", applicationApprovedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Application approved",
			Heading:  "Your application is approved",
			CTALabel: "View your offer",
			CTAURL:   s.applicationURL(applicationID),
		},
		ApplicantName:   applicantName,
		ApplicationRef:  ref,
		AmountFormatted: formatCurrencyUSD(approvedAmount),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectApplicationApprovedFmt, ref), content)
}

func (s *SMTPSender) SendApplicationRejected(ctx context.Context, toEmail, applicantName, applicationID, reason string) error {
	ref := shortRef(applicationID)
	content, err := renderEmailTemplate("application_rejected.html", applicationRejectedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Application update",
			Heading: "An update on your application",
		},
		ApplicantName:  applicantName,
		ApplicationRef: ref,
		Reason:         reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectApplicationRejectedFmt, ref), content)
}

func (s *SMTPSender) SendQueryRaised(ctx context.Context, toEmail, applicantName, applicationID, question string) error {
	ref := shortRef(applicationID)
	content, err := renderEmailTemplate("query_raised.html", queryRaisedEmailData{
		baseEmailData: baseEmailData{
			Title:    "More information needed",
			Heading:  "We need a little more information",
			CTALabel: "Respond to the question",
			CTAURL:   s.applicationURL(applicationID),
		},
		ApplicantName:  applicantName,
		ApplicationRef: ref,
		Question:       question,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectQueryRaisedFmt, ref), content)
}

func (s *SMTPSender) SendAdminNewApplication(ctx context.Context, toEmail, applicantName, applicationID string, requestedAmount float64) error {
	ref := shortRef(applicationID)
	content, err := renderEmailTemplate("admin_new_application.html", adminNewApplicationEmailData{
		baseEmailData: baseEmailData{
			Title:    "New application",
			Heading:  "A new application is awaiting review",
			CTALabel: "Review application",
			CTAURL:   s.adminApplicationURL(applicationID),
		},
		ApplicantName:   applicantName,
		ApplicationRef:  ref,
		AmountFormatted: formatCurrencyUSD(requestedAmount),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, fmt.Sprintf(subjectAdminNewApplicationFmt, ref), content)
}

var _ Sender = (*SMTPSender)(nil)
