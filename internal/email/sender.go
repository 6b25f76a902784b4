// Package email delivers lifecycle notifications to applicants and the
// review team over SMTP.
package email

import "context"

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	FileName string
	Content  []byte
}

// Sender delivers loan lifecycle emails. Implementations render the embedded
// HTML templates and hand the result to a mail transport.
type Sender interface {
	// SendApplicationSubmitted confirms receipt to the applicant.
	SendApplicationSubmitted(ctx context.Context, toEmail, applicantName, applicationID string, requestedAmount float64) error

	// SendApplicationApproved tells the applicant the approved amount.
	SendApplicationApproved(ctx context.Context, toEmail, applicantName, applicationID string, approvedAmount float64) error

	// SendApplicationRejected tells the applicant the outcome, with the
	// reviewer's reason when one was given.
	SendApplicationRejected(ctx context.Context, toEmail, applicantName, applicationID, reason string) error

	// SendQueryRaised asks the applicant for more information.
	SendQueryRaised(ctx context.Context, toEmail, applicantName, applicationID, question string) error

	// SendAdminNewApplication notifies the review team of a new submission.
	SendAdminNewApplication(ctx context.Context, toEmail, applicantName, applicationID string, requestedAmount float64) error
}
