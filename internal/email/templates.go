package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type applicationSubmittedEmailData struct {
	baseEmailData
	ApplicantName   string
	ApplicationRef  string
	AmountFormatted string
}

type applicationApprovedEmailData struct {
	baseEmailData
	ApplicantName   string
	ApplicationRef  string
	AmountFormatted string
}

type applicationRejectedEmailData struct {
	baseEmailData
	ApplicantName  string
	ApplicationRef string
	Reason         string
}

type queryRaisedEmailData struct {
	baseEmailData
	ApplicantName  string
	ApplicationRef string
	Question       string
}

type adminNewApplicationEmailData struct {
	baseEmailData
	ApplicantName   string
	ApplicationRef  string
	AmountFormatted string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrencyUSD(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// shortRef trims a UUID to its first block for subject lines.
func shortRef(applicationID string) string {
	if len(applicationID) > 8 {
		return applicationID[:8]
	}
	return applicationID
}
