package email

import (
	"strings"
	"testing"
)

func TestRenderEmailTemplates(t *testing.T) {
	base := baseEmailData{
		Title:    "Test",
		Heading:  "Heading",
		CTALabel: "Open",
		CTAURL:   "https://app.example.com/applications/abc",
	}

	tests := []struct {
		name     string
		template string
		data     any
		contains []string
	}{
		{
			name:     "application submitted",
			template: "application_submitted.html",
			data: applicationSubmittedEmailData{
				baseEmailData:   base,
				ApplicantName:   "Jordan Li",
				ApplicationRef:  "deadbeef",
				AmountFormatted: "$12000.00",
			},
			contains: []string{"Jordan Li", "deadbeef", "$12000.00", "https://app.example.com/applications/abc"},
		},
		{
			name:     "application approved",
			template: "application_approved.html",
			data: applicationApprovedEmailData{
				baseEmailData:   base,
				ApplicantName:   "Jordan Li",
				ApplicationRef:  "deadbeef",
				AmountFormatted: "$9500.00",
			},
			contains: []string{"$9500.00"},
		},
		{
			name:     "application rejected with reason",
			template: "application_rejected.html",
			data: applicationRejectedEmailData{
				baseEmailData:  baseEmailData{Title: "Update", Heading: "Update"},
				ApplicantName:  "Jordan Li",
				ApplicationRef: "deadbeef",
				Reason:         "insufficient collateral",
			},
			contains: []string{"insufficient collateral"},
		},
		{
			name:     "application rejected without reason",
			template: "application_rejected.html",
			data: applicationRejectedEmailData{
				baseEmailData:  baseEmailData{Title: "Update", Heading: "Update"},
				ApplicantName:  "Jordan Li",
				ApplicationRef: "deadbeef",
			},
			contains: []string{"Jordan Li"},
		},
		{
			name:     "query raised",
			template: "query_raised.html",
			data: queryRaisedEmailData{
				baseEmailData:  base,
				ApplicantName:  "Jordan Li",
				ApplicationRef: "deadbeef",
				Question:       "please provide proof of income",
			},
			contains: []string{"please provide proof of income"},
		},
		{
			name:     "admin new application",
			template: "admin_new_application.html",
			data: adminNewApplicationEmailData{
				baseEmailData:   base,
				ApplicantName:   "Jordan Li",
				ApplicationRef:  "deadbeef",
				AmountFormatted: "$12000.00",
			},
			contains: []string{"Jordan Li", "$12000.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html, err := renderEmailTemplate(tt.template, tt.data)
			if err != nil {
				t.Fatalf("renderEmailTemplate(%s): %v", tt.template, err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(html, want) {
					t.Errorf("rendered %s missing %q", tt.template, want)
				}
			}
		})
	}
}

func TestRenderSkipsCTAWithoutURL(t *testing.T) {
	html, err := renderEmailTemplate("application_rejected.html", applicationRejectedEmailData{
		baseEmailData:  baseEmailData{Title: "Update", Heading: "Update"},
		ApplicantName:  "Jordan Li",
		ApplicationRef: "deadbeef",
	})
	if err != nil {
		t.Fatalf("renderEmailTemplate: %v", err)
	}
	if strings.Contains(html, "<a href") {
		t.Error("rendered email should not contain a button without a CTA URL")
	}
}

func TestShortRef(t *testing.T) {
	if got := shortRef("0aa81ca9-14f4-4671-8c6c-8bd2b29d24bb"); got != "0aa81ca9" {
		t.Errorf("shortRef = %s, want 0aa81ca9", got)
	}
	if got := shortRef("abc"); got != "abc" {
		t.Errorf("shortRef = %s, want abc", got)
	}
}

func TestFormatCurrencyUSD(t *testing.T) {
	if got := formatCurrencyUSD(12000); got != "$12000.00" {
		t.Errorf("formatCurrencyUSD = %s, want $12000.00", got)
	}
}

func TestApplicationURL(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "", "", "noreply@example.com", "DriveCash", "https://app.example.com/")
	if got := s.applicationURL("abc"); got != "https://app.example.com/applications/abc" {
		t.Errorf("applicationURL = %s", got)
	}
	if got := s.adminApplicationURL("abc"); got != "https://app.example.com/admin/applications/abc" {
		t.Errorf("adminApplicationURL = %s", got)
	}

	bare := NewSMTPSender("smtp.example.com", 587, "", "", "noreply@example.com", "DriveCash", "")
	if got := bare.applicationURL("abc"); got != "" {
		t.Errorf("applicationURL without base = %s, want empty", got)
	}
}
