// Package transport defines the wire types for the loans HTTP surface.
package transport

import (
	"time"

	"drivecash_backend/internal/loans/domain"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// PersonalInfoRequest is the applicant identity section of a draft.
type PersonalInfoRequest struct {
	FirstName   string     `json:"firstName" validate:"omitempty,max=100"`
	LastName    string     `json:"lastName" validate:"omitempty,max=100"`
	Email       string     `json:"email" validate:"omitempty,email,max=254"`
	Phone       string     `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
	NationalID  string     `json:"nationalId" validate:"omitempty,max=32"`
	BankName    string     `json:"bankName" validate:"omitempty,max=100"`
}

// IdentificationRequest is the government ID section of a draft.
type IdentificationRequest struct {
	IDType     string     `json:"idType" validate:"omitempty,oneof=drivers_license state_id passport"`
	IDNumber   string     `json:"idNumber" validate:"omitempty,max=64"`
	IssueDate  *time.Time `json:"issueDate"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// FinancialRequest is the income and employment section of a draft.
type FinancialRequest struct {
	EmploymentStatus   string   `json:"employmentStatus" validate:"omitempty,oneof=employed self_employed retired unemployed other"`
	AnnualIncome       *float64 `json:"annualIncome" validate:"omitempty,min=0"`
	GrossMonthlyIncome *float64 `json:"grossMonthlyIncome" validate:"omitempty,min=0"`
	EmployerName       string   `json:"employerName" validate:"omitempty,max=200"`
	MonthsEmployed     *int     `json:"monthsEmployed" validate:"omitempty,min=0"`
}

// AddressRequest is the residence section of a draft.
type AddressRequest struct {
	Street  string `json:"street" validate:"omitempty,max=200"`
	City    string `json:"city" validate:"omitempty,max=100"`
	State   string `json:"state" validate:"omitempty,max=50"`
	ZipCode string `json:"zipCode" validate:"omitempty,max=16"`
	Country string `json:"country" validate:"omitempty,max=100"`
}

// VehicleRequest is the collateral vehicle section of a draft.
type VehicleRequest struct {
	Make    string `json:"make" validate:"omitempty,max=60"`
	Model   string `json:"model" validate:"omitempty,max=60"`
	Year    int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	VIN     string `json:"vin" validate:"omitempty,max=20"`
	Mileage *int   `json:"mileage" validate:"omitempty,min=0"`
	Color   string `json:"color" validate:"omitempty,max=40"`
}

// CreateApplicationRequest starts a draft. Every field is optional; intake is
// incremental.
type CreateApplicationRequest struct {
	Amount                  float64              `json:"amount" validate:"omitempty,min=0"`
	TermMonths              int                  `json:"termMonths" validate:"omitempty,min=1,max=60"`
	ApplicantEstimatedValue *float64             `json:"applicantEstimatedValue" validate:"omitempty,min=0"`
	PersonalInfo            *PersonalInfoRequest `json:"personalInfo" validate:"omitempty"`
	Vehicle                 *VehicleRequest      `json:"vehicle" validate:"omitempty"`
}

// UpdateApplicationRequest patches a draft; nil sections are left untouched.
type UpdateApplicationRequest struct {
	Amount                  *float64               `json:"amount" validate:"omitempty,min=0"`
	TermMonths              *int                   `json:"termMonths" validate:"omitempty,min=1,max=60"`
	ApplicantEstimatedValue *float64               `json:"applicantEstimatedValue" validate:"omitempty,min=0"`
	AcceptTerms             *bool                  `json:"acceptTerms"`
	Signature               *string                `json:"signature" validate:"omitempty,max=200"`
	PersonalInfo            *PersonalInfoRequest   `json:"personalInfo" validate:"omitempty"`
	Identification          *IdentificationRequest `json:"identification" validate:"omitempty"`
	Financial               *FinancialRequest      `json:"financial" validate:"omitempty"`
	Address                 *AddressRequest        `json:"address" validate:"omitempty"`
	Vehicle                 *VehicleRequest        `json:"vehicle" validate:"omitempty"`
}

// ApproveRequest is the admin approval body.
type ApproveRequest struct {
	ApprovedAmount float64 `json:"approvedAmount" validate:"required,gt=0"`
	ApprovalNotes  string  `json:"approvalNotes" validate:"omitempty,max=2000"`
}

// DecisionRequest covers reject and raise-query bodies.
type DecisionRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=2000"`
}

// AssociateDraftRequest resolves anonymous drafts to the caller's account.
// ApplicationID targets one specific draft by session key; when absent every
// draft matching the account email is claimed.
type AssociateDraftRequest struct {
	ApplicationID *uuid.UUID `json:"applicationId"`
}

// AddNoteRequest is the admin note body.
type AddNoteRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// ListApplicationsRequest defines admin listing query parameters.
type ListApplicationsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=draft pending query approved rejected withdrawn"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// ValuationResponse is the persisted collateral valuation summary.
type ValuationResponse struct {
	Make               string    `json:"make,omitempty"`
	Model              string    `json:"model,omitempty"`
	Year               int       `json:"year,omitempty"`
	Condition          string    `json:"condition"`
	EstimatedValueLow  float64   `json:"estimatedValueLow"`
	EstimatedValueHigh float64   `json:"estimatedValueHigh"`
	EstimatedValueAvg  float64   `json:"estimatedValueAvg"`
	LTVRatio           float64   `json:"ltvRatio"`
	MaxEligibleAmount  float64   `json:"maxEligibleAmount"`
	RiskTier           string    `json:"riskTier"`
	Confidence         string    `json:"confidence"`
	DetectedIssues     []string  `json:"detectedIssues,omitempty"`
	DetectedFeatures   []string  `json:"detectedFeatures,omitempty"`
	PhotosAnalyzed     int       `json:"photosAnalyzed"`
	EvaluatedAt        time.Time `json:"evaluatedAt"`
}

// AdviceResponse is the persisted underwriting advisory summary.
type AdviceResponse struct {
	RiskTier           string    `json:"riskTier"`
	ApprovalSuggestion string    `json:"approvalSuggestion"`
	SuggestedAmount    float64   `json:"suggestedAmount"`
	Rationale          string    `json:"rationale,omitempty"`
	Confidence         string    `json:"confidence"`
	GeneratedAt        time.Time `json:"generatedAt"`
}

// ValueComparisonResponse contrasts the applicant estimate with the AI value.
type ValueComparisonResponse struct {
	Assessment      string  `json:"assessment"`
	ApplicantValue  float64 `json:"applicantValue"`
	AIValue         float64 `json:"aiValue"`
	VariancePercent float64 `json:"variancePercent"`
}

// ApplicationResponse is the fully hydrated application returned to clients.
type ApplicationResponse struct {
	ID                      uuid.UUID  `json:"id"`
	Status                  string     `json:"status"`
	Amount                  float64    `json:"amount"`
	ApprovedAmount          *float64   `json:"approvedAmount,omitempty"`
	TermMonths              int        `json:"termMonths"`
	ApplicantEstimatedValue *float64   `json:"applicantEstimatedValue,omitempty"`
	AcceptTerms             bool       `json:"acceptTerms"`
	Signature               string     `json:"signature,omitempty"`
	SignedAt                *time.Time `json:"signedAt,omitempty"`

	PersonalInfo   *PersonalInfoRequest   `json:"personalInfo,omitempty"`
	Identification *IdentificationRequest `json:"identification,omitempty"`
	Financial      *FinancialRequest      `json:"financial,omitempty"`
	Address        *AddressRequest        `json:"address,omitempty"`
	Vehicle        *VehicleResponse       `json:"vehicle,omitempty"`

	Valuation          *ValuationResponse `json:"vehicleValuation,omitempty"`
	UnderwritingAdvice *AdviceResponse    `json:"aiAnalysis,omitempty"`

	ApprovalNotes string     `json:"approvalNotes,omitempty"`
	SubmittedAt   *time.Time `json:"submittedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// VehicleResponse extends the request shape with the stored photo keys.
type VehicleResponse struct {
	Make      string   `json:"make,omitempty"`
	Model     string   `json:"model,omitempty"`
	Year      int      `json:"year,omitempty"`
	VIN       string   `json:"vin,omitempty"`
	Mileage   *int     `json:"mileage,omitempty"`
	Color     string   `json:"color,omitempty"`
	PhotoKeys []string `json:"photoKeys,omitempty"`
}

// CreateApplicationResponse returns the draft plus the session key issued to
// anonymous applicants.
type CreateApplicationResponse struct {
	Application ApplicationResponse `json:"application"`
	SessionKey  string              `json:"sessionKey,omitempty"`
}

// SubmissionResponse is the submit payload.
type SubmissionResponse struct {
	Application      ApplicationResponse      `json:"application"`
	AIAnalysis       *AdviceResponse          `json:"aiAnalysis,omitempty"`
	VehicleValuation *ValuationResponse       `json:"vehicleValuation,omitempty"`
	ValueComparison  *ValueComparisonResponse `json:"valueComparison,omitempty"`
}

// ListApplicationsResponse is the admin listing payload.
type ListApplicationsResponse struct {
	Applications []ApplicationResponse `json:"applications"`
	Total        int                   `json:"total"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"pageSize"`
}

// AssociateDraftResponse reports which drafts were claimed.
type AssociateDraftResponse struct {
	ClaimedApplicationIDs []uuid.UUID `json:"claimedApplicationIds"`
}

// DocumentResponse is uploaded artifact metadata.
type DocumentResponse struct {
	ID           uuid.UUID `json:"id"`
	DocumentType string    `json:"documentType"`
	Title        string    `json:"title"`
	FileName     string    `json:"fileName"`
	ContentType  string    `json:"contentType,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// NoteResponse is an internal reviewer annotation.
type NoteResponse struct {
	ID        uuid.UUID  `json:"id"`
	AuthorID  *uuid.UUID `json:"authorId,omitempty"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
}

// ── Mapping ───────────────────────────────────────────────────────────────────

// FromApplication maps the domain aggregate to its response shape.
func FromApplication(app domain.Application) ApplicationResponse {
	resp := ApplicationResponse{
		ID:                      app.ID,
		Status:                  string(app.Status),
		Amount:                  app.Amount,
		ApprovedAmount:          app.ApprovedAmount,
		TermMonths:              app.TermMonths,
		ApplicantEstimatedValue: app.ApplicantEstimatedValue,
		AcceptTerms:             app.AcceptTerms,
		Signature:               app.Signature,
		SignedAt:                app.SignedAt,
		ApprovalNotes:           app.ApprovalNotes,
		SubmittedAt:             app.SubmittedAt,
		CreatedAt:               app.CreatedAt,
		UpdatedAt:               app.UpdatedAt,
	}

	if app.Personal != nil {
		resp.PersonalInfo = &PersonalInfoRequest{
			FirstName:   app.Personal.FirstName,
			LastName:    app.Personal.LastName,
			Email:       app.Personal.Email,
			Phone:       app.Personal.Phone,
			DateOfBirth: app.Personal.DateOfBirth,
			NationalID:  app.Personal.NationalID,
			BankName:    app.Personal.BankName,
		}
	}
	if app.Identification != nil {
		resp.Identification = &IdentificationRequest{
			IDType:     app.Identification.IDType,
			IDNumber:   app.Identification.IDNumber,
			IssueDate:  app.Identification.IssueDate,
			ExpiryDate: app.Identification.ExpiryDate,
		}
	}
	if app.Financial != nil {
		resp.Financial = &FinancialRequest{
			EmploymentStatus:   app.Financial.EmploymentStatus,
			AnnualIncome:       app.Financial.AnnualIncome,
			GrossMonthlyIncome: app.Financial.GrossMonthlyIncome,
			EmployerName:       app.Financial.EmployerName,
			MonthsEmployed:     app.Financial.MonthsEmployed,
		}
	}
	if app.Address != nil {
		resp.Address = &AddressRequest{
			Street:  app.Address.Street,
			City:    app.Address.City,
			State:   app.Address.State,
			ZipCode: app.Address.ZipCode,
			Country: app.Address.Country,
		}
	}
	if app.Vehicle != nil {
		resp.Vehicle = &VehicleResponse{
			Make:      app.Vehicle.Make,
			Model:     app.Vehicle.Model,
			Year:      app.Vehicle.Year,
			VIN:       app.Vehicle.VIN,
			Mileage:   app.Vehicle.Mileage,
			Color:     app.Vehicle.Color,
			PhotoKeys: app.Vehicle.PhotoKeys,
		}
	}
	if app.Valuation != nil {
		resp.Valuation = FromValuation(app.Valuation)
	}
	if app.UnderwritingAdvice != nil {
		resp.UnderwritingAdvice = FromAdvice(app.UnderwritingAdvice)
	}

	return resp
}

// FromValuation maps the persisted valuation, nil-safe.
func FromValuation(v *domain.CollateralValuation) *ValuationResponse {
	if v == nil {
		return nil
	}
	return &ValuationResponse{
		Make:               v.Make,
		Model:              v.Model,
		Year:               v.Year,
		Condition:          v.Condition,
		EstimatedValueLow:  v.EstimatedValueLow,
		EstimatedValueHigh: v.EstimatedValueHigh,
		EstimatedValueAvg:  v.EstimatedValueAvg,
		LTVRatio:           v.LTVRatio,
		MaxEligibleAmount:  v.MaxEligibleAmount,
		RiskTier:           v.RiskTier,
		Confidence:         v.Confidence,
		DetectedIssues:     v.DetectedIssues,
		DetectedFeatures:   v.DetectedFeatures,
		PhotosAnalyzed:     v.PhotosAnalyzed,
		EvaluatedAt:        v.EvaluatedAt,
	}
}

// FromAdvice maps the persisted underwriting advisory, nil-safe.
func FromAdvice(a *domain.UnderwritingAdvice) *AdviceResponse {
	if a == nil {
		return nil
	}
	return &AdviceResponse{
		RiskTier:           a.RiskTier,
		ApprovalSuggestion: a.ApprovalSuggestion,
		SuggestedAmount:    a.SuggestedAmount,
		Rationale:          a.Rationale,
		Confidence:         a.Confidence,
		GeneratedAt:        a.GeneratedAt,
	}
}

// FromValueComparison maps the estimate comparison, nil-safe.
func FromValueComparison(v *domain.ValueComparison) *ValueComparisonResponse {
	if v == nil {
		return nil
	}
	return &ValueComparisonResponse{
		Assessment:      v.Assessment,
		ApplicantValue:  v.ApplicantValue,
		AIValue:         v.AIValue,
		VariancePercent: v.VariancePercent,
	}
}

// FromDocument maps uploaded artifact metadata.
func FromDocument(d domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:           d.ID,
		DocumentType: d.DocumentType,
		Title:        d.Title,
		FileName:     d.FileName,
		ContentType:  d.ContentType,
		SizeBytes:    d.SizeBytes,
		UploadedAt:   d.UploadedAt,
	}
}

// FromNote maps a reviewer annotation.
func FromNote(n domain.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		AuthorID:  n.AuthorID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}

// ToPersonalInfo converts the request section to its domain form.
func (r *PersonalInfoRequest) ToPersonalInfo() domain.PersonalInfo {
	return domain.PersonalInfo{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		DateOfBirth: r.DateOfBirth,
		NationalID:  r.NationalID,
		BankName:    r.BankName,
	}
}

// ToIdentification converts the request section to its domain form.
func (r *IdentificationRequest) ToIdentification() domain.IdentificationInfo {
	return domain.IdentificationInfo{
		IDType:     r.IDType,
		IDNumber:   r.IDNumber,
		IssueDate:  r.IssueDate,
		ExpiryDate: r.ExpiryDate,
	}
}

// ToFinancial converts the request section to its domain form.
func (r *FinancialRequest) ToFinancial() domain.FinancialProfile {
	return domain.FinancialProfile{
		EmploymentStatus:   r.EmploymentStatus,
		AnnualIncome:       r.AnnualIncome,
		GrossMonthlyIncome: r.GrossMonthlyIncome,
		EmployerName:       r.EmployerName,
		MonthsEmployed:     r.MonthsEmployed,
	}
}

// ToAddress converts the request section to its domain form.
func (r *AddressRequest) ToAddress() domain.Address {
	return domain.Address{
		Street:  r.Street,
		City:    r.City,
		State:   r.State,
		ZipCode: r.ZipCode,
		Country: r.Country,
	}
}

// ToVehicle converts the request section to its domain form. Photo keys are
// managed server-side via document uploads, never from the request body.
func (r *VehicleRequest) ToVehicle(existingPhotoKeys []string) domain.VehicleInfo {
	return domain.VehicleInfo{
		Make:      r.Make,
		Model:     r.Model,
		Year:      r.Year,
		VIN:       r.VIN,
		Mileage:   r.Mileage,
		Color:     r.Color,
		PhotoKeys: existingPhotoKeys,
	}
}
