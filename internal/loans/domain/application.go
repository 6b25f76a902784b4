package domain

import (
	"time"

	"github.com/google/uuid"
)

// Application is the aggregate root for a loan application. Satellite records
// (personal, identification, financial, address, vehicle) are optional until
// submission; a missing satellite means "never entered", not "entered empty".
type Application struct {
	ID          uuid.UUID
	OwnerUserID *uuid.UUID // nil exactly while the draft is unclaimed
	SessionKey  *string    // set only while OwnerUserID is nil
	Status      Status

	Amount                  float64
	ApprovedAmount          *float64
	TermMonths              int
	ApplicantEstimatedValue *float64

	AcceptTerms bool
	Signature   string
	SignedAt    *time.Time

	Personal       *PersonalInfo
	Identification *IdentificationInfo
	Financial      *FinancialProfile
	Address        *Address
	Vehicle        *VehicleInfo

	Valuation          *CollateralValuation
	UnderwritingAdvice *UnderwritingAdvice

	ApprovedBy    *uuid.UUID
	ApprovedAt    *time.Time
	ApprovalNotes string

	SubmittedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsOwnedBy reports whether the given user controls this application.
func (a *Application) IsOwnedBy(userID uuid.UUID) bool {
	return a.OwnerUserID != nil && *a.OwnerUserID == userID
}

// MatchesSessionKey reports whether the anonymous session key controls this
// application. An owned application never matches a session key.
func (a *Application) MatchesSessionKey(key string) bool {
	return a.OwnerUserID == nil && a.SessionKey != nil && key != "" && *a.SessionKey == key
}

// CollateralValue returns the best-known collateral value: AI valuation
// average when present, else the applicant's self-estimate, else zero.
func (a *Application) CollateralValue() float64 {
	if a.Valuation != nil && a.Valuation.EstimatedValueAvg > 0 {
		return a.Valuation.EstimatedValueAvg
	}
	if a.ApplicantEstimatedValue != nil && *a.ApplicantEstimatedValue > 0 {
		return *a.ApplicantEstimatedValue
	}
	return 0
}

// PersonalInfo holds applicant identity and contact data (1:1 satellite).
type PersonalInfo struct {
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	DateOfBirth *time.Time
	NationalID  string
	BankName    string
}

// FullName returns the applicant's display name.
func (p *PersonalInfo) FullName() string {
	switch {
	case p == nil:
		return ""
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IdentificationInfo holds government ID data (1:1 satellite).
type IdentificationInfo struct {
	IDType     string
	IDNumber   string
	IssueDate  *time.Time
	ExpiryDate *time.Time
}

// FinancialProfile holds income and employment data (1:1 satellite).
// Submission requires employment status and one of annual or monthly income.
type FinancialProfile struct {
	EmploymentStatus   string
	AnnualIncome       *float64
	GrossMonthlyIncome *float64
	EmployerName       string
	MonthsEmployed     *int
}

// Address holds the applicant's residence (1:1 satellite).
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// VehicleInfo holds the collateral vehicle data (1:1 satellite).
type VehicleInfo struct {
	Make      string
	Model     string
	Year      int
	VIN       string
	Mileage   *int
	Color     string
	PhotoKeys []string
}

// CollateralValuation is the persisted result of the photo-based valuation
// advisory. Always derived, never hand-entered; re-evaluation replaces it.
type CollateralValuation struct {
	Make               string
	Model              string
	Year               int
	Condition          string
	EstimatedValueLow  float64
	EstimatedValueHigh float64
	EstimatedValueAvg  float64
	LTVRatio           float64
	MaxEligibleAmount  float64
	RiskTier           string
	Confidence         string
	DetectedIssues     []string
	DetectedFeatures   []string
	PhotosAnalyzed     int
	EvaluatedAt        time.Time
}

// UnderwritingAdvice is the persisted result of the underwriting advisory.
type UnderwritingAdvice struct {
	RiskTier           string
	ApprovalSuggestion string // approve, conditional, reject
	SuggestedAmount    float64
	Rationale          string
	Confidence         string
	GeneratedAt        time.Time
}

// Document is metadata for an uploaded artifact; the binary lives in object
// storage under StorageKey.
type Document struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	DocumentType  string
	Title         string
	FileName      string
	StorageKey    string
	ContentType   string
	SizeBytes     int64
	UploadedAt    time.Time
}

// Document types mirror the artifact categories collected during intake.
const (
	DocumentTypeID           = "government_id"
	DocumentTypeTitle        = "vehicle_title"
	DocumentTypeRegistration = "vehicle_registration"
	DocumentTypeInsurance    = "proof_of_insurance"
	DocumentTypeIncome       = "proof_of_income"
	DocumentTypeResidence    = "proof_of_residence"
	DocumentTypeVehiclePhoto = "vehicle_photo"
	DocumentTypeOther        = "other"
)

var validDocumentTypes = map[string]bool{
	DocumentTypeID:           true,
	DocumentTypeTitle:        true,
	DocumentTypeRegistration: true,
	DocumentTypeInsurance:    true,
	DocumentTypeIncome:       true,
	DocumentTypeResidence:    true,
	DocumentTypeVehiclePhoto: true,
	DocumentTypeOther:        true,
}

// IsValidDocumentType reports whether the value names a known artifact
// category.
func IsValidDocumentType(t string) bool { return validDocumentTypes[t] }

// Note is an internal annotation on an application, written by staff or
// recorded automatically alongside decisions.
type Note struct {
	ID            uuid.UUID
	ApplicationID uuid.UUID
	AuthorID      *uuid.UUID
	Body          string
	CreatedAt     time.Time
}

// StatusCounts is the per-status application tally for dashboards.
type StatusCounts struct {
	Draft     int `json:"draft"`
	Pending   int `json:"pending"`
	Query     int `json:"query"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Withdrawn int `json:"withdrawn"`
	Total     int `json:"total"`
}
