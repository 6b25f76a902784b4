package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"drivecash_backend/internal/loans/advisor"
	"drivecash_backend/internal/loans/domain"
	"drivecash_backend/internal/loans/policy"
	"drivecash_backend/internal/loans/repository"
	"drivecash_backend/platform/apperr"
	"drivecash_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory repository.Repository.
type fakeRepo struct {
	apps  map[uuid.UUID]*domain.Application
	docs  map[uuid.UUID][]domain.Document
	notes map[uuid.UUID][]domain.Note

	// failTransitions makes the next N TransitionStatus calls lose the swap
	// without mutating state.
	failTransitions int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		apps:  make(map[uuid.UUID]*domain.Application),
		docs:  make(map[uuid.UUID][]domain.Document),
		notes: make(map[uuid.UUID][]domain.Note),
	}
}

func (r *fakeRepo) put(app domain.Application) *domain.Application {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	cp := app
	r.apps[cp.ID] = &cp
	return &cp
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Application, error) {
	app, ok := r.apps[id]
	if !ok {
		return domain.Application{}, repository.ErrNotFound
	}
	return *app, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, ownerUserID uuid.UUID) ([]domain.Application, error) {
	var out []domain.Application
	for _, app := range r.apps {
		if app.OwnerUserID != nil && *app.OwnerUserID == ownerUserID {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (r *fakeRepo) List(_ context.Context, params repository.ListParams) ([]domain.Application, int, error) {
	var out []domain.Application
	for _, app := range r.apps {
		if params.Status != nil && app.Status != *params.Status {
			continue
		}
		out = append(out, *app)
	}
	return out, len(out), nil
}

func (r *fakeRepo) CountByStatus(_ context.Context, ownerUserID *uuid.UUID) (domain.StatusCounts, error) {
	var counts domain.StatusCounts
	for _, app := range r.apps {
		if ownerUserID != nil && (app.OwnerUserID == nil || *app.OwnerUserID != *ownerUserID) {
			continue
		}
		switch app.Status {
		case domain.StatusDraft:
			counts.Draft++
		case domain.StatusPending:
			counts.Pending++
		case domain.StatusQuery:
			counts.Query++
		case domain.StatusApproved:
			counts.Approved++
		case domain.StatusRejected:
			counts.Rejected++
		case domain.StatusWithdrawn:
			counts.Withdrawn++
		}
	}
	return counts, nil
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateParams) (domain.Application, error) {
	app := r.put(domain.Application{
		OwnerUserID:             params.OwnerUserID,
		SessionKey:              params.SessionKey,
		Status:                  domain.StatusDraft,
		Amount:                  params.Amount,
		TermMonths:              params.TermMonths,
		ApplicantEstimatedValue: params.ApplicantEstimatedValue,
		CreatedAt:               time.Now(),
		UpdatedAt:               time.Now(),
	})
	return *app, nil
}

func (r *fakeRepo) UpdateCore(_ context.Context, id uuid.UUID, params repository.UpdateCoreParams) error {
	app, ok := r.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	if params.Amount != nil {
		app.Amount = *params.Amount
	}
	if params.TermMonths != nil {
		app.TermMonths = *params.TermMonths
	}
	if params.ApplicantEstimatedValue != nil {
		app.ApplicantEstimatedValue = params.ApplicantEstimatedValue
	}
	if params.AcceptTerms != nil {
		app.AcceptTerms = *params.AcceptTerms
	}
	if params.Signature != nil {
		app.Signature = *params.Signature
	}
	if params.SignedAt != nil {
		app.SignedAt = params.SignedAt
	}
	return nil
}

func (r *fakeRepo) UpsertPersonal(_ context.Context, id uuid.UUID, info domain.PersonalInfo) error {
	app, ok := r.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	app.Personal = &info
	return nil
}

func (r *fakeRepo) UpsertIdentification(_ context.Context, id uuid.UUID, info domain.IdentificationInfo) error {
	app, ok := r.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	app.Identification = &info
	return nil
}

func (r *fakeRepo) UpsertFinancial(_ context.Context, id uuid.UUID, profile domain.FinancialProfile) error {
	app, ok := r.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	app.Financial = &profile
	return nil
}

func (r *fakeRepo) UpsertAddress(_ context.Context, id uuid.UUID, addr domain.Address) error {
	app, ok := r.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	app.Address = &addr
	return nil
}

func (r *fakeRepo) UpsertVehicle(_ context.Context, id uuid.UUID, vehicle domain.VehicleInfo) error {
	app, ok := r.apps[id]
	if !ok {
		return repository.ErrNotFound
	}
	app.Vehicle = &vehicle
	return nil
}

func (r *fakeRepo) DeleteDraft(_ context.Context, id uuid.UUID) error {
	if _, ok := r.apps[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.apps, id)
	return nil
}

func (r *fakeRepo) TransitionStatus(_ context.Context, id uuid.UUID, params repository.TransitionParams) (bool, error) {
	app, ok := r.apps[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if r.failTransitions > 0 {
		r.failTransitions--
		return false, nil
	}
	if app.Status != params.From {
		return false, nil
	}
	app.Status = params.To
	if params.OwnerUserID != nil {
		app.OwnerUserID = params.OwnerUserID
	}
	if params.ClearSession {
		app.SessionKey = nil
	}
	if params.SubmittedAt != nil {
		app.SubmittedAt = params.SubmittedAt
	}
	if params.ApprovedAmount != nil {
		app.ApprovedAmount = params.ApprovedAmount
	}
	if params.ApprovedBy != nil {
		app.ApprovedBy = params.ApprovedBy
	}
	if params.ApprovedAt != nil {
		app.ApprovedAt = params.ApprovedAt
	}
	if params.ApprovalNotes != nil {
		app.ApprovalNotes = *params.ApprovalNotes
	}
	if params.ClearApproved {
		app.ApprovedAmount = nil
	}
	app.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeRepo) SaveValuation(_ context.Context, applicationID uuid.UUID, v domain.CollateralValuation) error {
	app, ok := r.apps[applicationID]
	if !ok {
		return repository.ErrNotFound
	}
	app.Valuation = &v
	return nil
}

func (r *fakeRepo) SaveUnderwritingAdvice(_ context.Context, applicationID uuid.UUID, advice domain.UnderwritingAdvice) error {
	app, ok := r.apps[applicationID]
	if !ok {
		return repository.ErrNotFound
	}
	app.UnderwritingAdvice = &advice
	return nil
}

func (r *fakeRepo) ClaimDrafts(_ context.Context, ownerUserID uuid.UUID, email string) ([]uuid.UUID, error) {
	var claimed []uuid.UUID
	for _, app := range r.apps {
		if app.OwnerUserID != nil || app.Personal == nil || !strings.EqualFold(app.Personal.Email, email) {
			continue
		}
		owner := ownerUserID
		app.OwnerUserID = &owner
		app.SessionKey = nil
		claimed = append(claimed, app.ID)
	}
	return claimed, nil
}

func (r *fakeRepo) AddDocument(_ context.Context, doc domain.Document) error {
	r.docs[doc.ApplicationID] = append(r.docs[doc.ApplicationID], doc)
	return nil
}

func (r *fakeRepo) ListDocuments(_ context.Context, applicationID uuid.UUID) ([]domain.Document, error) {
	return r.docs[applicationID], nil
}

func (r *fakeRepo) AddNote(_ context.Context, note domain.Note) error {
	r.notes[note.ApplicationID] = append(r.notes[note.ApplicationID], note)
	return nil
}

func (r *fakeRepo) ListNotes(_ context.Context, applicationID uuid.UUID) ([]domain.Note, error) {
	return r.notes[applicationID], nil
}

var _ repository.Repository = (*fakeRepo)(nil)

type fakeValuator struct {
	result *domain.CollateralValuation
	err    error
}

func (f *fakeValuator) Evaluate(_ context.Context, _ []string, _ float64) (*domain.CollateralValuation, error) {
	return f.result, f.err
}

type fakeRecommender struct {
	result *domain.UnderwritingAdvice
	err    error
}

func (f *fakeRecommender) Recommend(_ context.Context, _ advisor.Snapshot) (*domain.UnderwritingAdvice, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.result
	return &cp, nil
}

var testLimits = policy.Limits{AbsoluteCap: 25000, MaxLTVRatio: 0.5}

func newTestService(repo *fakeRepo, valuator CollateralValuator, recommender UnderwritingRecommender) *Service {
	return New(repo, valuator, recommender, testLimits, nil, logger.New("development"))
}

func ptr[T any](v T) *T { return &v }

func completeDraft(owner *uuid.UUID, sessionKey *string) domain.Application {
	dob := time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC)
	return domain.Application{
		OwnerUserID:             owner,
		SessionKey:              sessionKey,
		Status:                  domain.StatusDraft,
		Amount:                  12000,
		TermMonths:              24,
		ApplicantEstimatedValue: ptr(30000.0),
		AcceptTerms:             true,
		Signature:               "Jordan Li",
		Personal: &domain.PersonalInfo{
			FirstName:   "Jordan",
			LastName:    "Li",
			Email:       "jordan@example.com",
			Phone:       "+15551234567",
			DateOfBirth: &dob,
		},
		Address: &domain.Address{
			Street:  "12 Oak St",
			City:    "Austin",
			State:   "TX",
			ZipCode: "78701",
		},
		Financial: &domain.FinancialProfile{
			EmploymentStatus: "employed",
			AnnualIncome:     ptr(65000.0),
		},
		Vehicle: &domain.VehicleInfo{
			Make:      "Honda",
			Model:     "Civic",
			Year:      2019,
			VIN:       "1HGFC2F59KH000000",
			PhotoKeys: []string{"photos/a.jpg"},
		},
	}
}

func kindOf(t *testing.T, err error) apperr.Kind {
	t.Helper()
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T: %v", err, err)
	}
	return appErr.Kind
}

func TestSubmitHappyPath(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	app := repo.put(completeDraft(&owner, nil))

	valuation := &domain.CollateralValuation{
		Make: "Honda", Model: "Civic", Year: 2019,
		Condition:         "good",
		EstimatedValueLow: 14000, EstimatedValueHigh: 18000, EstimatedValueAvg: 16000,
		Confidence:     "low",
		PhotosAnalyzed: 1,
		EvaluatedAt:    time.Now(),
	}
	advice := &domain.UnderwritingAdvice{
		RiskTier:           "low",
		ApprovalSuggestion: "approve",
		SuggestedAmount:    7000,
		Confidence:         "high",
		GeneratedAt:        time.Now(),
	}
	svc := newTestService(repo, &fakeValuator{result: valuation}, &fakeRecommender{result: advice})

	result, err := svc.Submit(context.Background(), Actor{UserID: &owner}, app.ID)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if result.Application.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", result.Application.Status)
	}
	if result.Application.SubmittedAt == nil {
		t.Error("SubmittedAt not set")
	}
	if result.Valuation == nil || result.Valuation.EstimatedValueAvg != 16000 {
		t.Errorf("valuation not persisted: %+v", result.Valuation)
	}
	if result.Advice == nil {
		t.Fatal("advice not persisted")
	}
	if result.ValueComparison == nil {
		t.Fatal("expected a value comparison")
	} else if result.ValueComparison.Assessment != "overvalued" {
		// applicant said 30000, advisory averaged 16000
		t.Errorf("assessment = %s, want overvalued", result.ValueComparison.Assessment)
	}
}

func TestSubmitClaimsAnonymousDraft(t *testing.T) {
	repo := newFakeRepo()
	sessionKey := uuid.NewString()
	app := repo.put(completeDraft(nil, &sessionKey))

	owner := uuid.New()
	svc := newTestService(repo, nil, nil)

	result, err := svc.Submit(context.Background(), Actor{UserID: &owner, SessionKey: sessionKey}, app.ID)
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if result.Application.OwnerUserID == nil || *result.Application.OwnerUserID != owner {
		t.Error("submitting with an authenticated session should claim the draft")
	}
	if result.Application.SessionKey != nil {
		t.Error("session key should be cleared once owned")
	}
}

func TestSubmitCollectsAllViolations(t *testing.T) {
	repo := newFakeRepo()
	app := repo.put(domain.Application{Status: domain.StatusDraft, SessionKey: ptr("sk")})

	svc := newTestService(repo, nil, nil)
	_, err := svc.Submit(context.Background(), Actor{SessionKey: "sk"}, app.ID)
	if kindOf(t, err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	var appErr *apperr.Error
	errors.As(err, &appErr)
	violations, ok := appErr.Details.(map[string]string)
	if !ok {
		t.Fatalf("details type = %T, want map[string]string", appErr.Details)
	}
	for _, field := range []string{"accept_terms", "signature", "amount", "personal_info", "address", "financial_info", "vehicle_info"} {
		if _, present := violations[field]; !present {
			t.Errorf("missing violation for %q", field)
		}
	}
}

func TestSubmitAdvisoryFailureDegrades(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	app := repo.put(completeDraft(&owner, nil))

	svc := newTestService(repo,
		&fakeValuator{err: advisor.ErrNoAdvice},
		&fakeRecommender{err: errors.New("model unavailable")})

	result, err := svc.Submit(context.Background(), Actor{UserID: &owner}, app.ID)
	if err != nil {
		t.Fatalf("advisory failure must not block submission: %v", err)
	}
	if result.Application.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", result.Application.Status)
	}
	if result.Valuation != nil || result.Advice != nil {
		t.Error("failed advisories should yield no persisted advice")
	}
}

func TestSubmitNonDraftConflicts(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	app := completeDraft(&owner, nil)
	app.Status = domain.StatusPending
	stored := repo.put(app)

	svc := newTestService(repo, nil, nil)
	_, err := svc.Submit(context.Background(), Actor{UserID: &owner}, stored.ID)
	if kindOf(t, err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSubmitRetriesLostSwapOnce(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	app := repo.put(completeDraft(&owner, nil))
	repo.failTransitions = 1

	svc := newTestService(repo, nil, nil)
	result, err := svc.Submit(context.Background(), Actor{UserID: &owner}, app.ID)
	if err != nil {
		t.Fatalf("one lost swap should be retried: %v", err)
	}
	if result.Application.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", result.Application.Status)
	}

	repo2 := newFakeRepo()
	app2 := repo2.put(completeDraft(&owner, nil))
	repo2.failTransitions = 2

	_, err = svc2(repo2).Submit(context.Background(), Actor{UserID: &owner}, app2.ID)
	if kindOf(t, err) != apperr.KindConflict {
		t.Fatalf("two lost swaps should surface a conflict, got %v", err)
	}
}

func svc2(repo *fakeRepo) *Service { return newTestService(repo, nil, nil) }

func TestApprovePolicyCeiling(t *testing.T) {
	admin := uuid.New()
	owner := uuid.New()

	// Collateral worth 30000 caps the loan at 15000 under a 0.5 LTV.
	tests := []struct {
		name     string
		amount   float64
		wantKind apperr.Kind
		wantOK   bool
	}{
		{name: "within policy", amount: 15000, wantOK: true},
		{name: "over ltv ceiling", amount: 15001, wantKind: apperr.KindPolicyViolation},
		{name: "zero amount", amount: 0, wantKind: apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			app := completeDraft(&owner, nil)
			app.Status = domain.StatusPending
			stored := repo.put(app)

			svc := newTestService(repo, nil, nil)
			actor := Actor{UserID: &admin, IsAdmin: true}

			final, err := svc.Approve(context.Background(), actor, stored.ID, ApproveInput{ApprovedAmount: tt.amount, Notes: "ok"})
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Approve() error: %v", err)
				}
				if final.Status != domain.StatusApproved {
					t.Errorf("status = %s, want approved", final.Status)
				}
				if final.ApprovedAmount == nil || *final.ApprovedAmount != tt.amount {
					t.Errorf("approved amount not persisted")
				}
				return
			}
			if kindOf(t, err) != tt.wantKind {
				t.Fatalf("kind = %v, want %v (err %v)", kindOf(t, err), tt.wantKind, err)
			}
		})
	}
}

func TestApprovePolicyViolationDetails(t *testing.T) {
	repo := newFakeRepo()
	admin := uuid.New()
	owner := uuid.New()
	app := completeDraft(&owner, nil)
	app.Status = domain.StatusPending
	stored := repo.put(app)

	svc := newTestService(repo, nil, nil)
	_, err := svc.Approve(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID, ApproveInput{ApprovedAmount: 20000})

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %v", err)
	}
	violation, ok := appErr.Details.(*policy.Violation)
	if !ok {
		t.Fatalf("details type = %T, want *policy.Violation", appErr.Details)
	}
	if violation.MaxEligible != 15000 {
		t.Errorf("MaxEligible = %v, want 15000", violation.MaxEligible)
	}
	if violation.VehicleValue != 30000 {
		t.Errorf("VehicleValue = %v, want 30000", violation.VehicleValue)
	}
}

func TestRejectClearsApprovedAmount(t *testing.T) {
	repo := newFakeRepo()
	admin := uuid.New()
	owner := uuid.New()
	app := completeDraft(&owner, nil)
	app.Status = domain.StatusPending
	app.ApprovedAmount = ptr(9000.0)
	stored := repo.put(app)

	svc := newTestService(repo, nil, nil)
	final, err := svc.Reject(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID, "title lien unresolved")
	if err != nil {
		t.Fatalf("Reject() error: %v", err)
	}
	if final.Status != domain.StatusRejected {
		t.Errorf("status = %s, want rejected", final.Status)
	}
	if final.ApprovedAmount != nil {
		t.Error("rejection must clear any approved amount")
	}
	if final.ApprovalNotes != "title lien unresolved" {
		t.Errorf("notes = %q", final.ApprovalNotes)
	}
}

func TestDecisionsRequireAdmin(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	app := completeDraft(&owner, nil)
	app.Status = domain.StatusPending
	stored := repo.put(app)

	svc := newTestService(repo, nil, nil)
	actor := Actor{UserID: &owner} // the owner, but not an admin

	if _, err := svc.Approve(context.Background(), actor, stored.ID, ApproveInput{ApprovedAmount: 1000}); kindOf(t, err) != apperr.KindForbidden {
		t.Errorf("Approve by non-admin: got %v", err)
	}
	if _, err := svc.Reject(context.Background(), actor, stored.ID, "no"); kindOf(t, err) != apperr.KindForbidden {
		t.Errorf("Reject by non-admin: got %v", err)
	}
	if _, err := svc.RaiseQuery(context.Background(), actor, stored.ID, "why"); kindOf(t, err) != apperr.KindForbidden {
		t.Errorf("RaiseQuery by non-admin: got %v", err)
	}
}

func TestQueryRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	admin := uuid.New()
	owner := uuid.New()
	app := completeDraft(&owner, nil)
	app.Status = domain.StatusPending
	stored := repo.put(app)

	svc := newTestService(repo, nil, nil)

	queried, err := svc.RaiseQuery(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID, "please upload the title")
	if err != nil {
		t.Fatalf("RaiseQuery() error: %v", err)
	}
	if queried.Status != domain.StatusQuery {
		t.Fatalf("status = %s, want query", queried.Status)
	}
	notes, _ := repo.ListNotes(context.Background(), stored.ID)
	if len(notes) != 1 || notes[0].Body != "please upload the title" {
		t.Errorf("query should be recorded as a note, got %+v", notes)
	}

	// The admin cannot resolve on the applicant's behalf.
	if _, err := svc.ResolveQuery(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID); kindOf(t, err) != apperr.KindForbidden {
		t.Errorf("admin resolving a query: got %v", err)
	}

	resolved, err := svc.ResolveQuery(context.Background(), Actor{UserID: &owner}, stored.ID)
	if err != nil {
		t.Fatalf("ResolveQuery() error: %v", err)
	}
	if resolved.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", resolved.Status)
	}
}

func TestWithdraw(t *testing.T) {
	owner := uuid.New()
	tests := []struct {
		name     string
		status   domain.Status
		wantKind apperr.Kind
		wantOK   bool
	}{
		{name: "from draft", status: domain.StatusDraft, wantOK: true},
		{name: "from pending", status: domain.StatusPending, wantOK: true},
		{name: "from approved", status: domain.StatusApproved, wantKind: apperr.KindConflict},
		{name: "from rejected", status: domain.StatusRejected, wantKind: apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			app := completeDraft(&owner, nil)
			app.Status = tt.status
			stored := repo.put(app)

			svc := newTestService(repo, nil, nil)
			final, err := svc.Withdraw(context.Background(), Actor{UserID: &owner}, stored.ID)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Withdraw() error: %v", err)
				}
				if final.Status != domain.StatusWithdrawn {
					t.Errorf("status = %s, want withdrawn", final.Status)
				}
				return
			}
			if kindOf(t, err) != tt.wantKind {
				t.Fatalf("kind = %v, want %v", kindOf(t, err), tt.wantKind)
			}
		})
	}
}

func TestWithdrawIsApplicantOnly(t *testing.T) {
	owner := uuid.New()
	admin := uuid.New()

	repo := newFakeRepo()
	app := completeDraft(&owner, nil)
	app.Status = domain.StatusPending
	stored := repo.put(app)

	svc := newTestService(repo, nil, nil)

	_, err := svc.Withdraw(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID)
	if kindOf(t, err) != apperr.KindForbidden {
		t.Fatalf("admin withdraw of a foreign application: got %v, want forbidden", err)
	}

	after, _ := repo.GetByID(context.Background(), stored.ID)
	if after.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending (unchanged)", after.Status)
	}

	// Admins who own the application are still applicants.
	own := completeDraft(&admin, nil)
	own.Status = domain.StatusPending
	ownStored := repo.put(own)
	final, err := svc.Withdraw(context.Background(), Actor{UserID: &admin, IsAdmin: true}, ownStored.ID)
	if err != nil {
		t.Fatalf("owner withdraw error: %v", err)
	}
	if final.Status != domain.StatusWithdrawn {
		t.Errorf("status = %s, want withdrawn", final.Status)
	}
}

func TestAuthorizationHidesForeignApplications(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	stranger := uuid.New()
	stored := repo.put(completeDraft(&owner, nil))

	svc := newTestService(repo, nil, nil)

	if _, err := svc.Get(context.Background(), Actor{UserID: &stranger}, stored.ID); kindOf(t, err) != apperr.KindNotFound {
		t.Errorf("foreign user access: got %v, want not-found", err)
	}
	if _, err := svc.Get(context.Background(), Actor{SessionKey: "wrong-key"}, stored.ID); kindOf(t, err) != apperr.KindNotFound {
		t.Errorf("wrong session key: got %v, want not-found", err)
	}
	if _, err := svc.Get(context.Background(), Actor{UserID: &stranger, IsAdmin: true}, stored.ID); err != nil {
		t.Errorf("admin access should succeed: %v", err)
	}
}

func TestSessionKeyAccess(t *testing.T) {
	repo := newFakeRepo()
	sessionKey := uuid.NewString()
	stored := repo.put(completeDraft(nil, &sessionKey))

	svc := newTestService(repo, nil, nil)
	app, err := svc.Get(context.Background(), Actor{SessionKey: sessionKey}, stored.ID)
	if err != nil {
		t.Fatalf("session key access failed: %v", err)
	}
	if app.ID != stored.ID {
		t.Errorf("got application %s, want %s", app.ID, stored.ID)
	}
}

func TestCreateDraftIssuesSessionKey(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, nil, nil)

	app, key, err := svc.CreateDraft(context.Background(), Actor{}, CreateDraftInput{Amount: 5000})
	if err != nil {
		t.Fatalf("CreateDraft() error: %v", err)
	}
	if key == "" {
		t.Fatal("anonymous draft must receive a session key")
	}
	if app.OwnerUserID != nil {
		t.Error("anonymous draft must not have an owner")
	}

	owner := uuid.New()
	app2, key2, err := svc.CreateDraft(context.Background(), Actor{UserID: &owner}, CreateDraftInput{Amount: 5000})
	if err != nil {
		t.Fatalf("CreateDraft() error: %v", err)
	}
	if key2 != "" {
		t.Error("authenticated draft must not receive a session key")
	}
	if app2.OwnerUserID == nil || *app2.OwnerUserID != owner {
		t.Error("authenticated draft must be owned by the creator")
	}
}

func TestResolveDraftOwnership(t *testing.T) {
	repo := newFakeRepo()
	sessionKey := uuid.NewString()
	stored := repo.put(completeDraft(nil, &sessionKey))

	otherKey := uuid.NewString()
	other := completeDraft(nil, &otherKey)
	other.Personal.Email = "someone-else@example.com"
	repo.put(other)

	owner := uuid.New()
	svc := newTestService(repo, nil, nil)

	claimed, err := svc.ResolveDraftOwnership(context.Background(), Actor{UserID: &owner, Email: "jordan@example.com"})
	if err != nil {
		t.Fatalf("ResolveDraftOwnership() error: %v", err)
	}
	if len(claimed) != 1 || claimed[0] != stored.ID {
		t.Fatalf("claimed = %v, want [%s]", claimed, stored.ID)
	}

	app, _ := repo.GetByID(context.Background(), stored.ID)
	if app.OwnerUserID == nil || *app.OwnerUserID != owner {
		t.Error("claimed draft should be owned")
	}
	if app.SessionKey != nil {
		t.Error("claimed draft should have no session key")
	}

	// Idempotent on repeat.
	again, err := svc.ResolveDraftOwnership(context.Background(), Actor{UserID: &owner, Email: "jordan@example.com"})
	if err != nil {
		t.Fatalf("second resolve error: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second resolve claimed %v, want none", again)
	}
}

func TestClaimDraft(t *testing.T) {
	owner := uuid.New()

	t.Run("by session key", func(t *testing.T) {
		repo := newFakeRepo()
		sessionKey := uuid.NewString()
		stored := repo.put(completeDraft(nil, &sessionKey))

		svc := newTestService(repo, nil, nil)
		if err := svc.ClaimDraft(context.Background(), Actor{UserID: &owner, SessionKey: sessionKey}, stored.ID); err != nil {
			t.Fatalf("ClaimDraft() error: %v", err)
		}
		app, _ := repo.GetByID(context.Background(), stored.ID)
		if app.OwnerUserID == nil || *app.OwnerUserID != owner {
			t.Error("draft should be owned after claim")
		}
		if app.SessionKey != nil {
			t.Error("session key should be cleared")
		}
	})

	t.Run("by matching email without session key", func(t *testing.T) {
		repo := newFakeRepo()
		sessionKey := uuid.NewString()
		stored := repo.put(completeDraft(nil, &sessionKey))

		svc := newTestService(repo, nil, nil)
		actor := Actor{UserID: &owner, Email: "JORDAN@example.com"}
		if err := svc.ClaimDraft(context.Background(), actor, stored.ID); err != nil {
			t.Fatalf("email-matching claim failed: %v", err)
		}
		app, _ := repo.GetByID(context.Background(), stored.ID)
		if app.OwnerUserID == nil || *app.OwnerUserID != owner {
			t.Error("draft should be owned after email-matching claim")
		}
	})

	t.Run("sweeps sibling drafts with the same email", func(t *testing.T) {
		repo := newFakeRepo()
		sessionKey := uuid.NewString()
		stored := repo.put(completeDraft(nil, &sessionKey))

		siblingKey := uuid.NewString()
		sibling := repo.put(completeDraft(nil, &siblingKey))

		svc := newTestService(repo, nil, nil)
		if err := svc.ClaimDraft(context.Background(), Actor{UserID: &owner, SessionKey: sessionKey}, stored.ID); err != nil {
			t.Fatalf("ClaimDraft() error: %v", err)
		}
		app, _ := repo.GetByID(context.Background(), sibling.ID)
		if app.OwnerUserID == nil || *app.OwnerUserID != owner {
			t.Error("sibling draft with the same email should be claimed too")
		}
	})

	t.Run("no proof", func(t *testing.T) {
		repo := newFakeRepo()
		sessionKey := uuid.NewString()
		stored := repo.put(completeDraft(nil, &sessionKey))

		svc := newTestService(repo, nil, nil)
		actor := Actor{UserID: &owner, Email: "other@example.com"}
		if err := svc.ClaimDraft(context.Background(), actor, stored.ID); kindOf(t, err) != apperr.KindNotFound {
			t.Fatalf("claim without proof: got %v, want not-found", err)
		}
	})

	t.Run("owned by another account", func(t *testing.T) {
		repo := newFakeRepo()
		stranger := uuid.New()
		stored := repo.put(completeDraft(&stranger, nil))

		svc := newTestService(repo, nil, nil)
		if err := svc.ClaimDraft(context.Background(), Actor{UserID: &owner, Email: "jordan@example.com"}, stored.ID); kindOf(t, err) != apperr.KindForbidden {
			t.Fatalf("claim of a foreign application: got %v, want forbidden", err)
		}
	})
}

func TestRecordDocumentAppendsPhotoKey(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	stored := repo.put(completeDraft(&owner, nil))

	svc := newTestService(repo, nil, nil)
	doc, err := svc.RecordDocument(context.Background(), Actor{UserID: &owner}, stored.ID, DocumentInput{
		DocumentType: domain.DocumentTypeVehiclePhoto,
		FileName:     "rear.jpg",
		StorageKey:   "photos/rear.jpg",
		ContentType:  "image/jpeg",
		SizeBytes:    1024,
	})
	if err != nil {
		t.Fatalf("RecordDocument() error: %v", err)
	}
	if doc.Title != "rear.jpg" {
		t.Errorf("title should default to file name, got %q", doc.Title)
	}

	app, _ := repo.GetByID(context.Background(), stored.ID)
	if len(app.Vehicle.PhotoKeys) != 2 {
		t.Errorf("photo keys = %v, want the new key appended", app.Vehicle.PhotoKeys)
	}

	if _, err := svc.RecordDocument(context.Background(), Actor{UserID: &owner}, stored.ID, DocumentInput{
		DocumentType: "selfie",
		FileName:     "x.jpg",
		StorageKey:   "y",
	}); kindOf(t, err) != apperr.KindValidation {
		t.Errorf("unknown document type: got %v", err)
	}
}

func TestNotesAreAdminOnly(t *testing.T) {
	repo := newFakeRepo()
	admin := uuid.New()
	owner := uuid.New()
	stored := repo.put(completeDraft(&owner, nil))

	svc := newTestService(repo, nil, nil)

	if _, err := svc.AddNote(context.Background(), Actor{UserID: &owner}, stored.ID, "hmm"); kindOf(t, err) != apperr.KindForbidden {
		t.Errorf("owner adding note: got %v", err)
	}
	if _, err := svc.AddNote(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID, "verified employer"); err != nil {
		t.Fatalf("admin adding note: %v", err)
	}
	if _, err := svc.ListNotes(context.Background(), Actor{UserID: &owner}, stored.ID); kindOf(t, err) != apperr.KindForbidden {
		t.Errorf("owner listing notes: got %v", err)
	}
	notes, err := svc.ListNotes(context.Background(), Actor{UserID: &admin, IsAdmin: true}, stored.ID)
	if err != nil || len(notes) != 1 {
		t.Errorf("admin listing notes: %v, %d notes", err, len(notes))
	}
}

func TestDeleteDraftOnlyWhileDraft(t *testing.T) {
	repo := newFakeRepo()
	owner := uuid.New()
	draft := repo.put(completeDraft(&owner, nil))

	pending := completeDraft(&owner, nil)
	pending.Status = domain.StatusPending
	submitted := repo.put(pending)

	svc := newTestService(repo, nil, nil)

	if err := svc.DeleteDraft(context.Background(), Actor{UserID: &owner}, draft.ID); err != nil {
		t.Fatalf("DeleteDraft() error: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), draft.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Error("draft should be gone")
	}
	if err := svc.DeleteDraft(context.Background(), Actor{UserID: &owner}, submitted.ID); kindOf(t, err) != apperr.KindConflict {
		t.Errorf("deleting a submitted application: got %v", err)
	}
}
