package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"drivecash_backend/internal/loans/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("application not found")

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const applicationColumns = `
	id, owner_user_id, session_key, status, amount, approved_amount,
	term_months, applicant_estimated_value, accept_terms, signature, signed_at,
	approved_by, approved_at, approval_notes, submitted_at, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, params CreateParams) (domain.Application, error) {
	id := uuid.New()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO applications (
			id, owner_user_id, session_key, status, amount, term_months,
			applicant_estimated_value
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+applicationColumns, id, params.OwnerUserID, params.SessionKey,
		domain.StatusDraft, params.Amount, params.TermMonths, params.ApplicantEstimatedValue)

	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Application, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Application{}, ErrNotFound
		}
		return domain.Application{}, err
	}

	if err := r.hydrate(ctx, &app); err != nil {
		return domain.Application{}, err
	}
	return app, nil
}

func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]domain.Application, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.collectAndHydrate(ctx, rows)
}

func (r *PostgresRepository) List(ctx context.Context, params ListParams) ([]domain.Application, int, error) {
	where := ""
	args := []interface{}{}
	if params.Status != nil {
		where = "WHERE status = $1"
		args = append(args, *params.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM applications %s`, where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT %s FROM applications %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, applicationColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	apps, err := r.collectAndHydrate(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, ownerUserID *uuid.UUID) (domain.StatusCounts, error) {
	query := `SELECT status, COUNT(*) FROM applications`
	args := []interface{}{}
	if ownerUserID != nil {
		query += ` WHERE owner_user_id = $1`
		args = append(args, *ownerUserID)
	}
	query += ` GROUP BY status`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	defer rows.Close()

	var counts domain.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.StatusCounts{}, err
		}
		counts.Total += n
		switch domain.Status(status) {
		case domain.StatusDraft:
			counts.Draft = n
		case domain.StatusPending:
			counts.Pending = n
		case domain.StatusQuery:
			counts.Query = n
		case domain.StatusApproved:
			counts.Approved = n
		case domain.StatusRejected:
			counts.Rejected = n
		case domain.StatusWithdrawn:
			counts.Withdrawn = n
		}
	}
	return counts, rows.Err()
}

func (r *PostgresRepository) UpdateCore(ctx context.Context, id uuid.UUID, params UpdateCoreParams) error {
	sets := []string{"updated_at = now()"}
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Amount != nil {
		add("amount", *params.Amount)
	}
	if params.TermMonths != nil {
		add("term_months", *params.TermMonths)
	}
	if params.ApplicantEstimatedValue != nil {
		add("applicant_estimated_value", *params.ApplicantEstimatedValue)
	}
	if params.AcceptTerms != nil {
		add("accept_terms", *params.AcceptTerms)
	}
	if params.Signature != nil {
		add("signature", *params.Signature)
		// signed_at is set iff the signature is non-empty
		if *params.Signature == "" {
			sets = append(sets, "signed_at = NULL")
		} else if params.SignedAt != nil {
			add("signed_at", *params.SignedAt)
		}
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE applications SET %s WHERE id = $1
	`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) TransitionStatus(ctx context.Context, id uuid.UUID, params TransitionParams) (bool, error) {
	sets := []string{"status = $3", "updated_at = now()"}
	args := []interface{}{id, params.From, params.To}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.OwnerUserID != nil {
		add("owner_user_id", *params.OwnerUserID)
	}
	if params.ClearSession {
		sets = append(sets, "session_key = NULL")
	}
	if params.SubmittedAt != nil {
		add("submitted_at", *params.SubmittedAt)
	}
	if params.ApprovedAmount != nil {
		add("approved_amount", *params.ApprovedAmount)
	}
	if params.ClearApproved {
		sets = append(sets, "approved_amount = NULL")
	}
	if params.ApprovedBy != nil {
		add("approved_by", *params.ApprovedBy)
	}
	if params.ApprovedAt != nil {
		add("approved_at", *params.ApprovedAt)
	}
	if params.ApprovalNotes != nil {
		add("approval_notes", *params.ApprovalNotes)
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE applications SET %s WHERE id = $1 AND status = $2
	`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) UpsertPersonal(ctx context.Context, id uuid.UUID, info domain.PersonalInfo) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_personal_info (
			application_id, first_name, last_name, email, phone, date_of_birth,
			national_id, bank_name
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (application_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			date_of_birth = EXCLUDED.date_of_birth,
			national_id = EXCLUDED.national_id,
			bank_name = EXCLUDED.bank_name
	`, id, info.FirstName, info.LastName, info.Email, info.Phone, info.DateOfBirth,
		info.NationalID, info.BankName)
	return err
}

func (r *PostgresRepository) UpsertIdentification(ctx context.Context, id uuid.UUID, info domain.IdentificationInfo) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_identification (
			application_id, id_type, id_number, issue_date, expiry_date
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (application_id) DO UPDATE SET
			id_type = EXCLUDED.id_type,
			id_number = EXCLUDED.id_number,
			issue_date = EXCLUDED.issue_date,
			expiry_date = EXCLUDED.expiry_date
	`, id, info.IDType, info.IDNumber, info.IssueDate, info.ExpiryDate)
	return err
}

func (r *PostgresRepository) UpsertFinancial(ctx context.Context, id uuid.UUID, profile domain.FinancialProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_financial (
			application_id, employment_status, annual_income, gross_monthly_income,
			employer_name, months_employed
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			employment_status = EXCLUDED.employment_status,
			annual_income = EXCLUDED.annual_income,
			gross_monthly_income = EXCLUDED.gross_monthly_income,
			employer_name = EXCLUDED.employer_name,
			months_employed = EXCLUDED.months_employed
	`, id, profile.EmploymentStatus, profile.AnnualIncome, profile.GrossMonthlyIncome,
		profile.EmployerName, profile.MonthsEmployed)
	return err
}

func (r *PostgresRepository) UpsertAddress(ctx context.Context, id uuid.UUID, addr domain.Address) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_addresses (
			application_id, street, city, state, zip_code, country
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id) DO UPDATE SET
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip_code = EXCLUDED.zip_code,
			country = EXCLUDED.country
	`, id, addr.Street, addr.City, addr.State, addr.ZipCode, addr.Country)
	return err
}

func (r *PostgresRepository) UpsertVehicle(ctx context.Context, id uuid.UUID, vehicle domain.VehicleInfo) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_vehicles (
			application_id, make, model, year, vin, mileage, color, photo_keys
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (application_id) DO UPDATE SET
			make = EXCLUDED.make,
			model = EXCLUDED.model,
			year = EXCLUDED.year,
			vin = EXCLUDED.vin,
			mileage = EXCLUDED.mileage,
			color = EXCLUDED.color,
			photo_keys = EXCLUDED.photo_keys
	`, id, vehicle.Make, vehicle.Model, vehicle.Year, vehicle.VIN, vehicle.Mileage,
		vehicle.Color, vehicle.PhotoKeys)
	return err
}

func (r *PostgresRepository) DeleteDraft(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM applications WHERE id = $1 AND status = $2
	`, id, domain.StatusDraft)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) SaveValuation(ctx context.Context, applicationID uuid.UUID, v domain.CollateralValuation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_valuations (
			application_id, make, model, year, condition, value_low, value_high,
			value_avg, ltv_ratio, max_eligible, risk_tier, confidence,
			detected_issues, detected_features, photos_analyzed, evaluated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (application_id) DO UPDATE SET
			make = EXCLUDED.make,
			model = EXCLUDED.model,
			year = EXCLUDED.year,
			condition = EXCLUDED.condition,
			value_low = EXCLUDED.value_low,
			value_high = EXCLUDED.value_high,
			value_avg = EXCLUDED.value_avg,
			ltv_ratio = EXCLUDED.ltv_ratio,
			max_eligible = EXCLUDED.max_eligible,
			risk_tier = EXCLUDED.risk_tier,
			confidence = EXCLUDED.confidence,
			detected_issues = EXCLUDED.detected_issues,
			detected_features = EXCLUDED.detected_features,
			photos_analyzed = EXCLUDED.photos_analyzed,
			evaluated_at = EXCLUDED.evaluated_at
	`, applicationID, v.Make, v.Model, v.Year, v.Condition, v.EstimatedValueLow,
		v.EstimatedValueHigh, v.EstimatedValueAvg, v.LTVRatio, v.MaxEligibleAmount,
		v.RiskTier, v.Confidence, v.DetectedIssues, v.DetectedFeatures,
		v.PhotosAnalyzed, v.EvaluatedAt)
	return err
}

func (r *PostgresRepository) SaveUnderwritingAdvice(ctx context.Context, applicationID uuid.UUID, advice domain.UnderwritingAdvice) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_underwriting (
			application_id, risk_tier, approval_suggestion, suggested_amount,
			rationale, confidence, generated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (application_id) DO UPDATE SET
			risk_tier = EXCLUDED.risk_tier,
			approval_suggestion = EXCLUDED.approval_suggestion,
			suggested_amount = EXCLUDED.suggested_amount,
			rationale = EXCLUDED.rationale,
			confidence = EXCLUDED.confidence,
			generated_at = EXCLUDED.generated_at
	`, applicationID, advice.RiskTier, advice.ApprovalSuggestion, advice.SuggestedAmount,
		advice.Rationale, advice.Confidence, advice.GeneratedAt)
	return err
}

func (r *PostgresRepository) ClaimDrafts(ctx context.Context, ownerUserID uuid.UUID, email string) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE applications a
		SET owner_user_id = $1, session_key = NULL, updated_at = now()
		FROM application_personal_info p
		WHERE p.application_id = a.id
		  AND a.owner_user_id IS NULL
		  AND lower(p.email) = lower($2)
		RETURNING a.id
	`, ownerUserID, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PostgresRepository) AddDocument(ctx context.Context, doc domain.Document) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_documents (
			id, application_id, document_type, title, file_name, storage_key,
			content_type, size_bytes, uploaded_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, doc.ID, doc.ApplicationID, doc.DocumentType, doc.Title, doc.FileName,
		doc.StorageKey, doc.ContentType, doc.SizeBytes, doc.UploadedAt)
	return err
}

func (r *PostgresRepository) ListDocuments(ctx context.Context, applicationID uuid.UUID) ([]domain.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, document_type, title, file_name, storage_key,
		       content_type, size_bytes, uploaded_at
		FROM application_documents
		WHERE application_id = $1
		ORDER BY uploaded_at DESC
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.ApplicationID, &d.DocumentType, &d.Title,
			&d.FileName, &d.StorageKey, &d.ContentType, &d.SizeBytes, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepository) AddNote(ctx context.Context, note domain.Note) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO application_notes (id, application_id, author_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, note.ID, note.ApplicationID, note.AuthorID, note.Body, note.CreatedAt)
	return err
}

func (r *PostgresRepository) ListNotes(ctx context.Context, applicationID uuid.UUID) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, application_id, author_id, body, created_at
		FROM application_notes
		WHERE application_id = $1
		ORDER BY created_at DESC
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := make([]domain.Note, 0)
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.ApplicationID, &n.AuthorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// =====================================
// Scan helpers
// =====================================

func scanApplication(row pgx.Row) (domain.Application, error) {
	var app domain.Application
	var status string
	err := row.Scan(
		&app.ID, &app.OwnerUserID, &app.SessionKey, &status, &app.Amount,
		&app.ApprovedAmount, &app.TermMonths, &app.ApplicantEstimatedValue,
		&app.AcceptTerms, &app.Signature, &app.SignedAt, &app.ApprovedBy,
		&app.ApprovedAt, &app.ApprovalNotes, &app.SubmittedAt, &app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return domain.Application{}, err
	}
	app.Status = domain.Status(status)
	return app, nil
}

func (r *PostgresRepository) collectAndHydrate(ctx context.Context, rows pgx.Rows) ([]domain.Application, error) {
	apps := make([]domain.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	rows.Close()

	for i := range apps {
		if err := r.hydrate(ctx, &apps[i]); err != nil {
			return nil, err
		}
	}
	return apps, nil
}

func (r *PostgresRepository) hydrate(ctx context.Context, app *domain.Application) error {
	var personal domain.PersonalInfo
	err := r.pool.QueryRow(ctx, `
		SELECT first_name, last_name, email, phone, date_of_birth, national_id, bank_name
		FROM application_personal_info WHERE application_id = $1
	`, app.ID).Scan(&personal.FirstName, &personal.LastName, &personal.Email,
		&personal.Phone, &personal.DateOfBirth, &personal.NationalID, &personal.BankName)
	switch {
	case err == nil:
		app.Personal = &personal
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var ident domain.IdentificationInfo
	err = r.pool.QueryRow(ctx, `
		SELECT id_type, id_number, issue_date, expiry_date
		FROM application_identification WHERE application_id = $1
	`, app.ID).Scan(&ident.IDType, &ident.IDNumber, &ident.IssueDate, &ident.ExpiryDate)
	switch {
	case err == nil:
		app.Identification = &ident
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var financial domain.FinancialProfile
	err = r.pool.QueryRow(ctx, `
		SELECT employment_status, annual_income, gross_monthly_income, employer_name, months_employed
		FROM application_financial WHERE application_id = $1
	`, app.ID).Scan(&financial.EmploymentStatus, &financial.AnnualIncome,
		&financial.GrossMonthlyIncome, &financial.EmployerName, &financial.MonthsEmployed)
	switch {
	case err == nil:
		app.Financial = &financial
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var addr domain.Address
	err = r.pool.QueryRow(ctx, `
		SELECT street, city, state, zip_code, country
		FROM application_addresses WHERE application_id = $1
	`, app.ID).Scan(&addr.Street, &addr.City, &addr.State, &addr.ZipCode, &addr.Country)
	switch {
	case err == nil:
		app.Address = &addr
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var vehicle domain.VehicleInfo
	err = r.pool.QueryRow(ctx, `
		SELECT make, model, year, vin, mileage, color, photo_keys
		FROM application_vehicles WHERE application_id = $1
	`, app.ID).Scan(&vehicle.Make, &vehicle.Model, &vehicle.Year, &vehicle.VIN,
		&vehicle.Mileage, &vehicle.Color, &vehicle.PhotoKeys)
	switch {
	case err == nil:
		app.Vehicle = &vehicle
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var valuation domain.CollateralValuation
	err = r.pool.QueryRow(ctx, `
		SELECT make, model, year, condition, value_low, value_high, value_avg,
		       ltv_ratio, max_eligible, risk_tier, confidence, detected_issues,
		       detected_features, photos_analyzed, evaluated_at
		FROM application_valuations WHERE application_id = $1
	`, app.ID).Scan(&valuation.Make, &valuation.Model, &valuation.Year,
		&valuation.Condition, &valuation.EstimatedValueLow, &valuation.EstimatedValueHigh,
		&valuation.EstimatedValueAvg, &valuation.LTVRatio, &valuation.MaxEligibleAmount,
		&valuation.RiskTier, &valuation.Confidence, &valuation.DetectedIssues,
		&valuation.DetectedFeatures, &valuation.PhotosAnalyzed, &valuation.EvaluatedAt)
	switch {
	case err == nil:
		app.Valuation = &valuation
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	var advice domain.UnderwritingAdvice
	err = r.pool.QueryRow(ctx, `
		SELECT risk_tier, approval_suggestion, suggested_amount, rationale,
		       confidence, generated_at
		FROM application_underwriting WHERE application_id = $1
	`, app.ID).Scan(&advice.RiskTier, &advice.ApprovalSuggestion, &advice.SuggestedAmount,
		&advice.Rationale, &advice.Confidence, &advice.GeneratedAt)
	switch {
	case err == nil:
		app.UnderwritingAdvice = &advice
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	return nil
}

// PurgeAbandonedDrafts hard-deletes anonymous drafts that went stale before
// the cutoff and never captured a contact email, so they can never be claimed.
// Drafts with an email on file are kept for ownership resolution.
func (r *PostgresRepository) PurgeAbandonedDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM applications a
		WHERE a.owner_user_id IS NULL
		  AND a.status = $1
		  AND a.updated_at < $2
		  AND NOT EXISTS (
			SELECT 1 FROM application_personal_info p
			WHERE p.application_id = a.id AND p.email <> ''
		  )
	`, domain.StatusDraft, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Compile-time check that the Postgres implementation satisfies Repository.
var _ Repository = (*PostgresRepository)(nil)
