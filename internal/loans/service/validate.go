package service

import (
	"drivecash_backend/internal/loans/domain"
)

// validateForSubmission checks every submission requirement and returns the
// complete field-error map, never failing fast on the first violation.
func validateForSubmission(app domain.Application) map[string]string {
	violations := make(map[string]string)

	if !app.AcceptTerms {
		violations["accept_terms"] = "terms and conditions must be accepted"
	}
	if app.Signature == "" {
		violations["signature"] = "signature is required"
	}
	if app.Amount <= 0 {
		violations["amount"] = "requested amount is required"
	}

	if app.Personal == nil {
		violations["personal_info"] = "personal information is required"
	} else {
		if app.Personal.FirstName == "" {
			violations["first_name"] = "first name is required"
		}
		if app.Personal.LastName == "" {
			violations["last_name"] = "last name is required"
		}
		if app.Personal.Email == "" {
			violations["email"] = "email is required"
		}
		if app.Personal.Phone == "" {
			violations["phone"] = "phone number is required"
		}
		if app.Personal.DateOfBirth == nil {
			violations["date_of_birth"] = "date of birth is required"
		}
	}

	if app.Address == nil {
		violations["address"] = "address is required"
	} else {
		if app.Address.Street == "" {
			violations["street"] = "street is required"
		}
		if app.Address.City == "" {
			violations["city"] = "city is required"
		}
		if app.Address.State == "" {
			violations["state"] = "state is required"
		}
		if app.Address.ZipCode == "" {
			violations["zip_code"] = "zip code is required"
		}
	}

	if app.Financial == nil {
		violations["financial_info"] = "financial information is required"
	} else {
		if app.Financial.EmploymentStatus == "" {
			violations["employment_status"] = "employment status is required"
		}
		hasAnnual := app.Financial.AnnualIncome != nil && *app.Financial.AnnualIncome > 0
		hasMonthly := app.Financial.GrossMonthlyIncome != nil && *app.Financial.GrossMonthlyIncome > 0
		if !hasAnnual && !hasMonthly {
			violations["income"] = "annual or gross monthly income is required"
		}
	}

	if app.Vehicle == nil {
		violations["vehicle_info"] = "vehicle information is required"
	} else {
		if app.Vehicle.Make == "" {
			violations["vehicle_make"] = "vehicle make is required"
		}
		if app.Vehicle.Model == "" {
			violations["vehicle_model"] = "vehicle model is required"
		}
		if app.Vehicle.Year == 0 {
			violations["vehicle_year"] = "vehicle year is required"
		}
		if app.Vehicle.VIN == "" {
			violations["vehicle_vin"] = "vehicle VIN is required"
		}
	}

	return violations
}
