package companies

import (
	"context"
	"errors"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// Resolver turns header supplied identifiers into a validated tenant.
type Resolver struct {
	repo Repository
}

// NewResolver builds a Resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve loads the company and fiscal year and returns the tenant for the pair.
func (r *Resolver) Resolve(ctx context.Context, companyID, fiscalYearID int64) (shared.Tenant, error) {
	if companyID <= 0 {
		return shared.Tenant{}, shared.Validationf("company id required")
	}
	if fiscalYearID <= 0 {
		return shared.Tenant{}, shared.Configurationf("fiscal year id required")
	}
	company, err := r.repo.GetCompany(ctx, companyID)
	if err != nil {
		return shared.Tenant{}, err
	}
	if _, err := calendar.For(company.Calendar); err != nil {
		return shared.Tenant{}, shared.Configurationf("company %d: %v", companyID, err)
	}
	fy, err := r.repo.GetFiscalYear(ctx, companyID, fiscalYearID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Tenant{}, shared.Configurationf("fiscal year %d not configured for company %d", fiscalYearID, companyID)
		}
		return shared.Tenant{}, err
	}
	tenant := shared.Tenant{
		CompanyID:       company.ID,
		FiscalYearID:    fy.ID,
		FiscalYearStart: fy.StartDate,
		FiscalYearEnd:   fy.EndDate,
		Calendar:        company.Calendar,
	}
	if err := tenant.Validate(); err != nil {
		return shared.Tenant{}, err
	}
	return tenant, nil
}

// FiscalYears lists the fiscal years of a company, newest first.
func (r *Resolver) FiscalYears(ctx context.Context, companyID int64) ([]FiscalYear, error) {
	return r.repo.ListFiscalYears(ctx, companyID)
}
