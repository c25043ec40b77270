package shared

import (
	"context"
	"time"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
)

// Tenant carries the company and fiscal year a request operates in. It is resolved once by
// middleware and then passed explicitly into services.
type Tenant struct {
	CompanyID       int64
	FiscalYearID    int64
	FiscalYearStart time.Time
	FiscalYearEnd   time.Time
	Calendar        calendar.System
}

// Validate reports whether the tenant is usable for ledger work.
func (t Tenant) Validate() error {
	if t.CompanyID <= 0 {
		return Validationf("company required")
	}
	if t.FiscalYearID <= 0 {
		return Configurationf("fiscal year required")
	}
	if !t.FiscalYearEnd.IsZero() && t.FiscalYearEnd.Before(t.FiscalYearStart) {
		return Configurationf("fiscal year %d ends before it starts", t.FiscalYearID)
	}
	return nil
}

// CalendarSystem returns the tenant calendar implementation.
func (t Tenant) CalendarSystem() (calendar.Calendar, error) {
	cal, err := calendar.For(t.Calendar)
	if err != nil {
		return nil, Configurationf("%v", err)
	}
	return cal, nil
}

// InFiscalYear reports whether date lies inside the fiscal year bounds.
func (t Tenant) InFiscalYear(date time.Time) bool {
	if !t.FiscalYearStart.IsZero() && date.Before(calendar.Midnight(t.FiscalYearStart)) {
		return false
	}
	if !t.FiscalYearEnd.IsZero() && date.After(calendar.Midnight(t.FiscalYearEnd)) {
		return false
	}
	return true
}

type tenantContextKey struct{}

// ContextWithTenant stores the resolved tenant in context.
func ContextWithTenant(ctx context.Context, tenant Tenant) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, tenant)
}

// TenantFromContext extracts the tenant placed by middleware.
func TenantFromContext(ctx context.Context) (Tenant, bool) {
	tenant, ok := ctx.Value(tenantContextKey{}).(Tenant)
	return tenant, ok
}
