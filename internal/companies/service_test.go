package companies

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-ledger/internal/calendar"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

type memoryRepo struct {
	companies map[int64]Company
	years     map[int64]FiscalYear
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		companies: map[int64]Company{
			1: {ID: 1, Code: "KTM", Name: "Kathmandu Traders", Calendar: calendar.Nepali},
			2: {ID: 2, Code: "BAD", Name: "Broken", Calendar: calendar.System("lunar")},
		},
		years: map[int64]FiscalYear{
			10: {ID: 10, CompanyID: 1, Name: "2080/81", StartDate: time.Date(2023, 7, 17, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func (m *memoryRepo) GetCompany(_ context.Context, id int64) (Company, error) {
	c, ok := m.companies[id]
	if !ok {
		return Company{}, shared.NotFoundf("company %d", id)
	}
	return c, nil
}

func (m *memoryRepo) GetFiscalYear(_ context.Context, companyID, id int64) (FiscalYear, error) {
	fy, ok := m.years[id]
	if !ok || fy.CompanyID != companyID {
		return FiscalYear{}, shared.NotFoundf("fiscal year %d", id)
	}
	return fy, nil
}

func (m *memoryRepo) ListFiscalYears(_ context.Context, companyID int64) ([]FiscalYear, error) {
	var out []FiscalYear
	for _, fy := range m.years {
		if fy.CompanyID == companyID {
			out = append(out, fy)
		}
	}
	return out, nil
}

func TestResolveTenant(t *testing.T) {
	resolver := NewResolver(newMemoryRepo())
	tenant, err := resolver.Resolve(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tenant.CompanyID)
	assert.Equal(t, int64(10), tenant.FiscalYearID)
	assert.Equal(t, calendar.Nepali, tenant.Calendar)
	assert.True(t, tenant.InFiscalYear(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, tenant.InFiscalYear(time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)))
}

func TestResolveTenantErrors(t *testing.T) {
	resolver := NewResolver(newMemoryRepo())
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, 0, 10)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = resolver.Resolve(ctx, 1, 0)
	require.ErrorIs(t, err, shared.ErrConfiguration)

	_, err = resolver.Resolve(ctx, 99, 10)
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = resolver.Resolve(ctx, 1, 11)
	require.ErrorIs(t, err, shared.ErrConfiguration)

	_, err = resolver.Resolve(ctx, 2, 10)
	require.ErrorIs(t, err, shared.ErrConfiguration)
}

func TestRequireTenantMiddleware(t *testing.T) {
	var seen shared.Tenant
	handler := RequireTenant(NewResolver(newMemoryRepo()), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = shared.TenantFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCompanyID, "1")
	req.Header.Set(HeaderFiscalYearID, "10")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, int64(10), seen.FiscalYearID)

	missing := httptest.NewRequest(http.MethodGet, "/", nil)
	missing.Header.Set(HeaderCompanyID, "1")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, missing)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	bad := httptest.NewRequest(http.MethodGet, "/", nil)
	bad.Header.Set(HeaderCompanyID, "abc")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, bad)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
