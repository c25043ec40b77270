package companies

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/retail-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

const (
	// HeaderCompanyID carries the company identifier.
	HeaderCompanyID = "X-Company-ID"
	// HeaderFiscalYearID carries the fiscal year identifier.
	HeaderFiscalYearID = "X-Fiscal-Year-ID"
)

// TenantResolver is satisfied by *Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, companyID, fiscalYearID int64) (shared.Tenant, error)
}

// RequireTenant resolves the tenant from request headers and stores it in the request context.
func RequireTenant(resolver TenantResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			companyID, err := headerID(r, HeaderCompanyID)
			if err != nil {
				httpx.RespondError(w, err)
				return
			}
			fiscalYearID, err := headerID(r, HeaderFiscalYearID)
			if err != nil {
				httpx.RespondError(w, shared.Configurationf("%s header required", HeaderFiscalYearID))
				return
			}
			tenant, err := resolver.Resolve(r.Context(), companyID, fiscalYearID)
			if err != nil {
				if logger != nil {
					logger.Warn("resolve tenant", slog.Int64("company_id", companyID), slog.Int64("fiscal_year_id", fiscalYearID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithTenant(r.Context(), tenant)))
		})
	}
}

func headerID(r *http.Request, name string) (int64, error) {
	raw := r.Header.Get(name)
	if raw == "" {
		return 0, shared.Validationf("%s header required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("%s header invalid", name)
	}
	return id, nil
}
