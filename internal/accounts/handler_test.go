package accounts

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(slog.New(slog.DiscardHandler), NewService(repo, nil, nil, nil))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithTenant(req.Context(), testTenant)))
		})
	})
	r.Route("/accounts", h.MountRoutes)
	return r
}

func TestHandlerCreateAndList(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	body := `{"name":"Ram Stores","group":"Sundry Debtors","opening_amount":"120.50","opening_sign":"Dr"}`
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/accounts?groups=Sundry%20Debtors", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Accounts []ledger.Account `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Accounts, 1)
	assert.Equal(t, "120.5", resp.Accounts[0].Opening.Amount.String())
}

func TestHandlerRejectsInvalidPayload(t *testing.T) {
	router := newTestRouter(newMemoryRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"group":"Sundry Debtors"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/accounts/99/opening-balance", strings.NewReader(`{"amount":"1","sign":"Dr"}`)))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
