package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/language"

	"github.com/odyssey-erp/retail-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

var displayLanguages = language.NewMatcher([]language.Tag{language.English, language.Nepali})

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ageing", h.ageing)
	r.Get("/accounts/{id}/ageing", h.accountAgeing)
	r.Get("/accounts/{id}/statement", h.statement)
	r.Get("/items/{id}/ledger", h.itemLedger)
}

func (h *Handler) ageing(w http.ResponseWriter, r *http.Request) {
	tenant, ok := httpx.Tenant(w, r)
	if !ok {
		return
	}
	cal, err := tenant.CalendarSystem()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf, err := httpx.ParseDateParam(r, "as_of", cal)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.AgeingReport(r.Context(), tenant, asOf)
	if err != nil {
		h.fail(w, "ageing report", tenant, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) accountAgeing(w http.ResponseWriter, r *http.Request) {
	tenant, id, from, to, ok := h.windowParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.AccountAgeing(r.Context(), tenant, id, from, to)
	if err != nil {
		h.fail(w, "account ageing", tenant, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	tenant, id, from, to, ok := h.windowParams(w, r)
	if !ok {
		return
	}
	tags, _, _ := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	tag, _, _ := displayLanguages.Match(tags...)
	result, err := h.service.Statement(r.Context(), tenant, id, from, to, NewFormatter(tag))
	if err != nil {
		h.fail(w, "account statement", tenant, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) itemLedger(w http.ResponseWriter, r *http.Request) {
	tenant, id, from, to, ok := h.windowParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.ItemLedger(r.Context(), tenant, id, from, to)
	if err != nil {
		h.fail(w, "item ledger", tenant, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) windowParams(w http.ResponseWriter, r *http.Request) (tenant shared.Tenant, id int64, from, to *time.Time, ok bool) {
	tenant, ok = httpx.Tenant(w, r)
	if !ok {
		return
	}
	fail := func(err error) {
		httpx.RespondError(w, err)
		ok = false
	}
	cal, err := tenant.CalendarSystem()
	if err != nil {
		fail(err)
		return
	}
	if id, err = httpx.ParseID(chi.URLParam(r, "id")); err != nil {
		fail(err)
		return
	}
	if from, err = httpx.ParseDateParam(r, "from", cal); err != nil {
		fail(err)
		return
	}
	if to, err = httpx.ParseDateParam(r, "to", cal); err != nil {
		fail(err)
		return
	}
	if from == nil {
		fail(httpx.ErrMissingParam("from"))
		return
	}
	if to == nil {
		fail(httpx.ErrMissingParam("to"))
		return
	}
	return tenant, id, from, to, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, tenant shared.Tenant, err error) {
	httpx.LogFailure(h.logger, op, err, slog.Int64("company_id", tenant.CompanyID))
	httpx.RespondError(w, err)
}
