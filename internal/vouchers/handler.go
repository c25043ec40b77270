package vouchers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/retail-ledger/internal/ledger"
	"github.com/odyssey-erp/retail-ledger/internal/platform/httpx"
	"github.com/odyssey-erp/retail-ledger/internal/shared"
)

// Handler exposes voucher endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tenant, vt, ok := h.scope(w, r)
	if !ok {
		return
	}
	limit, err := httpx.ParseIntParam(r, "limit", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	offset, err := httpx.ParseIntParam(r, "offset", 0)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.List(r.Context(), tenant, ListFilter{
		Type:   vt,
		Status: Status(r.URL.Query().Get("status")),
		Page:   shared.Pagination{Limit: limit, Offset: offset},
	})
	if err != nil {
		h.fail(w, "list vouchers", err)
		return
	}
	if list == nil {
		list = []Voucher{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"vouchers": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tenant, vt, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, entries, err := h.service.Get(r.Context(), tenant, vt, id)
	if err != nil {
		h.fail(w, "get voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, voucherResponse{Voucher: v, Entries: entries})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	tenant, vt, ok := h.scope(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	key := r.Header.Get(shared.HeaderIdempotencyKey)
	posting, err := h.service.Create(r.Context(), tenant, req.toInput(vt, httpx.ActorID(r), key))
	if err != nil {
		h.fail(w, "create voucher", err)
		return
	}
	status := http.StatusCreated
	if posting.Replayed {
		status = http.StatusOK
	}
	httpx.JSON(w, status, posting)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	tenant, vt, ok := h.scope(w, r)
	if !ok {
		return
	}
	id, err := httpx.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	posting, err := h.service.Update(r.Context(), tenant, id, req.toInput(vt, httpx.ActorID(r), ""))
	if err != nil {
		h.fail(w, "update voucher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, posting)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Cancel, "cancel voucher")
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.service.Reactivate, "reactivate voucher")
}

type toggleFunc func(ctx context.Context, tenant shared.Tenant, vt ledger.VoucherType, billNumber int64, actorID int64) (Voucher, error)

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, fn toggleFunc, op string) {
	tenant, vt, ok := h.scope(w, r)
	if !ok {
		return
	}
	bill, err := strconv.ParseInt(chi.URLParam(r, "billNumber"), 10, 64)
	if err != nil || bill <= 0 {
		httpx.RespondError(w, shared.Validationf("invalid bill number %q", chi.URLParam(r, "billNumber")))
		return
	}
	v, err := fn(r.Context(), tenant, vt, bill, httpx.ActorID(r))
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (shared.Tenant, ledger.VoucherType, bool) {
	tenant, ok := httpx.Tenant(w, r)
	if !ok {
		return shared.Tenant{}, "", false
	}
	vt := ledger.VoucherType(chi.URLParam(r, "type"))
	if !Supported(vt) {
		httpx.RespondError(w, shared.NotFoundf("voucher type %q", vt))
		return shared.Tenant{}, "", false
	}
	return tenant, vt, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (voucherRequest, bool) {
	var req voucherRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return voucherRequest{}, false
	}
	if err := httpx.ValidateStruct(h.validator, req); err != nil {
		httpx.RespondError(w, err)
		return voucherRequest{}, false
	}
	return req, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	httpx.LogFailure(h.logger, op, err)
	httpx.RespondError(w, err)
}
