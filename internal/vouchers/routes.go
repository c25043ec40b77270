package vouchers

import "github.com/go-chi/chi/v5"

// MountRoutes registers voucher routes; the router is expected to be mounted under /{type}.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Post("/bills/{billNumber}/cancel", h.cancel)
	r.Post("/bills/{billNumber}/reactivate", h.reactivate)
}
