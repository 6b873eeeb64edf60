package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all sector cache routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sectors", func(r chi.Router) {
		r.Get("/", h.HandleListSectors)

		// Cache maintenance (static routes before the symbol wildcard)
		r.Delete("/expired", h.HandleDeleteExpired)
		r.Post("/warm", h.HandleWarm)

		// Per-symbol lookups and manual overrides
		r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleGetSector(w, r, symbol)
		})
		r.Put("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleSetSector(w, r, symbol)
		})
	})
}
