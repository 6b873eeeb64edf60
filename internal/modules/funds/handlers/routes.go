package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all fund detail routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/funds", func(r chi.Router) {
		r.Get("/", h.HandleListFunds)

		// Batch refresh (static route before the symbol wildcard)
		r.Post("/update-all", h.HandleUpdateAll)

		// Per-fund operations
		r.Get("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleGetFund(w, r, symbol)
		})
		r.Delete("/{symbol}", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleDeleteFund(w, r, symbol)
		})
		r.Post("/{symbol}/update", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleUpdateFund(w, r, symbol)
		})
		r.Post("/{symbol}/template", func(w http.ResponseWriter, r *http.Request) {
			symbol := chi.URLParam(r, "symbol")
			h.HandleCreateTemplate(w, r, symbol)
		})
	})
}
