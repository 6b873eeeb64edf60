package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all history routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.HandleListHistory)
		r.Delete("/", h.HandleClearHistory)

		// Timeline (static route before the id wildcard)
		r.Get("/timeline", h.HandleTimeline)

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			h.HandleGetAnalysis(w, r, id)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			h.HandleDeleteAnalysis(w, r, id)
		})
	})
}
