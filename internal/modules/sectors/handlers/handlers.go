// Package handlers provides HTTP handlers for the sector cache.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/clusterrisk/clusterrisk/internal/modules/sectors"
	"github.com/rs/zerolog"
)

// Handler handles sector cache HTTP requests
type Handler struct {
	service *sectors.Service
	log     zerolog.Logger
}

// NewHandler creates a new sectors handler
func NewHandler(service *sectors.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "sectors").Logger(),
	}
}

// ManualSectorRequest represents a manual sector assignment for a symbol
type ManualSectorRequest struct {
	Sector string `json:"sector"`
}

// WarmRequest represents a request to pre-resolve sectors for a symbol list
type WarmRequest struct {
	Symbols []string `json:"symbols"`
}

// HandleListSectors handles GET /api/sectors
func (h *Handler) HandleListSectors(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sector cache")
		http.Error(w, "Failed to list sector cache", http.StatusInternalServerError)
		return
	}

	stats, err := h.service.Stats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute sector cache stats")
		http.Error(w, "Failed to compute sector cache stats", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"entries": entries,
			"stats":   stats,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetSector handles GET /api/sectors/{symbol}
func (h *Handler) HandleGetSector(w http.ResponseWriter, r *http.Request, symbol string) {
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	entry, err := h.service.Get(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to read sector cache")
		http.Error(w, "Failed to read sector cache", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "Symbol not in sector cache", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": entry,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleSetSector handles PUT /api/sectors/{symbol}
func (h *Handler) HandleSetSector(w http.ResponseWriter, r *http.Request, symbol string) {
	var req ManualSectorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Sector == "" {
		http.Error(w, "sector is required", http.StatusBadRequest)
		return
	}

	if err := h.service.SetManual(symbol, req.Sector); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to set manual sector")
		http.Error(w, "Failed to set manual sector", http.StatusBadRequest)
		return
	}

	entry, err := h.service.Get(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to read sector cache")
		http.Error(w, "Failed to read sector cache", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": entry,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDeleteExpired handles DELETE /api/sectors/expired
func (h *Handler) HandleDeleteExpired(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.DeleteExpired()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to delete expired sector entries")
		http.Error(w, "Failed to delete expired sector entries", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"deleted": deleted,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleWarm handles POST /api/sectors/warm
func (h *Handler) HandleWarm(w http.ResponseWriter, r *http.Request) {
	var req WarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Symbols) == 0 {
		http.Error(w, "symbols is required", http.StatusBadRequest)
		return
	}

	warmed := h.service.Warm(r.Context(), req.Symbols)

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"requested": len(req.Symbols),
			"warmed":    warmed,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
