// Package handlers provides HTTP handlers for the analysis history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/modules/history"
)

// defaultListLimit bounds unqualified listing requests.
const defaultListLimit = 50

// Handler handles history HTTP requests
type Handler struct {
	service *history.Service
	log     zerolog.Logger
}

// NewHandler creates a new history handler
func NewHandler(service *history.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "history").Logger(),
	}
}

// HandleListHistory handles GET /api/history
func (h *Handler) HandleListHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r, defaultListLimit)
	if !ok {
		return
	}

	entries, err := h.service.List(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list history")
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"analyses": entries,
			"count":    len(entries),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetAnalysis handles GET /api/history/{id}
func (h *Handler) HandleGetAnalysis(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "Invalid analysis id", http.StatusBadRequest)
		return
	}

	entry, err := h.service.Get(id)
	if err != nil {
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to read stored analysis")
		http.Error(w, "Failed to read stored analysis", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "Analysis not found", http.StatusNotFound)
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

// HandleDeleteAnalysis handles DELETE /api/history/{id}
func (h *Handler) HandleDeleteAnalysis(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "Invalid analysis id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(id); err != nil {
		if errors.Is(err, history.ErrNotFound) {
			http.Error(w, "Analysis not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to delete stored analysis")
		http.Error(w, "Failed to delete stored analysis", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"deleted": id,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleClearHistory handles DELETE /api/history
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.Clear()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear history")
		http.Error(w, "Failed to clear history", http.StatusInternalServerError)
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

// HandleTimeline handles GET /api/history/timeline
func (h *Handler) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.limitParam(w, r, 0)
	if !ok {
		return
	}

	timeline, err := h.service.Timeline(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build timeline")
		http.Error(w, "Failed to build timeline", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": timeline,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// limitParam parses the optional ?limit query parameter.
func (h *Handler) limitParam(w http.ResponseWriter, r *http.Request, fallback int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return 0, false
	}
	return limit, true
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
