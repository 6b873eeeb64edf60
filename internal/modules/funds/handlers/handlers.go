// Package handlers provides HTTP handlers for the fund detail store.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
)

// Handler handles fund detail HTTP requests
type Handler struct {
	service *funds.Service
	log     zerolog.Logger
}

// NewHandler creates a new funds handler
func NewHandler(service *funds.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "funds").Logger(),
	}
}

// UpdateFundRequest carries the identifiers for a scrape. All fields
// are optional for funds that already have a detail file.
type UpdateFundRequest struct {
	ISIN      string `json:"isin"`
	Type      string `json:"type"`
	Region    string `json:"region"`
	ProxyISIN string `json:"proxy_isin"`
}

// TemplateRequest describes a manual detail file skeleton.
type TemplateRequest struct {
	ISIN   string `json:"isin"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Region string `json:"region"`
}

// HandleListFunds handles GET /api/funds
func (h *Handler) HandleListFunds(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list fund detail files")
		http.Error(w, "Failed to list fund detail files", http.StatusInternalServerError)
		return
	}

	stale := 0
	for _, s := range summaries {
		if s.Stale {
			stale++
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"funds": summaries,
			"count": len(summaries),
			"stale": stale,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetFund handles GET /api/funds/{symbol}
func (h *Handler) HandleGetFund(w http.ResponseWriter, r *http.Request, symbol string) {
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	detail, err := h.service.Get(symbol)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to read fund detail file")
		http.Error(w, "Failed to read fund detail file", http.StatusInternalServerError)
		return
	}
	if detail == nil {
		http.Error(w, "Fund not found", http.StatusNotFound)
		return
	}

	response := map[string]interface{}{
		"data": detail,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleUpdateFund handles POST /api/funds/{symbol}/update. With an
// ISIN in the body the detail file is (re)generated from scratch;
// without one the stored identifiers are reused.
func (h *Handler) HandleUpdateFund(w http.ResponseWriter, r *http.Request, symbol string) {
	var req UpdateFundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var (
		detail *funds.Detail
		err    error
	)
	if req.ISIN == "" {
		detail, err = h.service.UpdateOne(r.Context(), symbol)
	} else {
		detail, err = h.service.Generate(r.Context(), funds.GenerateRequest{
			Ticker:    symbol,
			ISIN:      req.ISIN,
			Type:      req.Type,
			Region:    req.Region,
			ProxyISIN: req.ProxyISIN,
		})
	}
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Fund update failed")
		switch {
		case errors.Is(err, funds.ErrFundNotFound):
			http.Error(w, "Fund not found; supply an ISIN to create it", http.StatusNotFound)
		case errors.Is(err, funds.ErrManualSource):
			http.Error(w, "Detail file is maintained manually and will not be overwritten", http.StatusConflict)
		default:
			status := http.StatusInternalServerError
			switch diagnostics.KindOf(err) {
			case diagnostics.KindScrapeNetwork:
				status = http.StatusBadGateway
			case diagnostics.KindScrapeParse, diagnostics.KindScrapeUnusable:
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
		}
		return
	}

	response := map[string]interface{}{
		"data": detail,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleUpdateAll handles POST /api/funds/update-all. The batch runs in
// the background; progress is published on the event stream.
func (h *Handler) HandleUpdateAll(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	batchID, err := h.service.StartUpdateAll(force)
	if err != nil {
		if errors.Is(err, funds.ErrBatchRunning) {
			http.Error(w, "A fund update batch is already running", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Msg("Failed to start fund update batch")
		http.Error(w, "Failed to start fund update batch", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"batch_id": batchID,
			"force":    force,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusAccepted, response)
}

// HandleCreateTemplate handles POST /api/funds/{symbol}/template
func (h *Handler) HandleCreateTemplate(w http.ResponseWriter, r *http.Request, symbol string) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	detail, err := h.service.Template(funds.TemplateRequest{
		Ticker: symbol,
		ISIN:   req.ISIN,
		Name:   req.Name,
		Type:   req.Type,
		Region: req.Region,
	})
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			http.Error(w, "Detail file already exists", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to create detail file template")
		http.Error(w, "Failed to create detail file template", http.StatusBadRequest)
		return
	}

	response := map[string]interface{}{
		"data": detail,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusCreated, response)
}

// HandleDeleteFund handles DELETE /api/funds/{symbol}
func (h *Handler) HandleDeleteFund(w http.ResponseWriter, r *http.Request, symbol string) {
	if err := h.service.Delete(symbol); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "Fund not found", http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete fund detail file")
		http.Error(w, "Failed to delete fund detail file", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"deleted": symbol,
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
