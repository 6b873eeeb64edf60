// Package handlers provides HTTP handlers for portfolio analysis.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
)

// Handler handles analysis HTTP requests
type Handler struct {
	service *analysis.Service
	log     zerolog.Logger
}

// NewHandler creates a new analysis handler
func NewHandler(service *analysis.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "analysis").Logger(),
	}
}

// HandleAnalyze handles POST /api/analysis/run. The depot export comes
// either as a multipart upload under the "file" field or as the raw
// request body. ?save=false skips the history write.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var upload io.Reader = r.Body
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "Multipart upload needs a \"file\" field", http.StatusBadRequest)
			return
		}
		defer file.Close()
		upload = file
	}

	save := r.URL.Query().Get("save") != "false"

	result, err := h.service.Run(r.Context(), upload, save)
	if err != nil {
		// A failed history write still produced a full result; return
		// it and let the diagnostics carry the failure.
		if result == nil {
			h.log.Error().Err(err).Msg("Analysis failed")
			status := http.StatusInternalServerError
			switch diagnostics.KindOf(err) {
			case diagnostics.KindIngestionEmpty, diagnostics.KindIngestionParseRow:
				status = http.StatusUnprocessableEntity
			}
			http.Error(w, err.Error(), status)
			return
		}
		h.log.Warn().Err(err).Msg("Analysis completed but history write failed")
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleThresholds handles GET /api/analysis/thresholds
func (h *Handler) HandleThresholds(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"thresholds": analysis.Thresholds(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleDiagnostics handles GET /api/analysis/diagnostics. It returns
// the messages collected during the most recent run.
func (h *Handler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"data": map[string]interface{}{
			"messages": h.service.Diagnostics(),
			"summary":  h.service.DiagnosticsSummary(),
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
