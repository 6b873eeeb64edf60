package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/clusterrisk/clusterrisk/internal/backup"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/history"
	"github.com/clusterrisk/clusterrisk/internal/modules/sectors"
)

// SystemConfig holds the dependencies of the system endpoints.
type SystemConfig struct {
	Log          zerolog.Logger
	DataDir      string
	Version      string
	BaseCurrency string
	HistoryDB    *sql.DB
	CacheDB      *sql.DB
	FundStore    *funds.Store
	History      *history.Service
	Sectors      *sectors.Service
	Backup       *backup.Runner
}

// SystemHandlers serves health, info and backup endpoints.
type SystemHandlers struct {
	log          zerolog.Logger
	dataDir      string
	version      string
	baseCurrency string
	startTime    time.Time
	historyDB    *sql.DB
	cacheDB      *sql.DB
	store        *funds.Store
	history      *history.Service
	sectors      *sectors.Service
	backup       *backup.Runner
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(cfg SystemConfig) *SystemHandlers {
	return &SystemHandlers{
		log:          cfg.Log.With().Str("handler", "system").Logger(),
		dataDir:      cfg.DataDir,
		version:      cfg.Version,
		baseCurrency: cfg.BaseCurrency,
		startTime:    time.Now(),
		historyDB:    cfg.HistoryDB,
		cacheDB:      cfg.CacheDB,
		store:        cfg.FundStore,
		history:      cfg.History,
		sectors:      cfg.Sectors,
		backup:       cfg.Backup,
	}
}

// HandleHealth handles GET /api/system/health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	historyCheck := h.integrityCheck(h.historyDB)
	cacheCheck := h.integrityCheck(h.cacheDB)

	status := "ok"
	httpStatus := http.StatusOK
	if historyCheck != "ok" || cacheCheck != "ok" {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	cpuPercent, memPercent := h.systemStats()

	h.writeJSON(w, httpStatus, map[string]interface{}{
		"data": map[string]interface{}{
			"status":         status,
			"version":        h.version,
			"uptime_seconds": int(time.Since(h.startTime).Seconds()),
			"go": map[string]interface{}{
				"version":    runtime.Version(),
				"goroutines": runtime.NumGoroutine(),
			},
			"system": map[string]interface{}{
				"cpu_percent":    cpuPercent,
				"memory_percent": memPercent,
			},
			"databases": map[string]interface{}{
				"history": historyCheck,
				"cache":   cacheCheck,
			},
			"data_dir": h.dataDir,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleInfo handles GET /api/system/info
func (h *SystemHandlers) HandleInfo(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.store.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list fund details")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	analyses, err := h.history.Count()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to count analyses")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cacheStats, err := h.sectors.Stats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read sector cache stats")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"version":           h.version,
			"base_currency":     h.baseCurrency,
			"data_dir":          h.dataDir,
			"fund_details":      len(summaries),
			"analyses":          analyses,
			"sector_cache":      cacheStats,
			"backup_configured": h.backup.Configured(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandleBackup handles POST /api/system/backup
func (h *SystemHandlers) HandleBackup(w http.ResponseWriter, r *http.Request) {
	result, err := h.backup.Run(r.Context())
	if err != nil {
		if errors.Is(err, backup.ErrNotConfigured) {
			http.Error(w, "Backup target not configured", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Msg("Backup failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// integrityCheck runs SQLite's integrity check and reports the first line.
// Healthy databases answer exactly "ok".
func (h *SystemHandlers) integrityCheck(db *sql.DB) string {
	if db == nil {
		return "not opened"
	}
	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return err.Error()
	}
	return result
}

// systemStats samples CPU and RAM usage. The short CPU window keeps the
// health endpoint fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuAvg := 0.0
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuAvg, 0
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
