// Package history stores completed analysis runs in the history
// database and serves the total-value timeline built from them.
package history

import (
	"time"

	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
)

// Entry is one stored analysis run. Listings carry the summary columns
// only; Get fills Result from the stored payload.
type Entry struct {
	ID             int64            `json:"id"`
	Timestamp      time.Time        `json:"timestamp"`
	TotalValue     float64          `json:"total_value"`
	TotalPositions int              `json:"total_positions"`
	FundCount      int              `json:"etf_count"`
	StockCount     int              `json:"stock_count"`
	Result         *analysis.Result `json:"result,omitempty"`
}

// TimelinePoint is one run on the value chart.
type TimelinePoint struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	TotalValue float64   `json:"total_value"`
	Positions  int       `json:"positions"`
}

// Timeline is the chronological value series. Smoothed is the SMA of
// the total values and is present only with enough points for one full
// window; its leading window-1 entries are zero.
type Timeline struct {
	Points   []TimelinePoint `json:"points"`
	Smoothed []float64       `json:"smoothed,omitempty"`
}
