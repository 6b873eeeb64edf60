// Package analysis runs the portfolio pipeline: parse a snapshot,
// unfold fund positions into their constituent holdings through the
// look-through resolver, and aggregate the result into per-dimension
// concentration tables with risk metrics.
package analysis

import (
	"time"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/modules/ingestion"
)

// Dimension keys of the aggregated tables. The strict currency
// dimension excludes commodity value entirely; the permissive variant
// folds it into a synthetic bucket.
const (
	DimAssetClass         = "asset_class"
	DimSector             = "sector"
	DimCurrency           = "currency"
	DimCurrencyPermissive = "currency_with_commodities"
	DimCountry            = "country"
	DimPositions          = "positions"
)

// CommodityBucket labels commodity value in the permissive currency
// table.
const CommodityBucket = "Commodity (no currency risk)"

// Provenance ranks how authoritative the source of a holding's sector
// is. Higher ranks overwrite lower ones when positions merge; equal
// ranks keep the first value seen.
type Provenance int

const (
	// ProvenanceFundDerived covers overlay and reference compositions,
	// residual rows, and failed lookups.
	ProvenanceFundDerived Provenance = iota
	// ProvenanceFundDetail marks sectors read from a scraped detail
	// file.
	ProvenanceFundDetail
	// ProvenanceDeclared marks sectors declared in the snapshot itself.
	ProvenanceDeclared
)

// ProvenanceLookup ranks identifier-based lookups level with detail
// file data.
const ProvenanceLookup = ProvenanceFundDetail

// EffectiveHolding is one entry of the flattened portfolio: a direct
// position carried over, or a slice of a fund position sized by the
// holding's weight. FundType carries the owning fund's type so the
// aggregator can classify a money-market fund's holdings as cash.
type EffectiveHolding struct {
	Name       string
	Value      float64
	Currency   string
	Sector     string
	Country    string
	ISIN       string
	Symbol     string
	Type       ingestion.InstrumentType
	SourceFund string
	FundType   string
	Provenance Provenance
}

// RiskRow is one bucket of a dimension table.
type RiskRow struct {
	Bucket  string  `json:"bucket"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
}

// RiskTable is the ranked concentration table for one dimension, rows
// ordered by value descending with name-ascending tie break.
type RiskTable struct {
	Dimension string    `json:"dimension"`
	Rows      []RiskRow `json:"rows"`
}

// PositionRow is one merged row of the per-name dimension, carrying
// the winning sector and the funds the exposure came through.
type PositionRow struct {
	Name    string  `json:"name"`
	Symbol  string  `json:"symbol,omitempty"`
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"`
	Sector  string  `json:"sector"`
	Type    string  `json:"type"`
	Sources string  `json:"sources"`
}

// Summary carries the snapshot totals of a run.
type Summary struct {
	TotalValue       float64 `json:"total_value"`
	TotalPositions   int     `json:"total_positions"`
	FundCount        int     `json:"etf_count"`
	StockCount       int     `json:"stock_count"`
	BaseCurrency     string  `json:"base_currency"`
	ExpandedHoldings int     `json:"expanded_holdings"`
}

// Result is the full output of one analysis run.
type Result struct {
	RunID       string                `json:"run_id"`
	Timestamp   time.Time             `json:"timestamp"`
	Summary     Summary               `json:"summary"`
	Tables      map[string]*RiskTable `json:"tables"`
	Positions   []PositionRow         `json:"positions"`
	Metrics     map[string]*Metrics   `json:"metrics"`
	Diagnostics []diagnostics.Message `json:"diagnostics,omitempty"`
	HistoryID   int64                 `json:"history_id,omitempty"`
}
