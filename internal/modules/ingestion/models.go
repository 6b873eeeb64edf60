// Package ingestion parses portfolio snapshot exports (semicolon-delimited
// CSV with German number formatting) into classified raw positions.
package ingestion

import "time"

// InstrumentType classifies a position or an expanded fund holding.
type InstrumentType string

const (
	InstrumentCash      InstrumentType = "Cash"
	InstrumentStock     InstrumentType = "Stock"
	InstrumentBond      InstrumentType = "Bond"
	InstrumentCommodity InstrumentType = "Commodity"
	InstrumentFund      InstrumentType = "ETF"
	// InstrumentFundHolding marks holdings expanded out of a fund during
	// look-through; the aggregator folds them back into Stock.
	InstrumentFundHolding InstrumentType = "ETF_Holding"
)

// Position is one parsed snapshot row.
type Position struct {
	Name     string         `json:"name"`
	ISIN     string         `json:"isin,omitempty"`
	Symbol   string         `json:"symbol,omitempty"`
	Type     InstrumentType `json:"type"`
	Currency string         `json:"currency"`
	Quantity float64        `json:"quantity"`
	Value    float64        `json:"value"`
	Sector   string         `json:"sector,omitempty"` // declared in the snapshot, already normalised
	Note     string         `json:"note,omitempty"`
}

// Snapshot is the parsed portfolio with aggregate counts.
type Snapshot struct {
	Positions      []Position `json:"positions"`
	TotalValue     float64    `json:"total_value"`
	TotalPositions int        `json:"total_positions"`
	FundCount      int        `json:"etf_count"`
	StockCount     int        `json:"stock_count"`
	BaseCurrency   string     `json:"base_currency"`
	ParsedAt       time.Time  `json:"parsed_at"`
}
