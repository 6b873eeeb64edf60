// Package funds maintains the on-disk fund composition store: one CSV
// detail file per fund (metadata, country/sector/currency allocations,
// top holdings) plus the identifier→symbol index, a user overlay and a
// built-in reference dataset, and the scrape orchestration that keeps
// the store fresh.
package funds

import (
	"strings"
	"time"
)

// Fund types as recorded in the detail file metadata. The type decides
// how expanded holdings are classified downstream: a money-market
// fund's holdings count as Cash.
const (
	TypeStock       = "Stock"
	TypeBond        = "Bond"
	TypeMoneyMarket = "Money Market"
	TypeCommodity   = "Commodity"
)

// StaleAfterDays is the default freshness horizon for auto-generated
// detail files; justETF refreshes composition data monthly.
const StaleAfterDays = 30

// Allocation is one row of a country, sector or currency allocation
// table. Weight is a fraction of the whole fund.
type Allocation struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Holding is one entry of a fund's top-holdings list. Weight is a
// fraction of the whole fund.
type Holding struct {
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Currency string  `json:"currency"`
	Sector   string  `json:"sector"`
	Country  string  `json:"country"`
	ISIN     string  `json:"isin,omitempty"`
}

// IsOther reports whether the holding is the synthetic residual row
// ("Other Holdings", possibly suffixed with a position count).
func (h Holding) IsOther() bool {
	return strings.Contains(strings.ToLower(h.Name), "other holdings")
}

// Detail is the full composition record for one fund.
type Detail struct {
	ISIN        string       `json:"isin"`
	Name        string       `json:"name"`
	Ticker      string       `json:"ticker"`
	Type        string       `json:"type"`
	IndexName   string       `json:"index,omitempty"`
	Region      string       `json:"region,omitempty"`
	Currency    string       `json:"currency,omitempty"`
	TER         string       `json:"ter,omitempty"`
	ProxyISIN   string       `json:"proxy_isin,omitempty"`
	LastUpdated string       `json:"last_updated,omitempty"` // YYYY-MM-DD
	Source      string       `json:"source,omitempty"`
	Countries   []Allocation `json:"country_allocation"`
	Sectors     []Allocation `json:"sector_allocation"`
	Currencies  []Allocation `json:"currency_allocation"`
	Holdings    []Holding    `json:"holdings"`
}

// AgeDays returns the age of the record in days based on its
// LastUpdated date. ok is false when the date is missing or malformed.
func (d *Detail) AgeDays() (int, bool) {
	if d.LastUpdated == "" {
		return 0, false
	}
	updated, err := time.Parse("2006-01-02", d.LastUpdated)
	if err != nil {
		return 0, false
	}
	return int(time.Since(updated).Hours() / 24), true
}

// IsAutoGenerated reports whether the record was produced by the
// scraper (directly or via proxy) rather than maintained by hand.
// Records with an empty Source count as auto so legacy files are
// still refreshed.
func (d *Detail) IsAutoGenerated() bool {
	if d.Source == "" {
		return true
	}
	source := strings.ToLower(d.Source)
	return strings.Contains(source, "auto") ||
		strings.Contains(source, "justetf") ||
		strings.Contains(source, "proxy")
}

// DataSource classifies the record for status listings: "proxy" when
// allocations came from a proxy fund, "auto" for scraped records,
// "manual" otherwise.
func (d *Detail) DataSource() string {
	if d.ProxyISIN != "" {
		return "proxy"
	}
	source := strings.ToLower(d.Source)
	if strings.Contains(source, "auto") || strings.Contains(source, "justetf") {
		return "auto"
	}
	return "manual"
}

// Summary is one row of the store listing.
type Summary struct {
	Ticker      string `json:"ticker"`
	ISIN        string `json:"isin"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	IndexName   string `json:"index,omitempty"`
	Region      string `json:"region,omitempty"`
	LastUpdated string `json:"last_updated"`
	DaysOld     *int   `json:"days_old"` // nil when Last Updated is missing or malformed
	Stale       bool   `json:"is_stale"`
	Source      string `json:"source"`
	DataSource  string `json:"data_source"` // auto | proxy | manual
	ProxyISIN   string `json:"proxy_isin,omitempty"`
	File        string `json:"file"`
}
