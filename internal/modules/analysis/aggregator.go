package analysis

import (
	"sort"
	"strings"

	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/ingestion"
	"github.com/clusterrisk/clusterrisk/internal/refdata"
)

// Aggregate folds the expanded holdings into the dimension tables and
// the merged per-name rows. Every table's percents are relative to the
// value it actually contains, so each sums to 100 within rounding.
func Aggregate(holdings []EffectiveHolding) (map[string]*RiskTable, []PositionRow) {
	strict, permissive := currencyTables(holdings)
	tables := map[string]*RiskTable{
		DimAssetClass:         assetClassTable(holdings),
		DimSector:             sectorTable(holdings),
		DimCurrency:           strict,
		DimCurrencyPermissive: permissive,
		DimCountry:            countryTable(holdings),
	}
	return tables, positionRows(holdings)
}

func buildTable(dimension string, values map[string]float64, basis float64) *RiskTable {
	rows := make([]RiskRow, 0, len(values))
	for bucket, value := range values {
		var percent float64
		if basis > 0 {
			percent = value / basis * 100
		}
		rows = append(rows, RiskRow{Bucket: bucket, Value: value, Percent: percent})
	}
	sortRows(rows)
	return &RiskTable{Dimension: dimension, Rows: rows}
}

func sortRows(rows []RiskRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Bucket < rows[j].Bucket
	})
}

// assetClass buckets a holding for the asset-class dimension. Fund
// holdings classify by the owning fund's type, so a money-market
// fund's holdings count as cash and a bond fund's as bonds.
func assetClass(h *EffectiveHolding) string {
	if h.Type != ingestion.InstrumentFundHolding {
		return string(h.Type)
	}
	switch h.FundType {
	case funds.TypeMoneyMarket:
		return "Cash"
	case funds.TypeBond:
		return "Bond"
	case funds.TypeCommodity:
		return "Commodity"
	default:
		return "Stock"
	}
}

func assetClassTable(holdings []EffectiveHolding) *RiskTable {
	values := make(map[string]float64)
	var total float64
	for i := range holdings {
		h := &holdings[i]
		values[assetClass(h)] += h.Value
		total += h.Value
	}
	return buildTable(DimAssetClass, values, total)
}

// sectorTable excludes the pseudo-sectors "Diversified" and "ETF";
// percents are relative to the included value.
func sectorTable(holdings []EffectiveHolding) *RiskTable {
	values := make(map[string]float64)
	var included float64
	for i := range holdings {
		h := &holdings[i]
		if h.Sector == "Diversified" || h.Sector == "ETF" {
			continue
		}
		sector := h.Sector
		if sector == "" {
			sector = "Unknown"
		}
		values[sector] += h.Value
		included += h.Value
	}
	return buildTable(DimSector, values, included)
}

// isCommodity reports whether a holding carries no currency risk:
// a direct commodity position or a commodity fund's holding.
func isCommodity(h *EffectiveHolding) bool {
	if h.Type == ingestion.InstrumentCommodity {
		return true
	}
	return h.Type == ingestion.InstrumentFundHolding && h.FundType == funds.TypeCommodity
}

// currencyTables builds both currency dimensions in one pass. The
// strict table drops commodity value and bases percents on what
// remains; the permissive table folds it into CommodityBucket and
// stays total-preserving.
func currencyTables(holdings []EffectiveHolding) (strict, permissive *RiskTable) {
	values := make(map[string]float64)
	var commodityValue, currencyTotal float64

	for i := range holdings {
		h := &holdings[i]
		if isCommodity(h) {
			commodityValue += h.Value
			continue
		}
		currency := h.Currency
		if currency == "" {
			currency = "Unknown"
		}
		values[currency] += h.Value
		currencyTotal += h.Value
	}

	strict = buildTable(DimCurrency, values, currencyTotal)

	merged := make(map[string]float64, len(values)+1)
	for currency, value := range values {
		merged[currency] = value
	}
	if commodityValue > 0 {
		merged[CommodityBucket] = commodityValue
	}
	permissive = buildTable(DimCurrencyPermissive, merged, currencyTotal+commodityValue)
	return strict, permissive
}

// countryBucket derives the country of a holding: the explicit country
// field first, the currency for cash, then the identifier prefix, then
// the currency as a proxy. Steps that resolve to an unknown marker
// fall through to the next.
func countryBucket(h *EffectiveHolding) string {
	name := ""
	if h.Country != "" {
		name = refdata.CountryName(h.Country)
	}
	if name == "" && h.Type == ingestion.InstrumentCash {
		name = refdata.CountryForCurrency(h.Currency)
	}
	if unresolvedCountry(name) && len(h.ISIN) >= 2 {
		name = refdata.CountryName(strings.ToUpper(h.ISIN[:2]))
	}
	if unresolvedCountry(name) {
		name = refdata.CountryForCurrency(h.Currency)
	}
	if unresolvedCountry(name) {
		return "Unknown"
	}
	return name
}

func unresolvedCountry(name string) bool {
	return name == "" || strings.HasPrefix(name, "Unknown")
}

// countryTable excludes unresolved funds and residual rows by their
// pseudo-sectors; percents are relative to the included value.
func countryTable(holdings []EffectiveHolding) *RiskTable {
	values := make(map[string]float64)
	var included float64
	for i := range holdings {
		h := &holdings[i]
		if h.Sector == "ETF" || h.Sector == "Diversified" {
			continue
		}
		values[countryBucket(h)] += h.Value
		included += h.Value
	}
	return buildTable(DimCountry, values, included)
}

type positionAgg struct {
	row     PositionRow
	rank    Provenance
	sources []string
	seen    map[string]struct{}
}

// positionRows merges holdings by normalised name. Cash collapses into
// one row; for everything else the first occurrence fixes the display
// name and type, the first non-empty symbol sticks, and the sector of
// the highest-provenance contributor wins.
func positionRows(holdings []EffectiveHolding) []PositionRow {
	byKey := make(map[string]*positionAgg)
	var order []string
	var total float64

	for i := range holdings {
		h := &holdings[i]
		total += h.Value

		key := refdata.NormalizePositionName(h.Name)
		display := h.Name
		if h.Type == ingestion.InstrumentCash {
			key, display = "cash", "Cash"
		}

		agg, ok := byKey[key]
		if !ok {
			agg = &positionAgg{
				row: PositionRow{
					Name:   display,
					Symbol: h.Symbol,
					Sector: h.Sector,
					Type:   assetClass(h),
				},
				rank: h.Provenance,
				seen: make(map[string]struct{}),
			}
			byKey[key] = agg
			order = append(order, key)
		}

		agg.row.Value += h.Value
		if agg.row.Symbol == "" {
			agg.row.Symbol = h.Symbol
		}
		if h.Provenance > agg.rank {
			agg.row.Sector = h.Sector
			agg.rank = h.Provenance
		}
		if h.SourceFund != "" {
			if _, dup := agg.seen[h.SourceFund]; !dup {
				agg.seen[h.SourceFund] = struct{}{}
				agg.sources = append(agg.sources, h.SourceFund)
			}
		}
	}

	rows := make([]PositionRow, 0, len(order))
	for _, key := range order {
		agg := byKey[key]
		if total > 0 {
			agg.row.Percent = agg.row.Value / total * 100
		}
		if len(agg.sources) > 0 {
			agg.row.Sources = strings.Join(agg.sources, ", ")
		} else {
			agg.row.Sources = "Direct"
		}
		rows = append(rows, agg.row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Value != rows[j].Value {
			return rows[i].Value > rows[j].Value
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
