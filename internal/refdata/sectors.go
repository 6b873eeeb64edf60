// Package refdata holds the static reference tables shared across
// ingestion, fund resolution, and aggregation: sector name folding,
// asset-type keywords, and currency/country mappings.
package refdata

import (
	"strings"
	"unicode"
)

// declaredSectors folds the exact labels emitted by German portfolio
// exports (GICS level 1 plus common variants) into canonical English
// sector names. Keys are uppercase.
var declaredSectors = map[string]string{
	"INFORMATIONSTECHNOLOGIE": "Technology",
	"TECHNOLOGIE":             "Technology",
	"IT":                      "Technology",

	"FINANZWESEN": "Financial Services",
	"FINANZEN":    "Financial Services",
	"FINANCIALS":  "Financial Services",

	"GESUNDHEITSWESEN": "Healthcare",
	"GESUNDHEIT":       "Healthcare",
	"HEALTH CARE":      "Healthcare",

	"NICHT-BASISKONSUMGÜTER": "Consumer Cyclical",
	"ZYKLISCHE KONSUMGÜTER":  "Consumer Cyclical",
	"CONSUMER DISCRETIONARY": "Consumer Cyclical",
	"KONSUMGÜTER":            "Consumer Cyclical",

	"BASISKONSUMGÜTER": "Consumer Staples",
	"VERBRAUCHSGÜTER":  "Consumer Staples",
	"CONSUMER STAPLES": "Consumer Staples",

	"ENERGIE": "Energy",
	"ENERGY":  "Energy",

	"KOMMUNIKATIONSDIENSTE":  "Communication Services",
	"KOMMUNIKATION":          "Communication Services",
	"COMMUNICATION SERVICES": "Communication Services",
	"TELEKOMMUNIKATION":      "Communication Services",

	"INDUSTRIE":   "Industrials",
	"INDUSTRIALS": "Industrials",

	"ROH-, HILFS- & BETRIEBSSTOFFE": "Materials",
	"ROHSTOFFE":                     "Materials",
	"WERKSTOFFE":                    "Materials",
	"MATERIALIEN":                   "Materials",
	"MATERIALS":                     "Materials",

	"VERSORGUNGSBETRIEBE": "Utilities",
	"VERSORGER":           "Utilities",
	"UTILITIES":           "Utilities",

	"IMMOBILIEN":  "Real Estate",
	"REAL ESTATE": "Real Estate",
}

// sectorSubstrings is the shared substring-based fold used wherever
// sector labels arrive from mixed sources (fund detail files, scraped
// allocations, external lookups). Matching is case-insensitive
// containment, first entry wins, so order is significant: e.g.
// "Grundstoffe" must map to Materials before the trailing "rohstoffe"
// entry claims it for Commodity.
var sectorSubstrings = []struct {
	match  string
	sector string
}{
	{"informationstechnologie", "Technology"},
	{"technology", "Technology"},
	{"information technology", "Technology"},
	{"tech", "Technology"},
	{"software", "Technology"},
	{"semiconductors", "Technology"},

	{"kommunikationsdienste", "Communication Services"},
	{"communication services", "Communication Services"},
	{"telekommunikation", "Communication Services"},
	{"telecommunications", "Communication Services"},
	{"media", "Communication Services"},
	{"medien", "Communication Services"},

	{"finanzwesen", "Financial Services"},
	{"financial services", "Financial Services"},
	{"financials", "Financial Services"},
	{"finanzen", "Financial Services"},
	{"banks", "Financial Services"},
	{"banken", "Financial Services"},
	{"insurance", "Financial Services"},
	{"versicherungen", "Financial Services"},

	{"gesundheitswesen", "Healthcare"},
	{"healthcare", "Healthcare"},
	{"health care", "Healthcare"},
	{"gesundheit", "Healthcare"},
	{"pharma", "Healthcare"},
	{"biotechnology", "Healthcare"},
	{"biotechnologie", "Healthcare"},

	{"zyklische konsumgüter", "Consumer Cyclical"},
	{"consumer cyclical", "Consumer Cyclical"},
	{"consumer discretionary", "Consumer Cyclical"},
	{"nicht-basiskonsumgüter", "Consumer Cyclical"},
	{"retail", "Consumer Cyclical"},
	{"einzelhandel", "Consumer Cyclical"},

	{"basiskonsumgüter", "Consumer Staples"},
	{"consumer staples", "Consumer Staples"},
	{"consumer defensive", "Consumer Staples"},
	{"nahrungsmittel", "Consumer Staples"},
	{"food", "Consumer Staples"},

	{"industrie", "Industrials"},
	{"industrials", "Industrials"},
	{"industrial", "Industrials"},

	{"energie", "Energy"},
	{"energy", "Energy"},
	{"öl & gas", "Energy"},
	{"oil & gas", "Energy"},

	{"materialien", "Materials"},
	{"materials", "Materials"},
	{"grundstoffe", "Materials"},
	{"basic materials", "Materials"},

	{"immobilien", "Real Estate"},
	{"real estate", "Real Estate"},

	{"versorgungsbetriebe", "Utilities"},
	{"utilities", "Utilities"},
	{"versorger", "Utilities"},

	{"diversified", "Diversified"},
	{"diversifiziert", "Diversified"},
	{"cash", "Cash"},
	{"etf", "ETF"},
	{"commodity", "Commodity"},
	{"rohstoffe", "Commodity"},
}

// vendorSectors folds the sector vocabulary of external lookup
// services (Yahoo Finance, OpenFIGI) into canonical names. Labels not
// listed here already match the canonical set and pass through.
var vendorSectors = map[string]string{
	"Consumer Defensive":     "Consumer Staples",
	"Consumer Discretionary": "Consumer Cyclical",
	"Communications":         "Communication Services",
	"Information Technology": "Technology",
	"Financials":             "Financial Services",
	"Health Care":            "Healthcare",
	"Basic Materials":        "Materials",
}

// CanonicalSectorDeclared folds a sector label declared in a portfolio
// snapshot (exact match on the uppercase German/GICS vocabulary).
// Unrecognised labels are returned title-cased.
func CanonicalSectorDeclared(label string) string {
	if canonical, ok := declaredSectors[strings.ToUpper(label)]; ok {
		return canonical
	}
	return titleCase(label)
}

// CanonicalSector folds an arbitrary sector label via case-insensitive
// substring matching against the shared table. Unrecognised labels are
// returned title-cased; empty labels become "Unknown".
func CanonicalSector(label string) string {
	if label == "" || label == "Unknown" {
		return "Unknown"
	}
	lower := strings.ToLower(strings.TrimSpace(label))
	for _, entry := range sectorSubstrings {
		if strings.Contains(lower, entry.match) {
			return entry.sector
		}
	}
	return titleCase(label)
}

// CanonicalVendorSector folds a sector name returned by an external
// lookup service. Unknown labels pass through unchanged; empty labels
// become "Unknown".
func CanonicalVendorSector(label string) string {
	if label == "" {
		return "Unknown"
	}
	if canonical, ok := vendorSectors[label]; ok {
		return canonical
	}
	return label
}

// titleCase uppercases the first letter of every word and lowercases
// the rest, treating any non-letter as a word boundary.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}
