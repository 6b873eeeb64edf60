package refdata

import "strings"

// moneyMarketKeywords mark money-market funds that are treated as cash
// throughout the analysis. Matched against uppercase names.
var moneyMarketKeywords = []string{
	"MONEY MARKET", "GELDMARKT", "OVERNIGHT", "LIQUIDITY",
	"LIQUIDITÄT", "TAGESGELD", "CASH FUND", "XEON",
}

// fundKeywords identify funds by name or trade symbol: fund vehicle
// terms, the large issuers, and index families. Matched uppercase.
var fundKeywords = []string{
	"ETF", "UCITS", "INDEX FUND", "TRACKER",
	"ISHARES", "ISHSIII", "ISHS", "EUNL",
	"VANGUARD", "XTRACKERS", "LYXOR", "AMUNDI",
	"SPDR", "INVESCO", "WISDOMTREE", "FRANKLIN",
	"MSCI WORLD", "MSCI EM", "MSCI EUROPE",
	"S&P 500", "NASDAQ", "DAX", "STOXX",
}

// fundNameIndicators flag holding names that are themselves funds
// rather than companies. Scraped compositions whose holdings are
// mostly funds (synthetic or swap-based replication) are useless for
// look-through. Matched lowercase.
var fundNameIndicators = []string{
	"etf", "ucits", "ishares", "vanguard", "xtrackers", "amundi",
	"spdr", "invesco", "lyxor", "dws", "fund", "fonds",
}

// cashNoteMarkers are annotation values that force a row to be treated
// as cash regardless of its other fields.
var cashNoteMarkers = []string{"CASH", "GELDMARKT", "TAGESGELD"}

// legalSuffixes are stripped from position names before cross-source
// matching, longest variant first so "inc." wins over "inc".
var legalSuffixes = []string{
	" inc.", " inc", " corp.", " corp", " ltd.", " ltd",
	" plc", " ag", " se", " sa", " co.", " co",
	" class a", " class b", " class c",
}

// IsMoneyMarketName reports whether a security name identifies a
// money-market fund.
func IsMoneyMarketName(name string) bool {
	return containsAny(strings.ToUpper(name), moneyMarketKeywords)
}

// IsFundName reports whether a name or trade symbol identifies a fund.
func IsFundName(name, symbol string) bool {
	upperName := strings.ToUpper(name)
	upperSymbol := strings.ToUpper(symbol)
	for _, keyword := range fundKeywords {
		if strings.Contains(upperName, keyword) || (upperSymbol != "" && strings.Contains(upperSymbol, keyword)) {
			return true
		}
	}
	return false
}

// HasFundNameIndicator reports whether a holding name looks like a
// fund instead of a company.
func HasFundNameIndicator(name string) bool {
	return containsAny(strings.ToLower(name), fundNameIndicators)
}

// IsCommodityName reports whether a name identifies a commodity
// instrument (physical metal ETCs and the like).
func IsCommodityName(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "GOLD") || strings.Contains(upper, "SILVER") || strings.Contains(upper, "COMMODITY")
}

// IsBondName reports whether a name identifies a bond instrument.
func IsBondName(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "BOND") || strings.Contains(upper, "ANLEIHE")
}

// IsCashNote reports whether an annotation value marks a row as cash.
// Equality against the marker set, not containment: notes like
// "CASHFLOW STRATEGY" must not match.
func IsCashNote(note string) bool {
	upper := strings.ToUpper(strings.TrimSpace(note))
	for _, marker := range cashNoteMarkers {
		if upper == marker {
			return true
		}
	}
	return false
}

// HasCashNoteMarker reports whether an annotation value contains a
// cash marker anywhere. Used for the type override on security rows,
// where free-form notes like "GELDMARKT-ETF" should still count.
func HasCashNoteMarker(note string) bool {
	return containsAny(strings.ToUpper(note), cashNoteMarkers)
}

// NormalizePositionName folds a position name for cross-source
// matching: lowercase, collapsed whitespace, and common legal-form
// suffixes removed.
func NormalizePositionName(name string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(normalized, suffix) {
			normalized = strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
		}
	}
	return normalized
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
