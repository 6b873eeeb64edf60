package refdata

import "strings"

// isinCurrencies maps the two-letter country prefix of an ISIN to the
// usual trading currency of that market.
var isinCurrencies = map[string]string{
	"US": "USD",
	"CA": "CAD",
	"GB": "GBP",
	"CH": "CHF",
	"JP": "JPY",
	"CN": "CNY",
	"HK": "HKD",
	"AU": "AUD",
	"KR": "KRW",
	"IN": "INR",
	"BR": "BRL",
	"ZA": "ZAR",
	// Eurozone
	"DE": "EUR", "FR": "EUR", "IT": "EUR", "ES": "EUR",
	"NL": "EUR", "BE": "EUR", "AT": "EUR", "IE": "EUR",
	"PT": "EUR", "FI": "EUR", "GR": "EUR", "LU": "EUR",
	// Northern Europe outside the euro
	"SE": "SEK",
	"NO": "NOK",
	"DK": "DKK",
	"PL": "PLN",
	"CZ": "CZK",
	"HU": "HUF",
}

// currencyCountries maps a currency to the country bucket used when a
// holding carries no usable identifier or country field.
var currencyCountries = map[string]string{
	"USD":   "USA",
	"EUR":   "Eurozone",
	"GBP":   "United Kingdom",
	"CHF":   "Switzerland",
	"JPY":   "Japan",
	"CAD":   "Canada",
	"AUD":   "Australia",
	"CNY":   "China",
	"HKD":   "Hong Kong",
	"SGD":   "Singapore",
	"KRW":   "South Korea",
	"BRL":   "Brazil",
	"INR":   "India",
	"ZAR":   "South Africa",
	"MXN":   "Mexico",
	"SEK":   "Sweden",
	"DKK":   "Denmark",
	"NOK":   "Norway",
	"PLN":   "Poland",
	"CZK":   "Czechia",
	"TWD":   "Taiwan",
	"Mixed": "Diversified",
}

// countryNames maps ISO 3166-1 alpha-2 codes to display names.
var countryNames = map[string]string{
	"US": "USA",
	"DE": "Germany",
	"GB": "United Kingdom",
	"FR": "France",
	"CH": "Switzerland",
	"NL": "Netherlands",
	"IE": "Ireland",
	"LU": "Luxembourg",
	"IT": "Italy",
	"ES": "Spain",
	"AT": "Austria",
	"BE": "Belgium",
	"SE": "Sweden",
	"DK": "Denmark",
	"NO": "Norway",
	"FI": "Finland",
	"CA": "Canada",
	"JP": "Japan",
	"AU": "Australia",
	"CN": "China",
	"HK": "Hong Kong",
	"SG": "Singapore",
	"KR": "South Korea",
	"BR": "Brazil",
	"IN": "India",
	"ZA": "South Africa",
	"MX": "Mexico",
	"RU": "Russia",
	"PL": "Poland",
	"CZ": "Czechia",
	"GR": "Greece",
	"PT": "Portugal",
}

// countryCurrencies resolves scraped country labels (full names as
// shown on the English fund profile pages, plus ISO codes) to their
// currency. The slice is ordered: exact lookup scans it front to back
// and the substring fallback takes the first match, so short codes
// must stay directly behind their full names.
var countryCurrencies = []struct {
	country  string
	currency string
}{
	// North America
	{"United States", "USD"}, {"US", "USD"}, {"USA", "USD"},
	{"Canada", "CAD"}, {"CA", "CAD"},
	{"Mexico", "MXN"}, {"MX", "MXN"},

	// Eurozone
	{"Germany", "EUR"}, {"DE", "EUR"},
	{"France", "EUR"}, {"FR", "EUR"},
	{"Netherlands", "EUR"}, {"NL", "EUR"},
	{"Italy", "EUR"}, {"IT", "EUR"},
	{"Spain", "EUR"}, {"ES", "EUR"},
	{"Belgium", "EUR"}, {"BE", "EUR"},
	{"Austria", "EUR"}, {"AT", "EUR"},
	{"Finland", "EUR"}, {"FI", "EUR"},
	{"Ireland", "EUR"}, {"IE", "EUR"},
	{"Portugal", "EUR"}, {"PT", "EUR"},
	{"Greece", "EUR"}, {"GR", "EUR"},
	{"Luxembourg", "EUR"}, {"LU", "EUR"},
	{"Slovakia", "EUR"}, {"SK", "EUR"},
	{"Slovenia", "EUR"}, {"SI", "EUR"},
	{"Estonia", "EUR"}, {"EE", "EUR"},
	{"Latvia", "EUR"}, {"LV", "EUR"},
	{"Lithuania", "EUR"}, {"LT", "EUR"},
	{"Cyprus", "EUR"}, {"CY", "EUR"},
	{"Malta", "EUR"}, {"MT", "EUR"},
	{"Croatia", "EUR"}, {"HR", "EUR"},
	{"Eurozone", "EUR"}, {"EU", "EUR"},

	// Europe outside the euro
	{"United Kingdom", "GBP"}, {"GB", "GBP"}, {"UK", "GBP"},
	{"Switzerland", "CHF"}, {"CH", "CHF"},
	{"Sweden", "SEK"}, {"SE", "SEK"},
	{"Norway", "NOK"}, {"NO", "NOK"},
	{"Denmark", "DKK"}, {"DK", "DKK"},
	{"Poland", "PLN"}, {"PL", "PLN"},
	{"Czech Republic", "CZK"}, {"CZ", "CZK"}, {"Czechia", "CZK"},
	{"Hungary", "HUF"}, {"HU", "HUF"},
	{"Romania", "RON"}, {"RO", "RON"},
	{"Turkey", "TRY"}, {"TR", "TRY"},
	{"Russia", "RUB"}, {"RU", "RUB"},
	{"Iceland", "ISK"}, {"IS", "ISK"},

	// Asia
	{"Japan", "JPY"}, {"JP", "JPY"},
	{"China", "CNY"}, {"CN", "CNY"},
	{"Hong Kong", "HKD"}, {"HK", "HKD"},
	{"South Korea", "KRW"}, {"KR", "KRW"}, {"Korea", "KRW"},
	{"Taiwan", "TWD"}, {"TW", "TWD"},
	{"India", "INR"}, {"IN", "INR"},
	{"Singapore", "SGD"}, {"SG", "SGD"},
	{"Indonesia", "IDR"}, {"ID", "IDR"},
	{"Thailand", "THB"}, {"TH", "THB"},
	{"Malaysia", "MYR"}, {"MY", "MYR"},
	{"Philippines", "PHP"}, {"PH", "PHP"},
	{"Vietnam", "VND"}, {"VN", "VND"},
	{"Pakistan", "PKR"}, {"PK", "PKR"},
	{"Bangladesh", "BDT"}, {"BD", "BDT"},
	{"Sri Lanka", "LKR"}, {"LK", "LKR"},

	// Oceania
	{"Australia", "AUD"}, {"AU", "AUD"},
	{"New Zealand", "NZD"}, {"NZ", "NZD"},

	// Middle East
	{"Saudi Arabia", "SAR"}, {"SA", "SAR"},
	{"United Arab Emirates", "AED"}, {"AE", "AED"},
	{"Israel", "ILS"}, {"IL", "ILS"},
	{"Qatar", "QAR"}, {"QA", "QAR"},
	{"Kuwait", "KWD"}, {"KW", "KWD"},

	// South America
	{"Brazil", "BRL"}, {"BR", "BRL"},
	{"Argentina", "ARS"}, {"AR", "ARS"},
	{"Chile", "CLP"}, {"CL", "CLP"},
	{"Colombia", "COP"}, {"CO", "COP"},
	{"Peru", "PEN"}, {"PE", "PEN"},

	// Africa
	{"South Africa", "ZAR"}, {"ZA", "ZAR"},
	{"Nigeria", "NGN"}, {"NG", "NGN"},
	{"Kenya", "KES"}, {"KE", "KES"},
	{"Egypt", "EGP"}, {"EG", "EGP"},
	{"Morocco", "MAD"}, {"MA", "MAD"},
}

// CurrencyForISIN derives the trading currency of a security from the
// country prefix of its ISIN, falling back to the declared currency
// when the prefix is unknown or the ISIN is too short.
func CurrencyForISIN(isin, fallback string) string {
	if len(isin) < 2 {
		return fallback
	}
	if currency, ok := isinCurrencies[strings.ToUpper(isin[:2])]; ok {
		return currency
	}
	return fallback
}

// CountryForCurrency maps a currency to its country bucket, returning
// "Unknown" for unmapped currencies.
func CountryForCurrency(currency string) string {
	if country, ok := currencyCountries[currency]; ok {
		return country
	}
	return "Unknown"
}

// CountryName resolves an ISO alpha-2 code to a display name. Unknown
// codes yield "Unknown (<code>)" so the aggregation retry logic can
// detect the miss.
func CountryName(code string) string {
	if name, ok := countryNames[code]; ok {
		return name
	}
	return "Unknown (" + code + ")"
}

// CurrencyForCountry resolves a scraped country label to a currency.
// Exact labels win; "Other" is explicitly unmapped; anything else
// falls back to a bidirectional substring match in table order.
func CurrencyForCountry(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	for _, entry := range countryCurrencies {
		if entry.country == label {
			return entry.currency, true
		}
	}
	lower := strings.ToLower(label)
	if lower == "other" {
		return "", false
	}
	for _, entry := range countryCurrencies {
		entryLower := strings.ToLower(entry.country)
		if strings.Contains(lower, entryLower) || strings.Contains(entryLower, lower) {
			return entry.currency, true
		}
	}
	return "", false
}
