package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalSectorDeclared(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "german technology", input: "Informationstechnologie", expected: "Technology"},
		{name: "german financials", input: "Finanzwesen", expected: "Financial Services"},
		{name: "german healthcare", input: "Gesundheitswesen", expected: "Healthcare"},
		{name: "german consumer cyclical", input: "Nicht-Basiskonsumgüter", expected: "Consumer Cyclical"},
		{name: "german materials with punctuation", input: "Roh-, Hilfs- & Betriebsstoffe", expected: "Materials"},
		{name: "german utilities", input: "Versorgungsbetriebe", expected: "Utilities"},
		{name: "english variant", input: "Health Care", expected: "Healthcare"},
		{name: "case insensitive", input: "energie", expected: "Energy"},
		{name: "unmapped is title cased", input: "pipelines", expected: "Pipelines"},
		{name: "unmapped multiword", input: "aerospace & defense", expected: "Aerospace & Defense"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalSectorDeclared(tt.input))
		})
	}
}

func TestCanonicalSector(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: "Unknown"},
		{name: "unknown passthrough", input: "Unknown", expected: "Unknown"},
		{name: "substring match", input: "Software & IT Services", expected: "Technology"},
		{name: "german containment", input: "Banken & Versicherungen", expected: "Financial Services"},
		{name: "biotech", input: "Biotechnology", expected: "Healthcare"},
		{name: "oil and gas", input: "Oil & Gas Producers", expected: "Energy"},
		{name: "grundstoffe beats rohstoffe", input: "Grundstoffe", expected: "Materials"},
		{name: "rohstoffe alone is commodity", input: "Rohstoffe", expected: "Commodity"},
		{name: "diversified", input: "Diversifiziert", expected: "Diversified"},
		{name: "etf bucket", input: "ETF", expected: "ETF"},
		{name: "cash bucket", input: "Cash", expected: "Cash"},
		{name: "media", input: "Medienunternehmen", expected: "Communication Services"},
		{name: "unmapped title cased", input: "shipping", expected: "Shipping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalSector(tt.input))
		})
	}
}

func TestCanonicalVendorSector(t *testing.T) {
	assert.Equal(t, "Consumer Staples", CanonicalVendorSector("Consumer Defensive"))
	assert.Equal(t, "Consumer Cyclical", CanonicalVendorSector("Consumer Discretionary"))
	assert.Equal(t, "Technology", CanonicalVendorSector("Information Technology"))
	assert.Equal(t, "Financial Services", CanonicalVendorSector("Financials"))
	assert.Equal(t, "Healthcare", CanonicalVendorSector("Health Care"))
	assert.Equal(t, "Materials", CanonicalVendorSector("Basic Materials"))
	assert.Equal(t, "Communication Services", CanonicalVendorSector("Communications"))
	assert.Equal(t, "Technology", CanonicalVendorSector("Technology"))
	assert.Equal(t, "Unknown", CanonicalVendorSector(""))
}

func TestCurrencyForISIN(t *testing.T) {
	assert.Equal(t, "USD", CurrencyForISIN("US0378331005", "EUR"))
	assert.Equal(t, "EUR", CurrencyForISIN("DE0007164600", "USD"))
	assert.Equal(t, "GBP", CurrencyForISIN("GB0005405286", "EUR"))
	assert.Equal(t, "CHF", CurrencyForISIN("CH0038863350", "EUR"))
	assert.Equal(t, "EUR", CurrencyForISIN("IE00B4L5Y983", "USD"))

	// Unknown prefix and short input keep the declared currency.
	assert.Equal(t, "EUR", CurrencyForISIN("XS1234567890", "EUR"))
	assert.Equal(t, "EUR", CurrencyForISIN("X", "EUR"))
	assert.Equal(t, "EUR", CurrencyForISIN("", "EUR"))
}

func TestCountryForCurrency(t *testing.T) {
	assert.Equal(t, "USA", CountryForCurrency("USD"))
	assert.Equal(t, "Eurozone", CountryForCurrency("EUR"))
	assert.Equal(t, "United Kingdom", CountryForCurrency("GBP"))
	assert.Equal(t, "Diversified", CountryForCurrency("Mixed"))
	assert.Equal(t, "Unknown", CountryForCurrency("XYZ"))
	assert.Equal(t, "Unknown", CountryForCurrency(""))
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "USA", CountryName("US"))
	assert.Equal(t, "Germany", CountryName("DE"))
	assert.Equal(t, "United Kingdom", CountryName("GB"))
	assert.Equal(t, "Unknown (XX)", CountryName("XX"))
	assert.Equal(t, "Unknown (Mixed)", CountryName("Mixed"))
}

func TestCurrencyForCountry(t *testing.T) {
	currency, ok := CurrencyForCountry("United States")
	assert.True(t, ok)
	assert.Equal(t, "USD", currency)

	currency, ok = CurrencyForCountry("DE")
	assert.True(t, ok)
	assert.Equal(t, "EUR", currency)

	// Eurozone members fold to EUR.
	currency, ok = CurrencyForCountry("Ireland")
	assert.True(t, ok)
	assert.Equal(t, "EUR", currency)

	// "Other" is explicitly unmapped.
	_, ok = CurrencyForCountry("Other")
	assert.False(t, ok)
	_, ok = CurrencyForCountry("other")
	assert.False(t, ok)

	// Substring fallback resolves qualified labels.
	currency, ok = CurrencyForCountry("China (Mainland)")
	assert.True(t, ok)
	assert.Equal(t, "CNY", currency)

	// The fallback also matches bare codes embedded in longer labels.
	currency, ok = CurrencyForCountry("Atlantis")
	assert.True(t, ok)
	assert.Equal(t, "EUR", currency)

	_, ok = CurrencyForCountry("XX")
	assert.False(t, ok)
	_, ok = CurrencyForCountry("")
	assert.False(t, ok)
}

func TestClassificationKeywords(t *testing.T) {
	assert.True(t, IsMoneyMarketName("Xtrackers II EUR Overnight Rate Swap"))
	assert.True(t, IsMoneyMarketName("Amundi EUR Geldmarkt"))
	assert.True(t, IsMoneyMarketName("XEON"))
	assert.False(t, IsMoneyMarketName("iShares Core MSCI World"))

	assert.True(t, IsFundName("iShares Core MSCI World UCITS ETF", ""))
	assert.True(t, IsFundName("Vanguard FTSE All-World", ""))
	assert.True(t, IsFundName("Some Fund", "EUNL"))
	assert.False(t, IsFundName("Apple Inc", "AAPL"))

	assert.True(t, HasFundNameIndicator("iShares Core MSCI World UCITS ETF"))
	assert.True(t, HasFundNameIndicator("Xtrackers Portfolio Fonds"))
	assert.False(t, HasFundNameIndicator("Apple Inc"))

	assert.True(t, IsCommodityName("Xetra-Gold"))
	assert.True(t, IsCommodityName("WisdomTree Physical Silver"))
	assert.False(t, IsCommodityName("Apple Inc"))

	assert.True(t, IsBondName("Bundesanleihe 2030"))
	assert.True(t, IsBondName("US Treasury Bond"))
	assert.False(t, IsBondName("Apple Inc"))
}

func TestCashNotes(t *testing.T) {
	assert.True(t, IsCashNote("CASH"))
	assert.True(t, IsCashNote("geldmarkt"))
	assert.True(t, IsCashNote(" Tagesgeld "))
	assert.False(t, IsCashNote("CASHFLOW STRATEGY"))
	assert.False(t, IsCashNote(""))

	assert.True(t, HasCashNoteMarker("GELDMARKT-ETF"))
	assert.True(t, HasCashNoteMarker("enthält CASH"))
	assert.False(t, HasCashNoteMarker("dividend notes"))
}

func TestNormalizePositionName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "uppercase with suffix", input: "APPLE INC", expected: "apple"},
		{name: "dotted suffix", input: "Apple Inc.", expected: "apple"},
		{name: "collapsed whitespace", input: "  Microsoft   Corp  ", expected: "microsoft"},
		// Suffixes strip in a single ordered pass, so the inner "inc"
		// survives once "class a" is gone.
		{name: "share class", input: "Alphabet Inc Class A", expected: "alphabet inc"},
		{name: "german legal form", input: "Siemens AG", expected: "siemens"},
		{name: "plc", input: "Shell PLC", expected: "shell"},
		{name: "no suffix", input: "Nestlé", expected: "nestlé"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePositionName(tt.input))
		})
	}
}
