package funds

// referenceDetails holds built-in compositions for funds that show up
// in broker snapshots often enough to deserve look-through even before
// anything has been scraped. Top holdings with their published weights
// plus an aggregate remainder row; no allocation tables.
var referenceDetails = map[string]*Detail{
	"IE00B4L5Y983": {
		ISIN:        "IE00B4L5Y983",
		Name:        "iShares Core MSCI World UCITS ETF",
		Ticker:      "EUNL.DE",
		Type:        TypeStock,
		LastUpdated: "2026-02-04",
		Source:      "Mock Data (justETF Feb 2026)",
		Holdings: []Holding{
			{Name: "Apple Inc", Weight: 0.0498, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "NVIDIA Corp", Weight: 0.0467, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "Microsoft Corp", Weight: 0.0395, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "Amazon.com Inc", Weight: 0.0228, Currency: "USD", Sector: "Consumer Cyclical", Country: "US"},
			{Name: "Meta Platforms Inc", Weight: 0.0163, Currency: "USD", Sector: "Communication Services", Country: "US"},
			{Name: "Alphabet Inc Class A", Weight: 0.0141, Currency: "USD", Sector: "Communication Services", Country: "US"},
			{Name: "Alphabet Inc Class C", Weight: 0.0123, Currency: "USD", Sector: "Communication Services", Country: "US"},
			{Name: "Broadcom Inc", Weight: 0.0108, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "Tesla Inc", Weight: 0.0099, Currency: "USD", Sector: "Consumer Cyclical", Country: "US"},
			{Name: "Berkshire Hathaway Inc", Weight: 0.0095, Currency: "USD", Sector: "Financial Services", Country: "US"},
			{Name: "Eli Lilly and Co", Weight: 0.0088, Currency: "USD", Sector: "Healthcare", Country: "US"},
			{Name: "JPMorgan Chase & Co", Weight: 0.0081, Currency: "USD", Sector: "Financial Services", Country: "US"},
			{Name: "Walmart Inc", Weight: 0.0074, Currency: "USD", Sector: "Consumer Staples", Country: "US"},
			{Name: "Visa Inc", Weight: 0.0069, Currency: "USD", Sector: "Financial Services", Country: "US"},
			{Name: "UnitedHealth Group Inc", Weight: 0.0065, Currency: "USD", Sector: "Healthcare", Country: "US"},
			{Name: "Other Holdings (>1400 positions)", Weight: 0.6906, Currency: "Mixed", Sector: "Diversified", Country: "Mixed"},
		},
	},
	"IE00B8GKDB10": {
		ISIN:        "IE00B8GKDB10",
		Name:        "Vanguard FTSE All-World High Dividend Yield UCITS ETF",
		Ticker:      "VHYL.L",
		Type:        TypeStock,
		LastUpdated: "2026-02-04",
		Source:      "Mock Data (Vanguard Feb 2026)",
		Holdings: []Holding{
			{Name: "JPMorgan Chase & Co", Weight: 0.0195, Currency: "USD", Sector: "Financial Services", Country: "US"},
			{Name: "Johnson & Johnson", Weight: 0.0187, Currency: "USD", Sector: "Healthcare", Country: "US"},
			{Name: "Exxon Mobil Corp", Weight: 0.0176, Currency: "USD", Sector: "Energy", Country: "US"},
			{Name: "Procter & Gamble Co", Weight: 0.0164, Currency: "USD", Sector: "Consumer Defensive", Country: "US"},
			{Name: "Bank of America Corp", Weight: 0.0153, Currency: "USD", Sector: "Financial Services", Country: "US"},
			{Name: "AbbVie Inc", Weight: 0.0142, Currency: "USD", Sector: "Healthcare", Country: "US"},
			{Name: "Coca-Cola Co", Weight: 0.0138, Currency: "USD", Sector: "Consumer Defensive", Country: "US"},
			{Name: "Chevron Corp", Weight: 0.0131, Currency: "USD", Sector: "Energy", Country: "US"},
			{Name: "PepsiCo Inc", Weight: 0.0125, Currency: "USD", Sector: "Consumer Defensive", Country: "US"},
			{Name: "Merck & Co Inc", Weight: 0.0119, Currency: "USD", Sector: "Healthcare", Country: "US"},
			{Name: "Pfizer Inc", Weight: 0.0112, Currency: "USD", Sector: "Healthcare", Country: "US"},
			{Name: "Cisco Systems Inc", Weight: 0.0105, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "Other Holdings (>1800 positions)", Weight: 0.8253, Currency: "Mixed", Sector: "Diversified", Country: "Mixed"},
		},
	},
	"IE00B3RBWM25": {
		ISIN:        "IE00B3RBWM25",
		Name:        "Vanguard FTSE All-World UCITS ETF",
		Ticker:      "VWRL.L",
		Type:        TypeStock,
		LastUpdated: "2024-01-01",
		Source:      "Mock Data",
		Holdings:    allWorldHoldings,
	},
	"IE00BK5BQT80": {
		ISIN:        "IE00BK5BQT80",
		Name:        "Vanguard FTSE All-World UCITS ETF (Acc)",
		Ticker:      "VWCE.DE",
		Type:        TypeStock,
		LastUpdated: "2024-01-01",
		Source:      "Mock Data",
		Holdings:    allWorldHoldings,
	},
}

// The distributing and accumulating share classes track the same index
// and publish the same top holdings.
var allWorldHoldings = []Holding{
	{Name: "Apple Inc", Weight: 0.0445, Currency: "USD", Sector: "Technology", Country: "US"},
	{Name: "Microsoft Corp", Weight: 0.0391, Currency: "USD", Sector: "Technology", Country: "US"},
	{Name: "Amazon.com Inc", Weight: 0.0201, Currency: "USD", Sector: "Consumer Cyclical", Country: "US"},
	{Name: "NVIDIA Corp", Weight: 0.0198, Currency: "USD", Sector: "Technology", Country: "US"},
	{Name: "Alphabet Inc Class A", Weight: 0.0125, Currency: "USD", Sector: "Communication Services", Country: "US"},
	{Name: "Meta Platforms Inc", Weight: 0.0149, Currency: "USD", Sector: "Communication Services", Country: "US"},
	{Name: "Alphabet Inc Class C", Weight: 0.0109, Currency: "USD", Sector: "Communication Services", Country: "US"},
	{Name: "Tesla Inc", Weight: 0.0131, Currency: "USD", Sector: "Consumer Cyclical", Country: "US"},
	{Name: "Berkshire Hathaway Inc", Weight: 0.0128, Currency: "USD", Sector: "Financial Services", Country: "US"},
	{Name: "Broadcom Inc", Weight: 0.0095, Currency: "USD", Sector: "Technology", Country: "US"},
	{Name: "Other Holdings (>3900 positions)", Weight: 0.8028, Currency: "Mixed", Sector: "Diversified", Country: "Mixed"},
}

// Reference returns the built-in composition for an ISIN. The returned
// detail is shared; callers must treat it as read-only.
func Reference(isin string) (*Detail, bool) {
	d, ok := referenceDetails[normalizeISIN(isin)]
	return d, ok
}
