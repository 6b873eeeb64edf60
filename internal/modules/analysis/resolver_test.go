package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/ingestion"
)

type stubSectors struct {
	sectors map[string]string
	calls   []string
}

func (s *stubSectors) Lookup(_ context.Context, symbol string, _ bool) string {
	s.calls = append(s.calls, symbol)
	if sector, ok := s.sectors[symbol]; ok {
		return sector
	}
	return "Unknown"
}

func newTestResolver(t *testing.T, sectors *stubSectors) (*Resolver, *funds.Store, *diagnostics.Collector) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store, err := funds.NewStore(t.TempDir(), funds.StaleAfterDays, log)
	require.NoError(t, err)
	overlay := funds.NewOverlay(filepath.Join(t.TempDir(), "user_holdings.csv"), log)
	diag := diagnostics.NewCollector()
	return NewResolver(store, overlay, sectors, diag, log), store, diag
}

func seedDetail(t *testing.T, store *funds.Store, d *funds.Detail) {
	t.Helper()
	if d.Type == "" {
		d.Type = funds.TypeStock
	}
	if d.LastUpdated == "" {
		d.LastUpdated = time.Now().Format("2006-01-02")
	}
	require.NoError(t, store.Put(d))
}

func fundPosition(name, isin string, value float64) ingestion.Position {
	return ingestion.Position{Name: name, ISIN: isin, Type: ingestion.InstrumentFund, Currency: "EUR", Value: value}
}

func expand(r *Resolver, positions ...ingestion.Position) []EffectiveHolding {
	return r.Expand(context.Background(), &ingestion.Snapshot{Positions: positions})
}

func totalValue(holdings []EffectiveHolding) float64 {
	var sum float64
	for i := range holdings {
		sum += holdings[i].Value
	}
	return sum
}

func TestExpand_FundTopHoldings(t *testing.T) {
	resolver, store, _ := newTestResolver(t, &stubSectors{})
	seedDetail(t, store, &funds.Detail{
		ISIN:   "IE00B4L5Y983",
		Ticker: "EUNL.DE",
		Name:   "iShares Core MSCI World",
		Holdings: []funds.Holding{
			{Name: "Apple Inc", Weight: 0.6, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "SAP SE", Weight: 0.4, Currency: "EUR", Sector: "Technology", Country: "DE"},
		},
	})

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 2)
	assert.Equal(t, "Apple Inc", holdings[0].Name)
	assert.InDelta(t, 600, holdings[0].Value, 1e-9)
	assert.Equal(t, "USD", holdings[0].Currency)
	assert.Equal(t, "US", holdings[0].Country)
	assert.Equal(t, ingestion.InstrumentFundHolding, holdings[0].Type)
	assert.Equal(t, funds.TypeStock, holdings[0].FundType)
	assert.Equal(t, "World ETF", holdings[0].SourceFund)
	assert.Equal(t, ProvenanceFundDetail, holdings[0].Provenance)

	assert.InDelta(t, 400, holdings[1].Value, 1e-9)
	assert.InDelta(t, 1000, totalValue(holdings), 1e-9)
}

func TestExpand_ResidualDecomposition(t *testing.T) {
	resolver, store, _ := newTestResolver(t, &stubSectors{})
	seedDetail(t, store, &funds.Detail{
		ISIN:   "IE00B4L5Y983",
		Ticker: "EUNL.DE",
		Name:   "iShares Core MSCI World",
		Currencies: []funds.Allocation{
			{Name: "USD", Weight: 0.5},
			{Name: "EUR", Weight: 0.3},
			{Name: "JPY", Weight: 0.2},
		},
		Holdings: []funds.Holding{
			{Name: "Apple Inc", Weight: 0.3, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "SAP SE", Weight: 0.2, Currency: "EUR", Sector: "Technology", Country: "DE"},
			{Name: "Other Holdings", Weight: 0.5, Currency: "Mixed", Sector: "Diversified", Country: "Mixed"},
		},
	})

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 5)
	assert.InDelta(t, 1000, totalValue(holdings), 1e-9)

	residuals := map[string]float64{}
	for _, h := range holdings {
		if h.Name == "Other Holdings - World ETF" {
			residuals[h.Currency] = h.Value
			assert.Equal(t, "Diversified", h.Sector)
			assert.Equal(t, "Mixed", h.Country)
			assert.Equal(t, ProvenanceFundDetail, h.Provenance)
		}
	}
	require.Len(t, residuals, 3)
	assert.InDelta(t, 200, residuals["USD"], 1e-9)
	assert.InDelta(t, 100, residuals["EUR"], 1e-9)
	assert.InDelta(t, 200, residuals["JPY"], 1e-9)
}

func TestExpand_ResidualMixedWithoutAllocation(t *testing.T) {
	resolver, store, _ := newTestResolver(t, &stubSectors{})
	seedDetail(t, store, &funds.Detail{
		ISIN:   "IE00B4L5Y983",
		Ticker: "EUNL.DE",
		Name:   "iShares Core MSCI World",
		Holdings: []funds.Holding{
			{Name: "Apple Inc", Weight: 0.5, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "Other Holdings", Weight: 0.5, Currency: "Mixed", Sector: "Diversified"},
		},
	})

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 2)
	residual := holdings[1]
	assert.Equal(t, "Other Holdings - World ETF", residual.Name)
	assert.Equal(t, "Mixed", residual.Currency)
	assert.Equal(t, "Mixed", residual.Country)
	assert.InDelta(t, 500, residual.Value, 1e-9)
}

func TestExpand_NegativeResidualClipped(t *testing.T) {
	resolver, store, _ := newTestResolver(t, &stubSectors{})
	seedDetail(t, store, &funds.Detail{
		ISIN:   "IE00B4L5Y983",
		Ticker: "EUNL.DE",
		Name:   "iShares Core MSCI World",
		Currencies: []funds.Allocation{
			{Name: "USD", Weight: 0.2},
			{Name: "EUR", Weight: 0.7},
		},
		Holdings: []funds.Holding{
			{Name: "Apple Inc", Weight: 0.3, Currency: "USD", Sector: "Technology", Country: "US"},
			{Name: "Other Holdings", Weight: 0.7, Currency: "Mixed", Sector: "Diversified", Country: "Mixed"},
		},
	})

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	// USD is over-represented in the top holdings, so only the EUR
	// residual survives.
	require.Len(t, holdings, 2)
	residual := holdings[1]
	assert.Equal(t, "EUR", residual.Currency)
	assert.InDelta(t, 700, residual.Value, 1e-9)
}

func TestExpand_OpaqueFund(t *testing.T) {
	resolver, _, diag := newTestResolver(t, &stubSectors{})

	holdings := expand(resolver, fundPosition("Obscure ETF", "LU0000000001", 800))

	require.Len(t, holdings, 1)
	assert.Equal(t, "Obscure ETF", holdings[0].Name)
	assert.Equal(t, "ETF", holdings[0].Sector)
	assert.Equal(t, ingestion.InstrumentFund, holdings[0].Type)
	assert.InDelta(t, 800, holdings[0].Value, 1e-9)
	assert.Equal(t, ProvenanceFundDerived, holdings[0].Provenance)

	messages := diag.ByCategory("funds")
	require.Len(t, messages, 1)
	assert.Equal(t, diagnostics.LevelInfo, messages[0].Level)
	assert.Contains(t, messages[0].Message, "Obscure ETF")
}

func TestExpand_FundWithoutISIN(t *testing.T) {
	resolver, _, diag := newTestResolver(t, &stubSectors{})

	holdings := expand(resolver, ingestion.Position{
		Name: "Unlisted ETF", Type: ingestion.InstrumentFund, Currency: "EUR", Value: 500,
	})

	require.Len(t, holdings, 1)
	assert.Equal(t, "ETF", holdings[0].Sector)
	assert.Empty(t, diag.Messages())
}

func TestExpand_ReferenceFallback(t *testing.T) {
	resolver, _, _ := newTestResolver(t, &stubSectors{})

	holdings := expand(resolver, fundPosition("MSCI World Sparplan", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 16)
	assert.Equal(t, "Apple Inc", holdings[0].Name)
	assert.InDelta(t, 49.8, holdings[0].Value, 1e-9)
	assert.Equal(t, ProvenanceFundDerived, holdings[0].Provenance)

	residual := holdings[15]
	assert.Equal(t, "Other Holdings - MSCI World Sparplan", residual.Name)
	assert.Equal(t, "Mixed", residual.Currency)
	assert.InDelta(t, 690.6, residual.Value, 1e-9)
}

func TestExpand_OverlayShadowsReference(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	store, err := funds.NewStore(t.TempDir(), funds.StaleAfterDays, log)
	require.NoError(t, err)

	overlayPath := filepath.Join(t.TempDir(), "user_holdings.csv")
	overlayCSV := "ISIN,ETF_Name,Holding_Name,Weight,Currency,Sector,Industry,Country\n" +
		"IE00B4L5Y983,My World ETF,SAP SE,100,EUR,Technology,Software,DE\n"
	require.NoError(t, os.WriteFile(overlayPath, []byte(overlayCSV), 0o644))

	diag := diagnostics.NewCollector()
	resolver := NewResolver(store, funds.NewOverlay(overlayPath, log), &stubSectors{}, diag, log)

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 1)
	assert.Equal(t, "SAP SE", holdings[0].Name)
	assert.InDelta(t, 1000, holdings[0].Value, 1e-9)
	assert.Equal(t, "EUR", holdings[0].Currency)
	assert.Equal(t, ProvenanceFundDerived, holdings[0].Provenance)
}

func TestExpand_StoreShadowsOverlayAndReference(t *testing.T) {
	resolver, store, _ := newTestResolver(t, &stubSectors{})
	seedDetail(t, store, &funds.Detail{
		ISIN:   "IE00B4L5Y983",
		Ticker: "EUNL.DE",
		Name:   "iShares Core MSCI World",
		Holdings: []funds.Holding{
			{Name: "Apple Inc", Weight: 1, Currency: "USD", Sector: "Technology", Country: "US"},
		},
	})

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 1)
	assert.Equal(t, ProvenanceFundDetail, holdings[0].Provenance)
}

func TestExpand_StaleDetailWarns(t *testing.T) {
	resolver, store, diag := newTestResolver(t, &stubSectors{})
	seedDetail(t, store, &funds.Detail{
		ISIN:        "IE00B4L5Y983",
		Ticker:      "EUNL.DE",
		Name:        "iShares Core MSCI World",
		LastUpdated: "2020-01-02",
		Holdings: []funds.Holding{
			{Name: "Apple Inc", Weight: 1, Currency: "USD", Sector: "Technology", Country: "US"},
		},
	})

	holdings := expand(resolver, fundPosition("World ETF", "IE00B4L5Y983", 1000))

	require.Len(t, holdings, 1)
	warnings := diag.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "days old")
	assert.Contains(t, warnings[0].Message, "EUNL.DE")
}

func TestDirect_DeclaredSectorWins(t *testing.T) {
	sectors := &stubSectors{sectors: map[string]string{"AAPL": "Technology"}}
	resolver, _, _ := newTestResolver(t, sectors)

	holdings := expand(resolver, ingestion.Position{
		Name: "Apple Inc.", ISIN: "US0378331005", Symbol: "AAPL",
		Type: ingestion.InstrumentStock, Currency: "EUR", Value: 2000,
		Sector: "Technology",
	})

	require.Len(t, holdings, 1)
	assert.Equal(t, "Technology", holdings[0].Sector)
	assert.Equal(t, ProvenanceDeclared, holdings[0].Provenance)
	assert.Equal(t, "USD", holdings[0].Currency, "trading currency comes from the identifier prefix")
	assert.Empty(t, sectors.calls, "declared sector must not trigger a lookup")
}

func TestDirect_LookupOrder(t *testing.T) {
	sectors := &stubSectors{sectors: map[string]string{"AAPL": "Technology"}}
	resolver, _, _ := newTestResolver(t, sectors)

	holdings := expand(resolver, ingestion.Position{
		Name: "Apple Inc.", ISIN: "US0378331005", Symbol: "AAPL",
		Type: ingestion.InstrumentStock, Currency: "EUR", Value: 2000,
	})

	require.Len(t, holdings, 1)
	assert.Equal(t, "Technology", holdings[0].Sector)
	assert.Equal(t, ProvenanceLookup, holdings[0].Provenance)
	assert.Equal(t, []string{"US0378331005", "AAPL"}, sectors.calls)
}

func TestDirect_UnknownSector(t *testing.T) {
	sectors := &stubSectors{}
	resolver, _, _ := newTestResolver(t, sectors)

	holdings := expand(resolver, ingestion.Position{
		Name: "Mystery Corp", Symbol: "MYST",
		Type: ingestion.InstrumentStock, Currency: "EUR", Value: 100,
	})

	require.Len(t, holdings, 1)
	assert.Equal(t, "Unknown", holdings[0].Sector)
	assert.Equal(t, ProvenanceFundDerived, holdings[0].Provenance)
	assert.Equal(t, []string{"MYST"}, sectors.calls)
}

func TestDirect_NonStockTypes(t *testing.T) {
	resolver, _, _ := newTestResolver(t, &stubSectors{})

	holdings := expand(resolver,
		ingestion.Position{Name: "Verrechnungskonto", Type: ingestion.InstrumentCash, Currency: "EUR", Value: 300},
		ingestion.Position{Name: "Xetra Gold", ISIN: "DE000A0S9GB0", Type: ingestion.InstrumentCommodity, Currency: "EUR", Value: 500},
		ingestion.Position{Name: "Bund 2030", Type: ingestion.InstrumentBond, Currency: "EUR", Value: 200},
	)

	require.Len(t, holdings, 3)
	assert.Equal(t, "Cash", holdings[0].Sector)
	assert.Equal(t, "Commodity", holdings[1].Sector)
	assert.Equal(t, "EUR", holdings[1].Currency, "identifier prefix must not override non-stock currency")
	assert.Equal(t, "Bond", holdings[2].Sector)
	for _, h := range holdings {
		assert.Equal(t, ProvenanceFundDerived, h.Provenance)
	}
}
