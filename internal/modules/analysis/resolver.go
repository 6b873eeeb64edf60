package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/modules/funds"
	"github.com/clusterrisk/clusterrisk/internal/modules/ingestion"
	"github.com/clusterrisk/clusterrisk/internal/refdata"
)

// SectorLookup resolves a trade symbol or identifier to a sector. The
// sector service satisfies this.
type SectorLookup interface {
	Lookup(ctx context.Context, symbol string, useCache bool) string
}

// detailSource is one link of the fund composition lookup chain.
type detailSource interface {
	ResolveDetail(isin string) (*funds.Detail, bool)
}

// sourceLink pairs a composition source with the provenance rank its
// sectors carry into the position merge.
type sourceLink struct {
	name string
	rank Provenance
	src  detailSource
}

// storeSource reads the on-disk detail store through the
// identifier→symbol index.
type storeSource struct {
	store *funds.Store
}

func (s storeSource) ResolveDetail(isin string) (*funds.Detail, bool) {
	ticker, ok := s.store.Lookup(isin)
	if !ok {
		return nil, false
	}
	detail, err := s.store.Get(ticker)
	if err != nil || detail == nil {
		return nil, false
	}
	return detail, true
}

// overlaySource serves the user-maintained holdings CSV.
type overlaySource struct {
	overlay *funds.Overlay
}

func (o overlaySource) ResolveDetail(isin string) (*funds.Detail, bool) {
	return o.overlay.Get(isin)
}

// referenceSource serves the built-in compositions of the common world
// index funds.
type referenceSource struct{}

func (referenceSource) ResolveDetail(isin string) (*funds.Detail, bool) {
	return funds.Reference(isin)
}

// Resolver turns raw positions into the flat list of effective
// holdings. Fund compositions come from the detail store, the user
// overlay, and the built-in reference data, in that order; direct
// positions pass through with sector enrichment.
type Resolver struct {
	sources []sourceLink
	sectors SectorLookup
	diag    *diagnostics.Collector
	log     zerolog.Logger
}

// NewResolver builds the lookup chain over the given stores.
func NewResolver(store *funds.Store, overlay *funds.Overlay, sectors SectorLookup, diag *diagnostics.Collector, log zerolog.Logger) *Resolver {
	return &Resolver{
		sources: []sourceLink{
			{name: "store", rank: ProvenanceFundDetail, src: storeSource{store: store}},
			{name: "overlay", rank: ProvenanceFundDerived, src: overlaySource{overlay: overlay}},
			{name: "reference", rank: ProvenanceFundDerived, src: referenceSource{}},
		},
		sectors: sectors,
		diag:    diag,
		log:     log.With().Str("component", "resolver").Logger(),
	}
}

// Expand flattens the snapshot. The sum of emitted values equals the
// snapshot total; every fund position either unfolds into its holdings
// or is kept whole as an opaque entry.
func (r *Resolver) Expand(ctx context.Context, snap *ingestion.Snapshot) []EffectiveHolding {
	holdings := make([]EffectiveHolding, 0, len(snap.Positions))
	for i := range snap.Positions {
		pos := &snap.Positions[i]
		if pos.Type == ingestion.InstrumentFund {
			holdings = append(holdings, r.expandFund(pos)...)
			continue
		}
		holdings = append(holdings, r.direct(ctx, pos))
	}
	return holdings
}

func (r *Resolver) expandFund(pos *ingestion.Position) []EffectiveHolding {
	if pos.ISIN != "" {
		for _, link := range r.sources {
			detail, ok := link.src.ResolveDetail(pos.ISIN)
			if !ok || len(detail.Holdings) == 0 {
				continue
			}
			r.log.Debug().
				Str("fund", pos.Name).
				Str("source", link.name).
				Int("holdings", len(detail.Holdings)).
				Msg("Fund resolved")
			if link.rank == ProvenanceFundDetail {
				if age, ok := detail.AgeDays(); ok && age > funds.StaleAfterDays {
					r.diag.Warning("funds",
						fmt.Sprintf("Composition data for %s is %d days old", detail.Ticker, age),
						"Run a fund update to refresh the stored composition.")
				}
			}
			return r.expandDetail(pos, detail, link.rank)
		}
		r.diag.Info("funds", fmt.Sprintf("No composition data for %s (%s); counted as a single position", pos.Name, pos.ISIN))
	}

	return []EffectiveHolding{{
		Name:       pos.Name,
		Value:      pos.Value,
		Currency:   pos.Currency,
		Sector:     "ETF",
		ISIN:       pos.ISIN,
		Symbol:     pos.Symbol,
		Type:       ingestion.InstrumentFund,
		Provenance: ProvenanceFundDerived,
	}}
}

// expandDetail splits the position's value across the fund's top
// holdings, then decomposes the residual "Other Holdings" row across
// currencies by subtracting the top holdings' currency weights from
// the fund-wide currency allocation.
func (r *Resolver) expandDetail(pos *ingestion.Position, detail *funds.Detail, rank Provenance) []EffectiveHolding {
	out := make([]EffectiveHolding, 0, len(detail.Holdings)+4)
	topCurrencyWeights := make(map[string]float64)
	var other *funds.Holding

	for i := range detail.Holdings {
		h := &detail.Holdings[i]
		if h.IsOther() {
			other = h
			continue
		}
		currency := h.Currency
		if currency == "" {
			currency = "USD"
		}
		topCurrencyWeights[currency] += h.Weight
		out = append(out, EffectiveHolding{
			Name:       h.Name,
			Value:      pos.Value * h.Weight,
			Currency:   currency,
			Sector:     refdata.CanonicalSector(h.Sector),
			Country:    h.Country,
			ISIN:       h.ISIN,
			Type:       ingestion.InstrumentFundHolding,
			SourceFund: pos.Name,
			FundType:   detail.Type,
			Provenance: rank,
		})
	}

	if other == nil {
		return out
	}

	residual := EffectiveHolding{
		Name:       "Other Holdings - " + pos.Name,
		Sector:     refdata.CanonicalSector(other.Sector),
		Country:    other.Country,
		Type:       ingestion.InstrumentFundHolding,
		SourceFund: pos.Name,
		FundType:   detail.Type,
		Provenance: rank,
	}
	if residual.Country == "" {
		residual.Country = "Mixed"
	}

	if len(detail.Currencies) == 0 {
		residual.Value = pos.Value * other.Weight
		residual.Currency = "Mixed"
		return append(out, residual)
	}

	for _, alloc := range detail.Currencies {
		weight := alloc.Weight - topCurrencyWeights[alloc.Name]
		if weight <= 0.001 {
			continue
		}
		entry := residual
		entry.Value = pos.Value * weight
		entry.Currency = alloc.Name
		out = append(out, entry)
	}
	return out
}

// direct carries a raw position over unchanged, resolving the sector
// for stocks: a declared sector wins, then an identifier lookup, then
// "Unknown". Other instrument types use the type itself as sector.
func (r *Resolver) direct(ctx context.Context, pos *ingestion.Position) EffectiveHolding {
	h := EffectiveHolding{
		Name:     pos.Name,
		Value:    pos.Value,
		Currency: pos.Currency,
		ISIN:     pos.ISIN,
		Symbol:   pos.Symbol,
		Type:     pos.Type,
	}

	if pos.Type != ingestion.InstrumentStock {
		h.Sector = string(pos.Type)
		h.Provenance = ProvenanceFundDerived
		return h
	}

	if pos.ISIN != "" {
		h.Currency = refdata.CurrencyForISIN(pos.ISIN, pos.Currency)
	}

	if pos.Sector != "" {
		h.Sector = pos.Sector
		h.Provenance = ProvenanceDeclared
		return h
	}

	h.Sector = r.lookupSector(ctx, pos)
	if h.Sector == "Unknown" {
		h.Provenance = ProvenanceFundDerived
	} else {
		h.Provenance = ProvenanceLookup
	}
	return h
}

// lookupSector tries the identifier first and the trade symbol second,
// so exchange-suffixed symbols still resolve when the identifier is
// not indexed by the lookup services.
func (r *Resolver) lookupSector(ctx context.Context, pos *ingestion.Position) string {
	sector := ""
	if pos.ISIN != "" {
		sector = r.sectors.Lookup(ctx, pos.ISIN, true)
	}
	if (sector == "" || sector == "Unknown") && pos.Symbol != "" && !strings.EqualFold(pos.Symbol, pos.ISIN) {
		sector = r.sectors.Lookup(ctx, pos.Symbol, true)
	}
	if sector == "" {
		return "Unknown"
	}
	return sector
}
