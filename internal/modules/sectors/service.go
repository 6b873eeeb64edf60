package sectors

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clusterrisk/clusterrisk/internal/clients/openfigi"
	"github.com/clusterrisk/clusterrisk/internal/clients/yahoo"
	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/events"
	"github.com/clusterrisk/clusterrisk/internal/refdata"
)

// ProfileClient provides company profiles, the primary sector source.
type ProfileClient interface {
	Profile(ctx context.Context, symbol string) (*yahoo.AssetProfile, error)
}

// MappingClient resolves tickers via identifier mapping, the secondary
// sector source.
type MappingClient interface {
	MapTicker(ctx context.Context, ticker, exchCode string) (*openfigi.MappingResult, error)
}

// Service answers ticker→sector lookups through the cache, falling back
// to the external sources on a miss and writing through the result.
type Service struct {
	repo        *Repository
	profiles    ProfileClient
	mappings    MappingClient
	bus         *events.Bus
	diag        *diagnostics.Collector
	maxAge      time.Duration
	warmWorkers int
	log         zerolog.Logger

	writeMu sync.Mutex // single writer to the cache
}

// NewService creates the sector lookup service. Entries older than
// maxAgeDays are treated as misses.
func NewService(repo *Repository, profiles ProfileClient, mappings MappingClient, bus *events.Bus, diag *diagnostics.Collector, maxAgeDays, warmWorkers int, log zerolog.Logger) *Service {
	if warmWorkers < 1 {
		warmWorkers = 1
	}
	return &Service{
		repo:        repo,
		profiles:    profiles,
		mappings:    mappings,
		bus:         bus,
		diag:        diag,
		maxAge:      time.Duration(maxAgeDays) * 24 * time.Hour,
		warmWorkers: warmWorkers,
		log:         log.With().Str("service", "sectors").Logger(),
	}
}

// Lookup returns the sector for a trade symbol. Failed lookups return
// "Unknown" and are cached with source "unknown" so they are not
// retried until the entry expires.
func (s *Service) Lookup(ctx context.Context, symbol string, useCache bool) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "Unknown"
	}

	if useCache {
		entry, err := s.repo.Get(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Sector cache read failed")
		} else if entry != nil && entry.Age() < s.maxAge {
			s.log.Debug().Str("symbol", symbol).Str("sector", entry.Sector).Msg("Sector cache hit")
			return entry.Sector
		}
	}

	sector, source := s.fetch(ctx, symbol)
	if sector == "" || sector == "Unknown" {
		sector, source = "Unknown", SourceUnknown
		s.diag.Warning("sectors", fmt.Sprintf("no sector found for %s", symbol), "")
	}

	s.store(&Entry{Symbol: symbol, Sector: sector, Source: source, UpdatedAt: time.Now()})

	return sector
}

// fetch queries the external sources in order. An empty sector means
// both sources came up empty.
func (s *Service) fetch(ctx context.Context, symbol string) (sector, source string) {
	profile, err := s.profiles.Profile(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Yahoo sector lookup failed")
	} else if profile != nil && profile.Sector != "" {
		return refdata.CanonicalVendorSector(profile.Sector), SourceYahoo
	}

	result, err := s.mappings.MapTicker(ctx, symbol, "US")
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("OpenFIGI sector lookup failed")
	} else if result != nil && result.MarketSector != "" {
		return refdata.CanonicalVendorSector(result.MarketSector), SourceOpenFIGI
	}

	return "", ""
}

func (s *Service) store(entry *Entry) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.repo.Put(entry); err != nil {
		s.log.Error().Err(err).Str("symbol", entry.Symbol).Msg("Failed to write sector cache")
	}
}

// SetManual stores a user-supplied mapping that survives batch expiry
// checks only by its timestamp, like any other entry.
func (s *Service) SetManual(symbol, sector string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return fmt.Errorf("symbol must not be empty")
	}

	entry := &Entry{
		Symbol:    symbol,
		Sector:    refdata.CanonicalVendorSector(strings.TrimSpace(sector)),
		Source:    SourceManual,
		UpdatedAt: time.Now(),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.repo.Put(entry)
}

// Get returns the cached entry for a symbol, or nil when absent.
func (s *Service) Get(symbol string) (*Entry, error) {
	return s.repo.Get(strings.ToUpper(strings.TrimSpace(symbol)))
}

// List returns all cached entries.
func (s *Service) List() ([]Entry, error) {
	return s.repo.List()
}

// DeleteExpired removes entries older than the configured max age.
func (s *Service) DeleteExpired() (int64, error) {
	return s.repo.DeleteOlderThan(time.Now().Add(-s.maxAge))
}

// Warm resolves sectors for the given symbols concurrently, bounded by
// the configured worker count. Returns the number of distinct symbols
// looked up.
func (s *Service) Warm(ctx context.Context, symbols []string) int {
	seen := make(map[string]struct{}, len(symbols))
	distinct := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		distinct = append(distinct, symbol)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.warmWorkers)
	for _, symbol := range distinct {
		g.Go(func() error {
			s.Lookup(gctx, symbol, true)
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().Int("symbols", len(distinct)).Msg("Sector cache warmed")
	s.bus.Publish(events.SectorWarmCompleted, "sectors", map[string]interface{}{
		"symbols": len(distinct),
	})

	return len(distinct)
}

// Stats summarises the cache contents by source and age.
func (s *Service) Stats() (*Stats, error) {
	entries, err := s.repo.List()
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Total:    len(entries),
		BySource: make(map[string]int),
	}
	for i := range entries {
		stats.BySource[entries[i].Source]++
		at := entries[i].UpdatedAt
		if stats.Oldest == nil || at.Before(*stats.Oldest) {
			t := at
			stats.Oldest = &t
		}
		if stats.Newest == nil || at.After(*stats.Newest) {
			t := at
			stats.Newest = &t
		}
	}

	return stats, nil
}
