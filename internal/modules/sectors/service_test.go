package sectors

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clusterrisk/clusterrisk/internal/clients/openfigi"
	"github.com/clusterrisk/clusterrisk/internal/clients/yahoo"
	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/events"
)

type stubProfiles struct {
	mu      sync.Mutex
	profile *yahoo.AssetProfile
	err     error
	calls   int
}

func (s *stubProfiles) Profile(ctx context.Context, symbol string) (*yahoo.AssetProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.profile, s.err
}

type stubMappings struct {
	mu     sync.Mutex
	result *openfigi.MappingResult
	err    error
	calls  int
}

func (s *stubMappings) MapTicker(ctx context.Context, ticker, exchCode string) (*openfigi.MappingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.result, s.err
}

func newTestService(t *testing.T, profiles *stubProfiles, mappings *stubMappings) (*Service, *Repository, *diagnostics.Collector) {
	t.Helper()
	repo := setupTestRepo(t)
	diag := diagnostics.NewCollector()
	bus := events.NewBus(zerolog.Nop())
	svc := NewService(repo, profiles, mappings, bus, diag, 90, 2, zerolog.Nop())
	return svc, repo, diag
}

func TestLookupPrimarySource(t *testing.T) {
	profiles := &stubProfiles{profile: &yahoo.AssetProfile{Sector: "Consumer Defensive"}}
	mappings := &stubMappings{}
	svc, repo, _ := newTestService(t, profiles, mappings)

	sector := svc.Lookup(context.Background(), "ko", true)
	assert.Equal(t, "Consumer Staples", sector)

	entry, err := repo.Get("KO")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Consumer Staples", entry.Sector)
	assert.Equal(t, SourceYahoo, entry.Source)
	assert.Equal(t, 0, mappings.calls)
}

func TestLookupUsesCache(t *testing.T) {
	profiles := &stubProfiles{profile: &yahoo.AssetProfile{Sector: "Technology"}}
	svc, _, _ := newTestService(t, profiles, &stubMappings{})

	first := svc.Lookup(context.Background(), "AAPL", true)
	second := svc.Lookup(context.Background(), "AAPL", true)

	assert.Equal(t, "Technology", first)
	assert.Equal(t, "Technology", second)
	assert.Equal(t, 1, profiles.calls)
}

func TestLookupBypassCache(t *testing.T) {
	profiles := &stubProfiles{profile: &yahoo.AssetProfile{Sector: "Technology"}}
	svc, _, _ := newTestService(t, profiles, &stubMappings{})

	svc.Lookup(context.Background(), "AAPL", true)
	svc.Lookup(context.Background(), "AAPL", false)

	assert.Equal(t, 2, profiles.calls)
}

func TestLookupSecondarySource(t *testing.T) {
	profiles := &stubProfiles{}
	mappings := &stubMappings{result: &openfigi.MappingResult{Ticker: "AAPL", MarketSector: "Equity"}}
	svc, repo, _ := newTestService(t, profiles, mappings)

	sector := svc.Lookup(context.Background(), "AAPL", true)
	assert.Equal(t, "Equity", sector)

	entry, err := repo.Get("AAPL")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, SourceOpenFIGI, entry.Source)
	assert.Equal(t, 1, profiles.calls)
	assert.Equal(t, 1, mappings.calls)
}

func TestLookupNegativeCaching(t *testing.T) {
	profiles := &stubProfiles{err: fmt.Errorf("network down")}
	mappings := &stubMappings{err: fmt.Errorf("network down")}
	svc, repo, diag := newTestService(t, profiles, mappings)

	sector := svc.Lookup(context.Background(), "FAIL", true)
	assert.Equal(t, "Unknown", sector)

	entry, err := repo.Get("FAIL")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Unknown", entry.Sector)
	assert.Equal(t, SourceUnknown, entry.Source)
	assert.NotEmpty(t, diag.Warnings())

	// The negative entry suppresses retries until it expires.
	sector = svc.Lookup(context.Background(), "FAIL", true)
	assert.Equal(t, "Unknown", sector)
	assert.Equal(t, 1, profiles.calls)
	assert.Equal(t, 1, mappings.calls)
}

func TestLookupExpiredEntryRefetches(t *testing.T) {
	profiles := &stubProfiles{profile: &yahoo.AssetProfile{Sector: "Energy"}}
	svc, repo, _ := newTestService(t, profiles, &stubMappings{})

	require.NoError(t, repo.Put(&Entry{
		Symbol:    "XOM",
		Sector:    "Unknown",
		Source:    SourceUnknown,
		UpdatedAt: time.Now().Add(-91 * 24 * time.Hour),
	}))

	sector := svc.Lookup(context.Background(), "XOM", true)
	assert.Equal(t, "Energy", sector)
	assert.Equal(t, 1, profiles.calls)

	entry, err := repo.Get("XOM")
	require.NoError(t, err)
	assert.Equal(t, SourceYahoo, entry.Source)
}

func TestLookupEmptySymbol(t *testing.T) {
	profiles := &stubProfiles{}
	svc, _, _ := newTestService(t, profiles, &stubMappings{})

	assert.Equal(t, "Unknown", svc.Lookup(context.Background(), "  ", true))
	assert.Equal(t, 0, profiles.calls)
}

func TestSetManual(t *testing.T) {
	svc, repo, _ := newTestService(t, &stubProfiles{}, &stubMappings{})

	require.NoError(t, svc.SetManual("sap", "Information Technology"))

	entry, err := repo.Get("SAP")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "Technology", entry.Sector)
	assert.Equal(t, SourceManual, entry.Source)

	assert.Error(t, svc.SetManual("", "Technology"))
}

func TestWarmDeduplicates(t *testing.T) {
	profiles := &stubProfiles{profile: &yahoo.AssetProfile{Sector: "Technology"}}
	repo := setupTestRepo(t)
	diag := diagnostics.NewCollector()
	bus := events.NewBus(zerolog.Nop())

	var mu sync.Mutex
	var received []*events.Event
	bus.Subscribe(events.SectorWarmCompleted, func(e *events.Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})

	svc := NewService(repo, profiles, &stubMappings{}, bus, diag, 90, 2, zerolog.Nop())

	count := svc.Warm(context.Background(), []string{"aapl", "MSFT", "AAPL", "", " msft "})
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, profiles.calls)

	require.Len(t, received, 1)
	assert.Equal(t, 2, received[0].Data["symbols"])
}

func TestDeleteExpired(t *testing.T) {
	svc, repo, _ := newTestService(t, &stubProfiles{}, &stubMappings{})

	require.NoError(t, repo.Put(&Entry{Symbol: "OLD", Sector: "Energy", Source: SourceYahoo, UpdatedAt: time.Now().Add(-120 * 24 * time.Hour)}))
	require.NoError(t, repo.Put(&Entry{Symbol: "NEW", Sector: "Energy", Source: SourceYahoo, UpdatedAt: time.Now()}))

	deleted, err := svc.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestStats(t *testing.T) {
	svc, repo, _ := newTestService(t, &stubProfiles{}, &stubMappings{})

	now := time.Now()
	require.NoError(t, repo.Put(&Entry{Symbol: "A", Sector: "Technology", Source: SourceYahoo, UpdatedAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, repo.Put(&Entry{Symbol: "B", Sector: "Energy", Source: SourceYahoo, UpdatedAt: now}))
	require.NoError(t, repo.Put(&Entry{Symbol: "C", Sector: "Unknown", Source: SourceUnknown, UpdatedAt: now.Add(-24 * time.Hour)}))

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.BySource[SourceYahoo])
	assert.Equal(t, 1, stats.BySource[SourceUnknown])
	require.NotNil(t, stats.Oldest)
	require.NotNil(t, stats.Newest)
	assert.True(t, stats.Oldest.Before(*stats.Newest))

	empty, err := NewService(setupTestRepo(t), &stubProfiles{}, &stubMappings{}, events.NewBus(zerolog.Nop()), diagnostics.NewCollector(), 90, 1, zerolog.Nop()).Stats()
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.Oldest)
}
