package funds

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/refdata"
)

// IndexFilename is the identifier index kept alongside the detail
// files. It maps ISIN to ticker so look-through can find a fund's
// detail file from the identifier in a snapshot row.
const IndexFilename = "isin_ticker_map.csv"

type indexEntry struct {
	Ticker string
	Name   string
}

// Store persists fund details as one CSV file per ticker plus the
// ISIN index. All file operations go through a single mutex.
type Store struct {
	dir       string
	staleDays int
	log       zerolog.Logger

	mu    sync.Mutex
	index map[string]indexEntry
}

// NewStore opens the details directory, creating it if needed, and
// loads the identifier index.
func NewStore(dir string, staleDays int, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create details directory: %w", err)
	}

	s := &Store{
		dir:       dir,
		staleDays: staleDays,
		log:       log.With().Str("component", "fund_store").Logger(),
		index:     make(map[string]indexEntry),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) path(symbol string) string {
	return filepath.Join(s.dir, symbol+".csv")
}

// Exists reports whether a detail file is present for the symbol.
func (s *Store) Exists(symbol string) bool {
	_, err := os.Stat(s.path(symbol))
	return err == nil
}

// Get reads and decodes the detail file for a symbol. A missing file
// returns (nil, nil); the ticker always comes from the filename.
func (s *Store) Get(symbol string) (*Detail, error) {
	data, err := os.ReadFile(s.path(symbol))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read detail file for %s: %w", symbol, err)
	}

	detail, err := ParseDetail(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse detail file for %s: %w", symbol, err)
	}
	detail.Ticker = symbol
	return detail, nil
}

// Put writes the detail file for d.Ticker and upserts the identifier
// index when the detail carries an ISIN. The file is written to a
// temp path and renamed so readers never see a half-written file.
func (s *Store) Put(d *Detail) error {
	if d.Ticker == "" {
		return fmt.Errorf("detail has no ticker")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(d.Ticker)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, EncodeDetail(d), 0644); err != nil {
		return fmt.Errorf("failed to write detail file for %s: %w", d.Ticker, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write detail file for %s: %w", d.Ticker, err)
	}

	if d.ISIN != "" {
		s.index[normalizeISIN(d.ISIN)] = indexEntry{Ticker: d.Ticker, Name: d.Name}
		if err := s.saveIndexLocked(); err != nil {
			return err
		}
	}
	return nil
}

// WriteTemplate writes a detail file only when none exists yet, so a
// hand-maintained file is never clobbered by a template request.
func (s *Store) WriteTemplate(d *Detail) error {
	if s.Exists(d.Ticker) {
		return fmt.Errorf("detail file for %s already exists: %w", d.Ticker, os.ErrExist)
	}
	return s.Put(d)
}

// Delete removes the detail file. The identifier index keeps its row;
// the ISIN to ticker mapping stays valid even without a detail file.
func (s *Store) Delete(symbol string) error {
	err := os.Remove(s.path(symbol))
	if os.IsNotExist(err) {
		return fmt.Errorf("no detail file for %s: %w", symbol, os.ErrNotExist)
	}
	return err
}

// List summarises every detail file in the store, sorted by ticker.
// Files that fail to parse are logged and skipped.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read details directory: %w", err)
	}

	summaries := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") || name == IndexFilename {
			continue
		}

		symbol := strings.TrimSuffix(name, ".csv")
		detail, err := s.Get(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("Skipping unreadable detail file")
			continue
		}

		summary := Summary{
			Ticker:      symbol,
			ISIN:        detail.ISIN,
			Name:        detail.Name,
			Type:        detail.Type,
			IndexName:   detail.IndexName,
			Region:      detail.Region,
			LastUpdated: detail.LastUpdated,
			Source:      detail.Source,
			DataSource:  detail.DataSource(),
			ProxyISIN:   detail.ProxyISIN,
			File:        name,
		}
		if days, ok := detail.AgeDays(); ok {
			summary.DaysOld = &days
			summary.Stale = days > s.staleDays
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Ticker < summaries[j].Ticker
	})
	return summaries, nil
}

// Lookup resolves an ISIN to a ticker, first through the on-disk
// index and then through the built-in seed list.
func (s *Store) Lookup(isin string) (string, bool) {
	key := normalizeISIN(isin)

	s.mu.Lock()
	entry, ok := s.index[key]
	s.mu.Unlock()
	if ok {
		return entry.Ticker, true
	}

	ticker, ok := refdata.KnownISINTickers[key]
	return ticker, ok
}

func normalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, IndexFilename)
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.indexPath())
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read identifier index: %w", err)
	}

	for i, row := range readCSV(string(data)) {
		if i == 0 || len(row) < 2 {
			continue
		}
		entry := indexEntry{Ticker: strings.TrimSpace(row[1])}
		if len(row) >= 3 {
			entry.Name = strings.TrimSpace(row[2])
		}
		s.index[normalizeISIN(row[0])] = entry
	}
	return nil
}

func (s *Store) saveIndexLocked() error {
	isins := make([]string, 0, len(s.index))
	for isin := range s.index {
		isins = append(isins, isin)
	}
	sort.Strings(isins)

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	w.Write([]string{"ISIN", "Ticker", "Name"})
	for _, isin := range isins {
		entry := s.index[isin]
		w.Write([]string{isin, entry.Ticker, entry.Name})
	}
	w.Flush()

	if err := os.WriteFile(s.indexPath(), []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write identifier index: %w", err)
	}
	return nil
}
