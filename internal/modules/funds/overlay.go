package funds

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Overlay serves user-maintained fund compositions from a single CSV,
// edited by hand and reloaded whenever its mtime changes:
//
//	ISIN,ETF_Name,Holding_Name,Weight,Currency,Sector,Industry,Country
//	LU1681045370,Amundi MSCI Germany,SAP SE,8.5,EUR,Technology,Software,DE
//	LU1681045370,Amundi MSCI Germany,Siemens AG,7.2,EUR,Industrials,Conglomerate,DE
//
// Weights are percent. ISIN, ETF_Name, Holding_Name and Weight are
// required; Currency defaults to USD, Sector to Unknown, Country and
// Industry are optional. When a fund's rows sum below 99.9% the gap is
// filled with an "Other Holdings" row.
type Overlay struct {
	path string
	log  zerolog.Logger

	mu      sync.Mutex
	cache   map[string]*Detail
	modTime time.Time
}

// NewOverlay loads the overlay file if present. A missing file is not
// an error; a malformed one is logged and leaves the overlay empty.
func NewOverlay(path string, log zerolog.Logger) *Overlay {
	o := &Overlay{
		path:  path,
		log:   log.With().Str("component", "fund_overlay").Logger(),
		cache: make(map[string]*Detail),
	}
	o.mu.Lock()
	o.refreshLocked()
	o.mu.Unlock()
	return o
}

// Get returns the user-defined composition for an ISIN.
func (o *Overlay) Get(isin string) (*Detail, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.refreshLocked()
	d, ok := o.cache[normalizeISIN(isin)]
	return d, ok
}

// Count returns the number of funds currently defined in the overlay.
func (o *Overlay) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.refreshLocked()
	return len(o.cache)
}

func (o *Overlay) refreshLocked() {
	info, err := os.Stat(o.path)
	if os.IsNotExist(err) {
		o.cache = make(map[string]*Detail)
		o.modTime = time.Time{}
		return
	}
	if err != nil {
		o.log.Warn().Err(err).Msg("Failed to stat user holdings file")
		return
	}
	if info.ModTime().Equal(o.modTime) {
		return
	}

	data, err := os.ReadFile(o.path)
	if err != nil {
		o.log.Warn().Err(err).Msg("Failed to read user holdings file")
		return
	}

	cache, err := parseOverlay(data)
	if err != nil {
		// Keep serving the last good version.
		o.log.Warn().Err(err).Msg("Failed to parse user holdings file")
		return
	}

	o.cache = cache
	o.modTime = info.ModTime()
	o.log.Info().Int("funds", len(cache)).Msg("Loaded user fund overlay")
}

func parseOverlay(data []byte) (map[string]*Detail, error) {
	rows := readCSV(string(data))
	if len(rows) == 0 {
		return make(map[string]*Detail), nil
	}

	cols := map[string]int{}
	for i, cell := range rows[0] {
		cols[strings.TrimSpace(cell)] = i
	}
	for _, required := range []string{"ISIN", "ETF_Name", "Holding_Name", "Weight"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("user holdings CSV is missing the %s column", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	cache := make(map[string]*Detail)
	for _, row := range rows[1:] {
		isin := normalizeISIN(field(row, "ISIN"))
		name := field(row, "Holding_Name")
		if isin == "" || name == "" {
			continue
		}

		weight, err := strconv.ParseFloat(field(row, "Weight"), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q for %s", field(row, "Weight"), name)
		}

		detail, ok := cache[isin]
		if !ok {
			detail = &Detail{
				ISIN:   isin,
				Name:   field(row, "ETF_Name"),
				Type:   TypeStock,
				Source: "User CSV",
			}
			cache[isin] = detail
		}

		holding := Holding{
			Name:     name,
			Weight:   weight / 100,
			Currency: "USD",
			Sector:   "Unknown",
			Country:  field(row, "Country"),
		}
		if c := field(row, "Currency"); c != "" {
			holding.Currency = c
		}
		if s := field(row, "Sector"); s != "" {
			holding.Sector = s
		}
		detail.Holdings = append(detail.Holdings, holding)
	}

	for _, detail := range cache {
		total := 0.0
		for _, h := range detail.Holdings {
			total += h.Weight
		}
		if total < 0.999 {
			detail.Holdings = append(detail.Holdings, Holding{
				Name:     "Other Holdings",
				Weight:   1 - total,
				Currency: "Mixed",
				Sector:   "Diversified",
			})
		}
	}
	return cache, nil
}
