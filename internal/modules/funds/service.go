package funds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/clients/justetf"
	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/events"
	"github.com/clusterrisk/clusterrisk/internal/refdata"
)

var (
	// ErrFundNotFound signals that no detail file exists for the symbol.
	ErrFundNotFound = errors.New("fund not found")

	// ErrManualSource signals a hand-maintained detail file that auto
	// updates must never overwrite.
	ErrManualSource = errors.New("detail file is maintained manually")

	// ErrBatchRunning signals that a bulk update is already in flight.
	ErrBatchRunning = errors.New("a fund update batch is already running")
)

// ScrapeClient fetches fund composition data from justETF.
type ScrapeClient interface {
	FetchProfile(ctx context.Context, isin string) (*justetf.ProfilePage, error)
	FetchAllocation(ctx context.Context, isin string, kind justetf.AllocationKind) ([]justetf.Row, error)
}

// Service generates and refreshes fund detail files. Scraped pages are
// quality-checked before anything is written: a synthetic fund or an
// empty page never replaces an existing file.
type Service struct {
	store       *Store
	client      ScrapeClient
	bus         *events.Bus
	diag        *diagnostics.Collector
	scrapeDelay time.Duration
	log         zerolog.Logger

	batchMu     sync.Mutex
	batchActive bool
}

// NewService creates a fund service. scrapeDelay is the pause between
// consecutive scrapes in a batch run.
func NewService(store *Store, client ScrapeClient, bus *events.Bus, diag *diagnostics.Collector, scrapeDelay time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:       store,
		client:      client,
		bus:         bus,
		diag:        diag,
		scrapeDelay: scrapeDelay,
		log:         log.With().Str("component", "funds").Logger(),
	}
}

// List returns a summary of every stored detail file.
func (s *Service) List() ([]Summary, error) {
	return s.store.List()
}

// Get returns the stored detail for a symbol, or nil when none exists.
func (s *Service) Get(symbol string) (*Detail, error) {
	return s.store.Get(symbol)
}

// Delete removes the detail file for a symbol.
func (s *Service) Delete(symbol string) error {
	return s.store.Delete(symbol)
}

// GenerateRequest identifies the fund to scrape and how to file it.
type GenerateRequest struct {
	Ticker    string
	ISIN      string
	Type      string
	Region    string
	ProxyISIN string
}

// Generate scrapes justETF for the requested fund and writes its detail
// file. When a proxy ISIN is set, composition data comes from the proxy
// fund while the file keeps the fund's own identity and TER. The fetched
// page is quality-checked first; unusable data leaves any existing file
// untouched.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Detail, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if req.ISIN == "" {
		return nil, fmt.Errorf("ISIN is required for %s", req.Ticker)
	}
	fundType := req.Type
	if fundType == "" {
		fundType = TypeStock
	}

	own, err := s.fetchComposition(ctx, req.ISIN)
	if err != nil {
		s.diag.Warning("funds",
			fmt.Sprintf("No data received from justETF for ISIN %s", req.ISIN),
			"The ISIN may be invalid or justETF may be unreachable.")
		return nil, diagnostics.WrapError(diagnostics.KindScrapeNetwork, err, "fetching %s from justETF", req.ISIN)
	}
	if own == nil {
		s.diag.Warning("funds",
			fmt.Sprintf("No data received from justETF for ISIN %s", req.ISIN),
			"The ISIN may be invalid or justETF may be unreachable.")
		return nil, diagnostics.NewError(diagnostics.KindScrapeParse, "no data received from justETF for ISIN %s", req.ISIN).
			WithHint("The ISIN may be invalid or justETF may be unreachable.")
	}

	composition := own
	source := "justETF (auto-generated)"

	if req.ProxyISIN != "" {
		source = fmt.Sprintf("justETF (via Proxy: %s)", req.ProxyISIN)
		proxy, err := s.fetchComposition(ctx, req.ProxyISIN)
		if err != nil {
			s.diag.Warning("funds",
				fmt.Sprintf("No data received from justETF for proxy ISIN %s", req.ProxyISIN),
				"The proxy ISIN could not be resolved; check the ISIN.")
			return nil, diagnostics.WrapError(diagnostics.KindScrapeNetwork, err, "fetching proxy %s from justETF", req.ProxyISIN)
		}
		if proxy == nil {
			s.diag.Warning("funds",
				fmt.Sprintf("No data received from justETF for proxy ISIN %s", req.ProxyISIN),
				"The proxy ISIN could not be resolved; check the ISIN.")
			return nil, diagnostics.NewError(diagnostics.KindScrapeParse, "no data received from justETF for proxy ISIN %s", req.ProxyISIN).
				WithHint("The proxy ISIN could not be resolved; check the ISIN.")
		}
		verdict := assessQuality(proxy, req.Ticker, req.ProxyISIN)
		if verdict.Unusable {
			msg := fmt.Sprintf("Proxy ISIN %s also returned no usable data: %s", req.ProxyISIN, verdict.Reason)
			s.diag.Warning("funds", msg, "Choose a different proxy fund (physical replication, same index).")
			return nil, diagnostics.NewError(diagnostics.KindScrapeUnusable, "%s", msg).
				WithHint("Choose a different proxy fund (physical replication, same index).")
		}
		composition = proxy
	} else {
		verdict := assessQuality(own, req.Ticker, req.ISIN)
		if verdict.Unusable {
			msg := verdict.Reason
			hint := "Set a proxy ISIN of a physically replicating fund tracking the same index."
			s.diag.Warning("funds", msg, hint)
			if s.store.Exists(req.Ticker) {
				msg += "; existing file left untouched"
			}
			return nil, diagnostics.NewError(diagnostics.KindScrapeUnusable, "%s", msg).WithHint(hint)
		}
	}

	verdict := assessQuality(composition, req.Ticker, req.ISIN)
	for _, w := range verdict.Warnings {
		s.diag.Warning("funds", w, fmt.Sprintf("Review and complete the generated %s.csv manually.", req.Ticker))
	}

	detail := &Detail{
		ISIN:        req.ISIN,
		Name:        own.Name,
		Ticker:      req.Ticker,
		Type:        fundType,
		IndexName:   own.IndexName,
		Region:      req.Region,
		Currency:    own.Currency,
		TER:         own.TER,
		ProxyISIN:   req.ProxyISIN,
		LastUpdated: time.Now().Format("2006-01-02"),
		Source:      source,
		Countries:   rowsToAllocations(composition.Countries),
		Sectors:     rowsToAllocations(composition.Sectors),
		Holdings:    enrichHoldings(composition.Holdings),
	}
	if detail.Currency == "" {
		detail.Currency = "USD"
	}
	detail.Currencies = deriveCurrencyAllocation(detail.Countries)

	total := 0.0
	for _, h := range detail.Holdings {
		total += h.Weight
	}
	if other := 1 - total; other > 0.001 {
		detail.Holdings = append(detail.Holdings, Holding{
			Name:     "Other Holdings",
			Weight:   other,
			Currency: "Mixed",
			Sector:   "Diversified",
			Country:  "Mixed",
		})
	}

	if err := s.store.Put(detail); err != nil {
		return nil, fmt.Errorf("writing detail file for %s: %w", req.Ticker, err)
	}
	s.log.Info().
		Str("ticker", req.Ticker).
		Str("isin", req.ISIN).
		Int("holdings", len(detail.Holdings)).
		Int("countries", len(detail.Countries)).
		Int("sectors", len(detail.Sectors)).
		Msg("Generated fund detail file")
	return detail, nil
}

// fetchComposition loads the profile page and then upgrades the country
// and sector lists with the full AJAX breakdowns. A failed breakdown
// request keeps whatever the main page showed.
func (s *Service) fetchComposition(ctx context.Context, isin string) (*justetf.ProfilePage, error) {
	page, err := s.client.FetchProfile(ctx, isin)
	if err != nil || page == nil {
		return page, err
	}
	if countries, err := s.client.FetchAllocation(ctx, isin, justetf.AllocationCountries); err != nil {
		s.log.Debug().Err(err).Str("isin", isin).Msg("Country breakdown request failed, keeping profile page data")
	} else if len(countries) > 0 {
		page.Countries = countries
	}
	if sectors, err := s.client.FetchAllocation(ctx, isin, justetf.AllocationSectors); err != nil {
		s.log.Debug().Err(err).Str("isin", isin).Msg("Sector breakdown request failed, keeping profile page data")
	} else if len(sectors) > 0 {
		page.Sectors = sectors
	}
	return page, nil
}

// qualityVerdict is the result of checking a scraped page before use.
type qualityVerdict struct {
	Unusable bool
	Reason   string
	Warnings []string
}

// assessQuality rejects synthetic funds and empty pages outright and
// collects warnings for partial data. Synthetic funds report their swap
// basket instead of the tracked index, so a holdings list dominated by
// other funds is unusable for look-through analysis.
func assessQuality(page *justetf.ProfilePage, ticker, isin string) qualityVerdict {
	var v qualityVerdict

	if len(page.Holdings) > 0 {
		fundCount := 0
		for _, h := range page.Holdings {
			if refdata.HasFundNameIndicator(h.Name) {
				fundCount++
			}
		}
		if float64(fundCount)/float64(len(page.Holdings)) > 0.5 {
			v.Unusable = true
			v.Reason = fmt.Sprintf("Unusable: synthetic/swap replication detected (%d of %d holdings are other funds)",
				fundCount, len(page.Holdings))
			return v
		}
	}

	if len(page.Holdings) == 0 && len(page.Countries) == 0 && len(page.Sectors) == 0 {
		v.Unusable = true
		v.Reason = fmt.Sprintf("Unusable: no data for %s (%s)", ticker, isin)
		return v
	}

	if len(page.Countries) == 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("No country allocation found for %s (%s)", ticker, isin))
	}
	if len(page.Sectors) == 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("No sector allocation found for %s (%s)", ticker, isin))
	}
	if len(page.Holdings) == 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("No holdings found for %s (%s); possibly a synthetic fund", ticker, isin))
	}
	return v
}

// rowsToAllocations converts scraped percent rows to fractions.
func rowsToAllocations(rows []justetf.Row) []Allocation {
	out := make([]Allocation, 0, len(rows))
	for _, r := range rows {
		out = append(out, Allocation{Name: r.Name, Weight: r.Weight / 100})
	}
	return out
}

// enrichHoldings fills in currency and country from each holding's ISIN
// where one was scraped, and falls back to USD/Unknown otherwise.
func enrichHoldings(rows []justetf.HoldingRow) []Holding {
	out := make([]Holding, 0, len(rows))
	for _, r := range rows {
		h := Holding{
			Name:     r.Name,
			Weight:   r.Weight / 100,
			Currency: "USD",
			Sector:   "Unknown",
		}
		if len(r.ISIN) >= 2 {
			h.ISIN = r.ISIN
			h.Country = r.ISIN[:2]
			h.Currency = refdata.CurrencyForISIN(r.ISIN, "USD")
		}
		out = append(out, h)
	}
	return out
}

// deriveCurrencyAllocation folds a country allocation into currencies.
// Eurozone countries collapse into EUR; countries without a known
// currency accumulate into an "Other" bucket.
func deriveCurrencyAllocation(countries []Allocation) []Allocation {
	weights := make(map[string]float64)
	unmapped := 0.0
	for _, c := range countries {
		if currency, ok := refdata.CurrencyForCountry(c.Name); ok {
			weights[currency] += c.Weight
		} else {
			unmapped += c.Weight
		}
	}
	out := make([]Allocation, 0, len(weights)+1)
	for currency, weight := range weights {
		out = append(out, Allocation{Name: currency, Weight: weight})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	if unmapped > 0.001 {
		out = append(out, Allocation{Name: "Other", Weight: unmapped})
	}
	return out
}

// UpdateOne re-scrapes the fund behind an existing detail file, keeping
// its stored identity (type, region, proxy ISIN).
func (s *Service) UpdateOne(ctx context.Context, symbol string) (*Detail, error) {
	existing, err := s.store.Get(symbol)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%s: %w", symbol, ErrFundNotFound)
	}
	if existing.ISIN == "" {
		return nil, fmt.Errorf("no ISIN recorded for %s, cannot update", symbol)
	}
	if !existing.IsAutoGenerated() {
		return nil, fmt.Errorf("%s: %w", symbol, ErrManualSource)
	}
	return s.Generate(ctx, GenerateRequest{
		Ticker:    existing.Ticker,
		ISIN:      existing.ISIN,
		Type:      existing.Type,
		Region:    existing.Region,
		ProxyISIN: existing.ProxyISIN,
	})
}

// ProgressEvent reports one step of a batch update.
type ProgressEvent struct {
	BatchID string `json:"batch_id"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Ticker  string `json:"ticker"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// BatchResult summarizes a finished batch update.
type BatchResult struct {
	ID      string   `json:"id"`
	Total   int      `json:"total"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// UpdateAll re-scrapes every auto-generated detail file that has gone
// stale, oldest first. With force set, fresh files are refreshed too.
// Progress is reported through the optional callback and on the event
// bus. Cancelling the context returns the partial result.
func (s *Service) UpdateAll(ctx context.Context, force bool, progress func(ProgressEvent)) (*BatchResult, error) {
	return s.runBatch(ctx, uuid.NewString(), force, progress)
}

// StartUpdateAll launches a batch update in the background and returns
// its batch id. Progress flows over the event bus.
func (s *Service) StartUpdateAll(force bool) (string, error) {
	s.batchMu.Lock()
	active := s.batchActive
	s.batchMu.Unlock()
	if active {
		return "", ErrBatchRunning
	}
	batchID := uuid.NewString()
	go func() {
		if _, err := s.runBatch(context.Background(), batchID, force, nil); err != nil {
			s.log.Error().Err(err).Str("batch_id", batchID).Msg("Fund update batch failed")
		}
	}()
	return batchID, nil
}

func (s *Service) runBatch(ctx context.Context, batchID string, force bool, progress func(ProgressEvent)) (*BatchResult, error) {
	s.batchMu.Lock()
	if s.batchActive {
		s.batchMu.Unlock()
		return nil, ErrBatchRunning
	}
	s.batchActive = true
	s.batchMu.Unlock()
	defer func() {
		s.batchMu.Lock()
		s.batchActive = false
		s.batchMu.Unlock()
	}()

	summaries, err := s.store.List()
	if err != nil {
		return nil, err
	}

	result := &BatchResult{ID: batchID}
	var candidates []Summary
	for _, sum := range summaries {
		if sum.DataSource == "manual" {
			result.Skipped++
			continue
		}
		if !force && !sum.Stale {
			result.Skipped++
			continue
		}
		candidates = append(candidates, sum)
	}
	// Oldest first, so the most out-of-date funds refresh before any
	// failure or cancellation cuts the run short.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].LastUpdated < candidates[j].LastUpdated
	})
	result.Total = len(candidates)

	s.bus.Publish(events.FundUpdateStarted, "funds", map[string]interface{}{
		"batch_id": batchID,
		"total":    len(candidates),
		"force":    force,
	})
	s.log.Info().Str("batch_id", batchID).Int("total", len(candidates)).Bool("force", force).
		Msg("Starting fund update batch")

	for i, candidate := range candidates {
		if i > 0 && s.scrapeDelay > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(s.scrapeDelay):
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		status := "updated"
		message := ""
		if _, err := s.UpdateOne(ctx, candidate.Ticker); err != nil {
			status = "failed"
			message = err.Error()
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", candidate.Ticker, err))
			s.log.Warn().Err(err).Str("ticker", candidate.Ticker).Msg("Fund update failed")
		} else {
			result.Updated++
		}

		event := ProgressEvent{
			BatchID: batchID,
			Current: i + 1,
			Total:   len(candidates),
			Ticker:  candidate.Ticker,
			Status:  status,
			Message: message,
		}
		if progress != nil {
			progress(event)
		}
		s.bus.Publish(events.FundUpdateProgress, "funds", map[string]interface{}{
			"batch_id": event.BatchID,
			"current":  event.Current,
			"total":    event.Total,
			"ticker":   event.Ticker,
			"status":   event.Status,
			"message":  event.Message,
		})
	}

	s.bus.Publish(events.FundUpdateCompleted, "funds", map[string]interface{}{
		"batch_id": batchID,
		"total":    result.Total,
		"updated":  result.Updated,
		"failed":   result.Failed,
	})
	s.log.Info().Str("batch_id", batchID).Int("updated", result.Updated).Int("failed", result.Failed).
		Msg("Fund update batch finished")
	return result, nil
}

// TemplateRequest describes the skeleton file to create.
type TemplateRequest struct {
	Ticker string
	ISIN   string
	Name   string
	Type   string
	Region string
}

// Template writes an empty, hand-editable detail file marked as manual
// so batch updates will never overwrite it. Refuses to overwrite an
// existing file.
func (s *Service) Template(req TemplateRequest) (*Detail, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	name := req.Name
	if name == "" {
		name = req.Ticker
	}
	fundType := req.Type
	if fundType == "" {
		fundType = TypeStock
	}
	detail := &Detail{
		ISIN:        strings.ToUpper(strings.TrimSpace(req.ISIN)),
		Name:        name,
		Ticker:      req.Ticker,
		Type:        fundType,
		Region:      req.Region,
		LastUpdated: time.Now().Format("2006-01-02"),
		Source:      "manual",
	}
	if err := s.store.WriteTemplate(detail); err != nil {
		return nil, err
	}
	s.log.Info().Str("ticker", req.Ticker).Msg("Created manual detail file template")
	return detail, nil
}
