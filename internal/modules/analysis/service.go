package analysis

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/diagnostics"
	"github.com/clusterrisk/clusterrisk/internal/events"
	"github.com/clusterrisk/clusterrisk/internal/modules/ingestion"
)

// Recorder persists finished runs. The history repository satisfies
// this.
type Recorder interface {
	Record(res *Result) (int64, error)
}

// Service drives one analysis pass: parse, expand, aggregate, measure,
// and record. Runs share the diagnostics collector, which is reset at
// the start of each run.
type Service struct {
	parser   *ingestion.Parser
	resolver *Resolver
	history  Recorder
	bus      *events.Bus
	diag     *diagnostics.Collector
	log      zerolog.Logger
}

// NewService wires the pipeline stages together. history may be nil
// when runs should never be persisted.
func NewService(parser *ingestion.Parser, resolver *Resolver, history Recorder, bus *events.Bus, diag *diagnostics.Collector, log zerolog.Logger) *Service {
	return &Service{
		parser:   parser,
		resolver: resolver,
		history:  history,
		bus:      bus,
		diag:     diag,
		log:      log.With().Str("service", "analysis").Logger(),
	}
}

// Run executes one full pass over a snapshot. When the history write
// fails the computed result is still returned alongside the error, so
// callers can show the analysis and the failure at the same time.
func (s *Service) Run(ctx context.Context, r io.Reader, saveHistory bool) (*Result, error) {
	s.diag.Reset()

	snap, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}

	s.bus.Publish(events.AnalysisStarted, "analysis", map[string]interface{}{
		"positions":   snap.TotalPositions,
		"total_value": snap.TotalValue,
	})

	holdings := s.resolver.Expand(ctx, snap)
	tables, positions := Aggregate(holdings)

	res := &Result{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Summary: Summary{
			TotalValue:       snap.TotalValue,
			TotalPositions:   snap.TotalPositions,
			FundCount:        snap.FundCount,
			StockCount:       snap.StockCount,
			BaseCurrency:     snap.BaseCurrency,
			ExpandedHoldings: len(holdings),
		},
		Tables:    tables,
		Positions: positions,
		Metrics:   Measure(tables, positions),
	}

	if saveHistory && s.history != nil {
		id, err := s.history.Record(res)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to record analysis run")
			s.diag.Error("history", "Analysis completed but could not be saved to history",
				"Check that the history database is writable.")
			res.Diagnostics = s.diag.Messages()
			return res, diagnostics.WrapError(diagnostics.KindHistoryWriteFailed, err, "recording analysis run")
		}
		res.HistoryID = id
		s.bus.Publish(events.HistorySaved, "analysis", map[string]interface{}{
			"id": id,
		})
	}

	res.Diagnostics = s.diag.Messages()

	s.bus.Publish(events.AnalysisCompleted, "analysis", map[string]interface{}{
		"run_id":      res.RunID,
		"total_value": res.Summary.TotalValue,
		"positions":   res.Summary.TotalPositions,
		"holdings":    res.Summary.ExpandedHoldings,
	})
	s.log.Info().
		Str("run_id", res.RunID).
		Int("positions", res.Summary.TotalPositions).
		Int("holdings", res.Summary.ExpandedHoldings).
		Float64("total_value", res.Summary.TotalValue).
		Msg("Analysis complete")

	return res, nil
}

// Diagnostics returns the message buffer of the most recent run.
func (s *Service) Diagnostics() []diagnostics.Message {
	return s.diag.Messages()
}

// DiagnosticsSummary counts the buffered messages by level.
func (s *Service) DiagnosticsSummary() diagnostics.Summary {
	return s.diag.Summary()
}
