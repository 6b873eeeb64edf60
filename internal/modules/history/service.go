package history

import (
	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

// smaPeriod is the smoothing window for the timeline value series.
const smaPeriod = 5

// Service wraps the repository with timeline assembly.
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new history service.
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "history").Logger(),
	}
}

// List returns stored runs, most recent first.
func (s *Service) List(limit int) ([]Entry, error) {
	return s.repo.List(limit)
}

// Get returns one stored run with the full result, or nil.
func (s *Service) Get(id int64) (*Entry, error) {
	return s.repo.Get(id)
}

// Delete removes one stored run.
func (s *Service) Delete(id int64) error {
	return s.repo.Delete(id)
}

// Clear removes all stored runs.
func (s *Service) Clear() (int, error) {
	return s.repo.Clear()
}

// Count returns the number of stored runs.
func (s *Service) Count() (int, error) {
	return s.repo.Count()
}

// Timeline returns the last limit runs in chronological order with an
// SMA-smoothed value series once enough points exist for one window.
func (s *Service) Timeline(limit int) (*Timeline, error) {
	entries, err := s.repo.List(limit)
	if err != nil {
		return nil, err
	}

	points := make([]TimelinePoint, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		points = append(points, TimelinePoint{
			ID:         e.ID,
			Timestamp:  e.Timestamp,
			TotalValue: e.TotalValue,
			Positions:  e.TotalPositions,
		})
	}

	timeline := &Timeline{Points: points}
	if len(points) >= smaPeriod {
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.TotalValue
		}
		timeline.Smoothed = talib.Sma(values, smaPeriod)
	}

	return timeline, nil
}
