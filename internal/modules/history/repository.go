package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clusterrisk/clusterrisk/internal/modules/analysis"
)

// ErrNotFound is returned when no stored analysis has the requested id.
var ErrNotFound = errors.New("analysis not found")

const createAnalysesTable = `
	CREATE TABLE IF NOT EXISTS analyses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		total_value REAL NOT NULL,
		total_positions INTEGER NOT NULL,
		etf_count INTEGER NOT NULL,
		stock_count INTEGER NOT NULL,
		risk_data TEXT NOT NULL
	)
`

// entryColumns is the list of summary columns for the analyses table.
// Column order must match scanEntry.
const entryColumns = `id, timestamp, total_value, total_positions, etf_count, stock_count`

// Repository handles analysis history database operations.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates the analyses table if needed.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	if _, err := db.Exec(createAnalysesTable); err != nil {
		return nil, fmt.Errorf("failed to create analyses table: %w", err)
	}
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}, nil
}

// Record stores a completed analysis run and returns its row id. The
// full result is kept as JSON next to the summary columns.
func (r *Repository) Record(res *analysis.Result) (int64, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("failed to encode analysis result: %w", err)
	}

	timestamp := res.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	query := `
		INSERT INTO analyses
		(timestamp, total_value, total_positions, etf_count, stock_count, risk_data)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		timestamp.UTC().Format(time.RFC3339),
		res.Summary.TotalValue,
		res.Summary.TotalPositions,
		res.Summary.FundCount,
		res.Summary.StockCount,
		string(payload),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert analysis: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted analysis id: %w", err)
	}

	r.log.Info().
		Int64("id", id).
		Float64("total_value", res.Summary.TotalValue).
		Msg("Analysis recorded")

	return id, nil
}

// List retrieves stored runs without their payloads, most recent
// first. limit <= 0 returns everything.
func (r *Repository) List(limit int) ([]Entry, error) {
	query := "SELECT " + entryColumns + " FROM analyses ORDER BY timestamp DESC, id DESC"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analyses: %w", err)
	}

	return entries, nil
}

// Get retrieves one stored run with the full result decoded. Returns
// nil when the id does not exist.
func (r *Repository) Get(id int64) (*Entry, error) {
	query := "SELECT " + entryColumns + ", risk_data FROM analyses WHERE id = ?"

	var (
		entry     Entry
		timestamp string
		riskData  string
	)
	err := r.db.QueryRow(query, id).Scan(
		&entry.ID,
		&timestamp,
		&entry.TotalValue,
		&entry.TotalPositions,
		&entry.FundCount,
		&entry.StockCount,
		&riskData,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis %d: %w", id, err)
	}

	entry.Timestamp, err = time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp on analysis %d: %w", id, err)
	}

	var result analysis.Result
	if err := json.Unmarshal([]byte(riskData), &result); err != nil {
		return nil, fmt.Errorf("failed to decode stored analysis %d: %w", id, err)
	}
	result.HistoryID = entry.ID
	entry.Result = &result

	return &entry, nil
}

// Delete removes one stored run.
func (r *Repository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis %d: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	r.log.Info().Int64("id", id).Msg("Analysis deleted")
	return nil
}

// Clear removes all stored runs and reclaims the freed pages. Returns
// the number of deleted rows.
func (r *Repository) Clear() (int, error) {
	result, err := r.db.Exec("DELETE FROM analyses")
	if err != nil {
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check deleted rows: %w", err)
	}

	// The rows are gone either way; a failed VACUUM only costs disk.
	if _, err := r.db.Exec("VACUUM"); err != nil {
		r.log.Warn().Err(err).Msg("VACUUM after history clear failed")
	}

	r.log.Info().Int64("deleted", affected).Msg("History cleared")
	return int(affected), nil
}

// Count returns the number of stored runs.
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	return count, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry     Entry
		timestamp string
	)
	err := rows.Scan(
		&entry.ID,
		&timestamp,
		&entry.TotalValue,
		&entry.TotalPositions,
		&entry.FundCount,
		&entry.StockCount,
	)
	if err != nil {
		return entry, err
	}

	entry.Timestamp, err = time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return entry, fmt.Errorf("invalid timestamp on analysis %d: %w", entry.ID, err)
	}

	return entry, nil
}
