package sectors

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository persists cache entries as msgpack blobs keyed by symbol.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates the repository and ensures its table exists.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	repo := &Repository{
		db:  db,
		log: log.With().Str("component", "sector_cache").Logger(),
	}

	schema := `
		CREATE TABLE IF NOT EXISTS sector_cache (
			symbol TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create sector_cache table: %w", err)
	}

	return repo, nil
}

// Get returns the cached entry for a symbol, or nil when absent.
func (r *Repository) Get(symbol string) (*Entry, error) {
	var data []byte
	err := r.db.QueryRow(`SELECT data FROM sector_cache WHERE symbol = ?`, symbol).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sector cache: %w", err)
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode sector cache entry: %w", err)
	}

	return &entry, nil
}

// Put inserts or replaces the entry for its symbol.
func (r *Repository) Put(entry *Entry) error {
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode sector cache entry: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO sector_cache (symbol, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, entry.Symbol, data, entry.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to store sector cache entry: %w", err)
	}

	return nil
}

// List returns all cached entries ordered by symbol.
func (r *Repository) List() ([]Entry, error) {
	rows, err := r.db.Query(`SELECT data FROM sector_cache ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector cache: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan sector cache row: %w", err)
		}
		var entry Entry
		if err := msgpack.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("failed to decode sector cache entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector cache: %w", err)
	}

	return entries, nil
}

// DeleteOlderThan removes entries written before the cutoff and returns
// how many were removed.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sector_cache WHERE updated_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sector cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted entries: %w", err)
	}

	return deleted, nil
}
