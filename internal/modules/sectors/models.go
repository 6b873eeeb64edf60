// Package sectors maintains the ticker→sector cache: a keyed blob store
// backed by the cache database, filled through external lookups.
package sectors

import "time"

// Entry sources.
const (
	SourceYahoo    = "yahoo"
	SourceOpenFIGI = "openfigi"
	SourceManual   = "manual"
	SourceUnknown  = "unknown"
)

// Entry is one cached ticker→sector mapping.
type Entry struct {
	Symbol    string    `json:"symbol" msgpack:"symbol"`
	Sector    string    `json:"sector" msgpack:"sector"`
	Source    string    `json:"source" msgpack:"source"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at"`
}

// Age returns how long ago the entry was written.
func (e *Entry) Age() time.Duration {
	return time.Since(e.UpdatedAt)
}

// Stats summarises the cache contents.
type Stats struct {
	Total    int            `json:"total"`
	BySource map[string]int `json:"by_source"`
	Oldest   *time.Time     `json:"oldest,omitempty"`
	Newest   *time.Time     `json:"newest,omitempty"`
}
