// Package events provides the in-process publish/subscribe bus that
// analysis runs, fund updates, and scheduled jobs report through.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType identifies a class of event.
type EventType string

const (
	AnalysisStarted     EventType = "analysis_started"
	AnalysisCompleted   EventType = "analysis_completed"
	FundUpdateStarted   EventType = "fund_update_started"
	FundUpdateProgress  EventType = "fund_update_progress"
	FundUpdateCompleted EventType = "fund_update_completed"
	SectorWarmCompleted EventType = "sector_warm_completed"
	HistorySaved        EventType = "history_saved"
	BackupCompleted     EventType = "backup_completed"
	JobStarted          EventType = "job_started"
	JobCompleted        EventType = "job_completed"
	JobFailed           EventType = "job_failed"
)

// AllTypes lists every event type, in the order streams forward them.
func AllTypes() []EventType {
	return []EventType{
		AnalysisStarted,
		AnalysisCompleted,
		FundUpdateStarted,
		FundUpdateProgress,
		FundUpdateCompleted,
		SectorWarmCompleted,
		HistorySaved,
		BackupCompleted,
		JobStarted,
		JobCompleted,
		JobFailed,
	}
}

// Event is a published occurrence with a free-form payload.
type Event struct {
	Type      EventType              `json:"type"`
	Module    string                 `json:"module"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine and must not block; stream handlers bridge to
// buffered channels with non-blocking sends.
type Handler func(*Event)

// Bus fans published events out to per-type subscribers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[int]Handler
	nextID   int
	log      zerolog.Logger
}

// NewBus creates an empty bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType]map[int]Handler),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for one event type and returns a
// subscription ID for Unsubscribe.
func (b *Bus) Subscribe(eventType EventType, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[int]Handler)
	}
	b.handlers[eventType][id] = handler
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(eventType EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[eventType], id)
}

// Publish delivers an event to all subscribers of its type.
func (b *Bus) Publish(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Module:    module,
		Timestamp: time.Now(),
		Data:      data,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.log.Debug().Str("event_type", string(eventType)).Str("module", module).Int("subscribers", len(handlers)).Msg("Publishing event")

	for _, h := range handlers {
		h(event)
	}
}
