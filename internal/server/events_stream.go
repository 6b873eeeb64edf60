package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/clusterrisk/clusterrisk/internal/events"
)

// keepaliveInterval is how often idle stream connections are touched so
// proxies do not cut them off.
const keepaliveInterval = 15 * time.Second

// StreamHandler pushes bus events to SSE and WebSocket clients.
type StreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(bus *events.Bus, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		bus: bus,
		log: log.With().Str("handler", "events_stream").Logger(),
	}
}

// HandleSSE handles GET /api/events/stream requests.
// An optional ?types=a,b query restricts the delivered event types.
func (h *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	allowed := parseTypesFilter(r)
	eventChan, unsubscribe := h.subscribe(allowed)
	defer unsubscribe()

	h.log.Info().Str("types_filter", r.URL.Query().Get("types")).Msg("Client connected to event stream")

	// Initial message so clients know the stream is live.
	fmt.Fprintf(w, "data: %s\n\n", h.encode(map[string]interface{}{"type": "connected"}))
	flusher.Flush()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			fmt.Fprintf(w, "data: %s\n\n", h.encode(eventPayload(event)))
			flusher.Flush()

		case <-keepalive.C:
			// SSE comment line, ignored by clients.
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

// HandleWS handles GET /api/events/ws requests. Same event feed as the
// SSE stream, delivered as JSON messages.
func (h *StreamHandler) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	allowed := parseTypesFilter(r)
	eventChan, unsubscribe := h.subscribe(allowed)
	defer unsubscribe()

	h.log.Info().Msg("Client connected to event websocket")

	// The server never reads application messages. CloseRead keeps the
	// control frames serviced and cancels the context on disconnect.
	ctx := conn.CloseRead(r.Context())

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event websocket")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, eventPayload(event))
			cancel()
			if err != nil {
				h.log.Warn().Err(err).Msg("WebSocket write failed")
				return
			}

		case <-keepalive.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Warn().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

// subscribe hooks a buffered channel up to the bus. Bus handlers must not
// block, so full channels drop events instead of stalling the publisher.
func (h *StreamHandler) subscribe(allowed map[events.EventType]bool) (chan *events.Event, func()) {
	eventChan := make(chan *events.Event, 100)

	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().Str("event_type", string(event.Type)).Msg("Event channel full, dropping event")
		}
	}

	types := events.AllTypes()
	if allowed != nil {
		types = make([]events.EventType, 0, len(allowed))
		for eventType := range allowed {
			types = append(types, eventType)
		}
	}

	ids := make(map[events.EventType]int, len(types))
	for _, eventType := range types {
		ids[eventType] = h.bus.Subscribe(eventType, handler)
	}

	unsubscribe := func() {
		for eventType, id := range ids {
			h.bus.Unsubscribe(eventType, id)
		}
	}
	return eventChan, unsubscribe
}

func parseTypesFilter(r *http.Request) map[events.EventType]bool {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	allowed := make(map[events.EventType]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			allowed[events.EventType(t)] = true
		}
	}
	return allowed
}

func eventPayload(event *events.Event) map[string]interface{} {
	return map[string]interface{}{
		"type":      string(event.Type),
		"module":    event.Module,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"data":      event.Data,
	}
}

func (h *StreamHandler) encode(payload map[string]interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return `{"error":"failed to encode event"}`
	}
	return string(data)
}
