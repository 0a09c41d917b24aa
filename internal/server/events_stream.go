package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/dashboard/internal/events"
	"github.com/rs/zerolog"
)

const (
	streamBufferSize  = 100
	heartbeatInterval = 30 * time.Second
)

// EventsStreamHandler handles unified Server-Sent Events (SSE) streaming for all system events.
type EventsStreamHandler struct {
	eventBus  *events.Bus
	log       zerolog.Logger
	heartbeat time.Duration
}

// NewEventsStreamHandler creates a new unified events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus:  eventBus,
		log:       log.With().Str("component", "events_stream").Logger(),
		heartbeat: heartbeatInterval,
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// An optional comma-separated types query parameter narrows the stream.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	eventTypes := parseTypesFilter(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		http.Error(w, "No known event types requested", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	h.log.Info().Int("types", len(eventTypes)).Msg("Client connected to unified event stream")

	eventChan := make(chan *events.Event, streamBufferSize)

	// Non-blocking send: a slow client drops events, never the bus
	eventHandler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	subscriptions := make([]events.SubscriptionID, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscriptions = append(subscriptions, h.eventBus.Subscribe(eventType, eventHandler))
	}
	defer func() {
		for _, id := range subscriptions {
			h.eventBus.Unsubscribe(id)
		}
	}()

	h.write(w, flusher, map[string]interface{}{
		"type":    "connected",
		"message": "Connected to unified event stream",
	})

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.write(w, flusher, map[string]interface{}{
				"type":      string(event.Type),
				"module":    event.Module,
				"timestamp": event.Timestamp.Format(time.RFC3339),
				"data":      event.Data,
			})

		case <-heartbeat.C:
			h.write(w, flusher, map[string]interface{}{
				"type":      "heartbeat",
				"timestamp": time.Now().Format(time.RFC3339),
			})
		}
	}
}

func (h *EventsStreamHandler) write(w http.ResponseWriter, flusher http.Flusher, event map[string]interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// parseTypesFilter returns the requested known event types, or all of them
// when the filter is empty. Unknown names are ignored.
func parseTypesFilter(filter string) []events.EventType {
	if strings.TrimSpace(filter) == "" {
		return events.AllEventTypes
	}

	known := make(map[events.EventType]bool, len(events.AllEventTypes))
	for _, t := range events.AllEventTypes {
		known[t] = true
	}

	var out []events.EventType
	seen := make(map[events.EventType]bool)
	for _, name := range strings.Split(filter, ",") {
		t := events.EventType(strings.TrimSpace(name))
		if known[t] && !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
