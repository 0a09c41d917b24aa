// Package handlers provides HTTP handlers for market hours operations.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/dashboard/internal/modules/market_hours"
	"github.com/rs/zerolog"
)

// Handler handles market hours HTTP requests
type Handler struct {
	gate *market_hours.Gate
	now  func() time.Time
	log  zerolog.Logger
}

// NewHandler creates a new market hours handler
func NewHandler(gate *market_hours.Gate, log zerolog.Logger) *Handler {
	return &Handler{
		gate: gate,
		now:  time.Now,
		log:  log.With().Str("handler", "market_hours").Logger(),
	}
}

// HandleGetStatus handles GET /api/market-hours/status
// Returns whether unforced refreshes are currently allowed
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	status := h.gate.Status(now)

	data := map[string]interface{}{
		"open":       status.Open,
		"timezone":   status.Timezone,
		"opens_at":   status.OpensAt,
		"closes_at":  status.ClosesAt,
		"checked_at": now.Format(time.RFC3339),
	}
	if !status.Open {
		data["next_open_date"] = status.NextOpenDate
	}

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
