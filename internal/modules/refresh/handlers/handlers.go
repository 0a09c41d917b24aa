// Package handlers provides HTTP and WebSocket handlers for price refresh orchestration.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/dashboard/internal/clients/dashboard"
	"github.com/aristath/dashboard/internal/modules/refresh"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Orchestrator is the refresh orchestrator surface exposed over HTTP.
type Orchestrator interface {
	Snapshot() refresh.Snapshot
	Refresh(ctx context.Context, force bool) error
	SetEnabled(ctx context.Context, enabled bool) error
	History() refresh.HistoryReport
	Subscribe(fn func(refresh.Snapshot)) func()
}

// Manual triggers are limited to one per second with a small burst.
const (
	triggerRate  = rate.Limit(1)
	triggerBurst = 3
)

// Handler handles refresh HTTP requests
type Handler struct {
	orchestrator Orchestrator
	limiter      *rate.Limiter
	log          zerolog.Logger
}

// NewHandler creates a new refresh handler
func NewHandler(orchestrator Orchestrator, log zerolog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		limiter:      rate.NewLimiter(triggerRate, triggerBurst),
		log:          log.With().Str("handler", "refresh").Logger(),
	}
}

type triggerRequest struct {
	Force *bool `json:"force"`
}

// HandleGetStatus handles GET /api/refresh/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.orchestrator.Snapshot()))
}

// HandleTrigger handles POST /api/refresh
// A missing body or force field means a forced refresh, as from the refresh button.
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		h.writeError(w, http.StatusTooManyRequests, "too many refresh requests")
		return
	}

	force := true
	if r.ContentLength != 0 {
		var req triggerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Force != nil {
			force = *req.Force
		}
	}

	err := h.orchestrator.Refresh(r.Context(), force)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusAccepted, envelope(h.orchestrator.Snapshot()))
	case errors.Is(err, refresh.ErrRefreshInProgress):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, refresh.ErrOrchestratorStopped):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error().Err(err).Bool("force", force).Msg("Refresh trigger failed")
		status := http.StatusBadGateway
		var apiErr *dashboard.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			status = http.StatusConflict
		}
		h.writeError(w, status, err.Error())
	}
}

// HandleSetEnabled handles PUT /api/refresh/enabled?enabled=bool
func (h *Handler) HandleSetEnabled(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "enabled must be true or false")
		return
	}

	if err := h.orchestrator.SetEnabled(r.Context(), enabled); err != nil {
		snap := h.orchestrator.Snapshot()
		h.writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":         err.Error(),
			"enabled":       snap.Enabled,
			"setting_phase": snap.SettingPhase,
		})
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(h.orchestrator.Snapshot()))
}

// HandleGetHistory handles GET /api/refresh/history
func (h *Handler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.orchestrator.History()))
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
