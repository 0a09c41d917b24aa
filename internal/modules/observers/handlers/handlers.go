// Package handlers exposes the observer views over HTTP.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aristath/dashboard/internal/modules/observers"
	"github.com/rs/zerolog"
)

// StatusView is a mounted observer.
type StatusView interface {
	View() observers.View
}

// BannerView is the price management view.
type BannerView interface {
	StatusView
	ShouldShowProviderBanner(ctx context.Context, now time.Time) (bool, error)
	DismissProviderBanner(now time.Time) error
}

// Handler handles observer view HTTP requests
type Handler struct {
	header     StatusView
	management BannerView
	now        func() time.Time
	log        zerolog.Logger
}

// NewHandler creates a new observer view handler
func NewHandler(header StatusView, management BannerView, log zerolog.Logger) *Handler {
	return &Handler{
		header:     header,
		management: management,
		now:        time.Now,
		log:        log.With().Str("handler", "observers").Logger(),
	}
}

// HandleGetHeader handles GET /api/views/header
func (h *Handler) HandleGetHeader(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.header.View()))
}

// HandleGetPriceManagement handles GET /api/views/price-management
// A failed provider check hides the banner rather than failing the view.
func (h *Handler) HandleGetPriceManagement(w http.ResponseWriter, r *http.Request) {
	view := h.management.View()

	show, err := h.management.ShouldShowProviderBanner(r.Context(), h.now())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to evaluate provider banner")
		show = false
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"status_line":          view.StatusLine,
		"running":              view.Running,
		"enabled":              view.Enabled,
		"setting_phase":        view.SettingPhase,
		"mounted":              view.Mounted,
		"show_provider_banner": show,
	}))
}

// HandleDismissBanner handles POST /api/views/price-management/banner/dismiss
func (h *Handler) HandleDismissBanner(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	if err := h.management.DismissProviderBanner(now); err != nil {
		h.log.Error().Err(err).Msg("Failed to dismiss provider banner")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to dismiss banner"})
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"dismissed_at": now.Format(time.RFC3339),
		"hidden_until": now.Add(observers.BannerSnooze).Format(time.RFC3339),
	}))
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
