// Package handlers provides HTTP handlers for client-local settings.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/dashboard/internal/modules/settings"
	"github.com/rs/zerolog"
)

// TokenService manages the backend API token.
type TokenService interface {
	Save(token string) (settings.TokenStatus, error)
	Clear() (settings.TokenStatus, error)
	Status() (settings.TokenStatus, error)
}

// Handler handles settings HTTP requests
type Handler struct {
	tokens TokenService
	log    zerolog.Logger
}

// NewHandler creates a new settings handler
func NewHandler(tokens TokenService, log zerolog.Logger) *Handler {
	return &Handler{
		tokens: tokens,
		log:    log.With().Str("handler", "settings").Logger(),
	}
}

type tokenRequest struct {
	Token string `json:"token"`
}

// HandleGetAPIToken handles GET /api/settings/api-token
// The token itself is never returned.
func (h *Handler) HandleGetAPIToken(w http.ResponseWriter, r *http.Request) {
	status, err := h.tokens.Status()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to read API token status")
		h.writeError(w, http.StatusInternalServerError, "failed to read api token")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(status))
}

// HandleSetAPIToken handles PUT /api/settings/api-token
func (h *Handler) HandleSetAPIToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := h.tokens.Save(req.Token)
	switch {
	case err == nil:
		h.writeJSON(w, http.StatusOK, envelope(status))
	case errors.Is(err, settings.ErrEmptyToken):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg("Failed to save API token")
		h.writeError(w, http.StatusInternalServerError, "failed to save api token")
	}
}

// HandleClearAPIToken handles DELETE /api/settings/api-token
func (h *Handler) HandleClearAPIToken(w http.ResponseWriter, r *http.Request) {
	status, err := h.tokens.Clear()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to clear API token")
		h.writeError(w, http.StatusInternalServerError, "failed to clear api token")
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(status))
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
