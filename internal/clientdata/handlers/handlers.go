// Package handlers exposes the view caches to the dashboard frontend.
package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/aristath/dashboard/internal/clientdata"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// maxEntrySize bounds a single cached view payload.
const maxEntrySize = 1 << 20

// CacheRepository is the view-cache surface used by the handlers.
type CacheRepository interface {
	Store(table, key string, data interface{}, ttl time.Duration) error
	GetIfFresh(table, key string) (json.RawMessage, error)
	Delete(table, key string) error
}

// Handler handles view-cache HTTP requests
type Handler struct {
	repo CacheRepository
	log  zerolog.Logger
}

// NewHandler creates a new view-cache handler
func NewHandler(repo CacheRepository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "view_cache").Logger(),
	}
}

// HandleGet handles GET /api/cache/{table}/{key}
// Missing and expired entries are both 404 so the caller refetches.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	table, key, ok := h.params(w, r)
	if !ok {
		return
	}

	data, err := h.repo.GetIfFresh(table, key)
	if err != nil {
		h.log.Error().Err(err).Str("table", table).Str("key", key).Msg("Failed to read view cache")
		h.writeError(w, http.StatusInternalServerError, "failed to read cache")
		return
	}
	if data == nil {
		h.writeError(w, http.StatusNotFound, "not cached")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"table":     table,
			"key":       key,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// HandlePut handles PUT /api/cache/{table}/{key}
// The body is stored verbatim with the table's TTL.
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	table, key, ok := h.params(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEntrySize))
	if err != nil {
		h.writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if !json.Valid(body) {
		h.writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}

	ttl := clientdata.TTLFor(table)
	if err := h.repo.Store(table, key, json.RawMessage(body), ttl); err != nil {
		h.log.Error().Err(err).Str("table", table).Str("key", key).Msg("Failed to store view cache")
		h.writeError(w, http.StatusInternalServerError, "failed to store cache")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":      table,
		"key":        key,
		"expires_at": time.Now().Add(ttl).Format(time.RFC3339),
	})
}

// HandleDelete handles DELETE /api/cache/{table}/{key}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	table, key, ok := h.params(w, r)
	if !ok {
		return
	}

	if err := h.repo.Delete(table, key); err != nil {
		h.log.Error().Err(err).Str("table", table).Str("key", key).Msg("Failed to delete view cache")
		h.writeError(w, http.StatusInternalServerError, "failed to delete cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) params(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	table := chi.URLParam(r, "table")
	key := chi.URLParam(r, "key")
	if clientdata.TTLFor(table) == 0 {
		h.writeError(w, http.StatusNotFound, "unknown cache table: "+table)
		return "", "", false
	}
	if key == "" {
		h.writeError(w, http.StatusBadRequest, "cache key is required")
		return "", "", false
	}
	return table, key, true
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
