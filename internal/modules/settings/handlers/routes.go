package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the settings routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Get("/api-token", h.HandleGetAPIToken)
		r.Put("/api-token", h.HandleSetAPIToken)
		r.Delete("/api-token", h.HandleClearAPIToken)
	})
}
