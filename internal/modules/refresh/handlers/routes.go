package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all refresh request/response routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/refresh", func(r chi.Router) {
		r.Post("/", h.HandleTrigger)
		r.Get("/status", h.HandleGetStatus)
		r.Put("/enabled", h.HandleSetEnabled)
		r.Get("/history", h.HandleGetHistory)
	})
}

// RegisterStreamRoutes registers the long-lived refresh stream.
// It must be mounted outside request timeout and compression middleware.
func (h *Handler) RegisterStreamRoutes(r chi.Router) {
	r.Get("/refresh/ws", h.HandleWebSocket)
}
