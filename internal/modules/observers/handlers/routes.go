package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all observer view routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/views", func(r chi.Router) {
		r.Get("/header", h.HandleGetHeader)
		r.Route("/price-management", func(r chi.Router) {
			r.Get("/", h.HandleGetPriceManagement)
			r.Post("/banner/dismiss", h.HandleDismissBanner)
		})
	})
}
