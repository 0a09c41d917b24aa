package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the view-cache routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/cache/{table}/{key}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandlePut)
		r.Delete("/", h.HandleDelete)
	})
}
