package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the optimization routes under /api
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/stocks", h.HandleGetStocks)
		r.Post("/optimize", h.HandleOptimize)
	})
}
