package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes registers the web page, health check and JSON API on r.
// /metrics is mounted only when metrics is non-nil.
func Routes(r chi.Router, h *Handlers, metrics *Metrics) {
	r.Get("/", h.Page)
	r.Get("/health", h.Health)
	if metrics != nil {
		r.Method("GET", "/metrics", metrics.Handler())
	}
	r.Route("/v1", func(r chi.Router) {
		r.Post("/recommendations", h.Recommend)
		r.Get("/doctors", h.Doctors)
		r.Get("/specialties", h.Specialties)
	})
}
