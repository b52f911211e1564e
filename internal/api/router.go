package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/points", func(r chi.Router) {
			r.Get("/", s.handleListPoints)
			r.Get("/{address}", s.handleGetPoint)
			r.Put("/{address}", s.handleSetPoint)
		})

		r.Post("/notifications", s.handleSendNotification)

		r.Post("/refresh", s.handleRefreshAll)
		r.Post("/refresh/{loop}", s.handleRefresh)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the bridge health report plus the API version.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := s.bridge.Health()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  health.Status,
		"version": s.version,
		"bridge":  health,
	})
}
