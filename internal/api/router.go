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

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Auth endpoints (no auth required)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires authentication
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			// Controller lifecycle endpoints
			r.Route("/controllers", func(r chi.Router) {
				r.Get("/", s.handleListControllers)
				r.Post("/", s.handleLoadController)
				r.Get("/types", s.handleListTypes)

				r.Route("/{name}", func(r chi.Router) {
					r.Get("/", s.handleGetController)
					r.Delete("/", s.handleUnloadController)
					r.Post("/configure", s.handleConfigureController)
					r.Post("/shutdown", s.handleShutdownController)
				})
			})

			// Atomic switch requests
			r.Post("/switch", s.handleSwitch)

			// Update cycle statistics
			r.Get("/cycle", s.handleCycleStats)

			// Lifecycle history
			r.Route("/history", func(r chi.Router) {
				r.Get("/transitions", s.handleListTransitions)
				r.Get("/switches", s.handleListSwitches)
			})

			// WebSocket (auth via ticket, validated in handler)
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
