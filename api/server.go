/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/clock            Clock actions
  /api/workers/*        Worker status, events, signature status
  /api/reports/*        Monthly, employer, overtime reports; signing
  /api/records/*        Integrity verification

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Report-Digest"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Clock actions
		r.Post("/clock", h.Clock)

		// Worker routes
		r.Route("/workers", func(r chi.Router) {
			r.Get("/{id}/status", h.GetStatus)
			r.Get("/{id}/events", h.GetWorkerEvents)
			r.Get("/{id}/signatures", h.GetSignatureStatus)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/worker/{id}/monthly", h.GetWorkerMonthly)
			r.Get("/worker/{id}/overtime", h.GetWorkerOvertime)
			r.Post("/worker/{id}/sign", h.SignMonth)
			r.Get("/employer/{id}/monthly", h.GetEmployerMonthly)
			r.Get("/employer/{id}/overtime", h.GetEmployerOvertime)
		})

		// Integrity routes
		r.Route("/records", func(r chi.Router) {
			r.Get("/{id}/integrity", h.VerifyRecord)
		})
	})

	return r
}
