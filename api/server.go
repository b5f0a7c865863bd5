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
  4. CORS:       Cross-origin requests for the HR frontend

ROUTE GROUPS:
  /api/leave-requests/*      Request lifecycle
  /api/leave-entitlements/*  Balances and manual adjustments
  /api/leave-types/*         Leave type administration
  /api/policies/*            Policy administration
  /api/employees/*           Employee master data
  /api/holidays/*            Working-day calendar
  /api/audit                 Audit queries
  /api/admin/*               Sweep trigger

SECURITY NOTE:
  Actor identity comes from X-Actor-ID/X-Actor-Roles headers; the gateway in
  front of this service is responsible for authenticating them.

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor-ID", "X-Actor-Roles"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Request lifecycle
		r.Route("/leave-requests", func(r chi.Router) {
			r.Post("/", h.SubmitRequest)
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
			r.Post("/{id}/finalize", h.FinalizeRequest)
			r.Post("/{id}/override", h.OverrideRequest)
			r.Post("/{id}/flag-irregular", h.FlagIrregular)
			r.Post("/{id}/unflag-irregular", h.UnflagIrregular)
		})

		// Balances and adjustments
		r.Route("/leave-entitlements", func(r chi.Router) {
			r.Get("/my-balances", h.MyBalances)
			r.Post("/manual-adjustment", h.ManualAdjustment)
		})

		// Policy administration
		r.Route("/leave-types", func(r chi.Router) {
			r.Get("/", h.ListLeaveTypes)
			r.Post("/", h.CreateLeaveType)
		})
		r.Route("/policies", func(r chi.Router) {
			r.Get("/", h.ListPolicies)
			r.Post("/", h.CreatePolicy)
		})

		// Master data
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
		})
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Audit
		r.Get("/audit", h.QueryAudit)

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})

		// Demo scenarios (load refuses unless the server runs with -demo)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
