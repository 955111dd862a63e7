/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address from proxy headers
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Timeout:    Cancels the request context after RequestTimeout
  6. CORS:       Cross-origin requests for a browser front end

ROUTE GROUPS:
  /api/employees/{id}/*   Self-service: allowance, bookings, clock card
  /api/requests/*         Review queue and request transitions
  /api/admin/*            Admin-entered absences, provisioning, reconcile,
                          clock card corrections
  /healthz                Liveness probe

SECURITY NOTE:
  Identity comes from the X-Employee-ID header and is trusted as given.
  Put the server behind something that authenticates callers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", ActorHeader},
			AllowCredentials: true,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// Self-service routes
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/entitlement", h.GetEntitlement)
			r.Get("/requests", h.ListRequests)
			r.Post("/requests", h.SubmitRequest)
			r.Get("/requests/cancellable", h.ListCancellable)
			r.Post("/clock-in", h.ClockIn)
			r.Post("/clock-out", h.ClockOut)
			r.Get("/clockings", h.GetClockCard)
		})

		// Request review routes
		r.Route("/requests", func(r chi.Router) {
			r.Get("/new", h.ListNewRequests)
			r.Get("/starting-today", h.ListStartingToday)
			r.Post("/{id}/approve", h.ApproveRequest)
			r.Post("/{id}/reject", h.RejectRequest)
			r.Post("/{id}/cancel", h.CancelRequest)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/absences", h.RecordAbsence)
			r.Post("/entitlements", h.ProvisionEntitlement)
			r.Post("/reconcile", h.Reconcile)
			r.Put("/clockings", h.CorrectClocking)
			r.Get("/clockings", h.ListDayClockings)
		})
	})

	return r
}
