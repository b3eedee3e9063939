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
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. Zerolog:    Structured request logging
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/transactions/*   Ledger operations
  /api/adjustments      Manual corrections
  /api/stock/*          Projections, stats, thresholds
  /api/transfers        Location transfers
  /api/alerts/*         Alert lifecycle
  /api/reorders/*       Reorder notifications
  /api/counts/*         Cycle count workflow
  /metrics              Prometheus scrape endpoint
  /health               Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, log zerolog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Ledger routes
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactions)
			r.Post("/", h.CreateTransaction)
			r.Get("/{id}", h.GetTransaction)
			r.Patch("/{id}", h.UpdateTransaction)
			r.Delete("/{id}", h.DeleteTransaction)
			r.Post("/{id}/cancel", h.CancelTransaction)
		})
		r.Post("/adjustments", h.CreateAdjustment)

		// Stock projection routes
		r.Route("/stock", func(r chi.Router) {
			r.Get("/", h.ListStockLevels)
			r.Get("/stats", h.GetStats)
			r.Put("/thresholds", h.SetThresholds)
			r.Get("/{productId}", h.GetStockLevel)
		})

		// Transfer routes
		r.Post("/transfers", h.CreateTransfer)

		// Alert routes
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.ListAlerts)
			r.Post("/evaluate-expiry", h.EvaluateExpiry)
			r.Post("/{id}/acknowledge", h.AcknowledgeAlert)
			r.Post("/{id}/resolve", h.ResolveAlert)
			r.Post("/{id}/dismiss", h.DismissAlert)
		})
		r.Route("/reorders", func(r chi.Router) {
			r.Get("/", h.ListReorderNotifications)
			r.Post("/{id}/ordered", h.MarkReorderOrdered)
			r.Post("/{id}/dismiss", h.DismissReorderNotification)
		})

		// Cycle count routes
		r.Route("/counts", func(r chi.Router) {
			r.Get("/", h.ListCycleCounts)
			r.Post("/", h.CreateCycleCount)
			r.Get("/{id}", h.GetCycleCount)
			r.Post("/{id}/start", h.StartCycleCount)
			r.Post("/{id}/complete", h.CompleteCycleCount)
			r.Post("/{id}/cancel", h.CancelCycleCount)
			r.Post("/{id}/adjustments", h.ApplyCycleCountAdjustments)
			r.Post("/{id}/items/{itemId}", h.RecordItemCount)
			r.Post("/{id}/items/{itemId}/verify", h.VerifyItemCount)
		})
	})

	// Operational endpoints
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// requestLogger logs one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
