/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dispatch frontend

ROUTE GROUPS:
  /api/batches/*        Batch statements and their entries
  /api/rate-tables/*    Mileage rate tables
  /api/tax-profiles     Registered jurisdictions
  /api/taxes/*          Ad hoc tax calculation
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// allowedOrigins list falls back to the local dev origins.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			r.Get("/", h.ListBatches)
			r.Post("/", h.CreateBatch)
			r.Get("/{id}", h.GetBatch)
			r.Post("/{id}/loads", h.AddLoad)
			r.Post("/{id}/waits", h.AddWait)
			r.Post("/{id}/hourly", h.AddHourly)
			r.Put("/{id}/status", h.SetStatus)
			r.Get("/{id}/statement.csv", h.GetStatementCSV)
			r.Get("/{id}/taxes", h.GetBatchTaxes)
			r.Get("/{id}/history", h.GetBatchHistory)
		})

		r.Route("/rate-tables", func(r chi.Router) {
			r.Get("/", h.ListRateTables)
			r.Post("/", h.CreateRateTable)
			r.Get("/{id}", h.GetRateTable)
		})

		r.Get("/tax-profiles", h.ListTaxProfiles)
		r.Post("/taxes/calculate", h.CalculateTax)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
