/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. RateLimit:  Per-client token bucket, upload route only

ROUTE GROUPS:
  /api/timesheets       Spreadsheet uploads
  /api/reports          Mod-period reports
  /api/employees/*      Employee management + leave runs
  /api/assignments      Labor code assignments
  /api/forecasts        Labor code forecasts
  /api/teams/*          Team leave codes + fiscal windows
  /api/scenarios/*      Demo scenarios

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

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
	"golang.org/x/time/rate"
)

// RouterConfig holds the knobs the host exposes through configuration.
type RouterConfig struct {
	AllowedOrigins []string
	// UploadRate is uploads per second per client; UploadBurst the bucket size.
	UploadRate  float64
	UploadBurst int
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		UploadRate:     1,
		UploadBurst:    5,
	}
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	uploads := NewClientRateLimiter(rate.Limit(cfg.UploadRate), cfg.UploadBurst)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.With(RateLimit(uploads)).Post("/timesheets", h.UploadTimesheets)
		r.Get("/reports", h.GetReport)

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
			r.Patch("/{id}", h.UpdateEmployee)
			r.Get("/{id}/leave", h.GetEmployeeLeave)
		})

		r.Post("/assignments", h.CreateAssignment)
		r.Post("/forecasts", h.SaveForecast)

		// Team routes
		r.Route("/teams", func(r chi.Router) {
			r.Get("/{id}/config", h.GetTeamConfig)
			r.Put("/{id}/config", h.PutTeamConfig)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Timesheet Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Timesheet Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li>POST /api/timesheets?team_id=&amp;company_id= - Upload spreadsheets</li>
<li>GET /api/reports?team_id=&amp;site_id=&amp;company_id=&amp;as_of= - Mod-period report</li>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/scenarios">/api/scenarios</a> - List scenarios</li>
</ul>
</body>
</html>`))
	})

	return r
}
