// Package server assembles the HTTP surface: it opens the stores, builds the
// services and mounts every handler on a chi router.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/pysugar/tekton-studio/internal/auth/google"
	"github.com/pysugar/tekton-studio/internal/drive"
	"github.com/pysugar/tekton-studio/internal/generation"
	"github.com/pysugar/tekton-studio/internal/handlers"
	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/session"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/web"
	"github.com/pysugar/tekton-studio/internal/webhook"
)

// Deps is everything the router mounts.
type Deps struct {
	Store      *store.Store
	DBDriver   string
	Sessions   *session.Manager
	Connector  *google.Connector
	Webhook    *webhook.Client
	Generation *generation.Service
	Drive      *drive.Checker
	Renderer   *web.Renderer
	Metrics    metrics.Recorder

	AdminUser     string
	AdminPassword string
}

func NewRouter(d Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoopMetrics()
	}
	admin := AdminAuth(d.AdminUser, d.AdminPassword)

	r := chi.NewRouter()
	r.Use(logging.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.HTTPMiddleware(d.Metrics))

	r.Get("/healthz", handlers.HealthHandler())
	if m, ok := d.Metrics.(*metrics.Metrics); ok {
		r.With(admin).Handle("/metrics", m.Handler())
	}

	// Called by n8n, no browser session.
	r.Post("/api/callback", handlers.CallbackHandler(d.Store, d.Metrics))
	r.Post("/api/webhook-proxy", handlers.WebhookProxyHandler(d.Webhook))

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.Middleware)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
		})
		r.Get("/dashboard", handlers.DashboardHandler(d.Store, d.Renderer, handlers.PageOptions{
			OAuthConfigured:   d.Connector.Settings().Configured(),
			WebhookConfigured: d.Webhook.Configured(),
		}))
		r.Post("/dashboard/generate", handlers.GenerateFormHandler(d.Generation))
		r.Get("/history", handlers.HistoryHandler(d.Store, d.Renderer))
		r.Post("/logout", handlers.LogoutHandler(d.Sessions))

		r.Get("/api/auth/google-drive", d.Connector.HandleLogin)
		r.Get(google.CallbackPath, d.Connector.HandleCallback)

		r.Post("/api/generate", handlers.GenerateAPIHandler(d.Generation))
		r.Get("/api/projects", handlers.ProjectsAPIHandler(d.Store))
		r.Get("/api/history", handlers.HistoryAPIHandler(d.Store))
		r.Get("/api/drive/status", handlers.DriveStatusHandler(d.Store, d.Drive))
	})

	r.Route("/api/test", func(r chi.Router) {
		r.Use(admin)
		r.Get("/oauth", handlers.OAuthTestHandler(d.Connector.Settings()))
		r.Get("/database", handlers.DatabaseTestHandler(d.Store, d.DBDriver, d.Connector.Settings()))
	})

	return r
}
