package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pysugar/tekton-studio/internal/auth/google"
	"github.com/pysugar/tekton-studio/internal/auth/state"
	"github.com/pysugar/tekton-studio/internal/config"
	"github.com/pysugar/tekton-studio/internal/db"
	"github.com/pysugar/tekton-studio/internal/drive"
	"github.com/pysugar/tekton-studio/internal/generation"
	"github.com/pysugar/tekton-studio/internal/metrics"
	"github.com/pysugar/tekton-studio/internal/session"
	"github.com/pysugar/tekton-studio/internal/store"
	"github.com/pysugar/tekton-studio/internal/web"
	"github.com/pysugar/tekton-studio/internal/webhook"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// App is a fully wired server. Close releases the database and redis.
type App struct {
	Handler http.Handler
	Store   *store.Store
	Metrics metrics.Recorder

	db    *gorm.DB
	redis *redis.Client
}

type options struct {
	endpoint   oauth2.Endpoint
	apiBase    string
	httpClient *http.Client
}

type Option func(*options)

// WithGoogleEndpoints points the OAuth token exchange and the Google APIs at
// another host.
func WithGoogleEndpoints(endpoint oauth2.Endpoint, apiBase string) Option {
	return func(o *options) {
		o.endpoint = endpoint
		o.apiBase = apiBase
	}
}

// WithHTTPClient sets the client used for Google and n8n calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

func Build(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	gdb, err := db.InitDB(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	app := &App{db: gdb, Store: store.New(gdb)}

	secret := cfg.Session.Secret
	if secret == "" {
		if secret, err = db.EnsureSessionSecret(gdb); err != nil {
			app.Close()
			return nil, err
		}
	}
	sessions := session.NewManager(secret, cfg.Session.TTL, cfg.SecureCookies())

	var states state.Store = state.NewMemoryStore(state.DefaultTTL)
	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		states = state.NewRedisStore(app.redis, state.DefaultRedisPrefix, state.DefaultTTL)
		slog.Info("OAuth state stored in redis", "addr", cfg.Redis.Addr)
	}

	app.Metrics = metrics.Init(cfg.Metrics.Enabled)

	settings := google.Settings{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		AppURL:       cfg.App.URL,
		Endpoint:     o.endpoint,
		APIBase:      o.apiBase,
		HTTPClient:   o.httpClient,
	}
	if !settings.Configured() {
		slog.Warn("Google OAuth is not configured; Drive connect will fail",
			"client_id", settings.ClientID != "", "client_secret", settings.ClientSecret != "", "app_url", settings.AppURL != "")
	}

	hookOpts := []webhook.Option{webhook.WithRecorder(app.Metrics)}
	if o.httpClient != nil {
		hookOpts = append(hookOpts, webhook.WithHTTPClient(o.httpClient))
	}
	hook := webhook.NewClient(cfg.Webhook.URL, hookOpts...)
	if !hook.Configured() {
		slog.Warn("N8N_WEBHOOK_URL is not set; generation requests will be rejected")
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Handler = NewRouter(Deps{
		Store:         app.Store,
		DBDriver:      cfg.Database.Driver,
		Sessions:      sessions,
		Connector:     google.NewConnector(settings, states, app.Store, sessions, app.Metrics),
		Webhook:       hook,
		Generation:    generation.NewService(app.Store, hook, cfg.CallbackURL(), app.Metrics),
		Drive:         drive.NewChecker(o.apiBase, o.httpClient),
		Renderer:      renderer,
		Metrics:       app.Metrics,
		AdminUser:     cfg.Admin.User,
		AdminPassword: cfg.Admin.Password,
	})
	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, db.Close(a.db))
	}
	return errors.Join(errs...)
}
