package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the effective runtime configuration. Every value can come from
// config.yaml, a .env file or the process environment (env wins).
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	App      AppConfig      `mapstructure:"app" yaml:"app"`
	Google   GoogleConfig   `mapstructure:"google" yaml:"google"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Webhook  WebhookConfig  `mapstructure:"webhook" yaml:"webhook"`
	Session  SessionConfig  `mapstructure:"session" yaml:"session"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
	Admin    AdminConfig    `mapstructure:"admin" yaml:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

type AppConfig struct {
	// URL is the public base URL the browser and n8n use to reach this service.
	URL string `mapstructure:"url" yaml:"url"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	URL    string `mapstructure:"url" yaml:"url"`
}

type WebhookConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret" yaml:"secret"`
	TTL    time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console or json
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AdminConfig guards the diagnostics endpoints and /metrics with basic auth.
// An empty password leaves them open.
type AdminConfig struct {
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
}

// envBindings maps config keys to the environment variables the deployment
// has always used. The first variable found wins.
var envBindings = map[string][]string{
	"server.host":          {"HOST"},
	"server.port":          {"PORT"},
	"app.url":              {"APP_URL", "NEXT_PUBLIC_APP_URL"},
	"google.client_id":     {"GOOGLE_CLIENT_ID"},
	"google.client_secret": {"GOOGLE_CLIENT_SECRET"},
	"database.driver":      {"DATABASE_DRIVER"},
	"database.url":         {"DATABASE_URL"},
	"webhook.url":          {"N8N_WEBHOOK_URL"},
	"session.secret":       {"SESSION_SECRET"},
	"session.ttl":          {"SESSION_TTL"},
	"redis.addr":           {"REDIS_ADDR"},
	"redis.password":       {"REDIS_PASSWORD"},
	"redis.db":             {"REDIS_DB"},
	"log.level":            {"LOG_LEVEL"},
	"log.format":           {"LOG_FORMAT"},
	"metrics.enabled":      {"METRICS_ENABLED"},
	"admin.user":           {"ADMIN_USER"},
	"admin.password":       {"ADMIN_PASSWORD"},
}

// Load reads configuration. When path is empty, config.yaml is looked up in
// the working directory and ./configs; a missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("app.url", "")
	v.SetDefault("google.client_id", "")
	v.SetDefault("google.client_secret", "")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.url", "tekton.db")
	v.SetDefault("webhook.url", "")
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "720h")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("admin.user", "admin")
	v.SetDefault("admin.password", "")
}

func (c *Config) normalize() {
	c.App.URL = strings.TrimRight(strings.TrimSpace(c.App.URL), "/")
	c.Google.ClientID = strings.TrimSpace(c.Google.ClientID)
	c.Google.ClientSecret = strings.TrimSpace(c.Google.ClientSecret)
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Session.TTL <= 0 {
		c.Session.TTL = 30 * 24 * time.Hour
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GoogleConfigured reports whether the OAuth flow can be started.
func (c *Config) GoogleConfigured() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != "" && c.App.URL != ""
}

// RedirectURL is the OAuth callback registered with Google.
func (c *Config) RedirectURL() string {
	return c.App.URL + "/api/auth/google-drive/callback"
}

// CallbackURL is where n8n posts job results.
func (c *Config) CallbackURL() string {
	return c.App.URL + "/api/callback"
}

// SecureCookies is true when the public URL is served over TLS.
func (c *Config) SecureCookies() bool {
	return strings.HasPrefix(c.App.URL, "https://")
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	c.Google.ClientSecret = mask(c.Google.ClientSecret)
	c.Session.Secret = mask(c.Session.Secret)
	c.Redis.Password = mask(c.Redis.Password)
	c.Admin.Password = mask(c.Admin.Password)
	c.Database.URL = maskDSN(c.Database.URL)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

// maskDSN hides the password part of a URL-style DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon != -1 {
		creds = creds[:colon] + ":********"
	}
	return dsn[:scheme+3] + creds + dsn[at:]
}
