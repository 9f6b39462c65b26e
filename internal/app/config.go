package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/vedablog/internal/clients/redis"
	"github.com/yungbote/vedablog/internal/data/db"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/platform/envutil"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

const developmentSessionSecret = "vedablog-development-session-secret"

type Config struct {
	Env     string `yaml:"env"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`

	Log      LogConfig                   `yaml:"log"`
	DB       db.Config                   `yaml:"db"`
	Redis    redis.Config                `yaml:"redis"`
	Keycloak KeycloakConfig              `yaml:"keycloak"`
	Session  SessionConfig               `yaml:"session"`
	HTTP     HTTPConfig                  `yaml:"http"`
	Metrics  observability.MetricsConfig `yaml:"metrics"`
	Otel     observability.OtelConfig    `yaml:"otel"`
}

type LogConfig struct {
	Mode       string `yaml:"mode"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type KeycloakConfig struct {
	// URL is used server-to-server; PublicURL is what browsers are sent to.
	URL             string        `yaml:"url"`
	PublicURL       string        `yaml:"public_url"`
	Realm           string        `yaml:"realm"`
	ClientID        string        `yaml:"client_id"`
	ClientSecret    string        `yaml:"client_secret"`
	Scopes          []string      `yaml:"scopes"`
	Timeout         time.Duration `yaml:"timeout"`
	VerifySignature bool          `yaml:"verify_signature"`
	ModeratorRole   string        `yaml:"moderator_role"`
}

type SessionConfig struct {
	Secret     string        `yaml:"secret"`
	TTL        time.Duration `yaml:"ttl"`
	CookieName string        `yaml:"cookie_name"`
}

type HTTPConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	RateLimitAPI     string   `yaml:"rate_limit_api"`
	RateLimitStrict  string   `yaml:"rate_limit_strict"`
	LegacyContentDir string   `yaml:"legacy_content_dir"`
	StaticDir        string   `yaml:"static_dir"`
}

func defaultConfig() Config {
	return Config{
		Env:     "development",
		Port:    3000,
		BaseURL: "http://localhost:3000",
		Log:     LogConfig{Mode: "development", Output: "stderr"},
		DB: db.Config{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			Name:           "vedablog",
			User:           "postgres",
			SSLMode:        "disable",
			MaxConns:       20,
			IdleTimeout:    30 * time.Second,
			ConnectTimeout: 2 * time.Second,
			SlowThreshold:  200 * time.Millisecond,
			Migrate:        true,
		},
		Keycloak: KeycloakConfig{
			URL:             "http://keycloak:8080",
			Realm:           "vedablog",
			ClientID:        "vedablog-client",
			Scopes:          []string{"openid", "profile", "email"},
			Timeout:         10 * time.Second,
			VerifySignature: true,
			ModeratorRole:   "moderator",
		},
		Session: SessionConfig{TTL: 24 * time.Hour},
		HTTP: HTTPConfig{
			AllowedOrigins:  []string{"http://localhost:3000"},
			RateLimitAPI:    "100-15m",
			RateLimitStrict: "20-15m",
			StaticDir:       "public",
		},
		Metrics: observability.MetricsConfig{Addr: ":9090", ScrapeInterval: 15 * time.Second},
		Otel:    observability.OtelConfig{ServiceName: "vedablog", SampleRatio: 0.1},
	}
}

// LoadConfig layers defaults, the optional CONFIG_FILE and the environment,
// in that order.
func LoadConfig() (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Env = envutil.String("APP_ENV", c.Env)
	c.Port = envutil.Int("PORT", c.Port)
	c.BaseURL = envutil.String("APP_BASE_URL", c.BaseURL)

	c.Log.Mode = envutil.String("LOG_MODE", c.Log.Mode)
	c.Log.Output = envutil.String("LOG_OUTPUT", c.Log.Output)
	c.Log.FilePath = envutil.String("LOG_FILE_PATH", c.Log.FilePath)
	c.Log.MaxSizeMB = envutil.Int("LOG_MAX_SIZE_MB", c.Log.MaxSizeMB)
	c.Log.MaxBackups = envutil.Int("LOG_MAX_BACKUPS", c.Log.MaxBackups)
	c.Log.MaxAgeDays = envutil.Int("LOG_MAX_AGE_DAYS", c.Log.MaxAgeDays)

	c.DB.Driver = envutil.String("DB_DRIVER", c.DB.Driver)
	c.DB.Path = envutil.String("DB_PATH", c.DB.Path)
	c.DB.Host = envutil.String("DB_HOST", c.DB.Host)
	c.DB.Port = envutil.Int("DB_PORT", c.DB.Port)
	c.DB.Name = envutil.String("DB_NAME", c.DB.Name)
	c.DB.User = envutil.String("DB_USER", c.DB.User)
	c.DB.Password = envutil.String("DB_PASSWORD", c.DB.Password)
	c.DB.SSLMode = envutil.String("DB_SSLMODE", c.DB.SSLMode)
	c.DB.MaxConns = envutil.Int("DB_MAX_CONNS", c.DB.MaxConns)
	c.DB.IdleTimeout = envutil.Duration("DB_IDLE_TIMEOUT", c.DB.IdleTimeout)
	c.DB.ConnectTimeout = envutil.Duration("DB_CONNECT_TIMEOUT", c.DB.ConnectTimeout)
	c.DB.SlowThreshold = envutil.Duration("DB_SLOW_THRESHOLD", c.DB.SlowThreshold)
	c.DB.Migrate = envutil.Bool("DB_MIGRATE", c.DB.Migrate)

	c.Redis.Addr = envutil.String("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = envutil.String("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = envutil.Int("REDIS_DB", c.Redis.DB)

	c.Keycloak.URL = envutil.String("KEYCLOAK_URL", c.Keycloak.URL)
	c.Keycloak.PublicURL = envutil.String("KEYCLOAK_PUBLIC_URL", c.Keycloak.PublicURL)
	c.Keycloak.Realm = envutil.String("KEYCLOAK_REALM", c.Keycloak.Realm)
	c.Keycloak.ClientID = envutil.String("KEYCLOAK_CLIENT_ID", c.Keycloak.ClientID)
	c.Keycloak.ClientSecret = envutil.String("KEYCLOAK_CLIENT_SECRET", c.Keycloak.ClientSecret)
	c.Keycloak.Scopes = envutil.List("IDP_SCOPES", c.Keycloak.Scopes)
	c.Keycloak.Timeout = envutil.Duration("IDP_TIMEOUT", c.Keycloak.Timeout)
	c.Keycloak.VerifySignature = envutil.Bool("IDP_VERIFY_SIGNATURE", c.Keycloak.VerifySignature)
	c.Keycloak.ModeratorRole = envutil.String("MODERATOR_ROLE", c.Keycloak.ModeratorRole)

	c.Session.Secret = envutil.String("SESSION_SECRET", c.Session.Secret)
	c.Session.TTL = envutil.Duration("SESSION_TTL", c.Session.TTL)
	c.Session.CookieName = envutil.String("SESSION_COOKIE_NAME", c.Session.CookieName)

	c.HTTP.AllowedOrigins = envutil.List("ALLOWED_ORIGINS", c.HTTP.AllowedOrigins)
	c.HTTP.RateLimitAPI = envutil.String("RATE_LIMIT_API", c.HTTP.RateLimitAPI)
	c.HTTP.RateLimitStrict = envutil.String("RATE_LIMIT_STRICT", c.HTTP.RateLimitStrict)
	c.HTTP.LegacyContentDir = envutil.String("LEGACY_CONTENT_DIR", c.HTTP.LegacyContentDir)
	c.HTTP.StaticDir = envutil.String("STATIC_DIR", c.HTTP.StaticDir)

	c.Metrics.Enabled = envutil.Bool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Addr = envutil.String("METRICS_ADDR", c.Metrics.Addr)

	c.Otel.Enabled = envutil.Bool("OTEL_ENABLED", c.Otel.Enabled)
	c.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", c.Otel.Endpoint)
	c.Otel.SampleRatio = envutil.Float("OTEL_SAMPLER_RATIO", c.Otel.SampleRatio)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if strings.TrimSpace(c.Keycloak.PublicURL) == "" {
		c.Keycloak.PublicURL = c.Keycloak.URL
	}
	if c.Otel.Environment == "" {
		c.Otel.Environment = c.Env
	}
}

func (c Config) Production() bool { return c.Env == "production" }

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func (c Config) RedirectURL() string { return c.BaseURL + "/auth/callback" }

func (c Config) PostLogoutURL() string { return c.BaseURL + "/?logout=success" }

func (c Config) loggerOptions() logger.Options {
	return logger.Options{
		Mode:       c.Log.Mode,
		Output:     c.Log.Output,
		FilePath:   c.Log.FilePath,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}
}

// resolveSessionSecret refuses to start a production process without
// SESSION_SECRET; development falls back to a fixed value.
func (c *Config) resolveSessionSecret(log *logger.Logger) error {
	if strings.TrimSpace(c.Session.Secret) != "" {
		return nil
	}
	if c.Production() {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	log.Warn("SESSION_SECRET not set, using the development fallback")
	c.Session.Secret = developmentSessionSecret
	return nil
}
