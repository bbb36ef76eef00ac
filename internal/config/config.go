// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds every setting the server reads at startup.
type Config struct {
	Port            int           `env:"PORT,default=8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	DBDriver    string `env:"DB_DRIVER,default=sqlite"`
	DBPath      string `env:"DB_PATH,default=./data/youowe.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	AuthURL       string `env:"AUTH_URL"`
	AuthAPIKey    string `env:"AUTH_API_KEY"`
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
	AuthAudience  string `env:"AUTH_JWT_AUDIENCE,default=authenticated"`

	SessionCookieName   string `env:"SESSION_COOKIE_NAME,default=youowe_session"`
	SessionCookieSecure bool   `env:"SESSION_COOKIE_SECURE,default=false"`

	CORSOrigin     string  `env:"CORS_ORIGIN,default=*"`
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS,default=10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST,default=20"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

// Load reads .env files if present (missing files are fine in production),
// then decodes the environment into a Config and validates it.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required with the sqlite driver")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	if c.AuthJWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// IdentityProviderConfigured reports whether anonymous sign-in is available.
func (c *Config) IdentityProviderConfigured() bool {
	return c.AuthURL != "" && c.AuthAPIKey != ""
}
