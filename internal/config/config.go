// Package config loads service configuration from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	AppEnv  string `mapstructure:"APP_ENV"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `mapstructure:"GOOGLE_REDIRECT_URL"`

	KeycloakIssuer        string `mapstructure:"KEYCLOAK_ISSUER"`
	KeycloakClientID      string `mapstructure:"KEYCLOAK_CLIENT_ID"`
	KeycloakClientSecret  string `mapstructure:"KEYCLOAK_CLIENT_SECRET"`
	KeycloakRedirectURL   string `mapstructure:"KEYCLOAK_REDIRECT_URL"`
	KeycloakPublicBaseURL string `mapstructure:"KEYCLOAK_PUBLIC_BASE_URL"`
	KeycloakRealm         string `mapstructure:"KEYCLOAK_REALM"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	DatabaseDSN string `mapstructure:"DATABASE_DSN"`

	// SessionBackend selects the session store: "redis" or "memory".
	SessionBackend     string        `mapstructure:"SESSION_BACKEND"`
	SessionIdleTTL     time.Duration `mapstructure:"SESSION_IDLE_TTL"`
	SessionAbsoluteTTL time.Duration `mapstructure:"SESSION_ABSOLUTE_TTL"`
	CookieSecure       bool          `mapstructure:"COOKIE_SECURE"`
}

// GoogleEnabled reports whether enough settings exist to register the Google provider.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// KeycloakEnabled reports whether enough settings exist to register the Keycloak provider.
func (c Config) KeycloakEnabled() bool {
	return c.KeycloakIssuer != "" && c.KeycloakClientID != "" &&
		c.KeycloakRedirectURL != "" && c.KeycloakPublicBaseURL != ""
}

// Load reads .env (if present), then the environment. Env vars override .env.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_URL", "")
	v.SetDefault("KEYCLOAK_ISSUER", "")
	v.SetDefault("KEYCLOAK_CLIENT_ID", "")
	v.SetDefault("KEYCLOAK_CLIENT_SECRET", "")
	v.SetDefault("KEYCLOAK_REDIRECT_URL", "")
	v.SetDefault("KEYCLOAK_PUBLIC_BASE_URL", "")
	v.SetDefault("KEYCLOAK_REALM", "auth-service")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("SESSION_BACKEND", SessionBackendRedis)
	v.SetDefault("SESSION_IDLE_TTL", "30m")
	v.SetDefault("SESSION_ABSOLUTE_TTL", "24h")
	v.SetDefault("COOKIE_SECURE", true)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the server relies on at startup.
func (c Config) Validate() error {
	if c.AppPort == "" {
		return errors.New("config: APP_PORT is required")
	}
	if c.DatabaseDSN == "" {
		return errors.New("config: DATABASE_DSN is required")
	}
	switch c.SessionBackend {
	case SessionBackendRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis session backend")
		}
	case SessionBackendMemory:
		if c.AppEnv == "production" {
			return errors.New("config: memory session backend is not allowed in production")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}
	if c.SessionIdleTTL <= 0 || c.SessionAbsoluteTTL <= 0 {
		return errors.New("config: session TTLs must be positive")
	}
	if c.SessionIdleTTL > c.SessionAbsoluteTTL {
		return errors.New("config: SESSION_IDLE_TTL must not exceed SESSION_ABSOLUTE_TTL")
	}
	return nil
}
