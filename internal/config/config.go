// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN for users, roles, sessions, and the audit log.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the host:port of the Redis instance backing the token denylist.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// AccessSecret signs access tokens. Must be set and must differ from RefreshSecret
	// so a leaked access secret cannot forge refresh tokens (and vice versa).
	AccessSecret string `mapstructure:"TOKEN_ACCESS_SECRET"`
	// RefreshSecret signs refresh tokens.
	RefreshSecret string `mapstructure:"TOKEN_REFRESH_SECRET"`
	// AccessTTLRaw is the access token lifetime (e.g. "10m").
	AccessTTLRaw string `mapstructure:"TOKEN_ACCESS_TTL"`
	// RefreshTTLRaw is the refresh token lifetime (e.g. "60m"). Must exceed the access TTL.
	RefreshTTLRaw string `mapstructure:"TOKEN_REFRESH_TTL"`
	// RefreshCookieName is the cookie carrying the refresh token on the HTTP surface.
	RefreshCookieName string `mapstructure:"REFRESH_COOKIE_NAME"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// OTLPEndpoint enables OTLP export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export regardless of endpoint scheme.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("TOKEN_ACCESS_SECRET", "")
	v.SetDefault("TOKEN_REFRESH_SECRET", "")
	v.SetDefault("TOKEN_ACCESS_TTL", "10m")
	v.SetDefault("TOKEN_REFRESH_TTL", "60m")
	v.SetDefault("REFRESH_COOKIE_NAME", "refresh_token")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("config: TOKEN_ACCESS_SECRET and TOKEN_REFRESH_SECRET must be set")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("config: TOKEN_ACCESS_SECRET and TOKEN_REFRESH_SECRET must differ")
	}
	if cfg.RefreshCookieName == "" {
		return nil, errors.New("config: REFRESH_COOKIE_NAME must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	accessTTL, err := time.ParseDuration(cfg.AccessTTLRaw)
	if err != nil || accessTTL <= 0 {
		return nil, fmt.Errorf("config: TOKEN_ACCESS_TTL %q is not a positive duration", cfg.AccessTTLRaw)
	}
	refreshTTL, err := time.ParseDuration(cfg.RefreshTTLRaw)
	if err != nil || refreshTTL <= 0 {
		return nil, fmt.Errorf("config: TOKEN_REFRESH_TTL %q is not a positive duration", cfg.RefreshTTLRaw)
	}
	if refreshTTL <= accessTTL {
		return nil, errors.New("config: TOKEN_REFRESH_TTL must exceed TOKEN_ACCESS_TTL")
	}

	return &cfg, nil
}

// AccessTTL parses TOKEN_ACCESS_TTL as a time.Duration. Load rejects malformed
// values; the 10m default covers zero-value Configs.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTTLRaw)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// RefreshTTL parses TOKEN_REFRESH_TTL as a time.Duration. Load rejects malformed
// values; the 60m default covers zero-value Configs.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.RefreshTTLRaw)
	if err != nil || d <= 0 {
		return 60 * time.Minute
	}
	return d
}
