// Package config loads immutable service configuration from the environment
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"identra.org/internal/auth"
)

// Config holds everything the service reads at startup. It is built once and
// never mutated afterwards.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store
	// (development only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTSecret signs access tokens. Minimum 32 characters.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// AccessTokenTTL is the access-token lifetime ("15m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// RefreshTokenTTL is the refresh-token lifetime ("7d").
	RefreshTokenTTL string `mapstructure:"REFRESH_TOKEN_TTL"`
	// SessionTTL is the session lifetime ("7d").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the password-hash work factor, bounded to [10,15].
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// ReplayCascade revokes an identity's whole token set when a rotated
	// refresh token is replayed.
	ReplayCascade bool `mapstructure:"REPLAY_CASCADE"`
	// RateLimitBurst / RateLimitPerSec tune the per-IP token bucket.
	RateLimitBurst  int `mapstructure:"RATE_LIMIT_BURST"`
	RateLimitPerSec int `mapstructure:"RATE_LIMIT_PER_SEC"`
}

// Load reads .env (if present), then builds and validates Config from the
// environment. Env vars override .env. TTL strings are validated here so a
// typo fails at startup instead of silently falling back on the request path.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // missing .env is fine (CI, production)

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "7d")
	v.SetDefault("SESSION_TTL", "7d")
	v.SetDefault("BCRYPT_COST", auth.DefaultWorkFactor)
	v.SetDefault("REPLAY_CASCADE", false)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_PER_SEC", 10)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("config: JWT_SECRET must be at least 32 characters")
	}
	if cfg.BcryptCost < auth.MinWorkFactor || cfg.BcryptCost > auth.MaxWorkFactor {
		return nil, fmt.Errorf("config: BCRYPT_COST must be between %d and %d",
			auth.MinWorkFactor, auth.MaxWorkFactor)
	}
	for _, ttl := range []struct{ name, value string }{
		{"ACCESS_TOKEN_TTL", cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL},
		{"SESSION_TTL", cfg.SessionTTL},
	} {
		if _, err := auth.ParseTTLStrict(ttl.value); err != nil {
			return nil, fmt.Errorf("config: %s: %w", ttl.name, err)
		}
	}

	return &cfg, nil
}

// AccessTTL returns the parsed access-token lifetime.
func (c *Config) AccessTTL() time.Duration { return auth.ParseTTL(c.AccessTokenTTL) }

// RefreshTTL returns the parsed refresh-token lifetime.
func (c *Config) RefreshTTL() time.Duration { return auth.ParseTTL(c.RefreshTokenTTL) }

// SessionLifetime returns the parsed session lifetime.
func (c *Config) SessionLifetime() time.Duration { return auth.ParseTTL(c.SessionTTL) }
