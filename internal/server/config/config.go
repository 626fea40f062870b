// Package config handles configuration for the authentication server,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/server/auth"
)

// Config holds runtime settings for the authentication server.
//
// Fields:
//   - DatabaseDriver: "postgres", "sqlite" or "memory".
//   - DatabaseDSN: DSN for the selected driver (pgx URL or SQLite file name).
//   - SecretKey: HMAC secret for signing access tokens (HS256). Do not use the default in prod.
//   - Issuer / Audience: the iss and aud values written into and required from access tokens.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - MetricsAddr: listen address of the Prometheus endpoint; empty disables it.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	DatabaseDriver               string
	DatabaseDSN                  string
	SecretKey                    string
	Issuer                       string
	Audience                     string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	MetricsAddr                  string
	LogLevel                     string
}

var ErrInvalidConfig = errors.New("invalid config")

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key is insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = "skillauth.db"
	c.SecretKey = "secretKey"
	c.Issuer = "MyAuthServer"
	c.Audience = "MyAuthClient"
	c.AccessTokenValidityDuration = 10 * time.Minute
	c.RefreshTokenValidityDuration = 3 * 24 * time.Hour
	c.MetricsAddr = ""
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// Validate reports the first setting that would make the server unusable.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalidConfig, c.DatabaseDriver)
	}
	if c.DatabaseDriver != "memory" && c.DatabaseDSN == "" {
		return fmt.Errorf("%w: database DSN is required for %s", ErrInvalidConfig, c.DatabaseDriver)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is empty", ErrInvalidConfig)
	}
	if c.Issuer == "" || c.Audience == "" {
		return fmt.Errorf("%w: issuer and audience are required", ErrInvalidConfig)
	}
	if c.AccessTokenValidityDuration <= 0 {
		return fmt.Errorf("%w: access token lifetime must be positive", ErrInvalidConfig)
	}
	if c.RefreshTokenValidityDuration <= 0 {
		return fmt.Errorf("%w: refresh token lifetime must be positive", ErrInvalidConfig)
	}
	return nil
}

// TokenConfig returns the access token signing settings.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		SecretKey: []byte(c.SecretKey),
		Issuer:    c.Issuer,
		Audience:  c.Audience,
		Lifetime:  c.AccessTokenValidityDuration,
	}
}
