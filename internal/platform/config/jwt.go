package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// JWTConfig configures staff token verification against the identity provider's JWKS.
type JWTConfig struct {
	Issuer   string
	Audience string
	JWKSURL  string

	ClockSkew time.Duration
	// JWKSRefreshInterval re-fetches keys even when the kid is cached, to pick up rotation.
	JWKSRefreshInterval time.Duration
	// JWKSMinRefreshInterval bounds refetches triggered by unknown kids.
	JWKSMinRefreshInterval time.Duration

	HTTPTimeout time.Duration
}

func LoadJWTConfigFromEnv() (JWTConfig, error) {
	cfg := JWTConfig{
		Issuer:                 strings.TrimSpace(os.Getenv("JWT_ISSUER")),
		Audience:               envOr("JWT_AUDIENCE", "frontdesk-api"),
		JWKSURL:                strings.TrimSpace(os.Getenv("JWT_JWKS_URL")),
		ClockSkew:              30 * time.Second,
		JWKSRefreshInterval:    5 * time.Minute,
		JWKSMinRefreshInterval: 10 * time.Second,
		HTTPTimeout:            5 * time.Second,
	}
	if cfg.Issuer == "" || cfg.JWKSURL == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_JWKS_URL")
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_CLOCK_SKEW", &cfg.ClockSkew},
		{"JWT_JWKS_REFRESH_INTERVAL", &cfg.JWKSRefreshInterval},
		{"JWT_JWKS_MIN_REFRESH_INTERVAL", &cfg.JWKSMinRefreshInterval},
		{"JWT_HTTP_TIMEOUT", &cfg.HTTPTimeout},
	} {
		if err := envDuration(d.key, d.dst); err != nil {
			return JWTConfig{}, err
		}
	}
	return cfg, nil
}

// envDuration overwrites *dst when key is set.
func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fmt.Errorf("%s must be a non-negative duration (e.g. 30s), got %q", key, v)
	}
	*dst = d
	return nil
}
