package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultStudioTimezone    = "America/Sao_Paulo"
	DefaultAssistedGraceDays = 10
)

// StudioConfig holds the front desk business parameters.
type StudioConfig struct {
	Location *time.Location

	SelfServiceGraceDays int
	AssistedGraceDays    int
}

func LoadStudioConfigFromEnv() (StudioConfig, error) {
	tz := envOr("STUDIO_TIMEZONE", DefaultStudioTimezone)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return StudioConfig{}, fmt.Errorf("STUDIO_TIMEZONE %q: %w", tz, err)
	}
	cfg := StudioConfig{
		Location:             loc,
		SelfServiceGraceDays: 0,
		AssistedGraceDays:    DefaultAssistedGraceDays,
	}
	if cfg.SelfServiceGraceDays, err = envDays("SELF_SERVICE_GRACE_DAYS", cfg.SelfServiceGraceDays); err != nil {
		return StudioConfig{}, err
	}
	if cfg.AssistedGraceDays, err = envDays("ASSISTED_GRACE_DAYS", cfg.AssistedGraceDays); err != nil {
		return StudioConfig{}, err
	}
	return cfg, nil
}

func envDays(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}
