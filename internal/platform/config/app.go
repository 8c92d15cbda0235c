package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type StorageBackend string

const (
	StorageMemory   StorageBackend = "memory"
	StoragePostgres StorageBackend = "postgres"
)

type AuthMode string

const (
	AuthModeJWT AuthMode = "jwt"
	// AuthModeDev trusts an X-Debug-Subject header. Never use it in production.
	AuthModeDev AuthMode = "dev"
)

// AppConfig is the process-level configuration of cmd/api.
type AppConfig struct {
	Port           string
	StorageBackend StorageBackend
	DatabaseURL    string

	// RedisURL enables the Redis idempotency store when set.
	RedisURL string
	// AMQPURL enables RabbitMQ event publishing when set.
	AMQPURL      string
	AMQPExchange string

	AuthMode   AuthMode
	DevSubject string

	LogLevel  string
	LogFormat string
}

// LoadDotEnv loads variables from path (default ".env") without overriding the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadAppConfigFromEnv() (AppConfig, error) {
	cfg := AppConfig{
		Port:           envOr("PORT", "8080"),
		StorageBackend: StorageBackend(strings.ToLower(envOr("STORAGE_BACKEND", string(StorageMemory)))),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   envOr("AMQP_EXCHANGE", "frontdesk.events"),
		AuthMode:       AuthMode(strings.ToLower(envOr("AUTH_MODE", string(AuthModeJWT)))),
		DevSubject:     os.Getenv("DEV_SUBJECT"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogFormat:      envOr("LOG_FORMAT", "json"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return AppConfig{}, fmt.Errorf("PORT must be a number: %w", err)
	}
	switch cfg.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return AppConfig{}, fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return AppConfig{}, fmt.Errorf("STORAGE_BACKEND must be memory or postgres, got %q", cfg.StorageBackend)
	}
	switch cfg.AuthMode {
	case AuthModeJWT, AuthModeDev:
	default:
		return AppConfig{}, fmt.Errorf("AUTH_MODE must be jwt or dev, got %q", cfg.AuthMode)
	}
	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
