// Package config resolves the runtime configuration from the environment.
// Values load in order: optional .env file, process environment, then the
// defaults baked in here. Flags in cmd/server overlay the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "MEDIABAY_"

// Session store drivers accepted by SessionStoreDriver.
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Redis holds connection settings for the Redis-backed session store.
type Redis struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// ObjectStore holds the S3-compatible object storage settings. An empty
// Bucket selects the in-memory store, intended for local development only.
type ObjectStore struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// Config is the full runtime configuration injected into the composition
// root.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	PostgresDSN        string
	SessionStoreDriver string
	SessionTTL         time.Duration
	PurgeInterval      time.Duration

	Redis       Redis
	ObjectStore ObjectStore

	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and resolves the configuration from the
// environment. A missing .env file is not an error; a present but malformed
// one is.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv resolves the configuration from the current process environment
// without touching any .env file.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:               envString("ADDR", ":8080"),
		LogLevel:           envString("LOG_LEVEL", "info"),
		LogFormat:          envString("LOG_FORMAT", "json"),
		PostgresDSN:        firstNonEmpty(os.Getenv(envPrefix+"POSTGRES_DSN"), os.Getenv("DATABASE_URL")),
		SessionStoreDriver: strings.ToLower(envString("SESSION_STORE", "")),
		Redis: Redis{
			Addr:     envString("REDIS_ADDR", ""),
			Username: envString("REDIS_USERNAME", ""),
			Password: envString("REDIS_PASSWORD", ""),
		},
		ObjectStore: ObjectStore{
			Endpoint:      envString("S3_ENDPOINT", ""),
			Region:        envString("S3_REGION", "us-east-1"),
			Bucket:        envString("S3_BUCKET", ""),
			AccessKey:     firstNonEmpty(os.Getenv(envPrefix+"S3_ACCESS_KEY"), os.Getenv("AWS_ACCESS_KEY_ID")),
			SecretKey:     firstNonEmpty(os.Getenv(envPrefix+"S3_SECRET_KEY"), os.Getenv("AWS_SECRET_ACCESS_KEY")),
			PublicBaseURL: envString("S3_PUBLIC_BASE_URL", ""),
		},
	}

	var err error
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", 30*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PurgeInterval, err = envDuration("SESSION_PURGE_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = envInt("REDIS_DB", 0); err != nil {
		return Config{}, err
	}

	if cfg.SessionStoreDriver == "" {
		if cfg.PostgresDSN != "" {
			cfg.SessionStoreDriver = SessionStorePostgres
		} else {
			cfg.SessionStoreDriver = SessionStoreMemory
		}
	}
	switch cfg.SessionStoreDriver {
	case SessionStoreMemory, SessionStorePostgres, SessionStoreRedis:
	default:
		return Config{}, fmt.Errorf("unknown session store driver %q", cfg.SessionStoreDriver)
	}
	if cfg.SessionStoreDriver == SessionStorePostgres && cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("session store %q requires a Postgres DSN", cfg.SessionStoreDriver)
	}
	if cfg.SessionStoreDriver == SessionStoreRedis && cfg.Redis.Addr == "" {
		return Config{}, fmt.Errorf("session store %q requires %sREDIS_ADDR", cfg.SessionStoreDriver, envPrefix)
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(envPrefix + key)); value != "" {
		return value
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
	}
	return parsed, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s%s: %w", envPrefix, key, err)
	}
	return parsed, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
