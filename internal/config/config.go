package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

type Config struct {
	StorageBackend    string
	DatabaseURL       string
	DataFile          string
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	DashboardCacheTTL time.Duration
	LogLevel          string
	AppEnv            string
	Location          *time.Location
	SeedDemoData      bool
}

// LoadDotEnv reads .env files into the process environment. Variables that
// are already set win; a missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func Load() (Config, error) {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("DASHBOARD_CACHE_TTL_SECONDS", "300"))
	if err != nil || ttl < 0 {
		ttl = 300
	}
	seed, _ := strconv.ParseBool(getEnv("SEED_DEMO_DATA", "false"))

	cfg := Config{
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DataFile:          getEnv("DATA_FILE", "ministore.json"),
		RedisAddr:         strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		DashboardCacheTTL: time.Duration(ttl) * time.Second,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		AppEnv:            getEnv("APP_ENV", "production"),
		SeedDemoData:      seed,
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND")))
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = BackendMemory
		if cfg.DatabaseURL != "" {
			cfg.StorageBackend = BackendPostgres
		}
	}

	cfg.Location = time.Local
	if tz := strings.TrimSpace(os.Getenv("LEDGER_TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("LEDGER_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	return cfg, cfg.Validate()
}

// Validate rejects combinations that cannot start a backend.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendMemory:
	case BackendFile:
		if c.DataFile == "" {
			return fmt.Errorf("DATA_FILE must be set for the file backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND %q is not one of memory, file, postgres", c.StorageBackend)
	}
	return nil
}

func (c Config) Development() bool {
	return c.AppEnv == "development"
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
