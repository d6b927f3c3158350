package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_BACKEND", "DATABASE_URL", "DATA_FILE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"DASHBOARD_CACHE_TTL_SECONDS", "LOG_LEVEL", "APP_ENV", "LEDGER_TIMEZONE", "SEED_DEMO_DATA",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StorageBackend)
	assert.Equal(t, 5*time.Minute, cfg.DashboardCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, time.Local, cfg.Location)
	assert.False(t, cfg.SeedDemoData)
	assert.False(t, cfg.Development())
}

func TestLoadPicksPostgresWhenDatabaseURLIsSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ministore")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
}

func TestLoadReadsOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "File")
	t.Setenv("DATA_FILE", "/var/lib/ministore/ledger.json.zst")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("DASHBOARD_CACHE_TTL_SECONDS", "0")
	t.Setenv("LEDGER_TIMEZONE", "UTC")
	t.Setenv("SEED_DEMO_DATA", "true")
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.Equal(t, "/var/lib/ministore/ledger.json.zst", cfg.DataFile)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Zero(t, cfg.DashboardCacheTTL)
	assert.Equal(t, "UTC", cfg.Location.String())
	assert.True(t, cfg.SeedDemoData)
	assert.True(t, cfg.Development())
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEDGER_TIMEZONE", "Mars/Olympus_Mons")
	_, err := Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "mongo")
	_, err = Load()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("STORAGE_BACKEND", "postgres")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nAPP_ENV=development\n"), 0o600))
	t.Setenv("APP_ENV", "staging")
	// t.Setenv restores the original value, so registering LOG_LEVEL here
	// undoes what the .env file writes once the test ends.
	t.Setenv("LOG_LEVEL", "")
	require.NoError(t, os.Unsetenv("LOG_LEVEL"))

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "staging", cfg.AppEnv)

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
