package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Run("unknown mode", func(t *testing.T) {
		cfg := Defaults()
		cfg.Mode = "turbo"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown mode")
	})

	t.Run("missing admin identity", func(t *testing.T) {
		cfg := Defaults()
		cfg.Admin.Identity = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("ltv out of range", func(t *testing.T) {
		cfg := Defaults()
		cfg.Pool.SeedLTVRatio = 10_001
		require.Error(t, cfg.Validate())
	})

	t.Run("standalone skips postgres checks", func(t *testing.T) {
		cfg := Defaults()
		cfg.Mode = "standalone"
		cfg.Postgres.Host = ""
		cfg.Redis.Addr = ""
		require.NoError(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
mode = "standalone"
log_level = "debug"

[admin]
identity = "ops"
api_key = "secret"

[pool]
id = "pool-7"
seed_symbol = "SHIB"
seed_ltv_ratio = 400
seed_liquidation_threshold = 7500
seed_pair_id = "SHIB_USD"
seed_initial_price = 500

[archive]
enabled = true
interval = "30m"
retention = "720h"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "standalone", cfg.Mode)
	assert.Equal(t, "ops", cfg.Admin.Identity)
	assert.Equal(t, "pool-7", cfg.Pool.ID)
	assert.Equal(t, uint64(400), cfg.Pool.SeedLTVRatio)
	assert.Equal(t, 30*time.Minute, cfg.Archive.Interval.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LENDCORE_ADMIN_IDENTITY", "root")
	t.Setenv("LENDCORE_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("LENDCORE_POOL_SEED_LTV_RATIO", "600")
	t.Setenv("LENDCORE_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LENDCORE_ARCHIVE_INTERVAL", "15m")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "root", cfg.Admin.Identity)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, uint64(600), cfg.Pool.SeedLTVRatio)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Archive.Interval.Duration)
}
