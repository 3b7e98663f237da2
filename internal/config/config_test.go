package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielandresolateseguel/server1/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"STOREFRONT_CONFIG", "PORT", "API_BASE_URL", "JWT_SECRET", "STORAGE_PATH", "ENVIRONMENT", "ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "http://127.0.0.1:8000", cfg.APIBaseURL)
	assert.Equal(t, config.MemoryStorage, cfg.StoragePath)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 5*time.Second, cfg.Status.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.Status.ToggleInterval)
	assert.Equal(t, 30*time.Second, cfg.Status.BackgroundInterval)
	assert.Equal(t, time.Second, cfg.Status.BackgroundDelay)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Sessions.DisconnectGrace)
	assert.Equal(t, time.Minute, cfg.Sessions.SweepInterval)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
environment: development
api_base_url: https://api.example.com
storage_path: /var/lib/storefront/data.db
allowed_origins:
  - https://menu.example.com
status:
  poll_interval: 10s
  background_interval: 1m
`), 0o600))

	t.Setenv("STOREFRONT_CONFIG", path)
	t.Setenv("PORT", "9100")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Port, "env wins over file")
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "/var/lib/storefront/data.db", cfg.StoragePath)
	assert.Equal(t, []string{"https://menu.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.Status.PollInterval)
	assert.Equal(t, time.Minute, cfg.Status.BackgroundInterval)
	assert.Equal(t, 5*time.Second, cfg.Status.ToggleInterval, "unset keys keep defaults")
}

func TestLoadAllowedOriginsFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("status: [1, 2"), 0o600))
	_, err = config.Load(bad)
	assert.Error(t, err)

	zero := filepath.Join(t.TempDir(), "zero.yaml")
	require.NoError(t, os.WriteFile(zero, []byte("status:\n  poll_interval: 0s\n"), 0o600))
	_, err = config.Load(zero)
	assert.ErrorContains(t, err, "status.poll_interval")

	idle := filepath.Join(t.TempDir(), "idle.yaml")
	require.NoError(t, os.WriteFile(idle, []byte("sessions:\n  idle_timeout: -1m\n"), 0o600))
	_, err = config.Load(idle)
	assert.ErrorContains(t, err, "sessions.idle_timeout")
}

func TestLocation(t *testing.T) {
	cfg := config.Default()
	cfg.TimeZone = "Not/AZone"
	_, offset := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).In(cfg.Location()).Zone()
	assert.Equal(t, -3*60*60, offset)
}
