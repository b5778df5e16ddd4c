package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-bus-tracking/internal/infrastructure/logger"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvStorePath, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Hub.BusRefreshInterval)
	assert.Equal(t, 60*time.Second, cfg.Hub.TripRefreshInterval)
	assert.Zero(t, cfg.Server.WriteTimeout)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvStorePath, "")

	path := writeConfig(t, `
server:
  addr: ":8081"
hub:
  busRefreshInterval: 10s
  fetchTimeout: 1500ms
store:
  inMemory: true
  path: ""
logger:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Hub.BusRefreshInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Hub.FetchTimeout)
	assert.Equal(t, 60*time.Second, cfg.Hub.TripRefreshInterval)
	assert.True(t, cfg.Store.InMemory)
	assert.Equal(t, logger.LevelDebug, cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvStorePath, "/var/lib/bus")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/var/lib/bus", cfg.Store.Path)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(EnvPort, "")
	t.Setenv(EnvStorePath, "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, ErrConfigFileUnreadable)

	_, err = Load(writeConfig(t, "server: [unclosed"))
	assert.ErrorIs(t, err, ErrConfigFileUnmarshallable)

	_, err = Load(writeConfig(t, "hub:\n  busRefreshInterval: 0s\n"))
	assert.ErrorIs(t, err, ErrConfigInvalid)

	_, err = Load(writeConfig(t, "store:\n  path: \"\"\n  inMemory: false\n"))
	assert.ErrorIs(t, err, ErrConfigInvalid)
}
