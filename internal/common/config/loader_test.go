// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: notify-engine
  environment: test
database:
  postgres:
    host: localhost
    port: 5432
    database: notify
    user: notify
  redis:
    address: localhost:6379
dispatch:
  send_timeout: 2500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "notify-engine", cfg.App.Name)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 2500, cfg.Dispatch.SendTimeout)

	// Unset fields pick up defaults.
	assert.Equal(t, ":9090", cfg.App.MetricsAddr)
	assert.Equal(t, 16, cfg.Dispatch.MaxConcurrentSends)
	assert.Equal(t, 5000, cfg.Dispatch.PollInterval)
	assert.Equal(t, 60, cfg.Database.Redis.CacheTTL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFileRejectsIncompleteConfig(t *testing.T) {
	path := writeConfigFile(t, `
database:
  redis:
    address: localhost:6379
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres.host is required")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2500*time.Millisecond, GetDuration(2500))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
