package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	viper.Reset()

	cfg, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "0 2 * * *", cfg.Batch.StatusRefreshSchedule)
	assert.Equal(t, 1*time.Hour, cfg.Batch.StatusRefreshTimeout)
}

func TestLoadConfigFromFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	content := []byte(`
server:
  port: 9090
  rateLimit:
    enabled: false
logger:
  level: debug
batch:
  statusRefreshSchedule: "30 1 * * *"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o600))

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "30 1 * * *", cfg.Batch.StatusRefreshSchedule)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadConfigBadFile(t *testing.T) {
	viper.Reset()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("server: [not a map"), 0o600))

	_, err := LoadConfig(dir)

	assert.Error(t, err)
}
