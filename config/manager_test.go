package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagekit/tripcache/types"
)

const testConfigYAML = `
name: "tripcache-test"
version: "0.1.0"

logger:
  level: "info"

cache:
  enabled: true
  backend: "redis"
  namespace: "testns"
  sample_rate: 0.5
  stats_window: 48h
  ttl_overrides:
    daily: 2h
  config:
    host: "redis.internal"
    port: 6380

metrics:
  enabled: true
  type: "prometheus"
`

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigurationManager_Load(t *testing.T) {
	cm, err := NewConfigurationManager(context.Background(), writeConfigFile(t, testConfigYAML))
	require.NoError(t, err)

	config := cm.GetConfig()
	require.NotNil(t, config)
	assert.Equal(t, "tripcache-test", config.Name)
	assert.Equal(t, "redis", config.Cache.Backend)
	assert.Equal(t, "testns", config.Cache.Namespace)
	assert.InDelta(t, 0.5, config.Cache.SampleRate, 0.0001)
	assert.Equal(t, 48*time.Hour, config.Cache.StatsWindow.Std())
	assert.Equal(t, 2*time.Hour, config.Cache.TTLOverrides["daily"].Std())
}

func TestConfigurationManager_DefaultsApply(t *testing.T) {
	cm, err := NewConfigurationManager(context.Background(), writeConfigFile(t, `
name: "minimal"
version: "0.0.1"
`))
	require.NoError(t, err)

	config := cm.GetConfig()
	assert.Equal(t, "memory", config.Cache.Backend)
	assert.Equal(t, "tripcache", config.Cache.Namespace)
	assert.InDelta(t, 0.1, config.Cache.SampleRate, 0.0001)
	assert.Equal(t, 7*24*time.Hour, config.Cache.StatsWindow.Std())
	assert.Equal(t, "5m", config.Cache.CleanupInterval)
	assert.False(t, config.Metrics.Enabled)
}

func TestConfigurationManager_GetValue(t *testing.T) {
	cm, err := NewConfigurationManager(context.Background(), writeConfigFile(t, testConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "redis.internal", cm.GetValue("cache.config.host", ""))
	assert.Equal(t, 6380, cm.GetValue("cache.config.port", 0))
	assert.Equal(t, "fallback", cm.GetValue("cache.config.missing", "fallback"))
}

func TestConfigurationManager_GetAs(t *testing.T) {
	cm, err := NewConfigurationManager(context.Background(), writeConfigFile(t, testConfigYAML))
	require.NoError(t, err)

	var backendConfig struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	}
	require.NoError(t, cm.GetAs("cache.config", &backendConfig))
	assert.Equal(t, "redis.internal", backendConfig.Host)
	assert.Equal(t, 6380, backendConfig.Port)

	err = cm.GetAs("cache.config.unknown", &backendConfig)
	assert.True(t, types.IsError(err, types.ErrConfigNotFound))
}

func TestConfigurationManager_MissingFile(t *testing.T) {
	_, err := NewConfigurationManager(context.Background(), "/nonexistent/config.yml")
	assert.Error(t, err)
}

func TestConfigurationManager_RejectsInvalidSampleRate(t *testing.T) {
	_, err := NewConfigurationManager(context.Background(), writeConfigFile(t, `
name: "bad"
version: "0.0.1"
cache:
  enabled: true
  backend: "memory"
  sample_rate: 1.5
`))
	assert.Error(t, err)
}

func TestConfigurationManager_Lifecycle(t *testing.T) {
	cm, err := NewConfigurationManager(context.Background(), writeConfigFile(t, testConfigYAML))
	require.NoError(t, err)

	require.NoError(t, cm.Start())
	assert.True(t, cm.IsRunning())
	assert.ErrorIs(t, cm.Start(), types.ErrAlreadyRunning)

	require.NoError(t, cm.Stop())
	assert.False(t, cm.IsRunning())
	assert.ErrorIs(t, cm.Stop(), types.ErrNotRunning)
}
