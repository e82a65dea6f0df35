package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Inventory.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Inventory.Timeout)
	assert.Equal(t, time.Hour, cfg.Catalog.TTL)
	assert.False(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 20, cfg.RateLimit.Burst)
	assert.Empty(t, cfg.Server.APIKeys)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_ENV", "test")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("INVENTORY_BASE_URL", "http://inventory.internal:7000")
	t.Setenv("INVENTORY_TIMEOUT", "3s")
	t.Setenv("CATALOG_TTL", "15m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "test", cfg.Server.Env)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "http://inventory.internal:7000", cfg.Inventory.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Inventory.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Catalog.TTL)
}

func TestLoad_FileAndSecretResolution(t *testing.T) {
	t.Setenv("TEST_INVENTORY_KEY", "sk-test-12345")
	t.Setenv("TEST_PROXY_KEY", "proxy-key")

	configContent := `
server:
  api_keys:
    - "ENV:TEST_PROXY_KEY"
    - "static-key"
inventory:
  base_url: "https://inventory.example.com"
  api_key: "ENV:TEST_INVENTORY_KEY"
  api_version: "1.4.0"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(configContent), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-12345", cfg.Inventory.APIKey)
	assert.Equal(t, "1.4.0", cfg.Inventory.APIVersion)
	assert.Equal(t, []string{"proxy-key", "static-key"}, cfg.Server.APIKeys)
}

func TestLoad_RejectsCatalogTTLAboveOneHour(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CATALOG_TTL", "2h")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoad_RejectsBadInventoryURL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INVENTORY_BASE_URL", "not a url")

	_, err := LoadConfig()
	assert.Error(t, err)
}
