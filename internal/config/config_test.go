package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "silverpulse/internal/errors"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.validate())
	assert.Equal(t, 3, cfg.Sources.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.Sources.RetryDelay)
	assert.Equal(t, time.Hour, cfg.Sources.CacheTTL)
	assert.Equal(t, HistoryFileName, cfg.History.FileName)
}

func TestLoad_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	yamlContent := `
server:
  port: 9090
sources:
  cache_ttl: 30m
  retry_attempts: 5
history:
  min_span: 24h
`
	require.NoError(t, os.WriteFile(configFile, []byte(yamlContent), 0644))

	t.Setenv("SILVER_CONFIG", configFile)
	t.Setenv("SILVER_SOURCES_RETRY_ATTEMPTS", "4")
	t.Setenv("SILVER_SOURCES_DISABLED", "vault_holdings,spot_price")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "file overrides default")
	assert.Equal(t, 30*time.Minute, cfg.Sources.CacheTTL)
	assert.Equal(t, 4, cfg.Sources.RetryAttempts, "env overrides file")
	assert.Equal(t, 24*time.Hour, cfg.History.MinSpan)
	assert.Equal(t, DefaultWarehouseURL, cfg.Sources.WarehouseURL, "untouched keys keep defaults")
	assert.False(t, cfg.SourceEnabled("vault_holdings"))
	assert.True(t, cfg.SourceEnabled("warehouse"))
}

func TestLoad_InvalidValuesAreConfigErrors(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("SILVER_CONFIG", configFile)
	t.Setenv("SILVER_SOURCES_RETRY_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero retry attempts", func(c *Config) { c.Sources.RetryAttempts = 0 }, true},
		{"bad warehouse url", func(c *Config) { c.Sources.WarehouseURL = "not a url" }, true},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }, true},
		{"rate limit without burst", func(c *Config) { c.Security.RateLimit.Burst = 0 }, true},
		{"scheduler without schedule", func(c *Config) { c.Scheduler.Schedule = "" }, true},
		{"archive url optional", func(c *Config) { c.History.ArchiveURL = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetPaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.BaseDir = base

	paths, err := cfg.GetPaths()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "data", HistoryFileName), paths.HistoryFile)
	assert.Equal(t, filepath.Join(base, "data", ReportCacheFileName), paths.ReportCacheFile)
	assert.Equal(t, filepath.Join(base, "logs", "app.log"), paths.LogFile)

	require.NoError(t, paths.EnsureDirectories())
	assert.True(t, FileExists(paths.DataDir))
}
