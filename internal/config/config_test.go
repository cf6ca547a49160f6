package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

const sampleConfig = `
log_level: debug
refresh_interval_minutes: 10
sources:
  orders:
    type: postgrest
    project_url: https://example.supabase.co
    api_key: ${GRIDLENS_TEST_API_KEY}
    table: orders
  events:
    type: rest
    url: https://api.example.com/events
    request_timeout_seconds: 5
  warehouse:
    type: sqlproxy
    proxy_url: http://localhost:8099
    connection_id: conn-1
    table: sales
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv("GRIDLENS_TEST_API_KEY", "sekrit")

	cfg, err := Load(writeConfig(t, sampleConfig), nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"events", "orders", "warehouse"}, cfg.SourceNames())

	orders, ok := cfg.Source("orders")
	require.True(t, ok)
	assert.Equal(t, core.SourcePostgREST, orders.Type)
	assert.Equal(t, "sekrit", orders.APIKey, "credentials expand from the environment")
	assert.Equal(t, 10*time.Minute, orders.RefreshInterval, "top-level default applies")
	assert.Equal(t, 30*time.Second, orders.RequestTimeout)

	events, ok := cfg.Source("events")
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, events.RequestTimeout, "per-source override wins")
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err, "an explicit path that does not exist is an error")

	// No explicit path and no file in CWD: defaults only.
	cfg, err = Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultRefreshIntervalMinutes, cfg.RefreshIntervalMinutes)
	assert.Empty(t, cfg.Sources)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("GRIDLENS_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "log_level: debug\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestFlagsOverrideEverything(t *testing.T) {
	t.Setenv("GRIDLENS_LOG_LEVEL", "warn")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "error"}))

	cfg, err := Load(writeConfig(t, "log_level: debug\n"), flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestValidateRejectsUntypedSource(t *testing.T) {
	_, err := Load(writeConfig(t, "sources:\n  broken:\n    url: http://x\n"), nil)
	require.Error(t, err)

	var cfgErr *core.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "broken.type", cfgErr.Field)
}

func TestSourceUnknownName(t *testing.T) {
	cfg := &Config{}
	_, ok := cfg.Source("missing")
	assert.False(t, ok)
}
