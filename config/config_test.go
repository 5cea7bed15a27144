package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"Vista"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	require.Equal(t, ":8086", cfg.Server.Address)
	require.Equal(t, "fake", cfg.Tracker.DataSource)
	require.Equal(t, 250*time.Millisecond, cfg.Tracker.PollInterval.Value())
	require.Equal(t, 5*time.Minute, cfg.Tracker.DefaultTimeout.Value())
	require.Equal(t, Vista.Info, cfg.Logging.LogLevel())
	require.False(t, cfg.Auth.Enabled)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vista.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
address = ":9090"

[mongo]
uri = "mongodb://localhost:27017"
database = "dashboards"

[tracker]
poll_interval = "50ms"
default_timeout = "90s"

[logging]
sink = "structured"
level = "debug"

[auth]
enabled = true
secret = "s3cret"
token_ttl = "12h"
`), 0o644))

	cfg := NewConfig()
	require.NoError(t, cfg.LoadConfig(path))

	require.Equal(t, ":9090", cfg.Server.Address)
	require.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	require.Equal(t, "dashboards", cfg.Mongo.Database)
	// Keys the file does not mention keep their defaults.
	require.Equal(t, "executions", cfg.Mongo.ExecutionsCollection)
	require.Equal(t, 50*time.Millisecond, cfg.Tracker.PollInterval.Value())
	require.Equal(t, 90*time.Second, cfg.Tracker.DefaultTimeout.Value())
	require.Equal(t, Vista.Debug, cfg.Logging.LogLevel())
	require.True(t, cfg.Auth.Enabled)
	require.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL.Value())
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vista.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nadress = \":9090\"\n"), 0o644))

	cfg := NewConfig()
	err := cfg.LoadConfig(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "adress")
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vista.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tracker]\npoll_interval = \"soon\"\n"), 0o644))

	cfg := NewConfig()
	require.Error(t, cfg.LoadConfig(path))
}
