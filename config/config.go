// Package config loads the TOML runtime configuration.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"Vista"
)

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Value() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server       ServerConfig       `toml:"server"`
	Mongo        MongoConfig        `toml:"mongo"`
	Tracker      TrackerConfig      `toml:"tracker"`
	Logging      LoggingConfig      `toml:"logging"`
	Auth         AuthConfig         `toml:"auth"`
	Notification NotificationConfig `toml:"notification"`
}

type ServerConfig struct {
	Address      string   `toml:"address"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// MongoConfig selects the persistence backend. An empty URI runs the
// server fully in memory, which is what the tests and the standalone demo
// mode use.
type MongoConfig struct {
	URI                  string `toml:"uri"`
	Database             string `toml:"database"`
	DashboardsCollection string `toml:"dashboards_collection"`
	ExecutionsCollection string `toml:"executions_collection"`
}

type TrackerConfig struct {
	DataSource     string   `toml:"data_source"`
	PoolSize       int      `toml:"pool_size"`
	PollInterval   Duration `toml:"poll_interval"`
	DefaultTimeout Duration `toml:"default_timeout"`
	FetchLimit     int      `toml:"fetch_limit"`
}

type LoggingConfig struct {
	Sink         string `toml:"sink"`
	Level        string `toml:"level"`
	File         string `toml:"file"`
	InstanceName string `toml:"instance_name"`
}

// Level maps the configured level name onto the logger's level scale.
func (l LoggingConfig) LogLevel() Vista.LogLevel {
	switch l.Level {
	case "error":
		return Vista.Error
	case "warn", "warning":
		return Vista.Warn
	case "debug":
		return Vista.Debug
	default:
		return Vista.Info
	}
}

type AuthConfig struct {
	Enabled  bool     `toml:"enabled"`
	Secret   string   `toml:"secret"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	TokenTTL Duration `toml:"token_ttl"`
}

type NotificationConfig struct {
	WebhookURL string   `toml:"webhook_url"`
	Timeout    Duration `toml:"timeout"`
}

// NewConfig returns a config with working defaults; a config file only
// needs to state what differs.
func NewConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8086",
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
		},
		Mongo: MongoConfig{
			Database:             "vista",
			DashboardsCollection: "dashboards",
			ExecutionsCollection: "executions",
		},
		Tracker: TrackerConfig{
			DataSource:     "fake",
			PoolSize:       8,
			PollInterval:   Duration(250 * time.Millisecond),
			DefaultTimeout: Duration(5 * time.Minute),
			FetchLimit:     500,
		},
		Logging: LoggingConfig{
			Sink:  "stderr",
			Level: "info",
		},
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Notification: NotificationConfig{
			Timeout: Duration(10 * time.Second),
		},
	}
}

// LoadConfig merges the TOML file at path over the defaults.
func (c *Config) LoadConfig(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("loading config %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}
