// Package config loads the application configuration from YAML with
// environment variable overrides. Field precedence: defaults, then the
// config file, then SHOPDESK_* env vars.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Realtime     RealtimeConfig     `yaml:"realtime"`
	Cache        CacheConfig        `yaml:"cache"`
	Notices      NoticesConfig      `yaml:"notices"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Logger       LoggerConfig       `yaml:"logger"`
	Tracer       TracerConfig       `yaml:"tracer"`
}

// RealtimeConfig holds the event transport settings.
type RealtimeConfig struct {
	URL                  string        `yaml:"url"`
	Token                string        `yaml:"token"`
	ClientType           string        `yaml:"client_type"` // "user", "shop" or "admin"
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	DialTimeout          time.Duration `yaml:"dial_timeout"`
}

// CacheConfig holds query-cache invalidation settings.
type CacheConfig struct {
	Backend  string `yaml:"backend"` // "memory" or "redis"
	RedisURL string `yaml:"redis_url"`
}

// NoticesConfig holds operator notice settings.
type NoticesConfig struct {
	HistoryPath string        `yaml:"history_path"`
	RatePerSec  float64       `yaml:"rate_per_sec"`
	Burst       int           `yaml:"burst"`
	Retention   time.Duration `yaml:"retention"`
}

// HousekeepingConfig holds the background maintenance schedules.
type HousekeepingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StatsSchedule string `yaml:"stats_schedule"` // cron expression
	PruneSchedule string `yaml:"prune_schedule"` // cron expression
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns the persistent data directory under
// $HOME/.shopdesk. Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".shopdesk")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Realtime: RealtimeConfig{
			ClientType:           "user",
			HeartbeatInterval:    30 * time.Second,
			ReconnectBaseDelay:   5 * time.Second,
			MaxReconnectAttempts: 5,
			DialTimeout:          10 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Notices: NoticesConfig{
			HistoryPath: filepath.Join(dataDir, "notices.db"),
			RatePerSec:  2,
			Burst:       5,
			Retention:   7 * 24 * time.Hour,
		},
		Housekeeping: HousekeepingConfig{
			Enabled:       true,
			StatsSchedule: "@every 5m",
			PruneSchedule: "@daily",
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file and applies env var overrides. A
// missing file is not an error: defaults plus env vars apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := validatePermissions(path); err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps SHOPDESK_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHOPDESK_REALTIME_URL"); v != "" {
		cfg.Realtime.URL = v
	}
	if v := os.Getenv("SHOPDESK_REALTIME_TOKEN"); v != "" {
		cfg.Realtime.Token = v
	}
	if v := os.Getenv("SHOPDESK_REALTIME_CLIENT_TYPE"); v != "" {
		cfg.Realtime.ClientType = v
	}
	if v := os.Getenv("SHOPDESK_REALTIME_HEARTBEAT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Realtime.HeartbeatInterval = d
		}
	}
	if v := os.Getenv("SHOPDESK_REALTIME_RECONNECT_BASE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Realtime.ReconnectBaseDelay = d
		}
	}
	if v := os.Getenv("SHOPDESK_REALTIME_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Realtime.MaxReconnectAttempts = n
		}
	}
	if v := os.Getenv("SHOPDESK_REALTIME_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Realtime.DialTimeout = d
		}
	}

	if v := os.Getenv("SHOPDESK_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("SHOPDESK_CACHE_REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}

	if v := os.Getenv("SHOPDESK_NOTICES_HISTORY_PATH"); v != "" {
		cfg.Notices.HistoryPath = v
	}
	if v := os.Getenv("SHOPDESK_NOTICES_RATE_PER_SEC"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Notices.RatePerSec = f
		}
	}
	if v := os.Getenv("SHOPDESK_NOTICES_RETENTION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Notices.Retention = d
		}
	}

	if v := os.Getenv("SHOPDESK_HOUSEKEEPING_ENABLED"); v == "false" {
		cfg.Housekeeping.Enabled = false
	}

	if v := os.Getenv("SHOPDESK_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("SHOPDESK_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("SHOPDESK_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}

	if v := os.Getenv("SHOPDESK_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("SHOPDESK_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}
