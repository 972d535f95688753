package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"

	"shopdesk/internal/domain"
)

// Validate checks the configuration for inconsistencies a typo would
// otherwise surface only at runtime.
func Validate(cfg *Config) error {
	if cfg.Realtime.URL == "" {
		return fmt.Errorf("%w: realtime.url is required", domain.ErrConfigLoad)
	}
	u, err := url.Parse(cfg.Realtime.URL)
	if err != nil {
		return fmt.Errorf("%w: realtime.url: %v", domain.ErrConfigLoad, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("%w: realtime.url scheme %q is not a websocket scheme", domain.ErrConfigLoad, u.Scheme)
	}

	if !domain.ValidClientType(domain.ClientType(cfg.Realtime.ClientType)) {
		return fmt.Errorf("%w: realtime.client_type %q (want user, shop or admin)", domain.ErrConfigLoad, cfg.Realtime.ClientType)
	}
	if cfg.Realtime.HeartbeatInterval <= 0 {
		return fmt.Errorf("%w: realtime.heartbeat_interval must be positive", domain.ErrConfigLoad)
	}
	if cfg.Realtime.ReconnectBaseDelay <= 0 {
		return fmt.Errorf("%w: realtime.reconnect_base_delay must be positive", domain.ErrConfigLoad)
	}
	if cfg.Realtime.MaxReconnectAttempts <= 0 {
		return fmt.Errorf("%w: realtime.max_reconnect_attempts must be positive", domain.ErrConfigLoad)
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.RedisURL == "" {
			return fmt.Errorf("%w: cache.redis_url is required for the redis backend", domain.ErrConfigLoad)
		}
	default:
		return fmt.Errorf("%w: cache.backend %q (want memory or redis)", domain.ErrConfigLoad, cfg.Cache.Backend)
	}

	if cfg.Notices.HistoryPath == "" {
		return fmt.Errorf("%w: notices.history_path is required", domain.ErrConfigLoad)
	}
	return nil
}

// validatePermissions refuses group/world-accessible config files: the
// file carries the auth token.
func validatePermissions(path string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if info.Mode().Perm()&0o077 != 0 {
		return fmt.Errorf("%w: %s is accessible by group/others (mode %o), run: chmod 600 %s",
			domain.ErrConfigLoad, path, info.Mode().Perm(), path)
	}
	return nil
}
