package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"shopdesk/internal/domain"
)

// keyPrefix namespaces cached query entries in the shared Redis.
const keyPrefix = "cache:q:"

// Redis invalidates cached queries by deleting their tag keys. A
// circuit breaker keeps a dead Redis from stalling event handling:
// while the breaker is open, invalidations fail fast and callers fall
// back to logging.
type Redis struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker[int64]
	logger  *slog.Logger
}

func NewRedis(client *redis.Client, logger *slog.Logger) *Redis {
	breaker := gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "cache-invalidator",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("cache breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &Redis{client: client, breaker: breaker, logger: logger}
}

// Invalidate deletes the cache keys for every tag. Failures wrap
// domain.ErrCacheUnavailable; the cache heals on the next read miss,
// so callers log and move on.
func (r *Redis) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = keyPrefix + tag
	}

	deleted, err := r.breaker.Execute(func() (int64, error) {
		return r.client.Del(ctx, keys...).Result()
	})
	if err != nil {
		return fmt.Errorf("%w: del %d keys: %v", domain.ErrCacheUnavailable, len(keys), err)
	}

	r.logger.Debug("cache invalidated", "tags", tags, "deleted", deleted)
	return nil
}

// Ping verifies Redis is reachable at startup.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
	}
	return nil
}
