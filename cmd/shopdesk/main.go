package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"shopdesk/internal/adapter/cache"
	"shopdesk/internal/adapter/notice"
	"shopdesk/internal/adapter/realtime"
	"shopdesk/internal/adapter/schema"
	"shopdesk/internal/domain"
	"shopdesk/internal/infra/config"
	"shopdesk/internal/infra/logger"
	"shopdesk/internal/infra/tracer"
	"shopdesk/internal/usecase/eventbus"
	"shopdesk/internal/usecase/reactor"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	token := flag.String("token", "", "auth token (overrides config)")
	clientType := flag.String("client-type", "", "client role: user, shop or admin (overrides config)")
	flag.Parse()

	if err := run(*configPath, *token, *clientType); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, tokenOverride, clientTypeOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if tokenOverride != "" {
		cfg.Realtime.Token = tokenOverride
	}
	if clientTypeOverride != "" {
		cfg.Realtime.ClientType = clientTypeOverride
		if err := config.Validate(cfg); err != nil {
			return err
		}
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(ctx)

	registry, err := schema.New()
	if err != nil {
		return err
	}
	bus := eventbus.New(log)
	defer bus.Close()

	invalidator, err := buildInvalidator(ctx, cfg.Cache, log)
	if err != nil {
		return err
	}

	center := notice.NewCenter(notice.Limits{
		PerSecond: cfg.Notices.RatePerSec,
		Burst:     cfg.Notices.Burst,
	}, log, notice.NewLogSink(log))

	if err := os.MkdirAll(filepath.Dir(cfg.Notices.HistoryPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	history, err := notice.NewHistory(cfg.Notices.HistoryPath, log)
	if err != nil {
		return err
	}
	defer history.Close()
	center.AddSink(history)

	client := realtime.New(realtime.Config{
		URL:                  cfg.Realtime.URL,
		HeartbeatInterval:    cfg.Realtime.HeartbeatInterval,
		ReconnectBaseDelay:   cfg.Realtime.ReconnectBaseDelay,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		DialTimeout:          cfg.Realtime.DialTimeout,
	}, registry, bus, center, logger.Component(log, "realtime"))

	manager := reactor.NewManager(bus, log, reactor.All(reactor.Deps{
		Cache:   invalidator,
		Notices: center,
		Logger:  log,
	})...)
	manager.Watch(client)
	defer manager.Close()

	client.Connect(cfg.Realtime.Token, domain.ClientType(cfg.Realtime.ClientType))
	defer client.Disconnect()

	if cfg.Housekeeping.Enabled {
		stop, err := startHousekeeping(cfg, client, history, logger.Component(log, "housekeeping"))
		if err != nil {
			return err
		}
		defer stop()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())
	return nil
}

func buildInvalidator(ctx context.Context, cfg config.CacheConfig, log *slog.Logger) (domain.Invalidator, error) {
	if cfg.Backend != "redis" {
		return cache.NewMemory(), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	r := cache.NewRedis(redis.NewClient(opts), log)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		// Degraded, not fatal: the breaker keeps retries cheap.
		log.Warn("redis unreachable at startup", "error", err)
	}
	return r, nil
}

func startHousekeeping(cfg *config.Config, client *realtime.Client, history *notice.History, log *slog.Logger) (func(), error) {
	c := cron.New()

	if _, err := c.AddFunc(cfg.Housekeeping.StatsSchedule, func() {
		stats := client.Stats()
		log.Info("realtime stats",
			"state", string(stats.State),
			"client_type", string(stats.ClientType),
			"reconnect_attempts", stats.ReconnectAttempts,
			"epoch", stats.Epoch,
		)
	}); err != nil {
		return nil, fmt.Errorf("stats schedule: %w", err)
	}

	if _, err := c.AddFunc(cfg.Housekeeping.PruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := history.Prune(ctx, cfg.Notices.Retention)
		if err != nil {
			log.Warn("notice prune failed", "error", err)
			return
		}
		log.Info("notice history pruned", "removed", n)
	}); err != nil {
		return nil, fmt.Errorf("prune schedule: %w", err)
	}

	c.Start()
	return func() { <-c.Stop().Done() }, nil
}
