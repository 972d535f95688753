// Package notice turns domain events into operator-facing messages:
// rate limiting so an event storm does not flood the UI, fan-out to
// sinks, and a persistent history.
package notice

import (
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"shopdesk/internal/domain"
)

// Center is the single domain.Notifier the rest of the app talks to.
// Info and success notices are rate limited per severity; warnings and
// errors always pass.
type Center struct {
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[domain.Severity]*rate.Limiter
	sinks    []domain.Notifier
}

// Limits tunes the per-severity rate limiting.
type Limits struct {
	PerSecond float64
	Burst     int
}

// DefaultLimits allows short bursts while keeping a sustained event
// storm down to a handful of notices per second.
func DefaultLimits() Limits {
	return Limits{PerSecond: 2, Burst: 5}
}

func NewCenter(limits Limits, logger *slog.Logger, sinks ...domain.Notifier) *Center {
	if limits.PerSecond <= 0 {
		limits = DefaultLimits()
	}
	return &Center{
		logger: logger,
		limiters: map[domain.Severity]*rate.Limiter{
			domain.SeverityInfo:    rate.NewLimiter(rate.Limit(limits.PerSecond), limits.Burst),
			domain.SeveritySuccess: rate.NewLimiter(rate.Limit(limits.PerSecond), limits.Burst),
		},
		sinks: sinks,
	}
}

// AddSink registers another delivery target.
func (c *Center) AddSink(sink domain.Notifier) {
	c.mu.Lock()
	c.sinks = append(c.sinks, sink)
	c.mu.Unlock()
}

// Notify applies rate limiting and fans the notice out to every sink.
func (c *Center) Notify(n domain.Notice) {
	c.mu.Lock()
	limiter := c.limiters[n.Severity]
	sinks := append([]domain.Notifier(nil), c.sinks...)
	c.mu.Unlock()

	if limiter != nil && !limiter.Allow() {
		c.logger.Debug("notice rate limited", "severity", string(n.Severity), "title", n.Title)
		return
	}
	for _, sink := range sinks {
		sink.Notify(n)
	}
}

// LogSink writes notices to the structured log.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(n domain.Notice) {
	attrs := []any{"title", n.Title, "body", n.Body}
	switch n.Severity {
	case domain.SeverityError:
		s.logger.Error("notice", attrs...)
	case domain.SeverityWarning:
		s.logger.Warn("notice", attrs...)
	default:
		s.logger.Info("notice", attrs...)
	}
}
