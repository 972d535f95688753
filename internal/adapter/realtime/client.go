// Package realtime owns the single persistent WebSocket to the
// platform: open, authenticate, heartbeat, detect failure, reconnect
// with capped exponential backoff. Validated events are handed to the
// event bus; consumers never touch the socket or its timers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"nhooyr.io/websocket"

	"shopdesk/internal/adapter/schema"
	"shopdesk/internal/domain"
	"shopdesk/internal/infra/tracer"
	"shopdesk/internal/usecase/eventbus"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultReconnectBase     = 5 * time.Second
	defaultMaxReconnects     = 5
	defaultDialTimeout       = 10 * time.Second
	writeTimeout             = 5 * time.Second
)

// heartbeatFrame is the legacy liveness probe. The server expects the
// key "type" here while every other frame uses "event"; do not change
// one side without the other.
var heartbeatFrame = []byte(`{"type":"ping"}`)

// Config holds connection tuning. Zero values fall back to production
// defaults; tests shrink the intervals.
type Config struct {
	URL                  string
	HeartbeatInterval    time.Duration
	ReconnectBaseDelay   time.Duration
	MaxReconnectAttempts int
	DialTimeout          time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = defaultReconnectBase
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = defaultMaxReconnects
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = defaultDialTimeout
	}
	return c
}

// outboundFrame is the {event, data} envelope for Send.
type outboundFrame struct {
	Event domain.EventType `json:"event"`
	Data  any              `json:"data"`
}

// Client is the connection core. Construct it once in the composition
// root and share it; all socket and timer state is owned here and
// mutated nowhere else.
type Client struct {
	cfg      Config
	registry *schema.Registry
	bus      *eventbus.Bus
	notices  domain.Notifier
	logger   *slog.Logger

	mu         sync.Mutex
	state      domain.ConnState
	conn       *websocket.Conn
	epoch      string // ULID of the live connection epoch, "" when none
	token      string
	clientType domain.ClientType
	attempts   int
	lossy      bool   // a failure happened since the last stable open
	gen        uint64 // bumped by Connect and Disconnect; stale retries check it

	heartbeatStop chan struct{}
	reconnect     *time.Timer

	stateSubs map[uint64]func(domain.ConnState)
	nextSub   uint64

	sendMu sync.Mutex
}

// New creates a client. It does not connect.
func New(cfg Config, registry *schema.Registry, bus *eventbus.Bus, notices domain.Notifier, logger *slog.Logger) *Client {
	return &Client{
		cfg:       cfg.withDefaults(),
		registry:  registry,
		bus:       bus,
		notices:   notices,
		logger:    logger,
		state:     domain.ConnIdle,
		stateSubs: make(map[uint64]func(domain.ConnState)),
	}
}

// Connect opens the transport, authenticating with token as the given
// role. It returns immediately; progress is observable via State and
// OnStateChange. Redundant calls while Open or Connecting are no-ops,
// so at most one physical connection ever exists.
func (c *Client) Connect(token string, clientType domain.ClientType) {
	c.connect(token, clientType, 0, true)
}

// connect is the shared path for explicit connects and timed retries.
// Only an explicit connect resets the retry counter; a retry carries the
// generation it was scheduled under and is dropped if a Connect or
// Disconnect has happened since. The generation check must run under
// the same lock acquisition as the state mutation, otherwise a timer
// that already fired can revive the connection after Disconnect.
func (c *Client) connect(token string, clientType domain.ClientType, gen uint64, fresh bool) {
	c.mu.Lock()
	if !fresh && gen != c.gen {
		c.mu.Unlock()
		c.logger.Debug("stale reconnect dropped", "gen", gen)
		return
	}
	if c.state == domain.ConnOpen || c.state == domain.ConnConnecting {
		c.mu.Unlock()
		c.logger.Debug("connect ignored, already connected or connecting", "state", string(c.state))
		return
	}
	c.token = token
	c.clientType = clientType
	if fresh {
		c.gen++
		c.attempts = 0
	}
	c.cancelReconnectLocked()
	epoch := ulid.Make().String()
	c.epoch = epoch
	notify := c.setStateLocked(domain.ConnConnecting)
	c.mu.Unlock()
	notify()

	go c.dial(epoch)
}

func (c *Client) dial(epoch string) {
	target, err := c.target()
	if err != nil {
		c.logger.Error("invalid realtime url", "url", c.cfg.URL, "error", err)
		c.connectionLost(epoch, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
	defer cancel()
	ctx, span := tracer.StartSpan(ctx, "realtime.dial",
		trace.WithAttributes(tracer.StringAttr("epoch", epoch)))
	conn, _, err := websocket.Dial(ctx, target, nil)
	if err != nil {
		tracer.RecordError(span, err)
		span.End()
		c.logger.Warn("dial failed", "epoch", epoch, "error", err)
		c.connectionLost(epoch, err)
		return
	}
	span.End()

	c.mu.Lock()
	if c.epoch != epoch || c.state != domain.ConnConnecting {
		// Disconnected or superseded while dialing.
		c.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "superseded")
		return
	}
	c.conn = conn
	wasLossy := c.lossy
	c.attempts = 0
	c.lossy = false
	c.startHeartbeatLocked(epoch, conn)
	notify := c.setStateLocked(domain.ConnOpen)
	clientType := c.clientType
	c.mu.Unlock()
	notify()

	c.logger.Info("realtime connected", "epoch", epoch, "client_type", string(clientType))
	if wasLossy {
		c.notices.Notify(domain.Notice{
			Severity:  domain.SeveritySuccess,
			Title:     "Connection restored",
			Body:      "Live updates are back.",
			CreatedAt: time.Now(),
		})
	}

	go c.readLoop(conn, epoch)
}

// target embeds the bearer token, client role and platform tag in the
// connection URL's query string.
func (c *Client) target() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	c.mu.Lock()
	token, clientType := c.token, c.clientType
	c.mu.Unlock()
	q := u.Query()
	q.Set("token", token)
	q.Set("client_type", string(clientType))
	q.Set("platform", "web")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// readLoop delivers inbound frames in transport order for the life of
// one connection epoch. Schema rejections and control frames are
// dropped here; everything else reaches the bus.
func (c *Client) readLoop(conn *websocket.Conn, epoch string) {
	ctx := context.Background()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.connectionLost(epoch, err)
			return
		}

		ev, perr := c.registry.Parse(data)
		if perr != nil {
			c.logger.Warn("dropping invalid frame", "epoch", epoch, "error", perr)
			continue
		}
		if ev.IsControl() {
			continue
		}
		ev.Epoch = epoch
		evCtx, span := tracer.StartSpan(ctx, "realtime.dispatch",
			trace.WithAttributes(tracer.StringAttr("event", string(ev.Type))))
		c.bus.Dispatch(evCtx, ev)
		span.End()
	}
}

// connectionLost is the single authority on what a broken transport
// means: dial failures, read errors and remote closes all land here,
// so one failure is never counted twice.
func (c *Client) connectionLost(epoch string, err error) {
	c.mu.Lock()
	if c.epoch != epoch {
		// A Disconnect or a newer epoch already tore this one down.
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	if c.conn != nil {
		c.conn.Close(websocket.StatusNormalClosure, "")
		c.conn = nil
	}
	c.epoch = ""

	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		c.attempts = 0
		notify := c.setStateLocked(domain.ConnClosed)
		c.mu.Unlock()
		notify()
		c.logger.Info("realtime closed by server", "epoch", epoch)
		return
	}

	c.lossy = true
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		notify := c.setStateLocked(domain.ConnClosed)
		c.mu.Unlock()
		notify()
		c.logger.Error("reconnect attempts exhausted", "attempts", c.cfg.MaxReconnectAttempts, "error", err)
		c.notices.Notify(domain.Notice{
			Severity:  domain.SeverityError,
			Title:     "Live updates unavailable",
			Body:      "Lost connection to the platform and could not reconnect. Reload the page to retry.",
			CreatedAt: time.Now(),
		})
		return
	}

	delay := c.cfg.ReconnectBaseDelay << c.attempts
	c.attempts++
	attempt := c.attempts
	token, clientType, gen := c.token, c.clientType, c.gen
	notify := c.setStateLocked(domain.ConnClosed)
	// The reconnect path reuses the captured token verbatim; a token
	// rotated mid-session keeps retrying stale until the next explicit
	// Connect.
	c.reconnect = time.AfterFunc(delay, func() {
		c.connect(token, clientType, gen, false)
	})
	c.mu.Unlock()
	notify()
	c.logger.Warn("scheduling reconnect",
		"epoch", epoch,
		"attempt", attempt,
		"delay", delay.String(),
		"error", err,
	)
}

// Disconnect closes the transport with a normal-closure code and fully
// resets connection state: socket, both timers, token and role. It is
// idempotent and never schedules a reconnect.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.gen++ // invalidates any reconnect timer that already fired
	c.cancelReconnectLocked()
	c.stopHeartbeatLocked()
	conn := c.conn
	c.conn = nil
	c.epoch = ""
	c.token = ""
	c.clientType = ""
	c.attempts = 0
	c.lossy = false

	var notifyClosing, notifyClosed func()
	if c.state != domain.ConnClosed && c.state != domain.ConnIdle {
		notifyClosing = c.setStateLocked(domain.ConnClosing)
		notifyClosed = c.setStateLocked(domain.ConnClosed)
	}
	c.mu.Unlock()

	if notifyClosing != nil {
		notifyClosing()
	}
	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "client disconnect")
	}
	if notifyClosed != nil {
		notifyClosed()
	}
}

// Send serializes {event, data} and writes it if the transport is open.
// Otherwise the frame is dropped with a warning: callers are not
// required to check connection state first.
func (c *Client) Send(eventType domain.EventType, payload any) {
	c.mu.Lock()
	conn := c.conn
	open := c.state == domain.ConnOpen
	c.mu.Unlock()
	if !open || conn == nil {
		c.logger.Warn("send while disconnected, frame dropped", "event", string(eventType))
		return
	}

	data, err := json.Marshal(outboundFrame{Event: eventType, Data: payload})
	if err != nil {
		c.logger.Warn("send marshal failed", "event", string(eventType), "error", err)
		return
	}
	if err := c.write(conn, data); err != nil {
		c.logger.Warn("send failed", "event", string(eventType), "error", err)
	}
}

func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// startHeartbeatLocked replaces any running heartbeat with a fresh one
// bound to the given epoch. Caller holds c.mu.
func (c *Client) startHeartbeatLocked(epoch string, conn *websocket.Conn) {
	c.stopHeartbeatLocked()
	stop := make(chan struct{})
	c.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(c.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				live := c.state == domain.ConnOpen && c.epoch == epoch
				c.mu.Unlock()
				if !live {
					return
				}
				if err := c.write(conn, heartbeatFrame); err != nil {
					c.logger.Warn("heartbeat failed", "epoch", epoch, "error", err)
				}
			}
		}
	}()
}

// stopHeartbeatLocked cancels the running heartbeat, if any. Caller
// holds c.mu.
func (c *Client) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

// cancelReconnectLocked cancels the pending reconnect timer, if any.
// Caller holds c.mu.
func (c *Client) cancelReconnectLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
}

// setStateLocked transitions state and returns a function that fires
// the state-change callbacks. Caller holds c.mu and must invoke the
// returned func after unlocking.
func (c *Client) setStateLocked(s domain.ConnState) func() {
	c.state = s
	subs := make([]func(domain.ConnState), 0, len(c.stateSubs))
	for _, fn := range c.stateSubs {
		subs = append(subs, fn)
	}
	return func() {
		for _, fn := range subs {
			fn(s)
		}
	}
}

// State returns the current connection state.
func (c *Client) State() domain.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the transport is currently open.
func (c *Client) Connected() bool {
	return c.State() == domain.ConnOpen
}

// OnStateChange registers a callback for every state transition and
// returns an unregister function.
func (c *Client) OnStateChange(fn func(domain.ConnState)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.stateSubs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.stateSubs, id)
			c.mu.Unlock()
		})
	}
}

// Stats is a point-in-time snapshot for housekeeping reports.
type Stats struct {
	State             domain.ConnState
	ClientType        domain.ClientType
	ReconnectAttempts int
	Epoch             string
}

// Stats returns the current connection snapshot.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		State:             c.state,
		ClientType:        c.clientType,
		ReconnectAttempts: c.attempts,
		Epoch:             c.epoch,
	}
}
