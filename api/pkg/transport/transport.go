package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/devmatehq/chatsync/api/pkg/system"
	"github.com/devmatehq/chatsync/api/pkg/types"
)

var (
	ErrNotConnected   = errors.New("not connected")
	ErrClosed         = errors.New("connection closed")
	ErrAlreadyStarted = errors.New("connect already called")
)

type Config struct {
	URL   string
	Retry RetryPolicy

	PingInterval time.Duration
	WriteTimeout time.Duration

	// Dialer overrides websocket.DefaultDialer, mainly for tests.
	Dialer *websocket.Dialer

	// EventBuffer sizes the Events channel; events are dropped, not
	// blocked on, when the consumer lags.
	EventBuffer int
}

func (c *Config) norm() {
	if c.PingInterval <= 0 {
		c.PingInterval = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 16
	}
}

// Conn owns the one duplex websocket every push-driven feature shares: room
// message feeds and the per-user notification alarms both ride it. It runs
// the DISCONNECTED/CONNECTING/CONNECTED/RECONNECTING state machine, keeps a
// registry of topic subscriptions, and re-issues every registered
// subscription after each (re)connect, so a subscribe placed while offline
// is simply deferred until the link is up.
type Conn struct {
	cfg      Config
	clientID string

	mu      sync.Mutex
	state   types.ConnectionState
	ws      *websocket.Conn
	subs    map[string]*subscription
	byTopic map[string]map[string]*subscription
	cancel  context.CancelFunc
	started bool
	closed  bool

	// writeMu serializes writes to the socket; gorilla conns allow only
	// one concurrent writer.
	writeMu sync.Mutex

	events chan types.WsEvent
}

func New(cfg Config) *Conn {
	cfg.norm()
	return &Conn{
		cfg:      cfg,
		clientID: system.GenerateClientID(),
		state:    types.Disconnected,
		subs:     make(map[string]*subscription),
		byTopic:  make(map[string]map[string]*subscription),
		events:   make(chan types.WsEvent, cfg.EventBuffer),
	}
}

func (c *Conn) State() types.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Events exposes the connection lifecycle as typed events. The channel is
// never closed; drain it from one goroutine or ignore it entirely.
func (c *Conn) Events() <-chan types.WsEvent {
	return c.events
}

// Connect starts the connection state machine and returns immediately.
// Dial failures and severed connections are retried per the configured
// policy until Close is called or ctx is cancelled.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = types.Connecting
	c.mu.Unlock()

	go c.run(runCtx)
	return nil
}

func (c *Conn) run(ctx context.Context) {
	first := true
	for {
		if !first {
			// The previous link just dropped; wait one interval before
			// the first redial attempt.
			c.setState(types.Reconnecting)
			select {
			case <-ctx.Done():
				c.setState(types.Disconnected)
				return
			case <-time.After(c.cfg.Retry.norm().Interval):
			}
		}
		first = false

		ws, err := c.dial(ctx)
		if err != nil {
			// dial only returns once the context is cancelled
			c.setState(types.Disconnected)
			return
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = ws.Close()
			return
		}
		c.ws = ws
		c.state = types.Connected
		topics := make([]string, 0, len(c.byTopic))
		for topic := range c.byTopic {
			topics = append(topics, topic)
		}
		c.mu.Unlock()

		log.Info().Str("url", c.cfg.URL).Str("client_id", c.clientID).Msg("websocket connected")
		c.emit(types.WsEvent{Type: types.WsEventConnected})

		// Re-issue every registered topic subscription. Subscribes placed
		// while disconnected were deferred to exactly this point.
		for _, topic := range topics {
			if err := c.writeFrame(types.WsFrame{Type: types.WsFrameSubscribe, Destination: topic}); err != nil {
				log.Warn().Err(err).Str("topic", topic).Msg("re-subscribe failed")
			}
		}

		readErr := c.readLoop(ctx, ws)

		c.mu.Lock()
		c.ws = nil
		closed := c.closed
		c.mu.Unlock()

		c.emit(types.WsEvent{Type: types.WsEventDisconnected, Err: readErr})

		if closed || ctx.Err() != nil {
			c.setState(types.Disconnected)
			return
		}
		log.Warn().Err(readErr).Msg("websocket connection lost, reconnecting")
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := c.cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	header := http.Header{}
	header.Set("X-Client-ID", c.clientID)

	var ws *websocket.Conn
	err := retry.Do(func() error {
		// nolint:bodyclose
		conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
		if err != nil {
			return fmt.Errorf("websocket dial to '%s' failed: %w", c.cfg.URL, err)
		}
		ws = conn
		return nil
	}, append(c.cfg.Retry.options(),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.setState(types.Reconnecting)
			log.Warn().Err(err).Uint("attempt", n+1).Msg("websocket dial failed, retrying")
		}),
	)...)
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *Conn) readLoop(ctx context.Context, ws *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = ws.Close()
				return
			case <-ticker.C:
				c.writeMu.Lock()
				_ = ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
				_ = ws.WriteMessage(websocket.PingMessage, nil)
				c.writeMu.Unlock()
			}
		}
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var frame types.WsFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			log.Error().Err(err).Str("payload", string(payload)).Msg("dropping malformed frame")
			continue
		}
		if frame.Type != types.WsFrameMessage {
			continue
		}
		c.dispatch(frame)
	}
}

// dispatch fans a pushed frame out to every live handler on its topic.
// Handlers run on the read goroutine, so deliveries stay serialized in
// arrival order.
func (c *Conn) dispatch(frame types.WsFrame) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	handlers := make([]func(body []byte), 0, len(c.byTopic[frame.Destination]))
	for _, sub := range c.byTopic[frame.Destination] {
		handlers = append(handlers, sub.handler)
	}
	c.mu.Unlock()

	c.emit(types.WsEvent{Type: types.WsEventFrameReceived, Topic: frame.Destination, Body: frame.Body})

	for _, handler := range handlers {
		handler(frame.Body)
	}
}

// Publish sends payload to topic, fire and forget: no delivery ack is
// awaited. Returns ErrNotConnected while the link is down.
func (c *Conn) Publish(topic string, payload []byte) error {
	c.mu.Lock()
	connected := c.state == types.Connected && c.ws != nil
	c.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}
	return c.writeFrame(types.WsFrame{Type: types.WsFrameSend, Destination: topic, Body: payload})
}

func (c *Conn) writeFrame(frame types.WsFrame) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout)); err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, data)
}

// Close tears the connection down and invalidates every subscription.
// Frames still in flight when Close returns are dropped, not delivered.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = types.Disconnected
	c.subs = make(map[string]*subscription)
	c.byTopic = make(map[string]map[string]*subscription)
	ws := c.ws
	c.ws = nil
	cancel := c.cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = ws.Close()
	}
	return nil
}

func (c *Conn) setState(s types.ConnectionState) {
	c.mu.Lock()
	if c.closed && s != types.Disconnected {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()
}

func (c *Conn) emit(ev types.WsEvent) {
	select {
	case c.events <- ev:
	default:
		log.Debug().Str("event", string(ev.Type)).Msg("event buffer full, dropping event")
	}
}
