package sockchat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/sockchat/sockchat-sdk-go/sockchat/internal/ws"
)

// AckHandler receives the raw acknowledgement payload for one emission.
type AckHandler func(data json.RawMessage)

// PushHandler receives the raw payload of one named server event.
type PushHandler func(data json.RawMessage)

// Transport is the boundary to the wire: named-event emission with an
// optional per-emission acknowledgement, named-event subscription, and
// lifecycle signals. Reconnection policy lives behind this interface; the
// rest of the client only mirrors the transitions it observes.
type Transport interface {
	Connect(ctx context.Context) error
	Emit(ctx context.Context, event string, payload any, ack AckHandler) error
	On(event string, fn PushHandler)
	OnConnect(fn func())
	OnDisconnect(fn func(err error))
	Connected() bool
	Close() error
}

// wsTransport implements Transport over a websocket with JSON frames.
type wsTransport struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	conn      *ws.Conn
	connected bool
	closed    bool
	cancel    context.CancelFunc
	writeCh   chan Inbound
	runDone   <-chan struct{}
	seq       uint64
	acks      map[uint64]AckHandler
	handlers  map[string]PushHandler

	onConnect    func()
	onDisconnect func(err error)
}

func newWSTransport(cfg Config, logger zerolog.Logger) *wsTransport {
	return &wsTransport{
		cfg:      cfg,
		logger:   logger,
		acks:     make(map[uint64]AckHandler),
		handlers: make(map[string]PushHandler),
	}
}

// On registers the handler for a named server event. One handler per
// event; registration must happen before Connect.
func (t *wsTransport) On(event string, fn PushHandler) {
	t.mu.Lock()
	t.handlers[event] = fn
	t.mu.Unlock()
}

// OnConnect registers the connection-established callback.
func (t *wsTransport) OnConnect(fn func()) {
	t.mu.Lock()
	t.onConnect = fn
	t.mu.Unlock()
}

// OnDisconnect registers the connection-lost callback.
func (t *wsTransport) OnDisconnect(fn func(err error)) {
	t.mu.Lock()
	t.onDisconnect = fn
	t.mu.Unlock()
}

// Connected reports whether the channel is currently open.
func (t *wsTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Connect dials the server and starts the read/write loops.
func (t *wsTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return NewError(ErrorNotConnected, "transport closed")
	}
	if t.connected {
		t.mu.Unlock()
		return errors.New("already connected")
	}
	t.mu.Unlock()

	if t.cfg.URL == "" {
		return NewError(ErrorInvalidConfig, "empty URL")
	}
	if _, err := url.Parse(t.cfg.URL); err != nil {
		return WrapError(ErrorInvalidConfig, "invalid URL", err)
	}

	return t.dial(ctx)
}

// Emit queues one event frame. When ack is non-nil a sequence number is
// assigned and the handler fires once when the matching ack arrives. Ack
// handlers are dropped without invocation on disconnect; outstanding-call
// bookkeeping belongs to the correlator. A send blocked on a full queue
// aborts when the hosting connection ends.
func (t *wsTransport) Emit(ctx context.Context, event string, payload any, ack AckHandler) error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return NewError(ErrorNotConnected, "not connected")
	}
	frame := Inbound{Type: frameEvent, Event: event, Data: payload}
	if ack != nil {
		t.seq++
		frame.Seq = t.seq
		t.acks[t.seq] = ack
	}
	writeCh := t.writeCh
	runDone := t.runDone
	t.mu.Unlock()

	select {
	case writeCh <- frame:
		return nil
	case <-runDone:
		t.dropAck(frame.Seq)
		return NewError(ErrorConnectionLost, "connection lost")
	case <-ctx.Done():
		t.dropAck(frame.Seq)
		return ctx.Err()
	}
}

func (t *wsTransport) dropAck(seq uint64) {
	if seq == 0 {
		return
	}
	t.mu.Lock()
	delete(t.acks, seq)
	t.mu.Unlock()
}

// Close shuts the transport down permanently. No reconnection follows.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	conn := t.conn
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close(websocket.StatusNormalClosure, "client close")
	}
	t.lost(nil)
	return err
}

func (t *wsTransport) dial(ctx context.Context) error {
	dialCtx := ctx
	if t.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, t.cfg.HandshakeTimeout)
		defer cancel()
	}

	raw, _, err := websocket.Dial(dialCtx, t.cfg.URL, nil)
	if err != nil {
		return WrapError(ErrorConnectionLost, "dial failed", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		_ = raw.Close(websocket.StatusNormalClosure, "client close")
		return NewError(ErrorNotConnected, "transport closed")
	}
	t.conn = ws.NewConn(raw, t.cfg.ReadTimeout, t.cfg.WriteTimeout)
	t.cancel = cancel
	t.writeCh = make(chan Inbound, 16)
	t.runDone = runCtx.Done()
	t.connected = true
	conn := t.conn
	writeCh := t.writeCh
	onConnect := t.onConnect
	t.mu.Unlock()

	go t.readLoop(runCtx, conn)
	go t.writeLoop(runCtx, conn, writeCh)

	if onConnect != nil {
		onConnect()
	}
	return nil
}

func (t *wsTransport) readLoop(ctx context.Context, conn *ws.Conn) {
	for {
		var out Outbound
		if err := conn.Read(ctx, &out); err != nil {
			if isExpectedDisconnect(ctx, err) {
				t.lost(nil)
				return
			}
			t.logger.Warn().Err(err).Msg("read loop exit")
			t.lost(WrapError(ErrorConnectionLost, "connection lost", err))
			return
		}
		t.route(out)
	}
}

func (t *wsTransport) writeLoop(ctx context.Context, conn *ws.Conn, writeCh <-chan Inbound) {
	for {
		select {
		case frame := <-writeCh:
			if err := conn.Write(ctx, frame); err != nil {
				if !isExpectedDisconnect(ctx, err) {
					t.logger.Warn().Err(err).Msg("write loop exit")
				}
				t.lost(WrapError(ErrorConnectionLost, "connection lost", err))
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (t *wsTransport) route(out Outbound) {
	switch out.Type {
	case frameAck:
		t.mu.Lock()
		ack := t.acks[out.Seq]
		delete(t.acks, out.Seq)
		t.mu.Unlock()
		if ack != nil {
			ack(out.Data)
		} else {
			t.logger.Debug().Uint64("seq", out.Seq).Msg("ack without pending request")
		}
	case frameEvent:
		t.mu.Lock()
		fn := t.handlers[out.Event]
		t.mu.Unlock()
		if fn != nil {
			fn(out.Data)
		} else {
			t.logger.Debug().Str("event", out.Event).Msg("unhandled event")
		}
	default:
		t.logger.Debug().Str("type", out.Type).Msg("unknown frame type")
	}
}

// lost marks the connection down, drops the ack registry, notifies the
// client, and schedules reconnection unless the transport was closed.
// Idempotent per connection instance.
func (t *wsTransport) lost(err error) {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return
	}
	t.connected = false
	t.acks = make(map[uint64]AckHandler)
	cancel := t.cancel
	t.cancel = nil
	closed := t.closed
	onDisconnect := t.onDisconnect
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if onDisconnect != nil {
		onDisconnect(err)
	}
	if !closed && t.cfg.AutoReconnect {
		go t.reconnectLoop()
	}
}

func (t *wsTransport) reconnectLoop() {
	delay := t.cfg.ReconnectInterval
	if delay <= 0 {
		delay = time.Second
	}
	for attempt := 1; ; attempt++ {
		if t.cfg.MaxReconnectTries > 0 && attempt > t.cfg.MaxReconnectTries {
			t.logger.Warn().Int("attempts", attempt-1).Msg("giving up on reconnection")
			t.mu.Lock()
			onDisconnect := t.onDisconnect
			t.mu.Unlock()
			if onDisconnect != nil {
				onDisconnect(WrapError(ErrorConnectionLost, "reconnect attempts exhausted", ErrReconnectExhausted))
			}
			return
		}
		time.Sleep(delay)
		if t.isClosed() {
			return
		}
		if err := t.dial(context.Background()); err != nil {
			t.logger.Debug().Err(err).Int("attempt", attempt).Msg("reconnect failed")
			delay *= 2
			if t.cfg.MaxReconnectDelay > 0 && delay > t.cfg.MaxReconnectDelay {
				delay = t.cfg.MaxReconnectDelay
			}
			continue
		}
		return
	}
}

func (t *wsTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func isExpectedDisconnect(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}
