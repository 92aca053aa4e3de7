package sockchat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeTransport is an in-memory Transport: emissions are recorded,
// acknowledgements come from scripted responders, pushes and lifecycle
// transitions are injected directly.
type fakeTransport struct {
	mu           sync.Mutex
	connected    bool
	handlers     map[string]PushHandler
	onConnect    func()
	onDisconnect func(error)
	emitted      []fakeEmit
	responders   map[string]func(payload any) any
}

type fakeEmit struct {
	event   string
	payload any
	ack     AckHandler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		handlers:   make(map[string]PushHandler),
		responders: make(map[string]func(any) any),
	}
}

// respond scripts a fixed acknowledgement for an event.
func (f *fakeTransport) respond(event string, response any) {
	f.mu.Lock()
	f.responders[event] = func(any) any { return response }
	f.mu.Unlock()
}

// respondWith scripts a computed acknowledgement; the function runs
// synchronously inside Emit, so it can also inject faults mid-call.
func (f *fakeTransport) respondWith(event string, fn func(payload any) any) {
	f.mu.Lock()
	f.responders[event] = fn
	f.mu.Unlock()
}

// silence removes the responder so emissions stay unacknowledged.
func (f *fakeTransport) silence(event string) {
	f.mu.Lock()
	delete(f.responders, event)
	f.mu.Unlock()
}

func (f *fakeTransport) Connect(context.Context) error {
	f.mu.Lock()
	f.connected = true
	onConnect := f.onConnect
	f.mu.Unlock()
	if onConnect != nil {
		onConnect()
	}
	return nil
}

func (f *fakeTransport) Emit(_ context.Context, event string, payload any, ack AckHandler) error {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return NewError(ErrorNotConnected, "not connected")
	}
	f.emitted = append(f.emitted, fakeEmit{event: event, payload: payload, ack: ack})
	responder := f.responders[event]
	f.mu.Unlock()

	if ack != nil && responder != nil {
		data, err := json.Marshal(responder(payload))
		if err != nil {
			return err
		}
		ack(data)
	}
	return nil
}

func (f *fakeTransport) On(event string, fn PushHandler) {
	f.mu.Lock()
	f.handlers[event] = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnConnect(fn func()) {
	f.mu.Lock()
	f.onConnect = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnDisconnect(fn func(err error)) {
	f.mu.Lock()
	f.onDisconnect = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Close() error {
	f.drop(nil)
	return nil
}

// drop simulates an unexpected connection loss.
func (f *fakeTransport) drop(err error) {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return
	}
	f.connected = false
	onDisconnect := f.onDisconnect
	f.mu.Unlock()
	if onDisconnect != nil {
		onDisconnect(err)
	}
}

// giveUp reports that the transport stopped retrying after exhausting
// its reconnection budget.
func (f *fakeTransport) giveUp() {
	f.mu.Lock()
	onDisconnect := f.onDisconnect
	f.mu.Unlock()
	if onDisconnect != nil {
		onDisconnect(WrapError(ErrorConnectionLost, "reconnect attempts exhausted", ErrReconnectExhausted))
	}
}

// push injects a named server event.
func (f *fakeTransport) push(t *testing.T, event string, payload any) {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	f.mu.Lock()
	fn := f.handlers[event]
	f.mu.Unlock()
	require.NotNil(t, fn, "no handler registered for %s", event)
	fn(data)
}

// pushRaw injects a raw payload without marshaling.
func (f *fakeTransport) pushRaw(t *testing.T, event string, data string) {
	t.Helper()
	f.mu.Lock()
	fn := f.handlers[event]
	f.mu.Unlock()
	require.NotNil(t, fn, "no handler registered for %s", event)
	fn(json.RawMessage(data))
}

func (f *fakeTransport) emitCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.emitted {
		if e.event == event {
			n++
		}
	}
	return n
}

func (f *fakeTransport) lastEmit(t *testing.T) fakeEmit {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.emitted)
	return f.emitted[len(f.emitted)-1]
}

// okRegistry scripts the standard happy-path acknowledgements.
func (f *fakeTransport) okRegistry(users []string, groups []Group) {
	f.respond(eventRegister, Result{Success: true, Message: "registered"})
	f.respond(eventGetUsers, usersAck{Success: true, Users: users})
	f.respond(eventGetGroups, groupsAck{Success: true, Groups: groups})
}

// newTestClient wires a client to a fake transport with a long refresh
// interval so the periodic timer never interferes with assertions.
func newTestClient(t *testing.T) (*Client, *fakeTransport) {
	t.Helper()
	return newTestClientInterval(t, time.Hour) // effectively never
}

// newTestClientInterval wires a client whose periodic directory refresh
// fires at the given interval.
func newTestClientInterval(t *testing.T, interval time.Duration) (*Client, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	cfg := DefaultConfig()
	cfg.RefreshInterval = interval
	c := NewClientWithTransport(cfg, ft)
	t.Cleanup(func() { _ = c.Close() })
	return c, ft
}

// refreshArmed reports whether the periodic refresh ticker is running.
func (c *Client) refreshArmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshStop != nil
}
