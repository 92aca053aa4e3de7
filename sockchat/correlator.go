package sockchat

import (
	"context"
	"encoding/json"
	"sync"
)

// correlator matches emitted requests to their single acknowledgement.
// Every outstanding request resolves exactly once: with the ack payload,
// with a connectivity failure when the connection drops, or with a timeout
// when the caller's context expires. Whichever signal arrives first wins;
// later signals are no-ops.
type correlator struct {
	mu      sync.Mutex
	pending map[*pendingCall]struct{}
}

type pendingCall struct {
	once sync.Once
	done chan callOutcome
}

type callOutcome struct {
	data json.RawMessage
	err  error
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[*pendingCall]struct{})}
}

// call emits event with payload and blocks until the acknowledgement
// arrives or the request is terminated. When the transport is down the
// call resolves immediately without touching it. No retry is performed.
func (c *correlator) call(ctx context.Context, tr Transport, event string, payload any) (json.RawMessage, error) {
	if !tr.Connected() {
		return nil, NewError(ErrorNotConnected, "not connected")
	}

	p := &pendingCall{done: make(chan callOutcome, 1)}
	c.track(p)

	err := tr.Emit(ctx, event, payload, func(data json.RawMessage) {
		c.resolve(p, data, nil)
	})
	if err != nil {
		c.resolve(p, nil, WrapError(ErrorNotConnected, "not connected", err))
	}

	select {
	case out := <-p.done:
		return out.data, out.err
	case <-ctx.Done():
		c.resolve(p, nil, WrapError(ErrorTimeout, "request timed out", ctx.Err()))
		out := <-p.done
		return out.data, out.err
	}
}

// failAll resolves every outstanding request with err. Called when the
// hosting connection drops.
func (c *correlator) failAll(err error) {
	c.mu.Lock()
	snapshot := make([]*pendingCall, 0, len(c.pending))
	for p := range c.pending {
		snapshot = append(snapshot, p)
	}
	c.mu.Unlock()

	for _, p := range snapshot {
		c.resolve(p, nil, err)
	}
}

func (c *correlator) track(p *pendingCall) {
	c.mu.Lock()
	c.pending[p] = struct{}{}
	c.mu.Unlock()
}

func (c *correlator) resolve(p *pendingCall, data json.RawMessage, err error) {
	p.once.Do(func() {
		c.mu.Lock()
		delete(c.pending, p)
		c.mu.Unlock()
		p.done <- callOutcome{data: data, err: err}
	})
}

// outstanding reports the number of unresolved requests.
func (c *correlator) outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
