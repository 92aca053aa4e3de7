package sockchat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client owns one logical connection to the chat server and reconciles
// identity, the online directory and the message timeline against it. It
// is the single object consuming code talks to; construct it once per
// session and pass it by reference.
type Client struct {
	cfg        Config
	logger     zerolog.Logger
	tr         Transport
	corr       *correlator
	session    *session
	dir        *Directory
	store      *Store
	dispatcher Dispatcher

	mu          sync.Mutex
	state       ConnectionState
	closed      bool
	refreshStop chan struct{}
}

// NewClient constructs a client with the provided config. Use
// DefaultConfig() as a starting point and modify as needed.
func NewClient(cfg Config) *Client {
	logger := zerolog.Nop()
	c := &Client{
		cfg:    cfg,
		logger: logger,
		tr:     newWSTransport(cfg, logger),
	}
	c.init()
	return c
}

// NewClientWithTransport constructs a client over a caller-supplied
// transport. Useful for tests and alternative wire implementations.
func NewClientWithTransport(cfg Config, tr Transport) *Client {
	c := &Client{
		cfg:    cfg,
		logger: zerolog.Nop(),
		tr:     tr,
	}
	c.init()
	return c
}

func (c *Client) init() {
	c.corr = newCorrelator()
	c.dir = NewDirectory()
	c.store = NewStore()

	var ids IdentityStore
	if c.cfg.IdentityPath != "" {
		ids = NewFileIdentityStore(c.cfg.IdentityPath)
	}
	c.session = newSession(ids)

	c.tr.OnConnect(c.handleConnect)
	c.tr.OnDisconnect(c.handleDisconnect)
	c.tr.On(eventPrivateMessage, c.handlePrivateMessage)
	c.tr.On(eventGroupMessage, c.handleGroupMessage)
	c.tr.On(eventGroupNotification, c.handleGroupNotification)
}

// SetLogger overrides the logger (optional, call before Connect).
func (c *Client) SetLogger(l zerolog.Logger) {
	c.logger = l
	if t, ok := c.tr.(*wsTransport); ok {
		t.logger = l
	}
}

// SetIdentityStore overrides identity persistence (optional, call before
// Connect).
func (c *Client) SetIdentityStore(store IdentityStore) {
	c.session.setStore(store)
}

// OnStateChanged registers a callback for connection state transitions.
func (c *Client) OnStateChanged(fn func(StateEvent)) { c.dispatcher.SetOnStateChanged(fn) }

// OnMessage registers a callback fired for every appended timeline entry.
func (c *Client) OnMessage(fn func(ChatMessage)) { c.dispatcher.SetOnMessage(fn) }

// OnDirectoryChanged registers a callback fired after a snapshot refresh.
func (c *Client) OnDirectoryChanged(fn func()) { c.dispatcher.SetOnDirectoryChanged(fn) }

// OnSessionRejected registers a callback fired when automatic
// re-registration is rejected by the server and the identity is dropped.
func (c *Client) OnSessionRejected(fn func(message string)) { c.dispatcher.SetOnSessionRejected(fn) }

// OnError registers a callback for non-fatal errors (malformed pushes,
// background refresh failures).
func (c *Client) OnError(fn func(error)) { c.dispatcher.SetOnError(fn) }

// Connect opens the connection. The transport keeps retrying in the
// background afterwards when AutoReconnect is set; observe progress via
// OnStateChanged.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting, nil)
	if err := c.tr.Connect(ctx); err != nil {
		c.setState(StateDisconnected, err)
		return err
	}
	return nil
}

// Close shuts the client down permanently.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.stopRefresh()
	err := c.tr.Close()
	c.setState(StateDisconnected, nil)
	return err
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsConnected reports whether the transport has an open channel.
func (c *Client) IsConnected() bool { return c.State() >= StateConnected }

// IsReady reports whether requests may be issued.
func (c *Client) IsReady() bool { return c.State() == StateReady }

// Identity returns the local identity. It is retained across connection
// drops so re-registration can be attempted; "" means unregistered.
func (c *Client) Identity() string { return c.session.Identity() }

// Users returns the current online-user snapshot, excluding self.
func (c *Client) Users() []string { return c.dir.Users() }

// Groups returns the current group roster snapshot.
func (c *Client) Groups() []Group { return c.dir.Groups() }

// GroupInfo looks up one roster entry by name.
func (c *Client) GroupInfo(name string) (Group, bool) { return c.dir.Group(name) }

// Messages returns the full timeline in receipt order.
func (c *Client) Messages() []ChatMessage { return c.store.All() }

// Conversation returns the direct-message timeline with one peer.
func (c *Client) Conversation(peer string) []ChatMessage {
	return c.store.Conversation(c.session.Identity(), peer)
}

// GroupConversation returns the timeline of one group, notifications
// included.
func (c *Client) GroupConversation(group string) []ChatMessage {
	return c.store.GroupConversation(group)
}

// Register claims name as the local identity. Empty names are rejected
// locally; server rejections are surfaced verbatim. On success the
// directory is refreshed immediately and the periodic refresh starts.
func (c *Client) Register(ctx context.Context, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return failure(ErrorValidation, "username required")
	}
	if !c.IsReady() {
		return failure(ErrorNotConnected, "not connected")
	}

	res := c.callResult(ctx, eventRegister, name)
	if !res.Success {
		return res
	}

	c.session.confirm(name)
	if r := c.refreshDirectory(ctx); !r.Success {
		c.logger.Debug().Str("reason", r.Message).Msg("directory refresh failed after register")
	}
	c.startRefresh()
	return res
}

// Logout forgets the identity, locally and in the persisted store. The
// connection stays up; a new Register may follow.
func (c *Client) Logout() {
	c.stopRefresh()
	c.session.clear()
}

// SendPrivateMessage sends a direct message. The entry is appended
// optimistically with StatusPending and settled in place when the
// acknowledgement resolves; a failed send is never retracted.
func (c *Client) SendPrivateMessage(ctx context.Context, to, content string) Result {
	to = strings.TrimSpace(to)
	if to == "" {
		return failure(ErrorValidation, "recipient required")
	}
	return c.sendMessage(ctx, ChatMessage{Kind: KindPrivateSent, To: to},
		eventPrivateMessage, func(content string) any {
			return privateMessagePayload{To: to, Message: content}
		}, content)
}

// SendGroupMessage posts a message to a joined group, with the same
// optimistic-append contract as SendPrivateMessage.
func (c *Client) SendGroupMessage(ctx context.Context, group, content string) Result {
	group = strings.TrimSpace(group)
	if group == "" {
		return failure(ErrorValidation, "group name required")
	}
	return c.sendMessage(ctx, ChatMessage{Kind: KindGroup, Group: group},
		eventGroupMessage, func(content string) any {
			return groupMessagePayload{Group: group, Message: content}
		}, content)
}

func (c *Client) sendMessage(ctx context.Context, template ChatMessage, event string, payload func(string) any, content string) Result {
	content = strings.TrimSpace(content)
	if content == "" {
		return failure(ErrorValidation, "message required")
	}
	if !c.IsReady() {
		return failure(ErrorNotConnected, "not connected")
	}
	self := c.session.Identity()
	if self == "" || !c.session.isConfirmed() {
		return failure(ErrorValidation, "not registered")
	}

	msg := template
	msg.ID = newMessageID()
	msg.From = self
	msg.Content = content
	msg.Timestamp = time.Now()
	msg.Status = StatusPending
	c.append(msg)

	res := c.callResult(ctx, event, payload(content))
	if res.Success {
		c.store.SetStatus(msg.ID, StatusConfirmed)
	} else {
		c.store.SetStatus(msg.ID, StatusFailed)
	}
	return res
}

// JoinGroup joins (creating if needed, per server policy) a group. On
// success the directory is refreshed so the roster reflects server truth
// rather than a speculative local patch.
func (c *Client) JoinGroup(ctx context.Context, name string) Result {
	return c.membershipCall(ctx, eventJoinGroup, name)
}

// LeaveGroup leaves a group, refreshing the directory on success.
func (c *Client) LeaveGroup(ctx context.Context, name string) Result {
	return c.membershipCall(ctx, eventLeaveGroup, name)
}

func (c *Client) membershipCall(ctx context.Context, event, name string) Result {
	name = strings.TrimSpace(name)
	if name == "" {
		return failure(ErrorValidation, "group name required")
	}
	if !c.IsReady() {
		return failure(ErrorNotConnected, "not connected")
	}
	res := c.callResult(ctx, event, name)
	if res.Success {
		if r := c.refreshDirectory(ctx); !r.Success {
			c.logger.Debug().Str("reason", r.Message).Msg("directory refresh failed after membership change")
		}
	}
	return res
}

// GetUsers pulls the online roster and replaces the local snapshot.
func (c *Client) GetUsers(ctx context.Context) Result {
	raw, err := c.corr.call(ctx, c.tr, eventGetUsers, nil)
	if err != nil {
		return resultFromError(err)
	}
	var ack usersAck
	if err := UnmarshalData(raw, &ack); err != nil {
		return failure(ErrorSerialization, "malformed acknowledgement")
	}
	if !ack.Success {
		return Result{Success: false, Message: orDefault(ack.Message, "getUsers rejected")}
	}
	c.dir.ReplaceUsers(ack.Users, c.session.Identity())
	c.dispatcher.fireDirectoryChanged()
	return Result{Success: true}
}

// GetGroups pulls the group roster and replaces the local snapshot.
func (c *Client) GetGroups(ctx context.Context) Result {
	raw, err := c.corr.call(ctx, c.tr, eventGetGroups, nil)
	if err != nil {
		return resultFromError(err)
	}
	var ack groupsAck
	if err := UnmarshalData(raw, &ack); err != nil {
		return failure(ErrorSerialization, "malformed acknowledgement")
	}
	if !ack.Success {
		return Result{Success: false, Message: orDefault(ack.Message, "getGroups rejected")}
	}
	c.dir.ReplaceGroups(ack.Groups)
	c.dispatcher.fireDirectoryChanged()
	return Result{Success: true}
}

// RefreshDirectory pulls both snapshots out of cycle.
func (c *Client) RefreshDirectory(ctx context.Context) Result {
	if !c.IsReady() {
		return failure(ErrorNotConnected, "not connected")
	}
	return c.refreshDirectory(ctx)
}

// lifecycle

func (c *Client) handleConnect() {
	c.setState(StateConnected, nil)
	c.setState(StateReady, nil)
	c.maybeRestoreSession()
}

func (c *Client) handleDisconnect(err error) {
	c.corr.failAll(NewError(ErrorConnectionLost, "connection lost"))
	c.session.dropConnection()
	c.setState(StateDisconnected, err)

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if !closed && c.cfg.AutoReconnect && !errors.Is(err, ErrReconnectExhausted) {
		c.setState(StateConnecting, nil)
	}

	// Stop the ticker after leaving Ready: startRefresh only arms while
	// Ready, so a ticker armed concurrently is always caught here.
	c.stopRefresh()
}

// maybeRestoreSession re-registers the retained identity after the
// connection comes (back) up. Connectivity failures leave the identity in
// place for the next attempt; a server rejection clears it and is
// surfaced through OnSessionRejected.
func (c *Client) maybeRestoreSession() {
	name := c.session.restoreCandidate()
	if name == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout())
	defer cancel()

	raw, err := c.corr.call(ctx, c.tr, eventRegister, name)
	if err != nil {
		c.logger.Debug().Err(err).Msg("re-registration deferred")
		return
	}
	var res Result
	if err := UnmarshalData(raw, &res); err != nil {
		c.dispatcher.fireError(WrapError(ErrorSerialization, "malformed register acknowledgement", err))
		return
	}
	if !res.Success {
		c.session.clear()
		c.dispatcher.fireSessionRejected(res.Message)
		return
	}

	c.session.confirm(name)
	if r := c.refreshDirectory(ctx); !r.Success {
		c.logger.Debug().Str("reason", r.Message).Msg("directory refresh failed after restore")
	}
	c.startRefresh()
	c.logger.Info().Str("identity", name).Msg("session restored")
}

func (c *Client) setState(next ConnectionState, err error) {
	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	c.mu.Unlock()
	c.dispatcher.fireStateChanged(StateEvent{OldState: prev, NewState: next, Err: err})
}

// directory refresh ticker; at most one per confirmed session.

func (c *Client) startRefresh() {
	interval := c.cfg.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if !c.session.isConfirmed() {
		return
	}
	// Arm only while Ready. handleDisconnect exits Ready before it stops
	// the ticker, so a ticker armed under this check cannot outlive the
	// drop that races it.
	c.mu.Lock()
	if c.refreshStop != nil || c.closed || c.state != StateReady {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.refreshStop = stop
	c.mu.Unlock()
	go c.refreshLoop(interval, stop)
}

func (c *Client) stopRefresh() {
	c.mu.Lock()
	stop := c.refreshStop
	c.refreshStop = nil
	c.mu.Unlock()
	if stop != nil {
		close(stop)
	}
}

func (c *Client) refreshLoop(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.callTimeout())
			res := c.refreshDirectory(ctx)
			cancel()
			if !res.Success {
				c.logger.Debug().Str("reason", res.Message).Msg("periodic directory refresh failed")
			}
		}
	}
}

func (c *Client) refreshDirectory(ctx context.Context) Result {
	if res := c.GetUsers(ctx); !res.Success {
		return res
	}
	return c.GetGroups(ctx)
}

// push ingestion

func (c *Client) handlePrivateMessage(data json.RawMessage) {
	var ev PrivateMessageEvent
	if err := UnmarshalData(data, &ev); err != nil || ev.From == "" || ev.Message == "" {
		c.dispatcher.fireError(NewError(ErrorMalformedEvent, "malformed privateMessage payload"))
		return
	}
	c.append(ChatMessage{
		ID:        newMessageID(),
		Kind:      KindPrivateReceived,
		From:      ev.From,
		To:        c.session.Identity(),
		Content:   ev.Message,
		Timestamp: parseTimestamp(ev.Timestamp),
		Status:    StatusConfirmed,
	})
}

func (c *Client) handleGroupMessage(data json.RawMessage) {
	var ev GroupMessageEvent
	if err := UnmarshalData(data, &ev); err != nil || ev.From == "" || ev.Group == "" || ev.Message == "" {
		c.dispatcher.fireError(NewError(ErrorMalformedEvent, "malformed groupMessage payload"))
		return
	}
	c.append(ChatMessage{
		ID:        newMessageID(),
		Kind:      KindGroup,
		From:      ev.From,
		Group:     ev.Group,
		Content:   ev.Message,
		Timestamp: parseTimestamp(ev.Timestamp),
		Status:    StatusConfirmed,
	})
}

func (c *Client) handleGroupNotification(data json.RawMessage) {
	var ev GroupNotificationEvent
	if err := UnmarshalData(data, &ev); err != nil || ev.Group == "" || ev.Message == "" {
		c.dispatcher.fireError(NewError(ErrorMalformedEvent, "malformed groupNotification payload"))
		return
	}
	c.append(ChatMessage{
		ID:        newMessageID(),
		Kind:      KindNotification,
		Group:     ev.Group,
		Content:   ev.Message,
		Timestamp: parseTimestamp(ev.Timestamp),
		Status:    StatusConfirmed,
	})
}

// helpers

func (c *Client) append(msg ChatMessage) {
	if c.store.Append(msg) {
		c.dispatcher.fireMessage(msg)
	}
}

func (c *Client) callResult(ctx context.Context, event string, payload any) Result {
	raw, err := c.corr.call(ctx, c.tr, event, payload)
	if err != nil {
		return resultFromError(err)
	}
	var res Result
	if err := UnmarshalData(raw, &res); err != nil {
		return failure(ErrorSerialization, "malformed acknowledgement")
	}
	return res
}

func (c *Client) callTimeout() time.Duration {
	if c.cfg.CallTimeout > 0 {
		return c.cfg.CallTimeout
	}
	return 10 * time.Second
}

// failure folds a locally produced ChatError into the uniform Result
// shape so every rejection carries a taxonomy code.
func failure(code ErrorCode, message string) Result {
	return resultFromError(NewError(code, message))
}

func resultFromError(err error) Result {
	return Result{Success: false, Message: errorMessage(err)}
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
