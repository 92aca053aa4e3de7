package sockchat

// ConnectionState represents the lifecycle of the server connection.
type ConnectionState int

const (
	// StateDisconnected means there is no open channel to the server.
	StateDisconnected ConnectionState = iota

	// StateConnecting means the transport is dialing, including retry
	// periods after a drop.
	StateConnecting

	// StateConnected means the transport has an open channel.
	StateConnected

	// StateReady means requests may be issued and are expected to be
	// answered.
	StateReady
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// StateEvent describes a single state transition.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Err      error // optional error that caused the transition
}
