package sockchat

import "time"

// Config controls how the client connects and refreshes.
type Config struct {
	URL string

	HandshakeTimeout time.Duration
	// ReadTimeout of 0 disables the read deadline; the server's ping/pong
	// handles idle detection.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// CallTimeout bounds correlated calls issued by background activity
	// (re-registration, periodic refresh).
	CallTimeout time.Duration

	AutoReconnect     bool
	ReconnectInterval time.Duration
	MaxReconnectDelay time.Duration
	// MaxReconnectTries of 0 means retry forever.
	MaxReconnectTries int

	// RefreshInterval is the period of the directory pull while a session
	// is active.
	RefreshInterval time.Duration

	// IdentityPath is where the last registered identity is persisted.
	// Empty disables persistence.
	IdentityPath string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		CallTimeout:       10 * time.Second,
		AutoReconnect:     true,
		ReconnectInterval: 2 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		RefreshInterval:   30 * time.Second,
	}
}
