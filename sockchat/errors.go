package sockchat

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	ErrorUnknown ErrorCode = iota

	// ErrorValidation means the input was rejected locally and never
	// reached the wire (empty username, empty message, ...).
	ErrorValidation

	// ErrorNotConnected means the command was issued without an open
	// channel to the server.
	ErrorNotConnected

	// ErrorConnectionLost means the connection dropped while a request
	// was in flight.
	ErrorConnectionLost

	// ErrorServerRejected means the server acknowledged the request with
	// a failure; the server's message is surfaced verbatim.
	ErrorServerRejected

	// ErrorMalformedEvent means a pushed payload failed decoding or field
	// checks. Fatal to that event only, never to the session.
	ErrorMalformedEvent

	// ErrorSerialization means a frame could not be encoded or decoded.
	ErrorSerialization

	// ErrorInvalidConfig means the client configuration is unusable.
	ErrorInvalidConfig

	// ErrorTimeout means the caller's context expired before the
	// acknowledgement arrived.
	ErrorTimeout
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorValidation:
		return "validation"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorConnectionLost:
		return "connection_lost"
	case ErrorServerRejected:
		return "server_rejected"
	case ErrorMalformedEvent:
		return "malformed_event"
	case ErrorSerialization:
		return "serialization_error"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorTimeout:
		return "timeout"
	case ErrorUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Wrapped: err}
}

// ErrReconnectExhausted is reported through OnDisconnect and
// OnStateChanged when automatic reconnection stops after
// MaxReconnectTries failed attempts. No further attempts follow until
// Connect is called again.
var ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

// IsConnectionError reports whether err is a connectivity failure.
func IsConnectionError(err error) bool {
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorNotConnected || ce.Code == ErrorConnectionLost || ce.Code == ErrorTimeout
}

// IsValidationError reports whether err is a local input rejection.
func IsValidationError(err error) bool {
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorValidation
}

// errorMessage extracts the human-facing message for a failed Result.
func errorMessage(err error) string {
	var ce *ChatError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return err.Error()
}
