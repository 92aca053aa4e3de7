package sockchat

import (
	"time"

	"github.com/google/uuid"
)

// MessageKind classifies a timeline entry by origin and addressing.
type MessageKind int

const (
	// KindPrivateSent is a direct message authored locally.
	KindPrivateSent MessageKind = iota

	// KindPrivateReceived is a direct message pushed by the server.
	KindPrivateReceived

	// KindGroup is a message in a group conversation, sent or received.
	KindGroup

	// KindNotification is a server-authored group announcement.
	KindNotification
)

// String returns the string representation of a MessageKind.
func (k MessageKind) String() string {
	switch k {
	case KindPrivateSent:
		return "private-sent"
	case KindPrivateReceived:
		return "private-received"
	case KindGroup:
		return "group"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// DeliveryStatus tracks the fate of an optimistically appended entry.
// Inbound messages are confirmed at birth; outbound entries start pending
// and are settled by the acknowledgement of their send.
type DeliveryStatus int

const (
	StatusPending DeliveryStatus = iota
	StatusConfirmed
	StatusFailed
)

// String returns the string representation of a DeliveryStatus.
func (s DeliveryStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ChatMessage is one entry in the timeline. ID is client-generated and is
// the sole deduplication key. Status is the only field mutated after
// insertion.
type ChatMessage struct {
	ID        string
	Kind      MessageKind
	From      string
	To        string
	Group     string
	Content   string
	Timestamp time.Time
	Status    DeliveryStatus
}

// newMessageID generates a unique id at the ingestion point. The server
// does not supply ids, so authoring one is the ingester's responsibility.
func newMessageID() string {
	return uuid.NewString()
}

// parseTimestamp decodes a server timestamp, falling back to receipt time
// when the field is missing or malformed.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now()
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Now()
}
