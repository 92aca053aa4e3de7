package sockchat

import "encoding/json"

const (
	frameEvent = "event"
	frameAck   = "ack"
)

// Inbound is the envelope from client to server. Seq is nonzero iff an
// acknowledgement was requested; the server echoes it on the ack frame.
type Inbound struct {
	Type  string `json:"type"`
	Event string `json:"event"`
	Seq   uint64 `json:"seq,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Outbound is the envelope server -> client: either a named event push or
// the acknowledgement of a previously emitted request.
type Outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Seq   uint64          `json:"seq,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Result is the uniform acknowledgement shape for commands.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// privateMessagePayload is the outbound privateMessage body.
type privateMessagePayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// groupMessagePayload is the outbound groupMessage body.
type groupMessagePayload struct {
	Group   string `json:"group"`
	Message string `json:"message"`
}

// usersAck is the acknowledgement of getUsers.
type usersAck struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Users   []string `json:"users"`
}

// groupsAck is the acknowledgement of getGroups.
type groupsAck struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Groups  []Group `json:"groups"`
}

// UnmarshalData decodes RawMessage into target.
func UnmarshalData(data json.RawMessage, v any) error {
	return json.Unmarshal(data, v)
}
