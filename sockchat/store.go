package sockchat

import (
	"sync"

	"github.com/samber/lo"
)

// Store is the append-only, deduplicated, receipt-ordered message log.
// Entries are never removed; only their delivery status may change.
type Store struct {
	mu   sync.RWMutex
	seen map[string]struct{}
	msgs []ChatMessage
}

// NewStore returns an empty message store.
func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// Append inserts msg unless its id was seen before. Returns true when the
// message was actually inserted.
func (s *Store) Append(msg ChatMessage) bool {
	if msg.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.seen[msg.ID]; dup {
		return false
	}
	s.seen[msg.ID] = struct{}{}
	s.msgs = append(s.msgs, msg)
	return true
}

// SetStatus updates the delivery status of the entry with the given id.
// Returns false when no such entry exists.
func (s *Store) SetStatus(id string, status DeliveryStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.msgs {
		if s.msgs[i].ID == id {
			s.msgs[i].Status = status
			return true
		}
	}
	return false
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.msgs)
}

// All returns a copy of the full timeline in receipt order.
func (s *Store) All() []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChatMessage, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Conversation returns the direct-message subsequence between self and
// peer, in either direction, in receipt order.
func (s *Store) Conversation(self, peer string) []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.msgs, func(m ChatMessage, _ int) bool {
		if m.Kind != KindPrivateSent && m.Kind != KindPrivateReceived {
			return false
		}
		return (m.From == self && m.To == peer) || (m.From == peer && m.To == self)
	})
}

// GroupConversation returns the messages and notifications addressed to
// one group, in receipt order.
func (s *Store) GroupConversation(group string) []ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lo.Filter(s.msgs, func(m ChatMessage, _ int) bool {
		return (m.Kind == KindGroup || m.Kind == KindNotification) && m.Group == group
	})
}
