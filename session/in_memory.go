package session

import (
	"sync"

	"github.com/agentcrew/agentcrew/core"
)

// InMemoryStore is a volatile Store implementation keeping history in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo setups. Returned slices are copies to prevent
// external mutation of internal state.
type InMemoryStore struct {
	mu      sync.RWMutex
	history map[string][]core.Message
}

// NewInMemoryStore constructs an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{history: make(map[string][]core.Message)}
}

// Append implements Store.
func (s *InMemoryStore) Append(conversationID string, msgs ...core.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[conversationID] = append(s.history[conversationID], msgs...)
	return nil
}

// Messages implements Store.
func (s *InMemoryStore) Messages(conversationID string) ([]core.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.history[conversationID]
	out := make([]core.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// Delete implements Store.
func (s *InMemoryStore) Delete(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, conversationID)
	return nil
}

// Conversations returns the IDs with recorded history.
func (s *InMemoryStore) Conversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.history))
	for id := range s.history {
		out = append(out, id)
	}
	return out
}
