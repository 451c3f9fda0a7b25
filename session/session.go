// Package session provides pluggable history stores. The conversation
// itself remains the engine-owned source of truth; a store is an optional
// sink that receives every appended message, letting callers persist or
// inspect history without touching the engine.
//
// Add additional backends (Redis, Postgres, ...) in sub-packages without
// changing any calling code; only the wiring layer decides which
// implementation to instantiate.
package session

import "github.com/agentcrew/agentcrew/core"

// Store receives conversation history. Append is called once per message
// in conversation order; implementations must be safe for concurrent use
// across conversations.
type Store interface {
	// Append records messages for a conversation.
	Append(conversationID string, msgs ...core.Message) error

	// Messages returns the recorded history for a conversation in append
	// order. Unknown conversations yield an empty slice.
	Messages(conversationID string) ([]core.Message, error)

	// Delete removes all recorded history for a conversation.
	Delete(conversationID string) error
}
