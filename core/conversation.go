package core

import (
	"sync"
	"time"
)

// Conversation is the ordered, append-only message history owned by exactly
// one conversation engine. Mutation happens only through Append; there are no
// in-place edits. Appends are serialized by an internal mutex so the history
// is never interleaved by two concurrent writers even when parallel tool
// execution or delegated agents complete out of order relative to each other.
//
// Contract:
//   - Messages returns a defensive copy
//   - the first message, if any, is the system prompt
//   - Created/Updated timestamps track lifecycle for inspection
type Conversation struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`

	mu       sync.RWMutex
	messages []Message
}

// NewConversation creates an empty conversation. If systemPrompt is non-empty
// a system message is appended as the first entry.
func NewConversation(systemPrompt string) *Conversation {
	now := time.Now().UTC()
	c := &Conversation{ID: NewID(), Created: now, Updated: now}
	if systemPrompt != "" {
		c.messages = append(c.messages, NewSystemMessage(systemPrompt))
	}
	return c
}

// Append adds messages to the end of the history in the given order.
func (c *Conversation) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msgs...)
	c.Updated = time.Now().UTC()
}

// Messages returns a copy of the full ordered history.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages in the history.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message and true, or a zero Message and false
// for an empty conversation.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// LastAssistantText returns the content of the most recent assistant message
// that carries no tool calls, or "" if none exists yet.
func (c *Conversation) LastAssistantText() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := len(c.messages) - 1; i >= 0; i-- {
		m := c.messages[i]
		if m.Role == RoleAssistant && !m.HasToolCalls() {
			return m.Content
		}
	}
	return ""
}
