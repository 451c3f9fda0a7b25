package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem carries the system prompt; at most one per conversation,
	// always first.
	RoleSystem Role = "system"
	// RoleUser is caller-supplied input.
	RoleUser Role = "user"
	// RoleAssistant is model output, optionally carrying tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool is the result of a tool execution, correlated to an
	// assistant tool call via ToolCallID.
	RoleTool Role = "tool"
)

// ToolCall is a function invocation request surfaced by a provider. The ID
// correlates the later tool-result message with this call; Arguments is the
// raw JSON argument payload exactly as the provider emitted it.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single entry in a Conversation.
//
// Invariants (enforced by the engine, not the type):
//   - a RoleTool message always follows an assistant message that declared
//     a ToolCall with a matching ToolCallID
//   - the first message of a conversation, if present, has RoleSystem
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// NewSystemMessage creates a system prompt message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now().UTC()}
}

// NewUserMessage creates a user input message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantMessage creates a plain assistant text message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now().UTC()}
}

// NewAssistantToolCallMessage creates an assistant message that requests one
// or more tool executions. Content may be empty when the model emitted only
// tool calls.
func NewAssistantToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls, Timestamp: time.Now().UTC()}
}

// NewToolResultMessage creates a tool-result message correlated to the
// originating tool call.
func NewToolResultMessage(toolCallID, toolName, content string) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		Name:       toolName,
		Timestamp:  time.Now().UTC(),
	}
}

// HasToolCalls reports whether this message requests tool executions.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// NewID generates a unique identifier used for conversations, invocations
// and synthetic tool call IDs.
func NewID() string { return uuid.NewString() }
