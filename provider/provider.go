// Package provider defines the narrow adapter interface the conversation
// engine uses to talk to AI backends. Concrete adapters live in the
// subpackages (openai, anthropic, google); StaticProvider is an in-memory
// implementation for tests and examples.
package provider

import (
	"context"

	"github.com/agentcrew/agentcrew/core"
)

// ToolDefinition declaratively exposes a callable function to the provider.
// Parameters is a JSON Schema object (minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request carries the full ordered message history plus the active tool
// definitions for one chat exchange.
type Request struct {
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// Response is the normalized result of a chat exchange. ToolCalls is
// non-empty when the model wants tools executed before producing a final
// answer.
type Response struct {
	Content      string           `json:"content"`
	ToolCalls    []core.ToolCall  `json:"tool_calls,omitempty"`
	FinishReason string           `json:"finish_reason,omitempty"`
	Usage        *core.TokenUsage `json:"usage,omitempty"`
}

// HasToolCalls reports whether the model requested tool execution.
func (r *Response) HasToolCalls() bool { return len(r.ToolCalls) > 0 }

// Chunk is one element of a streamed response. Delta carries an incremental
// piece of assistant text; Final is set exactly once, on the terminal chunk,
// with the complete normalized response.
type Chunk struct {
	Delta string    `json:"delta,omitempty"`
	Final *Response `json:"final,omitempty"`
}

// Info describes a provider implementation.
type Info struct {
	Name          string `json:"name"`     // model identifier, e.g. "gpt-4o-mini"
	Provider      string `json:"provider"` // "openai", "anthropic", "google", "static"
	SupportsTools bool   `json:"supports_tools"`
}

// Provider is the minimal interface the engine needs from an AI backend.
// ChatStream returns a finite, non-restartable sequence of chunks; a new
// call starts a new stream. Implementations close both channels when done
// and deliver at most one error.
type Provider interface {
	Chat(ctx context.Context, req Request) (*Response, error)
	ChatStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error)

	// Info returns metadata about the provider implementation.
	Info() Info
}
