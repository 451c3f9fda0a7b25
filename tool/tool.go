// Package tool implements the function / tool calling subsystem that lets
// agents invoke structured capabilities (APIs, computations, side effects)
// with schema validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/agentcrew/agentcrew/internal/util"
	"github.com/agentcrew/agentcrew/logging"
)

// Tool defines the interface for extending agent capabilities with external
// functions.
//
// Tools are registered with agents to enable function calling, allowing
// agents to perform actions beyond text generation such as API calls,
// calculations, database queries, or any other programmatic operations.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Tool interface {
	// Name returns the unique identifier for this tool.
	// Names should follow function naming conventions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	// This description is provided to the LLM to help it understand when and
	// how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	// This schema is used for parameter validation and LLM function calling.
	Parameters() map[string]any

	// Call executes the tool with structured arguments and an execution
	// Context. Arguments are parsed from JSON and validated against the
	// tool's schema before the handler runs.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// Context carries the per-call execution environment handed to tools:
// cancellation, logging, and correlation identifiers.
type Context struct {
	ctx     context.Context
	logger  logging.Logger
	agentID string
	callID  string
}

// NewContext constructs a tool execution context. A nil logger defaults to
// the no-op logger.
func NewContext(ctx context.Context, logger logging.Logger, agentID, callID string) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Context{ctx: ctx, logger: logger, agentID: agentID, callID: callID}
}

// Context returns the cancellation context for the call.
func (c *Context) Context() context.Context { return c.ctx }

// Logger returns the logger scoped to this call.
func (c *Context) Logger() logging.Logger { return c.logger }

// AgentID returns the identifier of the agent executing the call.
func (c *Context) AgentID() string { return c.agentID }

// CallID returns the provider-assigned tool call identifier, correlating
// the model request with the execution.
func (c *Context) CallID() string { return c.callID }

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
