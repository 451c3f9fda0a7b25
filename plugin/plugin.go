// Package plugin implements the lifecycle hook pipeline fired around every
// agent execution stage. Plugins are observers: a hook failure (error or
// panic) is caught, logged and suppressed so observability code can never
// corrupt the primary execution path.
package plugin

import (
	"context"
	"time"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/provider"
)

// Stage identifies the execution span a hook fires around.
type Stage string

const (
	// StageRun spans one complete run/runStream invocation.
	StageRun Stage = "run"

	// StageProviderCall spans one chat exchange with the provider.
	StageProviderCall Stage = "provider_call"

	// StageToolExecute spans one tool call execution.
	StageToolExecute Stage = "tool_execute"
)

// Context carries stage information to hooks. It is ephemeral: created per
// execution stage, passed by reference, never persisted. Fields are
// populated according to the stage; absent ones are zero.
type Context struct {
	Stage          Stage
	AgentID        string
	ConversationID string

	// Input is the user input for StageRun.
	Input string

	// Messages is a snapshot of the conversation history at stage entry.
	Messages []core.Message

	// ToolCall and ToolResult are set for StageToolExecute.
	ToolCall   *core.ToolCall
	ToolResult any

	// Response is set on the after hook of StageProviderCall.
	Response *provider.Response

	// Err is set for error hooks.
	Err error

	StartedAt time.Time
	Duration  time.Duration // set on after hooks

	// Metadata provides extensible storage for hook-to-hook data within
	// one stage.
	Metadata map[string]any
}

// Plugin is the base interface; concrete capabilities are declared by
// implementing any subset of the hook interfaces below. Absence of a hook
// is a no-op, not an error.
type Plugin interface {
	Name() string
}

// BeforeExecuteHook fires at stage entry.
type BeforeExecuteHook interface {
	BeforeExecute(ctx context.Context, pc *Context) error
}

// AfterExecuteHook fires at stage exit when the stage succeeded.
type AfterExecuteHook interface {
	AfterExecute(ctx context.Context, pc *Context) error
}

// ErrorHook fires when a stage failed.
type ErrorHook interface {
	OnError(ctx context.Context, pc *Context) error
}

// RetryPolicy can be implemented by a plugin to intercept provider errors.
// The engine consults the first registered policy before surfacing a
// provider failure; returning ok=true makes the engine wait the returned
// delay and retry the call.
type RetryPolicy interface {
	ShouldRetry(attempt int, err error) (time.Duration, bool)
}
