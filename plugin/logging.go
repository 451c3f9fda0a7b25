package plugin

import (
	"context"

	"github.com/agentcrew/agentcrew/logging"
)

// LoggingPlugin emits a structured log line at every lifecycle point.
type LoggingPlugin struct {
	logger logging.Logger
}

// NewLoggingPlugin creates the logging plugin.
func NewLoggingPlugin(logger logging.Logger) *LoggingPlugin {
	if logger == nil {
		logger = logging.NewDefaultSlogLogger()
	}
	return &LoggingPlugin{logger: logger}
}

// Name implements Plugin.
func (p *LoggingPlugin) Name() string { return "logging" }

// BeforeExecute implements BeforeExecuteHook.
func (p *LoggingPlugin) BeforeExecute(_ context.Context, pc *Context) error {
	args := []any{"stage", string(pc.Stage), "agent_id", pc.AgentID}
	if pc.ToolCall != nil {
		args = append(args, "tool", pc.ToolCall.Name, "call_id", pc.ToolCall.ID)
	}
	p.logger.Debug("stage.start", args...)
	return nil
}

// AfterExecute implements AfterExecuteHook.
func (p *LoggingPlugin) AfterExecute(_ context.Context, pc *Context) error {
	args := []any{
		"stage", string(pc.Stage),
		"agent_id", pc.AgentID,
		"duration_ms", pc.Duration.Milliseconds(),
	}
	if pc.Response != nil && pc.Response.Usage != nil {
		args = append(args, "total_tokens", pc.Response.Usage.TotalTokens)
	}
	if pc.ToolCall != nil {
		args = append(args, "tool", pc.ToolCall.Name)
	}
	p.logger.Info("stage.complete", args...)
	return nil
}

// OnError implements ErrorHook.
func (p *LoggingPlugin) OnError(_ context.Context, pc *Context) error {
	p.logger.Error("stage.failed",
		"stage", string(pc.Stage),
		"agent_id", pc.AgentID,
		"error", pc.Err,
	)
	return nil
}
