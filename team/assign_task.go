package team

import (
	"fmt"
	"strings"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/internal/util"
	"github.com/agentcrew/agentcrew/tool"
)

// Tool returns the delegation tool for a parent agent. It is registered
// through the ordinary tool registry so the provider treats delegation
// identically to any other tool.
func (c *Coordinator) Tool() tool.Tool { return c.delegationTool(0) }

func (c *Coordinator) delegationTool(depth int) tool.Tool {
	return &assignTaskTool{coordinator: c, depth: depth}
}

// assignTaskTool routes assign_task calls to the coordinator. The depth
// field carries the recursion depth of the owning agent so nested
// delegations can be bounded.
type assignTaskTool struct {
	coordinator *Coordinator
	depth       int
}

func (t *assignTaskTool) Name() string { return "assign_task" }

func (t *assignTaskTool) Description() string {
	names := t.coordinator.templates.Names()
	desc := "Delegate a sub-task to a specialist agent that runs it to completion and returns the result."
	if len(names) > 0 {
		desc += " Available templates: " + strings.Join(names, ", ") + "."
	}
	if t.coordinator.opts.DynamicAgents {
		desc += " Omit agent_template to create a one-off agent for the task."
	}
	return desc
}

// Parameters builds the schema per call so the agent_template enum always
// reflects the currently registered templates.
func (t *assignTaskTool) Parameters() map[string]any {
	templateProp := map[string]any{
		"type":        "string",
		"description": "Name of the agent template to use",
	}
	if names := t.coordinator.templates.Names(); len(names) > 0 {
		templateProp["enum"] = names
	}

	required := []string{"job_description"}
	if !t.coordinator.opts.DynamicAgents {
		required = append(required, "agent_template")
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"job_description": map[string]any{
				"type":        "string",
				"description": "The task to delegate",
			},
			"context": map[string]any{
				"type":        "string",
				"description": "Additional background for the task",
			},
			"required_tools": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Tool names the agent needs",
			},
			"priority": map[string]any{
				"type":        "string",
				"enum":        []string{"low", "normal", "high"},
				"description": "Task priority",
			},
			"agent_template": templateProp,
			"allow_further_delegation": map[string]any{
				"type":        "boolean",
				"description": "Whether the agent may delegate further",
			},
		},
		"required": required,
	}
}

// Call validates the arguments against the current schema, runs the
// delegation and returns the result payload. A failed delegation is
// ordinary result content for the parent, not an error.
func (t *assignTaskTool) Call(toolCtx *tool.Context, args map[string]any) (any, error) {
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return nil, &tool.ToolError{
			Tool:    t.Name(),
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	var req DelegationRequest
	if err := util.DecodeArgs(args, &req); err != nil {
		return nil, &tool.ToolError{
			Tool:    t.Name(),
			Message: fmt.Sprintf("decode arguments: %v", err),
			Code:    "VALIDATION_ERROR",
		}
	}
	req.Depth = t.depth

	result, err := t.coordinator.AssignTask(toolCtx.Context(), req)
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    t.Name(),
			Message: err.Error(),
			Code:    "VALIDATION_ERROR",
		}
	}

	return map[string]any{
		"agent_id": result.AgentID,
		"result":   result.Result,
		"metadata": map[string]any{
			"execution_time_ms": result.Metadata.ExecutionTime.Milliseconds(),
			"tokens_used":       result.Metadata.TokensUsed,
			"success":           result.Metadata.Success,
		},
	}, nil
}

// shortID returns a compact unique suffix for ephemeral agent names.
func shortID() string {
	id := core.NewID()
	return id[:8]
}
