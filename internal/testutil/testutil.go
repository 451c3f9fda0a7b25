// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing providers, tools and responses. These
// helpers are intentionally minimal and not intended for production usage.
package testutil

import (
	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/tool"
)

// EchoTool returns a tool named name that echoes its "text" argument.
func EchoTool(name string) tool.Tool {
	return tool.NewFunctionTool(
		name,
		"Echo the provided text",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string", "description": "Text to echo"},
			},
			"required": []string{"text"},
		},
		func(_ *tool.Context, args map[string]any) (any, error) {
			return args["text"], nil
		},
	)
}

// FailingTool returns a tool that always fails with the given error.
func FailingTool(name string, err error) tool.Tool {
	return tool.NewFunctionTool(
		name,
		"Always fails",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *tool.Context, _ map[string]any) (any, error) {
			return nil, err
		},
	)
}

// PanickingTool returns a tool whose handler panics.
func PanickingTool(name string) tool.Tool {
	return tool.NewFunctionTool(
		name,
		"Always panics",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *tool.Context, _ map[string]any) (any, error) {
			panic("handler exploded")
		},
	)
}

// ToolCallResponse builds a provider response requesting the given calls.
func ToolCallResponse(calls ...core.ToolCall) provider.Response {
	return provider.Response{
		ToolCalls:    calls,
		FinishReason: "tool_calls",
		Usage:        &core.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// TextResponse builds a plain assistant text provider response.
func TextResponse(text string) provider.Response {
	return provider.Response{
		Content:      text,
		FinishReason: "stop",
		Usage:        &core.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

// ScriptedProvider builds a StaticProvider preloaded with responses in
// order.
func ScriptedProvider(name string, responses ...provider.Response) *provider.StaticProvider {
	p := provider.NewStaticProvider(name)
	for _, r := range responses {
		p.Enqueue(r)
	}
	return p
}
