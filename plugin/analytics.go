package plugin

import (
	"context"
	"sync"
	"time"
)

// Analytics is a snapshot of the counters collected by AnalyticsPlugin.
type Analytics struct {
	Runs             int            `json:"runs"`
	ProviderCalls    int            `json:"provider_calls"`
	ToolCalls        int            `json:"tool_calls"`
	Errors           int            `json:"errors"`
	PromptTokens     int            `json:"prompt_tokens"`
	CompletionTokens int            `json:"completion_tokens"`
	TotalTokens      int            `json:"total_tokens"`
	TotalDuration    time.Duration  `json:"total_duration"`
	ToolUsage        map[string]int `json:"tool_usage"`
}

// AnalyticsPlugin collects per-agent execution counters and timings. It is
// a pure side channel: it never influences execution.
type AnalyticsPlugin struct {
	mu   sync.Mutex
	data Analytics
}

// NewAnalyticsPlugin creates the analytics plugin.
func NewAnalyticsPlugin() *AnalyticsPlugin {
	return &AnalyticsPlugin{data: Analytics{ToolUsage: map[string]int{}}}
}

// Name implements Plugin.
func (p *AnalyticsPlugin) Name() string { return "analytics" }

// AfterExecute implements AfterExecuteHook.
func (p *AnalyticsPlugin) AfterExecute(_ context.Context, pc *Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch pc.Stage {
	case StageRun:
		p.data.Runs++
		p.data.TotalDuration += pc.Duration
	case StageProviderCall:
		p.data.ProviderCalls++
		if pc.Response != nil && pc.Response.Usage != nil {
			p.data.PromptTokens += pc.Response.Usage.PromptTokens
			p.data.CompletionTokens += pc.Response.Usage.CompletionTokens
			p.data.TotalTokens += pc.Response.Usage.TotalTokens
		}
	case StageToolExecute:
		p.data.ToolCalls++
		if pc.ToolCall != nil {
			p.data.ToolUsage[pc.ToolCall.Name]++
		}
	}
	return nil
}

// OnError implements ErrorHook.
func (p *AnalyticsPlugin) OnError(_ context.Context, _ *Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Errors++
	return nil
}

// Snapshot returns a copy of the collected counters.
func (p *AnalyticsPlugin) Snapshot() Analytics {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.data
	out.ToolUsage = make(map[string]int, len(p.data.ToolUsage))
	for k, v := range p.data.ToolUsage {
		out.ToolUsage[k] = v
	}
	return out
}

// Reset clears all counters.
func (p *AnalyticsPlugin) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = Analytics{ToolUsage: map[string]int{}}
}
