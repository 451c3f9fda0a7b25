package plugin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Doer abstracts the HTTP client used by WebhookPlugin so tests can inject
// a fake transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookOptions configure the webhook plugin.
type WebhookOptions struct {
	Client  Doer
	Headers map[string]string
	// Stages limits which stages are reported; empty means all.
	Stages []Stage
}

// WebhookPlugin POSTs a JSON event to an external endpoint at every
// lifecycle point. Delivery failures are returned to the pipeline, which
// logs and suppresses them.
type WebhookPlugin struct {
	url  string
	opts WebhookOptions
}

// NewWebhookPlugin creates the webhook plugin.
func NewWebhookPlugin(url string, optFns ...func(o *WebhookOptions)) *WebhookPlugin {
	opts := WebhookOptions{
		Client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &WebhookPlugin{url: url, opts: opts}
}

// Name implements Plugin.
func (p *WebhookPlugin) Name() string { return "webhook" }

// BeforeExecute implements BeforeExecuteHook.
func (p *WebhookPlugin) BeforeExecute(ctx context.Context, pc *Context) error {
	return p.post(ctx, "stage.start", pc)
}

// AfterExecute implements AfterExecuteHook.
func (p *WebhookPlugin) AfterExecute(ctx context.Context, pc *Context) error {
	return p.post(ctx, "stage.complete", pc)
}

// OnError implements ErrorHook.
func (p *WebhookPlugin) OnError(ctx context.Context, pc *Context) error {
	return p.post(ctx, "stage.failed", pc)
}

type webhookEvent struct {
	Event       string `json:"event"`
	Stage       string `json:"stage"`
	AgentID     string `json:"agent_id"`
	Tool        string `json:"tool,omitempty"`
	DurationMS  int64  `json:"duration_ms,omitempty"`
	Error       string `json:"error,omitempty"`
	TotalTokens int    `json:"total_tokens,omitempty"`
	Timestamp   string `json:"timestamp"`
}

func (p *WebhookPlugin) post(ctx context.Context, event string, pc *Context) error {
	if len(p.opts.Stages) > 0 {
		found := false
		for _, s := range p.opts.Stages {
			if s == pc.Stage {
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}

	ev := webhookEvent{
		Event:      event,
		Stage:      string(pc.Stage),
		AgentID:    pc.AgentID,
		DurationMS: pc.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	if pc.ToolCall != nil {
		ev.Tool = pc.ToolCall.Name
	}
	if pc.Err != nil {
		ev.Error = pc.Err.Error()
	}
	if pc.Response != nil && pc.Response.Usage != nil {
		ev.TotalTokens = pc.Response.Usage.TotalTokens
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range p.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
