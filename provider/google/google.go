// Package google adapts the Gemini API (via google.golang.org/genai) to
// the generic provider.Provider interface.
package google

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/genai"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/provider"
)

// Options configure the Gemini adapter.
type Options struct {
	Model       string
	Temperature *float32
	APIKey      string
}

// Provider wraps the Gemini API behind provider.Provider.
type Provider struct {
	client *genai.Client
	opts   Options
}

// New creates a new Gemini provider. The context is used for client
// initialization only.
func New(ctx context.Context, optFns ...func(o *Options)) (*Provider, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey})
	if err != nil {
		return nil, err
	}
	return &Provider{client: client, opts: opts}, nil
}

// NewFromClient creates a new Gemini provider from an existing client.
func NewFromClient(client *genai.Client, optFns ...func(o *Options)) *Provider {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Provider{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{Model: "gemini-2.0-flash"}
}

// Chat implements provider.Provider.
func (p *Provider) Chat(ctx context.Context, req provider.Request) (*provider.Response, error) {
	contents, config := p.buildRequest(req)

	resp, err := p.client.Models.GenerateContent(ctx, p.opts.Model, contents, config)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(resp.Candidates) == 0 {
		return nil, &provider.Error{
			Provider: "google",
			Code:     provider.ErrCodeInvalidRequest,
			Message:  "no candidates in response",
		}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return nil, &provider.Error{
			Provider: "google",
			Code:     provider.ErrCodeContentBlocked,
			Message:  "content blocked by safety filters",
		}
	}

	out := &provider.Response{FinishReason: string(candidate.FinishReason)}
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				out.Content += part.Text
			}
			if part.FunctionCall != nil {
				out.ToolCalls = append(out.ToolCalls, toToolCall(part.FunctionCall))
			}
		}
	}
	if resp.UsageMetadata != nil {
		out.Usage = toUsage(resp.UsageMetadata)
	}
	return out, nil
}

// ChatStream implements provider.Provider. Candidate text parts are
// forwarded as deltas while the final response is aggregated from the
// same parts, so concatenated deltas always match the final content.
func (p *Provider) ChatStream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, <-chan error) {
	out := make(chan provider.Chunk)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents, config := p.buildRequest(req)

		final := &provider.Response{FinishReason: "stop"}
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.opts.Model, contents, config) {
			if err != nil {
				errCh <- p.wrapError(err)
				return
			}
			if len(resp.Candidates) == 0 {
				continue
			}
			candidate := resp.Candidates[0]
			if candidate.FinishReason == genai.FinishReasonSafety {
				errCh <- &provider.Error{
					Provider: "google",
					Code:     provider.ErrCodeContentBlocked,
					Message:  "content blocked by safety filters",
				}
				return
			}
			if candidate.FinishReason != "" {
				final.FinishReason = string(candidate.FinishReason)
			}
			if candidate.Content != nil {
				for _, part := range candidate.Content.Parts {
					if part.Text != "" {
						final.Content += part.Text
						out <- provider.Chunk{Delta: part.Text}
					}
					if part.FunctionCall != nil {
						final.ToolCalls = append(final.ToolCalls, toToolCall(part.FunctionCall))
					}
				}
			}
			if resp.UsageMetadata != nil {
				final.Usage = toUsage(resp.UsageMetadata)
			}
		}

		out <- provider.Chunk{Final: final}
	}()

	return out, errCh
}

// buildRequest assembles the contents and generation config shared by Chat
// and ChatStream.
func (p *Provider) buildRequest(req provider.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents, system := buildContents(req.Messages)
	config := &genai.GenerateContentConfig{
		Temperature:       p.opts.Temperature,
		SystemInstruction: system,
	}
	if len(req.Tools) > 0 {
		config.Tools = buildTools(req.Tools)
	}
	return contents, config
}

func toToolCall(fc *genai.FunctionCall) core.ToolCall {
	args := "{}"
	if raw, err := json.Marshal(fc.Args); err == nil {
		args = string(raw)
	}
	id := fc.ID
	if id == "" {
		// Gemini does not always assign call IDs; the loop correlates
		// results by ID, so mint one.
		id = core.NewID()
	}
	return core.ToolCall{ID: id, Name: fc.Name, Arguments: args}
}

func toUsage(meta *genai.GenerateContentResponseUsageMetadata) *core.TokenUsage {
	return &core.TokenUsage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	}
}

// buildContents converts the normalized history to Gemini contents and an
// optional system instruction. Assistant messages map to the "model" role;
// tool results become function response parts in user-role contents.
func buildContents(msgs []core.Message) ([]*genai.Content, *genai.Content) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(msgs))

	for _, m := range msgs {
		switch m.Role {
		case core.RoleSystem:
			if m.Content != "" {
				system = &genai.Content{
					Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
				}
			}
		case core.RoleUser:
			if m.Content != "" {
				contents = append(contents, &genai.Content{
					Role:  "user",
					Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
				})
			}
		case core.RoleAssistant:
			parts := make([]*genai.Part, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if tc.Arguments != "" {
					_ = json.Unmarshal([]byte(tc.Arguments), &args)
				}
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						ID:   tc.ID,
						Name: tc.Name,
						Args: args,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Role: "model", Parts: parts})
			}
		case core.RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:   m.ToolCallID,
						Name: m.Name,
						Response: map[string]any{
							"content": m.Content,
						},
					},
				}},
			})
		}
	}
	return contents, system
}

// buildTools converts tool definitions to Gemini function declarations.
func buildTools(tools []provider.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		fd := &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
		}
		if t.Parameters != nil {
			fd.Parameters = toSchema(t.Parameters)
		}
		decls = append(decls, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toSchema converts a JSON Schema object map into a Gemini schema. Only the
// subset produced by tool schemas is handled (type, description, enum,
// properties, items, required).
func toSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{Type: genai.TypeObject}

	if t, ok := schema["type"].(string); ok {
		out.Type = toType(t)
	}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if s, ok := e.(string); ok {
				out.Enum = append(out.Enum, s)
			}
		}
	} else if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				out.Properties[name] = toSchema(prop)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = toSchema(items)
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	return out
}

func toType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

func (p *Provider) wrapError(err error) error {
	var apierr *genai.APIError
	if errors.As(err, &apierr) {
		code, retryable := provider.ClassifyStatus(apierr.Code)
		return &provider.Error{
			Provider:  "google",
			Code:      code,
			Message:   "content generation failed",
			Retryable: retryable,
			Err:       err,
		}
	}
	return &provider.Error{
		Provider:  "google",
		Code:      provider.ErrCodeNetwork,
		Message:   "content generation failed",
		Retryable: true,
		Err:       err,
	}
}

// Info implements provider.Provider.
func (p *Provider) Info() provider.Info {
	return provider.Info{
		Name:          p.opts.Model,
		Provider:      "google",
		SupportsTools: true,
	}
}
