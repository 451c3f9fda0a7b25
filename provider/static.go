package provider

import (
	"context"
	"sync"

	"github.com/agentcrew/agentcrew/core"
)

// StaticProvider is a lightweight in-memory Provider useful for tests and
// examples. Responses can be scripted as an ordered queue (consumed first)
// or keyed by the last user message; anything else gets an echo reply.
type StaticProvider struct {
	info Info

	mu        sync.Mutex
	scripted  []Response
	responses map[string]string
	requests  []Request
	err       error
}

// NewStaticProvider constructs a StaticProvider with tool support enabled.
func NewStaticProvider(name string) *StaticProvider {
	return &StaticProvider{
		info: Info{
			Name:          name,
			Provider:      "static",
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// Enqueue appends a scripted response; each Chat call consumes one in FIFO
// order before any keyed lookup happens.
func (p *StaticProvider) Enqueue(resp Response) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripted = append(p.scripted, resp)
}

// AddResponse registers a deterministic canned completion for a user input.
func (p *StaticProvider) AddResponse(input, response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses[input] = response
}

// FailWith makes every subsequent call return err. Pass nil to clear.
func (p *StaticProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Requests returns a copy of every request seen so far.
func (p *StaticProvider) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Request, len(p.requests))
	copy(out, p.requests)
	return out
}

// Chat implements Provider.
func (p *StaticProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		err := p.err
		p.mu.Unlock()
		return nil, err
	}
	if len(p.scripted) > 0 {
		resp := p.scripted[0]
		p.scripted = p.scripted[1:]
		p.mu.Unlock()
		return &resp, nil
	}
	text := p.responses[lastUserText(req.Messages)]
	p.mu.Unlock()

	if text == "" {
		text = "Static response to: " + lastUserText(req.Messages)
	}
	return &Response{
		Content:      text,
		FinishReason: "stop",
		Usage: &core.TokenUsage{
			PromptTokens:     core.EstimateMessagesTokens(req.Messages),
			CompletionTokens: core.EstimateTokens(text),
			TotalTokens:      core.EstimateMessagesTokens(req.Messages) + core.EstimateTokens(text),
		},
	}, nil
}

// ChatStream implements Provider; emits word-sized deltas then the final
// response, mirroring how the real adapters stream.
func (p *StaticProvider) ChatStream(ctx context.Context, req Request) (<-chan Chunk, <-chan error) {
	out := make(chan Chunk, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := p.Chat(ctx, req)
		if err != nil {
			errCh <- err
			return
		}
		for i := 0; i < len(resp.Content); i += 8 {
			end := i + 8
			if end > len(resp.Content) {
				end = len(resp.Content)
			}
			select {
			case out <- Chunk{Delta: resp.Content[i:end]}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		out <- Chunk{Final: resp}
	}()

	return out, errCh
}

// Info implements Provider.
func (p *StaticProvider) Info() Info { return p.info }

func lastUserText(msgs []core.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == core.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
