package agent

import (
	"context"
	"time"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/plugin"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/tool"
)

// Run appends the user input and drives the provider / tool-call loop
// until a response without tool calls is produced, returning its text.
//
// The loop has no fixed iteration cap; it is bounded by the request budget.
// Once the counter is exhausted the precheck denies and the run fails
// closed instead of looping indefinitely. Tool failures become failed tool
// result messages and the loop continues; provider and budget failures
// terminate the run.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	resp, err := a.run(ctx, input, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// RunStream behaves like Run but delivers assistant text incrementally.
// The chunk channel is finite and not restartable; a new call starts a new
// stream. A terminal failure is delivered on the error channel, never as a
// silently truncated stream. Intermediate tool-call turns stream too when
// the provider emits text alongside the calls.
func (a *Agent) RunStream(ctx context.Context, input string) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)
		if _, err := a.run(ctx, input, out); err != nil {
			errCh <- err
		}
	}()

	return out, errCh
}

// run is the shared state machine. When deltas is non-nil provider calls
// stream and text chunks are forwarded to it.
func (a *Agent) run(ctx context.Context, input string, deltas chan<- string) (*provider.Response, error) {
	if a.Destroyed() {
		return nil, ErrDestroyed
	}

	a.runMu.Lock()
	defer a.runMu.Unlock()

	runPC := &plugin.Context{
		Stage:          plugin.StageRun,
		AgentID:        a.id,
		ConversationID: a.conversation.ID,
		Input:          input,
		Messages:       a.conversation.Messages(),
		StartedAt:      time.Now(),
		Metadata:       map[string]any{},
	}
	a.pipeline.Before(ctx, runPC)

	a.append(core.NewUserMessage(input))

	for {
		a.setState(StateAwaitingProvider)

		resp, err := a.exchange(ctx, deltas)
		if err != nil {
			a.setState(StateFailed)
			runPC.Err = err
			runPC.Duration = time.Since(runPC.StartedAt)
			a.pipeline.Error(ctx, runPC)
			return nil, err
		}

		if !resp.HasToolCalls() {
			a.append(core.NewAssistantMessage(resp.Content))
			a.setState(StateIdle)
			runPC.Duration = time.Since(runPC.StartedAt)
			a.pipeline.After(ctx, runPC)
			return resp, nil
		}

		a.append(core.NewAssistantToolCallMessage(resp.Content, resp.ToolCalls))

		a.setState(StateExecutingTools)
		results := a.executeTools(ctx, resp.ToolCalls)
		msgs := make([]core.Message, len(results))
		for i, r := range results {
			msgs[i] = r.Message()
		}
		a.append(msgs...)
	}
}

// exchange performs one budget-guarded provider call, consulting the
// registered retry policy on failures.
func (a *Agent) exchange(ctx context.Context, deltas chan<- string) (*provider.Response, error) {
	prov := a.providers[a.current]
	req := provider.Request{
		Messages: a.conversation.Messages(),
		Tools:    a.registry.Definitions(),
	}

	estimated := core.EstimateMessagesTokens(req.Messages)
	if err := a.guard.Precheck(estimated); err != nil {
		return nil, err
	}

	pc := &plugin.Context{
		Stage:          plugin.StageProviderCall,
		AgentID:        a.id,
		ConversationID: a.conversation.ID,
		Messages:       req.Messages,
		StartedAt:      time.Now(),
		Metadata:       map[string]any{},
	}
	a.pipeline.Before(ctx, pc)

	attempt := 1
	for {
		resp, err := a.call(ctx, prov, req, deltas)
		if err == nil {
			usage := core.TokenUsage{}
			if resp.Usage != nil {
				usage = *resp.Usage
			} else {
				// Providers without usage reporting fall back to the
				// estimate so budgets still bite.
				usage.PromptTokens = estimated
				usage.CompletionTokens = core.EstimateTokens(resp.Content)
				usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
			}
			a.guard.Record(prov.Info().Name, usage)

			pc.Response = resp
			pc.Duration = time.Since(pc.StartedAt)
			a.pipeline.After(ctx, pc)
			return resp, nil
		}

		pc.Err = err
		a.pipeline.Error(ctx, pc)

		policy, ok := a.pipeline.Retry()
		if !ok {
			return nil, err
		}
		delay, retry := policy.ShouldRetry(attempt, err)
		if !retry {
			return nil, err
		}

		a.logger.Warn("agent.provider.retry",
			"agent_id", a.id, "attempt", attempt, "delay_ms", delay.Milliseconds(), "error", err.Error())
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		attempt++
		pc.Err = nil
	}
}

// call performs a single Chat or ChatStream exchange.
func (a *Agent) call(ctx context.Context, prov provider.Provider, req provider.Request, deltas chan<- string) (*provider.Response, error) {
	if deltas == nil {
		return prov.Chat(ctx, req)
	}

	chunks, errCh := prov.ChatStream(ctx, req)
	var final *provider.Response
	for chunk := range chunks {
		if chunk.Delta != "" {
			select {
			case deltas <- chunk.Delta:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if chunk.Final != nil {
			final = chunk.Final
		}
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if final == nil {
		return nil, &provider.Error{
			Provider: prov.Info().Provider,
			Code:     provider.ErrCodeNetwork,
			Message:  "stream ended without a final response",
		}
	}
	return final, nil
}

// executeTools runs the batch with a plugin span around every call.
// Results come back in input order regardless of completion order.
func (a *Agent) executeTools(ctx context.Context, calls []core.ToolCall) []tool.Result {
	pcs := make([]*plugin.Context, len(calls))
	for i := range calls {
		pcs[i] = &plugin.Context{
			Stage:          plugin.StageToolExecute,
			AgentID:        a.id,
			ConversationID: a.conversation.ID,
			ToolCall:       &calls[i],
			StartedAt:      time.Now(),
			Metadata:       map[string]any{},
		}
		a.pipeline.Before(ctx, pcs[i])
	}

	results := a.executor.Execute(ctx, a.id, calls)

	for i, r := range results {
		pcs[i].Duration = time.Since(pcs[i].StartedAt)
		pcs[i].ToolResult = r.Value
		if r.Err != nil {
			pcs[i].Err = r.Err
			a.pipeline.Error(ctx, pcs[i])
			continue
		}
		a.pipeline.After(ctx, pcs[i])
	}
	return results
}
