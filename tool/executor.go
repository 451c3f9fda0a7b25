package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/logging"
)

// ExecutorConfig configures the batch executor.
type ExecutorConfig struct {
	Parallel    bool // execute a batch concurrently instead of sequentially
	MaxParallel int  // 0 or <1 => no explicit limit (len(calls))
}

// Executor runs the batch of tool calls returned by one provider response.
//
// Guarantees:
//   - Exactly one Result per incoming call, in input order regardless of
//     completion order
//   - A failing call never cancels its siblings; all calls run to completion
//   - Handler panics are recovered and reported as call errors
type Executor struct {
	cfg      ExecutorConfig
	registry *Registry
	logger   logging.Logger
}

// NewExecutor constructs an executor over the given registry. A nil logger
// defaults to the no-op logger.
func NewExecutor(registry *Registry, logger logging.Logger, optFns ...func(o *ExecutorConfig)) *Executor {
	cfg := ExecutorConfig{}
	for _, fn := range optFns {
		fn(&cfg)
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Executor{cfg: cfg, registry: registry, logger: logger}
}

// Result captures the outcome of a single tool call.
type Result struct {
	Call  core.ToolCall
	Value any
	Err   error
}

// Message renders the result as the tool message to append to the
// conversation. Failures become a readable error payload rather than an
// engine-level error.
func (r Result) Message() core.Message {
	content := FormatResult(r.Value)
	if r.Err != nil {
		content = "Error: " + r.Err.Error()
	}
	return core.NewToolResultMessage(r.Call.ID, r.Call.Name, content)
}

// Execute runs all calls and returns their results in input order.
func (e *Executor) Execute(ctx context.Context, agentID string, calls []core.ToolCall) []Result {
	n := len(calls)
	if n == 0 {
		return nil
	}

	batchStart := time.Now()
	results := make([]Result, n)

	if !e.cfg.Parallel || n == 1 {
		for i, call := range calls {
			results[i] = e.executeOne(ctx, agentID, call)
		}
	} else {
		maxPar := e.cfg.MaxParallel
		if maxPar <= 0 || maxPar > n {
			maxPar = n
		}
		sem := make(chan struct{}, maxPar)
		var wg sync.WaitGroup
		for i := range calls {
			wg.Add(1)
			sem <- struct{}{}
			go func(idx int, call core.ToolCall) {
				defer wg.Done()
				defer func() { <-sem }()
				results[idx] = e.executeOne(ctx, agentID, call)
			}(i, calls[i])
		}
		wg.Wait()
	}

	e.logger.Debug(
		"tool.batch.complete",
		"agent_id", agentID,
		"count", n,
		"parallel", e.cfg.Parallel,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)
	return results
}

func (e *Executor) executeOne(ctx context.Context, agentID string, call core.ToolCall) Result {
	toolCtx := NewContext(ctx, e.logger, agentID, call.ID)

	var (
		value any
		err   error
	)
	func() { // panic safety
		defer func() {
			if r := recover(); r != nil {
				err = panicError(r)
				e.logger.Error("tool.call.panic", "tool", call.Name, "recover", r)
			}
		}()
		value, err = e.registry.Execute(toolCtx, call.Name, call.Arguments)
	}()

	return Result{Call: call, Value: value, Err: err}
}

// FormatResult renders a tool return value as the string content of a tool
// message. Strings pass through; everything else is JSON encoded.
func FormatResult(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// panicError converts a recovered panic value to an error without pulling
// external dependencies.
func panicError(r any) error { return &panicErr{val: r, stack: debug.Stack()} }

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }
