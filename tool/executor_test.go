package tool

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcrew/agentcrew/core"
)

func executorRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool("echo")))
	require.NoError(t, r.Register(NewFunctionTool(
		"slow_echo",
		"Echo after a delay",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"text": map[string]any{"type": "string"},
			},
			"required": []string{"text"},
		},
		func(_ *Context, args map[string]any) (any, error) {
			time.Sleep(20 * time.Millisecond)
			return args["text"], nil
		},
	)))
	require.NoError(t, r.Register(NewFunctionTool(
		"panic",
		"Always panics",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *Context, _ map[string]any) (any, error) { panic("handler exploded") },
	)))
	return r
}

func TestExecutorSequentialOrder(t *testing.T) {
	e := NewExecutor(executorRegistry(t), nil)

	calls := []core.ToolCall{
		{ID: "c1", Name: "echo", Arguments: `{"text":"first"}`},
		{ID: "c2", Name: "echo", Arguments: `{"text":"second"}`},
		{ID: "c3", Name: "echo", Arguments: `{"text":"third"}`},
	}
	results := e.Execute(context.Background(), "agent-1", calls)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Value)
	assert.Equal(t, "second", results[1].Value)
	assert.Equal(t, "third", results[2].Value)
	for i, r := range results {
		assert.Equal(t, calls[i].ID, r.Call.ID)
	}
}

func TestExecutorParallelPreservesInputOrder(t *testing.T) {
	e := NewExecutor(executorRegistry(t), nil, func(o *ExecutorConfig) {
		o.Parallel = true
	})

	// The slow first call completes after its siblings; results must still
	// come back in input order.
	calls := []core.ToolCall{
		{ID: "c1", Name: "slow_echo", Arguments: `{"text":"slow"}`},
		{ID: "c2", Name: "echo", Arguments: `{"text":"fast-1"}`},
		{ID: "c3", Name: "echo", Arguments: `{"text":"fast-2"}`},
	}
	results := e.Execute(context.Background(), "agent-1", calls)

	require.Len(t, results, 3)
	assert.Equal(t, "slow", results[0].Value)
	assert.Equal(t, "fast-1", results[1].Value)
	assert.Equal(t, "fast-2", results[2].Value)
}

func TestExecutorParallelBounded(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0

	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool(
		"track",
		"Track concurrency",
		map[string]any{"type": "object", "properties": map[string]any{}},
		func(_ *Context, _ map[string]any) (any, error) {
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			return "ok", nil
		},
	)))

	e := NewExecutor(r, nil, func(o *ExecutorConfig) {
		o.Parallel = true
		o.MaxParallel = 2
	})

	calls := make([]core.ToolCall, 6)
	for i := range calls {
		calls[i] = core.ToolCall{ID: core.NewID(), Name: "track", Arguments: "{}"}
	}
	e.Execute(context.Background(), "agent-1", calls)

	assert.LessOrEqual(t, peak, 2)
}

func TestExecutorFailureDoesNotCancelSiblings(t *testing.T) {
	e := NewExecutor(executorRegistry(t), nil, func(o *ExecutorConfig) {
		o.Parallel = true
	})

	calls := []core.ToolCall{
		{ID: "c1", Name: "missing", Arguments: "{}"},
		{ID: "c2", Name: "echo", Arguments: `{"text":"survivor"}`},
	}
	results := e.Execute(context.Background(), "agent-1", calls)

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, "survivor", results[1].Value)
}

func TestExecutorRecoversPanic(t *testing.T) {
	e := NewExecutor(executorRegistry(t), nil)

	results := e.Execute(context.Background(), "agent-1", []core.ToolCall{
		{ID: "c1", Name: "panic", Arguments: "{}"},
	})

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "panic recovered")
	assert.Contains(t, results[0].Err.Error(), "handler exploded")
}

func TestExecutorEmptyBatch(t *testing.T) {
	e := NewExecutor(executorRegistry(t), nil)
	assert.Nil(t, e.Execute(context.Background(), "agent-1", nil))
}

// -------------------- Result Rendering Tests --------------------

func TestResultMessage(t *testing.T) {
	ok := Result{
		Call:  core.ToolCall{ID: "c1", Name: "echo"},
		Value: "hello",
	}
	msg := ok.Message()
	assert.Equal(t, core.RoleTool, msg.Role)
	assert.Equal(t, "c1", msg.ToolCallID)
	assert.Equal(t, "echo", msg.Name)
	assert.Equal(t, "hello", msg.Content)

	failed := Result{
		Call: core.ToolCall{ID: "c2", Name: "echo"},
		Err:  NewToolError("echo", "nope", "EXECUTION_ERROR"),
	}
	fmsg := failed.Message()
	assert.True(t, strings.HasPrefix(fmsg.Content, "Error: "))
	assert.Contains(t, fmsg.Content, "nope")
}

func TestFormatResult(t *testing.T) {
	assert.Equal(t, "", FormatResult(nil))
	assert.Equal(t, "plain", FormatResult("plain"))
	assert.Equal(t, `{"count":2}`, FormatResult(map[string]any{"count": 2}))
	assert.Equal(t, "[1,2,3]", FormatResult([]int{1, 2, 3}))
}
