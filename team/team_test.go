package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/internal/testutil"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/tool"
)

// panickingProvider explodes on every call, exercising teardown paths that
// tool-level panic recovery cannot reach.
type panickingProvider struct{}

func (panickingProvider) Chat(context.Context, provider.Request) (*provider.Response, error) {
	panic("provider exploded")
}

func (panickingProvider) ChatStream(context.Context, provider.Request) (<-chan provider.Chunk, <-chan error) {
	panic("provider exploded")
}

func (panickingProvider) Info() provider.Info {
	return provider.Info{Name: "panicking", Provider: "test"}
}

func newTestFactory(t *testing.T, p provider.Provider) *Factory {
	t.Helper()
	f, err := NewFactory(
		map[string]provider.Provider{"static": p},
		"static",
		[]tool.Tool{testutil.EchoTool("echo"), testutil.EchoTool("search")},
	)
	require.NoError(t, err)
	return f
}

// -------------------- Factory Tests --------------------

func TestFactoryValidation(t *testing.T) {
	_, err := NewFactory(nil, "static", nil)
	assert.Error(t, err)

	providers := map[string]provider.Provider{"static": provider.NewStaticProvider("s")}
	_, err = NewFactory(providers, "missing", nil)
	assert.Error(t, err)

	_, err = NewFactory(providers, "static", []tool.Tool{
		testutil.EchoTool("dup"), testutil.EchoTool("dup"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestFactoryBuildResolvesCatalog(t *testing.T) {
	p := provider.NewStaticProvider("s")
	f := newTestFactory(t, p)

	worker, err := f.Build(Spec{
		Name:         "worker",
		SystemPrompt: "do the thing",
		ToolNames:    []string{"echo", "search", "echo"}, // duplicate collapses
	})
	require.NoError(t, err)
	defer worker.Destroy()

	assert.Equal(t, "worker", worker.Name())
	assert.Equal(t, []string{"echo", "search"}, worker.Tools().Names())
}

func TestFactoryBuildUnknownTool(t *testing.T) {
	f := newTestFactory(t, provider.NewStaticProvider("s"))
	_, err := f.Build(Spec{Name: "w", ToolNames: []string{"nope"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in catalog")
}

func TestFactoryCatalogLookup(t *testing.T) {
	f := newTestFactory(t, provider.NewStaticProvider("s"))
	assert.True(t, f.HasTool("echo"))
	assert.False(t, f.HasTool("missing"))
	assert.ElementsMatch(t, []string{"echo", "search"}, f.Catalog())
}

// -------------------- Template Tests --------------------

func TestTemplatesRegistry(t *testing.T) {
	reg := NewTemplates()
	require.NoError(t, reg.Register(Template{Name: "researcher", SystemPrompt: "research"}))
	require.NoError(t, reg.Register(Template{Name: "writer", SystemPrompt: "write"}))

	assert.Error(t, reg.Register(Template{Name: "researcher"}), "duplicate names fail")
	assert.Error(t, reg.Register(Template{}), "empty name fails")

	tpl, ok := reg.Get("writer")
	require.True(t, ok)
	assert.Equal(t, "write", tpl.SystemPrompt)

	assert.Equal(t, []string{"researcher", "writer"}, reg.Names())
	assert.Len(t, reg.All(), 2)
}

// -------------------- Coordinator Tests --------------------

func TestAssignTaskWithTemplate(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.Enqueue(provider.Response{Content: "research complete", FinishReason: "stop"})

	c := NewCoordinator(newTestFactory(t, p))
	require.NoError(t, c.Templates().Register(Template{
		Name:         "researcher",
		SystemPrompt: "You research topics.",
		Tools:        []string{"search"},
	}))

	result, err := c.AssignTask(context.Background(), DelegationRequest{
		JobDescription: "find recent papers",
		AgentTemplate:  "researcher",
	})
	require.NoError(t, err)

	assert.Equal(t, "research complete", result.Result)
	assert.True(t, result.Metadata.Success)
	assert.NotEmpty(t, result.AgentID)
	assert.GreaterOrEqual(t, result.Metadata.ExecutionTime.Nanoseconds(), int64(0))
	assert.Greater(t, result.Metadata.TokensUsed, 0)

	// The ephemeral agent carried the template's system prompt and tools.
	reqs := p.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, core.RoleSystem, reqs[0].Messages[0].Role)
	assert.Equal(t, "You research topics.", reqs[0].Messages[0].Content)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "search", reqs[0].Tools[0].Name)
}

func TestAssignTaskDynamicAgent(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.Enqueue(provider.Response{Content: "done", FinishReason: "stop"})

	c := NewCoordinator(newTestFactory(t, p))

	result, err := c.AssignTask(context.Background(), DelegationRequest{
		JobDescription: "summarize the report",
		Context:        "the report is about Q3 revenue",
		RequiredTools:  []string{"echo"},
	})
	require.NoError(t, err)
	assert.True(t, result.Metadata.Success)

	reqs := p.Requests()
	require.Len(t, reqs, 1)
	// The synthesized system prompt embeds the job description.
	assert.Contains(t, reqs[0].Messages[0].Content, "summarize the report")
	// Context travels in the user message.
	user := reqs[0].Messages[1]
	assert.Contains(t, user.Content, "Q3 revenue")
}

func TestAssignTaskValidation(t *testing.T) {
	c := NewCoordinator(newTestFactory(t, provider.NewStaticProvider("s")))
	require.NoError(t, c.Templates().Register(Template{Name: "known"}))

	tests := []struct {
		name  string
		req   DelegationRequest
		field string
	}{
		{"empty job", DelegationRequest{JobDescription: "   "}, "job_description"},
		{"unknown template", DelegationRequest{JobDescription: "j", AgentTemplate: "ghost"}, "agent_template"},
		{"unknown tool", DelegationRequest{JobDescription: "j", RequiredTools: []string{"ghost"}}, "required_tools"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.AssignTask(context.Background(), tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestAssignTaskRequiresTemplateWhenDynamicDisabled(t *testing.T) {
	c := NewCoordinator(newTestFactory(t, provider.NewStaticProvider("s")), func(o *CoordinatorOptions) {
		o.DynamicAgents = false
	})

	_, err := c.AssignTask(context.Background(), DelegationRequest{JobDescription: "j"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "agent_template", verr.Field)
}

func TestAssignTaskDepthBound(t *testing.T) {
	c := NewCoordinator(newTestFactory(t, provider.NewStaticProvider("s")), func(o *CoordinatorOptions) {
		o.MaxDepth = 2
	})

	_, err := c.AssignTask(context.Background(), DelegationRequest{JobDescription: "j", Depth: 2})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "depth", verr.Field)

	// Depth below the bound passes validation and runs.
	p := provider.NewStaticProvider("s2")
	p.Enqueue(provider.Response{Content: "ok", FinishReason: "stop"})
	c2 := NewCoordinator(newTestFactory(t, p), func(o *CoordinatorOptions) { o.MaxDepth = 2 })
	result, err := c2.AssignTask(context.Background(), DelegationRequest{JobDescription: "j", Depth: 1})
	require.NoError(t, err)
	assert.True(t, result.Metadata.Success)
}

func TestAssignTaskRunFailureBecomesFailedResult(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.FailWith(&provider.Error{Provider: "s", Code: provider.ErrCodeAuth, Message: "bad key"})

	c := NewCoordinator(newTestFactory(t, p))

	result, err := c.AssignTask(context.Background(), DelegationRequest{JobDescription: "doomed"})
	require.NoError(t, err, "ephemeral run failures never surface as errors")
	assert.False(t, result.Metadata.Success)
	assert.Contains(t, result.Result, "Delegation failed")
	assert.Contains(t, result.Result, "bad key")
}

// -------------------- Ephemeral Lifecycle Tests --------------------

func TestExecuteDestroysWorkerOnSuccess(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.Enqueue(provider.Response{Content: "ok", FinishReason: "stop"})
	f := newTestFactory(t, p)
	c := NewCoordinator(f)

	worker, err := f.Build(Spec{Name: "w"})
	require.NoError(t, err)

	result := c.execute(context.Background(), worker, DelegationRequest{JobDescription: "j"})
	assert.True(t, result.Metadata.Success)
	assert.True(t, worker.Destroyed())
}

func TestExecuteDestroysWorkerOnFailure(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.FailWith(assert.AnError)
	f := newTestFactory(t, p)
	c := NewCoordinator(f)

	worker, err := f.Build(Spec{Name: "w"})
	require.NoError(t, err)

	result := c.execute(context.Background(), worker, DelegationRequest{JobDescription: "j"})
	assert.False(t, result.Metadata.Success)
	assert.True(t, worker.Destroyed())
}

func TestExecuteDestroysWorkerOnPanic(t *testing.T) {
	f, err := NewFactory(
		map[string]provider.Provider{"bad": panickingProvider{}},
		"bad",
		nil,
	)
	require.NoError(t, err)
	c := NewCoordinator(f)

	worker, err := f.Build(Spec{Name: "w"})
	require.NoError(t, err)

	var result DelegationResult
	assert.NotPanics(t, func() {
		result = c.execute(context.Background(), worker, DelegationRequest{JobDescription: "j"})
	})
	assert.False(t, result.Metadata.Success)
	assert.Contains(t, result.Result, "panic")
	assert.True(t, worker.Destroyed())
}

// closableProvider counts Close calls so teardown behavior is observable.
type closableProvider struct {
	*provider.StaticProvider
	closed int
}

func (c *closableProvider) Close() error {
	c.closed++
	return nil
}

func TestWorkerTeardownLeavesSharedProviderOpen(t *testing.T) {
	p := &closableProvider{StaticProvider: provider.NewStaticProvider("s")}
	p.Enqueue(provider.Response{Content: "one", FinishReason: "stop"})
	p.Enqueue(provider.Response{Content: "two", FinishReason: "stop"})
	c := NewCoordinator(newTestFactory(t, p))

	for i := 0; i < 2; i++ {
		result, err := c.AssignTask(context.Background(), DelegationRequest{JobDescription: "j"})
		require.NoError(t, err)
		assert.True(t, result.Metadata.Success)
	}

	assert.Zero(t, p.closed, "the factory's provider serves every delegation and must outlive each worker")
}
