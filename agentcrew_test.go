package agentcrew

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/internal/testutil"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/team"
)

func TestNewRequiresProvider(t *testing.T) {
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider")
}

func TestCrewRun(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.AddResponse("hello", "hi from the crew")

	crew, err := New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": p}
		o.SystemPrompt = "be brief"
	})
	require.NoError(t, err)
	defer crew.Destroy()

	out, err := crew.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi from the crew", out)
}

func TestCrewRunStream(t *testing.T) {
	p := provider.NewStaticProvider("s")
	p.AddResponse("stream", "streamed crew response")

	crew, err := New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": p}
	})
	require.NoError(t, err)
	defer crew.Destroy()

	chunks, errCh := crew.RunStream(context.Background(), "stream")
	var b strings.Builder
	for delta := range chunks {
		b.WriteString(delta)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "streamed crew response", b.String())
}

func TestCrewDelegationToolPresentByDefault(t *testing.T) {
	crew, err := New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": provider.NewStaticProvider("s")}
	})
	require.NoError(t, err)
	defer crew.Destroy()

	assert.Contains(t, crew.Agent().Tools().Names(), "assign_task")

	disabled, err := New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": provider.NewStaticProvider("s")}
		o.Delegation = false
	})
	require.NoError(t, err)
	defer disabled.Destroy()

	assert.NotContains(t, disabled.Agent().Tools().Names(), "assign_task")
}

func TestCrewEndToEndDelegation(t *testing.T) {
	// The top-level agent and the ephemeral worker share one scripted
	// provider: parent asks to delegate, the worker answers, the parent
	// folds that answer into its final response.
	p := provider.NewStaticProvider("s")
	p.Enqueue(testutil.ToolCallResponse(core.ToolCall{
		ID:        "c1",
		Name:      "assign_task",
		Arguments: `{"job_description":"compute the quarterly summary"}`,
	}))
	p.Enqueue(provider.Response{Content: "summary: revenue up 12%", FinishReason: "stop"})
	p.Enqueue(provider.Response{Content: "Here is the summary: revenue up 12%", FinishReason: "stop"})

	crew, err := New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": p}
		o.Templates = []team.Template{{Name: "analyst", SystemPrompt: "You analyze."}}
	})
	require.NoError(t, err)
	defer crew.Destroy()

	out, err := crew.Run(context.Background(), "summarize the quarter")
	require.NoError(t, err)
	assert.Equal(t, "Here is the summary: revenue up 12%", out)

	// Parent history carries the delegation round trip.
	var sawToolResult bool
	for _, m := range crew.Agent().History() {
		if m.Role == core.RoleTool && m.Name == "assign_task" {
			sawToolResult = true
			assert.Contains(t, m.Content, "revenue up 12%")
			assert.Contains(t, m.Content, `"success":true`)
		}
	}
	assert.True(t, sawToolResult)
}

func TestCrewTemplateRegistration(t *testing.T) {
	crew, err := New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": provider.NewStaticProvider("s")}
		o.Templates = []team.Template{{Name: "a"}, {Name: "b"}}
	})
	require.NoError(t, err)
	defer crew.Destroy()

	assert.Equal(t, []string{"a", "b"}, crew.Coordinator().Templates().Names())

	_, err = New(func(o *Options) {
		o.Providers = map[string]provider.Provider{"static": provider.NewStaticProvider("s")}
		o.Templates = []team.Template{{Name: "dup"}, {Name: "dup"}}
	})
	assert.Error(t, err)
}
