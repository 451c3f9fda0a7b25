package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorderPlugin records hook invocations in order.
type recorderPlugin struct {
	name   string
	events *[]string

	beforeErr error
	panicOn   string
}

func (p *recorderPlugin) Name() string { return p.name }

func (p *recorderPlugin) BeforeExecute(_ context.Context, _ *Context) error {
	if p.panicOn == "before" {
		panic("hook exploded")
	}
	*p.events = append(*p.events, p.name+".before")
	return p.beforeErr
}

func (p *recorderPlugin) AfterExecute(_ context.Context, _ *Context) error {
	if p.panicOn == "after" {
		panic("hook exploded")
	}
	*p.events = append(*p.events, p.name+".after")
	return nil
}

func (p *recorderPlugin) OnError(_ context.Context, _ *Context) error {
	*p.events = append(*p.events, p.name+".error")
	return nil
}

// nameOnlyPlugin implements no hooks at all.
type nameOnlyPlugin struct{}

func (nameOnlyPlugin) Name() string { return "name_only" }

func TestPipelineDispatchOrder(t *testing.T) {
	var events []string
	p := NewPipeline(nil,
		&recorderPlugin{name: "first", events: &events},
		&recorderPlugin{name: "second", events: &events},
	)

	pc := &Context{Stage: StageRun}
	p.Before(context.Background(), pc)
	p.After(context.Background(), pc)
	p.Error(context.Background(), pc)

	assert.Equal(t, []string{
		"first.before", "second.before",
		"first.after", "second.after",
		"first.error", "second.error",
	}, events)
}

func TestPipelineSuppressesHookErrors(t *testing.T) {
	var events []string
	p := NewPipeline(nil,
		&recorderPlugin{name: "failing", events: &events, beforeErr: errors.New("broken hook")},
		&recorderPlugin{name: "healthy", events: &events},
	)

	// Must not panic or stop dispatch to later plugins.
	p.Before(context.Background(), &Context{Stage: StageRun})
	assert.Contains(t, events, "healthy.before")
}

func TestPipelineRecoversHookPanics(t *testing.T) {
	var events []string
	p := NewPipeline(nil,
		&recorderPlugin{name: "bomb", events: &events, panicOn: "before"},
		&recorderPlugin{name: "healthy", events: &events},
	)

	assert.NotPanics(t, func() {
		p.Before(context.Background(), &Context{Stage: StageRun})
	})
	assert.Equal(t, []string{"healthy.before"}, events)
}

func TestPipelineSkipsUnimplementedHooks(t *testing.T) {
	p := NewPipeline(nil, nameOnlyPlugin{})

	assert.NotPanics(t, func() {
		pc := &Context{Stage: StageRun}
		p.Before(context.Background(), pc)
		p.After(context.Background(), pc)
		p.Error(context.Background(), pc)
	})
}

func TestPipelineRegisterAndFind(t *testing.T) {
	p := NewPipeline(nil)
	assert.Empty(t, p.Plugins())

	p.Register(NewAnalyticsPlugin())
	p.Register(nameOnlyPlugin{})

	require.Len(t, p.Plugins(), 2)

	found, ok := p.Find("analytics")
	require.True(t, ok)
	assert.Equal(t, "analytics", found.Name())

	_, ok = p.Find("missing")
	assert.False(t, ok)
}

func TestPipelineRetryProbing(t *testing.T) {
	p := NewPipeline(nil, NewAnalyticsPlugin())
	_, ok := p.Retry()
	assert.False(t, ok, "no registered plugin implements RetryPolicy")

	retry := NewRetryPlugin()
	p.Register(retry)

	policy, ok := p.Retry()
	require.True(t, ok)
	_, granted := policy.ShouldRetry(1, errors.New("plain"))
	assert.False(t, granted, "plain errors are not retryable")
}
