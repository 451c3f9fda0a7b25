package plugin

import (
	"context"
	"sync"

	"github.com/agentcrew/agentcrew/logging"
)

// Pipeline dispatches lifecycle hooks to registered plugins in registration
// order. Hook errors and panics are logged and suppressed; the caller's
// control flow is never affected by a plugin.
//
// Registration is expected to happen during agent construction; once
// running, dispatch is safe for concurrent use.
type Pipeline struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  logging.Logger
}

// NewPipeline creates a pipeline. A nil logger defaults to the no-op logger.
func NewPipeline(logger logging.Logger, plugins ...Plugin) *Pipeline {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Pipeline{plugins: plugins, logger: logger}
}

// Register appends a plugin; hooks fire in registration order.
func (p *Pipeline) Register(pl Plugin) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plugins = append(p.plugins, pl)
}

// Plugins returns a copy of the registered plugin list.
func (p *Pipeline) Plugins() []Plugin {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Plugin, len(p.plugins))
	copy(out, p.plugins)
	return out
}

// Find returns the first registered plugin with the given name.
func (p *Pipeline) Find(name string) (Plugin, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pl := range p.plugins {
		if pl.Name() == name {
			return pl, true
		}
	}
	return nil, false
}

// Retry returns the first registered plugin implementing RetryPolicy.
func (p *Pipeline) Retry() (RetryPolicy, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pl := range p.plugins {
		if rp, ok := pl.(RetryPolicy); ok {
			return rp, true
		}
	}
	return nil, false
}

// Before fires BeforeExecute on every plugin that implements it.
func (p *Pipeline) Before(ctx context.Context, pc *Context) {
	for _, pl := range p.Plugins() {
		hook, ok := pl.(BeforeExecuteHook)
		if !ok {
			continue
		}
		p.invoke(pl.Name(), "before_execute", pc, func() error {
			return hook.BeforeExecute(ctx, pc)
		})
	}
}

// After fires AfterExecute on every plugin that implements it.
func (p *Pipeline) After(ctx context.Context, pc *Context) {
	for _, pl := range p.Plugins() {
		hook, ok := pl.(AfterExecuteHook)
		if !ok {
			continue
		}
		p.invoke(pl.Name(), "after_execute", pc, func() error {
			return hook.AfterExecute(ctx, pc)
		})
	}
}

// Error fires OnError on every plugin that implements it.
func (p *Pipeline) Error(ctx context.Context, pc *Context) {
	for _, pl := range p.Plugins() {
		hook, ok := pl.(ErrorHook)
		if !ok {
			continue
		}
		p.invoke(pl.Name(), "on_error", pc, func() error {
			return hook.OnError(ctx, pc)
		})
	}
}

// invoke runs one hook with panic recovery; failures are logged, never
// propagated.
func (p *Pipeline) invoke(plugin, hook string, pc *Context, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("plugin.hook.panic",
				"plugin", plugin, "hook", hook, "stage", string(pc.Stage), "recover", r)
		}
	}()
	if err := fn(); err != nil {
		p.logger.Warn("plugin.hook.error",
			"plugin", plugin, "hook", hook, "stage", string(pc.Stage), "error", err.Error())
	}
}
