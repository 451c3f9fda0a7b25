// Package agent implements the conversation engine: the public agent
// surface that owns a message history and drives the request / tool-call /
// response loop against a pluggable provider, guarded by usage budgets and
// observed by the plugin pipeline.
package agent

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/agentcrew/agentcrew/core"
	"github.com/agentcrew/agentcrew/limits"
	"github.com/agentcrew/agentcrew/logging"
	"github.com/agentcrew/agentcrew/plugin"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/session"
	"github.com/agentcrew/agentcrew/tool"
)

// ErrDestroyed is returned by operations on an agent after Destroy.
var ErrDestroyed = errors.New("agent destroyed")

// State reflects where the engine currently is in its loop.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingProvider State = "awaiting_provider_response"
	StateExecutingTools   State = "executing_tools"
	StateFailed           State = "failed"
)

// Options configures an Agent. The recognized fields are exactly the
// public configuration surface; unknown concerns belong in plugins.
type Options struct {
	// ID defaults to a fresh UUID, Name to the ID.
	ID   string
	Name string

	// Providers maps provider keys to adapters; CurrentProvider selects
	// the active one. With a single entry the key is picked automatically.
	Providers       map[string]provider.Provider
	CurrentProvider string

	SystemPrompt string
	Tools        []tool.Tool
	Plugins      []plugin.Plugin

	MaxTokenLimit   int // 0 = unlimited
	MaxRequestLimit int // 0 = unlimited
	Pricing         map[string]limits.ModelPricing

	// ParallelTools opts a multi-call batch into concurrent execution.
	ParallelTools bool

	// Store optionally receives every appended message.
	Store session.Store

	// SharedProviders marks the provider map as owned by someone else
	// (e.g. a factory handing the same adapters to many agents). Destroy
	// then skips closing them; whoever owns the map closes it.
	SharedProviders bool

	Logger logging.Logger
	Debug  bool
}

// Agent bundles a provider binding, tool set, system prompt, limits and
// plugins around one conversation. The configuration is immutable after
// construction except for the dynamic limit setters.
type Agent struct {
	id   string
	name string

	providers map[string]provider.Provider
	current   string

	conversation *core.Conversation
	registry     *tool.Registry
	executor     *tool.Executor
	guard        *limits.Guard
	pipeline     *plugin.Pipeline
	analytics    *plugin.AnalyticsPlugin
	store        session.Store
	logger       logging.Logger

	sharedProviders bool

	runMu     sync.Mutex // serializes Run/RunStream
	stateMu   sync.Mutex
	state     State
	destroyed bool
}

// New constructs a fully wired agent. It fails on an empty provider set,
// an unknown CurrentProvider key, or duplicate tool names.
func New(optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(opts.Providers) == 0 {
		return nil, fmt.Errorf("agent: at least one provider is required")
	}
	current := opts.CurrentProvider
	if current == "" {
		if len(opts.Providers) > 1 {
			return nil, fmt.Errorf("agent: CurrentProvider must be set when multiple providers are configured")
		}
		for key := range opts.Providers {
			current = key
		}
	}
	if _, ok := opts.Providers[current]; !ok {
		return nil, fmt.Errorf("agent: unknown provider %q", current)
	}

	logger := opts.Logger
	if logger == nil {
		if opts.Debug {
			logger = logging.NewLogger(&logging.LoggerConfig{
				Level:     logging.LogLevelDebug,
				Format:    "text",
				Output:    os.Stderr,
				Component: "agent",
			})
		} else {
			logger = logging.NoOpLogger{}
		}
	}

	id := opts.ID
	if id == "" {
		id = core.NewID()
	}
	name := opts.Name
	if name == "" {
		name = id
	}

	registry := tool.NewRegistry()
	for _, t := range opts.Tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("agent: %w", err)
		}
	}

	guard := limits.NewGuard(func(o *limits.Options) {
		o.MaxTokens = opts.MaxTokenLimit
		o.MaxRequests = opts.MaxRequestLimit
		o.Logger = logger
		if opts.Pricing != nil {
			o.Pricing = opts.Pricing
		}
	})

	analytics := plugin.NewAnalyticsPlugin()
	pipeline := plugin.NewPipeline(logger)
	pipeline.Register(analytics)
	if opts.Debug {
		pipeline.Register(plugin.NewLoggingPlugin(logger))
	}
	for _, pl := range opts.Plugins {
		pipeline.Register(pl)
	}

	a := &Agent{
		id:           id,
		name:         name,
		providers:    opts.Providers,
		current:      current,
		conversation: core.NewConversation(opts.SystemPrompt),
		registry:     registry,
		guard:        guard,
		pipeline:     pipeline,
		analytics:    analytics,
		store:        opts.Store,
		logger:       logger,
		state:        StateIdle,

		sharedProviders: opts.SharedProviders,
	}
	a.executor = tool.NewExecutor(registry, logger, func(o *tool.ExecutorConfig) {
		o.Parallel = opts.ParallelTools
	})

	if opts.Store != nil && opts.SystemPrompt != "" {
		a.syncStore(a.conversation.Messages()...)
	}

	return a, nil
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.id }

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// State returns the engine's current loop state.
func (a *Agent) State() State {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.state
}

// History returns a copy of the conversation messages.
func (a *Agent) History() []core.Message { return a.conversation.Messages() }

// Conversation exposes the underlying conversation for inspection.
func (a *Agent) Conversation() *core.Conversation { return a.conversation }

// Tools returns the agent's tool registry.
func (a *Agent) Tools() *tool.Registry { return a.registry }

// Provider returns the active provider adapter.
func (a *Agent) Provider() provider.Provider { return a.providers[a.current] }

// LimitInfo returns a snapshot of the budget guard state.
func (a *Agent) LimitInfo() limits.Info { return a.guard.Info() }

// TotalTokensUsed returns the tokens consumed since the last reset.
func (a *Agent) TotalTokensUsed() int { return a.guard.TokensUsed() }

// RequestLog returns the per-request usage log.
func (a *Agent) RequestLog() []limits.RequestRecord { return a.guard.RequestLog() }

// SetMaxTokenLimit changes the token budget; effective from the next
// precheck. 0 means unlimited.
func (a *Agent) SetMaxTokenLimit(n int) { a.guard.SetMaxTokens(n) }

// SetMaxRequestLimit changes the request budget; effective from the next
// precheck. 0 means unlimited.
func (a *Agent) SetMaxRequestLimit(n int) { a.guard.SetMaxRequests(n) }

// ResetLimits clears budget counters without reconstructing the agent.
func (a *Agent) ResetLimits() { a.guard.Reset() }

// Analytics returns the counters collected by the built-in analytics
// plugin.
func (a *Agent) Analytics() plugin.Analytics { return a.analytics.Snapshot() }

// ResetAnalytics clears the analytics counters.
func (a *Agent) ResetAnalytics() { a.analytics.Reset() }

// Destroy releases agent resources: owned providers implementing io.Closer
// are closed and further runs are rejected. Providers marked shared are
// left open; they may still be serving the parent and sibling agents.
// Safe to call multiple times; only the first call does the work.
func (a *Agent) Destroy() error {
	a.stateMu.Lock()
	if a.destroyed {
		a.stateMu.Unlock()
		return nil
	}
	a.destroyed = true
	a.stateMu.Unlock()

	var errs []error
	if !a.sharedProviders {
		for key, p := range a.providers {
			if closer, ok := p.(io.Closer); ok {
				if err := closer.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close provider %s: %w", key, err))
				}
			}
		}
	}

	a.logger.Info("agent.destroyed", "agent_id", a.id)
	return errors.Join(errs...)
}

// Destroyed reports whether Destroy has been called.
func (a *Agent) Destroyed() bool {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.destroyed
}

func (a *Agent) setState(s State) {
	a.stateMu.Lock()
	a.state = s
	a.stateMu.Unlock()
}

// syncStore forwards appended messages to the optional history store.
// Store failures are logged, never fatal.
func (a *Agent) syncStore(msgs ...core.Message) {
	if a.store == nil || len(msgs) == 0 {
		return
	}
	if err := a.store.Append(a.conversation.ID, msgs...); err != nil {
		a.logger.Warn("agent.store.append_failed", "agent_id", a.id, "error", err.Error())
	}
}

// append adds messages to the conversation and mirrors them to the store.
func (a *Agent) append(msgs ...core.Message) {
	a.conversation.Append(msgs...)
	a.syncStore(msgs...)
}
