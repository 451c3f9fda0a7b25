// Package agentcrew provides a high-level façade over the agent execution
// core: a conversation engine with tool calling, usage budgets, lifecycle
// plugins and delegation to short-lived specialist agents. Most
// applications interact with this package by:
//  1. Creating a Crew via New() with one or more provider adapters
//  2. Registering tools and agent templates
//  3. Running conversations through the top-level agent (Run / RunStream)
//
// The façade delegates the loop to agent.Agent and delegation to
// team.Coordinator while keeping setup ergonomics concise. All defaults
// are safe for local development and testing; production deployments
// typically supply a durable history store and a structured logger.
package agentcrew

import (
	"context"
	"fmt"

	"github.com/agentcrew/agentcrew/agent"
	"github.com/agentcrew/agentcrew/limits"
	"github.com/agentcrew/agentcrew/logging"
	"github.com/agentcrew/agentcrew/plugin"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/session"
	"github.com/agentcrew/agentcrew/team"
	"github.com/agentcrew/agentcrew/tool"
)

// Options configures a Crew instance.
type Options struct {
	// Providers maps provider keys to adapters; CurrentProvider selects
	// the top-level agent's active one.
	Providers       map[string]provider.Provider
	CurrentProvider string

	// SystemPrompt for the top-level agent.
	SystemPrompt string

	// Tools form the shared catalog: they are wired into the top-level
	// agent and become available to delegated agents by name.
	Tools []tool.Tool

	// Templates to register with the coordinator.
	Templates []team.Template

	// Plugins for the top-level agent.
	Plugins []plugin.Plugin

	// Delegation enables the assign_task tool on the top-level agent.
	Delegation bool

	// MaxDelegationDepth bounds recursive delegation; 0 = unlimited.
	MaxDelegationDepth int

	MaxTokenLimit   int // 0 = unlimited
	MaxRequestLimit int // 0 = unlimited
	Pricing         map[string]limits.ModelPricing

	ParallelTools bool

	// Store (defaults to no persistence; in-memory store available in
	// the session package)
	Store session.Store

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
	Debug  bool
}

// Crew is the high-level façade aggregating the top-level agent, the agent
// factory and the team coordinator.
type Crew struct {
	agent       *agent.Agent
	factory     *team.Factory
	coordinator *team.Coordinator
}

// New creates a new Crew with optional overrides.
func New(optFns ...func(o *Options)) (*Crew, error) {
	opts := Options{
		Delegation: true,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(opts.Providers) == 0 {
		return nil, fmt.Errorf("agentcrew: at least one provider is required")
	}
	current := opts.CurrentProvider
	if current == "" {
		if len(opts.Providers) > 1 {
			return nil, fmt.Errorf("agentcrew: CurrentProvider must be set when multiple providers are configured")
		}
		for key := range opts.Providers {
			current = key
		}
	}

	factory, err := team.NewFactory(opts.Providers, current, opts.Tools, func(o *team.FactoryOptions) {
		o.Store = opts.Store
		o.Logger = opts.Logger
		o.Pricing = opts.Pricing
	})
	if err != nil {
		return nil, err
	}

	coordinator := team.NewCoordinator(factory, func(o *team.CoordinatorOptions) {
		o.MaxDepth = opts.MaxDelegationDepth
		o.Logger = opts.Logger
	})
	for _, tpl := range opts.Templates {
		if err := coordinator.Templates().Register(tpl); err != nil {
			return nil, err
		}
	}

	tools := append([]tool.Tool{}, opts.Tools...)
	if opts.Delegation {
		tools = append(tools, coordinator.Tool())
	}

	top, err := agent.New(func(o *agent.Options) {
		o.Providers = opts.Providers
		o.CurrentProvider = current
		o.SystemPrompt = opts.SystemPrompt
		o.Tools = tools
		o.Plugins = opts.Plugins
		o.MaxTokenLimit = opts.MaxTokenLimit
		o.MaxRequestLimit = opts.MaxRequestLimit
		o.Pricing = opts.Pricing
		o.ParallelTools = opts.ParallelTools
		o.Store = opts.Store
		o.Logger = opts.Logger
		o.Debug = opts.Debug
	})
	if err != nil {
		return nil, err
	}

	return &Crew{agent: top, factory: factory, coordinator: coordinator}, nil
}

// Agent returns the top-level agent.
func (c *Crew) Agent() *agent.Agent { return c.agent }

// Coordinator returns the team coordinator.
func (c *Crew) Coordinator() *team.Coordinator { return c.coordinator }

// Run executes one conversation turn and returns the final assistant text.
func (c *Crew) Run(ctx context.Context, input string) (string, error) {
	return c.agent.Run(ctx, input)
}

// RunStream executes one conversation turn, streaming assistant text.
func (c *Crew) RunStream(ctx context.Context, input string) (<-chan string, <-chan error) {
	return c.agent.RunStream(ctx, input)
}

// Destroy releases the top-level agent's resources.
func (c *Crew) Destroy() error { return c.agent.Destroy() }
