package team

import (
	"fmt"

	"github.com/agentcrew/agentcrew/agent"
	"github.com/agentcrew/agentcrew/limits"
	"github.com/agentcrew/agentcrew/logging"
	"github.com/agentcrew/agentcrew/plugin"
	"github.com/agentcrew/agentcrew/provider"
	"github.com/agentcrew/agentcrew/session"
	"github.com/agentcrew/agentcrew/tool"
)

// FactoryOptions configure an agent factory.
type FactoryOptions struct {
	Store  session.Store
	Logger logging.Logger

	// PluginFactory produces fresh plugins per built agent. Sharing one
	// plugin instance across agents would mix their side channels, so the
	// factory asks for new ones each time.
	PluginFactory func() []plugin.Plugin

	Pricing map[string]limits.ModelPricing
}

// Factory constructs fully wired agents from a build spec. It holds the
// provider bindings and the tool catalog; both are read-only after
// construction and safely shared by every agent the factory builds.
type Factory struct {
	providers       map[string]provider.Provider
	defaultProvider string
	catalog         map[string]tool.Tool
	opts            FactoryOptions
}

// NewFactory creates a factory. defaultProvider must be a key of providers;
// catalog tools are referenced by name in templates and delegation
// requests.
func NewFactory(
	providers map[string]provider.Provider,
	defaultProvider string,
	catalog []tool.Tool,
	optFns ...func(o *FactoryOptions),
) (*Factory, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("factory: at least one provider is required")
	}
	if _, ok := providers[defaultProvider]; !ok {
		return nil, fmt.Errorf("factory: unknown default provider %q", defaultProvider)
	}

	opts := FactoryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	byName := make(map[string]tool.Tool, len(catalog))
	for _, t := range catalog {
		if _, exists := byName[t.Name()]; exists {
			return nil, fmt.Errorf("factory: duplicate catalog tool %q", t.Name())
		}
		byName[t.Name()] = t
	}

	return &Factory{
		providers:       providers,
		defaultProvider: defaultProvider,
		catalog:         byName,
		opts:            opts,
	}, nil
}

// Catalog returns the names of the tools the factory can wire.
func (f *Factory) Catalog() []string {
	names := make([]string, 0, len(f.catalog))
	for name := range f.catalog {
		names = append(names, name)
	}
	return names
}

// HasTool reports whether the catalog contains the named tool.
func (f *Factory) HasTool(name string) bool {
	_, ok := f.catalog[name]
	return ok
}

// Spec describes one agent to build.
type Spec struct {
	Name            string
	Provider        string // empty selects the factory default
	SystemPrompt    string
	ToolNames       []string    // resolved from the catalog
	ExtraTools      []tool.Tool // wired as-is, e.g. a delegation tool
	MaxTokenLimit   int
	MaxRequestLimit int
}

// Build constructs a wired agent. Unknown tool names fail before any agent
// state is created.
func (f *Factory) Build(spec Spec) (*agent.Agent, error) {
	providerKey := spec.Provider
	if providerKey == "" {
		providerKey = f.defaultProvider
	}
	if _, ok := f.providers[providerKey]; !ok {
		return nil, fmt.Errorf("factory: unknown provider %q", providerKey)
	}

	tools := make([]tool.Tool, 0, len(spec.ToolNames)+len(spec.ExtraTools))
	seen := map[string]bool{}
	for _, name := range spec.ToolNames {
		impl, ok := f.catalog[name]
		if !ok {
			return nil, fmt.Errorf("factory: tool %q not in catalog", name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		tools = append(tools, impl)
	}
	for _, t := range spec.ExtraTools {
		if seen[t.Name()] {
			continue
		}
		seen[t.Name()] = true
		tools = append(tools, t)
	}

	var plugins []plugin.Plugin
	if f.opts.PluginFactory != nil {
		plugins = f.opts.PluginFactory()
	}

	return agent.New(func(o *agent.Options) {
		o.Name = spec.Name
		o.Providers = f.providers
		o.CurrentProvider = providerKey
		o.SystemPrompt = spec.SystemPrompt
		o.Tools = tools
		o.Plugins = plugins
		o.MaxTokenLimit = spec.MaxTokenLimit
		o.MaxRequestLimit = spec.MaxRequestLimit
		o.Store = f.opts.Store
		o.Logger = f.opts.Logger
		o.Pricing = f.opts.Pricing
		// The factory's providers outlive any one agent it builds.
		o.SharedProviders = true
	})
}
