package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/agentcrew/agentcrew/provider"
)

// Registry holds the set of tools available to one agent. Names are unique
// within a registry; registration of a duplicate name fails. Safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. It fails when the name is empty or already present.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register: tool is nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("register: tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("register: tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Unregister removes a tool by name; removing an unknown name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the tool with the given name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns provider-facing definitions for every registered
// tool, sorted by name for deterministic request payloads.
func (r *Registry) Definitions() []provider.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]provider.ToolDefinition, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		defs = append(defs, provider.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute looks up a tool by name, parses the raw JSON arguments and runs
// the call. Unknown tools and malformed argument payloads surface as
// *ToolError so the conversation loop can report them as failed tool
// results instead of aborting.
func (r *Registry) Execute(toolCtx *Context, name, rawArgs string) (any, error) {
	impl, ok := r.Get(name)
	if !ok {
		return nil, NewToolError(name, "tool not found", "VALIDATION_ERROR")
	}

	argMap := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &argMap); err != nil {
			return nil, &ToolError{
				Tool:    name,
				Message: fmt.Sprintf("failed to unmarshal arguments: %v", err),
				Code:    "VALIDATION_ERROR",
			}
		}
	}

	return impl.Call(toolCtx, argMap)
}
