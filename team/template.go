package team

import (
	"fmt"
	"sort"
	"sync"
)

// Template describes a named specialist from which ephemeral agents are
// built. Templates are read-only after registration and may back any number
// of concurrent ephemeral agents.
type Template struct {
	// Name is the unique identifier referenced by delegation requests.
	Name string

	// Description is surfaced in the delegation tool schema to help the
	// model pick a template.
	Description string

	// Provider selects a provider key; empty inherits the coordinator
	// default.
	Provider string

	// SystemPrompt is the ephemeral agent's system prompt.
	SystemPrompt string

	// Tools names catalog tools always wired into agents built from this
	// template, in addition to any the request asks for.
	Tools []string

	// MaxTokenLimit / MaxRequestLimit bound the ephemeral agent's budget.
	// 0 means unlimited.
	MaxTokenLimit   int
	MaxRequestLimit int
}

// Templates is a concurrency safe registry of agent templates.
type Templates struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplates creates an empty template registry.
func NewTemplates() *Templates {
	return &Templates{templates: make(map[string]Template)}
}

// Register adds a template; duplicate names fail.
func (t *Templates) Register(tpl Template) error {
	if tpl.Name == "" {
		return fmt.Errorf("register: template name is empty")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.templates[tpl.Name]; exists {
		return fmt.Errorf("register: template %q already registered", tpl.Name)
	}
	t.templates[tpl.Name] = tpl
	return nil
}

// Get returns a template by name.
func (t *Templates) Get(name string) (Template, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tpl, ok := t.templates[name]
	return tpl, ok
}

// Names returns the registered template names in sorted order.
func (t *Templates) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.templates))
	for name := range t.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all templates keyed by name.
func (t *Templates) All() map[string]Template {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Template, len(t.templates))
	for name, tpl := range t.templates {
		out[name] = tpl
	}
	return out
}
