package tool

import (
	"sort"
	"sync"

	"github.com/lookatitude/agentcore/core"
	"github.com/lookatitude/agentcore/schema"
)

// Registry is an in-memory, name-keyed collection of tools, the Go analogue
// of the original implementation's ToolRegistry (noema-core/llm/tools.rs),
// generalized to hold any Tool rather than a closure plus ToolDefinition
// pair.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Add registers tool under its own Name. Re-registering an existing name is
// an error, not a silent overwrite: a second tool answering to a name
// already offered to the model would be ambiguous about which one ran.
func (r *Registry) Add(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return core.NewError("tool.Registry.Add", core.ErrConflict, "tool \""+name+"\" already registered", nil)
	}
	r.tools[name] = t
	return nil
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, core.NewError("tool.Registry.Get", core.ErrNotFound, "tool \""+name+"\" not registered", nil)
	}
	return t, nil
}

// Remove deletes a tool by name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[name]; !ok {
		return core.NewError("tool.Registry.Remove", core.ErrNotFound, "tool \""+name+"\" not registered", nil)
	}
	delete(r.tools, name)
	return nil
}

// List returns every registered tool name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every registered Tool, sorted by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tools := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Definitions returns every registered tool's definition as the raw
// map[string]any shape most ChatModel provider wire formats expect
// (OpenAI/Anthropic-style {name, description, input_schema}).
func (r *Registry) Definitions() []map[string]any {
	all := r.All()
	defs := make([]map[string]any, len(all))
	for i, t := range all {
		defs[i] = map[string]any{
			"name":         t.Name(),
			"description":  t.Description(),
			"input_schema": t.InputSchema(),
		}
	}
	return defs
}

// AllDefinitions returns every registered tool's schema.ToolDefinition, in
// the shape ToolAgent sends on a ChatRequest.
func (r *Registry) AllDefinitions() []schema.ToolDefinition {
	all := r.All()
	defs := make([]schema.ToolDefinition, len(all))
	for i, t := range all {
		defs[i] = ToDefinition(t)
	}
	return defs
}
