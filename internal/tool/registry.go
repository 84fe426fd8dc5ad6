package tool

import (
	"fmt"
	"strings"
	"sync"
)

// Registry keeps the mapping between tool names and implementations.
// Registration order is preserved for List and Specs.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool. Duplicate names are rejected with ErrDuplicateTool.
func (r *Registry) Register(spec Spec, exec Executor) error {
	name := strings.TrimSpace(spec.Name)
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}
	if exec == nil {
		return fmt.Errorf("tool %s has no executor", name)
	}
	for _, req := range spec.Schema.Required {
		if _, ok := spec.Schema.Properties[req]; !ok {
			return fmt.Errorf("tool %s requires undeclared argument %q", name, req)
		}
	}
	spec.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, name)
	}
	r.tools[name] = &Tool{Spec: spec, Executor: exec}
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for static tool sets; it panics on error.
func (r *Registry) MustRegister(spec Spec, exec Executor) {
	if err := r.Register(spec, exec); err != nil {
		panic(err)
	}
}

// Resolve returns the tool registered under name or an *UnknownToolError.
func (r *Registry) Resolve(name string) (Tool, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return Tool{}, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Lookup is Resolve without the error.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}
	return *t, true
}

// SetPolicy overrides the review policy of a registered tool.
func (r *Registry) SetPolicy(name string, policy ReviewPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tools[name]
	if !ok {
		return &UnknownToolError{Name: name}
	}
	t.Policy = policy
	return nil
}

// List returns a snapshot of all tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.tools[name])
	}
	return out
}

// Specs returns the specs of all tools in registration order.
func (r *Registry) Specs() []Spec {
	tools := r.List()
	out := make([]Spec, len(tools))
	for i, t := range tools {
		out[i] = t.Spec
	}
	return out
}

// Validate resolves call.Name and checks its arguments against the schema.
func (r *Registry) Validate(call Call) (Tool, error) {
	t, err := r.Resolve(call.Name)
	if err != nil {
		return Tool{}, err
	}
	if err := t.Schema.Validate(t.Name, call.Arguments); err != nil {
		return t, err
	}
	return t, nil
}
