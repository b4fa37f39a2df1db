package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Provenance marks whether a tool output came from a real backend or from a
// canned placeholder used when the backend is unreachable.
type Provenance string

const (
	ProvenanceReal        Provenance = "real"
	ProvenancePlaceholder Provenance = "placeholder"
)

// Output is the result of a single tool action.
type Output struct {
	Data       map[string]interface{} `json:"data"`
	Summary    string                 `json:"summary"`
	Provenance Provenance             `json:"provenance"`
}

// Tool is a capability the agent can invoke.
type Tool interface {
	// Name returns the stable identifier used in workflow configs.
	Name() string
	// Execute runs one action. Implementations must honor ctx cancellation
	// for anything that blocks.
	Execute(ctx context.Context, action string, params map[string]interface{}) (*Output, error)
}

// ErrUnknownAction builds the error returned for an action a tool does not
// implement.
func ErrUnknownAction(tool, action string) error {
	return fmt.Errorf("tool %q does not support action %q", tool, action)
}

// Registry holds the available tools by name.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool; registering the same name twice is a programming
// error.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[tool.Name()]; exists {
		return fmt.Errorf("tool %q already registered", tool.Name())
	}
	r.tools[tool.Name()] = tool
	return nil
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return tool, nil
}

// Has reports whether the named tool is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns the registered tool names in sorted order.
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
