package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps agent names to agents. Names are unique within one Registry;
// registering a name twice replaces the earlier agent.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry returns an empty registry, optionally seeded with agents.
func NewRegistry(agents ...*Agent) *Registry {
	r := &Registry{agents: make(map[string]*Agent)}
	for _, a := range agents {
		r.Register(a)
	}
	return r
}

// Register adds a under a.Name.
func (r *Registry) Register(a *Agent) {
	if a == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[a.Name] = a
}

// Get looks up an agent by name.
func (r *Registry) Get(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent %s: %w", name, ErrNotFound)
	}
	return a, nil
}

// List returns registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deregister removes and returns the agent registered under name, or nil.
func (r *Registry) Deregister(name string) *Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.agents[name]
	delete(r.agents, name)
	return a
}
