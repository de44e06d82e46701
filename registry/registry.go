// Package registry maps agent-kind identifiers to factories producing Agent
// instances. It is the single place dynamic dispatch by kind tag occurs; the
// scheduler never matches on agent kind directly. Adding a new agent kind
// means registering a new factory, never changing scheduler logic.
package registry

import (
	"sync"

	"github.com/tzervas/taskflow/core"
)

// Registry holds agent factories keyed by kind. It is read-mostly: populate
// it during setup, then share it read-only across workers. All methods are
// safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]core.Factory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]core.Factory)}
}

// Register adds a factory for the given kind, replacing any previous
// registration for the same kind.
func (r *Registry) Register(kind string, factory core.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Create instantiates an agent for the given kind. It fails with an
// UnknownAgentKind error if the kind was never registered.
func (r *Registry) Create(kind string) (core.Agent, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, core.Errorf(core.ErrorKindUnknownAgentKind, "agent kind %q not registered", kind)
	}
	return factory(), nil
}

// Has reports whether a factory is registered for the given kind.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds in unspecified order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	return kinds
}
