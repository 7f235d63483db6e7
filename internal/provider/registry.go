package provider

import (
	"sync"

	"github.com/tsmarvin/tunebridge/internal/tbcore"
)

// Registry holds all registered provider adapters, keyed by ProviderId.
type Registry struct {
	mu       sync.RWMutex
	adapters map[tbcore.ProviderId]Adapter
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[tbcore.ProviderId]Adapter)}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns an adapter by name, or nil if not registered.
func (r *Registry) Get(name tbcore.ProviderId) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.adapters[name]
}

// All returns every registered adapter in ProviderId declaration order —
// the order the Aggregator relies on for registered-order identifier
// lookups and for presentation.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Adapter, 0, len(r.adapters))
	for _, name := range tbcore.AllProviderIDs() {
		if a, ok := r.adapters[name]; ok {
			result = append(result, a)
		}
	}
	return result
}

// Others returns every registered adapter except the one named, in
// declaration order — used by the Aggregator to fan out to "every other
// provider" from a primary match.
func (r *Registry) Others(except tbcore.ProviderId) []Adapter {
	all := r.All()
	result := make([]Adapter, 0, len(all))
	for _, a := range all {
		if a.Name() != except {
			result = append(result, a)
		}
	}
	return result
}
