package engine

import (
	"sync"

	"github.com/swedenconnect/eidas-eu-mock-sub026/internal/core/domain"
)

// Registry holds the configured protocol engines by instance name. It is
// an explicit, caller-constructed object passed to call sites; there is
// no process-wide singleton.
type Registry struct {
	mu      sync.RWMutex
	engines map[string]*ProtocolEngine
}

// NewRegistry returns an empty engine registry.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[string]*ProtocolEngine)}
}

// Register adds an engine under its instance name. Registering the same
// name twice is a configuration error.
func (r *Registry) Register(e *ProtocolEngine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := e.InstanceName()
	if _, exists := r.engines[name]; exists {
		return domain.ConfigurationError("engine instance " + name + " is already registered")
	}
	r.engines[name] = e
	return nil
}

// Get returns the engine bound to an instance name. A name with no bound
// configuration is a configuration error, per contract.
func (r *Registry) Get(instanceName string) (*ProtocolEngine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.engines[instanceName]
	if !ok {
		return nil, domain.ConfigurationError("no engine configuration bound to instance " + instanceName)
	}
	return e, nil
}

// Names returns the registered instance names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}
