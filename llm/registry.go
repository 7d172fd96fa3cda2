package llm

import (
	"fmt"
	"sync"
)

// Registry maps model names referenced by agent definitions to Model
// implementations.
type Registry struct {
	mu     sync.RWMutex
	models map[string]Model
}

// Register adds or replaces a named model.
func (r *Registry) Register(name string, model Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = model
}

// Lookup returns the named model.
func (r *Registry) Lookup(name string) (Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model %q not registered", name)
	}
	return model, nil
}

// Names returns registered model names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	return names
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model)}
}
