package backends

import (
	"errors"
	"sort"
	"sync"
)

// Registry manages backend instances keyed by name
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates a new backend registry
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[string]Backend),
	}
}

// Register registers a backend instance
func (r *Registry) Register(backend Backend) error {
	if backend == nil {
		return errors.New("backend cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := backend.Name()
	if name == "" {
		return errors.New("backend name cannot be empty")
	}

	if _, exists := r.backends[name]; exists {
		return ErrBackendAlreadyRegistered
	}

	r.backends[name] = backend
	return nil
}

// Unregister removes a backend from the registry
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[name]; !exists {
		return ErrBackendNotFound
	}

	delete(r.backends, name)
	return nil
}

// Get retrieves a backend by name
func (r *Registry) Get(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, exists := r.backends[name]
	if !exists {
		return nil, ErrBackendNotFound
	}

	return backend, nil
}

// List returns all registered backend names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Count returns the number of registered backends
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.backends)
}
