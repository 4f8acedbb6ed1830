package forecast

import (
	"fmt"
	"sort"
	"sync"

	"FinCast/internal/domain"
	domsvc "FinCast/internal/domain/service"
)

// Registry maps backend names to forecasters.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]domsvc.Forecaster
	fallback string
}

func NewRegistry(fallback string, forecasters ...domsvc.Forecaster) *Registry {
	r := &Registry{backends: make(map[string]domsvc.Forecaster, len(forecasters)), fallback: fallback}
	for _, f := range forecasters {
		r.Register(f)
	}
	return r
}

// Register adds or replaces a forecaster under its own name.
func (r *Registry) Register(f domsvc.Forecaster) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[f.Name()] = f
}

// Get returns the named forecaster or ErrUnknownBackend.
func (r *Registry) Get(name string) (domsvc.Forecaster, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, name)
	}
	return f, nil
}

// Resolve is Get with degradation to the fallback backend for names that are
// valid but were not registered.
func (r *Registry) Resolve(name string) (domsvc.Forecaster, error) {
	if f, err := r.Get(name); err == nil {
		return f, nil
	}
	if r.fallback == "" || r.fallback == name {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownBackend, name)
	}
	return r.Get(r.fallback)
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.backends))
	for name := range r.backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
