package replication

import (
	"sync"
)

// Registry is a set of named strategies with one default.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
	order      []string
	def        string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// DefaultRegistry is the process-wide registry used by the package-level
// functions.
var DefaultRegistry = NewRegistry()

// Register adds s under s.Name(). The first strategy registered becomes the
// default, as does any strategy registered with makeDefault. Registering the
// same strategy again only updates the default; a different strategy with
// the same name fails with ErrDuplicateStrategy.
func (r *Registry) Register(s Strategy, makeDefault bool) error {
	name := s.Name()
	if name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.strategies[name]; ok {
		if existing != s {
			return ErrDuplicateStrategy
		}
	} else {
		r.strategies[name] = s
		r.order = append(r.order, name)
	}

	if makeDefault || r.def == "" {
		r.def = name
	}
	return nil
}

// Unregister removes the named strategy. When it was the default, the
// earliest registered remaining strategy becomes the default.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.strategies[name]; !ok {
		return ErrStrategyNotFound
	}
	delete(r.strategies, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.def == name {
		r.def = ""
		if len(r.order) > 0 {
			r.def = r.order[0]
		}
	}
	return nil
}

// Find returns the named strategy, or the default when name is empty.
func (r *Registry) Find(name string) (Strategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.def
	}
	s, ok := r.strategies[name]
	if !ok {
		return nil, ErrStrategyNotFound
	}
	return s, nil
}

// Default returns the name of the default strategy, or "" when empty.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.def
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Register adds s to DefaultRegistry.
func Register(s Strategy, makeDefault bool) error {
	return DefaultRegistry.Register(s, makeDefault)
}

// Unregister removes the named strategy from DefaultRegistry.
func Unregister(name string) error {
	return DefaultRegistry.Unregister(name)
}

// Find looks a strategy up in DefaultRegistry.
func Find(name string) (Strategy, error) {
	return DefaultRegistry.Find(name)
}

// Names lists the strategies in DefaultRegistry.
func Names() []string {
	return DefaultRegistry.Names()
}
