package mixed

import (
	"sync"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

// Activator creates component instances by marker.
type Activator interface {
	CreateInstance(marker Marker) (Component, error)
}

// ActivatorFunc adapts a function to the Activator interface.
type ActivatorFunc func(marker Marker) (Component, error)

// CreateInstance implements Activator.
func (f ActivatorFunc) CreateInstance(marker Marker) (Component, error) {
	return f(marker)
}

// DefaultActivator constructs components from registered factories.
// It never substitutes proxies.
type DefaultActivator struct {
	mu        sync.RWMutex
	factories map[Marker]Factory
}

// NewDefaultActivator creates an empty DefaultActivator.
func NewDefaultActivator() *DefaultActivator {
	return &DefaultActivator{factories: make(map[Marker]Factory)}
}

// Register associates a factory with a marker, replacing any previous one.
func (a *DefaultActivator) Register(marker Marker, factory Factory) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.factories[marker] = factory
}

// Has reports whether a factory is registered for marker.
func (a *DefaultActivator) Has(marker Marker) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.factories[marker]
	return ok
}

// CreateInstance implements Activator.
func (a *DefaultActivator) CreateInstance(marker Marker) (Component, error) {
	a.mu.RLock()
	factory, ok := a.factories[marker]
	a.mu.RUnlock()

	if !ok || factory == nil {
		return nil, verrors.New("E206").
			WithDetailf("no factory for %q", marker).
			WithSuggestion("Register the component with DefaultActivator.Register")
	}
	return factory(), nil
}
