package callback

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// Registry is the runtime-wide dispatch table from handle to Wrapper.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	wrappers map[string]*Wrapper
	logger   *slog.Logger
	observe  Observer
}

// Observer is told the outcome of every remote invocation. err is nil on
// success.
type Observer func(name string, err error)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for revocation and invocation traces.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver sets the invocation observer.
func WithObserver(fn Observer) Option {
	return func(r *Registry) {
		r.observe = fn
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		wrappers: make(map[string]*Wrapper),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke dispatches a remote invocation to the wrapper registered under
// handle. The target runs exactly once and its error is returned wrapped as
// E250. An unknown or revoked handle fails with E251.
func (r *Registry) Invoke(ctx context.Context, handle string, arg any) error {
	r.mu.RLock()
	w, ok := r.wrappers[handle]
	r.mu.RUnlock()

	if !ok {
		err := verrors.New("E251").WithDetailf("handle %q", handle)
		if r.observe != nil {
			r.observe("", err)
		}
		return err
	}

	err := w.Invoke(ctx, arg)
	if r.observe != nil {
		r.observe(w.Name(), err)
	}
	return err
}

// Lookup returns the live wrapper for handle.
func (r *Registry) Lookup(handle string) (*Wrapper, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wrappers[handle]
	return w, ok
}

// Len returns the number of live wrappers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.wrappers)
}

// NewSet creates the per-proxy wrapper set.
func (r *Registry) NewSet() *Set {
	return &Set{registry: r, byName: make(map[string]*Wrapper)}
}

func (r *Registry) register(name string, value mixed.Value) *Wrapper {
	w := &Wrapper{
		handle: newHandle(),
		name:   name,
		arity:  arityOf(value),
		target: value,
	}

	r.mu.Lock()
	r.wrappers[w.handle] = w
	r.mu.Unlock()
	return w
}

func (r *Registry) revoke(w *Wrapper) {
	w.dispose()

	r.mu.Lock()
	delete(r.wrappers, w.handle)
	r.mu.Unlock()

	r.logger.Debug("callback revoked", "name", w.name, "handle", w.handle)
}

// newHandle returns a time-ordered UUID so handles sort by creation.
func newHandle() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func arityOf(v mixed.Value) mixed.Arity {
	if v.Kind() == mixed.KindCallbackArg {
		return mixed.Arity1
	}
	return mixed.Arity0
}
