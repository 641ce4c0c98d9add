package callback

import (
	"sort"
	"sync"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// Set holds the wrappers of one proxy, keyed by parameter name.
type Set struct {
	registry *Registry

	mu       sync.Mutex
	byName   map[string]*Wrapper
	disposed bool
}

// Update captures params for the wire. Plain values are copied verbatim.
// Callback names already present keep their wrapper and only change its
// target; new names get a new wrapper. Names missing from params are
// revoked immediately, so a later reintroduction receives a fresh handle.
// A callback whose arity changed is treated as a new name.
func (s *Set) Update(params mixed.Parameters) (mixed.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return mixed.Snapshot{}, verrors.New("E233").WithDetail("callback set disposed")
	}

	snap := mixed.Snapshot{Values: make(map[string]any, len(params))}
	seen := make(map[string]bool, len(params))

	for _, name := range params.Names() {
		value := params[name]
		if !value.IsCallback() {
			snap.Values[name] = value.Data()
			continue
		}

		seen[name] = true
		w, ok := s.byName[name]
		if ok && w.arity != arityOf(value) {
			s.registry.revoke(w)
			ok = false
		}
		if ok {
			w.retarget(value)
		} else {
			w = s.registry.register(name, value)
			s.byName[name] = w
		}
		snap.Callbacks = append(snap.Callbacks, w.Ref())
	}

	for name, w := range s.byName {
		if !seen[name] {
			s.registry.revoke(w)
			delete(s.byName, name)
		}
	}

	return snap, nil
}

// Wrapper returns the live wrapper for name.
func (s *Set) Wrapper(name string) (*Wrapper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.byName[name]
	return w, ok
}

// Names returns the callback names currently wrapped, sorted.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispose revokes every wrapper. It is idempotent; later Updates fail.
func (s *Set) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}
	s.disposed = true
	for name, w := range s.byName {
		s.registry.revoke(w)
		delete(s.byName, name)
	}
}
