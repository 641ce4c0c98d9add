package bridge

import (
	"context"
	"sync"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// BindingState is the lifecycle state of one element binding.
type BindingState uint8

const (
	Unbound   BindingState = iota // No attach attempted
	Attaching                     // Add in flight
	Bound                         // Add resolved
	Disposed                      // Element is dead
)

// String returns the string representation of the state.
func (s BindingState) String() string {
	switch s {
	case Unbound:
		return "Unbound"
	case Attaching:
		return "Attaching"
	case Bound:
		return "Bound"
	case Disposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// Live reports whether the binding holds or awaits an instance.
func (s BindingState) Live() bool {
	return s == Attaching || s == Bound
}

type binding struct {
	state   BindingState
	runtime mixed.RuntimeID
	settled chan struct{} // closed when Attaching ends
}

// Bindings is the container → binding table. It is safe for concurrent use.
type Bindings struct {
	mu      sync.Mutex
	entries map[vdom.ElementRef]*binding
}

// NewBindings creates an empty table.
func NewBindings() *Bindings {
	return &Bindings{entries: make(map[vdom.ElementRef]*binding)}
}

// State returns the state of container.
func (b *Bindings) State(container vdom.ElementRef) BindingState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[container]; ok {
		return e.state
	}
	return Unbound
}

// Live returns the number of Attaching or Bound bindings.
func (b *Bindings) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, e := range b.entries {
		if e.state.Live() {
			n++
		}
	}
	return n
}

// BeginAttach moves container from Unbound to Attaching. A live binding
// fails with E230 and a disposed one with E231; neither is modified.
func (b *Bindings) BeginAttach(container vdom.ElementRef, runtime mixed.RuntimeID) error {
	if container.IsZero() {
		return verrors.New("E242").WithDetail("empty container reference")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.entries[container]; ok {
		if e.state == Disposed {
			return verrors.New("E231").WithDetailf("element %s", container)
		}
		return verrors.New("E230").
			WithDetailf("element %s is %s", container, e.state).
			WithSuggestion("Dispose the existing root component before adding another")
	}

	b.entries[container] = &binding{
		state:   Attaching,
		runtime: runtime,
		settled: make(chan struct{}),
	}
	return nil
}

// Attached moves container from Attaching to Bound.
func (b *Bindings) Attached(container vdom.ElementRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[container]; ok && e.state == Attaching {
		e.state = Bound
		close(e.settled)
	}
}

// AttachFailed returns container from Attaching to Unbound.
func (b *Bindings) AttachFailed(container vdom.ElementRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[container]; ok && e.state == Attaching {
		delete(b.entries, container)
		close(e.settled)
	}
}

// RequireBound returns the runtime of a Bound container, or E232/E231.
func (b *Bindings) RequireBound(container vdom.ElementRef) (mixed.RuntimeID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[container]
	switch {
	case !ok:
		return mixed.RuntimeUnknown, verrors.New("E232").WithDetailf("element %s is Unbound", container)
	case e.state == Disposed:
		return mixed.RuntimeUnknown, verrors.New("E231").WithDetailf("element %s", container)
	case e.state != Bound:
		return mixed.RuntimeUnknown, verrors.New("E232").WithDetailf("element %s is %s", container, e.state)
	}
	return e.runtime, nil
}

// Dispose marks container dead. An in-flight attach is awaited first, never
// cancelled. It reports the runtime and whether an instance was bound at the
// moment of disposal. Unknown or already disposed containers report false.
func (b *Bindings) Dispose(ctx context.Context, container vdom.ElementRef) (mixed.RuntimeID, bool, error) {
	b.mu.Lock()
	e, ok := b.entries[container]
	if !ok || e.state == Disposed {
		b.mu.Unlock()
		return mixed.RuntimeUnknown, false, nil
	}
	if e.state == Attaching {
		settled := e.settled
		b.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return mixed.RuntimeUnknown, false, ctx.Err()
		}

		b.mu.Lock()
	}
	defer b.mu.Unlock()

	e, ok = b.entries[container]
	if ok && e.state == Disposed {
		return mixed.RuntimeUnknown, false, nil
	}

	wasBound := ok && e.state == Bound
	runtime := mixed.RuntimeUnknown
	if ok {
		runtime = e.runtime
	}
	b.entries[container] = &binding{state: Disposed, runtime: runtime}
	return runtime, wasBound, nil
}
