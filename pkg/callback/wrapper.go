package callback

import (
	"context"
	"sync"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// Wrapper is the long-lived, remotely invokable stand-in for one callback
// parameter name. Its handle never changes; its target does.
type Wrapper struct {
	handle string
	name   string
	arity  mixed.Arity

	mu       sync.Mutex
	target   mixed.Value
	disposed bool
}

// Handle returns the stable handle the other runtime calls.
func (w *Wrapper) Handle() string {
	return w.handle
}

// Name returns the parameter name the wrapper serves.
func (w *Wrapper) Name() string {
	return w.name
}

// Ref returns the wire reference for the wrapper.
func (w *Wrapper) Ref() mixed.CallbackRef {
	return mixed.CallbackRef{Name: w.name, Handle: w.handle, Arity: w.arity}
}

// Disposed reports whether the wrapper has been revoked.
func (w *Wrapper) Disposed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.disposed
}

// Invoke calls the current target once. After disposal it does nothing and
// returns nil, so teardown code that fires its own callbacks cannot reach a
// handler that is already gone.
func (w *Wrapper) Invoke(ctx context.Context, arg any) error {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return nil
	}
	target := w.target
	w.mu.Unlock()

	if err := target.InvokeWith(ctx, arg); err != nil {
		return verrors.New("E250").WithDetailf("callback %q", w.name).Wrap(err)
	}
	return nil
}

func (w *Wrapper) retarget(v mixed.Value) {
	w.mu.Lock()
	w.target = v
	w.mu.Unlock()
}

func (w *Wrapper) dispose() {
	w.mu.Lock()
	w.disposed = true
	w.target = mixed.Value{}
	w.mu.Unlock()
}
