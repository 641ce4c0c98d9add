package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// DefaultStartTimeout bounds how long Add waits for a runtime to start.
const DefaultStartTimeout = 30 * time.Second

// Remote is the Bridge that forwards operations to the Invoker routed for
// each target runtime.
type Remote struct {
	bindings     *Bindings
	starts       StartSignals
	logger       *slog.Logger
	startTimeout time.Duration

	mu     sync.RWMutex
	routes map[mixed.RuntimeID]Invoker
}

// RemoteOption configures a Remote.
type RemoteOption func(*Remote)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) RemoteOption {
	return func(r *Remote) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithStartTimeout bounds the start-signal wait of Add. Zero or negative
// waits as long as the caller's context allows.
func WithStartTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) {
		r.startTimeout = d
	}
}

// WithRoute routes operations for runtime through inv.
func WithRoute(runtime mixed.RuntimeID, inv Invoker) RemoteOption {
	return func(r *Remote) {
		r.routes[runtime] = inv
	}
}

// NewRemote creates a Remote that waits on starts before every Add.
//
// The wait is bounded by DefaultStartTimeout unless WithStartTimeout says
// otherwise; WithStartTimeout(0) leaves the bound to the caller's context.
// A nil starts skips the wait.
func NewRemote(starts StartSignals, opts ...RemoteOption) *Remote {
	r := &Remote{
		bindings:     NewBindings(),
		starts:       starts,
		logger:       slog.Default(),
		startTimeout: DefaultStartTimeout,
		routes:       make(map[mixed.RuntimeID]Invoker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route sets or replaces the Invoker for runtime.
func (r *Remote) Route(runtime mixed.RuntimeID, inv Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[runtime] = inv
}

// Bindings exposes the binding table.
func (r *Remote) Bindings() *Bindings {
	return r.bindings
}

func (r *Remote) invoker(runtime mixed.RuntimeID) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inv, ok := r.routes[runtime]
	if !ok || inv == nil {
		return nil, verrors.New("E241").WithDetailf("no invoker for %s", runtime)
	}
	return inv, nil
}

// Add implements Bridge.
func (r *Remote) Add(ctx context.Context, container vdom.ElementRef, marker mixed.Marker, snapshot mixed.Snapshot, target mixed.RuntimeID) (Instance, error) {
	inv, err := r.invoker(target)
	if err != nil {
		return nil, err
	}
	if err := r.bindings.BeginAttach(container, target); err != nil {
		return nil, err
	}

	if err := r.waitStarted(ctx, target); err != nil {
		r.bindings.AttachFailed(container)
		return nil, err
	}

	if _, err := inv.Invoke(ctx, protocol.OpAddRootComponent, container, marker, snapshot, target); err != nil {
		r.bindings.AttachFailed(container)
		return nil, err
	}
	r.bindings.Attached(container)

	r.logger.Debug("root component added",
		"container", container,
		"marker", marker,
		"runtime", target)

	return &remoteInstance{remote: r, container: container}, nil
}

func (r *Remote) waitStarted(ctx context.Context, runtime mixed.RuntimeID) error {
	if r.starts == nil {
		return nil
	}
	if r.startTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.startTimeout)
		defer cancel()
	}
	return r.starts.Wait(ctx, runtime)
}

// Dispose implements Bridge.
func (r *Remote) Dispose(ctx context.Context, container vdom.ElementRef) error {
	runtime, wasBound, err := r.bindings.Dispose(ctx, container)
	if err != nil || !wasBound {
		return err
	}

	inv, err := r.invoker(runtime)
	if err != nil {
		return err
	}
	if _, err := inv.Invoke(ctx, protocol.OpDisposeRootComponent, container); err != nil {
		return err
	}

	r.logger.Debug("root component disposed", "container", container, "runtime", runtime)
	return nil
}

func (r *Remote) setParameters(ctx context.Context, container vdom.ElementRef, snapshot mixed.Snapshot) error {
	runtime, err := r.bindings.RequireBound(container)
	if err != nil {
		return err
	}
	inv, err := r.invoker(runtime)
	if err != nil {
		return err
	}
	_, err = inv.Invoke(ctx, protocol.OpSetParameters, container, snapshot)
	return err
}

type remoteInstance struct {
	remote    *Remote
	container vdom.ElementRef
}

func (i *remoteInstance) SetParameters(ctx context.Context, snapshot mixed.Snapshot) error {
	return i.remote.setParameters(ctx, i.container, snapshot)
}

func (i *remoteInstance) Dispose(ctx context.Context) error {
	return i.remote.Dispose(ctx, i.container)
}

// IsDisconnected reports whether err means the peer runtime went away.
func IsDisconnected(err error) bool {
	return errors.Is(err, mixed.ErrTransportDisconnected)
}
