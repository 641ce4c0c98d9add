package bridge

import (
	"context"
	"log/slog"
	"sync"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/callback"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// Host is the receiving side of the bridge. It constructs root components
// the other runtime asks for and dispatches callback invocations into the
// local callback registry.
type Host struct {
	runtime   mixed.RuntimeID
	registry  *callback.Registry
	factories *mixed.DefaultActivator
	activator mixed.Activator
	bindings  *Bindings
	logger    *slog.Logger

	mu        sync.RWMutex
	exposed   map[mixed.Marker]bool
	instances map[vdom.ElementRef]mixed.Component
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the logger.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithActivator constructs components through a instead of the host's
// own factories. Use it to let hosted components nest proxies.
func WithActivator(a mixed.Activator) HostOption {
	return func(h *Host) {
		if a != nil {
			h.activator = a
		}
	}
}

// NewHost creates a Host for runtime. Callback invocations from the peer
// are dispatched to registry.
func NewHost(runtime mixed.RuntimeID, registry *callback.Registry, opts ...HostOption) *Host {
	h := &Host{
		runtime:   runtime,
		registry:  registry,
		factories: mixed.NewDefaultActivator(),
		bindings:  NewBindings(),
		logger:    slog.Default(),
		exposed:   make(map[mixed.Marker]bool),
		instances: make(map[vdom.ElementRef]mixed.Component),
	}
	h.activator = h.factories
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Runtime returns the runtime the host runs in.
func (h *Host) Runtime() mixed.RuntimeID {
	return h.runtime
}

// Registry returns the callback registry invocations are dispatched to.
func (h *Host) Registry() *callback.Registry {
	return h.registry
}

// Bindings exposes the host-side binding table.
func (h *Host) Bindings() *Bindings {
	return h.bindings
}

// Register adds a factory for marker and exposes it to the peer.
func (h *Host) Register(marker mixed.Marker, factory mixed.Factory) {
	h.factories.Register(marker, factory)
	h.Expose(marker)
}

// Expose lets the peer construct marker. It implements mixed.Registrar.
func (h *Host) Expose(marker mixed.Marker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exposed[marker] = true
}

// Exposed reports whether the peer may construct marker.
func (h *Host) Exposed(marker mixed.Marker) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.exposed[marker]
}

// Handle executes one operation received from the peer. peer is used to
// call back into the runtime that sent it.
func (h *Host) Handle(ctx context.Context, peer Invoker, op protocol.Op, args []any) (any, error) {
	switch op {
	case protocol.OpAddRootComponent:
		return nil, h.add(ctx, peer, args)
	case protocol.OpSetParameters:
		return nil, h.setParameters(ctx, peer, args)
	case protocol.OpDisposeRootComponent:
		return nil, h.dispose(ctx, args)
	case protocol.OpInvokeCallback:
		return nil, h.invokeCallback(ctx, args)
	default:
		return nil, verrors.New("E242").WithDetailf("unsupported operation %s", op)
	}
}

func (h *Host) add(ctx context.Context, peer Invoker, args []any) error {
	op := protocol.OpAddRootComponent
	if err := requireArgs(op, args, 4); err != nil {
		return err
	}
	container, err := argContainer(op, args, 0)
	if err != nil {
		return err
	}
	name, err := argString(op, args, 1)
	if err != nil {
		return err
	}
	snapshot, err := argSnapshot(op, args, 2)
	if err != nil {
		return err
	}
	runtime, err := argRuntime(op, args, 3)
	if err != nil {
		return err
	}

	marker := mixed.Marker(name)
	if runtime != h.runtime {
		return verrors.New("E241").WithDetailf("%s component sent to %s", runtime, h.runtime)
	}
	if !h.Exposed(marker) {
		return verrors.New("E206").WithDetailf("%q is not exposed by the %s runtime", marker, h.runtime)
	}

	if err := h.bindings.BeginAttach(container, runtime); err != nil {
		return err
	}

	component, err := h.activator.CreateInstance(marker)
	if err == nil {
		err = component.SetParameters(ctx, h.materialize(snapshot, peer))
		if err != nil {
			h.teardown(ctx, component)
		}
	}
	if err != nil {
		h.bindings.AttachFailed(container)
		h.logger.Error("root component add failed",
			"container", container,
			"marker", marker,
			"error", err)
		return err
	}

	h.mu.Lock()
	h.instances[container] = component
	h.mu.Unlock()
	h.bindings.Attached(container)

	h.logger.Debug("root component attached", "container", container, "marker", marker)
	return nil
}

func (h *Host) setParameters(ctx context.Context, peer Invoker, args []any) error {
	op := protocol.OpSetParameters
	if err := requireArgs(op, args, 2); err != nil {
		return err
	}
	container, err := argContainer(op, args, 0)
	if err != nil {
		return err
	}
	snapshot, err := argSnapshot(op, args, 1)
	if err != nil {
		return err
	}

	if _, err := h.bindings.RequireBound(container); err != nil {
		return err
	}

	h.mu.RLock()
	component := h.instances[container]
	h.mu.RUnlock()
	if component == nil {
		return verrors.New("E232").WithDetailf("element %s has no instance", container)
	}
	return component.SetParameters(ctx, h.materialize(snapshot, peer))
}

func (h *Host) dispose(ctx context.Context, args []any) error {
	op := protocol.OpDisposeRootComponent
	if err := requireArgs(op, args, 1); err != nil {
		return err
	}
	container, err := argContainer(op, args, 0)
	if err != nil {
		return err
	}

	_, wasBound, err := h.bindings.Dispose(ctx, container)
	if err != nil || !wasBound {
		return err
	}

	h.mu.Lock()
	component := h.instances[container]
	delete(h.instances, container)
	h.mu.Unlock()

	h.logger.Debug("root component disposed", "container", container)
	return h.teardown(ctx, component)
}

func (h *Host) invokeCallback(ctx context.Context, args []any) error {
	op := protocol.OpInvokeCallback
	if err := requireArgs(op, args, 2); err != nil {
		return err
	}
	handle, err := argString(op, args, 0)
	if err != nil {
		return err
	}
	if h.registry == nil {
		return verrors.New("E251").WithDetailf("handle %q: no callback registry", handle)
	}
	return h.registry.Invoke(ctx, handle, args[1])
}

// DisposeAll tears down every hosted component, for example when the peer
// connection is gone.
func (h *Host) DisposeAll(ctx context.Context) {
	h.mu.Lock()
	containers := make([]vdom.ElementRef, 0, len(h.instances))
	for container := range h.instances {
		containers = append(containers, container)
	}
	h.mu.Unlock()

	for _, container := range containers {
		if err := h.dispose(ctx, []any{container}); err != nil {
			h.logger.Warn("root component teardown failed", "container", container, "error", err)
		}
	}
}

func (h *Host) teardown(ctx context.Context, component mixed.Component) error {
	if d, ok := component.(mixed.Disposer); ok {
		return d.Dispose(ctx)
	}
	return nil
}

func (h *Host) materialize(snapshot mixed.Snapshot, peer Invoker) mixed.Parameters {
	return callback.Materialize(snapshot, func(ctx context.Context, handle string, arg any) error {
		if peer == nil {
			return verrors.New("E241").WithDetail("no route back to the callback owner")
		}
		_, err := peer.Invoke(ctx, protocol.OpInvokeCallback, handle, arg)
		return err
	})
}
