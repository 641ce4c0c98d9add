package proxy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/callback"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// WrapperTag is the tag of the element a Proxy renders.
const WrapperTag = "vango-mixed"

// RenderHandle receives the wrapper node a Proxy renders. The render layer
// must call node.Ref with the element's reference once the element exists,
// then call OnAfterRender.
type RenderHandle interface {
	Render(node *vdom.VNode)
}

// RenderFunc adapts a function to the RenderHandle interface.
type RenderFunc func(node *vdom.VNode)

// Render implements RenderHandle.
func (f RenderFunc) Render(node *vdom.VNode) {
	f(node)
}

// Options configures proxies.
type Options struct {
	// Registry issues callback handles. It must be the registry the local
	// bridge.Host dispatches invocations to. Nil gives each proxy a
	// private registry, which only suits proxies without callbacks.
	Registry *callback.Registry

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// OnError receives add and setParameters failures. It stands in for the
	// render layer's error boundary; the default logs at error level.
	OnError func(marker mixed.Marker, err error)

	// CallTimeout bounds each bridge call. Zero means no bound.
	CallTimeout time.Duration
}

// Proxy is a mixed.Component that forwards its parameters to an instance
// living in the other runtime.
type Proxy struct {
	marker    mixed.Marker
	target    mixed.RuntimeID
	bridge    bridge.Bridge
	callbacks *callback.Set
	logger    *slog.Logger
	onError   func(mixed.Marker, error)
	timeout   time.Duration

	mu        sync.Mutex
	state     State
	render    RenderHandle
	node      *vdom.VNode
	container vdom.ElementRef
	pending   *mixed.Snapshot
	instance  bridge.Instance
	running   bool
	idle      chan struct{}
	fault     error
	lastErr   error
}

// New creates a proxy for marker, owned by target and reached through b.
func New(marker mixed.Marker, target mixed.RuntimeID, b bridge.Bridge, opts Options) *Proxy {
	registry := opts.Registry
	if registry == nil {
		registry = callback.NewRegistry()
	}
	p := &Proxy{
		marker:    marker,
		target:    target,
		bridge:    b,
		callbacks: registry.NewSet(),
		logger:    opts.logger(),
		onError:   opts.OnError,
		timeout:   opts.CallTimeout,
		idle:      closedChan(),
	}
	if p.onError == nil {
		p.onError = func(marker mixed.Marker, err error) {
			p.logger.Error("mixed root component failed", "marker", marker, "error", err)
		}
	}
	return p
}

// Marker returns the marker of the proxied component.
func (p *Proxy) Marker() mixed.Marker {
	return p.marker
}

// Target returns the runtime that owns the proxied component.
func (p *Proxy) Target() mixed.RuntimeID {
	return p.target
}

// State returns the current state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Container returns the captured wrapper reference, if any.
func (p *Proxy) Container() vdom.ElementRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.container
}

// Node returns the rendered wrapper node, or nil before the first update.
func (p *Proxy) Node() *vdom.VNode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.node
}

// Attach sets where the wrapper is rendered. Call it before the first
// SetParameters; without it the wrapper is only available through Node.
func (p *Proxy) Attach(h RenderHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.render = h
}

// SetParameters implements mixed.Component. The first call renders the
// wrapper. Later calls replace the pending parameters and, once the proxy is
// Bound, schedule exactly one setParameters for the newest set.
func (p *Proxy) SetParameters(ctx context.Context, params mixed.Parameters) error {
	p.mu.Lock()

	switch p.state {
	case Disposed:
		p.mu.Unlock()
		return verrors.New("E233").WithDetailf("proxy for %q", p.marker)
	case Faulted:
		err := p.fault
		p.mu.Unlock()
		return err
	}

	snap, err := p.callbacks.Update(params)
	if err != nil {
		p.mu.Unlock()
		return err
	}
	p.pending = &snap

	var render RenderHandle
	var node *vdom.VNode

	switch p.state {
	case Created:
		p.state = Rendered
		p.node = p.wrapper()
		render, node = p.render, p.node
	case Bound:
		p.startLocked(ctx)
	case Attaching:
		if p.running {
			p.logger.Debug("coalescing update behind in-flight call", "marker", p.marker)
		}
	}
	p.mu.Unlock()

	if render != nil {
		render.Render(node)
	}
	return nil
}

func (p *Proxy) wrapper() *vdom.VNode {
	return vdom.Element(WrapperTag, vdom.Props{
		"data-marker":  string(p.marker),
		"data-runtime": p.target.String(),
	}).WithRef(p.captureRef)
}

func (p *Proxy) captureRef(ref vdom.ElementRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.container.IsZero() {
		p.container = ref
	}
}

// OnAfterRender is called by the render layer after each render pass. The
// first call that finds a captured reference issues the bridge Add with the
// newest parameters.
func (p *Proxy) OnAfterRender(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case Disposed:
		return verrors.New("E233").WithDetailf("proxy for %q", p.marker)
	case Rendered:
		if p.container.IsZero() || p.pending == nil {
			return nil
		}
		p.state = Attaching
		p.startLocked(ctx)
	}
	return nil
}

// startLocked runs the pump unless it is already running. The pump detaches
// from ctx cancellation because it outlives the render pass that started it.
func (p *Proxy) startLocked(ctx context.Context) {
	if p.running {
		return
	}
	p.running = true
	p.idle = make(chan struct{})
	go p.pump(context.WithoutCancel(ctx), p.idle)
}

func (p *Proxy) pump(ctx context.Context, idle chan struct{}) {
	defer close(idle)

	for {
		p.mu.Lock()
		if p.state == Disposed || p.pending == nil {
			p.running = false
			p.mu.Unlock()
			return
		}
		snap := *p.pending
		p.pending = nil
		state, instance, container := p.state, p.instance, p.container
		p.mu.Unlock()

		switch state {
		case Attaching:
			if !p.add(ctx, container, snap) {
				return
			}
		case Bound:
			p.update(ctx, instance, snap)
		}
	}
}

// add issues the bridge Add. It reports whether the pump should continue.
func (p *Proxy) add(ctx context.Context, container vdom.ElementRef, snap mixed.Snapshot) bool {
	callCtx, cancel := p.callContext(ctx)
	instance, err := p.bridge.Add(callCtx, container, p.marker, snap, p.target)
	cancel()

	p.mu.Lock()
	if err != nil {
		report := p.state != Disposed
		if report {
			p.state = Faulted
			p.fault = err
		}
		p.pending = nil
		p.mu.Unlock()

		if report {
			p.onError(p.marker, err)
		}

		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
		return false
	}

	p.instance = instance
	if p.state == Attaching {
		p.state = Bound
	}
	p.mu.Unlock()
	return true
}

func (p *Proxy) update(ctx context.Context, instance bridge.Instance, snap mixed.Snapshot) {
	callCtx, cancel := p.callContext(ctx)
	err := instance.SetParameters(callCtx, snap)
	cancel()

	if err != nil {
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		p.onError(p.marker, err)
	}
}

func (p *Proxy) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout > 0 {
		return context.WithTimeout(ctx, p.timeout)
	}
	return context.WithCancel(ctx)
}

// Settled waits until no bridge call is pending or in flight and returns the
// fault of a failed add, or the last setParameters failure since the
// previous Settled.
func (p *Proxy) Settled(ctx context.Context) error {
	for {
		p.mu.Lock()
		idle := p.idle
		running := p.running
		if !running {
			err := p.fault
			if err == nil {
				err = p.lastErr
				p.lastErr = nil
			}
			p.mu.Unlock()
			return err
		}
		p.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dispose implements mixed.Disposer. The proxy is marked Disposed before any
// teardown runs. Callback wrappers are revoked next. If the bridge was ever
// reached, an in-flight call is awaited and exactly one dispose follows. A
// disconnected peer is not an error here.
//
// If ctx ends while waiting for an in-flight add, Dispose returns ctx's
// error and the bridge dispose runs once the add settles.
func (p *Proxy) Dispose(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Disposed {
		p.mu.Unlock()
		return nil
	}
	prev := p.state
	p.state = Disposed
	p.pending = nil
	idle := p.idle
	p.mu.Unlock()

	p.callbacks.Dispose()

	if !prev.reachedBridge() {
		return nil
	}

	select {
	case <-idle:
	case <-ctx.Done():
		detached := context.WithoutCancel(ctx)
		go func() {
			<-idle
			if err := p.disposeRemote(detached); err != nil {
				p.logger.Error("deferred dispose failed", "marker", p.marker, "error", err)
			}
		}()
		return ctx.Err()
	}
	return p.disposeRemote(ctx)
}

func (p *Proxy) disposeRemote(ctx context.Context) error {
	p.mu.Lock()
	instance, container := p.instance, p.container
	p.instance = nil
	p.mu.Unlock()

	var err error
	if instance != nil {
		err = instance.Dispose(ctx)
	} else {
		err = p.bridge.Dispose(ctx, container)
	}

	if bridge.IsDisconnected(err) {
		p.logger.Debug("peer gone during dispose", "marker", p.marker, "container", container)
		return nil
	}
	return err
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
