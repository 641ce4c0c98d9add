package middleware

import (
	"context"

	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// Middleware decorates a Bridge.
type Middleware func(bridge.Bridge) bridge.Bridge

// Chain applies mws to b so that the first middleware is the outermost.
func Chain(b bridge.Bridge, mws ...Middleware) bridge.Bridge {
	for i := len(mws) - 1; i >= 0; i-- {
		b = mws[i](b)
	}
	return b
}

// Call describes one bridge operation.
type Call struct {
	Op        protocol.Op
	Container vdom.ElementRef
	Marker    mixed.Marker    // empty for dispose through the bridge
	Target    mixed.RuntimeID // RuntimeUnknown for dispose through the bridge
}

// around runs next for call and returns its error.
type around func(ctx context.Context, call Call, next func(context.Context) error) error

// wrap builds a Bridge that routes every operation through fn.
func wrap(next bridge.Bridge, fn around) bridge.Bridge {
	return &hookedBridge{next: next, around: fn}
}

type hookedBridge struct {
	next   bridge.Bridge
	around around
}

func (b *hookedBridge) Add(ctx context.Context, container vdom.ElementRef, marker mixed.Marker, snapshot mixed.Snapshot, target mixed.RuntimeID) (bridge.Instance, error) {
	call := Call{Op: protocol.OpAddRootComponent, Container: container, Marker: marker, Target: target}

	var inst bridge.Instance
	err := b.around(ctx, call, func(ctx context.Context) error {
		var err error
		inst, err = b.next.Add(ctx, container, marker, snapshot, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &hookedInstance{next: inst, call: call, around: b.around}, nil
}

func (b *hookedBridge) Dispose(ctx context.Context, container vdom.ElementRef) error {
	call := Call{Op: protocol.OpDisposeRootComponent, Container: container}
	return b.around(ctx, call, func(ctx context.Context) error {
		return b.next.Dispose(ctx, container)
	})
}

type hookedInstance struct {
	next   bridge.Instance
	call   Call
	around around
}

func (i *hookedInstance) SetParameters(ctx context.Context, snapshot mixed.Snapshot) error {
	call := i.call
	call.Op = protocol.OpSetParameters
	return i.around(ctx, call, func(ctx context.Context) error {
		return i.next.SetParameters(ctx, snapshot)
	})
}

func (i *hookedInstance) Dispose(ctx context.Context) error {
	call := i.call
	call.Op = protocol.OpDisposeRootComponent
	return i.around(ctx, call, func(ctx context.Context) error {
		return i.next.Dispose(ctx)
	})
}

// invokerHook routes every Invoke through fn.
type invokerHook struct {
	next bridge.Invoker
	fn   func(ctx context.Context, op protocol.Op, next func(context.Context) (any, error)) (any, error)
}

func (h *invokerHook) Invoke(ctx context.Context, op protocol.Op, args ...any) (any, error) {
	return h.fn(ctx, op, func(ctx context.Context) (any, error) {
		return h.next.Invoke(ctx, op, args...)
	})
}
