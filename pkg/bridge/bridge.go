package bridge

import (
	"context"

	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// Bridge constructs and tears down root components in another runtime.
type Bridge interface {
	// Add constructs a root component for marker inside container, owned by
	// target, and hands it snapshot. It waits for target to start first.
	Add(ctx context.Context, container vdom.ElementRef, marker mixed.Marker, snapshot mixed.Snapshot, target mixed.RuntimeID) (Instance, error)

	// Dispose tears down whatever is attached to container. Unknown and
	// already disposed containers are a no-op.
	Dispose(ctx context.Context, container vdom.ElementRef) error
}

// Instance is a root component attached through a Bridge.
type Instance interface {
	// SetParameters replaces the component's parameters. The binding must
	// be Bound.
	SetParameters(ctx context.Context, snapshot mixed.Snapshot) error

	// Dispose tears the component down.
	Dispose(ctx context.Context) error
}

// Invoker is a named-operation channel to one runtime. Arguments must
// round-trip structurally through the protocol value codec.
type Invoker interface {
	Invoke(ctx context.Context, op protocol.Op, args ...any) (any, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, op protocol.Op, args ...any) (any, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, op protocol.Op, args ...any) (any, error) {
	return f(ctx, op, args...)
}
