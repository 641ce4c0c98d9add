package mixed

import "context"

// Component is a component instance that receives its complete parameter
// set on every update.
type Component interface {
	SetParameters(ctx context.Context, params Parameters) error
}

// Disposer is implemented by components that release resources on teardown.
type Disposer interface {
	Dispose(ctx context.Context) error
}

// Factory constructs a fresh component instance.
type Factory func() Component

// ComponentFunc adapts a function to the Component interface.
type ComponentFunc func(ctx context.Context, params Parameters) error

// SetParameters implements Component.
func (f ComponentFunc) SetParameters(ctx context.Context, params Parameters) error {
	return f(ctx, params)
}
