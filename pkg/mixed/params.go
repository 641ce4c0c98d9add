package mixed

import (
	"context"
	"encoding/json"
	"sort"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

// ValueKind classifies a parameter value. It is decided once, when the
// value is constructed.
type ValueKind uint8

const (
	KindPlain       ValueKind = iota // Plain data forwarded verbatim
	KindCallback                     // Zero-argument callback
	KindCallbackArg                  // One-argument callback
)

// String returns the string representation of the kind.
func (k ValueKind) String() string {
	switch k {
	case KindPlain:
		return "Plain"
	case KindCallback:
		return "Callback"
	case KindCallbackArg:
		return "CallbackArg"
	default:
		return "Unknown"
	}
}

// Handler is a zero-argument callback. Its error is the completion result
// the remote caller awaits.
type Handler func(ctx context.Context) error

// HandlerArg is a one-argument callback.
type HandlerArg func(ctx context.Context, arg any) error

// Value is one component parameter: Plain(v) | Callback(fn) | CallbackArg(fn).
type Value struct {
	kind   ValueKind
	plain  any
	fn     Handler
	fnWith HandlerArg
}

// Plain wraps a data value.
func Plain(v any) Value {
	return Value{kind: KindPlain, plain: v}
}

// Callback wraps a zero-argument callback.
func Callback(fn Handler) Value {
	return Value{kind: KindCallback, fn: fn}
}

// CallbackArg wraps a one-argument callback taking an untyped argument.
func CallbackArg(fn HandlerArg) Value {
	return Value{kind: KindCallbackArg, fnWith: fn}
}

// CallbackOf wraps a typed one-argument callback. Arguments arriving from the
// other runtime are converted to T; values that are not already a T are
// re-shaped through their JSON representation.
func CallbackOf[T any](fn func(ctx context.Context, arg T) error) Value {
	return CallbackArg(func(ctx context.Context, arg any) error {
		v, err := ConvertArg[T](arg)
		if err != nil {
			return err
		}
		return fn(ctx, v)
	})
}

// ConvertArg converts a structurally decoded argument into T.
func ConvertArg[T any](arg any) (T, error) {
	var zero T
	if arg == nil {
		return zero, nil
	}
	if v, ok := arg.(T); ok {
		return v, nil
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return zero, verrors.New("E242").WithDetailf("callback argument of type %T", arg).Wrap(err)
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, verrors.New("E242").WithDetailf("callback argument %s", data).Wrap(err)
	}
	return out, nil
}

// Kind returns the value's classification.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsCallback reports whether the value is a callback of either arity.
func (v Value) IsCallback() bool {
	return v.kind == KindCallback || v.kind == KindCallbackArg
}

// Data returns the plain value, or nil for callbacks.
func (v Value) Data() any {
	return v.plain
}

// Handler returns the zero-argument callback, or nil.
func (v Value) Handler() Handler {
	return v.fn
}

// HandlerArg returns the one-argument callback, or nil.
func (v Value) HandlerArg() HandlerArg {
	return v.fnWith
}

// Invoke calls the callback. A one-argument callback receives nil.
// Invoking a plain value or a nil callback does nothing.
func (v Value) Invoke(ctx context.Context) error {
	return v.InvokeWith(ctx, nil)
}

// InvokeWith calls the callback with arg. Zero-argument callbacks ignore arg.
func (v Value) InvokeWith(ctx context.Context, arg any) error {
	switch v.kind {
	case KindCallback:
		if v.fn != nil {
			return v.fn(ctx)
		}
	case KindCallbackArg:
		if v.fnWith != nil {
			return v.fnWith(ctx, arg)
		}
	}
	return nil
}

// Parameters is a complete parameter set, keyed by parameter name.
// Each update replaces the previous set wholesale.
type Parameters map[string]Value

// Names returns the parameter names in sorted order.
func (p Parameters) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Data returns the plain value for name, or nil.
func (p Parameters) Data(name string) any {
	return p[name].Data()
}

// Arity is the number of arguments a marshaled callback takes.
type Arity uint8

const (
	Arity0 Arity = 0
	Arity1 Arity = 1
)

// CallbackRef is the wire stand-in for a callback parameter: the parameter
// name plus the handle of the long-lived wrapper that dispatches to it.
type CallbackRef struct {
	Name   string
	Handle string
	Arity  Arity
}

// Snapshot is a parameter update as it crosses the boundary: plain values
// verbatim and callbacks as wrapper references.
type Snapshot struct {
	Values    map[string]any
	Callbacks []CallbackRef
}

// Callback returns the reference for name, if present.
func (s Snapshot) Callback(name string) (CallbackRef, bool) {
	for _, ref := range s.Callbacks {
		if ref.Name == name {
			return ref, true
		}
	}
	return CallbackRef{}, false
}

// Len returns the number of parameters in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Values) + len(s.Callbacks)
}
