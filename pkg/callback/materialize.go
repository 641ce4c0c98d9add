package callback

import (
	"context"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// Dispatch sends an invocation of handle back to the runtime that issued
// it and returns the target's result.
type Dispatch func(ctx context.Context, handle string, arg any) error

// Materialize merges a received snapshot into one parameter set. Plain
// values become mixed.Plain; callback references become callables that
// dispatch back to the origin under the same parameter name.
//
// A handle the origin has already revoked resolves to a no-op, matching a
// local invocation of a disposed wrapper.
func Materialize(snap mixed.Snapshot, dispatch Dispatch) mixed.Parameters {
	params := make(mixed.Parameters, snap.Len())
	for name, v := range snap.Values {
		params[name] = mixed.Plain(v)
	}

	for _, ref := range snap.Callbacks {
		handle := ref.Handle
		call := func(ctx context.Context, arg any) error {
			err := dispatch(ctx, handle, arg)
			if verrors.Is(err, "E251") {
				return nil
			}
			return err
		}

		if ref.Arity == mixed.Arity1 {
			params[ref.Name] = mixed.CallbackArg(call)
		} else {
			params[ref.Name] = mixed.Callback(func(ctx context.Context) error {
				return call(ctx, nil)
			})
		}
	}
	return params
}
