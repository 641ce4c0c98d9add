package bridge

import (
	"math"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// Operation arguments arrive either as the Go values the caller passed
// (in-process) or in their decoded wire form. Both are accepted.

func malformed(op protocol.Op, i int, want string, got any) error {
	return verrors.New("E242").WithDetailf("%s arg %d: want %s, got %T", op, i, want, got)
}

func requireArgs(op protocol.Op, args []any, n int) error {
	if len(args) != n {
		return verrors.New("E242").WithDetailf("%s takes %d args, got %d", op, n, len(args))
	}
	return nil
}

func argContainer(op protocol.Op, args []any, i int) (vdom.ElementRef, error) {
	switch v := args[i].(type) {
	case vdom.ElementRef:
		return v, nil
	case string:
		return vdom.ElementRef(v), nil
	}
	return "", malformed(op, i, "element reference", args[i])
}

func argString(op protocol.Op, args []any, i int) (string, error) {
	switch v := args[i].(type) {
	case string:
		return v, nil
	case mixed.Marker:
		return string(v), nil
	}
	return "", malformed(op, i, "string", args[i])
}

func argSnapshot(op protocol.Op, args []any, i int) (mixed.Snapshot, error) {
	switch v := args[i].(type) {
	case mixed.Snapshot:
		return v, nil
	case *mixed.Snapshot:
		if v != nil {
			return *v, nil
		}
	case nil:
		return mixed.Snapshot{}, nil
	}
	return mixed.Snapshot{}, malformed(op, i, "snapshot", args[i])
}

func argRuntime(op protocol.Op, args []any, i int) (mixed.RuntimeID, error) {
	var id int64
	switch v := args[i].(type) {
	case mixed.RuntimeID:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	case float64:
		if v != math.Trunc(v) {
			return mixed.RuntimeUnknown, malformed(op, i, "runtime id", v)
		}
		id = int64(v)
	default:
		return mixed.RuntimeUnknown, malformed(op, i, "runtime id", args[i])
	}
	runtime := mixed.RuntimeID(id)
	if id < 0 || id > math.MaxUint8 || !runtime.Valid() {
		return mixed.RuntimeUnknown, malformed(op, i, "runtime id", id)
	}
	return runtime, nil
}
