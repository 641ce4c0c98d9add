package mixed

import (
	"reflect"
	"strings"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

// RuntimeID identifies the runtime that executes a component instance.
// The values match the application IDs the client script uses when it adds
// root components.
type RuntimeID uint8

const (
	RuntimeUnknown RuntimeID = 0
	RuntimeServer  RuntimeID = 1 // Persistent server session driving a live UI
	RuntimeClient  RuntimeID = 2 // Locally executing client runtime (WASM)
)

// String returns the string representation of the runtime.
func (r RuntimeID) String() string {
	switch r {
	case RuntimeServer:
		return "server"
	case RuntimeClient:
		return "client"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the two concrete runtimes.
func (r RuntimeID) Valid() bool {
	return r == RuntimeServer || r == RuntimeClient
}

// Other returns the peer runtime.
func (r RuntimeID) Other() RuntimeID {
	switch r {
	case RuntimeServer:
		return RuntimeClient
	case RuntimeClient:
		return RuntimeServer
	default:
		return RuntimeUnknown
	}
}

// ParseRuntime parses "server" or "client" (case-insensitive).
func ParseRuntime(s string) (RuntimeID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server":
		return RuntimeServer, nil
	case "client", "wasm":
		return RuntimeClient, nil
	default:
		return RuntimeUnknown, verrors.New("E203").
			WithDetailf("%q is not a runtime", s).
			WithSuggestion(`Use "server" or "client"`)
	}
}

// Marker identifies a component kind across runtimes. Markers are unique
// within one application and never change once assigned.
type Marker string

// MarkerOf derives the marker for a component type from its package path and
// type name. Pointer types resolve to their element type.
func MarkerOf[T any]() Marker {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return Marker(t.String())
	}
	if t.PkgPath() == "" {
		return Marker(t.Name())
	}
	return Marker(t.PkgPath() + "." + t.Name())
}
