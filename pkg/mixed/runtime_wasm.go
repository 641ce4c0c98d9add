//go:build js && wasm

package mixed

// Current returns the runtime this binary executes in.
func Current() RuntimeID {
	return RuntimeClient
}
