package proxy

// State is the lifecycle state of a Proxy.
type State uint8

const (
	Created   State = iota // No parameters yet
	Rendered               // Wrapper rendered, waiting for its reference
	Attaching              // Add issued
	Bound                  // Add resolved
	Faulted                // Add failed; only Dispose remains
	Disposed               // Terminal
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Created:
		return "Created"
	case Rendered:
		return "Rendered"
	case Attaching:
		return "Attaching"
	case Bound:
		return "Bound"
	case Faulted:
		return "Faulted"
	case Disposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}

// reachedBridge reports whether a bridge call was ever issued in s.
func (s State) reachedBridge() bool {
	return s == Attaching || s == Bound || s == Faulted
}
