// Package errors provides structured, actionable error messages for mixed rendering.
//
// Every failure surfaced by the resolver, the bridge, the transport and the
// callback layer carries a registered code. Codes are grouped by category:
//   - config: authority declarations, config and manifest files (fatal at startup)
//   - misuse: programming errors such as attaching twice to one element
//   - transport: the remote runtime is unreachable or went away
//   - remote: a marshaled callback failed in the runtime that owns it
//
// Callers match categories with the standard library:
//
//	if errors.Is(err, mixed.ErrTransportDisconnected) { ... }
//
// or specific codes with Is:
//
//	if verrors.Is(err, "E230") { ... }
//
// # Usage
//
//	err := errors.New("E201").
//	    WithDetailf("type %q is declared for both server and client", marker).
//	    WithSuggestion("Keep exactly one of server/client on the declaration")
//
//	errors.PrintError(os.Stderr, err)
package errors
