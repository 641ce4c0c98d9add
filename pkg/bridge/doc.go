// Package bridge attaches root components to elements across the runtime
// boundary.
//
// The sending side talks to a Bridge. Remote is the Bridge implementation
// that turns Add, SetParameters and Dispose into named operations on an
// Invoker, one Invoker per target runtime. The receiving side runs a Host,
// which decodes those operations, constructs the real component and hands
// it materialized parameters.
//
// Every element moves through one binding state machine:
//
//	Unbound → Attaching → Bound → Disposed
//
// Disposed is terminal. A second Add for a live element, or any Add for a
// disposed element, fails without touching the binding.
package bridge
