// Package proxy provides the local stand-in for components owned by the
// other runtime.
//
// A Proxy renders a single wrapper element, captures its reference after
// the render pass and then drives a bridge.Bridge: one Add when the element
// first exists, one SetParameters per later update and one Dispose at
// teardown. Updates that arrive while a bridge call is in flight are
// coalesced; only the newest parameters are sent once the call completes.
//
// States:
//
//	Created → Rendered → Attaching → Bound → Disposed
//	                         ↓
//	                      Faulted → Disposed
//
// Bridge calls run on a per-proxy goroutine, so SetParameters and
// OnAfterRender never block on the other runtime.
package proxy
