// Package callback marshals callback parameters across the runtime boundary.
//
// The sending side keeps one Wrapper per callback parameter name for the
// lifetime of a proxy. A Wrapper has a stable handle that the other runtime
// uses to call back; each parameter update re-points the wrapper at the
// newest handler instead of issuing a new handle.
//
//	reg := callback.NewRegistry()
//	set := reg.NewSet()
//	snap, err := set.Update(params)   // handles stay stable across updates
//	...
//	err = reg.Invoke(ctx, handle, arg) // called by the transport
//	set.Dispose()                      // revokes every handle
//
// The receiving side turns the references in a snapshot back into ordinary
// callables with Materialize.
package callback
