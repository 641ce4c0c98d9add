// Package mixed holds the data model of mixed server/client rendering.
//
// A page mixes component instances hosted by the server session and by the
// client runtime. Both runtimes share one document, so a component whose
// type belongs to the other runtime is replaced by a proxy that attaches the
// real instance to a wrapper element through a bridge.
//
// # Authority
//
// Each component type may declare the runtime that owns it:
//
//	defs := []mixed.Definition{
//	    {Marker: mixed.MarkerOf[Counter](), Client: true},
//	    {Marker: mixed.MarkerOf[Inbox](), Server: true},
//	}
//	resolver := mixed.NewResolver(mixed.Current(), host)
//	if err := resolver.Initialize(defs); err != nil {
//	    // ambiguous declarations are fatal
//	}
//
// Undeclared types are always constructed locally.
//
// # Parameters
//
// Parameter values are classified once, when they are built:
//
//	params := mixed.Parameters{
//	    "IncrementAmount": mixed.Plain(5),
//	    "OnClick":         mixed.Callback(func(ctx context.Context) error { ... }),
//	    "OnChange":        mixed.CallbackOf(func(ctx context.Context, v string) error { ... }),
//	}
//
// Crossing the boundary, callbacks travel as CallbackRef entries of a
// Snapshot and are materialized back into callables on the receiving side.
package mixed
