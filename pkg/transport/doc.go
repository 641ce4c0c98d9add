// Package transport carries bridge operations between the two runtimes over
// a WebSocket.
//
// Each side of a connection is a Conn. A Conn is a bridge.Invoker toward the
// peer and serves the peer's calls with a bridge.Host. The first frame each
// side sends is a Hello; receiving the peer's Hello marks the peer runtime
// as started, which releases pending Adds waiting on bridge.Starts.
//
// Server side:
//
//	srv := transport.NewServer(mixed.RuntimeServer, newHost, transport.DefaultConfig())
//	router.Mount("/", srv.Routes("/_mixed/ws"))
//
// Client side:
//
//	conn, err := transport.Dial(ctx, url, mixed.RuntimeClient, host, cfg)
//	remote.Route(mixed.RuntimeServer, conn)
package transport
