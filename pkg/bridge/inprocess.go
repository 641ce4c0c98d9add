package bridge

import (
	"context"

	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

type inProcess struct {
	host *Host
	peer Invoker
}

// InProcess returns an Invoker that delivers operations straight to host.
// The host calls back into the caller's runtime through peer.
func InProcess(host *Host, peer Invoker) Invoker {
	return &inProcess{host: host, peer: peer}
}

func (p *inProcess) Invoke(ctx context.Context, op protocol.Op, args ...any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.host.Handle(ctx, p.peer, op, args)
}

// Pipe connects two hosts living in one process. toB delivers to b and
// toA to a; callbacks flow back through the opposite end.
func Pipe(a, b *Host) (toB, toA Invoker) {
	ab := &inProcess{host: b}
	ba := &inProcess{host: a}
	ab.peer = ba
	ba.peer = ab
	return ab, ba
}
