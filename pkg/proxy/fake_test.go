package proxy

import (
	"context"
	"sync"

	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/callback"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

type bridgeCall struct {
	Op        string
	Container vdom.ElementRef
	Snapshot  mixed.Snapshot
}

// fakeBridge records every call and can hold Add until released.
type fakeBridge struct {
	registry *callback.Registry

	mu            sync.Mutex
	calls         []bridgeCall
	inflight      int
	maxInflight   int
	liveOnDispose []int

	addGate    chan struct{}
	addErr     error
	setErr     error
	disposeErr error
}

func (b *fakeBridge) enter(c bridgeCall) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, c)
	b.inflight++
	if b.inflight > b.maxInflight {
		b.maxInflight = b.inflight
	}
	if c.Op == "dispose" && b.registry != nil {
		b.liveOnDispose = append(b.liveOnDispose, b.registry.Len())
	}
}

func (b *fakeBridge) leave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inflight--
}

func (b *fakeBridge) Add(ctx context.Context, container vdom.ElementRef, marker mixed.Marker, snap mixed.Snapshot, target mixed.RuntimeID) (bridge.Instance, error) {
	b.enter(bridgeCall{Op: "add", Container: container, Snapshot: snap})
	defer b.leave()

	if b.addGate != nil {
		<-b.addGate
	}
	if b.addErr != nil {
		return nil, b.addErr
	}
	return &fakeInstance{bridge: b, container: container}, nil
}

func (b *fakeBridge) Dispose(ctx context.Context, container vdom.ElementRef) error {
	b.enter(bridgeCall{Op: "dispose", Container: container})
	defer b.leave()
	return b.disposeErr
}

func (b *fakeBridge) ops() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ops := make([]string, len(b.calls))
	for i, c := range b.calls {
		ops[i] = c.Op
	}
	return ops
}

func (b *fakeBridge) call(i int) bridgeCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[i]
}

type fakeInstance struct {
	bridge    *fakeBridge
	container vdom.ElementRef
}

func (i *fakeInstance) SetParameters(ctx context.Context, snap mixed.Snapshot) error {
	i.bridge.enter(bridgeCall{Op: "set", Container: i.container, Snapshot: snap})
	defer i.bridge.leave()
	return i.bridge.setErr
}

func (i *fakeInstance) Dispose(ctx context.Context) error {
	return i.bridge.Dispose(ctx, i.container)
}
