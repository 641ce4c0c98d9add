package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/callback"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

const counterMarker mixed.Marker = "app.Counter"

type recorder struct {
	mu       sync.Mutex
	updates  []mixed.Parameters
	disposed int
	failSet  error
}

func (r *recorder) SetParameters(ctx context.Context, params mixed.Parameters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSet != nil {
		return r.failSet
	}
	r.updates = append(r.updates, params)
	return nil
}

func (r *recorder) Dispose(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disposed++
	return nil
}

func (r *recorder) last() mixed.Parameters {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

// pair wires a server-side Remote to a client-side Host in one process.
type pair struct {
	serverReg *callback.Registry
	server    *Host
	client    *Host
	remote    *Remote
	starts    *Starts
	component *recorder
}

func newPair(t *testing.T) *pair {
	t.Helper()
	p := &pair{
		serverReg: callback.NewRegistry(),
		starts:    NewStarts(),
		component: &recorder{},
	}
	p.server = NewHost(mixed.RuntimeServer, p.serverReg)
	p.client = NewHost(mixed.RuntimeClient, callback.NewRegistry())
	p.client.Register(counterMarker, func() mixed.Component { return p.component })

	toClient, _ := Pipe(p.server, p.client)
	p.remote = NewRemote(p.starts, WithRoute(mixed.RuntimeClient, toClient), WithStartTimeout(time.Second))
	p.starts.Started(mixed.RuntimeClient)
	return p
}

func TestRemoteAddSetParametersDispose(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()

	inst, err := p.remote.Add(ctx, "h1", counterMarker,
		mixed.Snapshot{Values: map[string]any{"Count": 1}}, mixed.RuntimeClient)
	require.NoError(t, err)
	assert.Equal(t, Bound, p.remote.Bindings().State("h1"))
	assert.Equal(t, Bound, p.client.Bindings().State("h1"))
	assert.Equal(t, 1, p.component.last().Data("Count"))

	require.NoError(t, inst.SetParameters(ctx, mixed.Snapshot{Values: map[string]any{"Count": 2}}))
	assert.Equal(t, 2, p.component.last().Data("Count"))

	require.NoError(t, inst.Dispose(ctx))
	assert.Equal(t, 1, p.component.disposed)
	assert.Equal(t, Disposed, p.remote.Bindings().State("h1"))
	assert.Equal(t, Disposed, p.client.Bindings().State("h1"))

	require.NoError(t, p.remote.Dispose(ctx, "h1"), "dispose is idempotent")
	assert.Equal(t, 1, p.component.disposed)

	err = inst.SetParameters(ctx, mixed.Snapshot{})
	assert.True(t, verrors.Is(err, "E231"), "set after dispose: %v", err)
}

func TestRemoteAddTwiceFailsWithoutMutation(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()

	_, err := p.remote.Add(ctx, "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	require.NoError(t, err)

	_, err = p.remote.Add(ctx, "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E230"), "%v", err)
	assert.Equal(t, Bound, p.remote.Bindings().State("h1"))
	assert.Len(t, p.component.updates, 1)

	require.NoError(t, p.remote.Dispose(ctx, "h1"))
	_, err = p.remote.Add(ctx, "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E231"), "%v", err)
}

func TestRemoteDisposeUnknownIsNoop(t *testing.T) {
	p := newPair(t)
	assert.NoError(t, p.remote.Dispose(context.Background(), "never-added"))
}

func TestRemoteAddWaitsForStart(t *testing.T) {
	starts := NewStarts()
	client := NewHost(mixed.RuntimeClient, callback.NewRegistry())
	client.Register(counterMarker, func() mixed.Component { return &recorder{} })
	remote := NewRemote(starts, WithRoute(mixed.RuntimeClient, InProcess(client, nil)))

	added := make(chan error, 1)
	go func() {
		_, err := remote.Add(context.Background(), "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
		added <- err
	}()

	select {
	case err := <-added:
		t.Fatalf("add finished before start: %v", err)
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, Attaching, remote.Bindings().State("h1"))
	assert.Equal(t, Unbound, client.Bindings().State("h1"), "no add reached the host")

	starts.Started(mixed.RuntimeClient)
	require.NoError(t, <-added)
	assert.Equal(t, Bound, client.Bindings().State("h1"))
}

func TestRemoteStartTimeout(t *testing.T) {
	client := NewHost(mixed.RuntimeClient, nil)
	remote := NewRemote(NewStarts(),
		WithRoute(mixed.RuntimeClient, InProcess(client, nil)),
		WithStartTimeout(10*time.Millisecond))

	_, err := remote.Add(context.Background(), "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E243"), "%v", err)
	assert.Equal(t, Unbound, remote.Bindings().State("h1"), "failed add releases the element")
}

func TestRemoteZeroStartTimeoutWaitsForContext(t *testing.T) {
	client := NewHost(mixed.RuntimeClient, nil)
	remote := NewRemote(NewStarts(),
		WithRoute(mixed.RuntimeClient, InProcess(client, nil)),
		WithStartTimeout(0))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err := remote.Add(ctx, "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E243"), "%v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, time.Since(begin), 30*time.Millisecond)
}

func TestAnyStarts(t *testing.T) {
	never := NewStarts()
	later := NewStarts()
	signals := AnyStarts{never, later}

	done := make(chan error, 1)
	go func() {
		done <- signals.Wait(context.Background(), mixed.RuntimeServer)
	}()

	select {
	case err := <-done:
		t.Fatalf("wait finished before any start: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	later.Started(mixed.RuntimeServer)
	require.NoError(t, <-done)
	assert.False(t, never.IsStarted(mixed.RuntimeServer))
}

func TestAnyStartsFailsWhenAllFail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := AnyStarts{NewStarts(), NewStarts()}.Wait(ctx, mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E243"), "%v", err)

	err = AnyStarts{}.Wait(ctx, mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E243"), "%v", err)
}

func TestRemoteNoRoute(t *testing.T) {
	remote := NewRemote(nil)
	_, err := remote.Add(context.Background(), "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E241"), "%v", err)
	assert.ErrorIs(t, err, mixed.ErrTransport)
}

func TestRemoteSurfacesDisconnect(t *testing.T) {
	disconnected := InvokerFunc(func(context.Context, protocol.Op, ...any) (any, error) {
		return nil, verrors.New("E240")
	})
	remote := NewRemote(nil, WithRoute(mixed.RuntimeClient, disconnected))

	_, err := remote.Add(context.Background(), "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, IsDisconnected(err))
	assert.Equal(t, Unbound, remote.Bindings().State("h1"))
}

func TestHostRejectsUnexposedMarker(t *testing.T) {
	p := newPair(t)
	_, err := p.remote.Add(context.Background(), "h1", "app.Secret", mixed.Snapshot{}, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E206"), "%v", err)
	assert.Equal(t, Unbound, p.client.Bindings().State("h1"))
}

func TestHostRejectsWrongRuntime(t *testing.T) {
	client := NewHost(mixed.RuntimeClient, nil)
	client.Register(counterMarker, func() mixed.Component { return &recorder{} })

	_, err := client.Handle(context.Background(), nil, protocol.OpAddRootComponent,
		[]any{vdom.ElementRef("h1"), string(counterMarker), mixed.Snapshot{}, int64(mixed.RuntimeServer)})
	assert.True(t, verrors.Is(err, "E241"), "%v", err)
}

func TestHostAddFailureTearsDown(t *testing.T) {
	p := newPair(t)
	p.component.failSet = errors.New("bad params")

	_, err := p.remote.Add(context.Background(), "h1", counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad params")
	assert.Equal(t, 1, p.component.disposed)
	assert.Equal(t, Unbound, p.client.Bindings().State("h1"))
	assert.Equal(t, Unbound, p.remote.Bindings().State("h1"))
}

func TestHostMalformedArguments(t *testing.T) {
	h := NewHost(mixed.RuntimeClient, callback.NewRegistry())
	ctx := context.Background()

	tests := []struct {
		name string
		op   protocol.Op
		args []any
	}{
		{"add arity", protocol.OpAddRootComponent, []any{"h1"}},
		{"add container type", protocol.OpAddRootComponent, []any{42, "m", mixed.Snapshot{}, 2}},
		{"add snapshot type", protocol.OpAddRootComponent, []any{"h1", "m", "oops", 2}},
		{"add runtime range", protocol.OpAddRootComponent, []any{"h1", "m", nil, int64(300)}},
		{"add runtime fraction", protocol.OpAddRootComponent, []any{"h1", "m", nil, 1.5}},
		{"set arity", protocol.OpSetParameters, nil},
		{"dispose container type", protocol.OpDisposeRootComponent, []any{true}},
		{"invoke handle type", protocol.OpInvokeCallback, []any{7, nil}},
		{"unknown op", protocol.Op(99), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Handle(ctx, nil, tt.op, tt.args)
			assert.True(t, verrors.Is(err, "E242"), "%v", err)
		})
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	set := p.serverReg.NewSet()

	var clicks int
	var typed string
	snap, err := set.Update(mixed.Parameters{
		"Label":   mixed.Plain("go"),
		"OnClick": mixed.Callback(func(context.Context) error { clicks++; return nil }),
		"OnInput": mixed.CallbackOf(func(_ context.Context, s string) error { typed = s; return nil }),
	})
	require.NoError(t, err)

	_, err = p.remote.Add(ctx, "h1", counterMarker, snap, mixed.RuntimeClient)
	require.NoError(t, err)

	params := p.component.last()
	assert.Equal(t, "go", params.Data("Label"))
	require.NoError(t, params["OnClick"].Invoke(ctx))
	require.NoError(t, params["OnInput"].InvokeWith(ctx, "hello"))
	assert.Equal(t, 1, clicks)
	assert.Equal(t, "hello", typed)

	set.Dispose()
	require.NoError(t, params["OnClick"].Invoke(ctx), "revoked callback is a no-op")
	assert.Equal(t, 1, clicks)
}

func TestCallbackFailurePropagates(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	set := p.serverReg.NewSet()

	snap, err := set.Update(mixed.Parameters{
		"OnSave": mixed.Callback(func(context.Context) error { return errors.New("disk full") }),
	})
	require.NoError(t, err)
	_, err = p.remote.Add(ctx, "h1", counterMarker, snap, mixed.RuntimeClient)
	require.NoError(t, err)

	err = p.component.last()["OnSave"].Invoke(ctx)
	assert.ErrorIs(t, err, mixed.ErrRemoteInvocation)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHostDisposeAll(t *testing.T) {
	p := newPair(t)
	ctx := context.Background()
	for _, c := range []vdom.ElementRef{"h1", "h2"} {
		_, err := p.remote.Add(ctx, c, counterMarker, mixed.Snapshot{}, mixed.RuntimeClient)
		require.NoError(t, err)
	}

	p.client.DisposeAll(ctx)
	assert.Equal(t, 2, p.component.disposed)
	assert.Equal(t, 0, p.client.Bindings().Live())
}
