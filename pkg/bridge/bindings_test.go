package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

func TestBindingLifecycle(t *testing.T) {
	b := NewBindings()
	ctx := context.Background()

	assert.Equal(t, Unbound, b.State("h1"))
	require.NoError(t, b.BeginAttach("h1", mixed.RuntimeClient))
	assert.Equal(t, Attaching, b.State("h1"))
	assert.Equal(t, 1, b.Live())

	_, err := b.RequireBound("h1")
	assert.True(t, verrors.Is(err, "E232"), "attaching is not bound: %v", err)

	b.Attached("h1")
	assert.Equal(t, Bound, b.State("h1"))
	runtime, err := b.RequireBound("h1")
	require.NoError(t, err)
	assert.Equal(t, mixed.RuntimeClient, runtime)

	runtime, wasBound, err := b.Dispose(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, wasBound)
	assert.Equal(t, mixed.RuntimeClient, runtime)
	assert.Equal(t, Disposed, b.State("h1"))
	assert.Equal(t, 0, b.Live())

	_, wasBound, err = b.Dispose(ctx, "h1")
	require.NoError(t, err)
	assert.False(t, wasBound, "second dispose is a no-op")
}

func TestBeginAttachRejectsLiveAndDead(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.BeginAttach("h1", mixed.RuntimeServer))

	err := b.BeginAttach("h1", mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E230"), "attaching: %v", err)
	assert.ErrorIs(t, err, mixed.ErrCallerMisuse)
	assert.Equal(t, Attaching, b.State("h1"), "state untouched")

	b.Attached("h1")
	err = b.BeginAttach("h1", mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E230"), "bound: %v", err)

	_, _, err = b.Dispose(context.Background(), "h1")
	require.NoError(t, err)
	err = b.BeginAttach("h1", mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E231"), "disposed: %v", err)
	assert.Equal(t, Disposed, b.State("h1"))

	err = b.BeginAttach("", mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E242"))
}

func TestAttachFailedAllowsRetry(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.BeginAttach("h1", mixed.RuntimeClient))
	b.AttachFailed("h1")
	assert.Equal(t, Unbound, b.State("h1"))
	assert.NoError(t, b.BeginAttach("h1", mixed.RuntimeClient))
}

func TestDisposeWaitsForAttach(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.BeginAttach("h1", mixed.RuntimeClient))

	type result struct {
		wasBound bool
		err      error
	}
	done := make(chan result, 1)
	go func() {
		_, wasBound, err := b.Dispose(context.Background(), "h1")
		done <- result{wasBound, err}
	}()

	select {
	case <-done:
		t.Fatal("dispose returned while attach was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	b.Attached("h1")
	r := <-done
	require.NoError(t, r.err)
	assert.True(t, r.wasBound, "dispose follows the completed attach")
	assert.Equal(t, Disposed, b.State("h1"))
}

func TestDisposeAfterFailedAttachKillsElement(t *testing.T) {
	b := NewBindings()
	require.NoError(t, b.BeginAttach("h1", mixed.RuntimeClient))

	done := make(chan bool, 1)
	go func() {
		_, wasBound, _ := b.Dispose(context.Background(), "h1")
		done <- wasBound
	}()
	time.Sleep(10 * time.Millisecond)
	b.AttachFailed("h1")

	assert.False(t, <-done)
	assert.Equal(t, Disposed, b.State("h1"))
}

func TestDisposeUnknownIsNoop(t *testing.T) {
	b := NewBindings()
	_, wasBound, err := b.Dispose(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, wasBound)
	assert.Equal(t, Unbound, b.State("nope"))
}

func TestStarts(t *testing.T) {
	s := NewStarts()
	assert.False(t, s.IsStarted(mixed.RuntimeClient))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := s.Wait(ctx, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E243"), "timeout: %v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	waiting := make(chan error, 1)
	go func() { waiting <- s.Wait(context.Background(), mixed.RuntimeClient) }()

	s.Started(mixed.RuntimeClient)
	s.Started(mixed.RuntimeClient)
	require.NoError(t, <-waiting)
	assert.True(t, s.IsStarted(mixed.RuntimeClient))
	assert.False(t, s.IsStarted(mixed.RuntimeServer))
}
