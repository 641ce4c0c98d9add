package bridge

import (
	"context"
	"sync"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// StartSignals reports when a runtime is ready to accept operations.
type StartSignals interface {
	// Wait blocks until runtime has started or ctx is done.
	Wait(ctx context.Context, runtime mixed.RuntimeID) error
}

// Starts is an in-memory StartSignals. Each runtime has one channel that is
// closed when the runtime starts.
type Starts struct {
	mu    sync.Mutex
	chans map[mixed.RuntimeID]chan struct{}
}

// NewStarts creates a Starts with no runtime started.
func NewStarts() *Starts {
	return &Starts{chans: make(map[mixed.RuntimeID]chan struct{})}
}

func (s *Starts) channel(runtime mixed.RuntimeID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.chans[runtime]
	if !ok {
		ch = make(chan struct{})
		s.chans[runtime] = ch
	}
	return ch
}

// Started records that runtime has started. Repeated calls are no-ops.
func (s *Starts) Started(runtime mixed.RuntimeID) {
	ch := s.channel(runtime)

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// IsStarted reports whether runtime has started.
func (s *Starts) IsStarted(runtime mixed.RuntimeID) bool {
	select {
	case <-s.channel(runtime):
		return true
	default:
		return false
	}
}

// Wait implements StartSignals.
func (s *Starts) Wait(ctx context.Context, runtime mixed.RuntimeID) error {
	select {
	case <-s.channel(runtime):
		return nil
	case <-ctx.Done():
		return verrors.New("E243").WithDetailf("waiting for %s", runtime).Wrap(ctx.Err())
	}
}

// AnyStarts is a StartSignals that reports a runtime as started as soon as
// one of its members does.
type AnyStarts []StartSignals

// Wait implements StartSignals. It fails only once every member has failed,
// returning the last error.
func (a AnyStarts) Wait(ctx context.Context, runtime mixed.RuntimeID) error {
	switch len(a) {
	case 0:
		<-ctx.Done()
		return verrors.New("E243").WithDetailf("waiting for %s", runtime).Wrap(ctx.Err())
	case 1:
		return a[0].Wait(ctx, runtime)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, len(a))
	for _, s := range a {
		go func(s StartSignals) {
			errs <- s.Wait(ctx, runtime)
		}(s)
	}

	var last error
	for range a {
		err := <-errs
		if err == nil {
			return nil
		}
		last = err
	}
	return last
}
