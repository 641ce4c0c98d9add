package startsignal

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// RedisClient is the subset of *redis.Client used by Signals.
type RedisClient interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ RedisClient = (*redis.Client)(nil)

// Signals is a bridge.StartSignals backed by Redis. Starts observed in this
// process are also kept locally so the common case never polls.
type Signals struct {
	client RedisClient
	scope  string
	prefix string
	ttl    time.Duration
	poll   time.Duration
	local  *bridge.Starts
	logger *slog.Logger
}

// Option configures Signals.
type Option func(*Signals)

// WithPrefix sets the key prefix.
// Default: "vango-mixed:started:".
func WithPrefix(prefix string) Option {
	return func(s *Signals) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithTTL sets how long a start signal is retained.
// Default: 24 hours.
func WithTTL(ttl time.Duration) Option {
	return func(s *Signals) {
		s.ttl = ttl
	}
}

// WithPollInterval sets how often Wait checks Redis.
// Default: 100 milliseconds.
func WithPollInterval(d time.Duration) Option {
	return func(s *Signals) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Signals) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates Signals for scope, which names the application instance the
// two runtimes belong to (for example a deployment or tenant ID).
func New(client RedisClient, scope string, opts ...Option) *Signals {
	s := &Signals{
		client: client,
		scope:  scope,
		prefix: "vango-mixed:started:",
		ttl:    24 * time.Hour,
		poll:   100 * time.Millisecond,
		local:  bridge.NewStarts(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Signals) key(runtime mixed.RuntimeID) string {
	return s.prefix + s.scope + ":" + runtime.String()
}

// Started records that runtime has started.
func (s *Signals) Started(ctx context.Context, runtime mixed.RuntimeID) error {
	s.local.Started(runtime)
	if err := s.client.Set(ctx, s.key(runtime), time.Now().UnixMilli(), s.ttl).Err(); err != nil {
		return verrors.New("E241").WithDetailf("recording %s start", runtime).Wrap(err)
	}
	s.logger.Debug("runtime started", "runtime", runtime.String(), "scope", s.scope)
	return nil
}

// Stopped clears the start signal of runtime in Redis. Waiters in this
// process that already observed the start are not affected.
func (s *Signals) Stopped(ctx context.Context, runtime mixed.RuntimeID) error {
	return s.client.Del(ctx, s.key(runtime)).Err()
}

// Wait implements bridge.StartSignals.
func (s *Signals) Wait(ctx context.Context, runtime mixed.RuntimeID) error {
	if s.local.IsStarted(runtime) {
		return nil
	}

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		started, err := s.started(ctx, runtime)
		if err != nil {
			return err
		}
		if started {
			s.local.Started(runtime)
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return verrors.New("E243").WithDetailf("waiting for %s", runtime).Wrap(ctx.Err())
		}
	}
}

func (s *Signals) started(ctx context.Context, runtime mixed.RuntimeID) (bool, error) {
	err := s.client.Get(ctx, s.key(runtime)).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	case ctx.Err() != nil:
		return false, verrors.New("E243").WithDetailf("waiting for %s", runtime).Wrap(ctx.Err())
	default:
		return false, verrors.New("E241").WithDetailf("reading %s start", runtime).Wrap(err)
	}
}

var _ bridge.StartSignals = (*Signals)(nil)
