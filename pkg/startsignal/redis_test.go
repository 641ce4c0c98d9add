package startsignal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

type mockRedisClient struct {
	mu     sync.Mutex
	values map[string]any
	ttls   map[string]time.Duration
	gets   int
	getErr error
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{
		values: make(map[string]any),
		ttls:   make(map[string]time.Duration),
	}
}

func (c *mockRedisClient) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	c.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (c *mockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return redis.NewStringResult("", c.getErr)
	}
	if _, ok := c.values[key]; !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult("1", nil)
}

func (c *mockRedisClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := c.values[k]; ok {
			delete(c.values, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (c *mockRedisClient) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.values[key]
	return ok
}

func TestStartedWritesKey(t *testing.T) {
	client := newMockRedisClient()
	s := New(client, "deploy-1", WithTTL(time.Hour))

	require.NoError(t, s.Started(context.Background(), mixed.RuntimeClient))
	assert.True(t, client.has("vango-mixed:started:deploy-1:client"))
	assert.Equal(t, time.Hour, client.ttls["vango-mixed:started:deploy-1:client"])

	require.NoError(t, s.Wait(context.Background(), mixed.RuntimeClient))
	assert.Equal(t, 0, client.gets, "local start needs no round trip")
}

func TestWaitObservesOtherProcess(t *testing.T) {
	client := newMockRedisClient()
	waiter := New(client, "deploy-1", WithPollInterval(5*time.Millisecond))
	starter := New(client, "deploy-1")

	done := make(chan error, 1)
	go func() {
		done <- waiter.Wait(context.Background(), mixed.RuntimeClient)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case err := <-done:
		t.Fatalf("Wait returned before start: %v", err)
	default:
	}

	require.NoError(t, starter.Started(context.Background(), mixed.RuntimeClient))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not observe start")
	}
}

func TestWaitScopesAndPrefix(t *testing.T) {
	client := newMockRedisClient()
	a := New(client, "tenant-a", WithPrefix("p:"), WithPollInterval(time.Millisecond))
	b := New(client, "tenant-b", WithPrefix("p:"), WithPollInterval(time.Millisecond))

	require.NoError(t, a.Started(context.Background(), mixed.RuntimeServer))
	assert.True(t, client.has("p:tenant-a:server"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Wait(ctx, mixed.RuntimeServer)
	assert.True(t, verrors.Is(err, "E243"), "%v", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReportsRedisFailure(t *testing.T) {
	client := newMockRedisClient()
	client.getErr = errors.New("connection refused")
	s := New(client, "deploy-1")

	err := s.Wait(context.Background(), mixed.RuntimeClient)
	assert.ErrorIs(t, err, mixed.ErrTransport)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestStopped(t *testing.T) {
	client := newMockRedisClient()
	s := New(client, "deploy-1")

	require.NoError(t, s.Started(context.Background(), mixed.RuntimeClient))
	require.NoError(t, s.Stopped(context.Background(), mixed.RuntimeClient))
	assert.False(t, client.has("vango-mixed:started:deploy-1:client"))
}
