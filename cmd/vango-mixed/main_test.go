package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/vango-mixed/internal/config"
	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/manifest"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/startsignal"
)

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(runtime string) *config.Config {
	cfg := config.New()
	cfg.Runtime = runtime
	cfg.Metrics.Enabled = false
	cfg.Components = []manifest.Entry{
		{Marker: "app.Counter", Runtime: "server"},
		{Marker: "app.Island", Runtime: "client"},
	}
	return cfg
}

func TestWriteVersion(t *testing.T) {
	var buf bytes.Buffer
	writeVersion(&buf)

	out := buf.String()
	assert.Contains(t, out, "Runtime:    server")
	assert.Contains(t, out, "Protocol:   1.0 (accepts peers speaking 1.x)")
	assert.Contains(t, out, "Operations: addRootComponent, setParameters, disposeRootComponent, invokeCallback")
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"count=3", "ratio=0.5", "on=true", "label=hi", "empty="})
	require.NoError(t, err)

	assert.Equal(t, int64(3), params.Data("count"))
	assert.Equal(t, 0.5, params.Data("ratio"))
	assert.Equal(t, true, params.Data("on"))
	assert.Equal(t, "hi", params.Data("label"))
	assert.Equal(t, "", params.Data("empty"))

	_, err = parseParams([]string{"novalue"})
	assert.True(t, verrors.Is(err, "E280"))

	_, err = parseParams([]string{"=3"})
	assert.True(t, verrors.Is(err, "E280"))
}

func TestProbeTarget(t *testing.T) {
	cfg := testConfig("client")
	resolver, err := resolve(context.Background(), cfg, nil)
	require.NoError(t, err)

	target, err := probeTarget(resolver, "app.Counter")
	require.NoError(t, err)
	assert.Equal(t, mixed.RuntimeServer, target)

	target, err = probeTarget(resolver, "app.Undeclared")
	require.NoError(t, err)
	assert.Equal(t, mixed.RuntimeServer, target)

	_, err = probeTarget(resolver, "app.Island")
	assert.True(t, verrors.Is(err, "E280"))
}

func TestLoggerRejectsUnknownLevel(t *testing.T) {
	flags := &globalFlags{logLevel: "loud"}
	_, err := flags.logger()
	assert.True(t, verrors.Is(err, "E280"))
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(`
runtime: client
components:
  - marker: app.Counter
    runtime: server
`), 0644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"check", dir})
	assert.NoError(t, cmd.Execute())
}

func TestCheckCommandRejectsAmbiguity(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ConfigFileName), []byte(`
runtime: client
components:
  - marker: app.Counter
    server: true
    client: true
`), 0644))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"check", dir})
	err := cmd.Execute()
	assert.True(t, verrors.Is(err, "E201"), "got %v", err)
}

func TestHealthz(t *testing.T) {
	cfg := testConfig("server")
	sv, err := newServing(context.Background(), cfg, &cmdDeps{logger: slog.Default()})
	require.NoError(t, err)
	assert.Equal(t, []mixed.Marker{"app.Counter"}, sv.owned)

	rec := httptest.NewRecorder()
	sv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "server", body["runtime"])
	assert.Equal(t, float64(0), body["connections"])

	rec = httptest.NewRecorder()
	sv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProbeAgainstServe(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	sv, err := newServing(context.Background(), testConfig("server"), &cmdDeps{logger: logger})
	require.NoError(t, err)
	ts := httptest.NewServer(sv.router)
	defer ts.Close()
	defer sv.server.Close()

	cfg := testConfig("client")
	opts := &probeOptions{
		url:       "ws" + strings.TrimPrefix(ts.URL, "http") + cfg.Transport.Path,
		marker:    "app.Counter",
		params:    []string{"start=3"},
		updates:   []string{"start=4"},
		callbacks: []string{"onClick"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, runProbe(ctx, cfg, opts, &cmdDeps{logger: slog.New(slog.DiscardHandler)}))

	out := logs.String()
	assert.Contains(t, out, "parameters received")
	assert.Contains(t, out, "start=3")
	assert.Contains(t, out, "start=4")
	assert.Contains(t, out, "onClick=CallbackArg")
	assert.Contains(t, out, "component disposed")
}

func TestProbeRequiresURL(t *testing.T) {
	cfg := testConfig("client")
	err := runProbe(context.Background(), cfg, &probeOptions{marker: "app.Counter"}, &cmdDeps{logger: slog.Default()})
	assert.True(t, verrors.Is(err, "E280"))
}

// startKeys is a startsignal.RedisClient holding keys in memory.
type startKeys struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (k *startKeys) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[key] = true
	return redis.NewStatusResult("OK", nil)
}

func (k *startKeys) Get(ctx context.Context, key string) *redis.StringCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.keys[key] {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult("1", nil)
}

func (k *startKeys) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range keys {
		delete(k.keys, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestStartSignalsIncludeRedis(t *testing.T) {
	cfg := testConfig("client")
	cfg.StartSignal.Redis.Scope = "deploy-1"
	logger := slog.New(slog.DiscardHandler)

	handshake := bridge.NewStarts()
	assert.Same(t, handshake, probeStarts(cfg, &cmdDeps{logger: logger}, handshake))

	keys := &startKeys{keys: make(map[string]bool)}
	starts := probeStarts(cfg, &cmdDeps{logger: logger, redis: keys}, handshake)

	// Another process serving the server runtime records its start.
	other := startsignal.New(keys, "deploy-1")
	require.NoError(t, other.Started(context.Background(), mixed.RuntimeServer))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, starts.Wait(ctx, mixed.RuntimeServer))
	assert.False(t, handshake.IsStarted(mixed.RuntimeServer))

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := starts.Wait(ctx, mixed.RuntimeClient)
	assert.True(t, verrors.Is(err, "E243"), "got %v", err)
}

func TestCommandDepsClosedAfterRun(t *testing.T) {
	closed := false
	deps := &cmdDeps{
		logger:  slog.Default(),
		closers: []func() error{func() error { closed = true; return nil }},
	}
	err := runProbe(context.Background(), testConfig("client"), &probeOptions{marker: "app.Counter"}, deps)
	assert.True(t, verrors.Is(err, "E280"))
	assert.True(t, closed)
}

func TestInitAndDeclare(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, runInit(dir, "client", false))
	err := runInit(dir, "client", false)
	assert.True(t, verrors.Is(err, "E208"), "got %v", err)
	require.NoError(t, runInit(dir, "client", true))

	path := filepath.Join(dir, config.ConfigFileName)
	cmd := newRootCmd()
	cmd.SetArgs([]string{"declare", "app.Counter", "app.Chart", "--runtime", "server", "--config", path})
	require.NoError(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"declare", "app.Chart", "--runtime", "client", "--config", path})
	require.NoError(t, cmd.Execute())

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "client", cfg.Runtime)
	assert.Equal(t, []manifest.Entry{
		{Marker: "app.Counter", Runtime: "server"},
		{Marker: "app.Chart", Runtime: "client"},
	}, cfg.Components)
}

func TestInitRejectsBadRuntime(t *testing.T) {
	err := runInit(t.TempDir(), "browser", false)
	assert.True(t, verrors.Is(err, "E203"))
}
