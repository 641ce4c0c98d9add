package transport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vango-dev/vango-mixed/pkg/bridge"
)

// Config holds connection settings shared by both sides.
type Config struct {
	// ReadTimeout is the maximum silence tolerated from the peer.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds each frame write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HandshakeTimeout bounds the Hello exchange.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the time between pings. Zero disables pings.
	// Default: 20 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the largest accepted WebSocket message.
	// Default: 64KB plus the frame header.
	MaxMessageSize int64

	// Starts is told when the peer's Hello arrives. Nil disables signalling.
	Starts *bridge.Starts

	// WrapPeer decorates the Invoker handed to the host for calls back into
	// the peer, such as callback invocations. Nil leaves it undecorated.
	WrapPeer func(bridge.Invoker) bridge.Invoker

	// CheckOrigin validates the Origin header on upgrade. Nil accepts
	// same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		HeartbeatInterval: 20 * time.Second,
		MaxMessageSize:    64*1024 + 4,
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	clone := *c
	return &clone
}
