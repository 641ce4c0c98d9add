package transport

import (
	"context"

	"github.com/gorilla/websocket"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

// Dial connects to a Server, exchanges Hellos and starts serving the peer's
// calls with host in the background. host may be nil when the local
// runtime hosts nothing.
func Dial(ctx context.Context, url string, local mixed.RuntimeID, host *bridge.Host, config *Config) (*Conn, error) {
	config = config.Clone()

	dialer := websocket.Dialer{
		HandshakeTimeout: config.HandshakeTimeout,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
	}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, verrors.New("E240").WithDetailf("dial %s", url).Wrap(err)
	}
	if config.MaxMessageSize > 0 {
		ws.SetReadLimit(config.MaxMessageSize)
	}

	if err := writeRaw(ws, config.WriteTimeout, protocol.FrameHandshake,
		protocol.EncodeHello(protocol.NewHello(local, ""))); err != nil {
		ws.Close()
		return nil, verrors.New("E240").WithDetail("sending hello").Wrap(err)
	}

	hello, err := readHello(ws, config.HandshakeTimeout, local.Other())
	if err != nil {
		ws.Close()
		return nil, err
	}

	conn := newConn(ws, host, local, hello.Runtime, hello.ConnID, config)
	if config.Starts != nil {
		config.Starts.Started(hello.Runtime)
	}
	conn.logger.Info("connected", "url", url)

	go conn.Serve(context.WithoutCancel(ctx))
	return conn, nil
}
