package transport

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	verrors "github.com/vango-dev/vango-mixed/internal/errors"
	"github.com/vango-dev/vango-mixed/pkg/bridge"
	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

// errClosed is the cause reported when Close was called locally.
var errClosed = errors.New("transport: connection closed")

// Conn is one end of a runtime-to-runtime connection.
type Conn struct {
	ws     *websocket.Conn
	host   *bridge.Host
	self   bridge.Invoker
	local  mixed.RuntimeID
	peer   mixed.RuntimeID
	id     string
	config *Config
	logger *slog.Logger

	writeMu sync.Mutex
	nextID  atomic.Uint64

	mu      sync.Mutex
	pending map[uint64]chan *protocol.Reply

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

func newConn(ws *websocket.Conn, host *bridge.Host, local, peer mixed.RuntimeID, id string, config *Config) *Conn {
	c := &Conn{
		ws:      ws,
		host:    host,
		local:   local,
		peer:    peer,
		id:      id,
		config:  config,
		logger:  config.logger().With("conn", id, "peer", peer.String()),
		pending: make(map[uint64]chan *protocol.Reply),
		done:    make(chan struct{}),
	}
	c.self = c
	if config.WrapPeer != nil {
		c.self = config.WrapPeer(c)
	}
	return c
}

// ID returns the connection ID assigned by the accepting side.
func (c *Conn) ID() string {
	return c.id
}

// Peer returns the runtime on the other end.
func (c *Conn) Peer() mixed.RuntimeID {
	return c.peer
}

// Host returns the host serving the peer's calls.
func (c *Conn) Host() *bridge.Host {
	return c.host
}

// Done is closed when the connection is gone.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns why the connection ended, or nil while it is open.
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.closeErr
	default:
		return nil
	}
}

// Invoke implements bridge.Invoker. It sends a Call and waits for the
// matching Reply. A connection that is or becomes closed fails with E240.
func (c *Conn) Invoke(ctx context.Context, op protocol.Op, args ...any) (any, error) {
	select {
	case <-c.done:
		return nil, c.disconnected()
	default:
	}

	id := c.nextID.Add(1)
	payload, err := protocol.EncodeCall(&protocol.Call{ID: id, Op: op, Args: args})
	if err != nil {
		return nil, verrors.New("E242").WithDetailf("encoding %s", op).Wrap(err)
	}

	ch := make(chan *protocol.Reply, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.writeFrame(protocol.FrameCall, payload); err != nil {
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			return nil, verrors.New("E242").WithDetailf("%s arguments exceed one frame", op).Wrap(err)
		}
		c.shutdown(err)
		return nil, c.disconnected()
	}

	select {
	case reply := <-ch:
		if reply.Err != nil {
			return nil, reply.Err.Err()
		}
		return reply.Value, nil
	case <-c.done:
		return nil, c.disconnected()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Conn) disconnected() error {
	return verrors.New("E240").WithDetailf("%s runtime", c.peer).Wrap(c.closeErr)
}

func (c *Conn) writeFrame(ft protocol.FrameType, payload []byte) error {
	data, err := protocol.NewFrame(ft, payload).Encode()
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.config.WriteTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Serve reads frames until the connection ends. Peer calls are handled on
// their own goroutines so a handler may call back into the peer. When Serve
// returns, every component hosted for the peer has been disposed.
func (c *Conn) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.teardown()

	if c.config.HeartbeatInterval > 0 {
		go c.heartbeat(ctx)
	}

	for {
		if c.config.ReadTimeout > 0 {
			c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		}

		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			c.shutdown(err)
			return c.closeErr
		}

		frame, err := protocol.DecodeFrame(msg)
		if err != nil {
			c.logger.Error("frame decode error", "error", err)
			continue
		}

		switch frame.Type {
		case protocol.FrameCall:
			call, err := protocol.DecodeCall(frame.Payload)
			if err != nil {
				c.logger.Error("call decode error", "error", err)
				c.sendError(protocol.NewError(protocol.ErrMalformedArgs, err.Error()))
				continue
			}
			go c.handleCall(ctx, call)

		case protocol.FrameReply:
			c.handleReply(frame.Payload)

		case protocol.FrameControl:
			if c.handleControl(frame.Payload) {
				c.shutdown(errClosed)
				return nil
			}

		case protocol.FrameError:
			em, err := protocol.DecodeErrorMessage(frame.Payload)
			if err != nil {
				c.logger.Error("error frame decode error", "error", err)
				continue
			}
			c.logger.Warn("peer reported error", "code", em.Code, "message", em.Message)
			if em.IsFatal() {
				c.shutdown(em)
				return em
			}

		default:
			c.logger.Warn("unknown frame type", "type", frame.Type)
		}
	}
}

func (c *Conn) handleCall(ctx context.Context, call *protocol.Call) {
	var value any
	var err error
	if c.host == nil {
		err = verrors.New("E241").WithDetailf("%s runtime hosts no components", c.local)
	} else {
		value, err = c.host.Handle(ctx, c.self, call.Op, call.Args)
	}

	reply := &protocol.Reply{ID: call.ID, Value: value, Err: protocol.ErrorMessageFrom(err)}
	payload, encErr := protocol.EncodeReply(reply)
	if encErr != nil {
		reply = &protocol.Reply{ID: call.ID, Err: protocol.NewError(protocol.ErrMalformedArgs, encErr.Error())}
		payload, _ = protocol.EncodeReply(reply)
	}

	if err := c.writeFrame(protocol.FrameReply, payload); err != nil {
		c.logger.Debug("reply write failed", "op", call.Op, "error", err)
	}
}

func (c *Conn) handleReply(payload []byte) {
	reply, err := protocol.DecodeReply(payload)
	if err != nil {
		c.logger.Error("reply decode error", "error", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[reply.ID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("reply for abandoned call", "id", reply.ID)
		return
	}
	ch <- reply
}

// handleControl reports whether the peer asked to close.
func (c *Conn) handleControl(payload []byte) bool {
	ctrl, err := protocol.DecodeControl(payload)
	if err != nil {
		c.logger.Error("control decode error", "error", err)
		return false
	}

	switch ctrl.Type {
	case protocol.ControlPing:
		c.sendControl(protocol.Pong(ctrl))
	case protocol.ControlPong:
		c.logger.Debug("received pong", "rtt_ms", time.Now().UnixMilli()-int64(ctrl.Timestamp))
	case protocol.ControlClose:
		c.logger.Info("peer closing", "reason", ctrl.Reason, "message", ctrl.Message)
		return true
	}
	return false
}

func (c *Conn) sendControl(ctrl protocol.Control) {
	if err := c.writeFrame(protocol.FrameControl, protocol.EncodeControl(ctrl)); err != nil {
		c.logger.Debug("control write failed", "type", ctrl.Type, "error", err)
	}
}

func (c *Conn) sendError(em *protocol.ErrorMessage) {
	if err := c.writeFrame(protocol.FrameError, protocol.EncodeErrorMessage(em)); err != nil {
		c.logger.Debug("error write failed", "error", err)
	}
}

func (c *Conn) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sendControl(protocol.Ping(uint64(time.Now().UnixMilli())))
		case <-ctx.Done():
			return
		}
	}
}

// Close sends a close control frame and shuts the connection down. Pending
// and later Invokes fail with E240.
func (c *Conn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	c.sendControl(protocol.Close(protocol.CloseNormal, ""))
	c.shutdown(errClosed)
	return nil
}

func (c *Conn) shutdown(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		close(c.done)
		c.ws.Close()
	})
}

// teardown disposes everything the peer attached through this connection.
func (c *Conn) teardown() {
	if c.host == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.config.WriteTimeout+time.Second)
	defer cancel()
	c.host.DisposeAll(ctx)
}
