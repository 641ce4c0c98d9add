package transport

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/protocol"
)

// writeRaw writes a single frame on a connection that has no Conn yet.
func writeRaw(ws *websocket.Conn, timeout time.Duration, ft protocol.FrameType, payload []byte) error {
	data, err := protocol.NewFrame(ft, payload).Encode()
	if err != nil {
		return err
	}
	if timeout > 0 {
		ws.SetWriteDeadline(time.Now().Add(timeout))
	}
	return ws.WriteMessage(websocket.BinaryMessage, data)
}

// readHello reads the peer's Hello and checks it against expect. A peer
// that refuses the handshake answers with an Error frame instead; its
// message is returned as the error.
func readHello(ws *websocket.Conn, timeout time.Duration, expect mixed.RuntimeID) (*protocol.Hello, error) {
	if timeout > 0 {
		ws.SetReadDeadline(time.Now().Add(timeout))
	}
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("transport: reading hello: %w", err)
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return nil, fmt.Errorf("transport: reading hello: %w", err)
	}

	switch frame.Type {
	case protocol.FrameHandshake:
		hello, err := protocol.DecodeHello(frame.Payload)
		if err != nil {
			return nil, err
		}
		if em := hello.Check(expect); em != nil {
			return hello, em
		}
		return hello, nil
	case protocol.FrameError:
		em, err := protocol.DecodeErrorMessage(frame.Payload)
		if err != nil {
			return nil, err
		}
		return nil, em.Err()
	default:
		return nil, fmt.Errorf("transport: expected hello, got %s frame", frame.Type)
	}
}
