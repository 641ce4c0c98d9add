package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

const (
	// FrameHeaderSize is type, reserved byte and a big-endian uint16 length.
	FrameHeaderSize = 4

	// MaxPayloadSize is the largest payload the length field can carry.
	MaxPayloadSize = 1<<16 - 1
)

// FrameType identifies what a frame's payload holds.
type FrameType uint8

const (
	FrameHandshake FrameType = 0x00 // Hello
	FrameCall      FrameType = 0x01 // Operation request
	FrameReply     FrameType = 0x02 // Operation result
	FrameControl   FrameType = 0x03 // Ping, pong, close
	FrameError     FrameType = 0x05 // Connection-level error
)

var frameTypeNames = map[FrameType]string{
	FrameHandshake: "Handshake",
	FrameCall:      "Call",
	FrameReply:     "Reply",
	FrameControl:   "Control",
	FrameError:     "Error",
}

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	if name, ok := frameTypeNames[ft]; ok {
		return name
	}
	return "Unknown"
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is one WebSocket message: header plus payload.
type Frame struct {
	Type    FrameType
	Payload []byte
}

// NewFrame creates a frame.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{Type: ft, Payload: payload}
}

// Encode returns the frame bytes, header included.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, FrameHeaderSize, FrameHeaderSize+len(f.Payload))
	buf[0] = byte(f.Type)
	binary.BigEndian.PutUint16(buf[2:], uint16(len(f.Payload)))
	return append(buf, f.Payload...), nil
}

// DecodeFrame decodes one complete message. The reserved header byte is
// ignored. The payload is copied out of data.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}
	ft := FrameType(data[0])
	if _, ok := frameTypeNames[ft]; !ok {
		return nil, ErrInvalidFrameType
	}
	end := FrameHeaderSize + int(binary.BigEndian.Uint16(data[2:]))
	if len(data) < end {
		return nil, io.ErrUnexpectedEOF
	}
	return &Frame{
		Type:    ft,
		Payload: append([]byte(nil), data[FrameHeaderSize:end]...),
	}, nil
}
