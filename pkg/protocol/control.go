package protocol

import "fmt"

// ControlType identifies a control message.
type ControlType uint8

const (
	ControlPing  ControlType = 0x01 // Liveness probe
	ControlPong  ControlType = 0x02 // Answer to a ping
	ControlClose ControlType = 0x20 // Orderly shutdown
)

// String returns the string representation of the control type.
func (ct ControlType) String() string {
	switch ct {
	case ControlPing:
		return "Ping"
	case ControlPong:
		return "Pong"
	case ControlClose:
		return "Close"
	default:
		return "Unknown"
	}
}

// CloseReason says why a runtime closes its connection.
type CloseReason uint8

const (
	CloseNormal    CloseReason = 0x00 // Conn.Close
	CloseGoingAway CloseReason = 0x01 // Process shutting down
)

// String returns the string representation of the close reason.
func (cr CloseReason) String() string {
	switch cr {
	case CloseNormal:
		return "Normal"
	case CloseGoingAway:
		return "GoingAway"
	default:
		return "Unknown"
	}
}

// Control is a decoded control message. Timestamp is set for pings and
// pongs (Unix milliseconds), Reason and Message for close.
type Control struct {
	Type      ControlType
	Timestamp uint64
	Reason    CloseReason
	Message   string
}

// Ping returns a ping stamped with ts.
func Ping(ts uint64) Control {
	return Control{Type: ControlPing, Timestamp: ts}
}

// Pong answers a ping, echoing its timestamp.
func Pong(ping Control) Control {
	return Control{Type: ControlPong, Timestamp: ping.Timestamp}
}

// Close returns a close message.
func Close(reason CloseReason, message string) Control {
	return Control{Type: ControlClose, Reason: reason, Message: message}
}

// EncodeControl encodes c.
func EncodeControl(c Control) []byte {
	e := NewEncoder()
	e.WriteByte(byte(c.Type))
	switch c.Type {
	case ControlPing, ControlPong:
		e.WriteUvarint(c.Timestamp)
	case ControlClose:
		e.WriteByte(byte(c.Reason))
		e.WriteString(c.Message)
	}
	return e.Bytes()
}

// DecodeControl decodes a control message.
func DecodeControl(data []byte) (Control, error) {
	d := NewDecoder(data)

	b, err := d.ReadByte()
	if err != nil {
		return Control{}, err
	}
	c := Control{Type: ControlType(b)}

	switch c.Type {
	case ControlPing, ControlPong:
		c.Timestamp, err = d.ReadUvarint()
	case ControlClose:
		var reason byte
		if reason, err = d.ReadByte(); err == nil {
			c.Reason = CloseReason(reason)
			c.Message, err = d.ReadString()
		}
	default:
		return Control{}, fmt.Errorf("protocol: unknown control type 0x%02x", b)
	}
	if err != nil {
		return Control{}, err
	}
	return c, nil
}
