package protocol

import (
	"fmt"

	"github.com/vango-dev/vango-mixed/pkg/mixed"
)

// ProtocolVersion represents a protocol version as major.minor.
type ProtocolVersion struct {
	Major uint8
	Minor uint8
}

// CurrentVersion is the current protocol version.
var CurrentVersion = ProtocolVersion{Major: 1, Minor: 0}

// String returns "major.minor".
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible reports whether a peer speaking other can talk to v.
// Minor versions are additive; majors must match.
func (v ProtocolVersion) Compatible(other ProtocolVersion) bool {
	return v.Major == other.Major
}

// Hello is the first frame each side sends after the connection opens.
// Receiving the peer's Hello means the peer runtime has started and can
// accept operations.
type Hello struct {
	Version ProtocolVersion // Protocol version
	Runtime mixed.RuntimeID // Runtime of the sender
	ConnID  string          // Connection ID chosen by the accepting side
}

// NewHello creates a Hello for runtime at the current version.
func NewHello(runtime mixed.RuntimeID, connID string) *Hello {
	return &Hello{Version: CurrentVersion, Runtime: runtime, ConnID: connID}
}

// EncodeHello encodes a Hello to bytes.
func EncodeHello(h *Hello) []byte {
	e := NewEncoder()
	e.WriteByte(h.Version.Major)
	e.WriteByte(h.Version.Minor)
	e.WriteByte(byte(h.Runtime))
	e.WriteString(h.ConnID)
	return e.Bytes()
}

// DecodeHello decodes a Hello from bytes.
func DecodeHello(data []byte) (*Hello, error) {
	d := NewDecoder(data)

	major, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	minor, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	runtime, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	connID, err := d.ReadString()
	if err != nil {
		return nil, err
	}

	h := &Hello{
		Version: ProtocolVersion{Major: major, Minor: minor},
		Runtime: mixed.RuntimeID(runtime),
		ConnID:  connID,
	}
	if !h.Runtime.Valid() {
		return nil, fmt.Errorf("protocol: hello from runtime %d", runtime)
	}
	return h, nil
}

// Check validates a received Hello against the runtime we expect to talk
// to. It returns a fatal ErrorMessage suitable for an Error frame.
func (h *Hello) Check(expect mixed.RuntimeID) *ErrorMessage {
	if !CurrentVersion.Compatible(h.Version) {
		return NewFatalError(ErrVersionMismatch,
			fmt.Sprintf("peer speaks %s, want %s", h.Version, CurrentVersion))
	}
	if expect != mixed.RuntimeUnknown && h.Runtime != expect {
		return NewFatalError(ErrRuntimeMismatch,
			fmt.Sprintf("peer is %s, want %s", h.Runtime, expect))
	}
	return nil
}
