// Package protocol implements the binary wire format spoken between the two
// runtimes of a mixed application.
//
// One runtime asks the other to add, update and dispose root components and
// to invoke marshaled callbacks. Every request is a Call frame carrying an
// operation and its structural arguments; every Call is answered by exactly
// one Reply frame with the same ID.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Reserved     │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameHandshake (0x00): runtime announcement, doubles as start signal
//   - FrameCall (0x01): operation request
//   - FrameReply (0x02): operation result
//   - FrameControl (0x03): ping, pong, close
//   - FrameError (0x05): connection-level error
//
// # Values
//
// Call arguments and reply values use a tagged value encoding. Besides the
// JSON-like kinds (null, bool, int, float, string, array, object) it carries
// element references, callback references and parameter snapshots natively.
// Nesting is limited to MaxValueDepth.
package protocol
