package protocol

import (
	verrors "github.com/vango-dev/vango-mixed/internal/errors"
)

// ErrorCode identifies the type of error carried on the wire.
type ErrorCode uint16

const (
	ErrUnknown         ErrorCode = 0x0000 // Unknown error
	ErrInvalidFrame    ErrorCode = 0x0001 // Malformed frame
	ErrMalformedArgs   ErrorCode = 0x0002 // Operation arguments do not decode
	ErrUnknownOp       ErrorCode = 0x0003 // Operation not supported
	ErrCallbackFailed  ErrorCode = 0x0010 // Callback target returned an error
	ErrCallbackUnknown ErrorCode = 0x0011 // Callback handle unknown or revoked
	ErrBindingLive     ErrorCode = 0x0020 // Element already has a live binding
	ErrBindingDead     ErrorCode = 0x0021 // Element binding was disposed
	ErrNotBound        ErrorCode = 0x0022 // Root component not bound
	ErrNotRegistered   ErrorCode = 0x0030 // Marker not registered
	ErrNotStarted      ErrorCode = 0x0031 // Runtime start wait aborted
	ErrNoRoute         ErrorCode = 0x0032 // No route to runtime
	ErrDisconnected    ErrorCode = 0x0040 // Peer runtime went away
	ErrInternal        ErrorCode = 0x0100 // Unclassified failure in the peer
	ErrVersionMismatch ErrorCode = 0x0101 // Incompatible protocol versions
	ErrRuntimeMismatch ErrorCode = 0x0102 // Peer announced an unexpected runtime
)

// String returns the string representation of the error code.
func (ec ErrorCode) String() string {
	switch ec {
	case ErrUnknown:
		return "Unknown"
	case ErrInvalidFrame:
		return "InvalidFrame"
	case ErrMalformedArgs:
		return "MalformedArgs"
	case ErrUnknownOp:
		return "UnknownOp"
	case ErrCallbackFailed:
		return "CallbackFailed"
	case ErrCallbackUnknown:
		return "CallbackUnknown"
	case ErrBindingLive:
		return "BindingLive"
	case ErrBindingDead:
		return "BindingDead"
	case ErrNotBound:
		return "NotBound"
	case ErrNotRegistered:
		return "NotRegistered"
	case ErrNotStarted:
		return "NotStarted"
	case ErrNoRoute:
		return "NoRoute"
	case ErrDisconnected:
		return "Disconnected"
	case ErrInternal:
		return "Internal"
	case ErrVersionMismatch:
		return "VersionMismatch"
	case ErrRuntimeMismatch:
		return "RuntimeMismatch"
	default:
		return "Unknown"
	}
}

// codeTable pairs wire codes with registry codes.
var codeTable = []struct {
	wire ErrorCode
	code string
}{
	{ErrMalformedArgs, "E242"},
	{ErrCallbackFailed, "E250"},
	{ErrCallbackUnknown, "E251"},
	{ErrBindingLive, "E230"},
	{ErrBindingDead, "E231"},
	{ErrNotBound, "E232"},
	{ErrNotRegistered, "E206"},
	{ErrNotStarted, "E243"},
	{ErrNoRoute, "E241"},
	{ErrDisconnected, "E240"},
}

// ErrorMessage is a failure reported by the peer, either as the result of
// a Call or as a connection-level Error frame.
type ErrorMessage struct {
	Code    ErrorCode // Error code
	Message string    // Human-readable error message
	Fatal   bool      // If true, connection should be closed
}

// NewError creates a non-fatal ErrorMessage.
func NewError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message}
}

// NewFatalError creates a fatal ErrorMessage.
func NewFatalError(code ErrorCode, message string) *ErrorMessage {
	return &ErrorMessage{Code: code, Message: message, Fatal: true}
}

// ErrorMessageFrom classifies err for the wire. Coded errors keep their
// classification; everything else becomes ErrInternal.
func ErrorMessageFrom(err error) *ErrorMessage {
	if err == nil {
		return nil
	}
	if em, ok := err.(*ErrorMessage); ok {
		return em
	}
	code := verrors.CodeOf(err)
	for _, c := range codeTable {
		if c.code == code {
			return NewError(c.wire, err.Error())
		}
	}
	return NewError(ErrInternal, err.Error())
}

// Err rehydrates the message into a coded error so callers can match it
// with errors.Is against the same categories as local failures.
func (em *ErrorMessage) Err() error {
	if em == nil {
		return nil
	}
	for _, c := range codeTable {
		if c.wire == em.Code {
			return verrors.New(c.code).WithDetail("remote: " + em.Message)
		}
	}
	return em
}

// Error implements the error interface.
func (em *ErrorMessage) Error() string {
	if em.Fatal {
		return "fatal: " + em.Code.String() + ": " + em.Message
	}
	return em.Code.String() + ": " + em.Message
}

// IsFatal returns true if this error should close the connection.
func (em *ErrorMessage) IsFatal() bool {
	return em.Fatal
}

// EncodeErrorMessageTo encodes an ErrorMessage using the provided encoder.
func EncodeErrorMessageTo(e *Encoder, em *ErrorMessage) {
	e.WriteUint16(uint16(em.Code))
	e.WriteString(em.Message)
	e.WriteBool(em.Fatal)
}

// EncodeErrorMessage encodes an ErrorMessage to bytes.
func EncodeErrorMessage(em *ErrorMessage) []byte {
	e := NewEncoder()
	EncodeErrorMessageTo(e, em)
	return e.Bytes()
}

// DecodeErrorMessageFrom decodes an ErrorMessage from a decoder.
func DecodeErrorMessageFrom(d *Decoder) (*ErrorMessage, error) {
	code, err := d.ReadUint16()
	if err != nil {
		return nil, err
	}
	message, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	fatal, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	return &ErrorMessage{
		Code:    ErrorCode(code),
		Message: message,
		Fatal:   fatal,
	}, nil
}

// DecodeErrorMessage decodes an ErrorMessage from bytes.
func DecodeErrorMessage(data []byte) (*ErrorMessage, error) {
	return DecodeErrorMessageFrom(NewDecoder(data))
}
