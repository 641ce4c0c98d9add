package protocol

import "fmt"

// Op names an operation one runtime asks the other to perform.
type Op uint8

const (
	// OpAddRootComponent(container, marker, snapshot, runtime) attaches a
	// new root component to container.
	OpAddRootComponent Op = 0x01

	// OpSetParameters(container, snapshot) replaces the parameters of the
	// component bound to container.
	OpSetParameters Op = 0x02

	// OpDisposeRootComponent(container) tears down the component bound to
	// container. Unknown containers are a no-op.
	OpDisposeRootComponent Op = 0x03

	// OpInvokeCallback(handle, arg) invokes a marshaled callback.
	OpInvokeCallback Op = 0x04
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpAddRootComponent:
		return "addRootComponent"
	case OpSetParameters:
		return "setParameters"
	case OpDisposeRootComponent:
		return "disposeRootComponent"
	case OpInvokeCallback:
		return "invokeCallback"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// Valid reports whether op is a known operation.
func (op Op) Valid() bool {
	return op >= OpAddRootComponent && op <= OpInvokeCallback
}

// Call is one operation request.
type Call struct {
	ID   uint64
	Op   Op
	Args []any
}

// EncodeCall encodes a Call to bytes.
func EncodeCall(c *Call) ([]byte, error) {
	e := NewEncoder()
	e.WriteUvarint(c.ID)
	e.WriteByte(byte(c.Op))
	e.WriteUvarint(uint64(len(c.Args)))
	for i, arg := range c.Args {
		if err := EncodeValue(e, arg); err != nil {
			return nil, fmt.Errorf("protocol: %s arg %d: %w", c.Op, i, err)
		}
	}
	return e.Bytes(), nil
}

// DecodeCall decodes a Call from bytes.
func DecodeCall(data []byte) (*Call, error) {
	d := NewDecoder(data)

	id, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	op, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}

	c := &Call{ID: id, Op: Op(op), Args: make([]any, count)}
	for i := range c.Args {
		if c.Args[i], err = DecodeValue(d); err != nil {
			return nil, err
		}
	}
	if err := d.expectEOF(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reply answers the Call with the same ID. Exactly one of Value and Err is
// meaningful.
type Reply struct {
	ID    uint64
	Value any
	Err   *ErrorMessage
}

// EncodeReply encodes a Reply to bytes.
func EncodeReply(r *Reply) ([]byte, error) {
	e := NewEncoder()
	e.WriteUvarint(r.ID)
	if r.Err != nil {
		e.WriteBool(false)
		EncodeErrorMessageTo(e, r.Err)
		return e.Bytes(), nil
	}
	e.WriteBool(true)
	if err := EncodeValue(e, r.Value); err != nil {
		return nil, fmt.Errorf("protocol: reply %d: %w", r.ID, err)
	}
	return e.Bytes(), nil
}

// DecodeReply decodes a Reply from bytes.
func DecodeReply(data []byte) (*Reply, error) {
	d := NewDecoder(data)

	id, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	ok, err := d.ReadBool()
	if err != nil {
		return nil, err
	}

	r := &Reply{ID: id}
	if ok {
		r.Value, err = DecodeValue(d)
	} else {
		r.Err, err = DecodeErrorMessageFrom(d)
	}
	if err != nil {
		return nil, err
	}
	if err := d.expectEOF(); err != nil {
		return nil, err
	}
	return r, nil
}
