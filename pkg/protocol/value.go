package protocol

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/vango-dev/vango-mixed/pkg/mixed"
	"github.com/vango-dev/vango-mixed/pkg/vdom"
)

// ValueType tags an encoded value.
type ValueType uint8

const (
	ValueNull        ValueType = 0x00
	ValueBool        ValueType = 0x01
	ValueInt         ValueType = 0x02
	ValueFloat       ValueType = 0x03
	ValueString      ValueType = 0x04
	ValueArray       ValueType = 0x05
	ValueObject      ValueType = 0x06
	ValueElementRef  ValueType = 0x10
	ValueCallbackRef ValueType = 0x11
	ValueSnapshot    ValueType = 0x12
)

// String returns the string representation of the value type.
func (vt ValueType) String() string {
	switch vt {
	case ValueNull:
		return "Null"
	case ValueBool:
		return "Bool"
	case ValueInt:
		return "Int"
	case ValueFloat:
		return "Float"
	case ValueString:
		return "String"
	case ValueArray:
		return "Array"
	case ValueObject:
		return "Object"
	case ValueElementRef:
		return "ElementRef"
	case ValueCallbackRef:
		return "CallbackRef"
	case ValueSnapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

// EncodeValue appends v to e.
//
// Supported natively: nil, bool, signed and unsigned integers, floats,
// strings, []any, map[string]any, vdom.ElementRef, mixed.Marker,
// mixed.RuntimeID, mixed.CallbackRef and mixed.Snapshot. Any other value
// is first normalized through its JSON representation, so structs arrive
// on the other side as map[string]any.
//
// Decoded integers are always int64 and decoded floats float64.
func EncodeValue(e *Encoder, v any) error {
	return encodeValue(e, v, newDepthContext(MaxValueDepth))
}

func encodeValue(e *Encoder, v any, dc *depthContext) error {
	switch val := v.(type) {
	case nil:
		e.WriteByte(byte(ValueNull))
	case bool:
		e.WriteByte(byte(ValueBool))
		e.WriteBool(val)
	case int:
		writeInt(e, int64(val))
	case int8:
		writeInt(e, int64(val))
	case int16:
		writeInt(e, int64(val))
	case int32:
		writeInt(e, int64(val))
	case int64:
		writeInt(e, val)
	case uint:
		return writeUint(e, uint64(val))
	case uint8:
		writeInt(e, int64(val))
	case uint16:
		writeInt(e, int64(val))
	case uint32:
		writeInt(e, int64(val))
	case uint64:
		return writeUint(e, val)
	case float32:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(float64(val))
	case float64:
		e.WriteByte(byte(ValueFloat))
		e.WriteFloat64(val)
	case string:
		e.WriteByte(byte(ValueString))
		e.WriteString(val)
	case mixed.Marker:
		e.WriteByte(byte(ValueString))
		e.WriteString(string(val))
	case mixed.RuntimeID:
		writeInt(e, int64(val))
	case vdom.ElementRef:
		e.WriteByte(byte(ValueElementRef))
		e.WriteString(string(val))
	case mixed.CallbackRef:
		e.WriteByte(byte(ValueCallbackRef))
		writeCallbackRef(e, val)
	case *mixed.Snapshot:
		if val == nil {
			e.WriteByte(byte(ValueNull))
			return nil
		}
		return encodeSnapshot(e, *val, dc)
	case mixed.Snapshot:
		return encodeSnapshot(e, val, dc)
	case []any:
		if err := dc.enter(); err != nil {
			return err
		}
		defer dc.leave()
		e.WriteByte(byte(ValueArray))
		e.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			if err := encodeValue(e, item, dc); err != nil {
				return err
			}
		}
	case map[string]any:
		if err := dc.enter(); err != nil {
			return err
		}
		defer dc.leave()
		e.WriteByte(byte(ValueObject))
		return encodeObject(e, val, dc)
	default:
		normalized, err := normalize(v)
		if err != nil {
			return err
		}
		return encodeValue(e, normalized, dc)
	}
	return nil
}

func writeInt(e *Encoder, v int64) {
	e.WriteByte(byte(ValueInt))
	e.WriteSvarint(v)
}

func writeUint(e *Encoder, v uint64) error {
	if v > math.MaxInt64 {
		return fmt.Errorf("protocol: integer %d overflows int64", v)
	}
	writeInt(e, int64(v))
	return nil
}

func writeCallbackRef(e *Encoder, ref mixed.CallbackRef) {
	e.WriteString(ref.Name)
	e.WriteString(ref.Handle)
	e.WriteByte(byte(ref.Arity))
}

func encodeObject(e *Encoder, obj map[string]any, dc *depthContext) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e.WriteUvarint(uint64(len(keys)))
	for _, k := range keys {
		e.WriteString(k)
		if err := encodeValue(e, obj[k], dc); err != nil {
			return err
		}
	}
	return nil
}

func encodeSnapshot(e *Encoder, s mixed.Snapshot, dc *depthContext) error {
	if err := dc.enter(); err != nil {
		return err
	}
	defer dc.leave()

	e.WriteByte(byte(ValueSnapshot))
	if err := encodeObject(e, s.Values, dc); err != nil {
		return err
	}
	e.WriteUvarint(uint64(len(s.Callbacks)))
	for _, ref := range s.Callbacks {
		writeCallbackRef(e, ref)
	}
	return nil
}

// normalize reshapes an arbitrary Go value into the structural kinds the
// codec understands.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("protocol: cannot encode %T: %w", v, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("protocol: cannot encode %T: %w", v, err)
	}
	return out, nil
}

// DecodeValue reads one value from d.
func DecodeValue(d *Decoder) (any, error) {
	return decodeValue(d, newDepthContext(MaxValueDepth))
}

func decodeValue(d *Decoder, dc *depthContext) (any, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch ValueType(tag) {
	case ValueNull:
		return nil, nil
	case ValueBool:
		return d.ReadBool()
	case ValueInt:
		return d.ReadSvarint()
	case ValueFloat:
		return d.ReadFloat64()
	case ValueString:
		return d.ReadString()
	case ValueElementRef:
		s, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return vdom.ElementRef(s), nil
	case ValueCallbackRef:
		return readCallbackRef(d)
	case ValueArray:
		if err := dc.enter(); err != nil {
			return nil, err
		}
		defer dc.leave()
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		arr := make([]any, count)
		for i := range arr {
			if arr[i], err = decodeValue(d, dc); err != nil {
				return nil, err
			}
		}
		return arr, nil
	case ValueObject:
		if err := dc.enter(); err != nil {
			return nil, err
		}
		defer dc.leave()
		return decodeObject(d, dc)
	case ValueSnapshot:
		if err := dc.enter(); err != nil {
			return nil, err
		}
		defer dc.leave()
		return decodeSnapshot(d, dc)
	default:
		return nil, fmt.Errorf("protocol: unknown value type 0x%02x", tag)
	}
}

func readCallbackRef(d *Decoder) (mixed.CallbackRef, error) {
	name, err := d.ReadString()
	if err != nil {
		return mixed.CallbackRef{}, err
	}
	handle, err := d.ReadString()
	if err != nil {
		return mixed.CallbackRef{}, err
	}
	arity, err := d.ReadByte()
	if err != nil {
		return mixed.CallbackRef{}, err
	}
	if mixed.Arity(arity) > mixed.Arity1 {
		return mixed.CallbackRef{}, fmt.Errorf("protocol: callback arity %d", arity)
	}
	return mixed.CallbackRef{Name: name, Handle: handle, Arity: mixed.Arity(arity)}, nil
}

func decodeObject(d *Decoder, dc *depthContext) (map[string]any, error) {
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	obj := make(map[string]any, count)
	for i := 0; i < count; i++ {
		key, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		if obj[key], err = decodeValue(d, dc); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func decodeSnapshot(d *Decoder, dc *depthContext) (mixed.Snapshot, error) {
	values, err := decodeObject(d, dc)
	if err != nil {
		return mixed.Snapshot{}, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return mixed.Snapshot{}, err
	}
	var refs []mixed.CallbackRef
	if count > 0 {
		refs = make([]mixed.CallbackRef, count)
	}
	for i := range refs {
		if refs[i], err = readCallbackRef(d); err != nil {
			return mixed.Snapshot{}, err
		}
	}
	return mixed.Snapshot{Values: values, Callbacks: refs}, nil
}
