package dbuswire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// newEncoder creates a D-Bus encoder that writes to dst.
// It uses the little-endian byte order this package always emits in
// (see the Non-goal on big-endian emission), and assumes a zero
// offset to start counting written bytes.
func newEncoder(dst *bytes.Buffer) *encoder {
	return &encoder{
		order: binary.LittleEndian,
		dst:   dst,
	}
}

// encoder is stateless except for the write cursor it tracks on dst.
type encoder struct {
	order  binary.ByteOrder
	dst    *bytes.Buffer
	offset uint32
}

// Offset returns the number of bytes written so far.
func (e *encoder) Offset() uint32 { return e.offset }

// Align pads dst with zero bytes until the offset is a multiple of n.
func (e *encoder) Align(n uint32) {
	offset, padding := nextOffset(e.offset, n)
	if padding == 0 {
		return
	}

	e.dst.Write(make([]byte, padding))
	e.offset = offset
}

// Byte encodes D-Bus BYTE.
func (e *encoder) Byte(b byte) {
	e.dst.WriteByte(b)
	e.offset++
}

// Bool encodes D-Bus BOOLEAN, which is wire-represented as a UINT32
// of 0 or 1.
func (e *encoder) Bool(b bool) {
	if b {
		e.Uint32(1)
		return
	}
	e.Uint32(0)
}

// Int16 encodes D-Bus INT16.
func (e *encoder) Int16(v int16) { e.Uint16(uint16(v)) }

// Uint16 encodes D-Bus UINT16.
func (e *encoder) Uint16(v uint16) {
	const size = 2
	e.Align(size)

	b := make([]byte, size)
	e.order.PutUint16(b, v)
	e.dst.Write(b)
	e.offset += size
}

// Int32 encodes D-Bus INT32.
func (e *encoder) Int32(v int32) { e.Uint32(uint32(v)) }

// Uint32 encodes D-Bus UINT32.
func (e *encoder) Uint32(v uint32) {
	const size = 4
	e.Align(size)

	b := make([]byte, size)
	e.order.PutUint32(b, v)
	e.dst.Write(b)
	// 4 bytes were written because uint32 takes 4 bytes.
	e.offset += size
}

// Int64 encodes D-Bus INT64.
func (e *encoder) Int64(v int64) { e.Uint64(uint64(v)) }

// Uint64 encodes D-Bus UINT64.
func (e *encoder) Uint64(v uint64) {
	const size = 8
	e.Align(size)

	b := make([]byte, size)
	e.order.PutUint64(b, v)
	e.dst.Write(b)
	e.offset += size
}

// Double encodes D-Bus DOUBLE.
func (e *encoder) Double(v float64) { e.Uint64(math.Float64bits(v)) }

// String encodes D-Bus STRING or OBJECT_PATH: a uint32 length
// (excluding the terminating NUL), the bytes, then a NUL byte.
func (e *encoder) String(s string) {
	e.Uint32(uint32(len(s)))
	e.dst.WriteString(s)
	// Account for a null byte at the end of the string.
	e.dst.WriteByte(0)
	e.offset += uint32(len(s) + 1)
}

// ObjectPath encodes D-Bus OBJECT_PATH, which is wire-identical to
// STRING.
func (e *encoder) ObjectPath(p ObjectPath) { e.String(string(p)) }

// Signature encodes D-Bus SIGNATURE, which is the same as STRING
// except the length is a single byte (thus signatures have a maximum
// length of 255).
func (e *encoder) Signature(s string) {
	e.Byte(byte(len(s)))
	e.dst.WriteString(s)
	// Account for a null byte at the end of the string.
	e.dst.WriteByte(0)
	e.offset += uint32(len(s) + 1)
}

// Uint32At back-patches a uint32 already written at byteOffset. It
// operates on dst's backing array directly rather than a pointer,
// since bytes.Buffer may relocate its storage as it grows; any growth
// after this call copies the patched bytes along with the rest, so
// the patch survives.
func (e *encoder) Uint32At(v, byteOffset uint32) error {
	b := e.dst.Bytes()
	if int(byteOffset)+4 > len(b) {
		return fmt.Errorf("dbuswire: backpatch offset %d out of range (buffer is %d bytes)", byteOffset, len(b))
	}
	e.order.PutUint32(b[byteOffset:byteOffset+4], v)
	return nil
}

// insertBasic encodes a single basic (non-container) value of type t,
// or a nested variant when t is TypeVariant.
func (e *encoder) insertBasic(t TypeCode, v any) error {
	switch t {
	case TypeByte:
		b, ok := v.(byte)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Byte(b)
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Bool(b)
	case TypeInt16:
		n, ok := v.(int16)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Int16(n)
	case TypeUint16:
		n, ok := v.(uint16)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Uint16(n)
	case TypeInt32:
		n, ok := v.(int32)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Int32(n)
	case TypeUint32:
		n, ok := v.(uint32)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Uint32(n)
	case TypeInt64:
		n, ok := v.(int64)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Int64(n)
	case TypeUint64:
		n, ok := v.(uint64)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Uint64(n)
	case TypeDouble:
		f, ok := v.(float64)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Double(f)
	case TypeString:
		s, ok := v.(string)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.String(s)
	case TypePath:
		p, ok := v.(ObjectPath)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.ObjectPath(p)
	case TypeSignature:
		s, ok := v.(Signature)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		e.Signature(string(s))
	case TypeVariant:
		inner, ok := v.(Variant)
		if !ok {
			return typeAssertError(t, "insertBasic")
		}
		return e.insertVariant(inner)
	default:
		return &UnsupportedTypeError{Context: "insertBasic", Code: t}
	}
	return nil
}

// insertVariant encodes a variant as its signature followed by its
// value.
func (e *encoder) insertVariant(v Variant) error {
	sig := v.Signature()
	e.Signature(sig)

	if v.typ == TypeArray {
		arr, _ := v.payload.([]Variant)
		return e.insertArray(v.elemSig, arr)
	}
	return e.insertBasic(v.typ, v.payload)
}

// insertArray encodes an array whose elements share elemSig: a
// back-patched uint32 byte length, padding to the element's
// alignment, then each element in turn.
func (e *encoder) insertArray(elemSig string, elems []Variant) error {
	if len(elemSig) == 0 {
		return &UnsupportedTypeError{Context: "insertArray", Code: TypeArray}
	}
	elemCode := TypeCode(elemSig[0])

	e.Align(4)
	lenOffset := e.Offset()
	e.Uint32(0)
	e.Align(AlignmentOf(elemCode))
	start := e.Offset()

	for _, el := range elems {
		if elemCode == TypeVariant {
			if err := e.insertVariant(el); err != nil {
				return err
			}
			continue
		}
		if err := e.insertBasic(elemCode, el.payload); err != nil {
			return err
		}
	}

	length := e.Offset() - start
	return e.Uint32At(length, lenOffset)
}

func typeAssertError(t TypeCode, context string) error {
	return &UnsupportedTypeError{Context: context, Code: t}
}

// nextOffset returns the next byte position and the padding needed to
// reach it given the current offset and an alignment requirement.
func nextOffset(current, align uint32) (next, padding uint32) {
	if current%align == 0 {
		return current, 0
	}
	next = (current + align - 1) &^ (align - 1)
	padding = next - current
	return next, padding
}
