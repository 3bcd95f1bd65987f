package dbuswire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// newDecoder creates a D-Bus decoder that reads from src.
// By default it expects the little-endian byte order and assumes a
// zero offset to start counting bytes read from src; SetOrder
// switches it once the header's endianness byte is known.
func newDecoder(src io.Reader) *decoder {
	return &decoder{
		order: binary.LittleEndian,
		src:   src,
	}
}

// decoder is stateless except for the read cursor it tracks on src.
type decoder struct {
	order  binary.ByteOrder
	src    io.Reader
	offset uint32
}

// Reset points the decoder at a new source with a zero offset.
func (d *decoder) Reset(src io.Reader) {
	d.src = src
	d.offset = 0
}

// SetOrder sets the byte order used to decode multi-byte integers.
func (d *decoder) SetOrder(order binary.ByteOrder) {
	d.order = order
}

// Offset returns the number of bytes consumed so far.
func (d *decoder) Offset() uint32 { return d.offset }

// SetOffset overrides the tracked offset used for alignment. It
// doesn't seek src; it's for resuming decoding of a buffer whose
// start isn't the message start (e.g. the body, which begins at a
// fresh zero offset for alignment purposes per the D-Bus spec).
func (d *decoder) SetOffset(offset uint32) {
	d.offset = offset
}

// Align advances past the alignment padding preceding the next value
// of alignment n.
func (d *decoder) Align(n uint32) error {
	offset, padding := nextOffset(d.offset, n)
	if padding == 0 {
		return nil
	}

	if _, err := d.ReadN(padding); err != nil {
		return fmt.Errorf("align to %d: %w", n, err)
	}
	d.offset = offset
	return nil
}

// ReadN reads exactly n raw bytes with no alignment, advancing the
// offset. A short read is reported as ErrShortRead rather than the
// underlying io.ErrUnexpectedEOF, so callers can classify it per the
// spec's error taxonomy.
func (d *decoder) ReadN(n uint32) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	b := make([]byte, n)
	got, err := io.ReadFull(d.src, b)
	if err != nil {
		return nil, &ShortReadError{Context: "ReadN", Want: n, Got: uint32(got)}
	}
	d.offset += n
	return b, nil
}

// Byte decodes D-Bus BYTE.
func (d *decoder) Byte() (byte, error) {
	b, err := d.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Bool decodes D-Bus BOOLEAN, wire-represented as a UINT32 of 0 or 1;
// any nonzero value is treated as true.
func (d *decoder) Bool() (bool, error) {
	u, err := d.Uint32()
	if err != nil {
		return false, err
	}
	return u != 0, nil
}

// Int16 decodes D-Bus INT16.
func (d *decoder) Int16() (int16, error) {
	u, err := d.Uint16()
	return int16(u), err
}

// Uint16 decodes D-Bus UINT16.
func (d *decoder) Uint16() (uint16, error) {
	if err := d.Align(2); err != nil {
		return 0, err
	}
	b, err := d.ReadN(2)
	if err != nil {
		return 0, err
	}
	return d.order.Uint16(b), nil
}

// Int32 decodes D-Bus INT32.
func (d *decoder) Int32() (int32, error) {
	u, err := d.Uint32()
	return int32(u), err
}

// Uint32 decodes D-Bus UINT32.
func (d *decoder) Uint32() (uint32, error) {
	if err := d.Align(4); err != nil {
		return 0, err
	}
	b, err := d.ReadN(4)
	if err != nil {
		return 0, err
	}
	return d.order.Uint32(b), nil
}

// Int64 decodes D-Bus INT64.
func (d *decoder) Int64() (int64, error) {
	u, err := d.Uint64()
	return int64(u), err
}

// Uint64 decodes D-Bus UINT64.
func (d *decoder) Uint64() (uint64, error) {
	if err := d.Align(8); err != nil {
		return 0, err
	}
	b, err := d.ReadN(8)
	if err != nil {
		return 0, err
	}
	return d.order.Uint64(b), nil
}

// Double decodes D-Bus DOUBLE.
func (d *decoder) Double() (float64, error) {
	u, err := d.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// String decodes D-Bus STRING or OBJECT_PATH: a uint32 length, the
// bytes, then a terminating NUL that is consumed but not returned.
func (d *decoder) String() (string, error) {
	strLen, err := d.Uint32()
	if err != nil {
		return "", err
	}
	// Account for the NUL byte at the end of the string.
	b, err := d.ReadN(strLen + 1)
	if err != nil {
		return "", err
	}
	return string(b[:strLen]), nil
}

// ObjectPath decodes D-Bus OBJECT_PATH, which is wire-identical to
// STRING.
func (d *decoder) ObjectPath() (ObjectPath, error) {
	s, err := d.String()
	return ObjectPath(s), err
}

// Signature decodes D-Bus SIGNATURE: a single uint8 length, the
// bytes, then a terminating NUL.
func (d *decoder) Signature() (string, error) {
	strLen, err := d.Byte()
	if err != nil {
		return "", err
	}
	b, err := d.ReadN(uint32(strLen) + 1)
	if err != nil {
		return "", err
	}
	return string(b[:strLen]), nil
}

// extractBasic decodes a single basic (non-container) value of type
// t, or a nested variant when t is TypeVariant.
func (d *decoder) extractBasic(t TypeCode) (any, error) {
	switch t {
	case TypeByte:
		return d.Byte()
	case TypeBoolean:
		return d.Bool()
	case TypeInt16:
		return d.Int16()
	case TypeUint16:
		return d.Uint16()
	case TypeInt32:
		return d.Int32()
	case TypeUint32:
		return d.Uint32()
	case TypeInt64:
		return d.Int64()
	case TypeUint64:
		return d.Uint64()
	case TypeDouble:
		return d.Double()
	case TypeString:
		return d.String()
	case TypePath:
		return d.ObjectPath()
	case TypeSignature:
		s, err := d.Signature()
		return Signature(s), err
	case TypeVariant:
		return d.extractVariant()
	default:
		return nil, &UnsupportedTypeError{Context: "extractBasic", Code: t}
	}
}

// extractVariant decodes a variant: its embedded signature (which
// must describe exactly one complete type), then the value that
// signature names, recursing for nested arrays or variants.
func (d *decoder) extractVariant() (Variant, error) {
	sig, err := d.Signature()
	if err != nil {
		return Variant{}, err
	}
	if len(sig) == 0 {
		return Variant{}, fmt.Errorf("%w: variant has empty signature", ErrMalformed)
	}

	code := TypeCode(sig[0])
	if code == TypeArray {
		elemSig := sig[1:]
		if len(elemSig) == 0 {
			return Variant{}, fmt.Errorf("%w: array signature missing element type", ErrMalformed)
		}
		elems, err := d.extractArray(elemSig)
		if err != nil {
			return Variant{}, err
		}
		return Variant{typ: TypeArray, elemSig: elemSig, payload: elems}, nil
	}

	val, err := d.extractBasic(code)
	if err != nil {
		return Variant{}, err
	}
	return Variant{typ: code, payload: val}, nil
}

// extractArray decodes an array of elements described by elemSig: a
// uint32 byte length, padding to the element's alignment, then
// elements until the declared length is consumed.
func (d *decoder) extractArray(elemSig string) ([]Variant, error) {
	length, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	elemCode := TypeCode(elemSig[0])
	if err := d.Align(AlignmentOf(elemCode)); err != nil {
		return nil, err
	}

	end := d.offset + length
	var out []Variant
	for d.offset < end {
		if elemCode == TypeVariant {
			v, err := d.extractVariant()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		val, err := d.extractBasic(elemCode)
		if err != nil {
			return nil, err
		}
		out = append(out, Variant{typ: elemCode, payload: val})
	}
	if d.offset != end {
		return nil, fmt.Errorf("%w: array elements overran declared length", ErrMalformed)
	}
	return out, nil
}
