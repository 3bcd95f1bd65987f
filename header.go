package dbuswire

import "fmt"

// messagePrologueSize is the length, in bytes, of the fixed portion of
// a message header plus the fields-array length field: byte order,
// message type, flags, protocol version (4 bytes), body length
// (4 bytes), serial (4 bytes), fields-array byte length (4 bytes).
const messagePrologueSize = 16

// maxMessageSize is the maximum length of a message (128 MiB),
// including header, header alignment padding, and body.
const maxMessageSize = 134217728

// Header is the fixed part of a message header (the spec's "Header
// (fixed 12 bytes, packed)"). The fields array that follows it on the
// wire is logically part of the message but isn't part of this
// struct; Message owns it as a field map.
type Header struct {
	// ByteOrder is 'l' for little-endian or 'B' for big-endian. Both
	// header and body share this endianness.
	ByteOrder byte
	// Type is the message kind.
	Type MessageType
	// Flags is a bitwise OR of message flags. This package never sets
	// any.
	Flags byte
	// Version is the major protocol version of the sending
	// application; always 1.
	Version byte
	// BodyLen is the length in bytes of the message body.
	BodyLen uint32
	// Serial identifies this message; a reply carries it back in the
	// REPLY_SERIAL header field. Must not be zero.
	Serial uint32
}

// decodeFixedHeader reads the 12-byte fixed header from d. Only 'l'
// and 'B' are recognized byte-order bytes; 'B' is rejected with
// ErrUnsupportedBus since this package doesn't implement big-endian
// decoding (see DESIGN.md's Open Question (c)).
func decodeFixedHeader(d *decoder, h *Header) error {
	b, err := d.ReadN(4)
	if err != nil {
		return fmt.Errorf("header prologue: %w", err)
	}
	h.ByteOrder = b[0]
	switch h.ByteOrder {
	case littleEndian:
		// d already defaults to little-endian.
	case bigEndian:
		return fmt.Errorf("%w: big-endian messages are not supported", ErrUnsupportedBus)
	default:
		return fmt.Errorf("%w: unrecognized byte order %q", ErrMalformed, h.ByteOrder)
	}
	h.Type = MessageType(b[1])
	h.Flags = b[2]
	h.Version = b[3]

	if h.BodyLen, err = d.Uint32(); err != nil {
		return fmt.Errorf("header body length: %w", err)
	}
	if h.Serial, err = d.Uint32(); err != nil {
		return fmt.Errorf("header serial: %w", err)
	}
	if h.BodyLen > maxMessageSize {
		return fmt.Errorf("%w: message exceeds the maximum length: %d/%d bytes", ErrMalformed, h.BodyLen, maxMessageSize)
	}
	return nil
}

// decodeHeaderField decodes one "(yv)" struct from the fields array:
// a field code byte followed by a variant value, aligned to 8 as
// every struct is.
func decodeHeaderField(d *decoder) (FieldCode, Variant, error) {
	if err := d.Align(8); err != nil {
		return 0, Variant{}, fmt.Errorf("header field alignment: %w", err)
	}
	code, err := d.Byte()
	if err != nil {
		return 0, Variant{}, fmt.Errorf("header field code: %w", err)
	}
	v, err := d.extractVariant()
	if err != nil {
		return 0, Variant{}, fmt.Errorf("header field %s value: %w", FieldCode(code), err)
	}
	return FieldCode(code), v, nil
}

// encodeHeaderField encodes one "(yv)" struct: align to 8, the field
// code, then the variant value.
func encodeHeaderField(e *encoder, code FieldCode, v Variant) error {
	e.Align(8)
	e.Byte(byte(code))
	if err := e.insertVariant(v); err != nil {
		return fmt.Errorf("header field %s value: %w", code, err)
	}
	return nil
}
