package dbuswire

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Errors from the socket, the handshake and the
// codec wrap one of these, so callers can classify a failure with
// errors.Is without depending on a concrete error type. Two errors
// wrap none of them: the one Connection.Call returns for an ERROR
// reply, and the encoder's back-patch offset range error.
var (
	// ErrIO marks a socket read/write failure. The connection is
	// considered broken once this is returned.
	ErrIO = errors.New("dbuswire: i/o error")
	// ErrTimeout marks a deadline expiring mid-operation. A Timeout
	// during message framing leaves the connection in an ambiguous
	// state; callers should discard it.
	ErrTimeout = errors.New("dbuswire: timeout")
	// ErrAuthRejected marks a terminal SASL rejection. The connection
	// is unusable afterwards.
	ErrAuthRejected = errors.New("dbuswire: authentication rejected")
	// ErrUnsupportedBus marks a bus address or endianness this
	// package doesn't implement.
	ErrUnsupportedBus = errors.New("dbuswire: unsupported bus")
	// ErrWrongSignature marks a mismatch between a requested type and
	// the type the signature or variant actually describes.
	ErrWrongSignature = errors.New("dbuswire: wrong signature")
	// ErrUnsupportedType marks a type code this package can't encode
	// or decode.
	ErrUnsupportedType = errors.New("dbuswire: unsupported type")
	// ErrMissingField marks a required header field absent from a
	// received message.
	ErrMissingField = errors.New("dbuswire: missing header field")
	// ErrShortRead marks a declared length the remaining bytes
	// couldn't satisfy.
	ErrShortRead = errors.New("dbuswire: short read")
	// ErrMalformed marks a message that doesn't parse as valid D-Bus
	// wire data.
	ErrMalformed = errors.New("dbuswire: malformed message")
)

// WrongSignatureError reports that the codec was asked for one type
// but the signature or variant held another.
type WrongSignatureError struct {
	Context  string
	Expected TypeCode
	Actual   TypeCode
}

func (e *WrongSignatureError) Error() string {
	return fmt.Sprintf("%s: expected type %s, got %s", e.Context, e.Expected, e.Actual)
}

func (e *WrongSignatureError) Unwrap() error { return ErrWrongSignature }

// UnsupportedTypeError reports a type code outside the implemented
// set.
type UnsupportedTypeError struct {
	Context string
	Code    TypeCode
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("%s: unsupported type %s (%q)", e.Context, e.Code, byte(e.Code))
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// ShortReadError reports that fewer bytes were available than a
// length prefix declared.
type ShortReadError struct {
	Context string
	Want    uint32
	Got     uint32
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("%s: short read: wanted %d bytes, got %d", e.Context, e.Want, e.Got)
}

func (e *ShortReadError) Unwrap() error { return ErrShortRead }

// MissingFieldError reports that a message of a given kind lacks a
// header field its kind requires.
type MissingFieldError struct {
	Kind  MessageType
	Field FieldCode
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s message missing required field %s", e.Kind, e.Field)
}

func (e *MissingFieldError) Unwrap() error { return ErrMissingField }
