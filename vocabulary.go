package dbuswire

// TypeCode identifies a D-Bus type by its single ASCII signature
// character, e.g. 'y' for BYTE or 'a' for ARRAY.
type TypeCode byte

// Type codes from the D-Bus specification.
const (
	TypeInvalid   TypeCode = 0
	TypeByte      TypeCode = 'y'
	TypeBoolean   TypeCode = 'b'
	TypeInt16     TypeCode = 'n'
	TypeUint16    TypeCode = 'q'
	TypeInt32     TypeCode = 'i'
	TypeUint32    TypeCode = 'u'
	TypeInt64     TypeCode = 'x'
	TypeUint64    TypeCode = 't'
	TypeDouble    TypeCode = 'd'
	TypeString    TypeCode = 's'
	TypePath      TypeCode = 'o'
	TypeSignature TypeCode = 'g'
	TypeUnixFD    TypeCode = 'h'
	TypeArray     TypeCode = 'a'
	TypeVariant   TypeCode = 'v'
	TypeStructBegin TypeCode = '('
	TypeStructEnd   TypeCode = ')'
	TypeDictBegin   TypeCode = '{'
	TypeDictEnd     TypeCode = '}'
	// TypeUnknown marks a Variant that hasn't been assigned a value yet,
	// or a native Go type this package has no mapping for.
	TypeUnknown TypeCode = '~'
)

// ObjectPath is a D-Bus object path. It's a distinct type over string
// so the codec can dispatch on it by type code rather than by the
// underlying string representation.
//
// The D-Bus specification requires object paths to start with '/' and
// forbids a trailing '/' (except for the root path itself). This
// package doesn't enforce that syntax at construction — see
// DESIGN.md's Open Question (b) — a stricter caller can validate
// before handing a path to AddArgument.
type ObjectPath string

// Signature is an ordered sequence of type codes, e.g. "yu" for a BYTE
// followed by a UINT32. It's a distinct type over string for the same
// reason as ObjectPath.
type Signature string

// TypeOf returns the D-Bus type code that corresponds to the native
// Go type T, or TypeUnknown if T has no D-Bus representation.
//
// []Variant is the one supported container type: it always encodes
// as an array of variants ("av"), the self-describing sequence the
// data model uses to represent heterogeneous arrays.
func TypeOf[T any]() TypeCode {
	var zero T
	switch any(zero).(type) {
	case byte:
		return TypeByte
	case bool:
		return TypeBoolean
	case int16:
		return TypeInt16
	case uint16:
		return TypeUint16
	case int32:
		return TypeInt32
	case uint32:
		return TypeUint32
	case int64:
		return TypeInt64
	case uint64:
		return TypeUint64
	case float64:
		return TypeDouble
	case string:
		return TypeString
	case ObjectPath:
		return TypePath
	case Signature:
		return TypeSignature
	case Variant:
		return TypeVariant
	case []Variant:
		return TypeArray
	default:
		return TypeUnknown
	}
}

// AlignmentOf returns the natural alignment, in bytes, of a value of
// the given type measured from the start of the message.
func AlignmentOf(t TypeCode) uint32 {
	switch t {
	case TypeByte, TypeSignature, TypeVariant:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeBoolean, TypeString, TypePath, TypeArray, TypeUnixFD:
		return 4
	case TypeInt64, TypeUint64, TypeDouble, TypeStructBegin, TypeDictBegin:
		return 8
	default:
		return 1
	}
}

// String renders a type code for diagnostics.
func (t TypeCode) String() string {
	switch t {
	case TypeInvalid:
		return "INVALID"
	case TypeByte:
		return "BYTE"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeInt16:
		return "INT16"
	case TypeUint16:
		return "UINT16"
	case TypeInt32:
		return "INT32"
	case TypeUint32:
		return "UINT32"
	case TypeInt64:
		return "INT64"
	case TypeUint64:
		return "UINT64"
	case TypeDouble:
		return "DOUBLE"
	case TypeString:
		return "STRING"
	case TypePath:
		return "OBJECT_PATH"
	case TypeSignature:
		return "SIGNATURE"
	case TypeUnixFD:
		return "UNIX_FD"
	case TypeArray:
		return "ARRAY"
	case TypeVariant:
		return "VARIANT"
	case TypeStructBegin, TypeStructEnd:
		return "STRUCT"
	case TypeDictBegin, TypeDictEnd:
		return "DICT_ENTRY"
	default:
		return "UNKNOWN"
	}
}

// MessageType is the kind of a D-Bus message, carried in the second
// byte of the header.
type MessageType byte

// Message kinds that can appear in a header.
const (
	MessageInvalid      MessageType = 0
	MessageMethodCall   MessageType = 1
	MessageMethodReturn MessageType = 2
	MessageError        MessageType = 3
	MessageSignal       MessageType = 4
)

// String renders a message type for diagnostics.
func (t MessageType) String() string {
	switch t {
	case MessageMethodCall:
		return "METHOD_CALL"
	case MessageMethodReturn:
		return "METHOD_RETURN"
	case MessageError:
		return "ERROR"
	case MessageSignal:
		return "SIGNAL"
	default:
		return "INVALID"
	}
}

// FieldCode identifies a header field.
type FieldCode byte

// Header field codes.
const (
	FieldInvalid FieldCode = 0
	// FieldPath is the object to send a call to, or the object a
	// signal is emitted from.
	FieldPath FieldCode = 1
	// FieldInterface is the interface to invoke a method call on, or
	// that a signal is emitted from. Optional for method calls,
	// required for signals.
	FieldInterface FieldCode = 2
	// FieldMember is the member, either the method name or the signal
	// name.
	FieldMember FieldCode = 3
	// FieldErrorName is the name of the error that occurred.
	FieldErrorName FieldCode = 4
	// FieldReplySerial is the serial number of the message this one
	// replies to.
	FieldReplySerial FieldCode = 5
	// FieldDestination is the name of the connection the message is
	// intended for.
	FieldDestination FieldCode = 6
	// FieldSender is the unique name of the sending connection.
	FieldSender FieldCode = 7
	// FieldSignature is the signature of the message body. If
	// omitted, the body must be empty.
	FieldSignature FieldCode = 8
	// FieldUnixFDs is the number of Unix file descriptors that
	// accompany the message. This package advertises UNIX FD
	// negotiation during SASL but never populates this field (see
	// DESIGN.md's Open Question (d)).
	FieldUnixFDs FieldCode = 9
)

// String renders a field code for diagnostics.
func (f FieldCode) String() string {
	switch f {
	case FieldPath:
		return "PATH"
	case FieldInterface:
		return "INTERFACE"
	case FieldMember:
		return "MEMBER"
	case FieldErrorName:
		return "ERROR_NAME"
	case FieldReplySerial:
		return "REPLY_SERIAL"
	case FieldDestination:
		return "DESTINATION"
	case FieldSender:
		return "SENDER"
	case FieldSignature:
		return "SIGNATURE"
	case FieldUnixFDs:
		return "UNIX_FDS"
	default:
		return "INVALID"
	}
}

const (
	littleEndian byte = 'l'
	bigEndian    byte = 'B'
)
