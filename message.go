package dbuswire

import (
	"bytes"
	"fmt"
	"sync/atomic"
)

// globalSerial is the process-wide monotonic counter PrepareCall
// draws from. It starts at 0 so the first call returns serial 1.
var globalSerial uint32

// nextSerial returns the next call serial. It's safe for concurrent
// use even though a single Connection isn't, since the counter is
// shared by every Connection in the process (the spec's "Shared
// resources: the process-wide serial counter is the only
// cross-instance state").
func nextSerial() uint32 {
	return atomic.AddUint32(&globalSerial, 1)
}

// Message owns a header, a field dictionary, a signature, and a body
// buffer. Callers build one with PrepareCall/PrepareReturn/PrepareError
// followed by zero or more AddArgument/AddDict calls, then hand it to
// Connection.Send. A Message returned by Connection.Recv is decoded
// and ready for ExtractArgument/ExtractDict calls in signature order.
type Message struct {
	header Header

	fields     map[FieldCode]Variant
	fieldOrder []FieldCode // caller-stable encoding order

	signature string // outbound signature, built as arguments are added

	body bytes.Buffer
	enc  *encoder // non-nil while building outbound arguments
	dec  *decoder // non-nil while extracting a received message's body

	sigPos int // index into signature consumed so far by ExtractArgument
}

func (m *Message) reset(kind MessageType) {
	m.header = Header{ByteOrder: littleEndian, Type: kind, Version: 1, Serial: nextSerial()}
	m.fields = make(map[FieldCode]Variant)
	m.fieldOrder = m.fieldOrder[:0]
	m.signature = ""
	m.body.Reset()
	m.enc = newEncoder(&m.body)
	m.dec = nil
	m.sigPos = 0
}

func (m *Message) setField(code FieldCode, v Variant) {
	if m.fields == nil {
		m.fields = make(map[FieldCode]Variant)
	}
	if _, exists := m.fields[code]; !exists {
		m.fieldOrder = append(m.fieldOrder, code)
	}
	m.fields[code] = v
}

// PrepareCall resets m into a METHOD_CALL addressed at destination,
// path, interface and member, and returns the serial assigned to it.
// Fields are populated in DESTINATION, PATH, INTERFACE, MEMBER order;
// destination and interface are omitted when empty, since only PATH
// and MEMBER are required for a method call.
func (m *Message) PrepareCall(destination, path, iface, member string) uint32 {
	m.reset(MessageMethodCall)
	if destination != "" {
		m.setField(FieldDestination, VariantFrom(destination))
	}
	m.setField(FieldPath, VariantFrom(ObjectPath(path)))
	if iface != "" {
		m.setField(FieldInterface, VariantFrom(iface))
	}
	m.setField(FieldMember, VariantFrom(member))
	return m.header.Serial
}

// PrepareReturn resets m into a METHOD_RETURN replying to replySerial.
func (m *Message) PrepareReturn(replySerial uint32) uint32 {
	m.reset(MessageMethodReturn)
	m.setField(FieldReplySerial, VariantFrom(replySerial))
	return m.header.Serial
}

// PrepareError resets m into an ERROR reply named name for
// replySerial.
func (m *Message) PrepareError(replySerial uint32, name string) uint32 {
	m.reset(MessageError)
	m.setField(FieldErrorName, VariantFrom(name))
	m.setField(FieldReplySerial, VariantFrom(replySerial))
	return m.header.Serial
}

// Serial returns the serial assigned when m was prepared.
func (m *Message) Serial() uint32 { return m.header.Serial }

// Signature returns the body signature accumulated so far (outbound)
// or decoded from the SIGNATURE header field (inbound).
func (m *Message) Signature() string { return m.signature }

// IsReply reports whether m is a METHOD_RETURN.
func (m *Message) IsReply() bool { return m.header.Type == MessageMethodReturn }

// IsError reports whether m is an ERROR.
func (m *Message) IsError() bool { return m.header.Type == MessageError }

// IsSignal reports whether m is a SIGNAL.
func (m *Message) IsSignal() bool { return m.header.Type == MessageSignal }

// ReplySerial returns the REPLY_SERIAL field, or an error if absent.
func (m *Message) ReplySerial() (uint32, error) {
	v, ok := m.fields[FieldReplySerial]
	if !ok {
		return 0, &MissingFieldError{Kind: m.header.Type, Field: FieldReplySerial}
	}
	return As[uint32](v)
}

// ErrorName returns the ERROR_NAME field, or an error if absent.
func (m *Message) ErrorName() (string, error) {
	v, ok := m.fields[FieldErrorName]
	if !ok {
		return "", &MissingFieldError{Kind: m.header.Type, Field: FieldErrorName}
	}
	return As[string](v)
}

// Path returns the PATH field, or an error if absent.
func (m *Message) Path() (ObjectPath, error) {
	v, ok := m.fields[FieldPath]
	if !ok {
		return "", &MissingFieldError{Kind: m.header.Type, Field: FieldPath}
	}
	return As[ObjectPath](v)
}

// Interface returns the INTERFACE field, or an error if absent.
func (m *Message) Interface() (string, error) {
	v, ok := m.fields[FieldInterface]
	if !ok {
		return "", &MissingFieldError{Kind: m.header.Type, Field: FieldInterface}
	}
	return As[string](v)
}

// Member returns the MEMBER field, or an error if absent.
func (m *Message) Member() (string, error) {
	v, ok := m.fields[FieldMember]
	if !ok {
		return "", &MissingFieldError{Kind: m.header.Type, Field: FieldMember}
	}
	return As[string](v)
}

// requiredFields returns the header fields a message of kind must
// carry, per the spec's required-field table.
func requiredFields(kind MessageType) []FieldCode {
	switch kind {
	case MessageMethodCall:
		return []FieldCode{FieldPath, FieldMember}
	case MessageMethodReturn:
		return []FieldCode{FieldReplySerial}
	case MessageError:
		return []FieldCode{FieldErrorName, FieldReplySerial}
	case MessageSignal:
		return []FieldCode{FieldPath, FieldInterface, FieldMember}
	default:
		return nil
	}
}

// checkRequiredFields reports the first required field missing for
// m's kind, if any.
func (m *Message) checkRequiredFields() error {
	for _, code := range requiredFields(m.header.Type) {
		if _, ok := m.fields[code]; !ok {
			return &MissingFieldError{Kind: m.header.Type, Field: code}
		}
	}
	return nil
}

// AddArgument appends value's type code to the outbound signature and
// encodes it into the body at the proper alignment. T must be one of
// the native types TypeOf recognizes; otherwise AddArgument returns
// an UnsupportedTypeError.
func AddArgument[T any](m *Message, value T) error {
	code := TypeOf[T]()
	if code == TypeUnknown {
		return &UnsupportedTypeError{Context: "AddArgument"}
	}
	if m.enc == nil {
		m.enc = newEncoder(&m.body)
	}

	if code == TypeArray {
		arr, _ := any(value).([]Variant)
		if err := m.enc.insertArray("v", arr); err != nil {
			return fmt.Errorf("AddArgument: %w", err)
		}
		m.signature += "av"
		return nil
	}

	if err := m.enc.insertBasic(code, any(value)); err != nil {
		return fmt.Errorf("AddArgument: %w", err)
	}
	m.signature += string(byte(code))
	return nil
}

// AddDict appends "a{KV}" to the signature and encodes entries as a
// length-prefixed array of 8-byte-aligned dict entries, back-patching
// the length once every entry is written. K and V must each be one of
// the native basic types TypeOf recognizes.
func AddDict[K comparable, V any](m *Message, entries map[K]V) error {
	kCode, vCode := TypeOf[K](), TypeOf[V]()
	if kCode == TypeUnknown || kCode == TypeArray {
		return &UnsupportedTypeError{Context: "AddDict key", Code: kCode}
	}
	if vCode == TypeUnknown {
		return &UnsupportedTypeError{Context: "AddDict value", Code: vCode}
	}
	if m.enc == nil {
		m.enc = newEncoder(&m.body)
	}

	m.enc.Align(4)
	lenOffset := m.enc.Offset()
	m.enc.Uint32(0)
	m.enc.Align(8)
	start := m.enc.Offset()

	for k, v := range entries {
		m.enc.Align(8)
		if err := m.enc.insertBasic(kCode, any(k)); err != nil {
			return fmt.Errorf("AddDict key: %w", err)
		}
		if vCode == TypeVariant {
			if err := m.enc.insertVariant(any(v).(Variant)); err != nil {
				return fmt.Errorf("AddDict value: %w", err)
			}
		} else if err := m.enc.insertBasic(vCode, any(v)); err != nil {
			return fmt.Errorf("AddDict value: %w", err)
		}
	}

	length := m.enc.Offset() - start
	if err := m.enc.Uint32At(length, lenOffset); err != nil {
		return fmt.Errorf("AddDict: %w", err)
	}
	m.signature += "a{" + string(byte(kCode)) + string(byte(vCode)) + "}"
	return nil
}

// ExtractArgument checks that the next signature code matches T, then
// decodes one value from the body into out and advances the
// signature cursor.
func ExtractArgument[T any](m *Message, out *T) error {
	want := TypeOf[T]()
	if want == TypeUnknown {
		return &UnsupportedTypeError{Context: "ExtractArgument"}
	}
	if m.dec == nil {
		return fmt.Errorf("%w: message has no decoded body to extract from", ErrMalformed)
	}
	if m.sigPos >= len(m.signature) {
		return &WrongSignatureError{Context: "ExtractArgument", Expected: want, Actual: TypeInvalid}
	}

	got := TypeCode(m.signature[m.sigPos])
	if got != want {
		return &WrongSignatureError{Context: "ExtractArgument", Expected: want, Actual: got}
	}

	if want == TypeArray {
		if m.sigPos+1 >= len(m.signature) || m.signature[m.sigPos+1] != byte(TypeVariant) {
			return &WrongSignatureError{Context: "ExtractArgument", Expected: want, Actual: got}
		}
		arr, err := m.dec.extractArray("v")
		if err != nil {
			return fmt.Errorf("ExtractArgument: %w", err)
		}
		v, ok := any(arr).(T)
		if !ok {
			return &WrongSignatureError{Context: "ExtractArgument", Expected: want, Actual: got}
		}
		*out = v
		m.sigPos += 2
		return nil
	}

	val, err := m.dec.extractBasic(want)
	if err != nil {
		return fmt.Errorf("ExtractArgument: %w", err)
	}
	v, ok := val.(T)
	if !ok {
		return &WrongSignatureError{Context: "ExtractArgument", Expected: want, Actual: got}
	}
	*out = v
	m.sigPos++
	return nil
}

// ExtractDict reads an "a{KV}" argument into out, aligning to 8
// before each entry as the wire format requires.
func ExtractDict[K comparable, V any](m *Message, out map[K]V) error {
	kCode, vCode := TypeOf[K](), TypeOf[V]()
	wantSig := "a{" + string(byte(kCode)) + string(byte(vCode)) + "}"
	if m.dec == nil {
		return fmt.Errorf("%w: message has no decoded body to extract from", ErrMalformed)
	}
	if m.sigPos+len(wantSig) > len(m.signature) || m.signature[m.sigPos:m.sigPos+len(wantSig)] != wantSig {
		return &WrongSignatureError{Context: "ExtractDict", Expected: TypeDictBegin, Actual: TypeCode(m.signature[m.sigPos])}
	}

	length, err := m.dec.Uint32()
	if err != nil {
		return fmt.Errorf("ExtractDict length: %w", err)
	}
	if err := m.dec.Align(8); err != nil {
		return fmt.Errorf("ExtractDict: %w", err)
	}
	start := m.dec.Offset()
	end := start + length

	for m.dec.Offset() < end {
		if err := m.dec.Align(8); err != nil {
			return fmt.Errorf("ExtractDict entry: %w", err)
		}
		kVal, err := m.dec.extractBasic(kCode)
		if err != nil {
			return fmt.Errorf("ExtractDict key: %w", err)
		}
		var vVal any
		if vCode == TypeVariant {
			vVal, err = m.dec.extractVariant()
		} else {
			vVal, err = m.dec.extractBasic(vCode)
		}
		if err != nil {
			return fmt.Errorf("ExtractDict value: %w", err)
		}
		k, ok := kVal.(K)
		if !ok {
			return &WrongSignatureError{Context: "ExtractDict key", Expected: kCode, Actual: kCode}
		}
		v, ok := vVal.(V)
		if !ok {
			return &WrongSignatureError{Context: "ExtractDict value", Expected: vCode, Actual: vCode}
		}
		out[k] = v
	}
	m.sigPos += len(wantSig)
	return nil
}

// Serialize produces the wire bytes for m: the fixed header, the
// back-patched fields-array length, the field entries in their
// caller-stable order, padding to an 8-byte boundary, then the body.
// If the body is non-empty and no SIGNATURE field was set, one is
// added from the accumulated outbound signature.
func (m *Message) Serialize() ([]byte, error) {
	if m.body.Len() > 0 {
		if _, ok := m.fields[FieldSignature]; !ok {
			m.setField(FieldSignature, VariantFrom(Signature(m.signature)))
		}
	}
	if err := m.checkRequiredFields(); err != nil {
		return nil, err
	}
	if uint32(m.body.Len()) > maxMessageSize {
		return nil, fmt.Errorf("%w: message exceeds the maximum length: %d/%d bytes", ErrMalformed, m.body.Len(), maxMessageSize)
	}

	var scratch bytes.Buffer
	e := newEncoder(&scratch)

	e.Byte(m.header.ByteOrder)
	e.Byte(byte(m.header.Type))
	e.Byte(m.header.Flags)
	e.Byte(m.header.Version)
	const bodyLenOffset = 4
	e.Uint32(0) // body length placeholder, back-patched below
	e.Uint32(m.header.Serial)
	fieldsLenOffset := e.Offset()
	e.Uint32(0) // fields length placeholder, back-patched below
	fieldsStart := e.Offset()

	for _, code := range m.fieldOrder {
		if err := encodeHeaderField(e, code, m.fields[code]); err != nil {
			return nil, err
		}
	}

	fieldsLen := e.Offset() - fieldsStart
	if err := e.Uint32At(fieldsLen, fieldsLenOffset); err != nil {
		return nil, err
	}
	// The header (prologue + fields) ends on an 8-byte boundary so the
	// body can start aligned.
	e.Align(8)
	if err := e.Uint32At(uint32(m.body.Len()), bodyLenOffset); err != nil {
		return nil, err
	}

	scratch.Write(m.body.Bytes())
	return scratch.Bytes(), nil
}

// decodeBody finishes decoding m after its header fields have been
// read: it records the body signature (if any) and points m's decoder
// at body, ready for ExtractArgument/ExtractDict calls in signature
// order.
func (m *Message) decodeBody(body []byte) error {
	if v, ok := m.fields[FieldSignature]; ok {
		sig, err := As[Signature](v)
		if err != nil {
			return fmt.Errorf("decode SIGNATURE field: %w", err)
		}
		m.signature = string(sig)
	} else {
		m.signature = ""
	}
	m.dec = newDecoder(bytes.NewReader(body))
	m.sigPos = 0
	return nil
}
