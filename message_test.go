package dbuswire

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestPrepareCallHelloWireLayout(t *testing.T) {
	var msg Message
	serial := msg.PrepareCall("org.freedesktop.DBus", "/org/freedesktop/DBus", "org.freedesktop.DBus", "Hello")

	b, err := msg.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	wantPrologue := []byte{
		'l', byte(MessageMethodCall), 0, 1,
		0, 0, 0, 0,
	}
	wantPrologue = append(wantPrologue, littleEndianUint32(serial)...)
	if !bytes.Equal(b[:12], wantPrologue) {
		t.Errorf("prologue = % x, want % x", b[:12], wantPrologue)
	}

	fieldsLen := binary.LittleEndian.Uint32(b[12:16])
	if fieldsLen != 110 {
		t.Errorf("fields length = %d, want 110", fieldsLen)
	}

	// Header (16-byte prologue + 110-byte fields array) pads to the
	// next 8-byte boundary, 128, and the body is empty since Hello
	// takes no arguments.
	if len(b) != 128 {
		t.Errorf("total message length = %d, want 128", len(b))
	}
}

func littleEndianUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestMessageSerializeDecodeRoundTrip(t *testing.T) {
	var msg Message
	msg.PrepareCall("", "/org/example/Object", "org.example.Iface", "Method")

	if err := AddArgument(&msg, uint32(42)); err != nil {
		t.Fatal(err)
	}
	if err := AddArgument(&msg, "payload"); err != nil {
		t.Fatal(err)
	}

	b, err := msg.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	// Simulate Connection.Recv's framing by decoding the wire bytes
	// back through the same fixed-header + fields + body steps.
	d := newDecoder(bytes.NewReader(b))
	var decoded Message
	if err := decodeFixedHeader(d, &decoded.header); err != nil {
		t.Fatal(err)
	}
	fieldsLen, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	decoded.fields = make(map[FieldCode]Variant)
	end := messagePrologueSize + fieldsLen
	for d.Offset() < end {
		code, v, err := decodeHeaderField(d)
		if err != nil {
			t.Fatal(err)
		}
		decoded.setField(code, v)
	}

	if err := d.Align(8); err != nil {
		t.Fatal(err)
	}
	body := b[d.Offset():]
	if err := decoded.decodeBody(body); err != nil {
		t.Fatal(err)
	}

	var n uint32
	var s string
	if err := ExtractArgument(&decoded, &n); err != nil {
		t.Fatal(err)
	}
	if err := ExtractArgument(&decoded, &s); err != nil {
		t.Fatal(err)
	}
	if n != 42 || s != "payload" {
		t.Errorf("got (%d, %q), want (42, %q)", n, s, "payload")
	}

	member, err := decoded.Member()
	if err != nil {
		t.Fatal(err)
	}
	if member != "Method" {
		t.Errorf("Member() = %q, want %q", member, "Method")
	}
}

func TestAddDictExtractDictRoundTrip(t *testing.T) {
	var msg Message
	msg.PrepareCall("", "/p", "", "M")

	in := map[string]uint32{"a": 1, "b": 2}
	if err := AddDict(&msg, in); err != nil {
		t.Fatal(err)
	}

	b, err := msg.Serialize()
	if err != nil {
		t.Fatal(err)
	}

	d := newDecoder(bytes.NewReader(b))
	var decoded Message
	if err := decodeFixedHeader(d, &decoded.header); err != nil {
		t.Fatal(err)
	}
	fieldsLen, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	decoded.fields = make(map[FieldCode]Variant)
	end := messagePrologueSize + fieldsLen
	for d.Offset() < end {
		code, v, err := decodeHeaderField(d)
		if err != nil {
			t.Fatal(err)
		}
		decoded.setField(code, v)
	}
	if err := d.Align(8); err != nil {
		t.Fatal(err)
	}
	if err := decoded.decodeBody(b[d.Offset():]); err != nil {
		t.Fatal(err)
	}

	out := make(map[string]uint32)
	if err := ExtractDict(&decoded, out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out["a"] != 1 || out["b"] != 2 {
		t.Errorf("ExtractDict() = %v, want %v", out, in)
	}
}

func TestMissingRequiredFieldOnSerialize(t *testing.T) {
	var msg Message
	msg.reset(MessageMethodCall)
	// No PATH or MEMBER set.

	if _, err := msg.Serialize(); err == nil {
		t.Fatal("expected a missing-field error")
	}
}
