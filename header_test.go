package dbuswire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeFixedHeader(t *testing.T) {
	// byte order 'l', type METHOD_RETURN, flags 1, version 1,
	// body length 8, serial 2263.
	raw := []byte{'l', 2, 1, 1, 8, 0, 0, 0, 0xd7, 8, 0, 0}
	d := newDecoder(bytes.NewReader(raw))

	var h Header
	if err := decodeFixedHeader(d, &h); err != nil {
		t.Fatal(err)
	}

	want := Header{
		ByteOrder: littleEndian,
		Type:      MessageMethodReturn,
		Flags:     1,
		Version:   1,
		BodyLen:   8,
		Serial:    2263,
	}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Errorf("decodeFixedHeader() mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFixedHeaderBigEndianUnsupported(t *testing.T) {
	raw := []byte{'B', 2, 0, 1, 0, 0, 0, 0, 0, 0, 0, 1}
	d := newDecoder(bytes.NewReader(raw))

	var h Header
	err := decodeFixedHeader(d, &h)
	if err == nil {
		t.Fatal("expected an error for a big-endian header")
	}
	if !errors.Is(err, ErrUnsupportedBus) {
		t.Errorf("decodeFixedHeader() error = %v, want ErrUnsupportedBus", err)
	}
}

func TestHeaderFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)
	e.Byte('l')
	e.Byte(1)
	e.Byte(0)
	e.Byte(1)
	e.Uint32(0)
	e.Uint32(7)
	e.Uint32(0) // fields length placeholder, unused by this test

	if err := encodeHeaderField(e, FieldMember, VariantFrom("Hello")); err != nil {
		t.Fatal(err)
	}

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	var h Header
	if err := decodeFixedHeader(d, &h); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Uint32(); err != nil { // fields length, unused here
		t.Fatal(err)
	}

	code, v, err := decodeHeaderField(d)
	if err != nil {
		t.Fatal(err)
	}
	if code != FieldMember {
		t.Errorf("field code = %s, want MEMBER", code)
	}
	got, err := As[string](v)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Hello" {
		t.Errorf("field value = %q, want %q", got, "Hello")
	}
}

