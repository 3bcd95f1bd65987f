package dbuswire

import (
	"bytes"
	"testing"
)

// TestSignatureYUPadding exercises the classic D-Bus alignment trap: a
// BYTE followed by a UINT32 needs 3 padding bytes before the uint32
// so it lands on a 4-byte boundary.
func TestSignatureYUPadding(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)
	e.Byte(0xff)
	e.Uint32(0xdeadbeef)

	if buf.Len() != 8 {
		t.Fatalf("encoded length = %d, want 8", buf.Len())
	}
	b := buf.Bytes()
	if b[0] != 0xff || b[1] != 0 || b[2] != 0 || b[3] != 0 {
		t.Fatalf("padding bytes = % x, want ff 00 00 00", b[:4])
	}

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	by, err := d.Byte()
	if err != nil {
		t.Fatal(err)
	}
	u, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	if by != 0xff || u != 0xdeadbeef {
		t.Errorf("decoded (%x, %x), want (ff, deadbeef)", by, u)
	}
}

// TestStringRoundTrip checks the length-prefixed, NUL-terminated
// STRING encoding round-trips exactly.
func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)
	e.String("abc")

	// uint32 length (3) + "abc" + NUL = 8 bytes.
	if buf.Len() != 8 {
		t.Fatalf("encoded length = %d, want 8", buf.Len())
	}

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	got, err := d.String()
	if err != nil {
		t.Fatal(err)
	}
	if got != "abc" {
		t.Errorf("String() = %q, want %q", got, "abc")
	}
}

// TestVariantOfStringRoundTrip checks a VARIANT holding a STRING:
// signature "s" followed by the string value.
func TestVariantOfStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)
	if err := e.insertVariant(VariantFrom("hi")); err != nil {
		t.Fatal(err)
	}

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	v, err := d.extractVariant()
	if err != nil {
		t.Fatal(err)
	}
	got, err := As[string](v)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hi" {
		t.Errorf("extracted variant string = %q, want %q", got, "hi")
	}
}

// TestShortReadIsClassified checks a truncated buffer surfaces
// ErrShortRead rather than a raw io error, so callers can classify it.
func TestShortReadIsClassified(t *testing.T) {
	// A STRING claiming length 10 but with only 3 bytes following.
	var buf bytes.Buffer
	e := newEncoder(&buf)
	e.Uint32(10)
	buf.WriteString("abc")

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	if _, err := d.String(); err == nil {
		t.Fatal("expected a short-read error")
	} else if _, ok := err.(*ShortReadError); !ok {
		t.Errorf("error = %v (%T), want *ShortReadError", err, err)
	}
}
