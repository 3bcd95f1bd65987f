package dbuswire

import (
	"bytes"
	"testing"
)

func TestEncoderAlignment(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)

	e.Byte(1)
	e.Uint32(42) // must pad 3 bytes before the uint32
	if e.Offset() != 8 {
		t.Fatalf("offset = %d, want 8", e.Offset())
	}
	if buf.Len() != 8 {
		t.Fatalf("buf.Len() = %d, want 8", buf.Len())
	}

	got := buf.Bytes()
	if got[0] != 1 || got[1] != 0 || got[2] != 0 || got[3] != 0 {
		t.Fatalf("padding bytes = % x, want 00 00 00 after the byte", got[:4])
	}
}

func TestEncoderUint32At(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)

	e.Uint32(0) // placeholder
	e.String("abc")

	if err := e.Uint32At(uint32(buf.Len()), 0); err != nil {
		t.Fatal(err)
	}

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	patched, err := d.Uint32()
	if err != nil {
		t.Fatal(err)
	}
	if patched != uint32(buf.Len()) {
		t.Errorf("patched length = %d, want %d", patched, buf.Len())
	}
}

func TestEncoderUint32AtOutOfRange(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)
	e.Byte(1)

	if err := e.Uint32At(0, 10); err == nil {
		t.Fatal("expected an out-of-range error")
	}
}

func TestInsertVariantArrayRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	e := newEncoder(&buf)

	v := NewArrayVariant("s", []Variant{
		VariantFrom("foo"),
		VariantFrom("bar"),
	})
	if err := e.insertVariant(v); err != nil {
		t.Fatal(err)
	}

	d := newDecoder(bytes.NewReader(buf.Bytes()))
	got, err := d.extractVariant()
	if err != nil {
		t.Fatal(err)
	}
	if got.Signature() != "as" {
		t.Errorf("signature = %q, want %q", got.Signature(), "as")
	}
	arr, err := As[[]Variant](got)
	if err != nil {
		t.Fatal(err)
	}
	if len(arr) != 2 {
		t.Fatalf("len(arr) = %d, want 2", len(arr))
	}
	s0, _ := As[string](arr[0])
	s1, _ := As[string](arr[1])
	if s0 != "foo" || s1 != "bar" {
		t.Errorf("elements = %q, %q, want foo, bar", s0, s1)
	}
}
