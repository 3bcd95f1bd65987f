package dbuswire

import "testing"

func TestVariantFromAndAs(t *testing.T) {
	v := VariantFrom(uint32(7))
	if v.Type() != TypeUint32 {
		t.Fatalf("Type() = %s, want UINT32", v.Type())
	}
	got, err := As[uint32](v)
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Errorf("As[uint32]() = %d, want 7", got)
	}
}

func TestAsWrongSignature(t *testing.T) {
	v := VariantFrom("str")
	_, err := As[uint32](v)
	if err == nil {
		t.Fatal("expected a WrongSignatureError")
	}
	wrongSig, ok := err.(*WrongSignatureError)
	if !ok {
		t.Fatalf("error = %v (%T), want *WrongSignatureError", err, err)
	}
	if wrongSig.Expected != TypeUint32 || wrongSig.Actual != TypeString {
		t.Errorf("WrongSignatureError = %+v", wrongSig)
	}
}

func TestSet(t *testing.T) {
	var v Variant
	if err := Set(&v, "hello"); err != nil {
		t.Fatal(err)
	}
	got, err := As[string](v)
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("Set/As = %q, want %q", got, "hello")
	}

	// Reassigning to a different type fully transforms the Variant.
	if err := Set(&v, int32(-3)); err != nil {
		t.Fatal(err)
	}
	if v.Type() != TypeInt32 {
		t.Errorf("Type() after re-Set = %s, want INT32", v.Type())
	}
}

func TestVariantClone(t *testing.T) {
	original := NewArrayVariant("s", []Variant{VariantFrom("a"), VariantFrom("b")})
	clone := original.Clone()

	arr, _ := As[[]Variant](original)
	cloneArr, _ := As[[]Variant](clone)
	arr[0] = VariantFrom("mutated")

	first, _ := As[string](cloneArr[0])
	if first != "a" {
		t.Errorf("clone was affected by mutating the original: got %q", first)
	}
}

func TestVariantTake(t *testing.T) {
	v := VariantFrom(uint32(99))
	p := v.Take()
	if p != uint32(99) {
		t.Errorf("Take() = %v, want 99", p)
	}
	if v.IsValid() {
		t.Error("v should be invalid after Take()")
	}
}
