package dbuswire

import "testing"

func TestTypeOf(t *testing.T) {
	if got := TypeOf[uint32](); got != TypeUint32 {
		t.Errorf("TypeOf[uint32]() = %s, want UINT32", got)
	}
	if got := TypeOf[ObjectPath](); got != TypePath {
		t.Errorf("TypeOf[ObjectPath]() = %s, want OBJECT_PATH", got)
	}
	if got := TypeOf[[]Variant](); got != TypeArray {
		t.Errorf("TypeOf[[]Variant]() = %s, want ARRAY", got)
	}
	if got := TypeOf[complex128](); got != TypeUnknown {
		t.Errorf("TypeOf[complex128]() = %s, want UNKNOWN", got)
	}
}

func TestAlignmentOf(t *testing.T) {
	tests := []struct {
		t    TypeCode
		want uint32
	}{
		{TypeByte, 1},
		{TypeInt16, 2},
		{TypeUint32, 4},
		{TypeString, 4},
		{TypeInt64, 8},
		{TypeDouble, 8},
		{TypeVariant, 1},
	}
	for _, tt := range tests {
		if got := AlignmentOf(tt.t); got != tt.want {
			t.Errorf("AlignmentOf(%s) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestNextOffset(t *testing.T) {
	tests := []struct {
		current, align uint32
		wantNext       uint32
		wantPadding    uint32
	}{
		{0, 4, 0, 0},
		{1, 4, 4, 3},
		{4, 4, 4, 0},
		{5, 8, 8, 3},
	}
	for _, tt := range tests {
		next, padding := nextOffset(tt.current, tt.align)
		if next != tt.wantNext || padding != tt.wantPadding {
			t.Errorf("nextOffset(%d, %d) = (%d, %d), want (%d, %d)",
				tt.current, tt.align, next, padding, tt.wantNext, tt.wantPadding)
		}
	}
}
