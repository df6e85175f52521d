package schema

import "testing"

func TestValueKindsAndAccessors(t *testing.T) {
	if b, ok := Bool(true).Bool(); !ok || !b {
		t.Fatal("bool accessor failed")
	}
	if i, ok := Int(-42).Int(); !ok || i != -42 {
		t.Fatal("int accessor failed")
	}
	if u, ok := Uint(42).Uint(); !ok || u != 42 {
		t.Fatal("uint accessor failed")
	}
	if n, ok := Number(3.3).Number(); !ok || n != 3.3 {
		t.Fatal("number accessor failed")
	}
	if s, ok := String("hi").Str(); !ok || s != "hi" {
		t.Fatal("string accessor failed")
	}
	if !Null().IsNull() {
		t.Fatal("null accessor failed")
	}

	// Accessors are strict about kind.
	if _, ok := Int(1).Uint(); ok {
		t.Fatal("int must not read as uint")
	}
}

func TestEnumValueKnownAndUnknown(t *testing.T) {
	name, value, known, ok := Enum("CONDITION_NOMINAL", 1).Enum()
	if !ok || !known || name != "CONDITION_NOMINAL" || value != 1 {
		t.Fatalf("unexpected known enum: %q %d %v", name, value, known)
	}

	name, value, known, ok = UnknownEnum(99).Enum()
	if !ok || known || name != "" || value != 99 {
		t.Fatalf("unexpected unknown enum: %q %d %v", name, value, known)
	}
}

func TestStructFieldDistinguishesNullFromAbsent(t *testing.T) {
	v := Struct(map[uint32]Value{
		1: Null(),
	})

	explicit, present := v.Field(1)
	if !present || !explicit.IsNull() {
		t.Fatal("explicit null should be present and null")
	}

	if _, present := v.Field(2); present {
		t.Fatal("absent field should not be present")
	}
}

func TestValueEqual(t *testing.T) {
	a := Struct(map[uint32]Value{
		1: Number(10.001),
		2: String("x"),
		3: Map([]MapEntry{{Key: Uint(1), Val: Bool(true)}}),
	})
	b := Struct(map[uint32]Value{
		1: Number(10.001),
		2: String("x"),
		3: Map([]MapEntry{{Key: Uint(1), Val: Bool(true)}}),
	})
	if !a.Equal(b) {
		t.Fatal("expected deep equality")
	}

	c := Struct(map[uint32]Value{1: Number(10.002)})
	if a.Equal(c) {
		t.Fatal("expected inequality")
	}
	if Bool(true).Equal(Int(1)) {
		t.Fatal("different kinds must not be equal")
	}
	if !Bytes([]byte{1, 2}).Equal(Bytes([]byte{1, 2})) {
		t.Fatal("byte equality failed")
	}
	if Enum("A", 1).Equal(UnknownEnum(1)) {
		t.Fatal("known and unknown enum must differ")
	}
}
