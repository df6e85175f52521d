package validate

import (
	"errors"
	"math"
	"testing"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
)

func numberProp(min, max, precision float64, width uint8, nullable bool) *schema.PropertyDef {
	return &schema.PropertyDef{
		Tag:      2,
		Name:     "assessed_voltage",
		Type:     schema.TypeNumber,
		Nullable: nullable,
		Number: &schema.NumberConstraints{
			Min: min, Max: max, Precision: precision, Width: width, Signed: min < 0,
		},
	}
}

func assertViolation(t *testing.T, err error, constraint string) *ConstraintViolation {
	t.Helper()
	var cv *ConstraintViolation
	if !errors.As(err, &cv) {
		t.Fatalf("expected ConstraintViolation, got %v", err)
	}
	if cv.Constraint != constraint {
		t.Fatalf("expected %q violation, got %q (%s)", constraint, cv.Constraint, cv.Reason)
	}
	return cv
}

func TestQuantizeRoundsHalfToEven(t *testing.T) {
	// 10.0005 / 0.001 lands on a .5 boundary; half-to-even picks the even
	// scaled integer 10000.
	got := Quantize(10.0005, 0.001)
	want := math.RoundToEven(10.0005/0.001) * 0.001
	if got != want {
		t.Fatalf("quantize mismatch: %v != %v", got, want)
	}
	if math.Abs(got-10.0) > 1e-9 {
		t.Fatalf("expected ~10.000, got %v", got)
	}

	// 2.5 scaled by 1.0 rounds to 2, 3.5 rounds to 4.
	if Quantize(2.5, 1) != 2 || Quantize(3.5, 1) != 4 {
		t.Fatalf("half-to-even broken: %v %v", Quantize(2.5, 1), Quantize(3.5, 1))
	}
}

func TestScaleRejectsWidthOverflow(t *testing.T) {
	nc := &schema.NumberConstraints{Min: 0, Max: 1e9, Precision: 0.001, Width: 16}
	_, err := Scale(nc, "assessed_voltage", 70.0) // 70000 > 65535
	assertViolation(t, err, "width")

	nc.Width = 32
	scaled, err := Scale(nc, "assessed_voltage", 70.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scaled != 70000 {
		t.Fatalf("unexpected scaled value: %d", scaled)
	}
	if got := Unscale(nc, scaled); math.Abs(got-70.0) > 0.001 {
		t.Fatalf("unscale mismatch: %v", got)
	}
}

func TestNumberRangeRejection(t *testing.T) {
	p := numberProp(0, 700, 0.001, 32, false)

	if err := Property(p, schema.Number(700.0)); err != nil {
		t.Fatalf("in-range value rejected: %v", err)
	}
	assertViolation(t, Property(p, schema.Number(700.5)), "range")
	assertViolation(t, Property(p, schema.Number(-0.5)), "range")
	assertViolation(t, Property(p, schema.Number(math.NaN())), "range")
}

func TestNullabilityContract(t *testing.T) {
	nullable := numberProp(0, 700, 0.001, 32, true)
	if err := Property(nullable, schema.Null()); err != nil {
		t.Fatalf("nullable property rejected null: %v", err)
	}

	strict := numberProp(0, 700, 0.001, 32, false)
	cv := assertViolation(t, Property(strict, schema.Null()), "nullability")
	if cv.Property != "assessed_voltage" {
		t.Fatalf("violation should name the property: %#v", cv)
	}
}

func TestStringLengthCountsBytes(t *testing.T) {
	p := &schema.PropertyDef{
		Name: "label", Type: schema.TypeString,
		String: &schema.StringConstraints{MaxLength: 4},
	}

	if err := Property(p, schema.String("abcd")); err != nil {
		t.Fatalf("4-byte string rejected: %v", err)
	}
	// U+00E9 is two bytes in UTF-8: 3 characters, 5 bytes.
	assertViolation(t, Property(p, schema.String("abéc")), "max_length")
}

func TestEnumMembership(t *testing.T) {
	doc := &schema.Document{
		VendorID: 0, TraitID: 9, Version: 1, Name: "t",
		ReservedTagMin: 1, ReservedTagMax: 7,
		Enums: []schema.EnumDocument{
			{Name: "closed", Items: []schema.EnumItemDocument{{Name: "A", Value: 1}}},
			{Name: "open", Extendable: true, Items: []schema.EnumItemDocument{{Name: "A", Value: 1}}},
		},
		Properties: []schema.PropertyDocument{
			{Tag: 1, Name: "closed_prop", Type: "enum", Enum: "closed"},
			{Tag: 2, Name: "open_prop", Type: "enum", Enum: "open"},
		},
	}
	ts, err := schema.Load(doc)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	closed, _ := ts.Properties.Property(1)
	open, _ := ts.Properties.Property(2)

	if err := Property(closed, schema.Enum("A", 1)); err != nil {
		t.Fatalf("declared value rejected: %v", err)
	}
	assertViolation(t, Property(closed, schema.UnknownEnum(9)), "enum")

	if err := Property(open, schema.UnknownEnum(9)); err != nil {
		t.Fatalf("extendable enum rejected unknown value: %v", err)
	}
}

func TestMessageRequiredAndUnknownTags(t *testing.T) {
	def := mustMessage(t, &schema.Document{
		VendorID: 0, TraitID: 10, Version: 1, Name: "m",
		ReservedTagMin: 1, ReservedTagMax: 7,
		Properties: []schema.PropertyDocument{
			{Tag: 1, Name: "required_flag", Type: "bool"},
			{Tag: 2, Name: "optional_note", Type: "string", Optional: true},
		},
	})

	if err := Message(def, schema.Struct(map[uint32]schema.Value{1: schema.Bool(true)})); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	assertViolation(t, Message(def, schema.Struct(map[uint32]schema.Value{
		2: schema.String("note only"),
	})), "optionality")

	assertViolation(t, Message(def, schema.Struct(map[uint32]schema.Value{
		1: schema.Bool(true),
		6: schema.Bool(false),
	})), "tag")
}

func TestMessageExtendableAcceptsUnknownTags(t *testing.T) {
	def := mustMessage(t, &schema.Document{
		VendorID: 0, TraitID: 11, Version: 1, Name: "m", Extendable: true,
		ReservedTagMin: 1, ReservedTagMax: 7,
		Properties: []schema.PropertyDocument{
			{Tag: 1, Name: "required_flag", Type: "bool"},
		},
	})

	err := Message(def, schema.Struct(map[uint32]schema.Value{
		1: schema.Bool(true),
		6: schema.String("from a newer version"),
	}))
	if err != nil {
		t.Fatalf("extendable message rejected unknown tag: %v", err)
	}
}

func TestTypeMismatch(t *testing.T) {
	p := numberProp(0, 10, 1, 0, false)
	assertViolation(t, Property(p, schema.String("nope")), "type")
}

func TestIntWidthCheck(t *testing.T) {
	p := &schema.PropertyDef{
		Name: "offset", Type: schema.TypeInt,
		Number: &schema.NumberConstraints{Min: -1e9, Max: 1e9, Precision: 1, Width: 8, Signed: true},
	}
	if err := Property(p, schema.Int(-128)); err != nil {
		t.Fatalf("in-width value rejected: %v", err)
	}
	assertViolation(t, Property(p, schema.Int(128)), "width")
}

func mustMessage(t *testing.T, doc *schema.Document) *schema.MessageDef {
	t.Helper()
	ts, err := schema.Load(doc)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return ts.Properties
}
