package schema

import (
	"errors"
	"testing"
)

func float(v float64) *float64 { return &v }
func intp(v int) *int          { return &v }

// powerSourceDocument models a realistic trait: a power source with a
// condition enum, a fixed-point voltage, and a couple of commands/events.
func powerSourceDocument() *Document {
	return &Document{
		VendorID:       0,
		TraitID:        1793,
		Version:        2,
		Name:           "power_source",
		Extendable:     true,
		ReservedTagMin: 1,
		ReservedTagMax: 31,
		Enums: []EnumDocument{
			{
				Name:       "condition",
				Extendable: true,
				Items: []EnumItemDocument{
					{Name: "CONDITION_NOMINAL", Value: 1},
					{Name: "CONDITION_CRITICAL", Value: 2},
				},
			},
			{
				Name: "type",
				Items: []EnumItemDocument{
					{Name: "TYPE_BATTERY", Value: 1},
					{Name: "TYPE_WIRED", Value: 2},
				},
			},
		},
		Properties: []PropertyDocument{
			{Tag: 1, Name: "type", Type: "enum", Enum: "type", Static: true},
			{
				Tag: 2, Name: "assessed_voltage", Type: "number", Nullable: true, Optional: true,
				Min: float(0), Max: float(700), Precision: float(0.001), Width: 32,
			},
			{Tag: 3, Name: "condition", Type: "enum", Enum: "condition"},
			{Tag: 4, Name: "description", Type: "string", Static: true, MaxLength: intp(32)},
			{Tag: 5, Name: "present", Type: "bool"},
			{
				Tag: 6, Name: "removable", Type: "struct", Optional: true,
				Message: &MessageDocument{
					Name:           "removable",
					ReservedTagMin: 1,
					ReservedTagMax: 15,
					Properties: []PropertyDocument{
						{Tag: 1, Name: "attached", Type: "bool"},
					},
				},
			},
		},
		Commands: []CommandDocument{
			{
				ID:   1,
				Name: "test_activate",
				Request: &MessageDocument{
					Name:           "test_activate_request",
					ReservedTagMin: 1,
					ReservedTagMax: 15,
					Extendable:     true,
					Properties: []PropertyDocument{
						{Tag: 1, Name: "duration_seconds", Type: "uint", Max: float(3600)},
					},
				},
				Response: &MessageDocument{
					Name:           "test_activate_response",
					ReservedTagMin: 1,
					ReservedTagMax: 15,
					Extendable:     true,
					Properties: []PropertyDocument{
						{Tag: 1, Name: "accepted", Type: "bool"},
					},
				},
			},
		},
		Events: []EventDocument{
			{
				ID:   1,
				Name: "condition_changed",
				Payload: &MessageDocument{
					Name:           "condition_changed",
					ReservedTagMin: 1,
					ReservedTagMax: 15,
					Extendable:     true,
					Properties: []PropertyDocument{
						{Tag: 1, Name: "condition", Type: "enum", Enum: "condition"},
					},
				},
			},
		},
	}
}

func TestLoadBuildsLookups(t *testing.T) {
	ts, err := Load(powerSourceDocument())
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if ts.Key() != (Key{VendorID: 0, TraitID: 1793}) {
		t.Fatalf("unexpected key: %v", ts.Key())
	}

	voltage, ok := ts.Properties.Property(2)
	if !ok || voltage.Name != "assessed_voltage" {
		t.Fatalf("voltage property not indexed: %#v", voltage)
	}
	if voltage.Number == nil || voltage.Number.Precision != 0.001 || voltage.Number.Width != 32 {
		t.Fatalf("unexpected voltage constraints: %#v", voltage.Number)
	}
	if !voltage.Nullable || !voltage.Optional {
		t.Fatal("voltage should be nullable and optional")
	}

	cond, ok := ts.Enum("condition")
	if !ok || !cond.Extendable {
		t.Fatalf("condition enum not resolved: %#v", cond)
	}
	if name, ok := cond.Lookup(2); !ok || name != "CONDITION_CRITICAL" {
		t.Fatalf("enum lookup failed: %q %v", name, ok)
	}

	cmd, ok := ts.Command(1)
	if !ok || cmd.Request == nil || cmd.Response == nil {
		t.Fatalf("command not indexed: %#v", cmd)
	}
	if _, ok := ts.Event(1); !ok {
		t.Fatal("event not indexed")
	}
}

func TestLoadRejectsTagOutsideReservedRange(t *testing.T) {
	doc := powerSourceDocument()
	doc.Properties[0].Tag = 32 // beyond reserved_tag_max 31

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != TagOutOfRange {
		t.Fatalf("expected TagOutOfRange, got %v", err)
	}
}

func TestLoadRejectsDuplicateTags(t *testing.T) {
	doc := powerSourceDocument()
	doc.Properties[1].Tag = doc.Properties[0].Tag

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != DuplicateTag {
		t.Fatalf("expected DuplicateTag, got %v", err)
	}
}

func TestLoadRejectsInvalidNumericRange(t *testing.T) {
	doc := powerSourceDocument()
	doc.Properties[1].Min = float(10)
	doc.Properties[1].Max = float(1)

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != InvalidRange {
		t.Fatalf("expected InvalidRange, got %v", err)
	}
}

func TestLoadRejectsUnknownEnumReference(t *testing.T) {
	doc := powerSourceDocument()
	doc.Properties[2].Enum = "no_such_enum"

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != UnknownReference {
		t.Fatalf("expected UnknownReference, got %v", err)
	}
}

func TestLoadRejectsDuplicateEnumValue(t *testing.T) {
	doc := powerSourceDocument()
	doc.Enums[0].Items = append(doc.Enums[0].Items, EnumItemDocument{Name: "CONDITION_OTHER", Value: 1})

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != DuplicateTag {
		t.Fatalf("expected DuplicateTag for enum value, got %v", err)
	}
}

func TestLoadRejectsDuplicateCommandID(t *testing.T) {
	doc := powerSourceDocument()
	doc.Commands = append(doc.Commands, doc.Commands[0])

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != DuplicateTag {
		t.Fatalf("expected DuplicateTag for command id, got %v", err)
	}
}

func TestLoadRejectsBadWidth(t *testing.T) {
	doc := powerSourceDocument()
	doc.Properties[1].Width = 24

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != InvalidRange {
		t.Fatalf("expected InvalidRange for width, got %v", err)
	}
}

func TestLoadRejectsSignedUint(t *testing.T) {
	doc := powerSourceDocument()
	doc.Commands[0].Request.Properties[0].Signed = true

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != InvalidRange {
		t.Fatalf("expected InvalidRange for signed uint, got %v", err)
	}
}

func TestLoadRejectsInvalidReservedRange(t *testing.T) {
	doc := powerSourceDocument()
	doc.ReservedTagMin = 10
	doc.ReservedTagMax = 5

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != InvalidRange {
		t.Fatalf("expected InvalidRange for reserved range, got %v", err)
	}
}

func TestLoadMapKeyMustBeScalar(t *testing.T) {
	doc := powerSourceDocument()
	doc.Properties = append(doc.Properties, PropertyDocument{
		Tag: 7, Name: "sources", Type: "map",
		Key: &PropertyDocument{Tag: 1, Name: "key", Type: "struct", Message: &MessageDocument{
			Name: "k", ReservedTagMin: 1, ReservedTagMax: 2,
		}},
		Value: &PropertyDocument{Tag: 2, Name: "value", Type: "string"},
	})

	_, err := Load(doc)
	var se *SchemaError
	if !errors.As(err, &se) || se.Kind != InvalidRange {
		t.Fatalf("expected InvalidRange for map key, got %v", err)
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Kind: TagOutOfRange, Path: "power_source.foo", Detail: "tag 99"}
	if got := err.Error(); got != "schema power_source.foo: tag out of reserved range: tag 99" {
		t.Fatalf("unexpected error text: %q", got)
	}
}
