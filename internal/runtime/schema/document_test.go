package schema

import (
	"strings"
	"testing"
)

const validDocumentJSON = `{
  "vendor_id": 0,
  "trait_id": 2049,
  "version": 1,
  "name": "device_identity",
  "reserved_tag_min": 1,
  "reserved_tag_max": 15,
  "properties": [
    {"tag": 1, "name": "vendor_name", "type": "string", "static": true, "max_length": 64},
    {"tag": 2, "name": "serial_number", "type": "string", "static": true, "max_length": 32},
    {"tag": 3, "name": "firmware_version", "type": "string", "optional": true, "max_length": 32}
  ]
}`

func TestParseValidDocument(t *testing.T) {
	ts, err := Parse([]byte(validDocumentJSON))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if ts.Name != "device_identity" || ts.TraitID != 2049 {
		t.Fatalf("unexpected schema: %#v", ts)
	}
	serial, ok := ts.Properties.Property(2)
	if !ok || serial.String == nil || serial.String.MaxLength != 32 {
		t.Fatalf("serial_number constraints not loaded: %#v", serial)
	}
}

func TestParseRejectsNonJSON(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseRejectsMetaSchemaViolation(t *testing.T) {
	// "type" must be one of the declared type names.
	bad := strings.Replace(validDocumentJSON, `"type": "string", "static": true, "max_length": 64`,
		`"type": "varchar"`, 1)

	_, err := Parse([]byte(bad))
	if err == nil || !strings.Contains(err.Error(), "meta-schema") {
		t.Fatalf("expected meta-schema rejection, got %v", err)
	}
}

func TestParseRejectsMissingRequiredKeys(t *testing.T) {
	_, err := Parse([]byte(`{"name": "incomplete"}`))
	if err == nil || !strings.Contains(err.Error(), "meta-schema") {
		t.Fatalf("expected meta-schema rejection, got %v", err)
	}
}
