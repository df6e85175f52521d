package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
)

type sample struct {
	Name string `json:"name"`
	Tag  uint32 `json:"tag"`
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	in := sample{Name: "battery_remaining", Tag: 2}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: %#v != %#v", out, in)
	}
}

func TestEncodeDecodeStream(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, sample{Name: "condition", Tag: 3}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var out sample
	if err := Decode(&buf, &out); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.Name != "condition" || out.Tag != 3 {
		t.Fatalf("unexpected decode result: %#v", out)
	}
}

func TestUnmarshalRejectsMalformedInput(t *testing.T) {
	var out sample
	if err := Unmarshal([]byte(`{"name": `), &out); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
	if err := Decode(strings.NewReader("not-json"), &out); err == nil {
		t.Fatal("expected error for non-JSON stream")
	}
}
