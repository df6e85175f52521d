package metadata

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
)

func TestCloneIsIndependent(t *testing.T) {
	original := New("trait", "power_source", "version", "2")
	cloned := original.Clone()

	cloned["trait"] = "label_settings"
	if original["trait"] != "power_source" {
		t.Fatalf("clone mutated the original: %#v", original)
	}
}

func TestWithAddsWithoutMutating(t *testing.T) {
	base := New("correlation_id", "01H")
	extended := base.With("status", "ok")

	if _, ok := base["status"]; ok {
		t.Fatal("With mutated the receiver")
	}
	if extended.Get("status") != "ok" || extended.Get("correlation_id") != "01H" {
		t.Fatalf("unexpected extended metadata: %#v", extended)
	}
}

func TestWithAllMergesEntries(t *testing.T) {
	base := New("a", "1")
	merged := base.WithAll(Metadata{"b": "2", "c": "3"})

	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %#v", merged)
	}
	if len(base) != 1 {
		t.Fatal("WithAll mutated the receiver")
	}
}

func TestNewIgnoresDanglingKey(t *testing.T) {
	md := New("a", "1", "orphan")
	if len(md) != 1 || md.Get("a") != "1" {
		t.Fatalf("unexpected metadata: %#v", md)
	}
}

func TestWatermillConversion(t *testing.T) {
	md := New("trait", "device_identity")
	wm := ToWatermill(md)
	if wm.Get("trait") != "device_identity" {
		t.Fatalf("unexpected watermill metadata: %#v", wm)
	}

	back := FromWatermill(wm)
	if back.Get("trait") != "device_identity" {
		t.Fatalf("unexpected round-tripped metadata: %#v", back)
	}

	if got := FromWatermill(message.Metadata{}); len(got) != 0 {
		t.Fatalf("expected empty metadata, got %#v", got)
	}
}
