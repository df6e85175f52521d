package runtime

import (
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/MShaffar19/traitflow/internal/runtime/schema"
)

func TestHandleCompletionDeliversToPendingDispatch(t *testing.T) {
	svc := newTestService(t)

	pending := newPendingCommand("corr-1", schema.Key{VendorID: 1, TraitID: 2}, 3)
	svc.addPending(pending)

	msg := message.NewMessage("uuid-1", []byte{0x01})
	msg.Metadata.Set(metaCorrelationID, "corr-1")
	msg.Metadata.Set(metaStatus, statusOK)

	if err := svc.handleCompletion(msg); err != nil {
		t.Fatalf("completion handling failed: %v", err)
	}

	select {
	case res := <-pending.done:
		if res.status != statusOK {
			t.Fatalf("unexpected status: %q", res.status)
		}
		if len(res.payload) != 1 || res.payload[0] != 0x01 {
			t.Fatalf("unexpected payload: %v", res.payload)
		}
	default:
		t.Fatal("completion was not delivered")
	}

	svc.pendingMu.Lock()
	_, stillPending := svc.pending["corr-1"]
	svc.pendingMu.Unlock()
	if stillPending {
		t.Fatal("pending entry not released after delivery")
	}
}

func TestHandleCompletionDropsStale(t *testing.T) {
	svc := newTestService(t)

	msg := message.NewMessage("uuid-1", nil)
	msg.Metadata.Set(metaCorrelationID, "never-issued")
	msg.Metadata.Set(metaStatus, statusOK)

	// A stale completion is dropped, never failed: failing it would make
	// the retry middleware redeliver something nobody is waiting for.
	if err := svc.handleCompletion(msg); err != nil {
		t.Fatalf("stale completion must be acked, got %v", err)
	}
}

func TestHandleCompletionIgnoresMissingCorrelationID(t *testing.T) {
	svc := newTestService(t)

	msg := message.NewMessage("uuid-1", nil)
	if err := svc.handleCompletion(msg); err != nil {
		t.Fatalf("completion without correlation id must be acked, got %v", err)
	}
}

func TestDuplicateCompletionOnlySettlesOnce(t *testing.T) {
	svc := newTestService(t)

	pending := newPendingCommand("corr-1", schema.Key{VendorID: 1, TraitID: 2}, 3)
	svc.addPending(pending)

	first := message.NewMessage("uuid-1", nil)
	first.Metadata.Set(metaCorrelationID, "corr-1")
	first.Metadata.Set(metaStatus, statusOK)
	if err := svc.handleCompletion(first); err != nil {
		t.Fatalf("first completion failed: %v", err)
	}

	duplicate := message.NewMessage("uuid-2", nil)
	duplicate.Metadata.Set(metaCorrelationID, "corr-1")
	duplicate.Metadata.Set(metaStatus, statusFailed)
	if err := svc.handleCompletion(duplicate); err != nil {
		t.Fatalf("duplicate completion must be dropped, got %v", err)
	}

	res := <-pending.done
	if res.status != statusOK {
		t.Fatalf("duplicate completion overwrote the first: %q", res.status)
	}
	select {
	case <-pending.done:
		t.Fatal("duplicate completion was delivered")
	default:
	}
}

func TestTopicNames(t *testing.T) {
	key := schema.Key{VendorID: 9050, TraitID: 1537}
	if got := commandTopic(key); got != "trait.9050.1537.command" {
		t.Fatalf("unexpected command topic: %q", got)
	}
	if got := completionTopic(key); got != "trait.9050.1537.completion" {
		t.Fatalf("unexpected completion topic: %q", got)
	}
	if got := eventTopic(key, 7); got != "trait.9050.1537.event.7" {
		t.Fatalf("unexpected event topic: %q", got)
	}
}
