package fanout

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBus(4, 0)
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{Conversation: "c1", Type: EventMessage, Seq: 7, Actor: "u1"})
	select {
	case ev := <-ch:
		if ev.Conversation != "c1" || ev.Seq != 7 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}

func TestPublishNeverBlocksOnFullQueue(t *testing.T) {
	b := NewBus(1, 0)
	_, cancel := b.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Conversation: "c1", Type: EventMessage})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on a full subscriber queue")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	b := NewBus(1, 0)
	ch, cancel := b.Subscribe()
	if b.SubscriberCount() != 1 {
		t.Fatalf("count = %d", b.SubscriberCount())
	}
	cancel()
	if b.SubscriberCount() != 0 {
		t.Fatalf("subscriber not removed")
	}
	if _, open := <-ch; open {
		t.Fatalf("channel should be closed")
	}
	// double cancel is safe
	cancel()
}

func TestPublishJSONPayload(t *testing.T) {
	b := NewBus(2, 0)
	ch, cancel := b.Subscribe()
	defer cancel()

	type payload struct {
		Content string `json:"content"`
	}
	b.PublishJSON("c1", EventMessage, 3, "u1", payload{Content: "hello"})

	select {
	case ev := <-ch:
		var p payload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			t.Fatalf("payload decode: %v (%q)", err, ev.Payload)
		}
		if p.Content != "hello" || ev.Actor != "u1" {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("event not delivered")
	}
}
