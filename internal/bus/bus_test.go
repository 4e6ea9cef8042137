package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStateChanged, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindStateChanged {
			t.Errorf("got kind %q, want %q", evt.Kind, KindStateChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("hub.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindStateChanged})
	b.Publish(Event{Kind: KindHubReceive})

	select {
	case evt := <-ch:
		if evt.Kind != KindHubReceive {
			t.Errorf("got kind %q, want %q", evt.Kind, KindHubReceive)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the conn event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn.", 10)
	unsub()

	b.Publish(Event{Kind: KindStateChanged})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("chat.", 1)
	defer unsub()

	b.Publish(Event{Kind: KindChatAppended})
	// Dropped: the subscriber buffer is full and delivery never blocks.
	b.Publish(Event{Kind: KindChatHistory})

	evt := <-ch
	if evt.Kind != KindChatAppended {
		t.Errorf("got %q, want %q", evt.Kind, KindChatAppended)
	}
}

func TestPublishStampsTimestamp(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("conn.", 1)
	defer unsub()

	b.Publish(Event{Kind: KindConnClosed})

	evt := <-ch
	if evt.Timestamp.IsZero() {
		t.Error("Publish should stamp a zero timestamp")
	}
}
