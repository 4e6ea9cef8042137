package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/wandergram/wanderchat/internal/bus"
	"go.uber.org/zap"
)

func TestEngineRoutesHubEvents(t *testing.T) {
	b := bus.New()
	f := &fakeHistory{byID: map[string][]Message{"42": nil}}
	s := NewStore(f.fetch, b, zap.NewNop())
	_ = s.Select(context.Background(), "42", "Ana")

	e := NewEngine(s, b, zap.NewNop())
	e.Start(context.Background())
	defer e.Stop()

	b.Publish(bus.Event{
		Kind:    bus.KindHubReceive,
		Payload: msgAt("42", "7", "hi there", time.Now()),
	})

	deadline := time.After(time.Second)
	for {
		if len(s.Messages()) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for engine to ingest message")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEngineIgnoresForeignPayloads(t *testing.T) {
	b := bus.New()
	f := &fakeHistory{byID: map[string][]Message{"42": nil}}
	s := NewStore(f.fetch, b, zap.NewNop())
	_ = s.Select(context.Background(), "42", "Ana")

	e := NewEngine(s, b, zap.NewNop())
	e.Start(context.Background())
	defer e.Stop()

	b.Publish(bus.Event{Kind: bus.KindHubReceive, Payload: "not a message"})

	time.Sleep(20 * time.Millisecond)
	if len(s.Messages()) != 0 {
		t.Error("malformed payload must not reach the store")
	}
}

func TestMessageValid(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"text only", Message{Content: "hi"}, true},
		{"media only", Message{MediaURL: "https://a/x.png", MediaKind: KindImage}, true},
		{"empty", Message{}, false},
		{"kind without url", Message{Content: "x", MediaKind: KindImage}, false},
		{"url without kind", Message{MediaURL: "https://a/x.png"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
