package status

import (
	"testing"

	"github.com/wandergram/wanderchat/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Disconnected {
		t.Errorf("initial state = %s, want DISCONNECTED", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Disconnected, Connecting},
		{Disconnected, Failed},
		{Connecting, Connected},
		{Connecting, Reconnecting},
		{Connecting, Failed},
		{Connected, Reconnecting},
		{Connected, Disconnected},
		{Connected, Failed},
		{Reconnecting, Connecting},
		{Reconnecting, Failed},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Connected); err == nil {
		t.Error("Transition(DISCONNECTED -> CONNECTED) should fail")
	}
}

// TestFailedIsTerminal verifies that no automatic transition leaves Failed:
// once the backend is classified absent, only a restart recovers.
func TestFailedIsTerminal(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Failed)

	for _, to := range []State{Disconnected, Connecting, Connected, Reconnecting} {
		if err := m.Transition(to); err == nil {
			t.Errorf("Transition(FAILED -> %s) should fail", to)
		}
	}
	if m.Current() != Failed {
		t.Errorf("state = %s, want FAILED", m.Current())
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("conn.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Connecting); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindStateChanged {
		t.Errorf("event kind = %q, want %q", evt.Kind, bus.KindStateChanged)
	}
	change, ok := evt.Payload.(StateChange)
	if !ok {
		t.Fatalf("payload type = %T, want StateChange", evt.Payload)
	}
	if change.From != Disconnected || change.To != Connecting {
		t.Errorf("change = %v -> %v, want DISCONNECTED -> CONNECTING", change.From, change.To)
	}
}

// TestConnectLifecycle simulates a clean session:
// DISCONNECTED -> CONNECTING -> CONNECTED -> DISCONNECTED
func TestConnectLifecycle(t *testing.T) {
	m := NewMachine(nil)
	for _, s := range []State{Connecting, Connected, Disconnected} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Disconnected {
		t.Errorf("final state = %s, want DISCONNECTED", m.Current())
	}
}

// TestDropReconnectCycle verifies the transient-loss loop:
// CONNECTED -> RECONNECTING -> CONNECTING -> CONNECTED
func TestDropReconnectCycle(t *testing.T) {
	m := NewMachine(nil)
	walkTo(t, m, Connected)

	for _, s := range []State{Reconnecting, Connecting, Connected} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Connected {
		t.Errorf("final state = %s, want CONNECTED", m.Current())
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Disconnected: {},
		Connecting:   {Connecting},
		Connected:    {Connecting, Connected},
		Reconnecting: {Connecting, Connected, Reconnecting},
		Failed:       {Connecting, Failed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}
