package status

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/wandergram/wanderchat/internal/bus"
)

// State is the lifecycle state of the duplex hub connection.
type State string

const (
	Disconnected State = "DISCONNECTED"
	Connecting   State = "CONNECTING"
	Connected    State = "CONNECTED"
	Reconnecting State = "RECONNECTING"
	// Failed is terminal: the backend looks absent rather than flaky, so no
	// automatic transition leaves it. The user has to restart the client.
	Failed State = "FAILED"
)

// validTransitions defines allowed state transitions. Failed has no entry on
// purpose.
var validTransitions = map[State][]State{
	Disconnected: {Connecting, Failed},
	Connecting:   {Connected, Reconnecting, Failed, Disconnected},
	Connected:    {Reconnecting, Disconnected, Failed},
	Reconnecting: {Connecting, Connected, Failed, Disconnected},
	Failed:       {},
}

// Machine tracks and enforces connection state transitions. It is the single
// source of truth gating outbound sends: the composer refuses to transmit
// unless Current() == Connected.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a state machine starting in Disconnected.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Disconnected,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition attempts to move to a new state. Returns an error if the
// transition is not allowed from the current state.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      bus.KindStateChanged,
			Timestamp: time.Now(),
			Payload: StateChange{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// StateChange is the payload for conn.state_changed events.
type StateChange struct {
	From State
	To   State
}
