package bus

import "time"

// Event is a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds published by the messaging subsystem. Subscribers filter by
// namespace prefix ("conn.", "hub.", "chat.").
const (
	KindStateChanged = "conn.state_changed"
	KindConnClosed   = "conn.closed"
	KindHubReceive   = "hub.receive"
	KindHubSent      = "hub.sent"
	KindChatHistory  = "chat.history"
	KindChatAppended = "chat.appended"
)
