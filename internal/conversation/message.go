package conversation

import "time"

// MediaKind classifies the attachment of a message. KindNone means the
// message carries no media; the invariant is KindNone iff MediaURL is empty.
type MediaKind string

const (
	KindNone     MediaKind = ""
	KindImage    MediaKind = "image"
	KindVideo    MediaKind = "video"
	KindAudio    MediaKind = "audio"
	KindDocument MediaKind = "document"
)

// Message is one chat event between two users. Messages are never edited or
// deleted by the client; the log only grows.
type Message struct {
	// LocalID identifies an optimistic local append before the server has
	// echoed the message. It never goes over the wire.
	LocalID string
	// ServerID is assigned by the backend. Empty until the server echoes the
	// send or for purely local optimistic copies.
	ServerID   string
	SenderID   string
	ReceiverID string
	Content    string
	MediaURL   string
	MediaKind  MediaKind
	Timestamp  time.Time
}

// Same reports whether two records denote the same logical message: matching
// server ids when both sides have one, otherwise the
// (senderId, content, timestamp) triple. This is the one dedup rule in the
// client; every append goes through it.
func Same(a, b Message) bool {
	if a.ServerID != "" && b.ServerID != "" {
		return a.ServerID == b.ServerID
	}
	return a.SenderID == b.SenderID &&
		a.Content == b.Content &&
		a.Timestamp.Equal(b.Timestamp)
}

// Valid reports whether the message satisfies the content-or-media invariant.
func (m Message) Valid() bool {
	if m.Content == "" && m.MediaURL == "" {
		return false
	}
	return (m.MediaKind == KindNone) == (m.MediaURL == "")
}
