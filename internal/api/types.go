package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wandergram/wanderchat/internal/conversation"
)

// FlexID normalizes identifiers the backend serializes inconsistently as
// either JSON strings or numbers. Everything past the deserialization
// boundary works with the string form only; no deeper component branches on
// field-name or type variants.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty id value")
	}
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) String() string { return string(f) }

// ContactRecord is the wire shape of the relationship endpoints
// (/Followers/messaging-contacts and the fallback trio).
type ContactRecord struct {
	ID               FlexID `json:"Id"`
	Username         string `json:"Username"`
	ProfileImage     string `json:"ProfileImage"`
	RelationshipType string `json:"RelationshipType"`
	FirstName        string `json:"FirstName"`
	LastName         string `json:"LastName"`
}

// DisplayName derives the human-readable name for a contact record,
// preferring the real name over the username.
func (r ContactRecord) DisplayName() string {
	full := strings.TrimSpace(r.FirstName + " " + r.LastName)
	if full != "" {
		return full
	}
	return r.Username
}

// User is the current user's resolved profile.
type User struct {
	ID        string
	Username  string
	AvatarURL string
}

// UnmarshalJSON tolerates the id appearing under any of id/userId/user_id.
// The variants are collapsed here, at the boundary, and nowhere else.
func (u *User) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID           *FlexID `json:"id"`
		UserID       *FlexID `json:"userId"`
		UserIDSnake  *FlexID `json:"user_id"`
		Username     string  `json:"userName"`
		ProfileImage string  `json:"profileImage"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	switch {
	case aux.ID != nil && *aux.ID != "":
		u.ID = aux.ID.String()
	case aux.UserID != nil && *aux.UserID != "":
		u.ID = aux.UserID.String()
	case aux.UserIDSnake != nil && *aux.UserIDSnake != "":
		u.ID = aux.UserIDSnake.String()
	default:
		return fmt.Errorf("user profile has no id field")
	}
	u.Username = aux.Username
	u.AvatarURL = aux.ProfileImage
	return nil
}

// MessageRecord is the wire shape of a message, used by both the history
// endpoint and the real-time hub.
type MessageRecord struct {
	ID         FlexID                 `json:"id,omitempty"`
	SenderID   FlexID                 `json:"senderId"`
	ReceiverID FlexID                 `json:"receiverId"`
	Content    string                 `json:"content"`
	MediaURL   string                 `json:"mediaUrl,omitempty"`
	MediaType  conversation.MediaKind `json:"mediaType,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// ToMessage converts a wire record into the domain shape.
func (r MessageRecord) ToMessage() conversation.Message {
	return conversation.Message{
		ServerID:   r.ID.String(),
		SenderID:   r.SenderID.String(),
		ReceiverID: r.ReceiverID.String(),
		Content:    r.Content,
		MediaURL:   r.MediaURL,
		MediaKind:  r.MediaType,
		Timestamp:  r.Timestamp,
	}
}

// RecordFromMessage converts a domain message into its wire shape.
func RecordFromMessage(m conversation.Message) MessageRecord {
	return MessageRecord{
		ID:         FlexID(m.ServerID),
		SenderID:   FlexID(m.SenderID),
		ReceiverID: FlexID(m.ReceiverID),
		Content:    m.Content,
		MediaURL:   m.MediaURL,
		MediaType:  m.MediaKind,
		Timestamp:  m.Timestamp,
	}
}
