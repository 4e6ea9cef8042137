package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wandergram/wanderchat/internal/conversation"
	"github.com/wandergram/wanderchat/internal/status"
	"github.com/wandergram/wanderchat/internal/upload"
	"go.uber.org/zap"
)

// Precondition errors, each with its own user-facing message. They are pure
// client-side guards; none of them reach the network.
var (
	ErrNotConnected      = errors.New("not connected to the messaging hub")
	ErrNoContact         = errors.New("no contact selected")
	ErrIdentityNotLoaded = errors.New("your profile is still loading")
	ErrEmptyMessage      = errors.New("nothing to send")
)

// Transmitter is the hub connection's send primitive.
type Transmitter interface {
	Send(conversation.Message) error
}

// MediaUploader persists an attachment before the send.
type MediaUploader interface {
	Upload(ctx context.Context, in upload.Input) (*upload.Result, error)
}

// IdentityFunc returns the resolved current-user id, or "" while the profile
// is still loading.
type IdentityFunc func() string

// Composer turns user input into sent messages. Upload and transmit for one
// outgoing message are strictly sequenced; they never run concurrently.
type Composer struct {
	machine  *status.Machine
	store    *conversation.Store
	tx       Transmitter
	uploader MediaUploader
	identity IdentityFunc
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a composer.
func New(m *status.Machine, store *conversation.Store, tx Transmitter, up MediaUploader, identity IdentityFunc, logger *zap.Logger) *Composer {
	return &Composer{
		machine:  m,
		store:    store,
		tx:       tx,
		uploader: up,
		identity: identity,
		logger:   logger,
		now:      time.Now,
	}
}

// Send transmits the given text and optional attachment to the selected
// contact. Preconditions are checked in order before any network call. On
// success the optimistic copy is already appended to the store and the caller
// may clear its input; on any failure the caller keeps its input for a retry.
func (c *Composer) Send(ctx context.Context, text string, attachment *upload.Input) error {
	if c.machine.Current() != status.Connected {
		return ErrNotConnected
	}
	contactID, _, ok := c.store.Active()
	if !ok {
		return ErrNoContact
	}
	me := c.identity()
	if me == "" {
		return ErrIdentityNotLoaded
	}

	text = strings.TrimSpace(text)
	if text == "" && attachment == nil {
		return ErrEmptyMessage
	}

	msg := conversation.Message{
		LocalID:    uuid.New().String(),
		SenderID:   me,
		ReceiverID: contactID,
		Content:    text,
		Timestamp:  c.now(),
	}

	if attachment != nil {
		res, err := c.uploader.Upload(ctx, *attachment)
		if err != nil {
			// Never send a message with a broken media reference.
			return fmt.Errorf("attachment upload failed: %w", err)
		}
		msg.MediaURL = res.URL
		msg.MediaKind = res.Kind
	}

	if err := c.tx.Send(msg); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}

	// Optimistic append; the server echo deduplicates against it.
	c.store.Append(msg)
	c.logger.Info("message sent",
		zap.String("receiver_id", contactID),
		zap.String("media_kind", string(msg.MediaKind)))
	return nil
}
