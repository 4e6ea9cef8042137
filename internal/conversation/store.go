package conversation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wandergram/wanderchat/internal/bus"
	"go.uber.org/zap"
)

// HistoryFunc fetches the full message history with one contact.
type HistoryFunc func(ctx context.Context, contactID string) ([]Message, error)

// Store holds the message log of the currently selected conversation.
// History is fetched fresh on every selection; there is no cross-session
// cache. Live events are appended in arrival order, with the dedup rule in
// Same as the only safeguard against double rendering.
type Store struct {
	mu     sync.Mutex
	fetch  HistoryFunc
	bus    *bus.Bus
	logger *zap.Logger

	activeID   string
	activeName string
	gen        int
	log        []Message
}

// NewStore creates a conversation store backed by the given history fetcher.
func NewStore(fetch HistoryFunc, b *bus.Bus, logger *zap.Logger) *Store {
	return &Store{fetch: fetch, bus: b, logger: logger}
}

// Select makes the given contact the active conversation and fetches its
// history. A selection that changes while the fetch is in flight discards the
// stale response instead of clobbering the newer conversation.
func (s *Store) Select(ctx context.Context, contactID, displayName string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.activeID = contactID
	s.activeName = displayName
	s.log = nil
	s.mu.Unlock()

	msgs, err := s.fetch(ctx, contactID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil
	}
	s.log = msgs
	s.bus.Publish(bus.Event{
		Kind:      bus.KindChatHistory,
		Timestamp: time.Now(),
		Payload:   len(msgs),
	})
	return nil
}

// Deselect discards the active conversation. Any in-flight history fetch for
// it becomes stale and is dropped on return.
func (s *Store) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.activeID = ""
	s.activeName = ""
	s.log = nil
}

// Active returns the selected contact, if any.
func (s *Store) Active() (id, name string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID, s.activeName, s.activeID != ""
}

// Messages returns a copy of the current log.
func (s *Store) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.log))
	copy(out, s.log)
	return out
}

// Append adds a message to the log unless it duplicates an existing entry.
// Returns whether the message was appended.
func (s *Store) Append(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(m)
}

// Ingest handles an inbound hub message: appended only when it belongs to the
// active conversation. Messages for other contacts are dropped; their history
// is re-fetched fresh when that contact is selected.
func (s *Store) Ingest(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == "" {
		return false
	}
	if m.SenderID != s.activeID && m.ReceiverID != s.activeID {
		return false
	}
	return s.appendLocked(m)
}

func (s *Store) appendLocked(m Message) bool {
	for i := range s.log {
		if Same(s.log[i], m) {
			// Server echo of an optimistic append: adopt the server id so
			// later copies also match by id.
			if s.log[i].ServerID == "" && m.ServerID != "" {
				s.log[i].ServerID = m.ServerID
			}
			return false
		}
	}
	s.log = append(s.log, m)
	s.bus.Publish(bus.Event{
		Kind:      bus.KindChatAppended,
		Timestamp: time.Now(),
		Payload:   m,
	})
	return true
}
