package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wandergram/wanderchat/internal/api"
	"github.com/wandergram/wanderchat/internal/bus"
	"github.com/wandergram/wanderchat/internal/conversation"
	"github.com/wandergram/wanderchat/internal/status"
	"go.uber.org/zap"
)

var (
	// ErrUnauthenticated is returned when no auth token is available or the
	// hub rejects the credential during the handshake.
	ErrUnauthenticated = errors.New("missing or rejected auth token")
	// ErrTransportUnavailable is returned when the duplex transport cannot
	// be negotiated.
	ErrTransportUnavailable = errors.New("transport negotiation failed")
	// ErrNotConnected is returned by Send when there is no live connection.
	ErrNotConnected = errors.New("hub connection is not established")
)

// Hub method and event names shared with the backend.
const (
	invokeSendMessage   = "SendMessage"
	eventReceiveMessage = "ReceiveMessage"
	eventMessageSent    = "messageSent"
)

// frame is the JSON envelope for hub invocations and events.
type frame struct {
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
}

type outFrame struct {
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// CloseInfo is the payload of conn.closed events.
type CloseInfo struct {
	Err         error
	Intentional bool
}

// Conn owns the single duplex connection to the messaging hub. Inbound
// events are published on the bus ("hub.receive", "hub.sent"); the state
// machine reflects every lifecycle transition. The auth token travels in the
// Authorization header, never in the URL.
type Conn struct {
	hubURL  string
	tokenFn func() string
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	closing bool
}

// NewConn creates a hub connection manager. tokenFn is the access-token
// factory consulted at each dial.
func NewConn(hubURL string, tokenFn func() string, m *status.Machine, b *bus.Bus, logger *zap.Logger) *Conn {
	return &Conn{
		hubURL:  hubURL,
		tokenFn: tokenFn,
		machine: m,
		bus:     b,
		logger:  logger,
	}
}

// Connect opens the duplex connection and completes the handshake. On
// success the state machine reaches Connected and the read pump starts.
func (c *Conn) Connect(ctx context.Context) error {
	token := c.tokenFn()
	if token == "" {
		return ErrUnauthenticated
	}

	if err := c.machine.Transition(status.Connecting); err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := dialer.DialContext(ctx, c.hubURL, header)
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized {
				return fmt.Errorf("hub handshake: %w", ErrUnauthenticated)
			}
			return fmt.Errorf("%w: %s", ErrTransportUnavailable, resp.Status)
		}
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}

	c.mu.Lock()
	c.ws = ws
	c.closing = false
	c.mu.Unlock()

	if err := c.machine.Transition(status.Connected); err != nil {
		return err
	}
	c.logger.Info("hub connected", zap.String("url", c.hubURL))

	go c.readPump(ws)
	return nil
}

// Disconnect closes the connection. Idempotent; always run on teardown so no
// connection leaks across navigation.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.closing = true
	c.mu.Unlock()

	if ws == nil {
		return
	}
	c.logger.Info("disconnecting from hub")
	_ = ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	_ = ws.Close()
	_ = c.machine.Transition(status.Disconnected)
}

// Send invokes SendMessage on the hub with the given message.
func (c *Conn) Send(m conversation.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws == nil {
		return ErrNotConnected
	}
	f := outFrame{
		Target:    invokeSendMessage,
		Arguments: []any{api.RecordFromMessage(m)},
	}
	if err := c.ws.WriteJSON(f); err != nil {
		return fmt.Errorf("invoke %s: %w", invokeSendMessage, err)
	}
	return nil
}

func (c *Conn) readPump(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.handleClose(err)
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			c.logger.Warn("undecodable hub frame", zap.Error(err))
			continue
		}
		c.dispatch(f)
	}
}

func (c *Conn) dispatch(f frame) {
	var kind string
	switch f.Target {
	case eventReceiveMessage:
		kind = bus.KindHubReceive
	case eventMessageSent:
		kind = bus.KindHubSent
	default:
		return
	}
	if len(f.Arguments) == 0 {
		return
	}
	var rec api.MessageRecord
	if err := json.Unmarshal(f.Arguments[0], &rec); err != nil {
		c.logger.Warn("undecodable message payload", zap.String("target", f.Target), zap.Error(err))
		return
	}
	c.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload:   rec.ToMessage(),
	})
}

func (c *Conn) handleClose(err error) {
	c.mu.Lock()
	intentional := c.closing
	c.ws = nil
	c.mu.Unlock()

	if intentional {
		c.bus.Publish(bus.Event{
			Kind:      bus.KindConnClosed,
			Timestamp: time.Now(),
			Payload:   CloseInfo{Intentional: true},
		})
		return
	}

	c.logger.Warn("hub connection closed unexpectedly", zap.Error(err))
	c.bus.Publish(bus.Event{
		Kind:      bus.KindConnClosed,
		Timestamp: time.Now(),
		Payload:   CloseInfo{Err: err},
	})
}
