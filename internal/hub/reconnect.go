package hub

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wandergram/wanderchat/internal/bus"
	"github.com/wandergram/wanderchat/internal/status"
	"go.uber.org/zap"
)

// DefaultBackoff is the fixed delay before a reconnect attempt.
const DefaultBackoff = 5 * time.Second

// terminalMarkers identify close errors that mean the backend is absent
// rather than flaky. Retrying against a missing endpoint is pointless, so
// these transition to Failed instead.
var terminalMarkers = []string{
	"404",
	"not found",
	"failed to fetch",
	"connection refused",
}

// Terminal reports whether a connection error indicates the remote endpoint
// does not exist.
func Terminal(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range terminalMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// Reconnector keeps the hub connection usable across transient network loss.
// On each unexpected close it classifies the cause: terminal failures stop
// retrying and park the state machine in Failed; anything else schedules
// exactly one retry after a fixed backoff, and the same policy applies to
// that retry's outcome.
type Reconnector struct {
	conn    *Conn
	machine *status.Machine
	bus     *bus.Bus
	logger  *zap.Logger
	backoff time.Duration
	cancel  context.CancelFunc
}

// NewReconnector wraps the given connection with the retry policy.
func NewReconnector(conn *Conn, m *status.Machine, b *bus.Bus, logger *zap.Logger) *Reconnector {
	return &Reconnector{
		conn:    conn,
		machine: m,
		bus:     b,
		logger:  logger,
		backoff: DefaultBackoff,
	}
}

// Start subscribes to connection close notifications.
func (r *Reconnector) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	ch, unsub := r.bus.Subscribe(bus.KindConnClosed, 16)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				info, ok := evt.Payload.(CloseInfo)
				if !ok || info.Intentional {
					continue
				}
				r.applyPolicy(ctx, info.Err)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels any pending retry and the close subscription.
func (r *Reconnector) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Connect runs one connect attempt and applies the retry policy to its
// outcome. Used for the initial connection as well as retries, so initial
// failures are classified the same way as mid-session ones.
func (r *Reconnector) Connect(ctx context.Context) {
	err := r.conn.Connect(ctx)
	if err == nil {
		return
	}
	r.logger.Warn("hub connect failed", zap.Error(err))
	r.applyPolicy(ctx, err)
}

func (r *Reconnector) applyPolicy(ctx context.Context, cause error) {
	if Terminal(cause) || errors.Is(cause, ErrUnauthenticated) {
		r.logger.Error("hub unreachable, giving up until restart", zap.Error(cause))
		if err := r.machine.Transition(status.Failed); err != nil {
			r.logger.Error("could not enter failed state", zap.Error(err))
		}
		return
	}

	if err := r.machine.Transition(status.Reconnecting); err != nil {
		// Already torn down or failed; no retry.
		return
	}
	r.logger.Info("scheduling reconnect", zap.Duration("backoff", r.backoff))

	timer := time.NewTimer(r.backoff)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			r.Connect(ctx)
		case <-ctx.Done():
		}
	}()
}
