package conversation

import (
	"context"

	"github.com/wandergram/wanderchat/internal/bus"
	"go.uber.org/zap"
)

// Engine routes inbound hub events into the store. It subscribes to "hub."
// events on the bus; the hub connection never touches the store directly.
// Both ReceiveMessage broadcasts and messageSent confirmations flow through
// here, which is why every append is deduplicated.
type Engine struct {
	store  *Store
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewEngine creates an engine feeding the given store.
func NewEngine(store *Store, b *bus.Bus, logger *zap.Logger) *Engine {
	return &Engine{store: store, bus: b, logger: logger}
}

// Start subscribes to inbound hub events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("hub.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindHubReceive, bus.KindHubSent:
		msg, ok := evt.Payload.(Message)
		if !ok {
			return
		}
		if e.store.Ingest(msg) {
			e.logger.Info("message ingested",
				zap.String("sender_id", msg.SenderID),
				zap.String("kind", evt.Kind))
		}
	}
}
