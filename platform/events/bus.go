package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Bus dispatches domain events to subscribed handlers.
type Bus interface {
	Subscribe(eventName string, handler Handler)
	Publish(ctx context.Context, event Event)
	PublishSync(ctx context.Context, event Event) error
}

// InMemoryBus is a simple in-process event bus. Handlers registered for an
// event name receive every published event of that name. Publish dispatches
// asynchronously; PublishSync waits and returns the first handler error.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger

	// asyncTimeout bounds how long an async handler may run.
	asyncTimeout time.Duration
}

// NewInMemoryBus creates an event bus backed by an in-process handler registry.
func NewInMemoryBus(logger *slog.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers:     make(map[string][]Handler),
		logger:       logger,
		asyncTimeout: 30 * time.Second,
	}
}

// Subscribe registers a handler for the given event name.
func (b *InMemoryBus) Subscribe(eventName string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], handler)
}

// Publish dispatches the event to all registered handlers asynchronously.
// Handler errors are logged, not returned; publication never fails the caller.
func (b *InMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		go func(h Handler) {
			// Detach from the request context so in-flight handlers survive
			// the originating request, but keep a bound on their lifetime.
			hctx, cancel := context.WithTimeout(context.Background(), b.asyncTimeout)
			defer cancel()

			if err := h.Handle(hctx, event); err != nil {
				b.logger.Error("event handler failed",
					slog.String("event", event.EventName()),
					slog.String("error", err.Error()),
				)
			}
		}(h)
	}
}

// PublishSync dispatches the event and waits for all handlers.
// Returns the first handler error encountered.
func (b *InMemoryBus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h.Handle(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

var _ Bus = (*InMemoryBus)(nil)
