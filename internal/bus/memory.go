package bus

import (
	"context"
	"sync"
	"time"

	"github.com/snapsearch/snap-search/internal/pkg/errors"
	"github.com/snapsearch/snap-search/internal/pkg/logger"
)

// closeDrainTimeout bounds how long Close waits for handlers.
const closeDrainTimeout = 10 * time.Second

// MemoryBus dispatches events to in-process subscribers. Handlers run
// on their own goroutines, tracked so Close can drain them.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	closed   bool

	inflight sync.WaitGroup
	log      *logger.Logger
}

// NewMemoryBus creates an in-process event bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]Handler),
		log:      logger.Default(),
	}
}

// Publish fans the event out to every subscriber of topic. Events on
// topics without subscribers are dropped silently.
func (b *MemoryBus) Publish(ctx context.Context, topic string, event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}
	subs := b.handlers[topic]
	b.mu.RUnlock()

	for _, handler := range subs {
		b.inflight.Add(1)
		go func(h Handler) {
			defer b.inflight.Done()
			// A failing handler never fails the publish; the error
			// surfaces only in the log.
			if err := h(ctx, event); err != nil {
				b.log.Warn("Event handler failed",
					"topic", topic,
					"event_id", event.ID,
					"error", err.Error(),
				)
			}
		}(handler)
	}

	return nil
}

// Subscribe registers handler for topic. There is no unsubscribe;
// subscriptions live until the bus closes.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errors.New(errors.CodeUnavailable, "bus is closed")
	}

	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

// Close stops accepting events, waits for in-flight handlers up to a
// bounded time, then drops all subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	if !b.DrainTimeout(closeDrainTimeout) {
		b.log.Warn("Event drain timeout reached, some handlers may not have completed")
	}

	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()

	return nil
}

// DrainTimeout blocks until every in-flight handler has returned or the
// timeout elapses. It reports whether the bus fully drained.
func (b *MemoryBus) DrainTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
