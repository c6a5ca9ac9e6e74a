package bus

import (
	"context"
	"time"

	"github.com/snapsearch/snap-search/internal/pkg/logger"
)

// MetricsRecorder receives publish measurements. Declared here so the bus
// package does not import metrics.
type MetricsRecorder interface {
	RecordBusPublish(topic string, latencyMs int64, err error)
}

// InstrumentedBus decorates a Bus with publish metrics.
type InstrumentedBus struct {
	inner   Bus
	metrics MetricsRecorder
}

// NewInstrumentedBus wraps inner so every publish is measured.
func NewInstrumentedBus(inner Bus, metrics MetricsRecorder) *InstrumentedBus {
	return &InstrumentedBus{inner: inner, metrics: metrics}
}

func (b *InstrumentedBus) Publish(ctx context.Context, topic string, event Event) error {
	start := time.Now()
	err := b.inner.Publish(ctx, topic, event)

	if b.metrics != nil {
		b.metrics.RecordBusPublish(topic, time.Since(start).Milliseconds(), err)
	}
	return err
}

func (b *InstrumentedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

func (b *InstrumentedBus) Close() error {
	return b.inner.Close()
}

// LoggedBus decorates a Bus with a durable event journal, so published
// events can be inspected and replayed later.
type LoggedBus struct {
	inner   Bus
	journal *EventLogger
	log     *logger.Logger
}

// NewLoggedBus wraps inner so every event is journaled before publish.
// A nil log falls back to the default logger.
func NewLoggedBus(inner Bus, journal *EventLogger, log *logger.Logger) *LoggedBus {
	if log == nil {
		log = logger.Default()
	}
	return &LoggedBus{inner: inner, journal: journal, log: log}
}

// Publish journals the event best-effort, then delegates. A journal write
// failure never blocks the publish.
func (b *LoggedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.journal.Log(topic, event); err != nil {
		b.log.Warn("Event journal write failed", "topic", topic, "event_id", event.ID, "error", err.Error())
	}
	return b.inner.Publish(ctx, topic, event)
}

func (b *LoggedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close flushes the journal before closing the inner bus.
func (b *LoggedBus) Close() error {
	if err := b.journal.Close(); err != nil {
		b.log.Warn("Event journal close failed", "error", err.Error())
	}
	return b.inner.Close()
}
