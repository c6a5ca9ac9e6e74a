package metrics

import (
	"context"

	"github.com/snapsearch/snap-search/internal/bus"
)

// EventSubscriber subscribes to event bus and updates metrics.
type EventSubscriber struct {
	metrics *Metrics
	bus     bus.Bus
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(metrics *Metrics, eventBus bus.Bus) *EventSubscriber {
	return &EventSubscriber{
		metrics: metrics,
		bus:     eventBus,
	}
}

// SubscribeToEvents subscribes to all relevant events and updates metrics.
func (es *EventSubscriber) SubscribeToEvents(ctx context.Context) error {
	// Photo lifecycle events
	if err := es.bus.Subscribe(ctx, bus.TopicPhotoUploaded, es.handlePhotoUploaded); err != nil {
		return err
	}
	if err := es.bus.Subscribe(ctx, bus.TopicPhotoDeleted, es.handlePhotoDeleted); err != nil {
		return err
	}

	// Analysis pipeline events
	if err := es.bus.Subscribe(ctx, bus.TopicAnalysisRequest, es.handleAnalysisRequest); err != nil {
		return err
	}
	if err := es.bus.Subscribe(ctx, bus.TopicAnalysisCompleted, es.handleAnalysisCompleted); err != nil {
		return err
	}
	if err := es.bus.Subscribe(ctx, bus.TopicAnalysisFailed, es.handleAnalysisFailed); err != nil {
		return err
	}

	return nil
}

// Event handlers

func (es *EventSubscriber) handlePhotoUploaded(ctx context.Context, event bus.Event) error {
	es.metrics.RecordIngest(nil)
	return nil
}

func (es *EventSubscriber) handlePhotoDeleted(ctx context.Context, event bus.Event) error {
	es.metrics.RecordDelete()
	return nil
}

func (es *EventSubscriber) handleAnalysisRequest(ctx context.Context, event bus.Event) error {
	es.metrics.RecordAnalysisSubmitted()
	return nil
}

func (es *EventSubscriber) handleAnalysisCompleted(ctx context.Context, event bus.Event) error {
	payload, _ := event.Payload.(map[string]interface{})

	if latency, ok := payload["latency_ms"].(int64); ok {
		es.metrics.RecordAnalysisCompleted(latency)
	} else {
		es.metrics.AnalysisCompleted.Inc()
	}

	// Attempts beyond the first were retries.
	if attempts, ok := payload["attempts"].(int); ok && attempts > 1 {
		for i := 1; i < attempts; i++ {
			es.metrics.RecordAnalysisRetry()
		}
	}
	return nil
}

func (es *EventSubscriber) handleAnalysisFailed(ctx context.Context, event bus.Event) error {
	es.metrics.RecordAnalysisFailed()
	return nil
}
