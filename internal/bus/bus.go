// Package bus carries events between pipeline stages. Implementations
// range from the in-process MemoryBus to Kafka.
package bus

import "context"

// Handler consumes one event. Returning an error marks the delivery
// failed; whether it is retried is up to the implementation.
type Handler func(ctx context.Context, event Event) error

// Bus is the publish-subscribe surface shared by all implementations.
type Bus interface {
	// Publish delivers event to the subscribers of topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers handler for every future event on topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close drains in-flight handlers and releases transport resources.
	Close() error
}

// Event is the envelope every topic carries.
type Event struct {
	ID        string `json:"id"`        // unique per event
	Type      string `json:"type"`      // mirrors the topic name
	Source    string `json:"source"`    // producing component
	Timestamp int64  `json:"timestamp"` // unix seconds at creation
	Payload   any    `json:"payload"`
}

// Topic names. Producers and subscribers agree on these constants.
const (
	// Photo lifecycle.
	TopicPhotoUploaded = "photo.uploaded"
	TopicPhotoDeleted  = "photo.deleted"

	// Analysis pipeline.
	TopicAnalysisRequest   = "analysis.request"
	TopicAnalysisCompleted = "analysis.completed"
	TopicAnalysisFailed    = "analysis.failed"
)
