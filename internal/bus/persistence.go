package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/snapsearch/snap-search/internal/pkg/errors"
)

// LoggedEvent is one journal entry: the event, the topic it was published
// on, and when it was written.
type LoggedEvent struct {
	Event     Event     `json:"event"`
	Topic     string    `json:"topic"`
	Timestamp time.Time `json:"timestamp"`
}

// EventLogger journals published events to a JSON-lines file so they can be
// inspected or replayed later. A disabled logger accepts writes as no-ops.
type EventLogger struct {
	logPath string
	mu      sync.Mutex
	file    *os.File
	enabled bool
	encoder *json.Encoder
}

// NewEventLogger opens the journal file for appending, creating parent
// directories as needed.
func NewEventLogger(logPath string, enabled bool) (*EventLogger, error) {
	l := &EventLogger{
		logPath: logPath,
		enabled: enabled,
	}
	if !enabled {
		return l, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("creating event log directory: %w", err)
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	l.file = file
	l.encoder = json.NewEncoder(file)
	return l, nil
}

// Log appends one event to the journal and syncs it to disk.
func (l *EventLogger) Log(topic string, event Event) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.New(errors.CodeInternal, "event logger not initialized")
	}

	entry := LoggedEvent{
		Event:     event,
		Topic:     topic,
		Timestamp: time.Now(),
	}
	if err := l.encoder.Encode(entry); err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	// Sync so the journal stays useful after a crash.
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing event log: %w", err)
	}
	return nil
}

// GetEvents returns journal entries written after since, oldest first.
// A limit of 0 means no limit. Malformed lines are skipped.
func (l *EventLogger) GetEvents(since time.Time, limit int) ([]LoggedEvent, error) {
	if !l.enabled {
		return nil, errors.New(errors.CodeUnavailable, "event logging is disabled")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []LoggedEvent{}, nil
		}
		return nil, fmt.Errorf("opening event log: %w", err)
	}
	defer file.Close()

	var events []LoggedEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		var entry LoggedEvent
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		if !entry.Timestamp.After(since) {
			continue
		}
		events = append(events, entry)
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning event log: %w", err)
	}
	return events, nil
}

// Replay republishes journaled events written after since, in order.
func (l *EventLogger) Replay(ctx context.Context, bus Bus, since time.Time) error {
	if !l.enabled {
		return errors.New(errors.CodeUnavailable, "event logging is disabled")
	}

	events, err := l.GetEvents(since, 0)
	if err != nil {
		return err
	}

	for _, entry := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := bus.Publish(ctx, entry.Topic, entry.Event); err != nil {
			return fmt.Errorf("replaying event %s: %w", entry.Event.ID, err)
		}
	}
	return nil
}

// Close closes the journal file.
func (l *EventLogger) Close() error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Close(); err != nil {
			return fmt.Errorf("closing event log: %w", err)
		}
		l.file = nil
		l.encoder = nil
	}
	return nil
}

// IsEnabled reports whether the journal accepts writes.
func (l *EventLogger) IsEnabled() bool {
	return l.enabled
}
