package analysis

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snapsearch/snap-search/internal/bus"
	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
	"github.com/snapsearch/snap-search/internal/pkg/hash"
	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/store"
)

// WorkerConfig holds analysis worker settings.
type WorkerConfig struct {
	Workers      int
	MaxAttempts  int
	PollInterval time.Duration
}

// Worker pulls analysis tasks from the queue and runs them through
// the labeler, retrying failures up to MaxAttempts.
type Worker struct {
	queue   Queue
	labeler Labeler
	photos  *store.Service
	bus     bus.Bus
	log     *logger.Logger
	cfg     WorkerConfig
}

// NewWorker creates an analysis worker pool.
func NewWorker(queue Queue, labeler Labeler, photos *store.Service, eventBus bus.Bus, log *logger.Logger, cfg WorkerConfig) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if log == nil {
		log = logger.Default()
	}

	return &Worker{
		queue:   queue,
		labeler: labeler,
		photos:  photos,
		bus:     eventBus,
		log:     log,
		cfg:     cfg,
	}
}

// Submit enqueues a new analysis task for a photo and announces it on
// the bus. Returns the task ID.
func (w *Worker) Submit(ctx context.Context, photoID, imageURL string) (string, error) {
	taskID := hash.SHA256Short([]byte(fmt.Sprintf("%s:%d", photoID, time.Now().UnixNano())), 16)
	task := NewTask(taskID, photoID, imageURL)

	if err := w.queue.Enqueue(ctx, task); err != nil {
		return "", err
	}

	w.publish(ctx, bus.TopicAnalysisRequest, bus.Event{
		Type:   bus.TopicAnalysisRequest,
		Source: "analysis",
		Payload: map[string]interface{}{
			"task_id":  task.ID,
			"photo_id": task.PhotoID,
		},
	})

	if w.log != nil {
		w.log.WithPhoto(photoID).Debug("analysis task submitted", "task_id", taskID)
	}
	return taskID, nil
}

// Run starts the worker pool and blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < w.cfg.Workers; i++ {
		g.Go(func() error {
			return w.loop(gctx)
		})
	}

	return g.Wait()
}

func (w *Worker) loop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes queued tasks until the queue is empty.
func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if w.log != nil {
				w.log.Error("dequeue failed", "error", err)
			}
			return
		}
		if task == nil {
			return
		}

		w.Process(ctx, task)
	}
}

// Process runs one task through the labeler and persists the outcome.
func (w *Worker) Process(ctx context.Context, task *Task) {
	start := time.Now()

	log := w.log
	if log != nil {
		log = log.WithPhoto(task.PhotoID)
	}

	task.Status = store.StatusProcessing
	task.Attempts++
	task.UpdatedAt = time.Now()
	if err := w.queue.UpdateTask(ctx, task); err != nil && log != nil {
		log.Warn("updating task state failed", "error", err)
	}

	if err := w.photos.SetAnalysisStatus(ctx, task.PhotoID, store.StatusProcessing); err != nil {
		// Photo may have been deleted while queued.
		if apperrors.IsNotFound(err) {
			task.Status = store.StatusFailed
			task.LastError = "photo no longer exists"
			task.UpdatedAt = time.Now()
			_ = w.queue.UpdateTask(ctx, task)
			return
		}
		if log != nil {
			log.Warn("marking photo processing failed", "error", err)
		}
	}

	result, err := w.labeler.Label(ctx, task)
	if err != nil {
		w.handleFailure(ctx, task, err)
		return
	}

	if err := w.photos.SetAnalysisResult(ctx, task.PhotoID, result.Labels, result.Confidence); err != nil {
		w.handleFailure(ctx, task, err)
		return
	}

	task.Status = store.StatusCompleted
	task.LastError = ""
	task.UpdatedAt = time.Now()
	if err := w.queue.UpdateTask(ctx, task); err != nil && log != nil {
		log.Warn("updating task state failed", "error", err)
	}

	w.publish(ctx, bus.TopicAnalysisCompleted, bus.Event{
		Type:   bus.TopicAnalysisCompleted,
		Source: "analysis",
		Payload: map[string]interface{}{
			"task_id":    task.ID,
			"photo_id":   task.PhotoID,
			"confidence": result.Confidence,
			"attempts":   task.Attempts,
			"latency_ms": time.Since(start).Milliseconds(),
		},
	})

	if log != nil {
		log.Info("analysis completed", "task_id", task.ID, "confidence", result.Confidence)
	}
}

func (w *Worker) handleFailure(ctx context.Context, task *Task, cause error) {
	log := w.log
	if log != nil {
		log = log.WithPhoto(task.PhotoID)
	}

	task.LastError = cause.Error()
	task.UpdatedAt = time.Now()

	// Validation failures are permanent; retrying the same input
	// cannot succeed.
	if task.Attempts < w.cfg.MaxAttempts && !apperrors.IsValidation(cause) {
		task.Status = store.StatusPending
		if err := w.queue.Enqueue(ctx, task); err != nil && log != nil {
			log.Error("requeue failed", "error", err)
		}
		_ = w.photos.SetAnalysisStatus(ctx, task.PhotoID, store.StatusPending)

		if log != nil {
			log.Warn("analysis failed, retrying", "task_id", task.ID, "attempt", task.Attempts, "error", cause)
		}
		return
	}

	task.Status = store.StatusFailed
	if err := w.queue.UpdateTask(ctx, task); err != nil && log != nil {
		log.Warn("updating task state failed", "error", err)
	}
	_ = w.photos.SetAnalysisStatus(ctx, task.PhotoID, store.StatusFailed)

	w.publish(ctx, bus.TopicAnalysisFailed, bus.Event{
		Type:   bus.TopicAnalysisFailed,
		Source: "analysis",
		Payload: map[string]interface{}{
			"task_id":  task.ID,
			"photo_id": task.PhotoID,
			"attempts": task.Attempts,
			"error":    cause.Error(),
		},
	})

	if log != nil {
		log.Error("analysis failed permanently", "task_id", task.ID, "attempts", task.Attempts, "error", cause)
	}
}

func (w *Worker) publish(ctx context.Context, topic string, event bus.Event) {
	if w.bus == nil {
		return
	}
	if err := w.bus.Publish(ctx, topic, event); err != nil && w.log != nil {
		w.log.Debug("publishing event failed", "topic", topic, "error", err)
	}
}
