// Package analysis runs AI labeling of photos through a task queue.
// Uploaded photos enter the queue as pending tasks; workers pull tasks,
// call a Labeler, and write the resulting labels back to the store.
package analysis

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
	"github.com/snapsearch/snap-search/internal/store"
)

// Task is a unit of analysis work for one photo.
type Task struct {
	ID        string    `json:"id"`
	PhotoID   string    `json:"photo_id"`
	ImageURL  string    `json:"image_url,omitempty"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask creates a pending task for a photo.
func NewTask(id, photoID, imageURL string) *Task {
	now := time.Now()
	return &Task{
		ID:        id,
		PhotoID:   photoID,
		ImageURL:  imageURL,
		Status:    store.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Queue is the interface for analysis task queues.
type Queue interface {
	// Enqueue adds a task to the pending queue.
	Enqueue(ctx context.Context, task *Task) error

	// Dequeue removes and returns the oldest pending task.
	// Returns nil when the queue is empty.
	Dequeue(ctx context.Context) (*Task, error)

	// GetTask loads a task by ID.
	GetTask(ctx context.Context, id string) (*Task, error)

	// UpdateTask persists task state changes.
	UpdateTask(ctx context.Context, task *Task) error

	// PendingCount returns the number of queued tasks.
	PendingCount(ctx context.Context) (int64, error)

	// Close releases queue resources.
	Close() error
}

// MemoryQueue is an in-memory task queue for testing and single-node use.
type MemoryQueue struct {
	mu      sync.Mutex
	pending []string
	tasks   map[string]*Task
}

// NewMemoryQueue creates a new in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		tasks: make(map[string]*Task),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cp := *task
	q.tasks[task.ID] = &cp
	q.pending = append(q.pending, task.ID)
	return nil
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, nil
	}

	id := q.pending[0]
	q.pending = q.pending[1:]

	task, exists := q.tasks[id]
	if !exists {
		return nil, nil
	}

	cp := *task
	return &cp, nil
}

func (q *MemoryQueue) GetTask(ctx context.Context, id string) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task, exists := q.tasks[id]
	if !exists {
		return nil, apperrors.NotFoundError("task " + id)
	}

	cp := *task
	return &cp, nil
}

func (q *MemoryQueue) UpdateTask(ctx context.Context, task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	cp := *task
	q.tasks[task.ID] = &cp
	return nil
}

func (q *MemoryQueue) PendingCount(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return int64(len(q.pending)), nil
}

func (q *MemoryQueue) Close() error {
	return nil
}

// RedisQueue is a Redis-backed task queue. The pending queue is a list,
// task state lives in per-task JSON strings.
type RedisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue creates a Redis-backed queue on an existing client URL.
func NewRedisQueue(url, keyPrefix string) (*RedisQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperrors.StorageError("parsing redis URL", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, apperrors.StorageError("connecting to redis", err)
	}

	if keyPrefix == "" {
		keyPrefix = "snap:"
	}

	return &RedisQueue{
		client: client,
		prefix: keyPrefix,
	}, nil
}

func (q *RedisQueue) pendingKey() string {
	return q.prefix + "analysis:pending"
}

func (q *RedisQueue) taskKey(id string) string {
	return q.prefix + "analysis:task:" + id
}

func (q *RedisQueue) Enqueue(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return apperrors.StorageError("marshaling task", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.taskKey(task.ID), data, 0)
	pipe.LPush(ctx, q.pendingKey(), task.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.StorageError("enqueuing task", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Task, error) {
	id, err := q.client.RPop(ctx, q.pendingKey()).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.StorageError("dequeuing task", err)
	}

	return q.GetTask(ctx, id)
}

func (q *RedisQueue) GetTask(ctx context.Context, id string) (*Task, error) {
	data, err := q.client.Get(ctx, q.taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NotFoundError("task " + id)
	}
	if err != nil {
		return nil, apperrors.StorageError("loading task", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, apperrors.StorageError("unmarshaling task", err)
	}
	return &task, nil
}

func (q *RedisQueue) UpdateTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return apperrors.StorageError("marshaling task", err)
	}

	if err := q.client.Set(ctx, q.taskKey(task.ID), data, 0).Err(); err != nil {
		return apperrors.StorageError("updating task", err)
	}
	return nil
}

func (q *RedisQueue) PendingCount(ctx context.Context) (int64, error) {
	count, err := q.client.LLen(ctx, q.pendingKey()).Result()
	if err != nil {
		return 0, apperrors.StorageError("counting pending tasks", err)
	}
	return count, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
