package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

// Label kinds used for secondary indexes.
const (
	LabelScene   = "scene"
	LabelObject  = "object"
	LabelEmotion = "emotion"
)

// Storage is the interface for photo persistence.
type Storage interface {
	// SavePhoto saves a photo record and its index entries.
	SavePhoto(ctx context.Context, photo *PhotoRecord) error

	// GetPhoto loads a photo record by ID.
	GetPhoto(ctx context.Context, id string) (*PhotoRecord, error)

	// GetPhotos loads multiple records by ID, skipping missing ones.
	GetPhotos(ctx context.Context, ids []string) ([]*PhotoRecord, error)

	// DeletePhoto removes a photo record and its index entries.
	DeletePhoto(ctx context.Context, id string) error

	// IDsByLabel returns photo IDs carrying the given AI label.
	IDsByLabel(ctx context.Context, kind, term string) ([]string, error)

	// IDsByTag returns photo IDs carrying the given user tag.
	IDsByTag(ctx context.Context, tag string) ([]string, error)

	// IDsByDateRange returns photo IDs taken within [start, end].
	// A nil bound is open-ended.
	IDsByDateRange(ctx context.Context, start, end *time.Time) ([]string, error)

	// AllIDs returns every stored photo ID.
	AllIDs(ctx context.Context) ([]string, error)

	// CountPhotos returns the number of stored photos.
	CountPhotos(ctx context.Context) (int64, error)

	// Ping checks the backend connection.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// MemoryStorage keeps photo records in memory (for testing and
// single-node setups without Redis).
type MemoryStorage struct {
	photos map[string]*PhotoRecord
	mu     sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		photos: make(map[string]*PhotoRecord),
	}
}

func (m *MemoryStorage) SavePhoto(ctx context.Context, photo *PhotoRecord) error {
	if err := photo.Validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy to avoid external mutations
	cp := *photo
	m.photos[photo.ID] = &cp
	return nil
}

func (m *MemoryStorage) GetPhoto(ctx context.Context, id string) (*PhotoRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	photo, exists := m.photos[id]
	if !exists {
		return nil, apperrors.NotFoundError("photo " + id)
	}

	cp := *photo
	return &cp, nil
}

func (m *MemoryStorage) GetPhotos(ctx context.Context, ids []string) ([]*PhotoRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]*PhotoRecord, 0, len(ids))
	for _, id := range ids {
		if photo, exists := m.photos[id]; exists {
			cp := *photo
			records = append(records, &cp)
		}
	}
	return records, nil
}

func (m *MemoryStorage) DeletePhoto(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.photos[id]; !exists {
		return apperrors.NotFoundError("photo " + id)
	}

	delete(m.photos, id)
	return nil
}

func (m *MemoryStorage) IDsByLabel(ctx context.Context, kind, term string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, photo := range m.photos {
		var labels []string
		switch kind {
		case LabelScene:
			labels = photo.Scenes
		case LabelObject:
			labels = photo.Objects
		case LabelEmotion:
			labels = photo.Emotions
		}
		for _, label := range labels {
			if strings.EqualFold(label, term) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStorage) IDsByTag(ctx context.Context, tag string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, photo := range m.photos {
		for _, t := range photo.TagNames {
			if strings.EqualFold(t, tag) {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStorage) IDsByDateRange(ctx context.Context, start, end *time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, photo := range m.photos {
		if photo.TakenAt == nil {
			continue
		}
		if start != nil && photo.TakenAt.Before(*start) {
			continue
		}
		if end != nil && photo.TakenAt.After(*end) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStorage) AllIDs(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.photos))
	for id := range m.photos {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStorage) CountPhotos(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.photos)), nil
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
