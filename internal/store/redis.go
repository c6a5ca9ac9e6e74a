package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

// RedisStorage provides Redis-backed photo persistence.
// Records are stored as JSON strings; labels, tags, and capture time
// get secondary indexes (sets and a sorted set) for candidate selection.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a new Redis storage backend.
// Returns error if connection fails.
func NewRedisStorage(url, keyPrefix string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	if keyPrefix == "" {
		keyPrefix = "snap:"
	}

	return &RedisStorage{
		client: client,
		prefix: keyPrefix,
	}, nil
}

func (rs *RedisStorage) recordKey(id string) string {
	return rs.prefix + "photos:record:" + id
}

func (rs *RedisStorage) labelKey(kind, term string) string {
	return rs.prefix + "photos:label:" + kind + ":" + strings.ToLower(term)
}

func (rs *RedisStorage) tagKey(tag string) string {
	return rs.prefix + "photos:tag:" + strings.ToLower(tag)
}

func (rs *RedisStorage) allKey() string {
	return rs.prefix + "photos:all"
}

func (rs *RedisStorage) takenKey() string {
	return rs.prefix + "photos:taken"
}

// SavePhoto writes the record and rebuilds its index entries atomically.
func (rs *RedisStorage) SavePhoto(ctx context.Context, photo *PhotoRecord) error {
	if err := photo.Validate(); err != nil {
		return apperrors.ValidationError(err.Error())
	}

	data, err := json.Marshal(photo)
	if err != nil {
		return apperrors.StorageError("marshaling photo record", err)
	}

	// Load the previous version so stale index entries can be removed.
	prev, err := rs.GetPhoto(ctx, photo.ID)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}

	pipe := rs.client.TxPipeline()

	if prev != nil {
		rs.removeIndexEntries(ctx, pipe, prev)
	}

	pipe.Set(ctx, rs.recordKey(photo.ID), data, 0)
	pipe.SAdd(ctx, rs.allKey(), photo.ID)
	rs.addIndexEntries(ctx, pipe, photo)

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.StorageError("saving photo record", err)
	}

	return nil
}

func (rs *RedisStorage) addIndexEntries(ctx context.Context, pipe redis.Pipeliner, photo *PhotoRecord) {
	for _, scene := range photo.Scenes {
		pipe.SAdd(ctx, rs.labelKey(LabelScene, scene), photo.ID)
	}
	for _, object := range photo.Objects {
		pipe.SAdd(ctx, rs.labelKey(LabelObject, object), photo.ID)
	}
	for _, emotion := range photo.Emotions {
		pipe.SAdd(ctx, rs.labelKey(LabelEmotion, emotion), photo.ID)
	}
	for _, tag := range photo.TagNames {
		pipe.SAdd(ctx, rs.tagKey(tag), photo.ID)
	}
	if photo.TakenAt != nil {
		pipe.ZAdd(ctx, rs.takenKey(), redis.Z{
			Score:  float64(photo.TakenAt.Unix()),
			Member: photo.ID,
		})
	}
}

func (rs *RedisStorage) removeIndexEntries(ctx context.Context, pipe redis.Pipeliner, photo *PhotoRecord) {
	for _, scene := range photo.Scenes {
		pipe.SRem(ctx, rs.labelKey(LabelScene, scene), photo.ID)
	}
	for _, object := range photo.Objects {
		pipe.SRem(ctx, rs.labelKey(LabelObject, object), photo.ID)
	}
	for _, emotion := range photo.Emotions {
		pipe.SRem(ctx, rs.labelKey(LabelEmotion, emotion), photo.ID)
	}
	for _, tag := range photo.TagNames {
		pipe.SRem(ctx, rs.tagKey(tag), photo.ID)
	}
	pipe.ZRem(ctx, rs.takenKey(), photo.ID)
}

// GetPhoto loads a photo record by ID.
func (rs *RedisStorage) GetPhoto(ctx context.Context, id string) (*PhotoRecord, error) {
	data, err := rs.client.Get(ctx, rs.recordKey(id)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.NotFoundError("photo " + id)
	}
	if err != nil {
		return nil, apperrors.StorageError("loading photo record", err)
	}

	var photo PhotoRecord
	if err := json.Unmarshal(data, &photo); err != nil {
		return nil, apperrors.StorageError("unmarshaling photo record", err)
	}

	return &photo, nil
}

// GetPhotos loads multiple records with a single MGET, skipping missing
// or unreadable entries.
func (rs *RedisStorage) GetPhotos(ctx context.Context, ids []string) ([]*PhotoRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = rs.recordKey(id)
	}

	values, err := rs.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, apperrors.StorageError("loading photo records", err)
	}

	records := make([]*PhotoRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}

		var photo PhotoRecord
		if err := json.Unmarshal([]byte(s), &photo); err != nil {
			continue
		}
		records = append(records, &photo)
	}

	return records, nil
}

// DeletePhoto removes the record and all its index entries.
func (rs *RedisStorage) DeletePhoto(ctx context.Context, id string) error {
	photo, err := rs.GetPhoto(ctx, id)
	if err != nil {
		return err
	}

	pipe := rs.client.TxPipeline()
	rs.removeIndexEntries(ctx, pipe, photo)
	pipe.SRem(ctx, rs.allKey(), id)
	pipe.Del(ctx, rs.recordKey(id))

	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.StorageError("deleting photo record", err)
	}

	return nil
}

func (rs *RedisStorage) IDsByLabel(ctx context.Context, kind, term string) ([]string, error) {
	ids, err := rs.client.SMembers(ctx, rs.labelKey(kind, term)).Result()
	if err != nil {
		return nil, apperrors.StorageError("reading label index", err)
	}
	return ids, nil
}

func (rs *RedisStorage) IDsByTag(ctx context.Context, tag string) ([]string, error) {
	ids, err := rs.client.SMembers(ctx, rs.tagKey(tag)).Result()
	if err != nil {
		return nil, apperrors.StorageError("reading tag index", err)
	}
	return ids, nil
}

func (rs *RedisStorage) IDsByDateRange(ctx context.Context, start, end *time.Time) ([]string, error) {
	min := "-inf"
	max := "+inf"
	if start != nil {
		min = fmt.Sprintf("%d", start.Unix())
	}
	if end != nil {
		max = fmt.Sprintf("%d", end.Unix())
	}

	ids, err := rs.client.ZRangeByScore(ctx, rs.takenKey(), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, apperrors.StorageError("reading capture time index", err)
	}
	return ids, nil
}

func (rs *RedisStorage) AllIDs(ctx context.Context) ([]string, error) {
	ids, err := rs.client.SMembers(ctx, rs.allKey()).Result()
	if err != nil {
		return nil, apperrors.StorageError("listing photos", err)
	}
	return ids, nil
}

func (rs *RedisStorage) CountPhotos(ctx context.Context) (int64, error) {
	count, err := rs.client.SCard(ctx, rs.allKey()).Result()
	if err != nil {
		return 0, apperrors.StorageError("counting photos", err)
	}
	return count, nil
}

// Ping checks the Redis connection.
func (rs *RedisStorage) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
