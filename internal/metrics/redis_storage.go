package metrics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultHistoryTTL = 24 * time.Hour

// RedisStorage persists metric history as Redis sorted sets, one set per
// metric, scored by timestamp so range loads are a single ZRANGEBYSCORE.
type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStorage connects to Redis and verifies the connection.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisStorage{
		client: client,
		prefix: "snap:metrics:",
		ttl:    defaultHistoryTTL,
	}, nil
}

func (rs *RedisStorage) metricKey(metric string) string {
	return rs.prefix + metric
}

// encodePoint builds the sorted-set member. The nanosecond prefix keeps
// members unique so repeated values are not collapsed by the set.
func encodePoint(dp DataPoint) redis.Z {
	return redis.Z{
		Score:  float64(dp.Timestamp.Unix()),
		Member: fmt.Sprintf("%d:%s", dp.Timestamp.UnixNano(), strconv.FormatFloat(dp.Value, 'f', -1, 64)),
	}
}

func decodePoint(z redis.Z) (DataPoint, bool) {
	member, ok := z.Member.(string)
	if !ok {
		return DataPoint{}, false
	}
	_, raw, found := strings.Cut(member, ":")
	if !found {
		raw = member
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return DataPoint{}, false
	}
	return DataPoint{
		Timestamp: time.Unix(int64(z.Score), 0),
		Value:     value,
	}, true
}

// SaveDataPoint appends a single data point and drops expired ones.
func (rs *RedisStorage) SaveDataPoint(ctx context.Context, metric string, dp DataPoint) error {
	return rs.SaveBatch(ctx, metric, []DataPoint{dp})
}

// SaveBatch appends data points in one pipelined round trip.
func (rs *RedisStorage) SaveBatch(ctx context.Context, metric string, dataPoints []DataPoint) error {
	if len(dataPoints) == 0 {
		return nil
	}

	key := rs.metricKey(metric)
	members := make([]redis.Z, len(dataPoints))
	for i, dp := range dataPoints {
		members[i] = encodePoint(dp)
	}

	pipe := rs.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)

	// Expire points older than the retention window while we are here.
	cutoff := time.Now().Add(-rs.ttl).Unix()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving data points: %w", err)
	}
	return nil
}

// LoadHistory returns data points observed at or after the given time.
func (rs *RedisStorage) LoadHistory(ctx context.Context, metric string, since time.Time) ([]DataPoint, error) {
	results, err := rs.client.ZRangeByScoreWithScores(ctx, rs.metricKey(metric), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	dataPoints := make([]DataPoint, 0, len(results))
	for _, z := range results {
		if dp, ok := decodePoint(z); ok {
			dataPoints = append(dataPoints, dp)
		}
	}
	return dataPoints, nil
}

// DeleteMetric removes all history for a metric.
func (rs *RedisStorage) DeleteMetric(ctx context.Context, metric string) error {
	if err := rs.client.Del(ctx, rs.metricKey(metric)).Err(); err != nil {
		return fmt.Errorf("deleting metric: %w", err)
	}
	return nil
}

// SetTTL overrides the retention window for subsequent saves.
func (rs *RedisStorage) SetTTL(ttl time.Duration) {
	rs.ttl = ttl
}

// Close closes the Redis connection.
func (rs *RedisStorage) Close() error {
	return rs.client.Close()
}
