package metrics

import (
	"context"
	"sync"
	"time"
)

// DataPoint is a single time-series observation.
type DataPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// aggregation controls how a bucket collapses its samples.
type aggregation int

const (
	aggregateAvg aggregation = iota
	aggregateSum
)

// MetricHistory collects samples into fixed-duration buckets and retains a
// bounded window of finalized buckets. An optional Redis backend persists
// finalized buckets so history survives restarts.
type MetricHistory struct {
	mu          sync.Mutex
	buckets     []DataPoint
	bucketSize  time.Duration
	maxBuckets  int
	mode        aggregation
	accumulator float64
	count       int64
	lastBucket  time.Time
	storage     *RedisStorage
	metricName  string
}

// NewMetricHistory creates an in-memory history. bucketSize is the duration
// covered by one data point, maxBuckets the number of points retained.
func NewMetricHistory(bucketSize time.Duration, maxBuckets int) *MetricHistory {
	return &MetricHistory{
		buckets:    make([]DataPoint, 0, maxBuckets),
		bucketSize: bucketSize,
		maxBuckets: maxBuckets,
		lastBucket: time.Now().Truncate(bucketSize),
	}
}

// NewMetricHistoryWithRedis creates a history that persists finalized
// buckets to Redis and seeds itself from any history already stored there.
func NewMetricHistoryWithRedis(bucketSize time.Duration, maxBuckets int, storage *RedisStorage, metricName string) *MetricHistory {
	h := NewMetricHistory(bucketSize, maxBuckets)
	h.storage = storage
	h.metricName = metricName

	if storage != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		since := time.Now().Add(-time.Duration(maxBuckets) * bucketSize)
		if dataPoints, err := storage.LoadHistory(ctx, metricName, since); err == nil && len(dataPoints) > 0 {
			h.buckets = dataPoints
		}
	}
	return h
}

// Record adds a sample. The finalized bucket value is the sample average.
func (h *MetricHistory) Record(value float64) {
	h.record(value, aggregateAvg)
}

// RecordCount counts an event, for rate-style series. The finalized bucket
// value is the number of events in the bucket.
func (h *MetricHistory) RecordCount() {
	h.record(1, aggregateSum)
}

// RecordSum adds a sample. The finalized bucket value is the sample sum.
func (h *MetricHistory) RecordSum(value float64) {
	h.record(value, aggregateSum)
}

func (h *MetricHistory) record(value float64, mode aggregation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.mode = mode
	h.rollBucket(time.Now())
	h.accumulator += value
	h.count++
}

// rollBucket finalizes the current bucket when time has moved past it.
// Must be called with the lock held.
func (h *MetricHistory) rollBucket(now time.Time) {
	currentBucket := now.Truncate(h.bucketSize)
	if !currentBucket.After(h.lastBucket) {
		return
	}

	if h.count > 0 {
		dp := DataPoint{Timestamp: h.lastBucket, Value: h.bucketValue()}
		h.buckets = append(h.buckets, dp)
		if len(h.buckets) > h.maxBuckets {
			h.buckets = h.buckets[len(h.buckets)-h.maxBuckets:]
		}
		h.persist(dp)
	}

	h.accumulator = 0
	h.count = 0
	h.lastBucket = currentBucket
}

func (h *MetricHistory) bucketValue() float64 {
	if h.mode == aggregateSum || h.count == 0 {
		return h.accumulator
	}
	return h.accumulator / float64(h.count)
}

// persist writes a finalized bucket to Redis without blocking the recorder.
func (h *MetricHistory) persist(dp DataPoint) {
	if h.storage == nil || h.metricName == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.storage.SaveDataPoint(ctx, h.metricName, dp)
	}()
}

// Snapshot returns finalized buckets plus the in-progress bucket, if any.
func (h *MetricHistory) Snapshot() []DataPoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.rollBucket(time.Now())

	result := make([]DataPoint, len(h.buckets), len(h.buckets)+1)
	copy(result, h.buckets)
	if h.count > 0 {
		result = append(result, DataPoint{Timestamp: h.lastBucket, Value: h.bucketValue()})
	}
	return result
}

// SnapshotSince returns buckets with timestamps at or after the given time.
func (h *MetricHistory) SnapshotSince(since time.Time) []DataPoint {
	all := h.Snapshot()
	result := make([]DataPoint, 0, len(all))
	for _, dp := range all {
		if !dp.Timestamp.Before(since) {
			result = append(result, dp)
		}
	}
	return result
}

// TimeSeriesData holds the per-operation histories served by the history
// endpoint.
type TimeSeriesData struct {
	SearchRate    *MetricHistory
	SearchLatency *MetricHistory
	IngestRate    *MetricHistory
}

const (
	historyBucketSize = 5 * time.Minute
	historyMaxBuckets = 12 // one hour of 5-minute buckets
)

// NewTimeSeriesData creates the in-memory time-series collection.
func NewTimeSeriesData() *TimeSeriesData {
	return &TimeSeriesData{
		SearchRate:    NewMetricHistory(historyBucketSize, historyMaxBuckets),
		SearchLatency: NewMetricHistory(historyBucketSize, historyMaxBuckets),
		IngestRate:    NewMetricHistory(historyBucketSize, historyMaxBuckets),
	}
}

// NewTimeSeriesDataWithRedis creates the collection with Redis persistence.
func NewTimeSeriesDataWithRedis(storage *RedisStorage) *TimeSeriesData {
	return &TimeSeriesData{
		SearchRate:    NewMetricHistoryWithRedis(historyBucketSize, historyMaxBuckets, storage, "search_rate"),
		SearchLatency: NewMetricHistoryWithRedis(historyBucketSize, historyMaxBuckets, storage, "search_latency"),
		IngestRate:    NewMetricHistoryWithRedis(historyBucketSize, historyMaxBuckets, storage, "ingest_rate"),
	}
}

// RecordSearch tracks one search and its latency.
func (t *TimeSeriesData) RecordSearch(latencyMs float64) {
	t.SearchRate.RecordCount()
	t.SearchLatency.Record(latencyMs)
}

// RecordIngest tracks ingested photos.
func (t *TimeSeriesData) RecordIngest(photoCount int) {
	t.IngestRate.RecordSum(float64(photoCount))
}
