package metrics

import (
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
	"github.com/snapsearch/snap-search/internal/pkg/logger"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Search metrics
	SearchRequests *Counter
	SearchLatency  *Histogram
	SearchResults  *Histogram
	SearchErrors   *CounterVec   // labels: error_type
	SearchStages   *HistogramVec // labels: stage

	// Query parsing metrics
	ParseRequests   *Counter
	ParseLatency    *Histogram
	ParseConfidence *Histogram

	// Ranking metrics
	RankCandidates *Histogram
	RankLatency    *Histogram

	// Photo metrics
	PhotosIngested *Counter
	PhotosDeleted  *Counter
	PhotosTotal    *Gauge
	IngestErrors   *CounterVec // labels: error_type

	// Analysis metrics
	AnalysisRequests   *Counter
	AnalysisCompleted  *Counter
	AnalysisFailed     *Counter
	AnalysisRetries    *Counter
	AnalysisLatency    *Histogram
	AnalysisQueueDepth *Gauge

	// System metrics
	GoroutineCount *Gauge
	MemoryUsage    *Gauge // in bytes
	Uptime         *Counter

	// Bus metrics
	BusEventsPublished *CounterVec   // labels: topic
	BusEventLatency    *HistogramVec // labels: topic
	BusErrors          *CounterVec   // labels: topic

	// HTTP metrics
	HTTPRequests         *CounterVec   // labels: method, path, status
	HTTPDuration         *HistogramVec // labels: method, path
	HTTPRequestsInFlight *Gauge
	HTTPRequestSize      *HistogramVec // labels: method, path

	// Time-series data for charts
	TimeSeries *TimeSeriesData

	// Redis storage (optional)
	redisStorage *RedisStorage

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a new metrics instance with all metrics initialized.
// Uses in-memory storage only.
func New() *Metrics {
	return NewWithConfig("memory", "")
}

// NewWithRedis creates a new metrics instance with Redis persistence.
// Falls back to in-memory if Redis connection fails.
func NewWithRedis(redisURL string) *Metrics {
	return NewWithConfig("redis", redisURL)
}

// NewWithConfig creates a new metrics instance with specified persistence.
// persistence: "memory" or "redis"
// redisURL: Redis URL (only used if persistence = "redis")
func NewWithConfig(persistence, redisURL string) *Metrics {
	var redisStorage *RedisStorage
	var timeSeries *TimeSeriesData

	// Try to initialize Redis if configured
	if persistence == "redis" && redisURL != "" {
		storage, err := NewRedisStorage(redisURL)
		if err != nil {
			logger.Default().Warn("Metrics persistence unavailable, using in-memory only", "error", err)
		} else {
			redisStorage = storage
			timeSeries = NewTimeSeriesDataWithRedis(redisStorage)
		}
	}

	// If Redis not available, use in-memory
	if timeSeries == nil {
		timeSeries = NewTimeSeriesData()
	}

	m := &Metrics{
		// Search metrics
		SearchRequests: NewCounter(
			"snap_search_requests_total",
			"Total number of search requests",
			nil,
		),
		SearchLatency: NewHistogram(
			"snap_search_latency_ms",
			"Search request latency in milliseconds",
			[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		),
		SearchResults: NewHistogram(
			"snap_search_results",
			"Number of results per search",
			[]float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		),
		SearchErrors: NewCounterVec(
			"snap_search_errors_total",
			"Total number of search errors",
			[]string{"error_type"},
		),
		SearchStages: NewHistogramVec(
			"snap_search_stage_duration_ms",
			"Search stage duration in milliseconds",
			[]string{"stage"},
			[]float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		),

		// Query parsing metrics
		ParseRequests: NewCounter(
			"snap_parse_requests_total",
			"Total number of query parse requests",
			nil,
		),
		ParseLatency: NewHistogram(
			"snap_parse_latency_ms",
			"Query parse latency in milliseconds",
			[]float64{1, 2, 5, 10, 25, 50, 100},
		),
		ParseConfidence: NewHistogram(
			"snap_parse_confidence",
			"Parse confidence distribution",
			[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95},
		),

		// Ranking metrics
		RankCandidates: NewHistogram(
			"snap_rank_candidates",
			"Number of candidates scored per search",
			[]float64{1, 10, 50, 100, 500, 1000, 5000},
		),
		RankLatency: NewHistogram(
			"snap_rank_latency_ms",
			"Ranking latency in milliseconds",
			[]float64{1, 2, 5, 10, 25, 50, 100, 250},
		),

		// Photo metrics
		PhotosIngested: NewCounter(
			"snap_photos_ingested_total",
			"Total number of photos ingested",
			nil,
		),
		PhotosDeleted: NewCounter(
			"snap_photos_deleted_total",
			"Total number of photos deleted",
			nil,
		),
		PhotosTotal: NewGauge(
			"snap_photos_total",
			"Current number of stored photos",
			nil,
		),
		IngestErrors: NewCounterVec(
			"snap_ingest_errors_total",
			"Total number of ingest errors",
			[]string{"error_type"},
		),

		// Analysis metrics
		AnalysisRequests: NewCounter(
			"snap_analysis_requests_total",
			"Total number of analysis tasks submitted",
			nil,
		),
		AnalysisCompleted: NewCounter(
			"snap_analysis_completed_total",
			"Total number of completed analysis tasks",
			nil,
		),
		AnalysisFailed: NewCounter(
			"snap_analysis_failed_total",
			"Total number of permanently failed analysis tasks",
			nil,
		),
		AnalysisRetries: NewCounter(
			"snap_analysis_retries_total",
			"Total number of analysis retries",
			nil,
		),
		AnalysisLatency: NewHistogram(
			"snap_analysis_latency_ms",
			"Analysis task latency in milliseconds",
			[]float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		),
		AnalysisQueueDepth: NewGauge(
			"snap_analysis_queue_depth",
			"Number of pending analysis tasks",
			nil,
		),

		// System metrics
		GoroutineCount: NewGauge(
			"snap_goroutines",
			"Number of goroutines",
			nil,
		),
		MemoryUsage: NewGauge(
			"snap_memory_bytes",
			"Memory usage in bytes",
			nil,
		),
		Uptime: NewCounter(
			"snap_uptime_seconds",
			"Application uptime in seconds",
			nil,
		),

		// Bus metrics
		BusEventsPublished: NewCounterVec(
			"snap_bus_events_published_total",
			"Total number of events published to the bus",
			[]string{"topic"},
		),
		BusEventLatency: NewHistogramVec(
			"snap_bus_event_latency_seconds",
			"Event bus latency in seconds",
			[]string{"topic"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		),
		BusErrors: NewCounterVec(
			"snap_bus_errors_total",
			"Total number of event bus errors",
			[]string{"topic"},
		),

		// HTTP metrics
		HTTPRequests: NewCounterVec(
			"snap_http_requests_total",
			"Total number of HTTP requests",
			[]string{"method", "path", "status"},
		),
		HTTPDuration: NewHistogramVec(
			"snap_http_request_duration_seconds",
			"HTTP request duration in seconds",
			[]string{"method", "path"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		),
		HTTPRequestsInFlight: NewGauge(
			"snap_http_requests_in_flight",
			"Number of HTTP requests currently being processed",
			nil,
		),
		HTTPRequestSize: NewHistogramVec(
			"snap_http_request_size_bytes",
			"HTTP request size in bytes",
			[]string{"method", "path"},
			[]float64{100, 1000, 10000, 100000, 1000000, 10000000},
		),

		// Time-series data for charts
		TimeSeries: timeSeries,

		// Redis storage
		redisStorage: redisStorage,

		done: make(chan struct{}),
	}

	go m.collectSystemMetrics()

	return m
}

// collectSystemMetrics keeps the runtime gauges current until Close.
func (m *Metrics) collectSystemMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.GoroutineCount.Set(float64(runtime.NumGoroutine()))

			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			m.MemoryUsage.Set(float64(memStats.Alloc))

			m.Uptime.Add(15)
		}
	}
}

// RecordSearch records search metrics.
func (m *Metrics) RecordSearch(latencyMs int64, resultCount int, err error) {
	m.SearchRequests.Inc()
	m.SearchLatency.Observe(float64(latencyMs))
	m.SearchResults.Observe(float64(resultCount))

	// Record time-series data for charts
	if m.TimeSeries != nil {
		m.TimeSeries.RecordSearch(float64(latencyMs))
	}

	if err != nil {
		m.SearchErrors.WithLabels(errorType(err)).Inc()
	}
}

// RecordSearchStage records the duration of a specific search stage.
// stage should be one of: "parse", "fetch", "rank"
func (m *Metrics) RecordSearchStage(stage string, latencyMs int64) {
	m.SearchStages.WithLabels(stage).Observe(float64(latencyMs))
}

// RecordParse records query parsing metrics.
func (m *Metrics) RecordParse(latencyMs int64, confidence float64) {
	m.ParseRequests.Inc()
	m.ParseLatency.Observe(float64(latencyMs))
	m.ParseConfidence.Observe(confidence)
}

// RecordRank records candidate ranking metrics.
func (m *Metrics) RecordRank(candidateCount int, latencyMs int64) {
	m.RankCandidates.Observe(float64(candidateCount))
	m.RankLatency.Observe(float64(latencyMs))
}

// RecordIngest records a photo ingest.
func (m *Metrics) RecordIngest(err error) {
	if err != nil {
		m.IngestErrors.WithLabels(errorType(err)).Inc()
		return
	}
	m.PhotosIngested.Inc()

	if m.TimeSeries != nil {
		m.TimeSeries.RecordIngest(1)
	}
}

// RecordDelete records a photo deletion.
func (m *Metrics) RecordDelete() {
	m.PhotosDeleted.Inc()
}

// UpdatePhotoCount updates the stored photo gauge.
func (m *Metrics) UpdatePhotoCount(count int64) {
	m.PhotosTotal.Set(float64(count))
}

// RecordAnalysisSubmitted records an analysis task submission.
func (m *Metrics) RecordAnalysisSubmitted() {
	m.AnalysisRequests.Inc()
}

// RecordAnalysisCompleted records a completed analysis task.
func (m *Metrics) RecordAnalysisCompleted(latencyMs int64) {
	m.AnalysisCompleted.Inc()
	m.AnalysisLatency.Observe(float64(latencyMs))
}

// RecordAnalysisFailed records a permanently failed analysis task.
func (m *Metrics) RecordAnalysisFailed() {
	m.AnalysisFailed.Inc()
}

// RecordAnalysisRetry records an analysis retry.
func (m *Metrics) RecordAnalysisRetry() {
	m.AnalysisRetries.Inc()
}

// UpdateAnalysisQueueDepth updates the pending task gauge.
func (m *Metrics) UpdateAnalysisQueueDepth(depth int64) {
	m.AnalysisQueueDepth.Set(float64(depth))
}

// RecordBusPublish records event bus publish metrics.
func (m *Metrics) RecordBusPublish(topic string, latencyMs int64, err error) {
	m.BusEventsPublished.WithLabels(topic).Inc()

	// Convert milliseconds to seconds for Prometheus convention
	latencySeconds := float64(latencyMs) / 1000.0
	m.BusEventLatency.WithLabels(topic).Observe(latencySeconds)

	if err != nil {
		m.BusErrors.WithLabels(topic).Inc()
	}
}

// RecordHTTP records HTTP request metrics.
// This is called by the HTTP middleware.
func (m *Metrics) RecordHTTP(method, path string, status int, durationSeconds float64, sizeBytes int64) {
	// Normalize path to keep label cardinality bounded
	normalizedPath := normalizePath(path)

	m.HTTPRequests.WithLabels(method, normalizedPath, statusCode(status)).Inc()
	m.HTTPDuration.WithLabels(method, normalizedPath).Observe(durationSeconds)

	if sizeBytes > 0 {
		m.HTTPRequestSize.WithLabels(method, normalizedPath).Observe(float64(sizeBytes))
	}
}

// errorType maps an error to a low-cardinality label value.
func errorType(err error) string {
	if err == nil {
		return "unknown"
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return strings.ToLower(strings.TrimSuffix(appErr.Code, "_ERROR"))
	}
	return "internal"
}

// Close stops the background collector and releases the Redis connection
// when persistence is enabled.
func (m *Metrics) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		if m.redisStorage != nil {
			err = m.redisStorage.Close()
		}
	})
	return err
}
