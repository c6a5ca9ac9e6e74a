package metrics

import (
	"context"
	"fmt"
	"strings"
)

// PhotoCounter reports the number of stored photos.
type PhotoCounter interface {
	CountPhotos(ctx context.Context) (int64, error)
}

// QueueDepther reports the analysis queue depth.
type QueueDepther interface {
	PendingCount(ctx context.Context) (int64, error)
}

// Collector gathers live statistics from the photo store and the
// analysis queue and keeps the corresponding gauges current.
type Collector struct {
	metrics *Metrics
	photos  PhotoCounter
	queue   QueueDepther
}

// NewCollector creates a new metrics collector.
func NewCollector(metrics *Metrics, photos PhotoCounter, queue QueueDepther) *Collector {
	return &Collector{
		metrics: metrics,
		photos:  photos,
		queue:   queue,
	}
}

// Collect gathers current statistics from all services.
func (c *Collector) Collect(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	// Photo store stats
	if c.photos != nil {
		count, err := c.photos.CountPhotos(ctx)
		if err == nil {
			c.metrics.UpdatePhotoCount(count)
			stats["photos_total"] = count
		}
	}

	// Analysis queue depth
	if c.queue != nil {
		depth, err := c.queue.PendingCount(ctx)
		if err == nil {
			c.metrics.UpdateAnalysisQueueDepth(depth)
			stats["analysis_queue_depth"] = depth
		}
	}

	// System metrics
	stats["goroutines"] = c.metrics.GoroutineCount.Value()
	stats["memory_bytes"] = c.metrics.MemoryUsage.Value()
	stats["uptime_seconds"] = c.metrics.Uptime.Value()

	// Search metrics
	stats["search_requests_total"] = c.metrics.SearchRequests.Value()
	stats["search_latency_count"] = c.metrics.SearchLatency.Count()
	stats["search_latency_sum_ms"] = c.metrics.SearchLatency.Sum()
	stats["parse_requests_total"] = c.metrics.ParseRequests.Value()

	// Photo pipeline metrics
	stats["photos_ingested_total"] = c.metrics.PhotosIngested.Value()
	stats["photos_deleted_total"] = c.metrics.PhotosDeleted.Value()
	stats["analysis_completed_total"] = c.metrics.AnalysisCompleted.Value()
	stats["analysis_failed_total"] = c.metrics.AnalysisFailed.Value()

	return stats, nil
}

// Summary renders the pipeline counters as a short human-readable report,
// for shutdown logs and operator tooling.
func (c *Collector) Summary(ctx context.Context) string {
	stats, err := c.Collect(ctx)
	if err != nil {
		return "Error collecting metrics"
	}

	var b strings.Builder
	b.WriteString("Snap Search Metrics Summary\n")
	b.WriteString("===========================\n\n")

	line := func(label, key string) {
		if v, ok := stats[key].(int64); ok {
			fmt.Fprintf(&b, "%s: %s\n", label, formatCount(v))
		}
	}

	line("Photos", "photos_total")
	line("Search Requests", "search_requests_total")
	line("Photos Ingested", "photos_ingested_total")
	line("Analyses Completed", "analysis_completed_total")
	line("Analyses Failed", "analysis_failed_total")
	line("Analysis Queue", "analysis_queue_depth")

	if goroutines, ok := stats["goroutines"].(float64); ok {
		fmt.Fprintf(&b, "Goroutines: %s\n", formatCount(int64(goroutines)))
	}
	if memBytes, ok := stats["memory_bytes"].(float64); ok {
		fmt.Fprintf(&b, "Memory Usage: %s\n", formatBytes(int64(memBytes)))
	}
	if uptime, ok := stats["uptime_seconds"].(int64); ok {
		fmt.Fprintf(&b, "Uptime: %s\n", formatDuration(uptime))
	}

	return b.String()
}

func formatCount(n int64) string {
	switch {
	case n < 1000:
		return fmt.Sprintf("%d", n)
	case n < 1000000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	default:
		return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
	}
}
