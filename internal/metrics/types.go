// Package metrics provides Prometheus-compatible metrics for Snap Search.
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	name   string
	help   string
	value  int64
	labels map[string]string
	mu     sync.RWMutex
}

// NewCounter creates a new counter.
func NewCounter(name, help string, labels map[string]string) *Counter {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &Counter{name: name, help: help, labels: labels}
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	atomic.AddInt64(&c.value, 1)
}

// Add adds the given value to the counter. Negative deltas are ignored,
// counters never decrease.
func (c *Counter) Add(delta int64) {
	if delta < 0 {
		return
	}
	atomic.AddInt64(&c.value, delta)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.value)
}

// Reset resets the counter to 0.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.value, 0)
}

// Name returns the metric name.
func (c *Counter) Name() string { return c.name }

// Help returns the metric help text.
func (c *Counter) Help() string { return c.help }

// Labels returns a copy of the metric labels.
func (c *Counter) Labels() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyLabels(c.labels)
}

// Gauge is a metric that can go up and down.
type Gauge struct {
	name   string
	help   string
	value  int64 // stored as int64 for atomic ops
	labels map[string]string
	mu     sync.RWMutex
}

// NewGauge creates a new gauge.
func NewGauge(name, help string, labels map[string]string) *Gauge {
	if labels == nil {
		labels = make(map[string]string)
	}
	return &Gauge{name: name, help: help, labels: labels}
}

// Set sets the gauge to the given value.
func (g *Gauge) Set(value float64) {
	atomic.StoreInt64(&g.value, int64(value))
}

// Inc increments the gauge by 1.
func (g *Gauge) Inc() {
	atomic.AddInt64(&g.value, 1)
}

// Dec decrements the gauge by 1.
func (g *Gauge) Dec() {
	atomic.AddInt64(&g.value, -1)
}

// Add adds the given value to the gauge.
func (g *Gauge) Add(delta float64) {
	atomic.AddInt64(&g.value, int64(delta))
}

// Value returns the current gauge value.
func (g *Gauge) Value() float64 {
	return float64(atomic.LoadInt64(&g.value))
}

// Name returns the metric name.
func (g *Gauge) Name() string { return g.name }

// Help returns the metric help text.
func (g *Gauge) Help() string { return g.help }

// Labels returns a copy of the metric labels.
func (g *Gauge) Labels() map[string]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return copyLabels(g.labels)
}

// Histogram tracks observations in cumulative buckets.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []int64
	sum     float64
	count   int64
	labels  map[string]string
	mu      sync.RWMutex
}

// NewHistogram creates a new histogram with the given bucket upper bounds.
// Nil buckets fall back to a millisecond latency scale.
func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}
	sort.Float64s(buckets)

	return &Histogram{
		name:    name,
		help:    help,
		buckets: buckets,
		counts:  make([]int64, len(buckets)+1), // last slot is +Inf
	}
}

// Observe adds a single observation.
func (h *Histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sum += value
	h.count++

	bucketIdx := len(h.buckets) // +Inf unless a bound matches
	for i, bucket := range h.buckets {
		if value <= bucket {
			bucketIdx = i
			break
		}
	}

	// Buckets are cumulative
	for i := bucketIdx; i < len(h.counts); i++ {
		h.counts[i]++
	}
}

// Count returns the total count of observations.
func (h *Histogram) Count() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Sum returns the sum of all observed values.
func (h *Histogram) Sum() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sum
}

// Buckets returns the bucket upper bounds.
func (h *Histogram) Buckets() []float64 {
	result := make([]float64, len(h.buckets))
	copy(result, h.buckets)
	return result
}

// BucketCounts returns the cumulative count for each bucket.
func (h *Histogram) BucketCounts() []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	result := make([]int64, len(h.counts))
	copy(result, h.counts)
	return result
}

// Name returns the metric name.
func (h *Histogram) Name() string { return h.name }

// Help returns the metric help text.
func (h *Histogram) Help() string { return h.help }

// Labels returns a copy of the metric labels.
func (h *Histogram) Labels() map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return copyLabels(h.labels)
}

// CounterVec is a counter partitioned by label values.
type CounterVec struct {
	name       string
	help       string
	labelNames []string
	counters   map[string]*Counter
	mu         sync.RWMutex
}

// NewCounterVec creates a new counter vector.
func NewCounterVec(name, help string, labelNames []string) *CounterVec {
	return &CounterVec{
		name:       name,
		help:       help,
		labelNames: labelNames,
		counters:   make(map[string]*Counter),
	}
}

// WithLabels returns the counter for the given label values, creating it on
// first use. Panics when the value count does not match the label names.
func (cv *CounterVec) WithLabels(labelValues ...string) *Counter {
	labels := buildLabels(cv.labelNames, labelValues)
	key := labelsToKey(labels)

	cv.mu.RLock()
	counter, exists := cv.counters[key]
	cv.mu.RUnlock()

	if exists {
		return counter
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()

	if counter, exists := cv.counters[key]; exists {
		return counter
	}

	counter = NewCounter(cv.name, cv.help, labels)
	cv.counters[key] = counter
	return counter
}

// GetAll returns all counters in the vector.
func (cv *CounterVec) GetAll() []*Counter {
	cv.mu.RLock()
	defer cv.mu.RUnlock()

	result := make([]*Counter, 0, len(cv.counters))
	for _, c := range cv.counters {
		result = append(result, c)
	}
	return result
}

// Name returns the metric name.
func (cv *CounterVec) Name() string { return cv.name }

// Help returns the metric help text.
func (cv *CounterVec) Help() string { return cv.help }

// HistogramVec is a histogram partitioned by label values.
type HistogramVec struct {
	name       string
	help       string
	labelNames []string
	buckets    []float64
	histograms map[string]*Histogram
	mu         sync.RWMutex
}

// NewHistogramVec creates a new histogram vector.
func NewHistogramVec(name, help string, labelNames []string, buckets []float64) *HistogramVec {
	return &HistogramVec{
		name:       name,
		help:       help,
		labelNames: labelNames,
		buckets:    buckets,
		histograms: make(map[string]*Histogram),
	}
}

// WithLabels returns the histogram for the given label values, creating it
// on first use. Panics when the value count does not match the label names.
func (hv *HistogramVec) WithLabels(labelValues ...string) *Histogram {
	labels := buildLabels(hv.labelNames, labelValues)
	key := labelsToKey(labels)

	hv.mu.RLock()
	histogram, exists := hv.histograms[key]
	hv.mu.RUnlock()

	if exists {
		return histogram
	}

	hv.mu.Lock()
	defer hv.mu.Unlock()

	if histogram, exists := hv.histograms[key]; exists {
		return histogram
	}

	histogram = NewHistogram(hv.name, hv.help, hv.buckets)
	histogram.mu.Lock()
	histogram.labels = labels
	histogram.mu.Unlock()

	hv.histograms[key] = histogram
	return histogram
}

// GetAll returns all histograms in the vector.
func (hv *HistogramVec) GetAll() []*Histogram {
	hv.mu.RLock()
	defer hv.mu.RUnlock()

	result := make([]*Histogram, 0, len(hv.histograms))
	for _, h := range hv.histograms {
		result = append(result, h)
	}
	return result
}

// Name returns the metric name.
func (hv *HistogramVec) Name() string { return hv.name }

// Help returns the metric help text.
func (hv *HistogramVec) Help() string { return hv.help }

func copyLabels(labels map[string]string) map[string]string {
	result := make(map[string]string, len(labels))
	for k, v := range labels {
		result[k] = v
	}
	return result
}

func buildLabels(labelNames, labelValues []string) map[string]string {
	if len(labelValues) != len(labelNames) {
		panic(fmt.Sprintf("expected %d label values, got %d", len(labelNames), len(labelValues)))
	}
	labels := make(map[string]string, len(labelNames))
	for i, name := range labelNames {
		labels[name] = labelValues[i]
	}
	return labels
}

// labelsToKey builds a stable map key from sorted label pairs.
func labelsToKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(labels[k])
	}
	return sb.String()
}
