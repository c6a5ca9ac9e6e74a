package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PrometheusFormat renders every registered metric in the Prometheus text
// exposition format.
// See: https://prometheus.io/docs/instrumenting/exposition_formats/
func (m *Metrics) PrometheusFormat() string {
	var sb strings.Builder

	// Search metrics
	writeCounter(&sb, m.SearchRequests)
	writeHistogram(&sb, m.SearchLatency)
	writeHistogram(&sb, m.SearchResults)
	writeCounterVec(&sb, m.SearchErrors)
	writeHistogramVec(&sb, m.SearchStages)

	// Query parsing metrics
	writeCounter(&sb, m.ParseRequests)
	writeHistogram(&sb, m.ParseLatency)
	writeHistogram(&sb, m.ParseConfidence)

	// Ranking metrics
	writeHistogram(&sb, m.RankCandidates)
	writeHistogram(&sb, m.RankLatency)

	// Photo metrics
	writeCounter(&sb, m.PhotosIngested)
	writeCounter(&sb, m.PhotosDeleted)
	writeGauge(&sb, m.PhotosTotal)
	writeCounterVec(&sb, m.IngestErrors)

	// Analysis metrics
	writeCounter(&sb, m.AnalysisRequests)
	writeCounter(&sb, m.AnalysisCompleted)
	writeCounter(&sb, m.AnalysisFailed)
	writeCounter(&sb, m.AnalysisRetries)
	writeHistogram(&sb, m.AnalysisLatency)
	writeGauge(&sb, m.AnalysisQueueDepth)

	// Bus metrics
	writeCounterVec(&sb, m.BusEventsPublished)
	writeCounterVec(&sb, m.BusErrors)
	writeHistogramVec(&sb, m.BusEventLatency)

	// HTTP metrics
	writeCounterVec(&sb, m.HTTPRequests)
	writeGauge(&sb, m.HTTPRequestsInFlight)
	writeHistogramVec(&sb, m.HTTPDuration)
	writeHistogramVec(&sb, m.HTTPRequestSize)

	// System metrics
	writeGauge(&sb, m.GoroutineCount)
	writeGauge(&sb, m.MemoryUsage)
	writeCounter(&sb, m.Uptime)

	return sb.String()
}

// writeHeader emits the HELP and TYPE preamble for a metric family.
func writeHeader(sb *strings.Builder, name, help, metricType string) {
	fmt.Fprintf(sb, "# HELP %s %s\n", name, help)
	fmt.Fprintf(sb, "# TYPE %s %s\n", name, metricType)
}

func writeCounter(sb *strings.Builder, c *Counter) {
	writeHeader(sb, c.Name(), c.Help(), "counter")
	sb.WriteString(c.Name())
	writeLabels(sb, c.Labels())
	fmt.Fprintf(sb, " %d\n", c.Value())
}

func writeGauge(sb *strings.Builder, g *Gauge) {
	writeHeader(sb, g.Name(), g.Help(), "gauge")
	sb.WriteString(g.Name())
	writeLabels(sb, g.Labels())
	fmt.Fprintf(sb, " %s\n", formatFloat(g.Value()))
}

func writeHistogram(sb *strings.Builder, h *Histogram) {
	writeHeader(sb, h.Name(), h.Help(), "histogram")
	writeHistogramSamples(sb, h)
}

// writeHistogramSamples emits the bucket, sum, and count series for one
// histogram, without the family header.
func writeHistogramSamples(sb *strings.Builder, h *Histogram) {
	buckets := h.Buckets()
	counts := h.BucketCounts()
	labels := h.Labels()

	for i, bound := range buckets {
		sb.WriteString(h.Name())
		sb.WriteString("_bucket")
		writeLabelsWith(sb, labels, "le", formatFloat(bound))
		fmt.Fprintf(sb, " %d\n", counts[i])
	}

	sb.WriteString(h.Name())
	sb.WriteString("_bucket")
	writeLabelsWith(sb, labels, "le", "+Inf")
	fmt.Fprintf(sb, " %d\n", counts[len(counts)-1])

	sb.WriteString(h.Name())
	sb.WriteString("_sum")
	writeLabels(sb, labels)
	fmt.Fprintf(sb, " %s\n", formatFloat(h.Sum()))

	sb.WriteString(h.Name())
	sb.WriteString("_count")
	writeLabels(sb, labels)
	fmt.Fprintf(sb, " %d\n", h.Count())
}

func writeCounterVec(sb *strings.Builder, cv *CounterVec) {
	counters := cv.GetAll()
	if len(counters) == 0 {
		return
	}

	writeHeader(sb, cv.Name(), cv.Help(), "counter")
	for _, c := range counters {
		sb.WriteString(c.Name())
		writeLabels(sb, c.Labels())
		fmt.Fprintf(sb, " %d\n", c.Value())
	}
}

func writeHistogramVec(sb *strings.Builder, hv *HistogramVec) {
	histograms := hv.GetAll()
	if len(histograms) == 0 {
		return
	}

	writeHeader(sb, hv.Name(), hv.Help(), "histogram")
	for _, h := range histograms {
		writeHistogramSamples(sb, h)
	}
}

// writeLabels writes labels as {key="value",key2="value2"}, sorted by key
// so output is stable.
func writeLabels(sb *strings.Builder, labels map[string]string) {
	writeLabelsWith(sb, labels, "", "")
}

// writeLabelsWith writes the label set plus one extra label appended last,
// used for histogram le bounds. An empty extraKey means no extra label.
func writeLabelsWith(sb *strings.Builder, labels map[string]string, extraKey, extraValue string) {
	if len(labels) == 0 && extraKey == "" {
		return
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(",")
		}
		// %q escapes backslashes, quotes, and newlines the way the
		// exposition format expects.
		fmt.Fprintf(sb, "%s=%q", k, labels[k])
	}
	if extraKey != "" {
		if len(keys) > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(sb, "%s=%q", extraKey, extraValue)
	}
	sb.WriteString("}")
}

// formatFloat renders a sample value with full precision, so bucket bounds
// like 0.005 and 0.95 stay distinct.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
