package metrics

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(m.ServeHTTP)
}

// ServeHTTP implements http.Handler.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(m.PrometheusFormat()))
}

// HistoryHandler serves the bucketed time series as JSON. The optional
// "since" query parameter takes a Go duration (default one hour).
func (m *Metrics) HistoryHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		window := time.Hour
		if raw := r.URL.Query().Get("since"); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil || d <= 0 {
				http.Error(w, "invalid since duration", http.StatusBadRequest)
				return
			}
			window = d
		}
		since := time.Now().Add(-window)

		response := map[string][]DataPoint{
			"search_rate":       m.TimeSeries.SearchRate.SnapshotSince(since),
			"search_latency_ms": m.TimeSeries.SearchLatency.SnapshotSince(since),
			"ingest_rate":       m.TimeSeries.IngestRate.SnapshotSince(since),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	})
}
