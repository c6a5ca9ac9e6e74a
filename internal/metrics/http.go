package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// HTTPMiddleware records request count, duration, size, and in-flight
// requests for every request passing through it.
func HTTPMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		size := r.ContentLength
		if size < 0 {
			size = 0
		}
		m.RecordHTTP(r.Method, r.URL.Path, wrapped.statusCode, time.Since(start).Seconds(), size)
	})
}

// responseWriter captures the status code written by the handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *responseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(w.statusCode)
	}
	return w.ResponseWriter.Write(b)
}

// Flush passes through to the underlying writer when it supports flushing.
func (w *responseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack passes through to the underlying writer when it supports hijacking.
func (w *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		return hijacker.Hijack()
	}
	return nil, nil, fmt.Errorf("underlying ResponseWriter does not support hijacking")
}

// staticPaths are routes recorded verbatim as metric labels.
var staticPaths = map[string]bool{
	"/":                   true,
	"/metrics":            true,
	"/metrics/history":    true,
	"/v1/search":          true,
	"/v1/search/parse":    true,
	"/v1/search/examples": true,
	"/v1/photos":          true,
	"/v1/health":          true,
	"/v1/version":         true,
}

var (
	photoPathRe    = regexp.MustCompile(`/v1/photos/[^/]+`)
	analysisPathRe = regexp.MustCompile(`/v1/analysis/[^/]+`)
)

// normalizePath collapses path parameters into placeholders so metric label
// cardinality stays bounded.
//
//	/v1/photos/3f2a9c          -> /v1/photos/{id}
//	/v1/photos/3f2a9c/analysis -> /v1/photos/{id}/analysis
func normalizePath(path string) string {
	if staticPaths[path] {
		return path
	}

	normalized := photoPathRe.ReplaceAllString(path, "/v1/photos/{id}")
	normalized = analysisPathRe.ReplaceAllString(normalized, "/v1/analysis/{id}")
	return normalized
}

// statusCode renders an HTTP status as a metric label. Common codes keep
// their exact value, the rest collapse into class buckets.
func statusCode(code int) string {
	switch code {
	case 200, 201, 204, 400, 401, 403, 404, 405, 429, 500, 502, 503:
		return strconv.Itoa(code)
	}

	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	}
	return strconv.Itoa(code)
}
