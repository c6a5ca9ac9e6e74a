// Package server provides the HTTP server and its middleware.
package server

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	pkgcontext "github.com/snapsearch/snap-search/internal/pkg/context"
)

// ResponseMeta carries per-request metadata alongside the payload.
type ResponseMeta struct {
	RequestID string `json:"request_id"`
	LatencyMS int64  `json:"latency_ms"`
	Timestamp string `json:"timestamp"`
}

// WrappedResponse is the envelope every JSON API response is wrapped in.
type WrappedResponse struct {
	Data interface{}  `json:"data"`
	Meta ResponseMeta `json:"meta"`
}

// responseBuffer holds back the handler's output so the middleware can
// decide whether to envelope it.
type responseBuffer struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
	wrote  bool
}

func (rb *responseBuffer) WriteHeader(code int) {
	rb.status = code
}

func (rb *responseBuffer) Write(p []byte) (int, error) {
	rb.wrote = true
	return rb.body.Write(p)
}

// flush replays the buffered response unchanged.
func (rb *responseBuffer) flush(w http.ResponseWriter) {
	w.WriteHeader(rb.status)
	w.Write(rb.body.Bytes())
}

// wrapExempt lists API paths served without the envelope. Probes expect
// the bare payload.
func wrapExempt(path string) bool {
	return path == "/v1/health" || path == "/v1/version"
}

// ResponseWrapperMiddleware envelopes successful JSON responses on /v1/*
// routes in a data/meta structure and tags the request with an ID.
func ResponseWrapperMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v1") || wrapExempt(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		requestID := GenerateRequestID()
		r = r.WithContext(pkgcontext.WithRequestID(r.Context(), requestID))

		rb := &responseBuffer{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rb, r)

		// Errors and empty bodies go out untouched, the error writer owns
		// that shape.
		if !rb.wrote || rb.status >= 400 {
			rb.flush(w)
			return
		}

		var data interface{}
		if err := json.Unmarshal(rb.body.Bytes(), &data); err != nil {
			// Not JSON, nothing to envelope.
			rb.flush(w)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-ID", requestID)
		w.WriteHeader(rb.status)
		json.NewEncoder(w).Encode(WrappedResponse{
			Data: data,
			Meta: ResponseMeta{
				RequestID: requestID,
				LatencyMS: time.Since(start).Milliseconds(),
				Timestamp: time.Now().UTC().Format(time.RFC3339),
			},
		})
	})
}

// GenerateRequestID returns a short random hex ID.
func GenerateRequestID() string {
	var b [4]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
