package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/snapsearch/snap-search/internal/analysis"
	"github.com/snapsearch/snap-search/internal/bus"
	"github.com/snapsearch/snap-search/internal/config"
	"github.com/snapsearch/snap-search/internal/store"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q, want %q", cfg.Host, "0.0.0.0")
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want %d", cfg.Port, 8080)
	}
	if cfg.Version != "dev" {
		t.Errorf("Version = %q, want %q", cfg.Version, "dev")
	}
	if cfg.ReadTimeout == 0 {
		t.Error("ReadTimeout should not be zero")
	}
	if cfg.WriteTimeout == 0 {
		t.Error("WriteTimeout should not be zero")
	}
	if cfg.ShutdownTimeout == 0 {
		t.Error("ShutdownTimeout should not be zero")
	}
}

// newTestAppConfig returns an app config that needs no external services.
func newTestAppConfig() config.Config {
	return config.Config{
		Host: "127.0.0.1",
		Port: 8080,
		Bus:  config.BusConfig{Type: "memory"},
		Search: config.SearchConfig{
			DefaultLimit: 20,
			MaxLimit:     200,
		},
		Analysis: config.AnalysisConfig{
			Provider:    "static",
			Workers:     1,
			MaxAttempts: 3,
		},
		Observability: config.ObservabilityConfig{
			MetricsEnabled: true,
			MetricsPath:    "/metrics",
		},
	}
}

// TestPhotoHandler exercises the photo endpoints against in-memory backends.
func TestPhotoHandler(t *testing.T) {
	photos := store.NewService(store.NewMemoryStorage(), nil)
	queue := analysis.NewMemoryQueue()
	eventBus := bus.NewMemoryBus()
	worker := analysis.NewWorker(queue, analysis.NewStaticLabeler(), photos, eventBus, nil, analysis.WorkerConfig{})

	handler := NewPhotoHandler(photos, worker, eventBus, nil)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	var photoID string

	t.Run("ingest photo", func(t *testing.T) {
		body := `{"name": "beach-sunset.jpg", "title": "Sunset", "tags": ["vacation"], "url": "https://photos.example/beach-sunset.jpg"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/photos", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		var created store.PhotoRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}

		if created.ID == "" {
			t.Fatal("expected generated photo ID")
		}
		if created.AnalysisStatus != store.StatusPending {
			t.Errorf("analysis status = %q, want %q", created.AnalysisStatus, store.StatusPending)
		}
		photoID = created.ID
	})

	t.Run("ingest queues analysis", func(t *testing.T) {
		depth, err := queue.PendingCount(context.Background())
		if err != nil {
			t.Fatalf("PendingCount failed: %v", err)
		}
		if depth != 1 {
			t.Errorf("queue depth = %d, want 1", depth)
		}
	})

	t.Run("get photo", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/photos/"+photoID, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var photo store.PhotoRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &photo); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if photo.Name != "beach-sunset.jpg" {
			t.Errorf("name = %q, want %q", photo.Name, "beach-sunset.jpg")
		}
	})

	t.Run("get analysis status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/photos/"+photoID+"/analysis", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var resp analysisResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Status != store.StatusPending {
			t.Errorf("status = %q, want %q", resp.Status, store.StatusPending)
		}
	})

	t.Run("get nonexistent photo", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/photos/00000000deadbeef", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}

		var resp apperrors.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal error response: %v", err)
		}
		if resp.Code != apperrors.CodeNotFound {
			t.Errorf("code = %q, want %q", resp.Code, apperrors.CodeNotFound)
		}
	})

	t.Run("malformed photo id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/photos/not-a-hex-id", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("delete photo", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/photos/"+photoID, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}

		_, err := photos.GetPhoto(context.Background(), photoID)
		if !apperrors.IsNotFound(err) {
			t.Errorf("expected not found after delete, got %v", err)
		}
	})

	t.Run("invalid method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/v1/photos", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})

	t.Run("invalid request body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/photos", bytes.NewBufferString("invalid json"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/photos", bytes.NewBufferString(`{"title": "no name"}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("invalid tag", func(t *testing.T) {
		body := `{"name": "x.jpg", "tags": ["///"]}`
		req := httptest.NewRequest(http.MethodPost, "/v1/photos", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

type fakeIngestRecorder struct {
	failures int
}

func (f *fakeIngestRecorder) RecordIngest(err error) {
	if err != nil {
		f.failures++
	}
}

// TestPhotoHandler_IngestFailuresRecorded checks that rejected ingests reach
// the attached recorder while accepted ones do not; successes are counted
// from the photo.uploaded event instead.
func TestPhotoHandler_IngestFailuresRecorded(t *testing.T) {
	photos := store.NewService(store.NewMemoryStorage(), nil)
	queue := analysis.NewMemoryQueue()
	eventBus := bus.NewMemoryBus()
	worker := analysis.NewWorker(queue, analysis.NewStaticLabeler(), photos, eventBus, nil, analysis.WorkerConfig{})

	recorder := &fakeIngestRecorder{}
	handler := NewPhotoHandler(photos, worker, eventBus, nil).WithRecorder(recorder)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	post := func(body string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/photos", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := post("not json"); code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d, want %d", code, http.StatusBadRequest)
	}
	if code := post(`{"title": "no name"}`); code != http.StatusBadRequest {
		t.Fatalf("missing name: status = %d, want %d", code, http.StatusBadRequest)
	}
	if recorder.failures != 2 {
		t.Errorf("recorded failures = %d, want 2", recorder.failures)
	}

	if code := post(`{"name": "pier.jpg", "url": "https://photos.example/pier.jpg"}`); code != http.StatusCreated {
		t.Fatalf("valid body: status = %d, want %d", code, http.StatusCreated)
	}
	if recorder.failures != 2 {
		t.Errorf("recorded failures after success = %d, want 2", recorder.failures)
	}
}

// TestServerRoutes wires a full in-memory server and checks routing
// and middleware behavior through the composed handler.
func TestServerRoutes(t *testing.T) {
	srv, err := New(DefaultConfig(), newTestAppConfig(), nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	defer srv.Stop(context.Background())

	handler := srv.setupRoutes()

	t.Run("health", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("version", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		var resp struct {
			Version string `json:"version"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp.Version != "dev" {
			t.Errorf("version = %q, want %q", resp.Version, "dev")
		}
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !bytes.Contains(rec.Body.Bytes(), []byte("snap_")) {
			t.Error("expected snap_ metrics in output")
		}
	})

	t.Run("search wraps response", func(t *testing.T) {
		body := `{"query": "beach photos"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		var wrapped WrappedResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &wrapped); err != nil {
			t.Fatalf("failed to unmarshal wrapped response: %v", err)
		}
		if wrapped.Meta.RequestID == "" {
			t.Error("expected request ID in response meta")
		}
		if wrapped.Data == nil {
			t.Error("expected data in wrapped response")
		}
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/v1/search", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNoContent)
		}
		if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("unexpected CORS origin: %q", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})
}

func TestAuthMiddleware(t *testing.T) {
	appCfg := newTestAppConfig()
	appCfg.Security.APIKey = "secret-key"

	srv, err := New(DefaultConfig(), appCfg, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	defer srv.Stop(context.Background())

	handler := srv.setupRoutes()

	t.Run("missing key rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"query": "dogs"}`))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("valid key accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewBufferString(`{"query": "dogs"}`))
		req.Header.Set("X-API-Key", "secret-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d, body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("health stays open", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestGenerateRequestID(t *testing.T) {
	a := GenerateRequestID()
	b := GenerateRequestID()

	if len(a) != 8 {
		t.Errorf("request ID length = %d, want 8", len(a))
	}
	if a == b {
		t.Error("expected unique request IDs")
	}
}
