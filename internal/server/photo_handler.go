package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/snapsearch/snap-search/internal/analysis"
	"github.com/snapsearch/snap-search/internal/bus"
	"github.com/snapsearch/snap-search/internal/pkg/hash"
	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/pkg/security"
	"github.com/snapsearch/snap-search/internal/store"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
)

// IngestRecorder counts failed ingest attempts by error type.
// *metrics.Metrics satisfies it. Successful ingests are counted from
// the photo.uploaded event instead, so they are not recorded here.
type IngestRecorder interface {
	RecordIngest(err error)
}

// PhotoHandler handles photo-related HTTP requests.
type PhotoHandler struct {
	photos   *store.Service
	worker   *analysis.Worker
	eventBus bus.Bus
	recorder IngestRecorder
	log      *logger.Logger
}

// NewPhotoHandler creates a new photo handler.
func NewPhotoHandler(photos *store.Service, worker *analysis.Worker, eventBus bus.Bus, log *logger.Logger) *PhotoHandler {
	if log == nil {
		log = logger.Default()
	}
	return &PhotoHandler{
		photos:   photos,
		worker:   worker,
		eventBus: eventBus,
		log:      log,
	}
}

// WithRecorder attaches an ingest failure recorder.
func (h *PhotoHandler) WithRecorder(r IngestRecorder) *PhotoHandler {
	h.recorder = r
	return h
}

func (h *PhotoHandler) recordIngestFailure(err error) {
	if h.recorder != nil {
		h.recorder.RecordIngest(err)
	}
}

// writePhotoJSON writes a JSON response.
func writePhotoJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		_ = err // Encoding error after response started
	}
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writePhotoJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

// RegisterRoutes registers photo routes.
func (h *PhotoHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/photos", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			h.handleIngest(w, r)
		default:
			writeMethodNotAllowed(w)
		}
	})

	mux.HandleFunc("/v1/photos/", func(w http.ResponseWriter, r *http.Request) {
		// Extract photo ID from path
		path := strings.TrimPrefix(r.URL.Path, "/v1/photos/")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) == 0 || parts[0] == "" {
			apperrors.WriteError(w, apperrors.NotFoundError("photo"))
			return
		}

		photoID := parts[0]
		subPath := ""
		if len(parts) > 1 {
			subPath = parts[1]
		}

		if err := security.ValidatePhotoID(photoID); err != nil {
			apperrors.WriteError(w, apperrors.ValidationError(err.Error()))
			return
		}

		switch {
		case subPath == "" || subPath == "/":
			switch r.Method {
			case http.MethodGet:
				h.handleGet(w, r, photoID)
			case http.MethodDelete:
				h.handleDelete(w, r, photoID)
			default:
				writeMethodNotAllowed(w)
			}
		case subPath == "analysis":
			if r.Method == http.MethodGet {
				h.handleAnalysis(w, r, photoID)
			} else {
				writeMethodNotAllowed(w)
			}
		default:
			apperrors.WriteError(w, apperrors.NotFoundError("photo resource"))
		}
	})
}

// ingestRequest is the body for POST /v1/photos.
type ingestRequest struct {
	Name        string     `json:"name"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	ContentHash string     `json:"content_hash,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	TakenAt     *time.Time `json:"taken_at,omitempty"`
}

// handleIngest handles POST /v1/photos
func (h *PhotoHandler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ingestErr := apperrors.InvalidRequestError("invalid request body")
		h.recordIngestFailure(ingestErr)
		apperrors.WriteError(w, ingestErr)
		return
	}

	if req.Name == "" {
		ingestErr := apperrors.ValidationError("name is required")
		h.recordIngestFailure(ingestErr)
		apperrors.WriteError(w, ingestErr)
		return
	}

	for _, tag := range req.Tags {
		if err := security.ValidateTagName(tag); err != nil {
			ingestErr := apperrors.ValidationError(err.Error())
			h.recordIngestFailure(ingestErr)
			apperrors.WriteError(w, ingestErr)
			return
		}
	}

	contentHash := req.ContentHash
	if contentHash == "" {
		// No client-supplied hash: derive one so the ID stays stable
		// for the same name and source URL.
		contentHash = hash.SHA256String(req.Name + ":" + req.URL)
	}

	photo := store.NewPhotoRecord(hash.PhotoID(req.Name, contentHash), req.Name, contentHash)
	photo.Title = req.Title
	photo.Description = req.Description
	photo.URL = req.URL
	photo.TagNames = req.Tags
	photo.TakenAt = req.TakenAt

	if err := h.photos.SavePhoto(r.Context(), photo); err != nil {
		h.recordIngestFailure(err)
		apperrors.WriteError(w, err)
		return
	}

	// Queue AI analysis; the photo is searchable by name and tags even
	// if analysis never completes.
	if h.worker != nil {
		if _, err := h.worker.Submit(r.Context(), photo.ID, photo.URL); err != nil {
			h.log.Warn("Failed to queue analysis", "photo_id", photo.ID, "error", err)
		}
	}

	h.publish(r.Context(), bus.TopicPhotoUploaded, bus.Event{
		ID:        photo.ID,
		Type:      bus.TopicPhotoUploaded,
		Source:    "server",
		Timestamp: time.Now().Unix(),
		Payload: map[string]interface{}{
			"photo_id": photo.ID,
			"name":     photo.Name,
		},
	})

	writePhotoJSON(w, http.StatusCreated, photo)
}

// handleGet handles GET /v1/photos/{id}
func (h *PhotoHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	photo, err := h.photos.GetPhoto(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	writePhotoJSON(w, http.StatusOK, photo)
}

// handleDelete handles DELETE /v1/photos/{id}
func (h *PhotoHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.photos.DeletePhoto(r.Context(), id); err != nil {
		apperrors.WriteError(w, err)
		return
	}

	h.publish(r.Context(), bus.TopicPhotoDeleted, bus.Event{
		ID:        id,
		Type:      bus.TopicPhotoDeleted,
		Source:    "server",
		Timestamp: time.Now().Unix(),
		Payload: map[string]interface{}{
			"photo_id": id,
		},
	})

	w.WriteHeader(http.StatusNoContent)
}

// analysisResponse is the body for GET /v1/photos/{id}/analysis.
type analysisResponse struct {
	PhotoID    string   `json:"photo_id"`
	Status     string   `json:"status"`
	Scenes     []string `json:"scenes,omitempty"`
	Objects    []string `json:"objects,omitempty"`
	Emotions   []string `json:"emotions,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// handleAnalysis handles GET /v1/photos/{id}/analysis
func (h *PhotoHandler) handleAnalysis(w http.ResponseWriter, r *http.Request, id string) {
	photo, err := h.photos.GetPhoto(r.Context(), id)
	if err != nil {
		apperrors.WriteError(w, err)
		return
	}

	writePhotoJSON(w, http.StatusOK, analysisResponse{
		PhotoID:    photo.ID,
		Status:     photo.AnalysisStatus,
		Scenes:     photo.Scenes,
		Objects:    photo.Objects,
		Emotions:   photo.Emotions,
		Confidence: photo.AIConfidence,
	})
}

func (h *PhotoHandler) publish(ctx context.Context, topic string, event bus.Event) {
	if h.eventBus == nil {
		return
	}
	if err := h.eventBus.Publish(ctx, topic, event); err != nil {
		h.log.Warn("Failed to publish event", "topic", topic, "error", err)
	}
}
