// Package store provides photo metadata persistence for Snap Search.
// Photos are stored as JSON records with secondary indexes on AI labels,
// tags, and capture time so search can select candidates cheaply.
package store

import (
	"fmt"
	"time"

	"github.com/snapsearch/snap-search/internal/search"
)

// Analysis status values for a photo record.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// PhotoRecord is the persisted representation of a photo.
type PhotoRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	ContentHash string   `json:"content_hash"`
	URL         string   `json:"url,omitempty"`
	TagNames    []string `json:"tag_names,omitempty"`

	// AI analysis results, empty until analysis completes.
	Scenes       []string `json:"scenes,omitempty"`
	Objects      []string `json:"objects,omitempty"`
	Emotions     []string `json:"emotions,omitempty"`
	AIConfidence *float64 `json:"ai_confidence,omitempty"`

	AnalysisStatus string `json:"analysis_status"`

	TakenAt   *time.Time `json:"taken_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewPhotoRecord creates a pending record with timestamps set.
func NewPhotoRecord(id, name, contentHash string) *PhotoRecord {
	now := time.Now()
	return &PhotoRecord{
		ID:             id,
		Name:           name,
		ContentHash:    contentHash,
		AnalysisStatus: StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate checks the record for required fields.
func (p *PhotoRecord) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("photo id cannot be empty")
	}

	if p.Name == "" {
		return fmt.Errorf("photo name cannot be empty")
	}

	if p.AnalysisStatus == "" {
		return fmt.Errorf("analysis status cannot be empty")
	}

	switch p.AnalysisStatus {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("unknown analysis status: %s", p.AnalysisStatus)
	}

	return nil
}

// Touch updates the UpdatedAt timestamp.
func (p *PhotoRecord) Touch() {
	p.UpdatedAt = time.Now()
}

// Analyzed reports whether AI analysis has completed for this photo.
func (p *PhotoRecord) Analyzed() bool {
	return p.AnalysisStatus == StatusCompleted
}

// ToCandidate converts the record to the shape the ranker scores.
func (p *PhotoRecord) ToCandidate() search.CandidateRecord {
	return search.CandidateRecord{
		ID:          p.ID,
		Name:        p.Name,
		Title:       p.Title,
		Description: p.Description,
		TagNames:    p.TagNames,
		AILabels: search.AILabels{
			Scenes:   p.Scenes,
			Objects:  p.Objects,
			Emotions: p.Emotions,
		},
		AIConfidence: p.AIConfidence,
		TakenAt:      p.TakenAt,
	}
}
