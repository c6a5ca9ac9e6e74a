// Package search provides relevance ranking and the search service for
// Snap Search.
package search

import "time"

// AILabels holds the content labels produced by the analysis pipeline.
type AILabels struct {
	Scenes   []string `json:"scenes,omitempty"`
	Objects  []string `json:"objects,omitempty"`
	Emotions []string `json:"emotions,omitempty"`
}

// CandidateRecord is a photo record as delivered by the store's coarse
// filter, before precision ranking.
type CandidateRecord struct {
	// ID is the photo identifier.
	ID string `json:"id"`

	// Name is the original file name.
	Name string `json:"name,omitempty"`

	// Title is the user-assigned title.
	Title string `json:"title,omitempty"`

	// Description is the user-assigned description.
	Description string `json:"description,omitempty"`

	// TagNames are user-assigned tags.
	TagNames []string `json:"tag_names,omitempty"`

	// AILabels are analysis-derived content labels.
	AILabels AILabels `json:"ai_labels"`

	// AIConfidence is the analysis confidence, if analysis has run.
	AIConfidence *float64 `json:"ai_confidence,omitempty"`

	// TakenAt is the capture time, if known.
	TakenAt *time.Time `json:"taken_at,omitempty"`
}

// RankedRecord is a candidate with its computed relevance score. Scores
// are computed fresh per search call and never persisted.
type RankedRecord struct {
	CandidateRecord

	// RelevanceScore is strictly positive in ranked output.
	RelevanceScore float64 `json:"relevance_score"`
}
