// Package query provides natural-language query understanding for Snap Search.
package query

import "time"

// DateRange is an inclusive time window resolved from a date phrase.
// A nil bound means unbounded on that side.
type DateRange struct {
	// Start is the inclusive lower bound.
	Start *time.Time `json:"start,omitempty"`

	// End is the inclusive upper bound.
	End *time.Time `json:"end,omitempty"`
}

// Contains reports whether t falls within the range, treating a missing
// bound as unbounded on that side.
func (r *DateRange) Contains(t time.Time) bool {
	if r == nil {
		return false
	}
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// StructuredQuery is the result of parsing a free-text search phrase.
// It is created per request and never persisted. Optional collections are
// nil when empty; Keywords is always present, possibly empty.
type StructuredQuery struct {
	// Keywords are free-text fallback terms that matched no category,
	// deduplicated, in first-seen order.
	Keywords []string `json:"keywords"`

	// Scenes are canonical scene terms after synonym normalization.
	Scenes []string `json:"scenes,omitempty"`

	// Objects are canonical object terms after synonym normalization.
	Objects []string `json:"objects,omitempty"`

	// Emotions are canonical emotion terms after synonym normalization.
	Emotions []string `json:"emotions,omitempty"`

	// DateRange is the resolved date window, if any date phrase matched.
	DateRange *DateRange `json:"date_range,omitempty"`

	// Locations are raw place-name phrases in order of appearance.
	// Unlike the category sets they are not normalized or deduplicated.
	Locations []string `json:"locations,omitempty"`

	// Confidence estimates parse quality in [0, 0.95].
	Confidence float64 `json:"confidence"`
}

// IsEmpty reports whether the query carries no usable signal.
func (q *StructuredQuery) IsEmpty() bool {
	return len(q.Keywords) == 0 &&
		len(q.Scenes) == 0 &&
		len(q.Objects) == 0 &&
		len(q.Emotions) == 0 &&
		q.DateRange == nil &&
		len(q.Locations) == 0
}

// AllTerms returns the union of category terms and keywords, in order
// scenes, objects, emotions, keywords. Used for tag matching.
func (q *StructuredQuery) AllTerms() []string {
	terms := make([]string, 0, len(q.Scenes)+len(q.Objects)+len(q.Emotions)+len(q.Keywords))
	terms = append(terms, q.Scenes...)
	terms = append(terms, q.Objects...)
	terms = append(terms, q.Emotions...)
	terms = append(terms, q.Keywords...)
	return terms
}

// categorizedCount is the confidence input: the sum of category set sizes.
// A term present in two dictionaries counts once per category.
func (q *StructuredQuery) categorizedCount() int {
	return len(q.Scenes) + len(q.Objects) + len(q.Emotions)
}
