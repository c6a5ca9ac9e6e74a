package search

import (
	"sort"
	"strings"

	"github.com/snapsearch/snap-search/internal/query"
)

// Scoring weights. AI scene/object matches dominate, emotions and tags
// follow, free-text substring hits and date matches break remaining ties.
const (
	sceneWeight   = 5
	objectWeight  = 5
	emotionWeight = 3
	tagWeight     = 3
	textWeight    = 2
	dateBonus     = 1
)

// Rank scores candidates against a parsed query and returns only those
// with a positive score, highest first. The sort is stable: candidates
// that tie keep their input order.
func Rank(records []CandidateRecord, q *query.StructuredQuery) []RankedRecord {
	ranked := make([]RankedRecord, 0, len(records))
	for _, rec := range records {
		score := scoreRecord(rec, q)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, RankedRecord{CandidateRecord: rec, RelevanceScore: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].RelevanceScore > ranked[j].RelevanceScore
	})

	return ranked
}

func scoreRecord(rec CandidateRecord, q *query.StructuredQuery) float64 {
	// AI-label component.
	aiScore := float64(sceneWeight*intersectionCount(q.Scenes, rec.AILabels.Scenes) +
		objectWeight*intersectionCount(q.Objects, rec.AILabels.Objects) +
		emotionWeight*intersectionCount(q.Emotions, rec.AILabels.Emotions))

	// The confidence multiplier applies to the AI component only. When
	// confidence is absent or zero the raw score stands unscaled; the
	// asymmetry is deliberate and matches long-standing behavior.
	if rec.AIConfidence != nil && *rec.AIConfidence != 0 {
		aiScore *= *rec.AIConfidence
	}

	score := aiScore

	// Tag matches against every query term, category or keyword alike.
	score += float64(tagWeight * intersectionCount(q.AllTerms(), rec.TagNames))

	// Free-text substring hits. Each field is checked independently, so a
	// keyword appearing in several fields earns several bonuses.
	for _, keyword := range q.Keywords {
		kw := strings.ToLower(keyword)
		for _, field := range []string{rec.Name, rec.Title, rec.Description} {
			if field != "" && strings.Contains(strings.ToLower(field), kw) {
				score += textWeight
			}
		}
	}

	if q.DateRange != nil && rec.TakenAt != nil && q.DateRange.Contains(*rec.TakenAt) {
		score += dateBonus
	}

	return score
}

// intersectionCount returns the case-insensitive set-intersection size of
// two term sequences. Duplicates on either side count once.
func intersectionCount(queryTerms, recordTerms []string) int {
	if len(queryTerms) == 0 || len(recordTerms) == 0 {
		return 0
	}

	have := make(map[string]bool, len(recordTerms))
	for _, t := range recordTerms {
		have[strings.ToLower(t)] = true
	}

	seen := make(map[string]bool, len(queryTerms))
	count := 0
	for _, t := range queryTerms {
		lower := strings.ToLower(t)
		if have[lower] && !seen[lower] {
			seen[lower] = true
			count++
		}
	}
	return count
}
