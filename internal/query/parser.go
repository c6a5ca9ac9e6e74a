package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/snapsearch/snap-search/internal/pkg/logger"
)

// Confidence scoring weights. The cap stays below 1.0: this is a
// heuristic parse, never a certainty.
const (
	confidenceBase       = 0.3
	confidencePerTerm    = 0.15
	confidenceDateBonus  = 0.10
	confidenceLocBonus   = 0.10
	confidencePerKeyword = 0.05
	confidenceKeywordCap = 0.15
	confidenceMax        = 0.95
)

// tokenSeparators matches every non-alphanumeric, non-whitespace rune in
// the lowercased query; each is replaced by a space before splitting.
var tokenSeparators = regexp.MustCompile(`[^a-z0-9\s]`)

// Parser converts free-text search phrases into structured queries using
// fixed dictionaries. It holds no mutable state and is safe for
// concurrent use.
type Parser struct {
	log *logger.Logger

	// now anchors relative date phrases; overridden in tests.
	now func() time.Time
}

// NewParser creates a rule-based query parser.
func NewParser(log *logger.Logger) *Parser {
	return &Parser{
		log: log,
		now: time.Now,
	}
}

// Parse converts a raw query into a StructuredQuery. It never fails:
// empty or unparseable input degrades to an empty, zero-confidence query.
func (p *Parser) Parse(raw string) *StructuredQuery {
	sq := &StructuredQuery{Keywords: []string{}}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return sq
	}

	lower := strings.ToLower(trimmed)

	// Dates match against the lowercased text; locations need the
	// original casing.
	sq.DateRange = extractDateRange(lower, p.now())
	sq.Locations = extractLocations(trimmed)

	p.categorize(sq, tokenize(lower))
	sq.Confidence = confidence(sq)

	if p.log != nil {
		p.log.Debug("Parsed query",
			"query", raw,
			"scenes", len(sq.Scenes),
			"objects", len(sq.Objects),
			"emotions", len(sq.Emotions),
			"keywords", len(sq.Keywords),
			"has_date", sq.DateRange != nil,
			"locations", len(sq.Locations),
			"confidence", sq.Confidence,
		)
	}

	return sq
}

// tokenize splits the lowercased query into candidate terms, dropping
// stop words.
func tokenize(lower string) []string {
	cleaned := tokenSeparators.ReplaceAllString(lower, " ")

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// categorize assigns each token to every category dictionary its
// synonym-normalized form belongs to. The three lookups are independent:
// a term may land in more than one category if dictionaries ever overlap.
// Tokens matching no category fall back to keywords in their original,
// unnormalized form.
func (p *Parser) categorize(sq *StructuredQuery, tokens []string) {
	seenScene := make(map[string]bool)
	seenObject := make(map[string]bool)
	seenEmotion := make(map[string]bool)
	seenKeyword := make(map[string]bool)

	for _, token := range tokens {
		normalized := token
		if canonical, ok := synonyms[token]; ok {
			normalized = canonical
		}

		matched := false
		if sceneTerms[normalized] {
			matched = true
			if !seenScene[normalized] {
				seenScene[normalized] = true
				sq.Scenes = append(sq.Scenes, normalized)
			}
		}
		if objectTerms[normalized] {
			matched = true
			if !seenObject[normalized] {
				seenObject[normalized] = true
				sq.Objects = append(sq.Objects, normalized)
			}
		}
		if emotionTerms[normalized] {
			matched = true
			if !seenEmotion[normalized] {
				seenEmotion[normalized] = true
				sq.Emotions = append(sq.Emotions, normalized)
			}
		}

		if !matched && !seenKeyword[token] {
			seenKeyword[token] = true
			sq.Keywords = append(sq.Keywords, token)
		}
	}
}

// confidence derives the score from what the parse found.
func confidence(sq *StructuredQuery) float64 {
	score := confidenceBase

	score += confidencePerTerm * float64(sq.categorizedCount())

	if sq.DateRange != nil {
		score += confidenceDateBonus
	}
	if len(sq.Locations) > 0 {
		score += confidenceLocBonus
	}

	keywordBonus := confidencePerKeyword * float64(len(sq.Keywords))
	if keywordBonus > confidenceKeywordCap {
		keywordBonus = confidenceKeywordCap
	}
	score += keywordBonus

	if score > confidenceMax {
		score = confidenceMax
	}
	return score
}
