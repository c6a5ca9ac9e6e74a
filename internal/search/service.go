package search

import (
	"context"
	"time"

	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/pkg/security"
	"github.com/snapsearch/snap-search/internal/query"
)

// CandidateSource fetches coarse candidate sets for a parsed query. The
// source is expected to over-select; the ranker is the precision stage.
type CandidateSource interface {
	FindCandidates(ctx context.Context, q *query.StructuredQuery) ([]CandidateRecord, error)
}

// Recorder receives search pipeline measurements. *metrics.Metrics
// satisfies it.
type Recorder interface {
	RecordSearch(latencyMs int64, resultCount int, err error)
	RecordSearchStage(stage string, latencyMs int64)
	RecordParse(latencyMs int64, confidence float64)
	RecordRank(candidateCount int, latencyMs int64)
}

// Service orchestrates parse, candidate fetch, and ranking.
type Service struct {
	parser   *query.Parser
	source   CandidateSource
	log      *logger.Logger
	cfg      Config
	recorder Recorder
}

// Config configures the search service.
type Config struct {
	// DefaultLimit is the result count when the request does not set one.
	DefaultLimit int

	// MaxLimit caps the requested result count.
	MaxLimit int

	// CandidateFactor caps how many candidates are ranked, as a
	// multiple of the effective limit. Zero disables the cap.
	CandidateFactor int
}

// DefaultConfig returns sensible search defaults.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:    20,
		MaxLimit:        200,
		CandidateFactor: 5,
	}
}

// NewService creates a search service.
func NewService(parser *query.Parser, source CandidateSource, log *logger.Logger, cfg Config) *Service {
	if cfg.DefaultLimit == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		parser: parser,
		source: source,
		log:    log,
		cfg:    cfg,
	}
}

// WithRecorder attaches a metrics recorder. A nil recorder disables
// instrumentation.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Request represents a search request.
type Request struct {
	// Query is the free-text search phrase.
	Query string `json:"query"`

	// Limit is the maximum number of results to return.
	Limit int `json:"limit,omitempty"`
}

// Response represents a search response.
type Response struct {
	// Query is the original search phrase.
	Query string `json:"query"`

	// Parsed is the structured interpretation of the phrase.
	Parsed *query.StructuredQuery `json:"parsed"`

	// Results are the ranked matches, best first.
	Results []RankedRecord `json:"results"`

	// Total is the number of positive-score matches before the limit.
	Total int `json:"total"`

	// Metadata describes how the search was performed.
	Metadata Metadata `json:"metadata"`
}

// Metadata contains per-stage timings for a search call.
type Metadata struct {
	ParseTimeMs int64 `json:"parse_time_ms"`
	FetchTimeMs int64 `json:"fetch_time_ms"`
	RankTimeMs  int64 `json:"rank_time_ms"`
	TotalTimeMs int64 `json:"total_time_ms"`

	// Candidates is the coarse candidate count delivered by the store.
	Candidates int `json:"candidates"`
}

// Search parses the phrase, fetches candidates, and ranks them.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	parseStart := time.Now()
	parsed := s.parser.Parse(req.Query)
	parseTime := time.Since(parseStart)

	resp := &Response{
		Query:   req.Query,
		Parsed:  parsed,
		Results: []RankedRecord{},
	}

	if s.recorder != nil {
		s.recorder.RecordParse(parseTime.Milliseconds(), parsed.Confidence)
		s.recorder.RecordSearchStage("parse", parseTime.Milliseconds())
	}

	// Nothing survived parsing: no filter signal, nothing can score.
	if parsed.IsEmpty() {
		resp.Metadata = Metadata{
			ParseTimeMs: parseTime.Milliseconds(),
			TotalTimeMs: time.Since(start).Milliseconds(),
		}
		if s.recorder != nil {
			s.recorder.RecordSearch(resp.Metadata.TotalTimeMs, 0, nil)
		}
		return resp, nil
	}

	fetchStart := time.Now()
	candidates, err := s.source.FindCandidates(ctx, parsed)
	if err != nil {
		if s.recorder != nil {
			s.recorder.RecordSearch(time.Since(start).Milliseconds(), 0, err)
		}
		return nil, err
	}
	fetchTime := time.Since(fetchStart)

	// Over-selected candidate sets get capped before the ranking pass.
	if maxCandidates := limit * s.cfg.CandidateFactor; s.cfg.CandidateFactor > 0 && len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	rankStart := time.Now()
	ranked := Rank(candidates, parsed)
	rankTime := time.Since(rankStart)

	resp.Total = len(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	resp.Results = ranked
	resp.Metadata = Metadata{
		ParseTimeMs: parseTime.Milliseconds(),
		FetchTimeMs: fetchTime.Milliseconds(),
		RankTimeMs:  rankTime.Milliseconds(),
		TotalTimeMs: time.Since(start).Milliseconds(),
		Candidates:  len(candidates),
	}

	if s.recorder != nil {
		s.recorder.RecordSearchStage("fetch", fetchTime.Milliseconds())
		s.recorder.RecordSearchStage("rank", rankTime.Milliseconds())
		s.recorder.RecordRank(len(candidates), rankTime.Milliseconds())
		s.recorder.RecordSearch(resp.Metadata.TotalTimeMs, len(resp.Results), nil)
	}

	s.log.Debug("Search completed",
		"query", security.SanitizeForLog(req.Query),
		"candidates", len(candidates),
		"matches", resp.Total,
		"returned", len(resp.Results),
		"total_ms", resp.Metadata.TotalTimeMs,
	)

	return resp, nil
}
