package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/query"
)

func testLogger() *logger.Logger {
	return logger.New("error", "text")
}

// fakeSource returns a canned candidate slice.
type fakeSource struct {
	records []CandidateRecord
	err     error

	calls int
	last  *query.StructuredQuery
}

func (f *fakeSource) FindCandidates(_ context.Context, q *query.StructuredQuery) ([]CandidateRecord, error) {
	f.calls++
	f.last = q
	return f.records, f.err
}

func newTestService(src *fakeSource) *Service {
	return NewService(query.NewParser(nil), src, testLogger(), DefaultConfig())
}

func TestService_Search(t *testing.T) {
	src := &fakeSource{
		records: []CandidateRecord{
			{ID: "hit", AILabels: AILabels{Scenes: []string{"beach"}}},
			{ID: "miss", AILabels: AILabels{Scenes: []string{"forest"}}},
		},
	}
	svc := newTestService(src)

	resp, err := svc.Search(context.Background(), Request{Query: "beach photos"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
	if src.last == nil || len(src.last.Scenes) != 1 || src.last.Scenes[0] != "beach" {
		t.Errorf("source received query %+v, want scenes [beach]", src.last)
	}
	if resp.Total != 1 || len(resp.Results) != 1 || resp.Results[0].ID != "hit" {
		t.Errorf("Results = %+v (total %d), want single hit", resp.Results, resp.Total)
	}
	if resp.Parsed == nil || resp.Parsed.Confidence == 0 {
		t.Errorf("Parsed = %+v, want populated structured query", resp.Parsed)
	}
	if resp.Metadata.Candidates != 2 {
		t.Errorf("Metadata.Candidates = %d, want 2", resp.Metadata.Candidates)
	}
}

func TestService_Search_EmptyQuerySkipsFetch(t *testing.T) {
	src := &fakeSource{records: []CandidateRecord{{ID: "p1"}}}
	svc := newTestService(src)

	for _, q := range []string{"", "   ", "the of a"} {
		resp, err := svc.Search(context.Background(), Request{Query: q})
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		if len(resp.Results) != 0 || resp.Total != 0 {
			t.Errorf("Search(%q) returned results %+v, want none", q, resp.Results)
		}
	}

	if src.calls != 0 {
		t.Errorf("source called %d times, want 0 for empty queries", src.calls)
	}
}

func TestService_Search_Limit(t *testing.T) {
	records := make([]CandidateRecord, 50)
	for i := range records {
		records[i] = CandidateRecord{
			ID:       string(rune('a' + i%26)),
			AILabels: AILabels{Scenes: []string{"beach"}},
		}
	}
	src := &fakeSource{records: records}
	svc := newTestService(src)

	resp, err := svc.Search(context.Background(), Request{Query: "beach photos", Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 5 {
		t.Errorf("len(Results) = %d, want 5", len(resp.Results))
	}
	// Only limit*CandidateFactor candidates are ranked
	if want := 5 * DefaultConfig().CandidateFactor; resp.Total != want {
		t.Errorf("Total = %d, want %d", resp.Total, want)
	}
	if resp.Metadata.Candidates != 5*DefaultConfig().CandidateFactor {
		t.Errorf("Metadata.Candidates = %d, want %d",
			resp.Metadata.Candidates, 5*DefaultConfig().CandidateFactor)
	}
}

func TestService_Search_CandidateCapDisabled(t *testing.T) {
	records := make([]CandidateRecord, 50)
	for i := range records {
		records[i] = CandidateRecord{
			ID:       fmt.Sprintf("p%d", i),
			AILabels: AILabels{Scenes: []string{"beach"}},
		}
	}
	src := &fakeSource{records: records}
	svc := NewService(query.NewParser(nil), src, testLogger(), Config{
		DefaultLimit: 20,
		MaxLimit:     200,
	})

	resp, err := svc.Search(context.Background(), Request{Query: "beach photos", Limit: 5})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Total != 50 {
		t.Errorf("Total = %d, want all 50 candidates ranked", resp.Total)
	}
}

func TestService_Search_DefaultAndMaxLimit(t *testing.T) {
	records := make([]CandidateRecord, 300)
	for i := range records {
		records[i] = CandidateRecord{
			ID:       fmt.Sprintf("p%d", i),
			AILabels: AILabels{Scenes: []string{"beach"}},
		}
	}
	src := &fakeSource{records: records}
	svc := newTestService(src)

	resp, err := svc.Search(context.Background(), Request{Query: "beach photos"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != DefaultConfig().DefaultLimit {
		t.Errorf("len(Results) = %d, want default limit %d",
			len(resp.Results), DefaultConfig().DefaultLimit)
	}

	resp, err = svc.Search(context.Background(), Request{Query: "beach photos", Limit: 10000})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != DefaultConfig().MaxLimit {
		t.Errorf("len(Results) = %d, want max limit %d",
			len(resp.Results), DefaultConfig().MaxLimit)
	}
}

func TestService_Search_SourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("store unavailable")}
	svc := newTestService(src)

	if _, err := svc.Search(context.Background(), Request{Query: "beach photos"}); err == nil {
		t.Fatal("Search() error = nil, want store error")
	}
}

// fakeRecorder captures instrumentation calls.
type fakeRecorder struct {
	searches   int
	searchErrs int
	parses     int
	ranks      int
	stages     []string
}

func (f *fakeRecorder) RecordSearch(_ int64, _ int, err error) {
	f.searches++
	if err != nil {
		f.searchErrs++
	}
}

func (f *fakeRecorder) RecordSearchStage(stage string, _ int64) {
	f.stages = append(f.stages, stage)
}

func (f *fakeRecorder) RecordParse(_ int64, _ float64) { f.parses++ }

func (f *fakeRecorder) RecordRank(_ int, _ int64) { f.ranks++ }

func TestService_Search_RecordsMetrics(t *testing.T) {
	rec := &fakeRecorder{}
	src := &fakeSource{
		records: []CandidateRecord{{ID: "hit", AILabels: AILabels{Scenes: []string{"beach"}}}},
	}
	svc := newTestService(src).WithRecorder(rec)

	if _, err := svc.Search(context.Background(), Request{Query: "beach photos"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if rec.searches != 1 || rec.parses != 1 || rec.ranks != 1 {
		t.Errorf("recorder saw searches=%d parses=%d ranks=%d, want 1 each",
			rec.searches, rec.parses, rec.ranks)
	}
	if want := []string{"parse", "fetch", "rank"}; len(rec.stages) != len(want) {
		t.Errorf("stages = %v, want %v", rec.stages, want)
	}

	// Empty parse still counts as a search, without fetch or rank stages
	if _, err := svc.Search(context.Background(), Request{Query: "the of a"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if rec.searches != 2 || rec.ranks != 1 {
		t.Errorf("after empty query: searches=%d ranks=%d, want 2 and 1", rec.searches, rec.ranks)
	}

	// Source failures are recorded as search errors
	svc = newTestService(&fakeSource{err: errors.New("store unavailable")}).WithRecorder(rec)
	if _, err := svc.Search(context.Background(), Request{Query: "beach photos"}); err == nil {
		t.Fatal("Search() error = nil, want store error")
	}
	if rec.searchErrs != 1 {
		t.Errorf("searchErrs = %d, want 1", rec.searchErrs)
	}
}
