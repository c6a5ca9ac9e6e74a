package store

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/snapsearch/snap-search/internal/pkg/errors"
	"github.com/snapsearch/snap-search/internal/query"
	"github.com/snapsearch/snap-search/internal/search"
)

func testPhoto(id string) *PhotoRecord {
	return NewPhotoRecord(id, id+".jpg", "abc123")
}

func analyzedPhoto(id string, scenes, objects, emotions []string) *PhotoRecord {
	photo := testPhoto(id)
	photo.Scenes = scenes
	photo.Objects = objects
	photo.Emotions = emotions
	conf := 0.9
	photo.AIConfidence = &conf
	photo.AnalysisStatus = StatusCompleted
	return photo
}

func TestMemoryStorage_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	photo := testPhoto("p1")
	if err := storage.SavePhoto(ctx, photo); err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}

	loaded, err := storage.GetPhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPhoto() error = %v", err)
	}

	if loaded.Name != "p1.jpg" {
		t.Errorf("Name = %s, want p1.jpg", loaded.Name)
	}

	if loaded.AnalysisStatus != StatusPending {
		t.Errorf("AnalysisStatus = %s, want %s", loaded.AnalysisStatus, StatusPending)
	}
}

func TestMemoryStorage_GetMissing(t *testing.T) {
	storage := NewMemoryStorage()

	_, err := storage.GetPhoto(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for missing photo")
	}

	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestMemoryStorage_SaveInvalid(t *testing.T) {
	storage := NewMemoryStorage()

	photo := &PhotoRecord{Name: "x.jpg"}
	if err := storage.SavePhoto(context.Background(), photo); err == nil {
		t.Fatal("expected validation error for empty ID")
	}
}

func TestMemoryStorage_Delete(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	if err := storage.SavePhoto(ctx, testPhoto("p1")); err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}

	if err := storage.DeletePhoto(ctx, "p1"); err != nil {
		t.Fatalf("DeletePhoto() error = %v", err)
	}

	if _, err := storage.GetPhoto(ctx, "p1"); !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found after delete, got %v", err)
	}

	if err := storage.DeletePhoto(ctx, "p1"); !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found deleting twice, got %v", err)
	}
}

func TestMemoryStorage_IDsByLabel(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	storage.SavePhoto(ctx, analyzedPhoto("p1", []string{"beach"}, nil, nil))
	storage.SavePhoto(ctx, analyzedPhoto("p2", []string{"Beach", "sunset"}, nil, nil))
	storage.SavePhoto(ctx, analyzedPhoto("p3", nil, []string{"dog"}, nil))

	ids, err := storage.IDsByLabel(ctx, LabelScene, "beach")
	if err != nil {
		t.Fatalf("IDsByLabel() error = %v", err)
	}

	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "p2" {
		t.Errorf("IDsByLabel(scene, beach) = %v, want [p1 p2]", ids)
	}

	ids, _ = storage.IDsByLabel(ctx, LabelObject, "dog")
	if len(ids) != 1 || ids[0] != "p3" {
		t.Errorf("IDsByLabel(object, dog) = %v, want [p3]", ids)
	}
}

func TestMemoryStorage_IDsByDateRange(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	p1 := testPhoto("p1")
	p1.TakenAt = &jan
	p2 := testPhoto("p2")
	p2.TakenAt = &jun
	p3 := testPhoto("p3") // no capture time

	storage.SavePhoto(ctx, p1)
	storage.SavePhoto(ctx, p2)
	storage.SavePhoto(ctx, p3)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	ids, err := storage.IDsByDateRange(ctx, &start, &end)
	if err != nil {
		t.Fatalf("IDsByDateRange() error = %v", err)
	}

	if len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("IDsByDateRange() = %v, want [p1]", ids)
	}

	// Open-ended range includes everything dated
	ids, _ = storage.IDsByDateRange(ctx, nil, nil)
	if len(ids) != 2 {
		t.Errorf("open range returned %d ids, want 2", len(ids))
	}
}

func TestService_FindCandidates_UsesLabelIndexes(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewService(storage, nil)

	storage.SavePhoto(ctx, analyzedPhoto("p1", []string{"beach"}, nil, nil))
	storage.SavePhoto(ctx, analyzedPhoto("p2", nil, []string{"dog"}, nil))
	storage.SavePhoto(ctx, analyzedPhoto("p3", []string{"forest"}, nil, nil))

	q := &query.StructuredQuery{
		Keywords: []string{},
		Scenes:   []string{"beach"},
		Objects:  []string{"dog"},
	}

	candidates, err := svc.FindCandidates(ctx, q)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}

	got := map[string]bool{}
	for _, c := range candidates {
		got[c.ID] = true
	}
	if !got["p1"] || !got["p2"] {
		t.Errorf("candidates = %v, want p1 and p2", got)
	}
}

func TestService_FindCandidates_KeywordsScanAll(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewService(storage, nil)

	storage.SavePhoto(ctx, testPhoto("p1"))
	storage.SavePhoto(ctx, testPhoto("p2"))

	q := &query.StructuredQuery{Keywords: []string{"birthday"}}

	candidates, err := svc.FindCandidates(ctx, q)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}

	if len(candidates) != 2 {
		t.Errorf("got %d candidates, want all 2 for keyword query", len(candidates))
	}
}

func TestService_FindCandidates_TagIndex(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewService(storage, nil)

	// Unanalyzed photo tagged by the user still surfaces for a
	// categorized term.
	p1 := testPhoto("p1")
	p1.TagNames = []string{"beach", "vacation"}
	storage.SavePhoto(ctx, p1)
	storage.SavePhoto(ctx, testPhoto("p2"))

	q := &query.StructuredQuery{
		Keywords: []string{},
		Scenes:   []string{"beach"},
	}

	candidates, err := svc.FindCandidates(ctx, q)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}

	if len(candidates) != 1 || candidates[0].ID != "p1" {
		t.Errorf("candidates = %v, want [p1]", candidates)
	}
}

func TestService_FindCandidates_EmptyQuery(t *testing.T) {
	svc := NewService(NewMemoryStorage(), nil)

	candidates, err := svc.FindCandidates(context.Background(), &query.StructuredQuery{Keywords: []string{}})
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}

	if len(candidates) != 0 {
		t.Errorf("got %d candidates for empty query, want 0", len(candidates))
	}
}

func TestService_FindCandidates_Dedupes(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewService(storage, nil)

	// Photo matches both its scene label and its tag.
	p1 := analyzedPhoto("p1", []string{"beach"}, nil, nil)
	p1.TagNames = []string{"beach"}
	storage.SavePhoto(ctx, p1)

	q := &query.StructuredQuery{
		Keywords: []string{},
		Scenes:   []string{"beach"},
	}

	candidates, err := svc.FindCandidates(ctx, q)
	if err != nil {
		t.Fatalf("FindCandidates() error = %v", err)
	}

	if len(candidates) != 1 {
		t.Errorf("got %d candidates, want 1 (deduplicated)", len(candidates))
	}
}

func TestService_SetAnalysisResult(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	svc := NewService(storage, nil)

	if err := svc.SavePhoto(ctx, testPhoto("p1")); err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}

	labels := search.AILabels{
		Scenes:   []string{"beach", "sunset"},
		Objects:  []string{"person"},
		Emotions: []string{"happy"},
	}

	if err := svc.SetAnalysisResult(ctx, "p1", labels, 0.87); err != nil {
		t.Fatalf("SetAnalysisResult() error = %v", err)
	}

	photo, err := svc.GetPhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPhoto() error = %v", err)
	}

	if !photo.Analyzed() {
		t.Errorf("AnalysisStatus = %s, want %s", photo.AnalysisStatus, StatusCompleted)
	}

	if photo.AIConfidence == nil || *photo.AIConfidence != 0.87 {
		t.Errorf("AIConfidence = %v, want 0.87", photo.AIConfidence)
	}

	if len(photo.Scenes) != 2 {
		t.Errorf("Scenes = %v, want [beach sunset]", photo.Scenes)
	}

	// Labels now show up in the index.
	ids, _ := storage.IDsByLabel(ctx, LabelEmotion, "happy")
	if len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("IDsByLabel(emotion, happy) = %v, want [p1]", ids)
	}
}

func TestService_SetAnalysisStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStorage(), nil)

	if err := svc.SavePhoto(ctx, testPhoto("p1")); err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}

	if err := svc.SetAnalysisStatus(ctx, "p1", StatusProcessing); err != nil {
		t.Fatalf("SetAnalysisStatus() error = %v", err)
	}

	photo, _ := svc.GetPhoto(ctx, "p1")
	if photo.AnalysisStatus != StatusProcessing {
		t.Errorf("AnalysisStatus = %s, want %s", photo.AnalysisStatus, StatusProcessing)
	}
}

func TestPhotoRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*PhotoRecord)
		wantErr bool
	}{
		{"valid", func(p *PhotoRecord) {}, false},
		{"empty id", func(p *PhotoRecord) { p.ID = "" }, true},
		{"empty name", func(p *PhotoRecord) { p.Name = "" }, true},
		{"empty status", func(p *PhotoRecord) { p.AnalysisStatus = "" }, true},
		{"unknown status", func(p *PhotoRecord) { p.AnalysisStatus = "WAITING" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			photo := testPhoto("p1")
			tt.modify(photo)

			err := photo.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRedisStorage_InvalidURL(t *testing.T) {
	_, err := NewRedisStorage("invalid://url", "")
	if err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewRedisStorage_ConnectionFailure(t *testing.T) {
	// Try to connect to non-existent Redis
	_, err := NewRedisStorage("redis://localhost:9999", "")
	if err == nil {
		t.Fatal("expected error for connection failure")
	}
}

func TestRedisStorage_SaveAndFind(t *testing.T) {
	// Skip if Redis not available
	storage, err := NewRedisStorage("redis://localhost:6379/15", "snaptest:")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()

	photo := analyzedPhoto("redis-p1", []string{"beach"}, []string{"dog"}, []string{"happy"})
	defer storage.DeletePhoto(ctx, photo.ID)

	if err := storage.SavePhoto(ctx, photo); err != nil {
		t.Fatalf("SavePhoto failed: %v", err)
	}

	loaded, err := storage.GetPhoto(ctx, photo.ID)
	if err != nil {
		t.Fatalf("GetPhoto failed: %v", err)
	}

	if loaded.Name != photo.Name {
		t.Errorf("Name = %s, want %s", loaded.Name, photo.Name)
	}

	ids, err := storage.IDsByLabel(ctx, LabelScene, "beach")
	if err != nil {
		t.Fatalf("IDsByLabel failed: %v", err)
	}

	found := false
	for _, id := range ids {
		if id == photo.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("IDsByLabel(scene, beach) = %v, missing %s", ids, photo.ID)
	}
}

func TestRedisStorage_DeleteCleansIndexes(t *testing.T) {
	storage, err := NewRedisStorage("redis://localhost:6379/15", "snaptest:")
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer storage.Close()

	ctx := context.Background()

	photo := analyzedPhoto("redis-p2", []string{"sunset"}, nil, nil)
	if err := storage.SavePhoto(ctx, photo); err != nil {
		t.Fatalf("SavePhoto failed: %v", err)
	}

	if err := storage.DeletePhoto(ctx, photo.ID); err != nil {
		t.Fatalf("DeletePhoto failed: %v", err)
	}

	ids, err := storage.IDsByLabel(ctx, LabelScene, "sunset")
	if err != nil {
		t.Fatalf("IDsByLabel failed: %v", err)
	}
	for _, id := range ids {
		if id == photo.ID {
			t.Errorf("deleted photo %s still in scene index", photo.ID)
		}
	}
}
