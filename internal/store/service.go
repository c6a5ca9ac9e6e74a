package store

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/snapsearch/snap-search/internal/pkg/logger"
	"github.com/snapsearch/snap-search/internal/query"
	"github.com/snapsearch/snap-search/internal/search"
)

// Service provides photo management on top of a Storage backend and
// acts as the candidate source for search.
type Service struct {
	storage Storage
	log     *logger.Logger
}

// NewService creates a new photo service.
func NewService(storage Storage, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		storage: storage,
		log:     log,
	}
}

// SavePhoto validates and persists a photo record.
func (s *Service) SavePhoto(ctx context.Context, photo *PhotoRecord) error {
	photo.Touch()

	if err := s.storage.SavePhoto(ctx, photo); err != nil {
		return err
	}

	if s.log != nil {
		s.log.Debug("photo saved", "photo_id", photo.ID, "status", photo.AnalysisStatus)
	}
	return nil
}

// GetPhoto loads a photo record by ID.
func (s *Service) GetPhoto(ctx context.Context, id string) (*PhotoRecord, error) {
	return s.storage.GetPhoto(ctx, id)
}

// DeletePhoto removes a photo record.
func (s *Service) DeletePhoto(ctx context.Context, id string) error {
	if err := s.storage.DeletePhoto(ctx, id); err != nil {
		return err
	}

	if s.log != nil {
		s.log.Debug("photo deleted", "photo_id", id)
	}
	return nil
}

// CountPhotos returns the number of stored photos.
func (s *Service) CountPhotos(ctx context.Context) (int64, error) {
	return s.storage.CountPhotos(ctx)
}

// SetAnalysisStatus transitions a photo's analysis status.
func (s *Service) SetAnalysisStatus(ctx context.Context, id, status string) error {
	photo, err := s.storage.GetPhoto(ctx, id)
	if err != nil {
		return err
	}

	photo.AnalysisStatus = status
	photo.Touch()
	return s.storage.SavePhoto(ctx, photo)
}

// SetAnalysisResult stores completed AI labels for a photo.
func (s *Service) SetAnalysisResult(ctx context.Context, id string, labels search.AILabels, confidence float64) error {
	photo, err := s.storage.GetPhoto(ctx, id)
	if err != nil {
		return err
	}

	photo.Scenes = labels.Scenes
	photo.Objects = labels.Objects
	photo.Emotions = labels.Emotions
	photo.AIConfidence = &confidence
	photo.AnalysisStatus = StatusCompleted
	photo.Touch()

	return s.storage.SavePhoto(ctx, photo)
}

// Ping checks the storage backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close releases storage resources.
func (s *Service) Close() error {
	return s.storage.Close()
}

// FindCandidates selects photos worth scoring for the given query.
// Categorized terms and date ranges use the secondary indexes; free
// keywords need substring matching over text fields, so they fall back
// to the full photo set.
func (s *Service) FindCandidates(ctx context.Context, q *query.StructuredQuery) ([]search.CandidateRecord, error) {
	if q == nil || q.IsEmpty() {
		return nil, nil
	}

	ids, err := s.candidateIDs(ctx, q)
	if err != nil {
		return nil, err
	}

	records, err := s.storage.GetPhotos(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]search.CandidateRecord, 0, len(records))
	for _, record := range records {
		candidates = append(candidates, record.ToCandidate())
	}

	if s.log != nil {
		s.log.Debug("candidates selected", "count", len(candidates))
	}
	return candidates, nil
}

func (s *Service) candidateIDs(ctx context.Context, q *query.StructuredQuery) ([]string, error) {
	// Keywords match against name, title, and description text, which
	// the indexes cannot answer. Same for locations.
	if len(q.Keywords) > 0 || len(q.Locations) > 0 {
		return s.storage.AllIDs(ctx)
	}

	var (
		mu  sync.Mutex
		ids []string
	)
	collect := func(found []string) {
		mu.Lock()
		ids = append(ids, found...)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)

	lookupLabels := func(kind string, terms []string) {
		for _, term := range terms {
			term := term
			g.Go(func() error {
				found, err := s.storage.IDsByLabel(gctx, kind, term)
				if err != nil {
					return err
				}
				collect(found)
				return nil
			})
			// Users tag photos with the same vocabulary the parser
			// categorizes, so every term also checks the tag index.
			g.Go(func() error {
				found, err := s.storage.IDsByTag(gctx, term)
				if err != nil {
					return err
				}
				collect(found)
				return nil
			})
		}
	}

	lookupLabels(LabelScene, q.Scenes)
	lookupLabels(LabelObject, q.Objects)
	lookupLabels(LabelEmotion, q.Emotions)

	if q.DateRange != nil {
		g.Go(func() error {
			found, err := s.storage.IDsByDateRange(gctx, q.DateRange.Start, q.DateRange.End)
			if err != nil {
				return err
			}
			collect(found)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return dedupe(ids), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
