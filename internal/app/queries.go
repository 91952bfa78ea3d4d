package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// QueryService serves the read side: review and analysis listings, single
// lookups, task lists. Listings go through the cache; single lookups do not.
type QueryService struct {
	reviews  domain.ReviewRepository
	analyses domain.AnalysisRepository
	tasks    domain.TaskRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(rv domain.ReviewRepository, an domain.AnalysisRepository, ts domain.TaskRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{reviews: rv, analyses: an, tasks: ts, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ListReviews(ctx context.Context, businessID string, pg domain.PageQuery) ([]domain.Review, error) {
	pg = normalizePage(pg)
	key := fmt.Sprintf("reviews:%s:%d", businessID, pg.Limit)

	var out []domain.Review
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.reviews.ListReviews(ctx, businessID, pg)
	if err != nil {
		return nil, err
	}

	// copy slice to avoid aliasing the repo's backing array (prevents callers from mutating cached value)
	copyRS := make([]domain.Review, len(rs))
	copy(copyRS, rs)

	// optional size guard
	if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyRS, int(s.cacheTTL.Seconds()))
	}
	return copyRS, nil
}

func (s *QueryService) ListAnalyses(ctx context.Context, businessID string, pg domain.PageQuery) ([]domain.Analysis, error) {
	pg = normalizePage(pg)
	key := fmt.Sprintf("analyses:%s:%d", businessID, pg.Limit)

	var out []domain.Analysis
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	as, err := s.analyses.ListAnalyses(ctx, businessID, pg)
	if err != nil {
		return nil, err
	}

	copyAS := make([]domain.Analysis, len(as))
	copy(copyAS, as)

	if b, _ := json.Marshal(copyAS); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyAS, int(s.cacheTTL.Seconds()))
	}
	return copyAS, nil
}

func (s *QueryService) GetAnalysis(ctx context.Context, id int64) (domain.Analysis, error) {
	return s.analyses.GetAnalysis(ctx, id)
}

func (s *QueryService) ListReviewTasks(ctx context.Context, businessID string, limit int) ([]domain.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.tasks.ListReviewTasks(ctx, businessID, limit)
}

func (s *QueryService) ListOptimizationTasks(ctx context.Context, businessID string, limit int) ([]domain.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.tasks.ListOptimizationTasks(ctx, businessID, limit)
}

func normalizePage(pg domain.PageQuery) domain.PageQuery {
	if pg.Limit <= 0 || pg.Limit > 200 {
		pg.Limit = 50
	}
	if pg.Sort == "" {
		pg.Sort = "newest"
	}
	return pg
}
