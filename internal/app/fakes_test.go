package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// ---- fakes ----

type fakeReviewRepo struct {
	mu      sync.Mutex
	nextID  int64
	reviews []domain.Review
	latest  *time.Time
}

func (f *fakeReviewRepo) CreateReview(ctx context.Context, r domain.Review) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.reviews = append(f.reviews, r)
	return r.ID, nil
}

func (f *fakeReviewRepo) InsertReviewIfAbsent(ctx context.Context, r domain.Review) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.reviews {
		if ex.BusinessID == r.BusinessID && ex.ExternalID != nil && r.ExternalID != nil && *ex.ExternalID == *r.ExternalID {
			return false, nil
		}
	}
	f.nextID++
	r.ID = f.nextID
	f.reviews = append(f.reviews, r)
	return true, nil
}

func (f *fakeReviewRepo) MarkAnalyzed(ctx context.Context, reviewID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.reviews {
		if f.reviews[i].ID == reviewID {
			f.reviews[i].IsAnalyzed = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeReviewRepo) ListReviews(ctx context.Context, businessID string, pg domain.PageQuery) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if r.BusinessID == businessID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) FindUnanalyzed(ctx context.Context, businessID string, limit int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.reviews {
		if r.IsAnalyzed {
			continue
		}
		if businessID != "" && r.BusinessID != businessID {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReviewRepo) LatestExternalReviewTime(ctx context.Context, businessID string) (*time.Time, error) {
	return f.latest, nil
}

type fakeAnalysisRepo struct {
	mu       sync.Mutex
	nextID   int64
	analyses []domain.Analysis
}

func (f *fakeAnalysisRepo) CreateAnalysis(ctx context.Context, a domain.Analysis) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.analyses {
		if ex.ReviewID == a.ReviewID {
			return 0, domain.ErrDuplicate
		}
	}
	f.nextID++
	a.ID = f.nextID
	f.analyses = append(f.analyses, a)
	return a.ID, nil
}

func (f *fakeAnalysisRepo) GetAnalysis(ctx context.Context, id int64) (domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.analyses {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Analysis{}, domain.ErrNotFound
}

func (f *fakeAnalysisRepo) GetAnalysisByReview(ctx context.Context, reviewID int64) (domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.analyses {
		if a.ReviewID == reviewID {
			return a, nil
		}
	}
	return domain.Analysis{}, domain.ErrNotFound
}

func (f *fakeAnalysisRepo) ListAnalyses(ctx context.Context, businessID string, pg domain.PageQuery) ([]domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Analysis
	for _, a := range f.analyses {
		if a.BusinessID == businessID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) ListUnresolvedNegative(ctx context.Context, businessID string, limit int) ([]domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Analysis
	for _, a := range f.analyses {
		if a.BusinessID == businessID && a.Sentiment == domain.SentimentNegative && !a.IsResolved {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) ListRecentBySentiment(ctx context.Context, businessID string, s domain.Sentiment, limit int) ([]domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Analysis
	for _, a := range f.analyses {
		if a.BusinessID == businessID && a.Sentiment == s {
			out = append(out, a)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) CountBySentiment(ctx context.Context, businessID string) (map[domain.Sentiment]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.Sentiment]int64{}
	for _, a := range f.analyses {
		if a.BusinessID == businessID {
			out[a.Sentiment]++
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) CountByCategory(ctx context.Context, businessID string) (map[domain.Category]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.Category]int64{}
	for _, a := range f.analyses {
		if a.BusinessID == businessID {
			out[a.Category]++
		}
	}
	return out, nil
}

func (f *fakeAnalysisRepo) ResolveAnalysis(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.analyses {
		if f.analyses[i].ID == id {
			f.analyses[i].IsResolved = true
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  []domain.Task
	failAt int // fail the Nth create (1-based) when set
}

func (f *fakeTaskRepo) CreateTask(ctx context.Context, t domain.Task) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	if f.failAt > 0 && int(f.nextID) == f.failAt {
		return 0, errors.New("task store down")
	}
	t.ID = f.nextID
	f.tasks = append(f.tasks, t)
	return t.ID, nil
}

func (f *fakeTaskRepo) ListReviewTasks(ctx context.Context, businessID string, limit int) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.BusinessID == businessID && t.AnalysisID != nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskRepo) ListOptimizationTasks(ctx context.Context, businessID string, limit int) ([]domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Task
	for _, t := range f.tasks {
		if t.BusinessID == businessID && t.AnalysisID == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeEvents struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeEvents) AppendEvent(ctx context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeEvents) UnconsumedEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, len(f.events))
	copy(out, f.events)
	return out, nil
}

func (f *fakeEvents) MarkEventConsumed(ctx context.Context, id string) error { return nil }

type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]domain.Review:
		*d = v.([]domain.Review)
	case *[]domain.Analysis:
		*d = v.([]domain.Analysis)
	case *domain.Insights:
		*d = v.(domain.Insights)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakeFetcher struct {
	bySort map[string][]map[string]any
	calls  int
}

func (f *fakeFetcher) FetchReviews(ctx context.Context, placeID, sort string) ([]map[string]any, error) {
	f.calls++
	return f.bySort[sort], nil
}

type fakePlaces struct{}

func (fakePlaces) PlaceID(ctx context.Context, businessID string) (string, error) {
	return "place-" + businessID, nil
}

// fakeReasoner maps review text to a canned verdict; unknown text errors.
type fakeReasoner struct {
	mu       sync.Mutex
	verdicts map[string]domain.Verdict
	calls    int
}

func (f *fakeReasoner) AnalyzeReview(ctx context.Context, text string) (domain.Verdict, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	v, ok := f.verdicts[text]
	if !ok {
		return domain.Verdict{}, fmt.Errorf("reasoning backend: %w", domain.ErrExternalAPI)
	}
	return v, nil
}

// ---- helpers ----

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func rawReview(author string, secs int64, text string) map[string]any {
	return map[string]any{
		"author_name": author,
		"author_url":  fmt.Sprintf("https://maps.google.com/maps/contrib/%d/reviews", 1000+secs%97),
		"time":        secs,
		"rating":      4,
		"text":        text,
	}
}
