package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// AnalysisService turns stored reviews into persisted analyses and, when the
// verdict asks for one, follow-up tasks. Persisting the analysis and marking
// the review are two steps; the unique key on review_id makes replays of the
// first step harmless, so a crash between them converges on retry.
type AnalysisService struct {
	reviews  domain.ReviewRepository
	analyses domain.AnalysisRepository
	tasks    domain.TaskRepository
	reason   domain.ReasoningClient
	cache    domain.Cache
	conc     int64
}

func NewAnalysisService(rv domain.ReviewRepository, an domain.AnalysisRepository, ts domain.TaskRepository, rc domain.ReasoningClient, cache domain.Cache, conc int) *AnalysisService {
	if conc < 1 {
		conc = 1
	}
	return &AnalysisService{reviews: rv, analyses: an, tasks: ts, reason: rc, cache: cache, conc: int64(conc)}
}

// AnalyzeOne analyzes a single review end to end. Already-analyzed reviews
// return the stored analysis instead of calling the reasoning service again.
func (s *AnalysisService) AnalyzeOne(ctx context.Context, rv domain.Review) (domain.Analysis, error) {
	if rv.IsAnalyzed {
		an, err := s.analyses.GetAnalysisByReview(ctx, rv.ID)
		if err == nil {
			return an, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.Analysis{}, err
		}
		// marked but no stored analysis; cannot happen through this code
		// path, so flag the inconsistency and redo the analysis
		log.Debug().Int64("review", rv.ID).Msg("review marked analyzed but analysis row missing, re-analyzing")
	}

	verdict, err := s.reason.AnalyzeReview(ctx, rv.Text)
	if err != nil {
		if errors.Is(err, domain.ErrAnalysisParse) {
			observability.ObserveAnalysis("parse_error")
		} else {
			observability.ObserveAnalysis("api_error")
		}
		return domain.Analysis{}, fmt.Errorf("analyze review %d: %w", rv.ID, err)
	}

	an := domain.Analysis{
		ReviewID:          rv.ID,
		BusinessID:        rv.BusinessID,
		UserID:            rv.UserID,
		Text:              rv.Text,
		Category:          verdict.Category,
		Sentiment:         verdict.Sentiment,
		Summary:           verdict.Summary,
		Suggestions:       verdict.Suggestions,
		GeneratedResponse: verdict.GeneratedResponse,
	}
	id, err := s.analyses.CreateAnalysis(ctx, an)
	switch {
	case errors.Is(err, domain.ErrDuplicate):
		// a concurrent or earlier run won the insert; adopt its result
		existing, gerr := s.analyses.GetAnalysisByReview(ctx, rv.ID)
		if gerr != nil {
			return domain.Analysis{}, gerr
		}
		if merr := s.reviews.MarkAnalyzed(ctx, rv.ID); merr != nil {
			return domain.Analysis{}, merr
		}
		observability.ObserveAnalysis("duplicate")
		return existing, nil
	case err != nil:
		observability.ObserveAnalysis("store_error")
		return domain.Analysis{}, err
	}
	an.ID = id

	if err := s.reviews.MarkAnalyzed(ctx, rv.ID); err != nil {
		return domain.Analysis{}, err
	}

	if rec := verdict.Task; rec != nil {
		if terr := s.createRecommendedTask(ctx, rv.BusinessID, id, *rec); terr != nil {
			// the analysis itself is stored and the review is marked; a
			// lost follow-up task must not fail the pipeline
			log.Warn().Err(terr).Int64("review", rv.ID).Msg("recommended task not created")
		}
	}

	observability.ObserveAnalysis("ok")
	s.invalidateAnalyses(ctx, rv.BusinessID)
	return an, nil
}

func (s *AnalysisService) createRecommendedTask(ctx context.Context, businessID string, analysisID int64, rec domain.TaskRecommendation) error {
	t := domain.Task{
		Title:       rec.Title,
		Description: rec.Description,
		AnalysisID:  &analysisID,
		Priority:    rec.Priority,
		DueDate:     DueDateFor(rec.Timeframe, time.Now()),
		CreatedBy:   "system",
		BusinessID:  businessID,
	}
	_, err := s.tasks.CreateTask(ctx, t)
	return err
}

// BatchAnalyze fans the reviews out over a bounded worker pool. A failing
// item is logged and skipped; it stays unanalyzed and the next sweep retries
// it. Returns how many analyses completed.
func (s *AnalysisService) BatchAnalyze(ctx context.Context, reviews []domain.Review) (int, error) {
	sem := semaphore.NewWeighted(s.conc)
	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	for _, rv := range reviews {
		rv := rv

		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return done, err
		}

		wg.Add(1)
		go func(rv domain.Review) {
			defer wg.Done()
			defer sem.Release(1)

			if _, err := s.AnalyzeOne(ctx, rv); err != nil {
				log.Warn().Int64("review", rv.ID).Err(err).Msg("analysis failed")
				return
			}
			mu.Lock()
			done++
			mu.Unlock()
		}(rv)
	}

	wg.Wait()
	return done, nil
}

// pendingSweepLimit caps one sweep; leftovers wait for the next tick.
const pendingSweepLimit = 500

// AnalyzePending sweeps reviews not yet analyzed. Empty businessID sweeps
// every business.
func (s *AnalysisService) AnalyzePending(ctx context.Context, businessID string) (int, error) {
	pending, err := s.reviews.FindUnanalyzed(ctx, businessID, pendingSweepLimit)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	n, err := s.BatchAnalyze(ctx, pending)
	log.Info().Str("business", businessID).Int("pending", len(pending)).Int("analyzed", n).Msg("analyze sweep done")
	return n, err
}

// DueDateFor maps a recommendation timeframe onto a concrete due date.
// The reasoning service phrases timeframes freely ("within a week",
// "immediately"), so matching is by containment, most urgent first.
// Unrecognized timeframes yield no due date rather than a guessed one.
func DueDateFor(timeframe string, now time.Time) *time.Time {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	var d time.Time
	switch {
	case strings.Contains(tf, "immediate"), strings.Contains(tf, "today"):
		d = now
	case strings.Contains(tf, "week"):
		d = now.AddDate(0, 0, 7)
	case strings.Contains(tf, "month"):
		d = now.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &d
}

func (s *AnalysisService) invalidateAnalyses(ctx context.Context, businessID string) {
	if s.cache == nil {
		return
	}
	for _, lim := range []int{50, 100, 200} {
		_ = s.cache.Del(ctx, fmt.Sprintf("analyses:%s:%d", businessID, lim))
	}
	_ = s.cache.Del(ctx, "insights:"+businessID)
}
