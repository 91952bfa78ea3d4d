package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// Aggregation thresholds for periodic optimization tasks.
const (
	negativeShareThreshold = 0.20
	positiveShareThreshold = 0.50
	maxRecurringIssueTasks = 3
	attentionListLimit     = 50
	commonIssueLimit       = 5
)

// InsightService reads stored analyses and turns them into aggregates and
// periodic improvement tasks. It never triggers analysis itself.
type InsightService struct {
	analyses domain.AnalysisRepository
	tasks    domain.TaskRepository
	cache    domain.Cache
	ttlSec   int
}

func NewInsightService(an domain.AnalysisRepository, ts domain.TaskRepository, cache domain.Cache, ttlSec int) *InsightService {
	return &InsightService{analyses: an, tasks: ts, cache: cache, ttlSec: ttlSec}
}

// Insights aggregates sentiment and category counts plus the most frequent
// unresolved complaint themes.
func (s *InsightService) Insights(ctx context.Context, businessID string) (domain.Insights, error) {
	key := "insights:" + businessID
	if s.cache != nil {
		var cached domain.Insights
		if ok, err := s.cache.Get(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	sentiments, err := s.analyses.CountBySentiment(ctx, businessID)
	if err != nil {
		return domain.Insights{}, err
	}
	categories, err := s.analyses.CountByCategory(ctx, businessID)
	if err != nil {
		return domain.Insights{}, err
	}

	var total int64
	for _, n := range sentiments {
		total += n
	}

	negatives, err := s.analyses.ListUnresolvedNegative(ctx, businessID, attentionListLimit)
	if err != nil {
		return domain.Insights{}, err
	}

	out := domain.Insights{
		TotalAnalyzed:   total,
		SentimentCounts: sentiments,
		CategoryCounts:  categories,
		CommonIssues:    commonIssues(negatives, commonIssueLimit),
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, out, s.ttlSec); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("insights cache set failed")
		}
	}
	return out, nil
}

// ReviewsNeedingAttention lists unresolved negative analyses, the ones an
// operator should respond to first.
func (s *InsightService) ReviewsNeedingAttention(ctx context.Context, businessID string, limit int) ([]domain.Analysis, error) {
	if limit <= 0 || limit > attentionListLimit {
		limit = attentionListLimit
	}
	return s.analyses.ListUnresolvedNegative(ctx, businessID, limit)
}

// Resolve marks one analysis handled. Resolving twice is a no-op.
func (s *InsightService) Resolve(ctx context.Context, analysisID int64, businessID string) error {
	if err := s.analyses.ResolveAnalysis(ctx, analysisID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, "insights:"+businessID)
	}
	return nil
}

// GenerateOptimizationTasks derives periodic improvement tasks from the
// current aggregate picture and returns how many were created. The rules:
// a category whose recent negatives exceed a fifth of all analyses gets a
// high-priority remediation task, the most frequent recurring complaint
// themes each get a medium task, and a majority-positive business gets a
// preservation task so what works is kept working.
func (s *InsightService) GenerateOptimizationTasks(ctx context.Context, businessID string) (int, error) {
	sentiments, err := s.analyses.CountBySentiment(ctx, businessID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, n := range sentiments {
		total += n
	}
	if total == 0 {
		return 0, nil
	}

	now := time.Now()
	created := 0

	negShare := float64(sentiments[domain.SentimentNegative]) / float64(total)
	if negShare > negativeShareThreshold {
		negatives, err := s.analyses.ListRecentBySentiment(ctx, businessID, domain.SentimentNegative, attentionListLimit)
		if err != nil {
			return created, err
		}
		for _, cat := range dominantCategories(negatives) {
			due := now.AddDate(0, 0, 14)
			t := domain.Task{
				Title:       fmt.Sprintf("Address recurring %s complaints", cat),
				Description: fmt.Sprintf("Negative feedback makes up %.0f%% of analyzed reviews, concentrated in %s. Review the recent complaints and plan corrective steps.", negShare*100, cat),
				Priority:    domain.PriorityHigh,
				DueDate:     &due,
				CreatedBy:   "system",
				BusinessID:  businessID,
			}
			if _, err := s.tasks.CreateTask(ctx, t); err != nil {
				return created, err
			}
			created++
		}

		for _, issue := range commonIssues(negatives, maxRecurringIssueTasks) {
			due := now.AddDate(0, 0, 7)
			t := domain.Task{
				Title:       "Recurring issue: " + issue,
				Description: "Multiple recent reviews raise this point. Investigate and resolve the underlying cause.",
				Priority:    domain.PriorityMedium,
				DueDate:     &due,
				CreatedBy:   "system",
				BusinessID:  businessID,
			}
			if _, err := s.tasks.CreateTask(ctx, t); err != nil {
				return created, err
			}
			created++
		}
	}

	posShare := float64(sentiments[domain.SentimentPositive]) / float64(total)
	if posShare > positiveShareThreshold {
		due := now.AddDate(0, 0, 21)
		t := domain.Task{
			Title:       "Preserve what customers praise",
			Description: fmt.Sprintf("Positive feedback makes up %.0f%% of analyzed reviews. Document the practices customers highlight so they survive staff and menu changes.", posShare*100),
			Priority:    domain.PriorityLow,
			DueDate:     &due,
			CreatedBy:   "system",
			BusinessID:  businessID,
		}
		if _, err := s.tasks.CreateTask(ctx, t); err != nil {
			return created, err
		}
		created++
	}

	if created > 0 {
		log.Info().Str("business", businessID).Int("tasks", created).Msg("optimization tasks generated")
	}
	return created, nil
}

// dominantCategories returns the categories holding the largest share of the
// given analyses, most frequent first, at most two.
func dominantCategories(analyses []domain.Analysis) []domain.Category {
	counts := map[domain.Category]int{}
	for _, a := range analyses {
		counts[a.Category]++
	}
	cats := make([]domain.Category, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) > 2 {
		cats = cats[:2]
	}
	return cats
}

// commonIssues extracts the most frequent suggestion lines across the given
// analyses, normalized for case, preserving first-seen casing.
func commonIssues(analyses []domain.Analysis, limit int) []string {
	counts := map[string]int{}
	display := map[string]string{}
	order := []string{}

	for _, a := range analyses {
		if a.Suggestions == nil {
			continue
		}
		for _, line := range strings.Split(*a.Suggestions, "\n") {
			line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*• "))
			if line == "" {
				continue
			}
			key := strings.ToLower(line)
			if counts[key] == 0 {
				display[key] = line
				order = append(order, key)
			}
			counts[key]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > limit {
		order = order[:limit]
	}
	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, display[k])
	}
	return out
}
