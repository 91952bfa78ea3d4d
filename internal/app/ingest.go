package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// IngestionService merges freshly-fetched provider reviews with stored ones
// and persists only genuinely new rows. Running it twice over the same raw
// set adds nothing the second time; the store-level identity check is the
// correctness guarantee, not the timestamp shortcut.
type IngestionService struct {
	fetcher domain.ReviewFetcher
	repo    domain.ReviewRepository
	events  domain.EventStore
	places  domain.PlaceResolver
	cache   domain.Cache
}

func NewIngestionService(f domain.ReviewFetcher, r domain.ReviewRepository, ev domain.EventStore, pl domain.PlaceResolver, cache domain.Cache) *IngestionService {
	return &IngestionService{fetcher: f, repo: r, events: ev, places: pl, cache: cache}
}

// Ingest persists the genuinely new reviews out of raws and returns how many
// were added. lastKnown only short-circuits obviously-old rows; rows with an
// unknown timestamp always go through the existence check.
func (s *IngestionService) Ingest(ctx context.Context, businessID string, raws []map[string]any, lastKnown *time.Time) (int, error) {
	added := 0
	for _, raw := range raws {
		rv := mapExternalReview(businessID, raw)

		if lastKnown != nil && !rv.CreatedAt.IsZero() && !rv.CreatedAt.After(*lastKnown) {
			continue
		}

		inserted, err := s.repo.InsertReviewIfAbsent(ctx, rv)
		if err != nil {
			return added, fmt.Errorf("insert review for %s: %w", businessID, err)
		}
		if !inserted {
			continue // identity already stored, or repeated within this batch
		}
		added++
		observability.ReviewsIngested.WithLabelValues(string(domain.SourceGoogle)).Inc()
	}
	return added, nil
}

// SyncBusiness runs one sync pass: fetch under both sort orders, merge,
// ingest, and emit a reviews_added event when anything new landed. The event
// is what chains analysis; ingestion itself never calls the reasoning
// service.
func (s *IngestionService) SyncBusiness(ctx context.Context, businessID string) (int, error) {
	placeID, err := s.places.PlaceID(ctx, businessID)
	if err != nil {
		return 0, fmt.Errorf("resolve place for %s: %w", businessID, err)
	}

	// No reliable "since" cursor upstream: both orders together approximate
	// full coverage of the provider-granted window. One call per order.
	newest, err := s.fetcher.FetchReviews(ctx, placeID, domain.SortNewest)
	if err != nil {
		return 0, err
	}
	relevant, err := s.fetcher.FetchReviews(ctx, placeID, domain.SortMostRelevant)
	if err != nil {
		return 0, err
	}
	raws := append(newest, relevant...)

	lastKnown, err := s.repo.LatestExternalReviewTime(ctx, businessID)
	if err != nil {
		return 0, err
	}

	added, err := s.Ingest(ctx, businessID, raws, lastKnown)
	if err != nil {
		return added, err
	}

	log.Info().
		Str("business", businessID).
		Int("fetched", len(raws)).
		Int("added", added).
		Msg("review sync pass done")

	s.invalidateReviews(ctx, businessID)

	if added > 0 {
		payload, _ := json.Marshal(map[string]any{"added": added})
		ev := domain.Event{
			ID:         uuid.New().String(),
			Type:       domain.EventReviewsAdded,
			BusinessID: businessID,
			Payload:    payload,
		}
		if err := s.events.AppendEvent(ctx, ev); err != nil {
			// reviews are persisted; the next scheduled analyze pass still
			// picks them up even without the event
			log.Warn().Err(err).Str("business", businessID).Msg("emit reviews_added failed")
		}
	}
	return added, nil
}

// RequestSync enqueues an immediate sync via the outbox, for callers (HTTP)
// living in a different process than the scheduler.
func (s *IngestionService) RequestSync(ctx context.Context, businessID string) error {
	return s.events.AppendEvent(ctx, domain.Event{
		ID:         uuid.New().String(),
		Type:       domain.EventSyncRequested,
		BusinessID: businessID,
	})
}

// SubmitUserReview stores a directly-submitted review. It enters the same
// analysis pipeline as external ones; no external identity applies.
func (s *IngestionService) SubmitUserReview(ctx context.Context, businessID string, userID *string, text string, category *domain.Category) (domain.Review, error) {
	if strings.TrimSpace(text) == "" {
		return domain.Review{}, fmt.Errorf("review text is required")
	}
	rv := domain.Review{
		BusinessID: businessID,
		UserID:     userID,
		Text:       text,
		Category:   category,
		Source:     domain.SourceUser,
	}
	id, err := s.repo.CreateReview(ctx, rv)
	if err != nil {
		return domain.Review{}, err
	}
	rv.ID = id
	observability.ReviewsIngested.WithLabelValues(string(domain.SourceUser)).Inc()
	s.invalidateReviews(ctx, businessID)
	return rv, nil
}

// invalidate the most common review list cache variants
func (s *IngestionService) invalidateReviews(ctx context.Context, businessID string) {
	if s.cache == nil {
		return
	}
	for _, lim := range []int{50, 100, 200} {
		_ = s.cache.Del(ctx, fmt.Sprintf("reviews:%s:%d", businessID, lim))
	}
}
