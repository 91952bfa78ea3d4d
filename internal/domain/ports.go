package domain

import (
	"context"
	"time"
)

type ReviewRepository interface {
	// Write paths
	CreateReview(ctx context.Context, r Review) (int64, error)
	// InsertReviewIfAbsent persists an external review unless one with the
	// same external identity already exists for the business. Returns true
	// when a row was actually inserted.
	InsertReviewIfAbsent(ctx context.Context, r Review) (bool, error)
	MarkAnalyzed(ctx context.Context, reviewID int64) error

	// Read paths
	ListReviews(ctx context.Context, businessID string, pg PageQuery) ([]Review, error)
	// FindUnanalyzed returns reviews still awaiting analysis; businessID ""
	// means all businesses.
	FindUnanalyzed(ctx context.Context, businessID string, limit int) ([]Review, error)
	LatestExternalReviewTime(ctx context.Context, businessID string) (*time.Time, error)
}

type AnalysisRepository interface {
	// CreateAnalysis fails with ErrDuplicate when an analysis for the same
	// review already exists. That uniqueness is the at-most-once guard.
	CreateAnalysis(ctx context.Context, a Analysis) (int64, error)
	GetAnalysis(ctx context.Context, id int64) (Analysis, error)
	GetAnalysisByReview(ctx context.Context, reviewID int64) (Analysis, error)
	ListAnalyses(ctx context.Context, businessID string, pg PageQuery) ([]Analysis, error)
	ListUnresolvedNegative(ctx context.Context, businessID string, limit int) ([]Analysis, error)
	ListRecentBySentiment(ctx context.Context, businessID string, s Sentiment, limit int) ([]Analysis, error)
	CountBySentiment(ctx context.Context, businessID string) (map[Sentiment]int64, error)
	CountByCategory(ctx context.Context, businessID string) (map[Category]int64, error)
	ResolveAnalysis(ctx context.Context, id int64) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, t Task) (int64, error)
	ListReviewTasks(ctx context.Context, businessID string, limit int) ([]Task, error)
	ListOptimizationTasks(ctx context.Context, businessID string, limit int) ([]Task, error)
}

// JobStore persists the scheduler's job table. Nobody else touches it.
type JobStore interface {
	UpsertJob(ctx context.Context, j JobRecord) error
	DueJobs(ctx context.Context, now time.Time) ([]JobRecord, error)
	CompleteJobRun(ctx context.Context, name string, businessID *string, nextRun, ranAt time.Time) error
	DeleteJobs(ctx context.Context, name string) error
}

// EventStore is the outbox: appended in the same flow that produced the
// fact, drained by the dispatcher, marked consumed only after the handler
// succeeded.
type EventStore interface {
	AppendEvent(ctx context.Context, e Event) error
	UnconsumedEvents(ctx context.Context, limit int) ([]Event, error)
	MarkEventConsumed(ctx context.Context, id string) error
}

// Provider sort orders. The provider has no reliable "since" cursor, so a
// sync fetches under both orders and merges.
const (
	SortNewest       = "newest"
	SortMostRelevant = "most_relevant"
)

// ReviewFetcher pulls provider-shaped review payloads for a place. Pure
// read, but each call burns provider quota: one call per sort per sync.
type ReviewFetcher interface {
	FetchReviews(ctx context.Context, placeID, sort string) ([]map[string]any, error)
}

// ReasoningClient submits review text to the external reasoning service and
// returns the validated verdict.
type ReasoningClient interface {
	AnalyzeReview(ctx context.Context, text string) (Verdict, error)
}

// PlaceResolver maps a business to its provider place ID. Business CRUD
// itself lives outside this service.
type PlaceResolver interface {
	PlaceID(ctx context.Context, businessID string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type PageQuery struct {
	Limit int
	Sort  string
}
