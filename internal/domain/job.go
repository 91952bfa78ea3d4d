package domain

import "time"

// JobRecord is a scheduled pipeline job. BusinessID nil means the job runs
// globally. Owned exclusively by the scheduler.
type JobRecord struct {
	Name       string
	BusinessID *string
	Spec       string // cron expression or "@every <duration>"
	NextRunAt  time.Time
	LastRunAt  *time.Time
}

// Event is an outbox record. Events are dispatched at least once; consumers
// must tolerate duplicates (the pipeline's idempotence guarantees make that
// safe for every event type emitted here).
type Event struct {
	ID         string
	Type       string
	BusinessID string
	Payload    []byte
	CreatedAt  time.Time
}

const (
	EventReviewsAdded  = "reviews_added"
	EventSyncRequested = "sync_requested"
)
