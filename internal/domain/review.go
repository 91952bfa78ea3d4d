package domain

import "time"

type ReviewSource string

const (
	SourceUser   ReviewSource = "user"
	SourceGoogle ReviewSource = "google"
)

type Category string

const (
	CategoryFood    Category = "food"
	CategoryService Category = "service"
	CategoryOverall Category = "overall"
)

// Review is a normalized customer review from either source.
// ExternalID is set only for externally-sourced rows; within a business no
// two external rows share the same ExternalID. User-submitted rows carry none.
type Review struct {
	ID         int64
	BusinessID string
	UserID     *string
	AuthorName *string
	Text       string
	Category   *Category
	IsAnalyzed bool
	Source     ReviewSource
	ExternalID *string
	Rating     *float64
	Lang       *string
	CreatedAt  time.Time
}
