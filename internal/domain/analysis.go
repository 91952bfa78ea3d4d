package domain

import "time"

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Analysis is the persisted verdict for one review. At most one exists per
// review; the reviews.is_analyzed flag plus the unique review reference in
// storage enforce that.
type Analysis struct {
	ID                int64
	ReviewID          int64
	BusinessID        string
	UserID            *string
	Text              string // snapshot of the review text at analysis time
	Category          Category
	Sentiment         Sentiment
	Summary           string
	Suggestions       *string
	GeneratedResponse *string
	IsResolved        bool
	CreatedAt         time.Time
}

// Verdict is the structured output of the reasoning service for one review,
// validated at the parse boundary. Task is present only when the model
// recommends a remediation.
type Verdict struct {
	Category          Category
	Sentiment         Sentiment
	Summary           string
	Suggestions       *string
	GeneratedResponse *string
	Task              *TaskRecommendation
}

type TaskRecommendation struct {
	Title       string
	Description string
	Priority    Priority
	Timeframe   string // free-text hint, e.g. "immediate", "within a week"
}

// Insights aggregates analysis results for reporting. Read-only; computing
// it never triggers analysis.
type Insights struct {
	TotalAnalyzed   int64
	SentimentCounts map[Sentiment]int64
	CategoryCounts  map[Category]int64
	CommonIssues    []string
}
