package domain

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Task is a derived action item. The pipeline only creates tasks; completion
// and deletion belong to task management downstream.
type Task struct {
	ID          int64
	Title       string
	Description string
	AnalysisID  *int64 // nil for trend-driven optimization tasks
	Priority    Priority
	DueDate     *time.Time
	IsCompleted bool
	CreatedBy   string
	BusinessID  string
	CreatedAt   time.Time
}
