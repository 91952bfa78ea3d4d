package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/app"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

func verdict(s domain.Sentiment, c domain.Category) domain.Verdict {
	return domain.Verdict{
		Category:  c,
		Sentiment: s,
		Summary:   "summary",
	}
}

func TestAnalyzeOne_PersistsAndMarks(t *testing.T) {
	reviews := &fakeReviewRepo{}
	analyses := &fakeAnalysisRepo{}
	tasks := &fakeTaskRepo{}
	reasoner := &fakeReasoner{verdicts: map[string]domain.Verdict{
		"Cold soup": verdict(domain.SentimentNegative, domain.CategoryFood),
	}}
	svc := app.NewAnalysisService(reviews, analyses, tasks, reasoner, &fakeCache{}, 2)

	reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz1", Text: "Cold soup"})
	rv := reviews.reviews[0]

	an, err := svc.AnalyzeOne(context.Background(), rv)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if an.ReviewID != rv.ID || an.Sentiment != domain.SentimentNegative {
		t.Fatalf("unexpected analysis: %+v", an)
	}
	if !reviews.reviews[0].IsAnalyzed {
		t.Fatal("review not marked analyzed")
	}
}

func TestAnalyzeOne_AtMostOncePerReview(t *testing.T) {
	reviews := &fakeReviewRepo{}
	analyses := &fakeAnalysisRepo{}
	reasoner := &fakeReasoner{verdicts: map[string]domain.Verdict{
		"Cold soup": verdict(domain.SentimentNegative, domain.CategoryFood),
	}}
	svc := app.NewAnalysisService(reviews, analyses, &fakeTaskRepo{}, reasoner, &fakeCache{}, 2)

	reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz1", Text: "Cold soup"})
	rv := reviews.reviews[0]

	first, err := svc.AnalyzeOne(context.Background(), rv)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	// replaying with the stale (unmarked) snapshot must converge on the
	// stored analysis, not produce a second one
	second, err := svc.AnalyzeOne(context.Background(), rv)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("replay produced a new analysis: %d vs %d", first.ID, second.ID)
	}
	if len(analyses.analyses) != 1 {
		t.Fatalf("stored %d analyses, want 1", len(analyses.analyses))
	}

	// once marked, the reasoning service is not consulted again
	calls := reasoner.calls
	marked := reviews.reviews[0]
	if _, err := svc.AnalyzeOne(context.Background(), marked); err != nil {
		t.Fatalf("err: %v", err)
	}
	if reasoner.calls != calls {
		t.Fatalf("analyzed review hit the reasoning service again")
	}
}

func TestAnalyzeOne_CreatesRecommendedTask(t *testing.T) {
	reviews := &fakeReviewRepo{}
	tasks := &fakeTaskRepo{}
	v := verdict(domain.SentimentNegative, domain.CategoryService)
	v.Task = &domain.TaskRecommendation{
		Title:       "Retrain evening staff",
		Description: "Service complaints cluster on weekend evenings",
		Priority:    domain.PriorityHigh,
		Timeframe:   "week",
	}
	reasoner := &fakeReasoner{verdicts: map[string]domain.Verdict{"Rude waiter": v}}
	svc := app.NewAnalysisService(reviews, &fakeAnalysisRepo{}, tasks, reasoner, &fakeCache{}, 2)

	reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz1", Text: "Rude waiter"})
	if _, err := svc.AnalyzeOne(context.Background(), reviews.reviews[0]); err != nil {
		t.Fatalf("err: %v", err)
	}

	if len(tasks.tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(tasks.tasks))
	}
	tk := tasks.tasks[0]
	if tk.AnalysisID == nil || tk.Priority != domain.PriorityHigh || tk.DueDate == nil {
		t.Fatalf("unexpected task: %+v", tk)
	}
	wantDue := time.Now().AddDate(0, 0, 7)
	if tk.DueDate.Sub(wantDue) > time.Minute || wantDue.Sub(*tk.DueDate) > time.Minute {
		t.Fatalf("due %v, want about %v", tk.DueDate, wantDue)
	}
}

func TestAnalyzeOne_TaskFailureDoesNotFailPipeline(t *testing.T) {
	reviews := &fakeReviewRepo{}
	tasks := &fakeTaskRepo{failAt: 1}
	v := verdict(domain.SentimentNegative, domain.CategoryFood)
	v.Task = &domain.TaskRecommendation{Title: "Fix the soup", Priority: domain.PriorityMedium, Timeframe: "immediate"}
	reasoner := &fakeReasoner{verdicts: map[string]domain.Verdict{"Cold soup": v}}
	svc := app.NewAnalysisService(reviews, &fakeAnalysisRepo{}, tasks, reasoner, &fakeCache{}, 2)

	reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz1", Text: "Cold soup"})
	if _, err := svc.AnalyzeOne(context.Background(), reviews.reviews[0]); err != nil {
		t.Fatalf("task failure surfaced as pipeline failure: %v", err)
	}
	if !reviews.reviews[0].IsAnalyzed {
		t.Fatal("review left unmarked after task failure")
	}
}

func TestBatchAnalyze_FailureIsolation(t *testing.T) {
	reviews := &fakeReviewRepo{}
	analyses := &fakeAnalysisRepo{}
	reasoner := &fakeReasoner{verdicts: map[string]domain.Verdict{
		"good one":    verdict(domain.SentimentPositive, domain.CategoryOverall),
		"another one": verdict(domain.SentimentNeutral, domain.CategoryOverall),
		// "broken one" is absent: the reasoner errors on it
	}}
	svc := app.NewAnalysisService(reviews, analyses, &fakeTaskRepo{}, reasoner, &fakeCache{}, 2)

	for _, text := range []string{"good one", "broken one", "another one"} {
		reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz1", Text: text})
	}

	done, err := svc.BatchAnalyze(context.Background(), append([]domain.Review(nil), reviews.reviews...))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if done != 2 || len(analyses.analyses) != 2 {
		t.Fatalf("done=%d stored=%d, want 2 each", done, len(analyses.analyses))
	}

	pending, _ := reviews.FindUnanalyzed(context.Background(), "biz1", 10)
	if len(pending) != 1 || pending[0].Text != "broken one" {
		t.Fatalf("pending = %+v, want only the failed one", pending)
	}
}

func TestAnalyzePending_SweepsAllBusinesses(t *testing.T) {
	reviews := &fakeReviewRepo{}
	reasoner := &fakeReasoner{verdicts: map[string]domain.Verdict{
		"a": verdict(domain.SentimentPositive, domain.CategoryOverall),
		"b": verdict(domain.SentimentPositive, domain.CategoryOverall),
	}}
	svc := app.NewAnalysisService(reviews, &fakeAnalysisRepo{}, &fakeTaskRepo{}, reasoner, &fakeCache{}, 2)

	reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz1", Text: "a"})
	reviews.CreateReview(context.Background(), domain.Review{BusinessID: "biz2", Text: "b"})

	n, err := svc.AnalyzePending(context.Background(), "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if n != 2 {
		t.Fatalf("analyzed %d, want 2", n)
	}
}

func TestDueDateFor(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		timeframe string
		want      *time.Time
	}{
		{"immediate", &now},
		{"immediately", &now},
		{"Today", &now},
		{"week", timePtr(now.AddDate(0, 0, 7))},
		{"within a week", timePtr(now.AddDate(0, 0, 7))},
		{"month", timePtr(now.AddDate(0, 1, 0))},
		{"within a month", timePtr(now.AddDate(0, 1, 0))},
		{"someday", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := app.DueDateFor(tc.timeframe, now)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("%q: got %v, want none", tc.timeframe, got)
		case tc.want != nil && (got == nil || !got.Equal(*tc.want)):
			t.Errorf("%q: got %v, want %v", tc.timeframe, got, tc.want)
		}
	}
}

func timePtr(t time.Time) *time.Time { return &t }
