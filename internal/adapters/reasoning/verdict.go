package reasoning

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// wireVerdict is the JSON shape the model is instructed to produce.
type wireVerdict struct {
	Category        string `json:"category"`
	Sentiment       string `json:"sentiment"`
	AnalysisSummary string `json:"analysisSummary"`
	Suggestions     string `json:"suggestions"`
	AdminResponse   string `json:"adminResponse"`
	Task            *struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		Timeframe   string `json:"timeframe"`
	} `json:"taskRecommendation"`
}

// ParseVerdict validates a raw model reply against the verdict schema.
// Anything missing or out of enum is rejected as ErrAnalysisParse; fields are
// never coerced to a guessed default.
func ParseVerdict(raw string) (domain.Verdict, error) {
	payload, ok := extractJSON(raw)
	if !ok {
		return domain.Verdict{}, fmt.Errorf("%w: no JSON object in reply", domain.ErrAnalysisParse)
	}

	var w wireVerdict
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return domain.Verdict{}, fmt.Errorf("%w: %v", domain.ErrAnalysisParse, err)
	}

	cat, err := parseCategory(w.Category)
	if err != nil {
		return domain.Verdict{}, err
	}
	sent, err := parseSentiment(w.Sentiment)
	if err != nil {
		return domain.Verdict{}, err
	}
	if strings.TrimSpace(w.AnalysisSummary) == "" {
		return domain.Verdict{}, fmt.Errorf("%w: missing analysisSummary", domain.ErrAnalysisParse)
	}

	v := domain.Verdict{
		Category:          cat,
		Sentiment:         sent,
		Summary:           w.AnalysisSummary,
		Suggestions:       optStr(w.Suggestions),
		GeneratedResponse: optStr(w.AdminResponse),
	}

	if w.Task != nil {
		if strings.TrimSpace(w.Task.Title) == "" {
			return domain.Verdict{}, fmt.Errorf("%w: task recommendation without title", domain.ErrAnalysisParse)
		}
		prio, err := parsePriority(w.Task.Priority)
		if err != nil {
			return domain.Verdict{}, err
		}
		v.Task = &domain.TaskRecommendation{
			Title:       w.Task.Title,
			Description: w.Task.Description,
			Priority:    prio,
			Timeframe:   w.Task.Timeframe,
		}
	}
	return v, nil
}

func parseCategory(s string) (domain.Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "food":
		return domain.CategoryFood, nil
	case "service":
		return domain.CategoryService, nil
	// the model tends to answer the long form; normalize, don't guess
	case "overall", "overall experience":
		return domain.CategoryOverall, nil
	default:
		return "", fmt.Errorf("%w: unknown category %q", domain.ErrAnalysisParse, s)
	}
}

func parseSentiment(s string) (domain.Sentiment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "positive":
		return domain.SentimentPositive, nil
	case "neutral":
		return domain.SentimentNeutral, nil
	case "negative":
		return domain.SentimentNegative, nil
	default:
		return "", fmt.Errorf("%w: unknown sentiment %q", domain.ErrAnalysisParse, s)
	}
}

func parsePriority(s string) (domain.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return domain.PriorityLow, nil
	case "medium":
		return domain.PriorityMedium, nil
	case "high":
		return domain.PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown priority %q", domain.ErrAnalysisParse, s)
	}
}

func optStr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// extractJSON pulls the outermost JSON object out of a reply that may be
// wrapped in markdown fences or prose.
func extractJSON(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
