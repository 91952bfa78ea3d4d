package reasoning

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"

	"github.com/Rico-project-final/FinalProject-RicoServer/internal/adapters/observability"
	"github.com/Rico-project-final/FinalProject-RicoServer/internal/domain"
)

// systemPrompt is the fixed instruction contract. The response schema it
// demands is exactly what ParseVerdict validates.
const systemPrompt = `You are an AI assistant that analyzes customer reviews for a restaurant application.
Analyze the review and provide the following:
1. Categorize the review as 'food', 'service', or 'overall experience'
2. Determine the sentiment as 'positive', 'neutral', or 'negative'
3. Provide a brief analysis summary
4. If there's a recurring issue, suggest improvements
5. Generate a thoughtful response that the admin could send to the customer
6. Create a specific task recommendation for the restaurant manager that addresses the feedback:
   - For negative reviews: create a task to fix the issue
   - For positive reviews: create a task to maintain or enhance the praised aspect
   - For neutral reviews: create a task to improve the experience if applicable

Respond with valid JSON only, using exactly these fields:
{
  "category": "food" | "service" | "overall experience",
  "sentiment": "positive" | "neutral" | "negative",
  "analysisSummary": "brief analysis of the review",
  "suggestions": "suggestions for improvement, if applicable",
  "adminResponse": "a personalized response to the customer",
  "taskRecommendation": {
    "title": "short, action-oriented task title",
    "description": "detailed description of what needs to be done",
    "priority": "low" | "medium" | "high",
    "timeframe": "suggested timeframe for completion"
  }
}`

// Client submits review text to the reasoning service and parses the
// structured verdict. Calls are rate limited client-side to respect the
// service's limits when batches fan out.
type Client struct {
	ac        sdk.Client
	model     string
	maxTokens int64
	rl        *rate.Limiter
}

func New(apiKey, model string, rps int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 2
	}
	return &Client{
		ac:        sdk.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 700,
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

func (c *Client) AnalyzeReview(ctx context.Context, text string) (domain.Verdict, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return domain.Verdict{}, err
	}

	// an empty review is degenerate but valid input; the model still has to
	// produce a verdict for it
	if strings.TrimSpace(text) == "" {
		text = "(the customer left no text)"
	}

	start := time.Now()
	msg, err := c.ac.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: sdk.Float(0.2),
		System:      []sdk.TextBlockParam{{Text: systemPrompt}},
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(text))},
	})
	if err != nil {
		observability.ObserveExternal("reasoning", "messages", 0, time.Since(start))
		return domain.Verdict{}, fmt.Errorf("%w: %v", domain.ErrExternalAPI, err)
	}
	observability.ObserveExternal("reasoning", "messages", 200, time.Since(start))

	var sb strings.Builder
	for _, b := range msg.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return ParseVerdict(sb.String())
}
