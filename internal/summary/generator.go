// Package summary writes a short situation paragraph for the dashboard using
// OpenAI. The capability is optional: without an API key the panel is simply
// omitted.
package summary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/casewatch/internal/stats"
)

// Generator produces situation summaries from the latest totals.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a summary generator. It reads the OPENAI_API_KEY
// environment variable for authentication.
func NewGenerator() (*Generator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  openai.ChatModelGPT4oMini,
	}, nil
}

// Summarize writes one short paragraph describing the latest totals for the
// distinguished region split. rate may be nil when the recovery rate is
// undefined.
func (g *Generator) Summarize(ctx context.Context, region string, totals *stats.Totals, rate *float64) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "As of %s: %.0f confirmed cases, %.0f recovered, %.0f deceased.",
		totals.Date.Format("2 January 2006"), totals.Confirmed, totals.Recovered, totals.Deceased)
	if rate != nil {
		fmt.Fprintf(&b, " Recovery rate %.1f%%.", *rate*100)
	}
	prompt := fmt.Sprintf(
		"Write one neutral, factual paragraph (max 60 words) summarising this epidemic snapshot for a dashboard. The tracked split is %q versus everywhere else. Figures: %s Do not speculate beyond the figures.",
		region, b.String())

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no summary returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty summary returned")
	}
	return text, nil
}
