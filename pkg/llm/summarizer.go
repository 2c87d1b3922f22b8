package llm

import (
	"context"
	"strings"
)

// Summaries never need the full document; cap the input so a huge page
// cannot blow the summary model's context.
const maxSummaryInputChars = 80000

// Summarizer condenses text with the configured summary model. It backs page
// summaries and research gap analysis, where a cheaper model than the main
// conversation model is usually sufficient.
type Summarizer struct {
	provider Provider
	model    string
}

// NewSummarizer wraps provider. An empty model falls back to the provider's
// default.
func NewSummarizer(provider Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

// Summarize runs instruction against text in a single tool-free completion.
func (s *Summarizer) Summarize(ctx context.Context, instruction, text string) (string, error) {
	if len(text) > maxSummaryInputChars {
		text = text[:maxSummaryInputChars]
	}

	resp, err := s.provider.Chat(ctx, Request{
		Model: s.model,
		Messages: []Message{
			{Role: RoleSystem, Content: instruction},
			{Role: RoleUser, Content: text},
		},
		DisableTools: true,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Content), nil
}
