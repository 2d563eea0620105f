package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/loomworks/memoir/internal/domain"
)

// CompletionClient produces a chat completion for a single prompt.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	// contextCharBudget bounds the retrieved text packed into one prompt.
	contextCharBudget = 6000

	// fallbackMaxChars bounds the extractive answer when the model is
	// unavailable.
	fallbackMaxChars = 500
)

// Synthesizer builds a grounded answer from ranked search results. When the
// completion client fails or is absent it falls back to quoting the top
// result, so search never loses its answer field to a model outage.
type Synthesizer struct {
	llm CompletionClient
}

func NewSynthesizer(llm CompletionClient) *Synthesizer {
	return &Synthesizer{llm: llm}
}

// Synthesize answers the query from the given results. Zero results yield
// an empty answer and no model call.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, results []domain.FusedResult) (string, error) {
	if len(results) == 0 {
		return "", nil
	}

	if s.llm == nil {
		return extractiveAnswer(results), nil
	}

	answer, err := s.llm.Complete(ctx, buildPrompt(query, results))
	if err != nil {
		log.Printf("synthesize: completion failed (extractive fallback): %v", err)
		return extractiveAnswer(results), nil
	}
	return strings.TrimSpace(answer), nil
}

// buildPrompt packs numbered source blocks under the character budget and
// instructs the model to cite them. The block that crosses the budget is
// truncated to the remaining room; everything after it is dropped.
func buildPrompt(query string, results []domain.FusedResult) string {
	var sb strings.Builder
	used := 0
	n := 0
	for _, r := range results {
		text := strings.TrimSpace(r.Text)
		if text == "" {
			continue
		}
		if remaining := contextCharBudget - used; len(text) > remaining {
			if remaining <= 0 {
				break
			}
			runes := []rune(text)
			if len(runes) > remaining {
				runes = runes[:remaining]
			}
			text = strings.TrimSpace(string(runes))
			if text == "" {
				break
			}
		}
		n++
		block := fmt.Sprintf("[Source %d] %s\n\n", n, text)
		sb.WriteString(block)
		used += len(text)
	}

	return fmt.Sprintf(`You are a memory assistant. Answer the question using only the sources below. Cite sources as [Source N]. If the sources do not contain the answer, say so.

%sQuestion: %s

Answer:`, sb.String(), query)
}

// extractiveAnswer quotes the highest-ranked result, truncated on a rune
// boundary and prefixed with its source locator.
func extractiveAnswer(results []domain.FusedResult) string {
	top := results[0]
	text := strings.TrimSpace(top.Text)
	runes := []rune(text)
	if len(runes) > fallbackMaxChars {
		text = strings.TrimSpace(string(runes[:fallbackMaxChars])) + "..."
	}
	return fmt.Sprintf("Based on the most relevant record (%s): %s", sourceLocator(top), text)
}

// sourceLocator identifies where a result came from: the raw content path
// for media-backed chunks, otherwise the chunk id.
func sourceLocator(r domain.FusedResult) string {
	if path, ok := r.Metadata["raw_content_path"].(string); ok && path != "" {
		return path
	}
	return r.ID
}
