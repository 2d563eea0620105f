package service

import (
	"sort"
	"strings"
	"unicode"
)

// Summarizer produces the summary attached to every chunk payload. The
// default implementation is deliberately naive; a model-backed summarizer
// can be substituted without touching the payload builders.
type Summarizer interface {
	Summarize(text string) string
}

// EntityExtractor produces the entity set attached to every chunk payload.
// Same substitution contract as Summarizer.
type EntityExtractor interface {
	Entities(text string) []string
}

const naiveSummaryMaxChars = 200

// NaiveSummarizer returns the text verbatim when it fits, otherwise a
// truncated prefix with an ellipsis marker.
type NaiveSummarizer struct {
	MaxChars int
}

func (s *NaiveSummarizer) Summarize(text string) string {
	max := s.MaxChars
	if max <= 0 {
		max = naiveSummaryMaxChars
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// NaiveEntityExtractor picks tokens that look like proper nouns: tokens
// starting with an uppercase letter, punctuation stripped, deduplicated.
// The result is sorted for determinism.
type NaiveEntityExtractor struct{}

func (e *NaiveEntityExtractor) Entities(text string) []string {
	seen := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		clean := strings.TrimFunc(token, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if clean == "" {
			continue
		}
		first := []rune(clean)[0]
		if !unicode.IsUpper(first) {
			continue
		}
		seen[clean] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for entity := range seen {
		out = append(out, entity)
	}
	sort.Strings(out)
	return out
}
