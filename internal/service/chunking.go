package service

import "strings"

// DefaultChunkMaxTokens bounds a chunk by whitespace-delimited word tokens.
const DefaultChunkMaxTokens = 512

// ChunkText splits normalized text into ordered segments of at most
// maxTokens word tokens each. Consecutive segments never overlap and no
// token is dropped or duplicated: joining the segments with single spaces
// reconstructs the normalized token sequence. Empty input yields no
// segments rather than one empty segment.
func ChunkText(text string, maxTokens int) []string {
	if text == "" {
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = DefaultChunkMaxTokens
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxTokens-1)/maxTokens)
	for start := 0; start < len(words); start += maxTokens {
		end := start + maxTokens
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
