package service

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\t b \n c  "))
	assert.Equal(t, "line one line two", Normalize("line one\r\nline two"))
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   \r\n\t  "))
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"plain text",
		"  padded\r\nmultiline\ttext  ",
		"",
		"one",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once))
	}
}

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, ChunkText("", 512))
	assert.Nil(t, ChunkText("   ", 512))
}

func TestChunkText_SingleChunk(t *testing.T) {
	chunks := ChunkText("one two three", 512)
	assert.Equal(t, []string{"one two three"}, chunks)
}

func TestChunkText_ExactBoundary(t *testing.T) {
	text := "a b c d e f"
	chunks := ChunkText(text, 3)
	assert.Equal(t, []string{"a b c", "d e f"}, chunks)
}

func TestChunkText_Remainder(t *testing.T) {
	text := "a b c d e f g"
	chunks := ChunkText(text, 3)
	assert.Equal(t, []string{"a b c", "d e f", "g"}, chunks)
}

func TestChunkText_ReconstructsTokenSequence(t *testing.T) {
	words := make([]string, 0, 1200)
	for i := 0; i < 1200; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, " ")

	chunks := ChunkText(text, 512)
	assert.Len(t, chunks, 3)
	assert.Equal(t, text, strings.Join(chunks, " "))
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.Len(t, strings.Fields(chunk), 512)
	}
}

func TestChunkText_ZeroMaxUsesDefault(t *testing.T) {
	chunks := ChunkText("a b c", 0)
	assert.Equal(t, []string{"a b c"}, chunks)
}
