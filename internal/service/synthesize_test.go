package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/memoir/internal/domain"
)

type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestSynthesize_ZeroResultsNoModelCall(t *testing.T) {
	llm := new(MockCompletionClient)
	s := NewSynthesizer(llm)

	answer, err := s.Synthesize(context.Background(), "query", nil)

	require.NoError(t, err)
	assert.Empty(t, answer)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSynthesize_PromptCarriesNumberedSources(t *testing.T) {
	llm := new(MockCompletionClient)
	s := NewSynthesizer(llm)

	llm.On("Complete", mock.Anything, mock.MatchedBy(func(prompt string) bool {
		return strings.Contains(prompt, "[Source 1] renewal is due in March") &&
			strings.Contains(prompt, "[Source 2] contract signed last year") &&
			strings.Contains(prompt, "Question: when is the renewal?")
	})).Return("The renewal is due in March [Source 1].", nil)

	answer, err := s.Synthesize(context.Background(), "when is the renewal?", []domain.FusedResult{
		{ID: "1", Text: "renewal is due in March"},
		{ID: "2", Text: "contract signed last year"},
	})

	require.NoError(t, err)
	assert.Equal(t, "The renewal is due in March [Source 1].", answer)
	llm.AssertExpectations(t)
}

func TestSynthesize_CompletionFailureFallsBack(t *testing.T) {
	llm := new(MockCompletionClient)
	s := NewSynthesizer(llm)

	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("rate limited"))

	answer, err := s.Synthesize(context.Background(), "query", []domain.FusedResult{
		{ID: "1", Text: "the top ranked chunk"},
	})

	require.NoError(t, err)
	assert.Contains(t, answer, "the top ranked chunk")
}

func TestSynthesize_NilClientExtractive(t *testing.T) {
	s := NewSynthesizer(nil)

	answer, err := s.Synthesize(context.Background(), "query", []domain.FusedResult{
		{ID: "1", Text: "best match text"},
		{ID: "2", Text: "other text"},
	})

	require.NoError(t, err)
	assert.Contains(t, answer, "best match text")
	assert.NotContains(t, answer, "other text")
}

func TestSynthesize_FallbackTruncates(t *testing.T) {
	s := NewSynthesizer(nil)

	long := strings.Repeat("word ", 300)
	answer, err := s.Synthesize(context.Background(), "query", []domain.FusedResult{
		{ID: "1", Text: long},
	})

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(answer, "..."))
	assert.Less(t, len(answer), 600)
}

func TestBuildPrompt_DropsResultsPastBudget(t *testing.T) {
	big := strings.Repeat("x", contextCharBudget)
	prompt := buildPrompt("q", []domain.FusedResult{
		{ID: "1", Text: big},
		{ID: "2", Text: "should be dropped"},
	})

	assert.Contains(t, prompt, "[Source 1]")
	assert.NotContains(t, prompt, "should be dropped")
}

func TestBuildPrompt_TruncatesCrossingBlock(t *testing.T) {
	big := strings.Repeat("y", contextCharBudget)
	prompt := buildPrompt("q", []domain.FusedResult{
		{ID: "1", Text: "short lead"},
		{ID: "2", Text: big},
		{ID: "3", Text: "never reached"},
	})

	assert.Contains(t, prompt, "[Source 1] short lead")
	assert.Contains(t, prompt, "[Source 2]")
	assert.NotContains(t, prompt, "never reached")
	// the crossing block is cut to the remaining budget, not carried whole
	assert.Less(t, len(prompt), contextCharBudget+500)
}

func TestExtractiveAnswer_PrefersRawContentPath(t *testing.T) {
	answer := extractiveAnswer([]domain.FusedResult{
		{
			ID:       "id-1",
			Text:     "transcribed call notes",
			Metadata: map[string]interface{}{"raw_content_path": "s3://memoir-raw/abc/call.mp3"},
		},
	})

	assert.Contains(t, answer, "s3://memoir-raw/abc/call.mp3")
	assert.Contains(t, answer, "transcribed call notes")
}
