package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from text-embedding-3-small
	DefaultEmbeddingDimensions = 1536
	// DefaultCompletionModel is the chat model used for answer synthesis
	DefaultCompletionModel = openai.GPT4oMini

	// embedBatchSize caps inputs per embeddings API call
	embedBatchSize = 100
)

var (
	// ErrWrongDimensions is returned when an embedding has unexpected dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrNoCompletion is returned when the chat API returns no choices
	ErrNoCompletion = errors.New("no completion returned")
)

// Config holds OpenAI client configuration.
type Config struct {
	APIKey              string
	EmbeddingModel      string
	EmbeddingDimensions int
	CompletionModel     string
}

// Client wraps the OpenAI API for embeddings, completions, and the opaque
// text producers used by the audio and image channels.
type Client struct {
	api             *openai.Client
	embeddingModel  openai.EmbeddingModel
	dimensions      int
	completionModel string
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	model := openai.EmbeddingModel(cfg.EmbeddingModel)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	completionModel := cfg.CompletionModel
	if completionModel == "" {
		completionModel = DefaultCompletionModel
	}
	return &Client{
		api:             openai.NewClient(cfg.APIKey),
		embeddingModel:  model,
		dimensions:      dimensions,
		completionModel: completionModel,
	}
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// EmbedBatch generates one embedding per input text, in input order, batching
// API calls at embedBatchSize inputs. Empty input yields an empty result.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: c.embeddingModel,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Data))
		}
		for _, item := range resp.Data {
			if len(item.Embedding) != c.dimensions {
				return nil, ErrWrongDimensions
			}
			out = append(out, item.Embedding)
		}
	}

	return out, nil
}

// Complete requests a single chat completion for the given prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs Whisper over raw audio bytes and returns the transcript.
func (c *Client) Transcribe(ctx context.Context, data []byte, filename string) (string, error) {
	if filename == "" {
		filename = "audio.mp3"
	}
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filename,
		Reader:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return resp.Text, nil
}

// DescribeImage extracts the readable text and a short description from an
// image via the vision-capable chat model.
func (c *Client) DescribeImage(ctx context.Context, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/png"
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.completionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Transcribe any text visible in this image, then describe its content in one sentence.",
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe image: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
