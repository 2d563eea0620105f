package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/loomworks/memoir/internal/domain"
	"github.com/loomworks/memoir/internal/extract"
	"github.com/loomworks/memoir/internal/telemetry"
)

// EmbeddingClient turns a batch of chunk strings into fixed-dimension
// vectors, same length and order as the input.
type EmbeddingClient interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore is the authoritative chunk store. Upsert allocates one fresh
// unique id per chunk and returns the ids in input order.
type VectorStore interface {
	Upsert(ctx context.Context, vectors [][]float32, payloads []domain.ChunkPayload) ([]string, error)
	Delete(ctx context.Context, id string) error
}

// KeywordIndex is the best-effort lexical mirror.
type KeywordIndex interface {
	BulkIndex(ctx context.Context, ids []string, payloads []domain.ChunkPayload) error
	Delete(ctx context.Context, id string) error
}

// BlobStore persists raw media bytes and returns a locator string.
type BlobStore interface {
	PutObject(ctx context.Context, data []byte, name, contentType string) (string, error)
}

// Transcriber is an opaque audio-to-text producer.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, filename string) (string, error)
}

// ImageDescriber is an opaque image-to-text producer.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, data []byte, contentType string) (string, error)
}

// IngestionService runs the shared pipeline for every channel: normalize,
// chunk, build payloads, embed the whole request in one batched call, then
// dual-write to the vector store (fatal on failure) and the keyword index
// (best-effort).
type IngestionService struct {
	embedding   EmbeddingClient
	vectors     VectorStore
	keywords    KeywordIndex
	blobs       BlobStore
	transcriber Transcriber
	describer   ImageDescriber
	builder     *PayloadBuilder
	maxTokens   int
}

// IngestionConfig carries the optional collaborators and pipeline knobs.
type IngestionConfig struct {
	Keywords    KeywordIndex
	Blobs       BlobStore
	Transcriber Transcriber
	Describer   ImageDescriber
	Summarizer  Summarizer
	Extractor   EntityExtractor
	MaxTokens   int
}

func NewIngestionService(embedding EmbeddingClient, vectors VectorStore, cfg IngestionConfig) *IngestionService {
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultChunkMaxTokens
	}
	return &IngestionService{
		embedding:   embedding,
		vectors:     vectors,
		keywords:    cfg.Keywords,
		blobs:       cfg.Blobs,
		transcriber: cfg.Transcriber,
		describer:   cfg.Describer,
		builder:     NewPayloadBuilder(cfg.Summarizer, cfg.Extractor),
		maxTokens:   maxTokens,
	}
}

// IngestText ingests a free-text note.
func (s *IngestionService) IngestText(ctx context.Context, req domain.TextRequest) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.text", telemetry.SpanAttributes{CustomerID: req.CustomerID})
	defer span.End()

	chunks := ChunkText(Normalize(req.Text), s.maxTokens)
	return s.write(ctx, s.builder.Text(req, chunks))
}

// IngestFile persists the raw bytes to the blob store, extracts text, and
// ingests the result. Every chunk of one upload carries the same locator.
func (s *IngestionService) IngestFile(ctx context.Context, req domain.FileRequest) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.file", telemetry.SpanAttributes{CustomerID: req.CustomerID})
	defer span.End()

	rawPath, err := s.storeBlob(ctx, req.Content, req.FileName, req.ContentType)
	if err != nil {
		return nil, err
	}

	text, err := extract.FromBytes(req.Content, req.FileName)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProcessing, "text extraction failed", err)
	}

	chunks := ChunkText(Normalize(text), s.maxTokens)
	return s.write(ctx, s.builder.File(req, rawPath, chunks))
}

// IngestEmail ingests one email message body.
func (s *IngestionService) IngestEmail(ctx context.Context, req domain.EmailRequest) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.email", telemetry.SpanAttributes{CustomerID: req.CustomerID})
	defer span.End()

	chunks := ChunkText(Normalize(req.Body), s.maxTokens)
	return s.write(ctx, s.builder.Email(req, chunks))
}

// IngestChat flattens the conversation into "sender: text" lines and
// ingests the result as one text block.
func (s *IngestionService) IngestChat(ctx context.Context, req domain.ChatRequest) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.chat", telemetry.SpanAttributes{CustomerID: req.CustomerID})
	defer span.End()

	var lines []string
	for _, msg := range req.Messages {
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}
		if msg.Sender != "" {
			lines = append(lines, msg.Sender+": "+msg.Text)
		} else {
			lines = append(lines, msg.Text)
		}
	}

	chunks := ChunkText(Normalize(strings.Join(lines, "\n")), s.maxTokens)
	return s.write(ctx, s.builder.Chat(req, chunks))
}

// IngestAudio persists the recording, obtains a transcript (caller-supplied
// text wins over the configured transcriber), and ingests it.
func (s *IngestionService) IngestAudio(ctx context.Context, req domain.AudioRequest) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.audio", telemetry.SpanAttributes{CustomerID: req.CustomerID})
	defer span.End()

	rawPath, err := s.storeBlob(ctx, req.Content, req.FileName, req.ContentType)
	if err != nil {
		return nil, err
	}

	transcript := req.Transcript
	if transcript == "" && s.transcriber != nil {
		transcript, err = s.transcriber.Transcribe(ctx, req.Content, req.FileName)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "audio transcription failed", err)
		}
	}

	chunks := ChunkText(Normalize(transcript), s.maxTokens)
	return s.write(ctx, s.builder.Audio(req, rawPath, chunks))
}

// IngestImage persists the image, obtains its text (caller-supplied caption
// wins over the configured describer), and ingests it.
func (s *IngestionService) IngestImage(ctx context.Context, req domain.ImageRequest) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingest.image", telemetry.SpanAttributes{CustomerID: req.CustomerID})
	defer span.End()

	rawPath, err := s.storeBlob(ctx, req.Content, req.FileName, req.ContentType)
	if err != nil {
		return nil, err
	}

	caption := req.Caption
	if caption == "" && s.describer != nil {
		caption, err = s.describer.DescribeImage(ctx, req.Content, req.ContentType)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, "image text extraction failed", err)
		}
	}

	chunks := ChunkText(Normalize(caption), s.maxTokens)
	return s.write(ctx, s.builder.Image(req, rawPath, chunks))
}

// Delete removes one record from both stores. The keyword entry goes first
// so a partial failure can only leave the documented vector-superset state.
func (s *IngestionService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "memory.delete", telemetry.SpanAttributes{})
	defer span.End()

	if s.keywords != nil {
		if err := s.keywords.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrChunkNotFound) {
			log.Printf("keyword_mirror: delete %s failed (vector delete proceeds): %v", id, err)
		}
	}

	if err := s.vectors.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrChunkNotFound) {
			return domain.ErrChunkNotFound
		}
		return domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "vector store delete failed", err)
	}
	return nil
}

// write is the dual-write coordinator. An empty chunk set short-circuits to
// zero writes and an empty id list. The vector upsert is authoritative and
// fatal on failure; the keyword mirror uses the returned ids and never
// fails the call.
func (s *IngestionService) write(ctx context.Context, payloads []domain.ChunkPayload) ([]string, error) {
	if len(payloads) == 0 {
		return []string{}, nil
	}

	texts := make([]string, len(payloads))
	for i, p := range payloads {
		texts[i] = p.Text
	}

	vectors, err := s.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeProcessing, "embedding generation failed", err)
	}

	ids, err := s.vectors.Upsert(ctx, vectors, payloads)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "vector store write failed", err)
	}

	if s.keywords != nil {
		if err := s.keywords.BulkIndex(ctx, ids, payloads); err != nil {
			log.Printf("keyword_mirror: bulk index failed for %d chunks (recall reduced until repaired): %v", len(ids), err)
		}
	}

	return ids, nil
}

func (s *IngestionService) storeBlob(ctx context.Context, data []byte, name, contentType string) (string, error) {
	if len(data) == 0 {
		return "", domain.ErrMissingFile
	}
	if s.blobs == nil {
		return "", domain.ErrBlobStoreUnavailable
	}
	locator, err := s.blobs.PutObject(ctx, data, name, contentType)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "blob store write failed", err)
	}
	return locator, nil
}
