package jobs

import (
	"context"
	"log"
	"time"

	"github.com/loomworks/memoir/internal/domain"
	"github.com/loomworks/memoir/internal/vectorstore"
)

// ChunkLister exposes the authoritative rows the mirror may be missing.
type ChunkLister interface {
	ListSince(ctx context.Context, since time.Time, limit int) ([]vectorstore.StoredChunk, error)
}

// MirrorIndexer is the keyword-index surface the repair pass writes to.
type MirrorIndexer interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	BulkIndex(ctx context.Context, ids []string, payloads []domain.ChunkPayload) error
}

const (
	mirrorBatchSize = 200

	// mirrorLookback bounds the first scan after startup. Later passes
	// resume from the last repaired row.
	mirrorLookback = 24 * time.Hour
)

// MirrorProcessor re-indexes vector-store rows that are missing from the
// keyword index, healing the gap left by best-effort mirror writes. Each
// pass scans forward from a watermark, diffs the batch against the index,
// and re-inserts only the missing ids.
type MirrorProcessor struct {
	vectors   ChunkLister
	keywords  MirrorIndexer
	watermark time.Time
}

func NewMirrorProcessor(vectors ChunkLister, keywords MirrorIndexer) *MirrorProcessor {
	return &MirrorProcessor{
		vectors:   vectors,
		keywords:  keywords,
		watermark: time.Now().UTC().Add(-mirrorLookback),
	}
}

// Process runs one repair pass. The watermark only advances when the batch
// was fully handled, so a failed pass retries the same window.
func (p *MirrorProcessor) Process(ctx context.Context) error {
	chunks, err := p.vectors.ListSince(ctx, p.watermark, mirrorBatchSize)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}

	existing, err := p.keywords.ExistingIDs(ctx, ids)
	if err != nil {
		return err
	}

	var missingIDs []string
	var missingPayloads []domain.ChunkPayload
	for _, c := range chunks {
		if _, ok := existing[c.ID]; !ok {
			missingIDs = append(missingIDs, c.ID)
			missingPayloads = append(missingPayloads, c.Payload)
		}
	}

	if len(missingIDs) > 0 {
		if err := p.keywords.BulkIndex(ctx, missingIDs, missingPayloads); err != nil {
			return err
		}
		log.Printf("mirror repair: re-indexed %d of %d chunks since %s", len(missingIDs), len(chunks), p.watermark.Format(time.RFC3339))
	}

	p.watermark = chunks[len(chunks)-1].CreatedAt
	return nil
}
