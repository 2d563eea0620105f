// Package vectorstore implements the authoritative chunk store on Postgres
// with pgvector. Ids are allocated here at write time; every other store in
// the system mirrors them.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/loomworks/memoir/internal/domain"
)

// Store persists chunk embeddings and payloads.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// StoredChunk is one row as the mirror worker sees it.
type StoredChunk struct {
	ID        string
	Payload   domain.ChunkPayload
	CreatedAt time.Time
}

// Upsert writes one row per vector/payload pair inside a single transaction,
// allocating a fresh uuid for each, and returns the ids in input order. A
// failure aborts the whole batch; no partial chunk set survives.
func (s *Store) Upsert(ctx context.Context, vectors [][]float32, payloads []domain.ChunkPayload) ([]string, error) {
	if len(vectors) != len(payloads) {
		return nil, fmt.Errorf("vector count %d does not match payload count %d", len(vectors), len(payloads))
	}
	if len(vectors) == 0 {
		return []string{}, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]string, 0, len(vectors))
	now := time.Now().UTC()
	for i, vec := range vectors {
		p := payloads[i]
		id := uuid.NewString()

		var ts *time.Time
		if p.Timestamp != nil && !p.Timestamp.IsZero() {
			utc := p.Timestamp.UTC()
			ts = &utc
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO chunks
				(id, customer_id, org_id, owner_id, channel, thread_id, ts, title, content, payload, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			id,
			nullableString(p.CustomerID),
			nullableString(p.OrgID),
			nullableString(p.OwnerID),
			string(p.Channel),
			nullableString(p.ThreadID),
			ts,
			nullableString(p.Title),
			p.Text,
			p.Map(),
			pgvector.NewVector(vec),
			now,
		)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

// Search runs a cosine similarity query restricted to the AND-ed exact-match
// filters, returning up to topK hits ordered by similarity descending.
func (s *Store) Search(ctx context.Context, queryVec []float32, topK int, filters domain.Filters) ([]domain.FusedResult, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(queryVec)
	query := `SELECT id, content, payload, 1 - (embedding <=> $1) AS score FROM chunks`
	args := []interface{}{vec}

	where, args := filterClauses(filters, args)
	if where != "" {
		query += " WHERE " + where
	}
	query += fmt.Sprintf(" ORDER BY embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.FusedResult, 0, topK)
	for rows.Next() {
		var r domain.FusedResult
		if err := rows.Scan(&r.ID, &r.Text, &r.Metadata, &r.Score); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Delete removes one chunk by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	cmdTag, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// GetByID fetches one chunk's payload.
func (s *Store) GetByID(ctx context.Context, id string) (*StoredChunk, error) {
	var c StoredChunk
	var payload map[string]interface{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, payload, created_at FROM chunks WHERE id = $1`, id,
	).Scan(&c.ID, &payload, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	c.Payload = domain.PayloadFromMap(payload)
	return &c, nil
}

// ListSince returns chunks written at or after the given time, oldest first.
// The mirror worker uses it to find rows the keyword index may be missing.
func (s *Store) ListSince(ctx context.Context, since time.Time, limit int) ([]StoredChunk, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, payload, created_at FROM chunks
		 WHERE created_at >= $1
		 ORDER BY created_at ASC
		 LIMIT $2`,
		since.UTC(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredChunk
	for rows.Next() {
		var c StoredChunk
		var payload map[string]interface{}
		if err := rows.Scan(&c.ID, &payload, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Payload = domain.PayloadFromMap(payload)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count reports the number of stored chunks. Used by health checks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&n)
	return n, err
}

func filterClauses(filters domain.Filters, args []interface{}) (string, []interface{}) {
	clause := ""
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		if clause != "" {
			clause += " AND "
		}
		clause += fmt.Sprintf("%s = $%d", column, len(args))
	}

	add("customer_id", filters.CustomerID)
	add("channel", string(filters.Channel))
	add("thread_id", filters.ThreadID)
	add("org_id", filters.OrgID)
	add("owner_id", filters.OwnerID)

	return clause, args
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
