// Package keywordindex implements the best-effort lexical mirror of the
// vector store on Postgres full-text search. Entries reuse the chunk ids
// allocated by the vector store, so indexing is an idempotent upsert and
// the keyword index is always a subset of the vector store.
package keywordindex

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomworks/memoir/internal/domain"
	"github.com/loomworks/memoir/internal/pagination"
)

// Index provides keyword search over mirrored chunk payloads.
type Index struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Index {
	return &Index{pool: pool}
}

// BulkIndex upserts one entry per id/payload pair. Re-indexing an existing
// id overwrites the previous entry.
func (ix *Index) BulkIndex(ctx context.Context, ids []string, payloads []domain.ChunkPayload) error {
	if len(ids) != len(payloads) {
		return fmt.Errorf("id count %d does not match payload count %d", len(ids), len(payloads))
	}
	if len(ids) == 0 {
		return nil
	}

	tx, err := ix.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for i, id := range ids {
		p := payloads[i]

		var ts *time.Time
		if p.Timestamp != nil && !p.Timestamp.IsZero() {
			utc := p.Timestamp.UTC()
			ts = &utc
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO keyword_entries
				(id, customer_id, org_id, owner_id, channel, thread_id, ts, title, content, payload, indexed_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO UPDATE SET
				customer_id = EXCLUDED.customer_id,
				org_id = EXCLUDED.org_id,
				owner_id = EXCLUDED.owner_id,
				channel = EXCLUDED.channel,
				thread_id = EXCLUDED.thread_id,
				ts = EXCLUDED.ts,
				title = EXCLUDED.title,
				content = EXCLUDED.content,
				payload = EXCLUDED.payload,
				indexed_at = EXCLUDED.indexed_at`,
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
			now,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Search runs a relevance-weighted full-text query over title and text.
// Title matches count roughly double through the tsvector weight labels.
func (ix *Index) Search(ctx context.Context, queryText string, topK int, filters domain.Filters, dateFrom, dateTo *time.Time) ([]domain.FusedResult, error) {
	if topK <= 0 {
		topK = 5
	}

	query := `SELECT id, content, payload, ts_rank('{0.1, 0.2, 0.4, 0.8}', search, q) AS score
		FROM keyword_entries, websearch_to_tsquery('simple', $1) q
		WHERE search @@ q`
	args := []interface{}{queryText}

	clause, args := filterClauses(filters, args)
	if clause != "" {
		query += " AND " + clause
	}
	if dateFrom != nil {
		args = append(args, dateFrom.UTC())
		query += fmt.Sprintf(" AND ts >= $%d", len(args))
	}
	if dateTo != nil {
		args = append(args, dateTo.UTC())
		query += fmt.Sprintf(" AND ts <= $%d", len(args))
	}

	query += fmt.Sprintf(" ORDER BY score DESC LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := ix.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.FusedResult, 0, topK)
	for rows.Next() {
		var r domain.FusedResult
		var content *string
		if err := rows.Scan(&r.ID, &content, &r.Metadata, &r.Score); err != nil {
			return nil, err
		}
		if content != nil {
			r.Text = *content
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// TimelinePage is one page of timeline entries ordered by timestamp
// descending.
type TimelinePage struct {
	Entries    []domain.TimelineEntry `json:"entries"`
	NextCursor string                 `json:"next_cursor,omitempty"`
	HasMore    bool                   `json:"has_more"`
}

// Timeline lists entries for a tenant, newest first, with cursor paging.
// Entries without a logical timestamp fall back to their index time.
func (ix *Index) Timeline(ctx context.Context, filters domain.Filters, cursor *pagination.Cursor, limit int) (*TimelinePage, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, channel, title, content, payload, coalesce(ts, indexed_at) AS ord_ts
		FROM keyword_entries`
	args := []interface{}{}

	clause, args := filterClauses(filters, args)
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		cond := fmt.Sprintf("(coalesce(ts, indexed_at), id) < ($%d, $%d)", len(args)-1, len(args))
		if clause != "" {
			clause += " AND " + cond
		} else {
			clause = cond
		}
	}
	if clause != "" {
		query += " WHERE " + clause
	}

	query += fmt.Sprintf(" ORDER BY ord_ts DESC, id DESC LIMIT $%d", len(args)+1)
	args = append(args, limit+1)

	rows, err := ix.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type ordered struct {
		entry domain.TimelineEntry
		ordTS time.Time
	}
	var items []ordered
	for rows.Next() {
		var e domain.TimelineEntry
		var channel, title, content *string
		var ordTS time.Time
		if err := rows.Scan(&e.ID, &channel, &title, &content, &e.Metadata, &ordTS); err != nil {
			return nil, err
		}
		if channel != nil {
			e.Channel = domain.Channel(*channel)
		}
		if title != nil {
			e.Title = *title
		}
		if content != nil {
			e.Text = *content
		}
		ts := ordTS
		e.Timestamp = &ts
		items = append(items, ordered{entry: e, ordTS: ordTS})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	page := &TimelinePage{HasMore: hasMore}
	for _, item := range items {
		page.Entries = append(page.Entries, item.entry)
	}
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		page.NextCursor = pagination.EncodeCursor(last.entry.ID, last.ordTS)
	}
	return page, nil
}

// Delete removes one entry by id.
func (ix *Index) Delete(ctx context.Context, id string) error {
	cmdTag, err := ix.pool.Exec(ctx, `DELETE FROM keyword_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// ExistingIDs reports which of the given ids are already indexed. The
// mirror worker diffs this against the vector store to find lagging rows.
func (ix *Index) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}
	rows, err := ix.pool.Query(ctx, `SELECT id FROM keyword_entries WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// Count reports the number of indexed entries. Used by health checks.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	var n int64
	err := ix.pool.QueryRow(ctx, `SELECT count(*) FROM keyword_entries`).Scan(&n)
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
