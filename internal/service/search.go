package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/loomworks/memoir/internal/domain"
	"github.com/loomworks/memoir/internal/keywordindex"
	"github.com/loomworks/memoir/internal/pagination"
	"github.com/loomworks/memoir/internal/telemetry"
)

const (
	defaultTopK = 5
	maxTopK     = 50

	substringBonus = 0.05
)

// VectorSearcher is the semantic retrieval leg.
type VectorSearcher interface {
	Search(ctx context.Context, queryVec []float32, topK int, filters domain.Filters) ([]domain.FusedResult, error)
}

// KeywordSearcher is the lexical retrieval leg plus the timeline view that
// only the keyword index can serve.
type KeywordSearcher interface {
	Search(ctx context.Context, queryText string, topK int, filters domain.Filters, dateFrom, dateTo *time.Time) ([]domain.FusedResult, error)
	Timeline(ctx context.Context, filters domain.Filters, cursor *pagination.Cursor, limit int) (*keywordindex.TimelinePage, error)
}

// AnswerSynthesizer turns ranked results into a natural-language answer.
type AnswerSynthesizer interface {
	Synthesize(ctx context.Context, query string, results []domain.FusedResult) (string, error)
}

// ResponseCache is an optional read-through cache for whole search
// responses. A miss returns found=false with a nil error.
type ResponseCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// Ranker reorders fused results for a query. Implementations must not
// mutate the input slice.
type Ranker interface {
	Rank(query string, results []domain.FusedResult) []domain.FusedResult
}

// SearchResult is the full response for one hybrid search.
type SearchResult struct {
	Results []domain.FusedResult `json:"results"`
	Answer  string               `json:"answer,omitempty"`
}

// SearchService runs both retrieval legs concurrently, fuses them with the
// vector leg authoritative, rescores, and synthesizes an answer. The
// keyword leg and the cache degrade silently; the vector leg does not.
type SearchService struct {
	embedding   EmbeddingClient
	vectors     VectorSearcher
	keywords    KeywordSearcher
	ranker      Ranker
	synthesizer AnswerSynthesizer
	cache       ResponseCache
}

// SearchConfig carries the optional collaborators.
type SearchConfig struct {
	Keywords    KeywordSearcher
	Ranker      Ranker
	Synthesizer AnswerSynthesizer
	Cache       ResponseCache
}

func NewSearchService(embedding EmbeddingClient, vectors VectorSearcher, cfg SearchConfig) *SearchService {
	ranker := cfg.Ranker
	if ranker == nil {
		ranker = &SubstringRanker{}
	}
	return &SearchService{
		embedding:   embedding,
		vectors:     vectors,
		keywords:    cfg.Keywords,
		ranker:      ranker,
		synthesizer: cfg.Synthesizer,
		cache:       cfg.Cache,
	}
}

// Search validates the query, runs both legs, fuses, rescores, and
// synthesizes. The fused list may exceed TopK: TopK bounds each leg, not
// the union.
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) (*SearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.hybrid", telemetry.SpanAttributes{CustomerID: q.Filters.CustomerID})
	defer span.End()

	if err := validateQuery(&q); err != nil {
		return nil, err
	}

	cacheKey := searchCacheKey(q)
	if s.cache != nil {
		var cached SearchResult
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			log.Printf("search_cache: get failed (querying stores): %v", err)
		} else if found {
			return &cached, nil
		}
	}

	vectorHits, keywordHits, err := s.retrieve(ctx, q)
	if err != nil {
		return nil, err
	}

	fused := Fuse(vectorHits, keywordHits)
	ranked := s.ranker.Rank(q.Query, fused)

	result := &SearchResult{Results: ranked}
	if s.synthesizer != nil && len(ranked) > 0 {
		answer, err := s.synthesizer.Synthesize(ctx, q.Query, ranked)
		if err != nil {
			return nil, err
		}
		result.Answer = answer
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, result); err != nil {
			log.Printf("search_cache: set failed: %v", err)
		}
	}

	return result, nil
}

// Timeline pages keyword-index entries in reverse chronological order.
func (s *SearchService) Timeline(ctx context.Context, filters domain.Filters, cursorToken string, limit int) (*keywordindex.TimelinePage, error) {
	ctx, span := telemetry.StartSpan(ctx, "search.timeline", telemetry.SpanAttributes{CustomerID: filters.CustomerID})
	defer span.End()

	if s.keywords == nil {
		return nil, domain.ErrKeywordIndexUnavailable
	}

	var cursor *pagination.Cursor
	if cursorToken != "" {
		c, err := pagination.DecodeCursor(cursorToken)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid timeline cursor")
		}
		cursor = c
	}

	page, err := s.keywords.Timeline(ctx, filters, cursor, limit)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "timeline query failed", err)
	}
	return page, nil
}

// retrieve runs the two legs concurrently. The vector leg is fatal on
// error; a keyword failure logs and contributes nothing.
func (s *SearchService) retrieve(ctx context.Context, q domain.SearchQuery) ([]domain.FusedResult, []domain.FusedResult, error) {
	var (
		wg          sync.WaitGroup
		vectorHits  []domain.FusedResult
		keywordHits []domain.FusedResult
		vectorErr   error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		vecs, err := s.embedding.EmbedBatch(ctx, []string{q.Query})
		if err != nil {
			vectorErr = domain.NewDomainErrorWithCause(domain.ErrCodeProcessing, "query embedding failed", err)
			return
		}
		hits, err := s.vectors.Search(ctx, vecs[0], q.TopK, q.Filters)
		if err != nil {
			vectorErr = domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "vector search failed", err)
			return
		}
		vectorHits = hits
	}()

	if s.keywords != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := s.keywords.Search(ctx, q.Query, q.TopK, q.Filters, q.DateFrom, q.DateTo)
			if err != nil {
				log.Printf("keyword_mirror: search failed (vector results only): %v", err)
				return
			}
			keywordHits = hits
		}()
	}

	wg.Wait()
	if vectorErr != nil {
		return nil, nil, vectorErr
	}
	return vectorHits, keywordHits, nil
}

// Fuse merges the two legs: all vector hits first in store order, then the
// keyword hits whose ids the vector leg did not already return, in keyword
// order. Scores pass through untouched.
func Fuse(vectorHits, keywordHits []domain.FusedResult) []domain.FusedResult {
	fused := make([]domain.FusedResult, 0, len(vectorHits)+len(keywordHits))
	seen := make(map[string]struct{}, len(vectorHits))

	for _, hit := range vectorHits {
		fused = append(fused, hit)
		seen[hit.ID] = struct{}{}
	}
	for _, hit := range keywordHits {
		if _, ok := seen[hit.ID]; ok {
			continue
		}
		fused = append(fused, hit)
		seen[hit.ID] = struct{}{}
	}
	return fused
}

// SubstringRanker adds a fixed bonus to every result whose text contains
// any case-folded query token as a substring, then stable-sorts by
// descending score so equal scores keep their fusion order.
type SubstringRanker struct {
	Bonus float32
}

func (r *SubstringRanker) Rank(query string, results []domain.FusedResult) []domain.FusedResult {
	bonus := r.Bonus
	if bonus == 0 {
		bonus = substringBonus
	}

	tokens := strings.Fields(strings.ToLower(query))
	ranked := make([]domain.FusedResult, len(results))
	copy(ranked, results)

	if len(tokens) > 0 {
		for i := range ranked {
			text := strings.ToLower(ranked[i].Text)
			for _, token := range tokens {
				if strings.Contains(text, token) {
					ranked[i].Score += bonus
					break
				}
			}
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func validateQuery(q *domain.SearchQuery) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return domain.ErrEmptyQuery
	}
	if q.TopK == 0 {
		q.TopK = defaultTopK
	}
	if q.TopK < 1 || q.TopK > maxTopK {
		return domain.ErrInvalidTopK
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return domain.ErrInvalidDateSpan
	}
	return nil
}

func searchCacheKey(q domain.SearchQuery) string {
	raw, _ := json.Marshal(q)
	sum := sha256.Sum256(raw)
	return "search:" + hex.EncodeToString(sum[:])
}
