package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/loomworks/memoir/internal/api"
	"github.com/loomworks/memoir/internal/domain"
	"github.com/loomworks/memoir/internal/keywordindex"
	"github.com/loomworks/memoir/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, q domain.SearchQuery) (*service.SearchResult, error)
	Timeline(ctx context.Context, filters domain.Filters, cursorToken string, limit int) (*keywordindex.TimelinePage, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query    string         `json:"query"`
	TopK     int            `json:"top_k"`
	Filters  FiltersRequest `json:"filters"`
	DateFrom *time.Time     `json:"date_from"`
	DateTo   *time.Time     `json:"date_to"`
}

type FiltersRequest struct {
	CustomerID string `json:"customer_id"`
	Channel    string `json:"channel"`
	ThreadID   string `json:"thread_id"`
	OrgID      string `json:"org_id"`
	OwnerID    string `json:"owner_id"`
}

func (f FiltersRequest) toDomain() domain.Filters {
	return domain.Filters{
		CustomerID: f.CustomerID,
		Channel:    domain.Channel(f.Channel),
		ThreadID:   f.ThreadID,
		OrgID:      f.OrgID,
		OwnerID:    f.OwnerID,
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filters.Channel != "" && !domain.Channel(req.Filters.Channel).Valid() {
		api.Error(w, http.StatusBadRequest, "invalid channel filter")
		return
	}

	result, err := h.svc.Search(r.Context(), domain.SearchQuery{
		Query:    req.Query,
		TopK:     req.TopK,
		Filters:  req.Filters.toDomain(),
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}

func (h *SearchHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := domain.Filters{
		CustomerID: q.Get("customer_id"),
		Channel:    domain.Channel(q.Get("channel")),
		ThreadID:   q.Get("thread_id"),
		OrgID:      q.Get("org_id"),
		OwnerID:    q.Get("owner_id"),
	}
	if filters.Channel != "" && !filters.Channel.Valid() {
		api.Error(w, http.StatusBadRequest, "invalid channel filter")
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	page, err := h.svc.Timeline(r.Context(), filters, q.Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, page)
}
