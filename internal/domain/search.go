package domain

import "time"

// Filters restricts retrieval to exact-match metadata conditions. Only
// non-empty fields are applied; supplied fields are always AND-ed.
type Filters struct {
	CustomerID string
	Channel    Channel
	ThreadID   string
	OrgID      string
	OwnerID    string
}

// IsZero reports whether no filter field is set.
func (f Filters) IsZero() bool {
	return f.CustomerID == "" && f.Channel == "" && f.ThreadID == "" && f.OrgID == "" && f.OwnerID == ""
}

// SearchQuery is one hybrid retrieval request.
type SearchQuery struct {
	Query    string
	TopK     int
	Filters  Filters
	DateFrom *time.Time // keyword index only
	DateTo   *time.Time
}

// FusedResult is one ranked hit after fusion. Score is provenance-mixed:
// cosine similarity for vector hits, lexical relevance for keyword-only
// hits. The two scales are never compared against each other.
type FusedResult struct {
	ID       string                 `json:"id"`
	Score    float32                `json:"score"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TimelineEntry is one keyword-index record ordered by logical timestamp.
type TimelineEntry struct {
	ID        string                 `json:"id"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Channel   Channel                `json:"channel"`
	Title     string                 `json:"title,omitempty"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
