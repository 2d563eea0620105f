package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/loomworks/memoir/internal/api"
)

// Counter reports a store's row count, doubling as its liveness probe.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Pinger is the minimal liveness probe for collaborators without a count.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	vectors  Counter
	keywords Counter
	cache    Pinger
}

func NewHealthHandler(vectors, keywords Counter, cache Pinger) *HealthHandler {
	return &HealthHandler{vectors: vectors, keywords: keywords, cache: cache}
}

// Live is the basic liveness endpoint. It touches no dependencies.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

type componentHealth struct {
	Status string `json:"status"`
	Count  *int64 `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

type detailedHealth struct {
	Status     string                     `json:"status"`
	Components map[string]componentHealth `json:"components"`
}

// Detailed probes every configured dependency with a short deadline. The
// overall status degrades when the vector store fails; the keyword index
// and cache only mark it degraded, matching their best-effort role.
func (h *HealthHandler) Detailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := detailedHealth{Status: "ok", Components: map[string]componentHealth{}}

	if n, err := h.vectors.Count(ctx); err != nil {
		report.Status = "unhealthy"
		report.Components["vector_store"] = componentHealth{Status: "down", Error: err.Error()}
	} else {
		report.Components["vector_store"] = componentHealth{Status: "ok", Count: &n}
	}

	if h.keywords != nil {
		if n, err := h.keywords.Count(ctx); err != nil {
			if report.Status == "ok" {
				report.Status = "degraded"
			}
			report.Components["keyword_index"] = componentHealth{Status: "down", Error: err.Error()}
		} else {
			report.Components["keyword_index"] = componentHealth{Status: "ok", Count: &n}
		}
	}

	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			if report.Status == "ok" {
				report.Status = "degraded"
			}
			report.Components["cache"] = componentHealth{Status: "down", Error: err.Error()}
		} else {
			report.Components["cache"] = componentHealth{Status: "ok"}
		}
	}

	status := http.StatusOK
	if report.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	api.Success(w, status, report)
}
