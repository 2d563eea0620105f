package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/loomworks/memoir/internal/api"
	"github.com/loomworks/memoir/internal/domain"
)

type MemoryService interface {
	Delete(ctx context.Context, id string) error
}

type MemoryHandler struct {
	svc MemoryService
}

func NewMemoryHandler(svc MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		api.HandleError(w, domain.ErrInvalidID)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}
