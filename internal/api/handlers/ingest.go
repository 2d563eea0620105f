package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/loomworks/memoir/internal/api"
	"github.com/loomworks/memoir/internal/domain"
)

// multipartMemoryBytes bounds the in-memory portion of multipart parsing;
// larger parts spill to temp files.
const multipartMemoryBytes = 8 * 1024 * 1024

type IngestService interface {
	IngestText(ctx context.Context, req domain.TextRequest) ([]string, error)
	IngestFile(ctx context.Context, req domain.FileRequest) ([]string, error)
	IngestEmail(ctx context.Context, req domain.EmailRequest) ([]string, error)
	IngestChat(ctx context.Context, req domain.ChatRequest) ([]string, error)
	IngestAudio(ctx context.Context, req domain.AudioRequest) ([]string, error)
	IngestImage(ctx context.Context, req domain.ImageRequest) ([]string, error)
}

type IngestHandler struct {
	svc IngestService
}

func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

type commonFieldsRequest struct {
	CustomerID    string     `json:"customer_id"`
	OrgID         string     `json:"org_id"`
	OwnerID       string     `json:"owner_id"`
	ThreadID      string     `json:"thread_id"`
	InteractionID string     `json:"interaction_id"`
	Timestamp     *time.Time `json:"timestamp"`
	Participants  []string   `json:"participants"`
}

func (c commonFieldsRequest) toDomain() domain.CommonFields {
	return domain.CommonFields{
		CustomerID:    c.CustomerID,
		OrgID:         c.OrgID,
		OwnerID:       c.OwnerID,
		ThreadID:      c.ThreadID,
		InteractionID: c.InteractionID,
		Timestamp:     c.Timestamp,
		Participants:  c.Participants,
	}
}

type IngestTextRequest struct {
	commonFieldsRequest
	Title string `json:"title"`
	Text  string `json:"text"`
}

type IngestEmailRequest struct {
	commonFieldsRequest
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
	InReplyTo string `json:"in_reply_to"`
}

type ChatMessageRequest struct {
	Sender    string     `json:"sender"`
	Text      string     `json:"text"`
	Timestamp *time.Time `json:"timestamp"`
}

type IngestChatRequest struct {
	commonFieldsRequest
	Platform  string               `json:"platform"`
	MessageID string               `json:"message_id"`
	Messages  []ChatMessageRequest `json:"messages"`
}

type IngestResponse struct {
	IDs    []string `json:"ids"`
	Chunks int      `json:"chunks"`
}

func (h *IngestHandler) Text(w http.ResponseWriter, r *http.Request) {
	var req IngestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		api.Error(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	ids, err := h.svc.IngestText(r.Context(), domain.TextRequest{
		CommonFields: req.toDomain(),
		Title:        req.Title,
		Text:         req.Text,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, IngestResponse{IDs: ids, Chunks: len(ids)})
}

func (h *IngestHandler) Email(w http.ResponseWriter, r *http.Request) {
	var req IngestEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		api.Error(w, http.StatusBadRequest, "customer_id is required")
		return
	}

	ids, err := h.svc.IngestEmail(r.Context(), domain.EmailRequest{
		CommonFields: req.toDomain(),
		Subject:      req.Subject,
		Body:         req.Body,
		MessageID:    req.MessageID,
		InReplyTo:    req.InReplyTo,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, IngestResponse{IDs: ids, Chunks: len(ids)})
}

func (h *IngestHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req IngestChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" {
		api.Error(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	if len(req.Messages) == 0 {
		api.Error(w, http.StatusBadRequest, "messages are required")
		return
	}

	messages := make([]domain.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, domain.ChatMessage{
			Sender:    m.Sender,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}

	ids, err := h.svc.IngestChat(r.Context(), domain.ChatRequest{
		CommonFields: req.toDomain(),
		Platform:     req.Platform,
		MessageID:    req.MessageID,
		Messages:     messages,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, IngestResponse{IDs: ids, Chunks: len(ids)})
}

func (h *IngestHandler) File(w http.ResponseWriter, r *http.Request) {
	common, content, fileName, contentType, ok := h.parseMediaForm(w, r)
	if !ok {
		return
	}

	ids, err := h.svc.IngestFile(r.Context(), domain.FileRequest{
		CommonFields: common,
		FileName:     fileName,
		ContentType:  contentType,
		Content:      content,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, IngestResponse{IDs: ids, Chunks: len(ids)})
}

func (h *IngestHandler) Audio(w http.ResponseWriter, r *http.Request) {
	common, content, fileName, contentType, ok := h.parseMediaForm(w, r)
	if !ok {
		return
	}

	ids, err := h.svc.IngestAudio(r.Context(), domain.AudioRequest{
		CommonFields: common,
		FileName:     fileName,
		ContentType:  contentType,
		Content:      content,
		Transcript:   r.FormValue("transcript"),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, IngestResponse{IDs: ids, Chunks: len(ids)})
}

func (h *IngestHandler) Image(w http.ResponseWriter, r *http.Request) {
	common, content, fileName, contentType, ok := h.parseMediaForm(w, r)
	if !ok {
		return
	}

	ids, err := h.svc.IngestImage(r.Context(), domain.ImageRequest{
		CommonFields: common,
		FileName:     fileName,
		ContentType:  contentType,
		Content:      content,
		Caption:      r.FormValue("caption"),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusCreated, IngestResponse{IDs: ids, Chunks: len(ids)})
}

// parseMediaForm reads the shared multipart shape of the media endpoints:
// a "file" part plus common identity fields as form values. On failure it
// writes the error response and returns ok=false.
func (h *IngestHandler) parseMediaForm(w http.ResponseWriter, r *http.Request) (domain.CommonFields, []byte, string, string, bool) {
	var zero domain.CommonFields

	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return zero, nil, "", "", false
	}

	customerID := r.FormValue("customer_id")
	if customerID == "" {
		api.Error(w, http.StatusBadRequest, "customer_id is required")
		return zero, nil, "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file part is required")
		return zero, nil, "", "", false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file part")
		return zero, nil, "", "", false
	}

	common := domain.CommonFields{
		CustomerID:    customerID,
		OrgID:         r.FormValue("org_id"),
		OwnerID:       r.FormValue("owner_id"),
		ThreadID:      r.FormValue("thread_id"),
		InteractionID: r.FormValue("interaction_id"),
	}
	if ts := r.FormValue("timestamp"); ts != "" {
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			api.Error(w, http.StatusBadRequest, "timestamp must be RFC 3339")
			return zero, nil, "", "", false
		}
		common.Timestamp = &parsed
	}

	contentType := header.Header.Get("Content-Type")
	return common, content, header.Filename, contentType, true
}
