package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/memoir/internal/domain"
)

type MockIngestService struct {
	mock.Mock
}

func (m *MockIngestService) IngestText(ctx context.Context, req domain.TextRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIngestService) IngestFile(ctx context.Context, req domain.FileRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIngestService) IngestEmail(ctx context.Context, req domain.EmailRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIngestService) IngestChat(ctx context.Context, req domain.ChatRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIngestService) IngestAudio(ctx context.Context, req domain.AudioRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIngestService) IngestImage(ctx context.Context, req domain.ImageRequest) ([]string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func decodeIngestData(t *testing.T, body *bytes.Buffer) IngestResponse {
	t.Helper()
	var envelope struct {
		Data IngestResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope.Data
}

func TestIngestText_Success(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	svc.On("IngestText", mock.Anything, mock.MatchedBy(func(req domain.TextRequest) bool {
		return req.CustomerID == "cust-1" && req.Title == "note" && req.Text == "hello world"
	})).Return([]string{"id-1", "id-2"}, nil)

	body := `{"customer_id":"cust-1","title":"note","text":"hello world"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/text", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Text(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	data := decodeIngestData(t, rec.Body)
	assert.Equal(t, []string{"id-1", "id-2"}, data.IDs)
	assert.Equal(t, 2, data.Chunks)
	svc.AssertExpectations(t)
}

func TestIngestText_MissingCustomerID(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/ingest/text", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()

	h.Text(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "IngestText", mock.Anything, mock.Anything)
}

func TestIngestText_InvalidBody(t *testing.T) {
	h := NewIngestHandler(new(MockIngestService))

	req := httptest.NewRequest(http.MethodPost, "/ingest/text", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.Text(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestText_ServiceErrorMapped(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	svc.On("IngestText", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainErrorWithCause(domain.ErrCodeStorage, "vector store unavailable", assert.AnError))

	body := `{"customer_id":"cust-1","text":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/text", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Text(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestEmail_Success(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	svc.On("IngestEmail", mock.Anything, mock.MatchedBy(func(req domain.EmailRequest) bool {
		return req.Subject == "Re: invoice" && req.MessageID == "<m2@example.com>"
	})).Return([]string{"id-1"}, nil)

	body := `{"customer_id":"cust-1","subject":"Re: invoice","body":"text","message_id":"<m2@example.com>"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/email", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Email(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestIngestChat_RequiresMessages(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	body := `{"customer_id":"cust-1","platform":"slack","messages":[]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "IngestChat", mock.Anything, mock.Anything)
}

func TestIngestChat_Success(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	svc.On("IngestChat", mock.Anything, mock.MatchedBy(func(req domain.ChatRequest) bool {
		return req.Platform == "slack" && len(req.Messages) == 2 && req.Messages[0].Sender == "alice"
	})).Return([]string{"id-1"}, nil)

	body := `{"customer_id":"cust-1","platform":"slack","messages":[{"sender":"alice","text":"hi"},{"sender":"bob","text":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileName string, fileContent []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	part, err := writer.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write(fileContent)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestIngestFile_Success(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	svc.On("IngestFile", mock.Anything, mock.MatchedBy(func(req domain.FileRequest) bool {
		return req.CustomerID == "cust-1" &&
			req.FileName == "notes.txt" &&
			string(req.Content) == "file body"
	})).Return([]string{"id-1"}, nil)

	req := multipartRequest(t, "/ingest/file", map[string]string{"customer_id": "cust-1"}, "notes.txt", []byte("file body"))
	rec := httptest.NewRecorder()

	h.File(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestIngestFile_MissingFilePart(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("customer_id", "cust-1"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/ingest/file", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	h.File(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "IngestFile", mock.Anything, mock.Anything)
}

func TestIngestAudio_TranscriptFormValue(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	svc.On("IngestAudio", mock.Anything, mock.MatchedBy(func(req domain.AudioRequest) bool {
		return req.Transcript == "spoken words"
	})).Return([]string{"id-1"}, nil)

	fields := map[string]string{"customer_id": "cust-1", "transcript": "spoken words"}
	req := multipartRequest(t, "/ingest/audio", fields, "call.mp3", []byte{0x01, 0x02})
	rec := httptest.NewRecorder()

	h.Audio(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestIngestImage_BadTimestamp(t *testing.T) {
	svc := new(MockIngestService)
	h := NewIngestHandler(svc)

	fields := map[string]string{"customer_id": "cust-1", "timestamp": "last tuesday"}
	req := multipartRequest(t, "/ingest/image", fields, "photo.png", []byte{0x89})
	rec := httptest.NewRecorder()

	h.Image(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "IngestImage", mock.Anything, mock.Anything)
}
