package domain

import "fmt"

// DomainError represents a domain-specific error with a stable code so
// callers can distinguish validation from storage from external-service
// failures when deciding whether to retry.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeStorage         = "STORAGE_ERROR"
	ErrCodeProcessing      = "PROCESSING_ERROR"
	ErrCodeExternalService = "EXTERNAL_SERVICE_ERROR"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidChannel  = NewDomainError(ErrCodeValidation, "invalid ingestion channel")
	ErrEmptyQuery      = NewDomainError(ErrCodeValidation, "query must not be empty")
	ErrInvalidTopK     = NewDomainError(ErrCodeValidation, "top_k must be between 1 and 50")
	ErrMissingFile     = NewDomainError(ErrCodeValidation, "file content is required")
	ErrInvalidID       = NewDomainError(ErrCodeValidation, "id must be a valid uuid")
	ErrInvalidDateSpan = NewDomainError(ErrCodeValidation, "date_from must not be after date_to")
)

// Not found errors
var (
	ErrChunkNotFound = NewDomainError(ErrCodeNotFound, "memory record not found")
)

// Storage and collaborator errors. These wrap the concrete cause at the call
// site via NewDomainErrorWithCause.
var (
	ErrVectorStoreUnavailable  = NewDomainError(ErrCodeStorage, "vector store unavailable")
	ErrBlobStoreUnavailable    = NewDomainError(ErrCodeStorage, "blob store unavailable")
	ErrEmbeddingFailed         = NewDomainError(ErrCodeProcessing, "embedding generation failed")
	ErrTranscriptionFailed     = NewDomainError(ErrCodeExternalService, "audio transcription failed")
	ErrKeywordIndexUnavailable = NewDomainError(ErrCodeStorage, "keyword index unavailable")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)
