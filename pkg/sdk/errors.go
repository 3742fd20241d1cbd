package ragpipe

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped from the API error codes.
// Use errors.Is() to check.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSourceNotFound      = errors.New("source not found")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrEmptyDocument       = errors.New("document contains no text")
	ErrEmbeddingProvider   = errors.New("embedding provider error")
	ErrLLMProvider         = errors.New("llm provider error")
	ErrStoreUnavailable    = errors.New("vector store unavailable")
)

// sentinelByCode maps server error codes onto client sentinels.
var sentinelByCode = map[string]error{
	"bad_request":              ErrInvalidRequest,
	"validation_failed":        ErrInvalidRequest,
	"unauthorized":             ErrUnauthorized,
	"source_not_found":         ErrSourceNotFound,
	"unsupported_file_type":    ErrUnsupportedFileType,
	"empty_document":           ErrEmptyDocument,
	"embedding_provider_error": ErrEmbeddingProvider,
	"llm_provider_error":       ErrLLMProvider,
	"store_unavailable":        ErrStoreUnavailable,
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ragpipe: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Unwrap maps the error code onto a sentinel so errors.Is works.
func (e *APIError) Unwrap() error {
	return sentinelByCode[e.Code]
}
