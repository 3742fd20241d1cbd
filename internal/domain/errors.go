package domain

import "errors"

var (
	// ErrSourceNotFound signals a missing ingestion source.
	ErrSourceNotFound = errors.New("source not found")
	// ErrUnsupportedFileType signals a file extension without a loader.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrEmptyDocument signals a file that yielded no text.
	ErrEmptyDocument = errors.New("document contains no text")
	// ErrInvalidRequest signals a malformed query or ingest request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals an LLM provider failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrStoreUnavailable signals a vector store connectivity failure.
	ErrStoreUnavailable = errors.New("vector store unavailable")
)
