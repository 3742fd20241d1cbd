package health

import "context"

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// DocumentCounter reads the index size.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// GeneratorChecker checks LLM provider availability.
type GeneratorChecker interface {
	HealthCheck(ctx context.Context) error
}
