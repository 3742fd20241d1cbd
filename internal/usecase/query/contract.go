package query

import (
	"context"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/domain/hit"
)

// Searcher retrieves the most similar chunks for a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, source string) ([]hit.Hit, error)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator produces the final answer text.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error)
}
