package agent

import (
	"context"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/domain/hit"
)

// Searcher retrieves the most similar chunks for a query vector.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, source string) ([]hit.Hit, error)
}

// Embedder vectorizes tool input for retrieval.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Generator drives the reasoning loop and the summarize tool.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error)
}
