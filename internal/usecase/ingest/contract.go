package ingest

import (
	"context"

	"github.com/ragpipe/ragpipe/internal/domain/chunk"
)

// Repository persists and removes chunks in the vector index.
type Repository interface {
	Insert(ctx context.Context, chunks []chunk.Chunk) error
	RemoveSource(ctx context.Context, source string) (int, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Loader reads document text from the filesystem.
type Loader interface {
	Load(path string) (string, error)
	Directory(root string) ([]string, error)
}
