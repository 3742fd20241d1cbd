// Package chunks maps the chunk aggregate onto the vector store facade.
package chunks

import (
	"context"
	"errors"
	"fmt"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/domain/chunk"
	"github.com/ragpipe/ragpipe/internal/domain/hit"
	"github.com/ragpipe/ragpipe/internal/store"
)

// vectorStore is the consumer interface for the chunk repository (ISP).
type vectorStore interface {
	Insert(ctx context.Context, records []store.Record) error
	DeleteBySource(ctx context.Context, source string) (int, error)
	SearchKNN(ctx context.Context, q *store.KNNQuery) ([]store.SearchEntry, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// Repo implements the ingest and query repositories.
type Repo struct {
	store vectorStore
}

// New creates a chunk repository.
func New(s vectorStore) *Repo {
	return &Repo{store: s}
}

// Insert persists embedded chunks. Chunks without an embedding are rejected.
func (r *Repo) Insert(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]store.Record, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if len(c.Embedding()) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID())
		}
		records = append(records, store.Record{
			ChunkID:     c.ID(),
			Content:     c.Content(),
			Source:      c.Source(),
			ChunkIndex:  c.Index(),
			TotalChunks: c.TotalChunks(),
			Metadata:    c.Metadata(),
			Vector:      c.Embedding(),
		})
	}

	if err := r.store.Insert(ctx, records); err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(records), err)
	}
	return nil
}

// Search returns the top-k most similar chunks for a query vector.
// An optional source restricts hits to chunks of one document.
func (r *Repo) Search(ctx context.Context, vector []float32, k int, source string) ([]hit.Hit, error) {
	entries, err := r.store.SearchKNN(ctx, &store.KNNQuery{
		Vector: vector,
		K:      k,
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	hits := make([]hit.Hit, 0, len(entries))
	for _, e := range entries {
		hits = append(hits, hit.New(e.ChunkID, e.Source, e.Content, e.Score))
	}
	return hits, nil
}

// RemoveSource deletes every chunk of a source and returns the removed count.
// A source with no chunks maps to domain.ErrSourceNotFound.
func (r *Repo) RemoveSource(ctx context.Context, source string) (int, error) {
	n, err := r.store.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("delete source %q: %w", source, err)
	}
	if n == 0 {
		return 0, domain.ErrSourceNotFound
	}
	return n, nil
}

// Count returns the number of indexed chunks. A missing index counts as empty.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		if errors.Is(err, store.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// Reset drops the whole index and recreates it empty.
func (r *Repo) Reset(ctx context.Context) error {
	if err := r.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}
