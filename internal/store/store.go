// Package store defines the vector store facade used by the pipeline.
// Drivers (redis, weaviate) implement Store; consumers depend on the
// narrow sub-interfaces they actually use.
package store

import (
	"context"
	"time"
)

// Store is the vector index facade combining all sub-interfaces.
type Store interface {
	Pinger
	IndexManager
	ChunkWriter
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager manages the vector index lifecycle.
type IndexManager interface {
	EnsureIndex(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Record is one chunk row as persisted in the vector index.
type Record struct {
	ChunkID     string
	Content     string
	Source      string
	ChunkIndex  int
	TotalChunks int
	Metadata    map[string]string
	Vector      []float32
}

// ChunkWriter persists and removes chunk records.
type ChunkWriter interface {
	Insert(ctx context.Context, records []Record) error
	DeleteBySource(ctx context.Context, source string) (int, error)
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	Vector []float32
	K      int
	Source string // optional: restrict hits to one source
}

// SearchEntry is a single hit from a KNN search.
type SearchEntry struct {
	ChunkID string
	Content string
	Source  string
	Score   float64
}

// Searcher provides similarity search and index statistics.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) ([]SearchEntry, error)
	Count(ctx context.Context) (int, error)
}

// KV is an optional key-value capability used by the embedding cache.
// Drivers that cannot serve it simply do not implement it.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
