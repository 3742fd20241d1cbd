// Package chunk holds the chunk aggregate: a piece of a source document
// prepared for embedding and vector indexing.
package chunk

import (
	"fmt"

	"github.com/google/uuid"
)

// MaxContentSize is the maximum chunk content size in bytes.
const MaxContentSize = 65536 // 64KB

// Chunk is a single indexed fragment of a source document.
type Chunk struct {
	id          string
	content     string
	source      string
	index       int
	totalChunks int
	metadata    map[string]string
	embedding   []float32
}

// New validates and creates a Chunk. The ID is derived from the source
// name, the chunk position and a random suffix so that re-ingesting a
// source never collides with leftovers from a previous run.
func New(content, source string, index, totalChunks int, metadata map[string]string) (Chunk, error) {
	if content == "" {
		return Chunk{}, fmt.Errorf("chunk content is required")
	}
	if len(content) > MaxContentSize {
		return Chunk{}, fmt.Errorf("chunk content too large (max %d bytes)", MaxContentSize)
	}
	if source == "" {
		return Chunk{}, fmt.Errorf("chunk source is required")
	}
	if index < 0 || totalChunks <= 0 || index >= totalChunks {
		return Chunk{}, fmt.Errorf("invalid chunk position %d of %d", index, totalChunks)
	}

	id := fmt.Sprintf("%s_%d_%s", source, index, uuid.NewString()[:8])
	return Chunk{
		id:          id,
		content:     content,
		source:      source,
		index:       index,
		totalChunks: totalChunks,
		metadata:    cloneMap(metadata),
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(
	id, content, source string, index, totalChunks int,
	metadata map[string]string, embedding []float32,
) Chunk {
	return Chunk{
		id: id, content: content, source: source,
		index: index, totalChunks: totalChunks,
		metadata: metadata, embedding: embedding,
	}
}

// ID returns the chunk identifier.
func (c *Chunk) ID() string { return c.id }

// Content returns the chunk text.
func (c *Chunk) Content() string { return c.content }

// Source returns the source label of the originating document.
func (c *Chunk) Source() string { return c.source }

// Index returns the chunk position within its source document.
func (c *Chunk) Index() int { return c.index }

// TotalChunks returns the number of chunks produced from the source document.
func (c *Chunk) TotalChunks() int { return c.totalChunks }

// Metadata returns the document metadata attached to the chunk.
func (c *Chunk) Metadata() map[string]string { return c.metadata }

// Embedding returns the embedding vector, nil before vectorization.
func (c *Chunk) Embedding() []float32 { return c.embedding }

// SetEmbedding attaches the embedding vector.
func (c *Chunk) SetEmbedding(v []float32) { c.embedding = v }

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
