// Package hit holds the retrieval hit value object returned by KNN search.
package hit

// Hit is a single retrieval result.
type Hit struct {
	chunkID string
	source  string
	content string
	score   float64
}

// New creates a retrieval hit.
func New(chunkID, source, content string, score float64) Hit {
	return Hit{chunkID: chunkID, source: source, content: content, score: score}
}

// ChunkID returns the chunk identifier.
func (h *Hit) ChunkID() string { return h.chunkID }

// Source returns the source label.
func (h *Hit) Source() string { return h.source }

// Content returns the chunk text.
func (h *Hit) Content() string { return h.content }

// Score returns the similarity score in [0,1] for cosine distance backends.
func (h *Hit) Score() float64 { return h.score }
