package embcache

import (
	"context"
	"fmt"

	"github.com/ragpipe/ragpipe/internal/domain"
)

// BatchEmbed resolves each text against the cache first and embeds only
// the misses in a single inner call. Token usage counts misses only.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	var missKeys []string

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.getFromCache(ctx, key); ok {
			c.incCache("hit")
			embeddings[i] = vec
			continue
		}
		c.incCache("miss")
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
		missKeys = append(missKeys, key)
	}

	if len(missIdx) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	inner, err := domain.BatchEmbedAuto(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed misses: %w", err)
	}
	if len(inner.Embeddings) != len(missIdx) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"batch embed misses: got %d embeddings for %d texts", len(inner.Embeddings), len(missIdx))
	}

	for j, i := range missIdx {
		embeddings[i] = inner.Embeddings[j]
		c.putToCache(ctx, missKeys[j], inner.Embeddings[j])
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: inner.PromptTokens,
		TotalTokens:  inner.TotalTokens,
	}, nil
}
