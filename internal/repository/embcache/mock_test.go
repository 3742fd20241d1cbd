package embcache

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/store"
)

type mockEmbedder struct {
	result domain.EmbeddingResult
	err    error
	calls  int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

// mockKV implements the consumer interface for tests.
type mockKV struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, store.ErrKeyNotFound
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedEmbedder, *mockKV) {
	t.Helper()
	kv := &mockKV{}
	ce := New(inner, kv, nil, zap.NewNop())
	return ce, kv
}
