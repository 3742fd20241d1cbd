package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/ragpipe/ragpipe/internal/store"
)

// Get retrieves a value by key. Used by the embedding cache.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Get().Key(key).Build()
	data, err := s.do(ctx, cmd).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, store.ErrKeyNotFound
		}
		return nil, &store.Error{Op: store.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at the given key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	cmd := s.b().Set().Key(key).Value(string(value)).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &store.Error{Op: store.OpSet, Err: err}
	}
	return nil
}
