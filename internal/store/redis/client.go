// Package redis implements store.Store on Redis 8+ / RediSearch via rueidis.
// Chunks live in hashes under a key prefix; an FT index with an HNSW vector
// field serves KNN retrieval.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/ragpipe/ragpipe/internal/store"
)

// Compile-time check: Store implements store.Store and the KV extension.
var (
	_ store.Store = (*Store)(nil)
	_ store.KV    = (*Store)(nil)
)

// Config holds connection and index parameters for a Redis store.
type Config struct {
	Addrs     []string
	Username  string
	Password  string
	DB        int
	IndexName string
	VectorDim int
	// HNSW build parameters, zero means backend default.
	HNSWM           int
	HNSWEFConstruct int
}

// Store implements store.Store via rueidis.
type Store struct {
	client rueidis.Client
	cfg    Config
}

// NewStore creates a Redis store via rueidis.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("addrs is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true, // FT.SEARCH result parsing expects RESP2 array format
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, cfg: cfg}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// chunkKey builds the hash key for a chunk.
func (s *Store) chunkKey(chunkID string) string {
	return s.cfg.IndexName + ":" + chunkID
}

// keyPrefix is the common prefix of all chunk keys.
func (s *Store) keyPrefix() string {
	return s.cfg.IndexName + ":"
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// isRedisErr checks if err is a Redis server error containing substr (case-insensitive).
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
