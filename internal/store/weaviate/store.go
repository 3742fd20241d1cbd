// Package weaviate implements store.Store on a Weaviate class with
// externally supplied vectors (vectorizer "none"). Chunks map to objects,
// KNN retrieval to GraphQL nearVector queries.
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/weaviate/weaviate-go-client/v4/weaviate"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v4/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/ragpipe/ragpipe/internal/store"
)

// Compile-time check: Store implements store.Store. The KV extension is
// intentionally absent, Weaviate has no key-value surface to back it.
var _ store.Store = (*Store)(nil)

// Object property names within the chunk class.
const (
	propContent     = "content"
	propSource      = "source"
	propChunkID     = "chunkId"
	propChunkIndex  = "chunkIndex"
	propTotalChunks = "totalChunks"
	propMetadata    = "metadata"
)

// Config holds connection and class parameters for a Weaviate store.
type Config struct {
	Host      string
	Scheme    string
	APIKey    string
	ClassName string
	VectorDim int
}

// Store implements store.Store via the Weaviate REST/GraphQL client.
type Store struct {
	client *weaviate.Client
	cfg    Config
}

// NewStore creates a Weaviate store.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if cfg.ClassName == "" {
		return nil, fmt.Errorf("class name is required")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}

	var authConfig auth.Config
	if cfg.APIKey != "" {
		authConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Host:       cfg.Host,
		Scheme:     cfg.Scheme,
		AuthConfig: authConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client, cfg: cfg}, nil
}

// Ping checks cluster readiness.
func (s *Store) Ping(ctx context.Context) error {
	ready, err := s.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("ready check: %w", err)
	}
	if !ready {
		return fmt.Errorf("cluster not ready")
	}
	return nil
}

// Close is a no-op, the client holds no persistent connections.
func (s *Store) Close() {}

// WaitForReady polls Ping until the cluster responds or timeout expires.
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

// EnsureIndex creates the chunk class if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	exists, err := s.client.Schema().ClassExistenceChecker().
		WithClassName(s.cfg.ClassName).Do(ctx)
	if err != nil {
		return &store.Error{Op: store.OpSchema, Err: err}
	}
	if exists {
		return nil
	}

	class := &models.Class{
		Class:      s.cfg.ClassName,
		Vectorizer: "none",
		VectorIndexConfig: map[string]interface{}{
			"distance": "cosine",
		},
		Properties: []*models.Property{
			{Name: propContent, DataType: []string{"text"}},
			{Name: propSource, DataType: []string{"text"}},
			{Name: propChunkID, DataType: []string{"text"}},
			{Name: propChunkIndex, DataType: []string{"int"}},
			{Name: propTotalChunks, DataType: []string{"int"}},
			{Name: propMetadata, DataType: []string{"text"}},
		},
	}
	if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return &store.Error{Op: store.OpSchema, Err: err}
	}
	return nil
}

// Reset drops the chunk class with all objects and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	err := s.client.Schema().ClassDeleter().WithClassName(s.cfg.ClassName).Do(ctx)
	if err != nil && !strings.Contains(strings.ToLower(err.Error()), "not found") {
		return &store.Error{Op: store.OpSchema, Err: err}
	}
	return s.EnsureIndex(ctx)
}

// Insert persists chunk records in one objects batch.
func (s *Store) Insert(ctx context.Context, records []store.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.ChunkID == "" {
			return fmt.Errorf("record %d: chunk id is required", i)
		}
		if len(r.Vector) != s.cfg.VectorDim {
			return fmt.Errorf("record %s: vector dimension %d, want %d",
				r.ChunkID, len(r.Vector), s.cfg.VectorDim)
		}

		metadata := ""
		if len(r.Metadata) > 0 {
			raw, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("record %s: marshal metadata: %w", r.ChunkID, err)
			}
			metadata = string(raw)
		}

		objects = append(objects, &models.Object{
			Class: s.cfg.ClassName,
			Properties: map[string]interface{}{
				propContent:     r.Content,
				propSource:      r.Source,
				propChunkID:     r.ChunkID,
				propChunkIndex:  r.ChunkIndex,
				propTotalChunks: r.TotalChunks,
				propMetadata:    metadata,
			},
			Vector: models.C11yVector(r.Vector),
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return &store.Error{Op: store.OpBatch, Err: err}
	}
	for _, item := range resp {
		if item.Result != nil && item.Result.Errors != nil && len(item.Result.Errors.Error) > 0 {
			return &store.Error{
				Op:  store.OpBatch,
				Err: fmt.Errorf("object rejected: %s", item.Result.Errors.Error[0].Message),
			}
		}
	}
	return nil
}

// DeleteBySource removes every chunk ingested from one source and returns
// the number of matched objects.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("source is required")
	}

	where := filters.Where().
		WithPath([]string{propSource}).
		WithOperator(filters.Equal).
		WithValueText(source)

	resp, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(s.cfg.ClassName).
		WithWhere(where).
		WithOutput("minimal").
		Do(ctx)
	if err != nil {
		return 0, &store.Error{Op: store.OpBatch, Err: err}
	}
	if resp == nil || resp.Results == nil {
		return 0, nil
	}
	return int(resp.Results.Matches), nil
}

// SearchKNN runs a nearVector GraphQL query against the chunk class.
func (s *Store) SearchKNN(ctx context.Context, q *store.KNNQuery) ([]store.SearchEntry, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if len(q.Vector) != s.cfg.VectorDim {
		return nil, fmt.Errorf("vector dimension %d, want %d", len(q.Vector), s.cfg.VectorDim)
	}

	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(q.Vector)

	query := s.client.GraphQL().Get().
		WithClassName(s.cfg.ClassName).
		WithNearVector(nearVector).
		WithLimit(q.K).
		WithFields(
			graphql.Field{Name: propContent},
			graphql.Field{Name: propSource},
			graphql.Field{Name: propChunkID},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{
				{Name: "distance"},
			}},
		)

	if q.Source != "" {
		query = query.WithWhere(filters.Where().
			WithPath([]string{propSource}).
			WithOperator(filters.Equal).
			WithValueText(q.Source))
	}

	resp, err := query.Do(ctx)
	if err != nil {
		return nil, &store.Error{Op: store.OpSearch, Err: err}
	}
	if err := graphQLErr(resp); err != nil {
		return nil, &store.Error{Op: store.OpSearch, Err: err}
	}

	return s.parseHits(resp), nil
}

// Count returns the number of indexed chunks via an Aggregate meta query.
func (s *Store) Count(ctx context.Context) (int, error) {
	resp, err := s.client.GraphQL().Aggregate().
		WithClassName(s.cfg.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{
			{Name: "count"},
		}}).
		Do(ctx)
	if err != nil {
		return 0, &store.Error{Op: store.OpAggregate, Err: err}
	}
	if err := graphQLErr(resp); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "could not find class") {
			return 0, store.ErrIndexNotFound
		}
		return 0, &store.Error{Op: store.OpAggregate, Err: err}
	}

	aggregate, ok := resp.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := aggregate[s.cfg.ClassName].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	row, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := row["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	return asInt(meta["count"]), nil
}

// parseHits extracts search entries from a Get query response.
func (s *Store) parseHits(resp *models.GraphQLResponse) []store.SearchEntry {
	get, ok := resp.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	rows, ok := get[s.cfg.ClassName].([]interface{})
	if !ok {
		return nil
	}

	entries := make([]store.SearchEntry, 0, len(rows))
	for _, row := range rows {
		item, ok := row.(map[string]interface{})
		if !ok {
			continue
		}

		entry := store.SearchEntry{}
		if v, ok := item[propChunkID].(string); ok {
			entry.ChunkID = v
		}
		if v, ok := item[propContent].(string); ok {
			entry.Content = v
		}
		if v, ok := item[propSource].(string); ok {
			entry.Source = v
		}
		if additional, ok := item["_additional"].(map[string]interface{}); ok {
			// cosine distance → similarity, clamped to [0,1]
			entry.Score = max(0, 1.0-asFloat(additional["distance"]))
		}
		entries = append(entries, entry)
	}
	return entries
}

// graphQLErr surfaces GraphQL-level errors that arrive with HTTP 200.
func graphQLErr(resp *models.GraphQLResponse) error {
	if resp == nil {
		return fmt.Errorf("empty response")
	}
	if len(resp.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, e := range resp.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql: %s", strings.Join(msgs, "; "))
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}

func asInt(v interface{}) int {
	return int(asFloat(v))
}
