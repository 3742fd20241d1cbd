package redis

import (
	"context"
	"strconv"

	"github.com/ragpipe/ragpipe/internal/store"
)

// Indexed hash fields. Double underscore avoids collisions with metadata keys.
const (
	fieldContent     = "__content"
	fieldVector      = "__vector"
	fieldSource      = "__source"
	fieldChunkID     = "__chunk_id"
	fieldChunkIndex  = "__chunk_index"
	fieldTotalChunks = "__total_chunks"
	fieldMetadata    = "__metadata"
	fieldVectorScore = "__vector_score"
)

// EnsureIndex creates the FT index if it does not exist yet.
func (s *Store) EnsureIndex(ctx context.Context) error {
	args := s.createIndexArgs()
	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &store.Error{Op: store.OpCreateIndex, Err: err}
	}
	return nil
}

// Reset drops the index together with its documents and recreates it empty.
func (s *Store) Reset(ctx context.Context) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(s.cfg.IndexName, "DD").Build()
	if err := s.do(ctx, cmd).Error(); err != nil && !isRedisErr(err, "unknown index name") {
		return &store.Error{Op: store.OpDropIndex, Err: err}
	}
	return s.EnsureIndex(ctx)
}

// createIndexArgs builds the FT.CREATE argument list: text content for
// debugging queries, source/chunk_id tags for filtering and deletion,
// numeric chunk position, HNSW cosine vector field.
func (s *Store) createIndexArgs() []string {
	args := []string{
		s.cfg.IndexName,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(),
		"SCHEMA",
		fieldContent, "TEXT",
		fieldSource, "TAG",
		fieldChunkID, "TAG",
		fieldChunkIndex, "NUMERIC",
	}

	vectorAttrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.cfg.VectorDim),
		"DISTANCE_METRIC", "COSINE",
	}
	if s.cfg.HNSWM > 0 {
		vectorAttrs = append(vectorAttrs, "M", strconv.Itoa(s.cfg.HNSWM))
	}
	if s.cfg.HNSWEFConstruct > 0 {
		vectorAttrs = append(vectorAttrs, "EF_CONSTRUCTION", strconv.Itoa(s.cfg.HNSWEFConstruct))
	}

	args = append(args, fieldVector, "VECTOR", "HNSW", strconv.Itoa(len(vectorAttrs)))
	args = append(args, vectorAttrs...)
	return args
}

// indexExists probes index existence via FT.INFO.
func (s *Store) indexExists(ctx context.Context) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(s.cfg.IndexName).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &store.Error{Op: store.OpIndexInfo, Err: err}
	}
	return true, nil
}
