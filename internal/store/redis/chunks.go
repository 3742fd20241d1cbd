package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/ragpipe/ragpipe/internal/store"
)

// Insert persists chunk records as hashes in a single DoMulti round-trip.
func (s *Store) Insert(ctx context.Context, records []store.Record) error {
	if len(records) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, len(records))
	for i := range records {
		r := &records[i]
		if r.ChunkID == "" {
			return fmt.Errorf("record %d: chunk id is required", i)
		}
		if len(r.Vector) != s.cfg.VectorDim {
			return fmt.Errorf("record %s: vector dimension %d, want %d",
				r.ChunkID, len(r.Vector), s.cfg.VectorDim)
		}

		cmd := s.b().Hset().Key(s.chunkKey(r.ChunkID)).FieldValue().
			FieldValue(fieldContent, r.Content).
			FieldValue(fieldSource, r.Source).
			FieldValue(fieldChunkID, r.ChunkID).
			FieldValue(fieldChunkIndex, strconv.Itoa(r.ChunkIndex)).
			FieldValue(fieldTotalChunks, strconv.Itoa(r.TotalChunks)).
			FieldValue(fieldVector, vectorToBytes(r.Vector))
		for k, v := range r.Metadata {
			cmd = cmd.FieldValue(k, v)
		}
		cmds = append(cmds, cmd.Build())
	}

	for _, res := range s.client.DoMulti(ctx, cmds...) {
		if err := res.Error(); err != nil {
			return &store.Error{Op: store.OpHSet, Err: err}
		}
	}
	return nil
}

// DeleteBySource removes every chunk ingested from one source and returns
// the number of deleted documents. Keys are discovered via a TAG filter
// search, then dropped in DEL batches.
func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	if source == "" {
		return 0, fmt.Errorf("source is required")
	}

	query := fmt.Sprintf("@%s:{%s}", fieldSource, tagEscaper.Replace(source))
	deleted := 0

	for {
		keys, err := s.searchKeys(ctx, query, deleteBatchSize)
		if err != nil {
			return deleted, err
		}
		if len(keys) == 0 {
			return deleted, nil
		}

		cmd := s.b().Del().Key(keys...).Build()
		n, err := s.do(ctx, cmd).AsInt64()
		if err != nil {
			return deleted, &store.Error{Op: store.OpDel, Err: err}
		}
		deleted += int(n)

		if len(keys) < deleteBatchSize {
			return deleted, nil
		}
	}
}

const deleteBatchSize = 500

// searchKeys returns up to limit document keys matching query, fetching no fields.
func (s *Store) searchKeys(ctx context.Context, query string, limit int) ([]string, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		s.cfg.IndexName, query,
		"NOCONTENT",
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &store.Error{Op: store.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return nil, nil
	}

	// NOCONTENT reply: [total, key1, key2, ...]
	keys := make([]string, 0, len(raw)-1)
	for _, msg := range raw[1:] {
		key, err := msg.ToString()
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}
