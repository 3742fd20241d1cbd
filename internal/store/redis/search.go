package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/ragpipe/ragpipe/internal/store"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
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

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.K, fieldVector)
	queryStr := "*=>" + knnPart
	if q.Source != "" {
		prefilter := fmt.Sprintf("@%s:{%s}", fieldSource, tagEscaper.Replace(q.Source))
		queryStr = fmt.Sprintf("(%s)=>%s", prefilter, knnPart)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		s.cfg.IndexName, queryStr,
		"RETURN", "4", fieldContent, fieldSource, fieldChunkID, fieldVectorScore,
		"SORTBY", fieldVectorScore,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &store.Error{Op: store.OpSearch, Err: err}
	}
	return parseKNNResult(raw)
}

// Count returns the number of indexed chunks via FT.SEARCH with LIMIT 0 0.
func (s *Store) Count(ctx context.Context) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(s.cfg.IndexName, "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, store.ErrIndexNotFound
		}
		return 0, &store.Error{Op: store.OpSearch, Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func parseKNNResult(raw []rueidis.RedisMessage) ([]store.SearchEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	entries := make([]store.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		m := parseFieldPairs(fields)

		entry := store.SearchEntry{
			ChunkID: m[fieldChunkID],
			Content: m[fieldContent],
			Source:  m[fieldSource],
		}
		if scoreStr, ok := m[fieldVectorScore]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entry.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
