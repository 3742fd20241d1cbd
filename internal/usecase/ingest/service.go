// Package ingest runs the document ingestion pipeline: load, clean, chunk,
// embed and index. It also owns index-level maintenance (source removal,
// stats, reset).
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/domain/chunk"
	"github.com/ragpipe/ragpipe/internal/metrics"
	"github.com/ragpipe/ragpipe/internal/textproc"
)

// FileResult is the ingestion outcome for a single file.
type FileResult struct {
	Success     bool              `json:"success"`
	Source      string            `json:"source,omitempty"`
	TotalChunks int               `json:"total_chunks,omitempty"`
	FilePath    string            `json:"file_path"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// Report aggregates per-file results of one ingestion run.
type Report struct {
	TotalFiles int          `json:"total_files"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
}

// Settings echoes the pipeline configuration in stats responses.
type Settings struct {
	ChunkSize    int     `json:"chunk_size"`
	ChunkOverlap int     `json:"chunk_overlap"`
	MaxTokens    int     `json:"max_tokens"`
	Temperature  float32 `json:"temperature"`
	VectorDim    int     `json:"vector_dimension"`
}

// VectorStoreStats describes the index.
type VectorStoreStats struct {
	TotalDocuments int    `json:"total_documents"`
	IndexName      string `json:"index_name,omitempty"`
}

// Stats is the pipeline status snapshot.
type Stats struct {
	VectorStore    VectorStoreStats `json:"vectorstore"`
	PipelineStatus string           `json:"pipeline_status"`
	Settings       Settings         `json:"settings"`
}

// RemoveResult reports a source removal.
type RemoveResult struct {
	Source  string `json:"source"`
	Deleted int    `json:"deleted"`
}

// Config tunes the ingestion service.
type Config struct {
	IndexName string
	Settings  Settings
}

// Service runs the ingestion pipeline.
type Service struct {
	loader   Loader
	splitter *textproc.Splitter
	embedder domain.Embedder
	repo     Repository
	cfg      Config
	logger   *zap.Logger
}

// New creates the ingestion service.
func New(loader Loader, splitter *textproc.Splitter, embedder domain.Embedder, repo Repository, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		repo:     repo,
		cfg:      cfg,
		logger:   logger,
	}
}

// IngestFiles processes each file independently and reports per-file
// outcomes. sourceNames overrides the source label positionally; missing
// entries default to the file's base name.
func (s *Service) IngestFiles(ctx context.Context, paths []string, sourceNames []string) Report {
	report := Report{
		TotalFiles: len(paths),
		Results:    make([]FileResult, 0, len(paths)),
	}

	for i, path := range paths {
		source := filepath.Base(path)
		if i < len(sourceNames) && sourceNames[i] != "" {
			source = sourceNames[i]
		}

		result := s.ingestFile(ctx, path, source)
		if result.Success {
			report.Successful++
		} else {
			report.Failed++
		}
		report.Results = append(report.Results, result)
	}

	return report
}

// IngestDirectory ingests every supported file under root recursively.
func (s *Service) IngestDirectory(ctx context.Context, root string) (Report, error) {
	paths, err := s.loader.Directory(root)
	if err != nil {
		return Report{}, fmt.Errorf("scan directory %s: %w", root, err)
	}
	return s.IngestFiles(ctx, paths, nil), nil
}

// ingestFile runs the full pipeline for one file. Failures are captured in
// the result instead of aborting the batch.
func (s *Service) ingestFile(ctx context.Context, path, source string) FileResult {
	start := time.Now()

	result, err := s.processFile(ctx, path, source)
	if err != nil {
		metrics.IngestDocumentsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("ingest failed",
			zap.String("path", path),
			zap.String("source", source),
			zap.Error(err))
		return FileResult{FilePath: path, Source: source, Error: err.Error()}
	}

	metrics.IngestDocumentsTotal.WithLabelValues("success").Inc()
	metrics.IngestChunksTotal.Add(float64(result.TotalChunks))
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("ingested document",
		zap.String("source", source),
		zap.Int("chunks", result.TotalChunks),
		zap.Duration("took", time.Since(start)))

	return result
}

func (s *Service) processFile(ctx context.Context, path, source string) (FileResult, error) {
	text, err := s.loader.Load(path)
	if err != nil {
		return FileResult{}, err
	}

	pre := s.splitter.Preprocess(text, source)
	if len(pre.Chunks) == 0 {
		return FileResult{}, domain.ErrEmptyDocument
	}

	chunks := make([]chunk.Chunk, 0, len(pre.Chunks))
	for i, content := range pre.Chunks {
		c, err := chunk.New(content, source, i, len(pre.Chunks), pre.Metadata)
		if err != nil {
			return FileResult{}, fmt.Errorf("build chunk %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}

	emb, err := domain.BatchEmbedAuto(ctx, s.embedder, pre.Chunks)
	if err != nil {
		return FileResult{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(emb.Embeddings) != len(chunks) {
		return FileResult{}, fmt.Errorf("embedding count mismatch: got %d for %d chunks",
			len(emb.Embeddings), len(chunks))
	}
	for i := range chunks {
		chunks[i].SetEmbedding(emb.Embeddings[i])
	}

	if err := s.repo.Insert(ctx, chunks); err != nil {
		return FileResult{}, fmt.Errorf("index chunks: %w", err)
	}

	return FileResult{
		Success:     true,
		Source:      source,
		TotalChunks: len(chunks),
		FilePath:    path,
		Metadata:    pre.Metadata,
	}, nil
}

// RemoveSource deletes every chunk ingested under the given source label.
func (s *Service) RemoveSource(ctx context.Context, source string) (RemoveResult, error) {
	if source == "" {
		return RemoveResult{}, fmt.Errorf("empty source: %w", domain.ErrInvalidRequest)
	}

	deleted, err := s.repo.RemoveSource(ctx, source)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("remove source %s: %w", source, err)
	}

	s.logger.Info("removed source", zap.String("source", source), zap.Int("deleted", deleted))
	return RemoveResult{Source: source, Deleted: deleted}, nil
}

// Stats reports the current index size and the active pipeline settings.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}

	return Stats{
		VectorStore: VectorStoreStats{
			TotalDocuments: count,
			IndexName:      s.cfg.IndexName,
		},
		PipelineStatus: "active",
		Settings:       s.cfg.Settings,
	}, nil
}

// Reset drops and recreates the index, discarding all chunks.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.repo.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	s.logger.Warn("index reset, all documents dropped")
	return nil
}
