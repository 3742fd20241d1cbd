package ingest

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/domain/chunk"
	"github.com/ragpipe/ragpipe/internal/metrics"
	"github.com/ragpipe/ragpipe/internal/textproc"
)

func TestMain(m *testing.M) {
	metrics.RegisterIngestMetrics()
	os.Exit(m.Run())
}

type mockLoader struct {
	loadFn      func(path string) (string, error)
	directoryFn func(root string) ([]string, error)
}

func (m *mockLoader) Load(path string) (string, error) {
	return m.loadFn(path)
}

func (m *mockLoader) Directory(root string) ([]string, error) {
	return m.directoryFn(root)
}

type mockRepo struct {
	insertFn func(ctx context.Context, chunks []chunk.Chunk) error
	removeFn func(ctx context.Context, source string) (int, error)
	countFn  func(ctx context.Context) (int, error)
	resetFn  func(ctx context.Context) error
}

func (m *mockRepo) Insert(ctx context.Context, chunks []chunk.Chunk) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, chunks)
	}
	return nil
}

func (m *mockRepo) RemoveSource(ctx context.Context, source string) (int, error) {
	return m.removeFn(ctx, source)
}

func (m *mockRepo) Count(ctx context.Context) (int, error) {
	return m.countFn(ctx)
}

func (m *mockRepo) Reset(ctx context.Context) error {
	return m.resetFn(ctx)
}

type mockEmbedder struct {
	calls int
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

func testService(loader *mockLoader, embedder domain.Embedder, repo *mockRepo) *Service {
	if embedder == nil {
		embedder = &mockEmbedder{}
	}
	if repo == nil {
		repo = &mockRepo{}
	}
	cfg := Config{
		IndexName: "chunks",
		Settings: Settings{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			MaxTokens:    500,
			Temperature:  0.7,
			VectorDim:    1536,
		},
	}
	return New(loader, textproc.NewSplitter(1000, 200), embedder, repo, cfg, zap.NewNop())
}

func TestIngestFiles_Success(t *testing.T) {
	loader := &mockLoader{loadFn: func(path string) (string, error) {
		return "Some document text about vector search.", nil
	}}

	var inserted []chunk.Chunk
	repo := &mockRepo{insertFn: func(_ context.Context, chunks []chunk.Chunk) error {
		inserted = chunks
		return nil
	}}

	report := testService(loader, nil, repo).IngestFiles(
		context.Background(), []string{"/data/doc.txt"}, nil)

	if report.TotalFiles != 1 || report.Successful != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}

	result := report.Results[0]
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.Source != "doc.txt" {
		t.Errorf("expected source from base name, got %q", result.Source)
	}
	if result.TotalChunks != 1 || len(inserted) != 1 {
		t.Errorf("expected 1 chunk, got %d inserted", len(inserted))
	}
	if result.Metadata["source"] != "doc.txt" {
		t.Errorf("unexpected metadata: %v", result.Metadata)
	}

	c := inserted[0]
	if !strings.HasPrefix(c.ID(), "doc.txt_0_") {
		t.Errorf("unexpected chunk id: %q", c.ID())
	}
	if len(c.Embedding()) != 2 {
		t.Errorf("expected embedding attached, got %v", c.Embedding())
	}
}

func TestIngestFiles_SourceNameOverride(t *testing.T) {
	loader := &mockLoader{loadFn: func(_ string) (string, error) {
		return "text", nil
	}}
	repo := &mockRepo{}

	report := testService(loader, nil, repo).IngestFiles(
		context.Background(), []string{"/data/a.txt", "/data/b.txt"}, []string{"custom-name"})

	if report.Results[0].Source != "custom-name" {
		t.Errorf("expected override, got %q", report.Results[0].Source)
	}
	if report.Results[1].Source != "b.txt" {
		t.Errorf("expected base name fallback, got %q", report.Results[1].Source)
	}
}

func TestIngestFiles_PartialFailure(t *testing.T) {
	loader := &mockLoader{loadFn: func(path string) (string, error) {
		if strings.HasSuffix(path, "bad.txt") {
			return "", errors.New("permission denied")
		}
		return "good content", nil
	}}

	report := testService(loader, nil, &mockRepo{}).IngestFiles(
		context.Background(), []string{"/data/good.txt", "/data/bad.txt"}, nil)

	if report.Successful != 1 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	failed := report.Results[1]
	if failed.Success || failed.Error == "" {
		t.Errorf("expected failure with error message, got %+v", failed)
	}
	if failed.FilePath != "/data/bad.txt" {
		t.Errorf("unexpected file path: %q", failed.FilePath)
	}
}

func TestIngestFiles_EmptyDocument(t *testing.T) {
	loader := &mockLoader{loadFn: func(_ string) (string, error) {
		return "   \n\t  ", nil
	}}

	report := testService(loader, nil, &mockRepo{}).IngestFiles(
		context.Background(), []string{"/data/empty.txt"}, nil)

	if report.Failed != 1 {
		t.Fatalf("expected failure, got %+v", report)
	}
	if !strings.Contains(report.Results[0].Error, "no text") {
		t.Errorf("unexpected error: %q", report.Results[0].Error)
	}
}

func TestIngestFiles_EmbedError(t *testing.T) {
	loader := &mockLoader{loadFn: func(_ string) (string, error) {
		return "content", nil
	}}
	embedder := &mockEmbedder{err: domain.ErrEmbeddingProviderError}

	report := testService(loader, embedder, &mockRepo{}).IngestFiles(
		context.Background(), []string{"/data/doc.txt"}, nil)

	if report.Failed != 1 {
		t.Fatalf("expected failure, got %+v", report)
	}
	if !strings.Contains(report.Results[0].Error, "embed") {
		t.Errorf("unexpected error: %q", report.Results[0].Error)
	}
}

func TestIngestDirectory(t *testing.T) {
	loader := &mockLoader{
		directoryFn: func(root string) ([]string, error) {
			if root != "/data" {
				t.Errorf("unexpected root: %q", root)
			}
			return []string{"/data/a.txt", "/data/b.txt"}, nil
		},
		loadFn: func(_ string) (string, error) {
			return "content", nil
		},
	}

	report, err := testService(loader, nil, &mockRepo{}).IngestDirectory(context.Background(), "/data")
	if err != nil {
		t.Fatalf("IngestDirectory failed: %v", err)
	}
	if report.TotalFiles != 2 || report.Successful != 2 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestIngestDirectory_ScanError(t *testing.T) {
	loader := &mockLoader{directoryFn: func(_ string) ([]string, error) {
		return nil, errors.New("no such directory")
	}}

	if _, err := testService(loader, nil, &mockRepo{}).IngestDirectory(context.Background(), "/missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoveSource(t *testing.T) {
	repo := &mockRepo{removeFn: func(_ context.Context, source string) (int, error) {
		if source != "doc.txt" {
			t.Errorf("unexpected source: %q", source)
		}
		return 7, nil
	}}

	result, err := testService(nil, nil, repo).RemoveSource(context.Background(), "doc.txt")
	if err != nil {
		t.Fatalf("RemoveSource failed: %v", err)
	}
	if result.Source != "doc.txt" || result.Deleted != 7 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestRemoveSource_Validation(t *testing.T) {
	svc := testService(nil, nil, &mockRepo{})
	if _, err := svc.RemoveSource(context.Background(), ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRemoveSource_NotFound(t *testing.T) {
	repo := &mockRepo{removeFn: func(_ context.Context, _ string) (int, error) {
		return 0, domain.ErrSourceNotFound
	}}

	if _, err := testService(nil, nil, repo).RemoveSource(context.Background(), "ghost.txt"); !errors.Is(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	repo := &mockRepo{countFn: func(_ context.Context) (int, error) {
		return 42, nil
	}}

	stats, err := testService(nil, nil, repo).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.VectorStore.TotalDocuments != 42 {
		t.Errorf("expected 42 documents, got %d", stats.VectorStore.TotalDocuments)
	}
	if stats.VectorStore.IndexName != "chunks" {
		t.Errorf("unexpected index name: %q", stats.VectorStore.IndexName)
	}
	if stats.PipelineStatus != "active" {
		t.Errorf("unexpected status: %q", stats.PipelineStatus)
	}
	if stats.Settings.ChunkSize != 1000 || stats.Settings.VectorDim != 1536 {
		t.Errorf("unexpected settings: %+v", stats.Settings)
	}
}

func TestReset(t *testing.T) {
	called := false
	repo := &mockRepo{resetFn: func(_ context.Context) error {
		called = true
		return nil
	}}

	if err := testService(nil, nil, repo).Reset(context.Background()); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if !called {
		t.Error("expected repo reset call")
	}
}
