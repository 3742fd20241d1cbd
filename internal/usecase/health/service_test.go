package health

import (
	"context"
	"errors"
	"testing"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockCounter struct {
	count int
	err   error
}

func (m *mockCounter) Count(_ context.Context) (int, error) { return m.count, m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockPinger{}, &mockCounter{count: 42}, &mockChecker{}, &mockChecker{}, 1536)
	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("expected %s, got %s", Healthy, report.Status)
	}
	if len(report.Components) != 3 {
		t.Fatalf("expected 3 components, got %d", len(report.Components))
	}

	vs := report.Components["vectorstore"]
	if vs.Status != CheckOK || vs.TotalDocuments == nil || *vs.TotalDocuments != 42 {
		t.Errorf("unexpected vectorstore component: %+v", vs)
	}
	emb := report.Components["embeddings"]
	if emb.Status != CheckOK || emb.EmbeddingDim != 1536 {
		t.Errorf("unexpected embeddings component: %+v", emb)
	}
	if report.Components["llm"].Status != CheckOK {
		t.Errorf("unexpected llm component: %+v", report.Components["llm"])
	}
}

func TestCheck_StoreDown(t *testing.T) {
	svc := New(&mockPinger{err: errors.New("connection refused")}, &mockCounter{}, &mockChecker{}, nil, 1536)
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("expected %s, got %s", Degraded, report.Status)
	}
	vs := report.Components["vectorstore"]
	if vs.Status != CheckError || vs.Error != "connection refused" {
		t.Errorf("unexpected vectorstore component: %+v", vs)
	}
}

func TestCheck_CountError(t *testing.T) {
	svc := New(&mockPinger{}, &mockCounter{err: errors.New("index gone")}, nil, nil, 0)
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("expected %s, got %s", Degraded, report.Status)
	}
	if report.Components["vectorstore"].Error != "index gone" {
		t.Errorf("unexpected component: %+v", report.Components["vectorstore"])
	}
}

func TestCheck_EmbeddingDown(t *testing.T) {
	svc := New(&mockPinger{}, &mockCounter{}, &mockChecker{err: errors.New("quota exceeded")}, nil, 1536)
	report := svc.Check(context.Background())

	if report.Status != Degraded {
		t.Errorf("expected %s, got %s", Degraded, report.Status)
	}
	emb := report.Components["embeddings"]
	if emb.Status != CheckError || emb.Error != "quota exceeded" {
		t.Errorf("unexpected embeddings component: %+v", emb)
	}
	if emb.EmbeddingDim != 0 {
		t.Errorf("expected no dimension on failing check, got %d", emb.EmbeddingDim)
	}
}

func TestCheck_OptionalCheckersSkipped(t *testing.T) {
	svc := New(&mockPinger{}, nil, nil, nil, 0)
	report := svc.Check(context.Background())

	if report.Status != Healthy {
		t.Errorf("expected %s, got %s", Healthy, report.Status)
	}
	if len(report.Components) != 1 {
		t.Errorf("expected only vectorstore, got %v", report.Components)
	}
	if report.Components["vectorstore"].TotalDocuments != nil {
		t.Error("expected no document count without a counter")
	}
}
