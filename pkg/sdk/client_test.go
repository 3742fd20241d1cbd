package ragpipe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestServer returns a client pointed at a stub handler.
func newTestServer(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeStub(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode stub response: %v", err)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "://nope", "localhost:8000"} {
		if _, err := New(base); err == nil {
			t.Errorf("New(%q): expected error", base)
		}
	}
}

func TestQuery(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/query" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["question"] != "what is x?" || req["top_k"] != float64(3) {
			t.Errorf("unexpected request body: %v", req)
		}
		if _, ok := req["agent_type"]; ok {
			t.Errorf("agent_type should be omitted for plain queries")
		}
		writeStub(t, w, http.StatusOK, Answer{
			Success:    true,
			Response:   "x is a thing",
			Query:      "what is x?",
			Sources:    []Source{{Content: "x...", Source: "doc.txt", Score: 0.9, ChunkID: "doc.txt_0_ab"}},
			NumSources: 1,
			AvgScore:   0.9,
			TokensUsed: 12,
		})
	}, WithAPIKey("sk-test"))

	answer, err := c.Query(context.Background(), "what is x?", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !answer.Success || answer.Response != "x is a thing" {
		t.Errorf("unexpected answer: %+v", answer)
	}
	if len(answer.Sources) != 1 || answer.Sources[0].Source != "doc.txt" {
		t.Errorf("unexpected sources: %+v", answer.Sources)
	}
}

func TestQueryAgent(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["agent_type"] != "react" {
			t.Errorf("agent_type = %v, want react", req["agent_type"])
		}
		writeStub(t, w, http.StatusOK, AgentResult{
			Success:    true,
			Response:   "done",
			Query:      "find x",
			Iterations: 2,
			Steps:      []AgentStep{{Action: "search", ActionInput: "x"}},
		})
	})

	result, err := c.QueryAgent(context.Background(), "find x")
	if err != nil {
		t.Fatalf("QueryAgent: %v", err)
	}
	if result.Iterations != 2 || len(result.Steps) != 1 || result.Steps[0].Action != "search" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestBatchQuery(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query/batch" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeStub(t, w, http.StatusOK, batchQueryResponse{
			TotalQueries: 2,
			Results: []Answer{
				{Success: true, Query: "a"},
				{Success: false, Query: "b", Error: "llm provider error"},
			},
		})
	})

	answers, err := c.BatchQuery(context.Background(), []string{"a", "b"}, 0)
	if err != nil {
		t.Fatalf("BatchQuery: %v", err)
	}
	if len(answers) != 2 || answers[1].Error == "" {
		t.Errorf("unexpected answers: %+v", answers)
	}
}

func TestQueryWithContext(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/query/with-context" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["context"] != "x is a thing" || req["top_k"] != float64(3) {
			t.Errorf("unexpected request body: %v", req)
		}
		writeStub(t, w, http.StatusOK, Answer{Success: true, ContextUsed: "x is a thing"})
	})

	answer, err := c.QueryWithContext(context.Background(), "what is x", "x is a thing", 3)
	if err != nil {
		t.Fatalf("QueryWithContext: %v", err)
	}
	if answer.ContextUsed != "x is a thing" {
		t.Errorf("ContextUsed = %q", answer.ContextUsed)
	}
}

func TestSuggestions(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/suggestions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("partial_query") != "redis" || r.URL.Query().Get("max_suggestions") != "2" {
			t.Errorf("query = %v", r.URL.Query())
		}
		writeStub(t, w, http.StatusOK, suggestionsResponse{
			Query:       "redis",
			Suggestions: []string{"What is redis?", "Explain redis"},
		})
	})

	got, err := c.Suggestions(context.Background(), "redis", 2)
	if err != nil {
		t.Fatalf("Suggestions: %v", err)
	}
	if len(got) != 2 || got[0] != "What is redis?" {
		t.Errorf("unexpected suggestions: %v", got)
	}
}

func TestAnalyzeQuery(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(t, w, http.StatusOK, analyzeResponse{
			Query:  "what is an api?",
			Intent: Intent{IsQuestion: true, IsDefinition: true, QueryLength: 4, HasTechnicalTerms: true},
		})
	})

	intent, err := c.AnalyzeQuery(context.Background(), "what is an api?")
	if err != nil {
		t.Fatalf("AnalyzeQuery: %v", err)
	}
	if !intent.IsQuestion || !intent.IsDefinition || !intent.HasTechnicalTerms {
		t.Errorf("unexpected intent: %+v", intent)
	}
}

func TestIngestFiles(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest/files" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req ingestFilesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.FilePaths) != 1 || req.FilePaths[0] != "/data/doc.txt" {
			t.Errorf("file_paths = %v", req.FilePaths)
		}
		writeStub(t, w, http.StatusOK, IngestReport{
			TotalFiles: 1, Successful: 1,
			Results: []FileResult{{Success: true, Source: "doc.txt", TotalChunks: 3, FilePath: "/data/doc.txt"}},
		})
	})

	report, err := c.IngestFiles(context.Background(), []string{"/data/doc.txt"}, nil)
	if err != nil {
		t.Fatalf("IngestFiles: %v", err)
	}
	if report.Successful != 1 || report.Results[0].TotalChunks != 3 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestUpload(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ingest/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		files := r.MultipartForm.File["files"]
		if len(files) != 1 || files[0].Filename != "notes.txt" {
			t.Fatalf("unexpected files: %v", files)
		}
		f, err := files[0].Open()
		if err != nil {
			t.Fatalf("open part: %v", err)
		}
		defer f.Close()
		buf := make([]byte, 64)
		n, _ := f.Read(buf)
		if string(buf[:n]) != "hello world" {
			t.Errorf("content = %q", buf[:n])
		}
		writeStub(t, w, http.StatusOK, IngestReport{TotalFiles: 1, Successful: 1})
	})

	report, err := c.Upload(context.Background(), []UploadFile{
		{Name: "notes.txt", Reader: strings.NewReader("hello world")},
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if report.Successful != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestUpload_NoFiles(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called")
	})
	if _, err := c.Upload(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoveSource_EscapesPath(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.EscapedPath() != "/sources/my%20notes.txt" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		writeStub(t, w, http.StatusOK, RemoveResult{Source: "my notes.txt", Deleted: 4})
	})

	result, err := c.RemoveSource(context.Background(), "my notes.txt")
	if err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
	if result.Deleted != 4 {
		t.Errorf("Deleted = %d, want 4", result.Deleted)
	}
}

func TestReset(t *testing.T) {
	called := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		if r.Method != http.MethodPost || r.URL.Path != "/reset" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		writeStub(t, w, http.StatusOK, map[string]any{"success": true})
	})

	if err := c.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if !called {
		t.Error("server not called")
	}
}

func TestStats(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(t, w, http.StatusOK, Stats{
			VectorStore:    VectorStoreStats{TotalDocuments: 42, IndexName: "chunks"},
			PipelineStatus: "active",
			Settings:       Settings{ChunkSize: 1000, ChunkOverlap: 200, VectorDim: 1536},
		})
	})

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.VectorStore.TotalDocuments != 42 || stats.PipelineStatus != "active" {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHealth_DegradedIsNotAnError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeStub(t, w, http.StatusServiceUnavailable, HealthReport{
			Status: "degraded",
			Components: map[string]HealthComponent{
				"vectorstore": {Status: "error", Error: "connection refused"},
				"llm":         {Status: "ok"},
			},
		})
	})

	report, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if report.Status != "degraded" {
		t.Errorf("Status = %q, want degraded", report.Status)
	}
	if report.Components["vectorstore"].Error != "connection refused" {
		t.Errorf("unexpected components: %+v", report.Components)
	}
}

func TestPing(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		writeStub(t, w, http.StatusOK, ServiceInfo{Service: "ragpipe", Version: "dev", Status: "running"})
	})

	info, err := c.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if info.Service != "ragpipe" || info.Status != "running" {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestAPIError_SentinelMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     string
		sentinel error
	}{
		{"not found", http.StatusNotFound, "source_not_found", ErrSourceNotFound},
		{"validation", http.StatusBadRequest, "validation_failed", ErrInvalidRequest},
		{"unauthorized", http.StatusUnauthorized, "unauthorized", ErrUnauthorized},
		{"llm", http.StatusBadGateway, "llm_provider_error", ErrLLMProvider},
		{"store", http.StatusServiceUnavailable, "store_unavailable", ErrStoreUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeStub(t, w, tt.status, map[string]string{
					"code":    tt.code,
					"message": "boom",
				})
			})

			_, err := c.Stats(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Code != tt.code {
				t.Errorf("unexpected APIError: %+v", apiErr)
			}
		})
	}
}

func TestAPIError_NonJSONBody(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	})

	_, err := c.Stats(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Code != "unknown" || apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}
