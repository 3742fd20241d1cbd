// Package chi implements the REST API over the query, agent, ingest and
// health services.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/loader"
	agentuc "github.com/ragpipe/ragpipe/internal/usecase/agent"
	healthuc "github.com/ragpipe/ragpipe/internal/usecase/health"
	ingestuc "github.com/ragpipe/ragpipe/internal/usecase/ingest"
	queryuc "github.com/ragpipe/ragpipe/internal/usecase/query"
	"github.com/ragpipe/ragpipe/internal/version"
)

// maxUploadSize bounds multipart uploads.
const maxUploadSize = 100 << 20 // 100MB

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the pipeline over HTTP.
type Server struct {
	query         *queryuc.Service
	agent         *agentuc.Service
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	uploadDir     string
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. uploadDir receives multipart
// uploads; empty means the OS temp dir.
func NewServer(
	query *queryuc.Service,
	agent *agentuc.Service,
	ingest *ingestuc.Service,
	health *healthuc.Service,
	uploadDir string,
	logger *zap.Logger,
) *Server {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	s := &Server{
		query:     query,
		agent:     agent,
		ingest:    ingest,
		health:    health,
		uploadDir: uploadDir,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, "validation_failed"),
		sentinelHandler(domain.ErrSourceNotFound, http.StatusNotFound, "source_not_found"),
		sentinelHandler(domain.ErrUnsupportedFileType, http.StatusBadRequest, "unsupported_file_type"),
		sentinelHandler(domain.ErrEmptyDocument, http.StatusBadRequest, "empty_document"),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, "embedding_provider_error"),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, "llm_provider_error"),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, "store_unavailable"),
	}
	return s
}

// Routes mounts every endpoint on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/query", s.handleQuery)
	r.Post("/query/batch", s.handleBatchQuery)
	r.Post("/query/with-context", s.handleQueryWithContext)
	r.Get("/suggestions", s.handleSuggestions)
	r.Post("/analyze-query", s.handleAnalyzeQuery)

	r.Post("/ingest/files", s.handleIngestFiles)
	r.Post("/ingest/upload", s.handleIngestUpload)
	r.Post("/ingest/directory", s.handleIngestDirectory)

	r.Delete("/sources/{source}", s.handleRemoveSource)
	r.Post("/reset", s.handleReset)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "ragpipe",
		"version": version.Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.ingest.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type queryRequest struct {
	Question       string `json:"question"`
	TopK           int    `json:"top_k"`
	IncludeSources *bool  `json:"include_sources"` // nil means true
	AgentType      string `json:"agent_type"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	switch req.AgentType {
	case "", "rag":
		answer, err := s.query.Query(r.Context(), req.Question, req.TopK)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		if req.IncludeSources != nil && !*req.IncludeSources {
			answer.Sources = nil
		}
		writeJSON(w, http.StatusOK, answer)
	case "react":
		result, err := s.agent.Run(r.Context(), req.Question)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	default:
		writeError(w, http.StatusBadRequest, "validation_failed",
			fmt.Sprintf("agent_type must be rag or react, got %q", req.AgentType))
	}
}

type batchQueryRequest struct {
	Questions []string `json:"questions"`
	TopK      int      `json:"top_k"`
}

type batchQueryResponse struct {
	TotalQueries int              `json:"total_queries"`
	Results      []queryuc.Answer `json:"results"`
}

func (s *Server) handleBatchQuery(w http.ResponseWriter, r *http.Request) {
	var req batchQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "questions is required")
		return
	}

	results := s.query.BatchQuery(r.Context(), req.Questions, req.TopK)
	writeJSON(w, http.StatusOK, batchQueryResponse{TotalQueries: len(results), Results: results})
}

type contextQueryRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
	TopK     int    `json:"top_k"`
}

func (s *Server) handleQueryWithContext(w http.ResponseWriter, r *http.Request) {
	var req contextQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	answer, err := s.query.QueryWithContext(r.Context(), req.Question, req.Context, req.TopK)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

type suggestionsResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("partial_query")
	if q == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "partial_query parameter is required")
		return
	}

	max := 0
	if raw := r.URL.Query().Get("max_suggestions"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "max_suggestions must be an integer")
			return
		}
		max = v
	}

	writeJSON(w, http.StatusOK, suggestionsResponse{
		Query:       q,
		Suggestions: s.query.Suggestions(q, max),
	})
}

type analyzeRequest struct {
	Query string `json:"query"`
}

type analyzeResponse struct {
	Query  string        `json:"query"`
	Intent queryuc.Intent `json:"intent"`
}

func (s *Server) handleAnalyzeQuery(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Query:  req.Query,
		Intent: s.query.AnalyzeIntent(req.Query),
	})
}

type ingestFilesRequest struct {
	FilePaths   []string `json:"file_paths"`
	SourceNames []string `json:"source_names"`
}

func (s *Server) handleIngestFiles(w http.ResponseWriter, r *http.Request) {
	var req ingestFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if len(req.FilePaths) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "file_paths is required")
		return
	}

	report := s.ingest.IngestFiles(r.Context(), req.FilePaths, req.SourceNames)
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleIngestUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "at least one file is required")
		return
	}

	paths := make([]string, 0, len(files))
	names := make([]string, 0, len(files))
	for _, fh := range files {
		if !loader.Supported(fh.Filename) {
			writeError(w, http.StatusBadRequest, "unsupported_file_type",
				fmt.Sprintf("unsupported file type: %s", fh.Filename))
			return
		}
		path, err := s.saveUpload(fh)
		if err != nil {
			s.logger.Error("save upload failed", zap.String("file", fh.Filename), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to save upload")
			return
		}
		paths = append(paths, path)
		names = append(names, filepath.Base(fh.Filename))
	}
	defer func() {
		for _, p := range paths {
			_ = os.Remove(p)
		}
	}()

	report := s.ingest.IngestFiles(r.Context(), paths, names)
	writeJSON(w, http.StatusOK, report)
}

// saveUpload spools one multipart file to the upload dir, keeping the
// extension so the loader can dispatch on it.
func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.CreateTemp(s.uploadDir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	return dst.Name(), nil
}

type ingestDirectoryRequest struct {
	DirectoryPath string `json:"directory_path"`
}

func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	var req ingestDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.DirectoryPath == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "directory_path is required")
		return
	}

	report, err := s.ingest.IngestDirectory(r.Context(), req.DirectoryPath)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	result, err := s.ingest.RemoveSource(r.Context(), source)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Reset(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "index reset, all documents removed",
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrSourceNotFound,
		domain.ErrUnsupportedFileType,
		domain.ErrEmptyDocument,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
