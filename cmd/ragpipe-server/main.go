package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/app"
	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/loader"
	logpkg "github.com/ragpipe/ragpipe/internal/logger"
	"github.com/ragpipe/ragpipe/internal/metrics"
	"github.com/ragpipe/ragpipe/internal/repository/chunks"
	"github.com/ragpipe/ragpipe/internal/textproc"
	chiTransport "github.com/ragpipe/ragpipe/internal/transport/chi"
	agentuc "github.com/ragpipe/ragpipe/internal/usecase/agent"
	healthuc "github.com/ragpipe/ragpipe/internal/usecase/health"
	ingestuc "github.com/ragpipe/ragpipe/internal/usecase/ingest"
	queryuc "github.com/ragpipe/ragpipe/internal/usecase/query"
	"github.com/ragpipe/ragpipe/internal/version"
)

func main() {
	// Local development keeps provider keys in .env.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragpipe API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("store_driver", cfg.Store.Driver),
	)

	st, err := app.BuildStore(cfg)
	if err != nil {
		logger.Fatal("Failed to create vector store", zap.Error(err))
	}
	defer st.Close()

	ctx := context.Background()
	if err := st.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Vector store not ready", zap.Error(err))
	}
	if err := st.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	logger.Info("Connected to vector store")

	// Register domain metrics explicitly (HTTP middleware uses init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterIngestMetrics()

	embedder, err := app.BuildEmbedder(ctx, cfg, st, logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	generator, err := app.BuildGenerator(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}
	logger.Info("Providers created",
		zap.String("embedding", cfg.Embedding.Provider+"/"+cfg.Embedding.Model),
		zap.String("llm", cfg.LLM.Provider+"/"+cfg.LLM.Model),
	)

	repo := chunks.New(st)
	splitter := textproc.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	docLoader := loader.New(loader.DefaultMaxFileSize)

	genCfg := queryuc.Config{MaxTokens: cfg.LLM.MaxTokens, Temperature: cfg.LLM.Temperature}

	querySvc := queryuc.New(repo, embedder, generator, genCfg, logger)
	agentSvc := agentuc.New(repo, embedder, generator, agentuc.Config(genCfg), logger)
	ingestSvc := ingestuc.New(docLoader, splitter, embedder, repo, ingestuc.Config{
		IndexName: cfg.Store.IndexName,
		Settings: ingestuc.Settings{
			ChunkSize:    cfg.Chunking.ChunkSize,
			ChunkOverlap: cfg.Chunking.ChunkOverlap,
			MaxTokens:    cfg.LLM.MaxTokens,
			Temperature:  cfg.LLM.Temperature,
			VectorDim:    cfg.Store.VectorDim,
		},
	}, logger)
	healthSvc := healthuc.New(
		st, repo,
		app.HealthChecker(embedder), app.HealthChecker(generator),
		cfg.Store.VectorDim,
	)

	server := chiTransport.NewServer(querySvc, agentSvc, ingestSvc, healthSvc, "", logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	r.Mount("/", server.Routes())

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			reqLogger := logger.With(zap.String("request_id", requestID))
			next.ServeHTTP(ww, r.WithContext(logpkg.ContextWithLogger(r.Context(), reqLogger)))

			reqLogger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}
