// Command ragpipe drives the ingestion and query pipeline from the shell.
// It wires the same services as the API server and talks to the vector
// store and model providers directly.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	wiring "github.com/ragpipe/ragpipe/internal/app"
	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/loader"
	logpkg "github.com/ragpipe/ragpipe/internal/logger"
	"github.com/ragpipe/ragpipe/internal/metrics"
	"github.com/ragpipe/ragpipe/internal/repository/chunks"
	"github.com/ragpipe/ragpipe/internal/textproc"
	agentuc "github.com/ragpipe/ragpipe/internal/usecase/agent"
	healthuc "github.com/ragpipe/ragpipe/internal/usecase/health"
	ingestuc "github.com/ragpipe/ragpipe/internal/usecase/ingest"
	queryuc "github.com/ragpipe/ragpipe/internal/usecase/query"
	"github.com/ragpipe/ragpipe/internal/version"
)

const usage = `ragpipe — retrieval augmented generation pipeline

Usage:
  ragpipe <command> [flags] [args]

Commands:
  health                      check pipeline component health
  ingest <file> [file...]     ingest documents
  ingest-dir <directory>      ingest every supported file under a directory
  query <question>            answer a question over the indexed corpus
  batch-query [question...]   answer several questions in one run
  suggestions <partial>       suggest questions for a partial query
  analyze <query>             classify query intent
  stats                       show index statistics
  remove-source <source>      remove every chunk of one source
  reset                       drop and recreate the index
  version                     print build info

Common flags (per command):
  -top-k N          retrieval depth (query)
  -agent-type TYPE  rag or react (query)
  -source NAME      source label override (ingest; repeat once per file)
  -input-file PATH  file with one query per line (batch-query)
  -max N            maximum suggestions (suggestions)
  -output PATH      write the JSON result to a file instead of stdout
  -yes              skip confirmation (reset)
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Local development keeps provider keys in .env.
	_ = godotenv.Load()

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "version" {
		fmt.Printf("ragpipe %s (%s, built %s)\n", version.Version, version.Commit, version.Date)
		return
	}

	app, cleanup, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx := context.Background()

	if err := app.run(ctx, cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired services for command dispatch.
type app struct {
	query  *queryuc.Service
	agent  *agentuc.Service
	ingest *ingestuc.Service
	health *healthuc.Service
	logger *zap.Logger
}

func buildApp() (*app, func(), error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	// The CLI prints results to stdout; keep operational logs quiet
	// unless the config asks for more.
	level := cfg.Logging.Level
	if level == "" {
		level = "warn"
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	st, err := wiring.BuildStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	ctx := context.Background()
	if err := st.WaitForReady(ctx, time.Duration(cfg.Store.ReadinessTimeout)*time.Second); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("store not ready: %w", err)
	}
	if err := st.EnsureIndex(ctx); err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("ensure index: %w", err)
	}

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterIngestMetrics()

	embedder, err := wiring.BuildEmbedder(ctx, cfg, st, logger)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("create embedder: %w", err)
	}
	generator, err := wiring.BuildGenerator(ctx, cfg, logger)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("create generator: %w", err)
	}

	repo := chunks.New(st)
	splitter := textproc.NewSplitter(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	docLoader := loader.New(loader.DefaultMaxFileSize)

	genCfg := queryuc.Config{MaxTokens: cfg.LLM.MaxTokens, Temperature: cfg.LLM.Temperature}

	a := &app{
		query:  queryuc.New(repo, embedder, generator, genCfg, logger),
		agent:  agentuc.New(repo, embedder, generator, agentuc.Config(genCfg), logger),
		health: healthuc.New(st, repo, wiring.HealthChecker(embedder), wiring.HealthChecker(generator), cfg.Store.VectorDim),
		logger: logger,
		ingest: ingestuc.New(docLoader, splitter, embedder, repo, ingestuc.Config{
			IndexName: cfg.Store.IndexName,
			Settings: ingestuc.Settings{
				ChunkSize:    cfg.Chunking.ChunkSize,
				ChunkOverlap: cfg.Chunking.ChunkOverlap,
				MaxTokens:    cfg.LLM.MaxTokens,
				Temperature:  cfg.LLM.Temperature,
				VectorDim:    cfg.Store.VectorDim,
			},
		}, logger),
	}

	cleanup := func() {
		_ = logger.Sync()
		st.Close()
	}
	return a, cleanup, nil
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "health":
		return a.cmdHealth(ctx, args)
	case "ingest":
		return a.cmdIngest(ctx, args)
	case "ingest-dir":
		return a.cmdIngestDir(ctx, args)
	case "query":
		return a.cmdQuery(ctx, args)
	case "batch-query":
		return a.cmdBatchQuery(ctx, args)
	case "suggestions":
		return a.cmdSuggestions(args)
	case "analyze":
		return a.cmdAnalyze(args)
	case "stats":
		return a.cmdStats(ctx, args)
	case "remove-source":
		return a.cmdRemoveSource(ctx, args)
	case "reset":
		return a.cmdReset(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func (a *app) cmdHealth(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	report := a.health.Check(ctx)
	if err := emit(report, *output); err != nil {
		return err
	}
	if report.Status != healthuc.Healthy {
		return fmt.Errorf("pipeline is %s", report.Status)
	}
	return nil
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func (a *app) cmdIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	var sources stringList
	fs.Var(&sources, "source", "source label override (repeat per file)")
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	paths := fs.Args()
	if len(paths) == 0 {
		return fmt.Errorf("at least one file is required")
	}
	if len(sources) > 0 && len(sources) != len(paths) {
		return fmt.Errorf("got %d -source labels for %d files", len(sources), len(paths))
	}

	report := a.ingest.IngestFiles(ctx, paths, sources)
	if err := emit(report, *output); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", report.Failed, report.TotalFiles)
	}
	return nil
}

func (a *app) cmdIngestDir(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest-dir", flag.ExitOnError)
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("exactly one directory is required")
	}

	report, err := a.ingest.IngestDirectory(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := emit(report, *output); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", report.Failed, report.TotalFiles)
	}
	return nil
}

func (a *app) cmdQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	topK := fs.Int("top-k", 0, "retrieval depth")
	agentType := fs.String("agent-type", "rag", "rag or react")
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	question := strings.Join(fs.Args(), " ")
	if question == "" {
		return fmt.Errorf("a question is required")
	}

	switch *agentType {
	case "rag":
		answer, err := a.query.Query(ctx, question, *topK)
		if err != nil {
			return err
		}
		return emit(answer, *output)
	case "react":
		result, err := a.agent.Run(ctx, question)
		if err != nil {
			return err
		}
		return emit(result, *output)
	default:
		return fmt.Errorf("agent-type must be rag or react, got %q", *agentType)
	}
}

func (a *app) cmdBatchQuery(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch-query", flag.ExitOnError)
	inputFile := fs.String("input-file", "", "file with one query per line")
	topK := fs.Int("top-k", 0, "retrieval depth")
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	queries := fs.Args()
	if *inputFile != "" {
		var err error
		queries, err = readQueries(*inputFile)
		if err != nil {
			return err
		}
	}
	if len(queries) == 0 {
		return fmt.Errorf("no queries provided; pass them as arguments or with -input-file")
	}

	answers := a.query.BatchQuery(ctx, queries, *topK)
	return emit(map[string]any{
		"total_queries": len(answers),
		"results":       answers,
	}, *output)
}

func (a *app) cmdSuggestions(args []string) error {
	fs := flag.NewFlagSet("suggestions", flag.ExitOnError)
	max := fs.Int("max", 0, "maximum suggestions")
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	partial := strings.Join(fs.Args(), " ")
	if partial == "" {
		return fmt.Errorf("a partial query is required")
	}

	return emit(map[string]any{
		"query":       partial,
		"suggestions": a.query.Suggestions(partial, *max),
	}, *output)
}

func (a *app) cmdAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	query := strings.Join(fs.Args(), " ")
	if query == "" {
		return fmt.Errorf("a query is required")
	}

	return emit(map[string]any{
		"query":  query,
		"intent": a.query.AnalyzeIntent(query),
	}, *output)
}

func (a *app) cmdStats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	stats, err := a.ingest.Stats(ctx)
	if err != nil {
		return err
	}
	return emit(stats, *output)
}

func (a *app) cmdRemoveSource(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("remove-source", flag.ExitOnError)
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("exactly one source is required")
	}

	result, err := a.ingest.RemoveSource(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return emit(result, *output)
}

func (a *app) cmdReset(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "skip confirmation")
	output := fs.String("output", "", "write result to file")
	_ = fs.Parse(args)

	if !*yes {
		return fmt.Errorf("reset drops every indexed document; re-run with -yes to confirm")
	}

	if err := a.ingest.Reset(ctx); err != nil {
		return err
	}
	return emit(map[string]any{
		"success": true,
		"message": "index reset, all documents removed",
	}, *output)
}

// readQueries loads one query per line, skipping blanks and # comments.
func readQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read queries: %w", err)
	}

	var queries []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, line)
	}
	return queries, nil
}

// emit prints v as indented JSON to stdout, or to a file when path is set.
func emit(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
