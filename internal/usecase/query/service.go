// Package query answers questions over the indexed corpus: retrieval
// augmented generation, batch answering, caller-supplied context answering
// and lightweight query analysis.
package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/domain/hit"
	"github.com/ragpipe/ragpipe/internal/textproc"
)

const (
	// DefaultTopK is the retrieval depth used when the caller does not ask
	// for a specific one.
	DefaultTopK = 5
	// MaxTopK caps the retrieval depth a single request may ask for.
	MaxTopK = 100

	// sourcePreviewLen is the number of characters of chunk content echoed
	// back in the answer's source list.
	sourcePreviewLen = 200

	noHitsResponse = "I couldn't find any relevant information to answer your question."
)

// Source is one retrieved chunk attached to an answer, content truncated
// to a preview.
type Source struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	ChunkID string  `json:"chunk_id"`
}

// Answer is the result of answering a single query.
type Answer struct {
	Success     bool     `json:"success"`
	Response    string   `json:"response,omitempty"`
	Query       string   `json:"query"`
	Sources     []Source `json:"sources,omitempty"`
	NumSources  int      `json:"num_sources"`
	AvgScore    float64  `json:"avg_score"`
	TokensUsed  int      `json:"tokens_used,omitempty"`
	ContextUsed string   `json:"context_used,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Intent is a keyword-rule classification of a query.
type Intent struct {
	IsQuestion        bool `json:"is_question"`
	IsDefinition      bool `json:"is_definition"`
	IsExplanation     bool `json:"is_explanation"`
	IsComparison      bool `json:"is_comparison"`
	IsExample         bool `json:"is_example"`
	QueryLength       int  `json:"query_length"`
	HasTechnicalTerms bool `json:"has_technical_terms"`
}

// Config tunes answer generation.
type Config struct {
	MaxTokens   int
	Temperature float32
}

// Service answers queries against the vector index.
type Service struct {
	searcher  Searcher
	embedder  Embedder
	generator Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates the query service.
func New(searcher Searcher, embedder Embedder, generator Generator, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		searcher:  searcher,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Query retrieves the topK most similar chunks and generates an answer
// grounded in them. A query with no relevant chunks yields a non-success
// answer with a fixed response instead of an error.
func (s *Service) Query(ctx context.Context, query string, topK int) (Answer, error) {
	query = textproc.Clean(query)
	if query == "" {
		return Answer{}, fmt.Errorf("empty query: %w", domain.ErrInvalidRequest)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return Answer{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.searcher.Search(ctx, emb.Embedding, topK, "")
	if err != nil {
		return Answer{}, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		s.logger.Info("no relevant chunks for query", zap.String("query", query))
		return Answer{
			Success:  false,
			Response: noHitsResponse,
			Query:    query,
			Sources:  []Source{},
		}, nil
	}

	gen, err := s.generator.Generate(ctx, domain.GenerateRequest{
		Prompt:      buildRAGPrompt(query, hits),
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Info("answered query",
		zap.String("query", query),
		zap.Int("num_sources", len(hits)),
		zap.Int("tokens_used", gen.TotalTokens))

	return Answer{
		Success:    true,
		Response:   gen.Text,
		Query:      query,
		Sources:    sourcesOf(hits),
		NumSources: len(hits),
		AvgScore:   avgScore(hits),
		TokensUsed: gen.TotalTokens,
	}, nil
}

// BatchQuery answers each query independently. A failing query is reported
// inside its answer; the batch itself never fails.
func (s *Service) BatchQuery(ctx context.Context, queries []string, topK int) []Answer {
	answers := make([]Answer, 0, len(queries))
	for _, q := range queries {
		answer, err := s.Query(ctx, q, topK)
		if err != nil {
			s.logger.Warn("batch query item failed", zap.String("query", q), zap.Error(err))
			answer = Answer{Success: false, Query: q, Error: err.Error()}
		}
		answers = append(answers, answer)
	}
	return answers
}

// QueryWithContext answers a query enriched with caller-supplied context.
// The context is prepended to the question and the combined text runs the
// normal retrieval path; the context used is echoed back.
func (s *Service) QueryWithContext(ctx context.Context, query, contextText string, topK int) (Answer, error) {
	if textproc.Clean(query) == "" {
		return Answer{}, fmt.Errorf("empty query: %w", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(contextText) == "" {
		return Answer{}, fmt.Errorf("empty context: %w", domain.ErrInvalidRequest)
	}

	enhanced := fmt.Sprintf("Context: %s\n\nQuestion: %s", contextText, query)
	answer, err := s.Query(ctx, enhanced, topK)
	if err != nil {
		return Answer{}, err
	}
	answer.ContextUsed = contextText
	return answer, nil
}

var suggestionTemplates = []string{
	"What is %s?",
	"Explain %s",
	"How does %s work?",
	"Tell me about %s",
	"Examples of %s",
}

// Suggestions expands a partial query into up to max suggested questions.
func (s *Service) Suggestions(partial string, max int) []string {
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return []string{}
	}
	if max <= 0 || max > len(suggestionTemplates) {
		max = len(suggestionTemplates)
	}

	out := make([]string, 0, max)
	for _, tmpl := range suggestionTemplates[:max] {
		out = append(out, fmt.Sprintf(tmpl, partial))
	}
	return out
}

var (
	questionWords  = []string{"what", "how", "why", "when", "where", "who"}
	technicalTerms = []string{"api", "function", "method", "class", "algorithm"}
)

// AnalyzeIntent classifies a query with keyword rules. Purely lexical, no
// model call involved.
func (s *Service) AnalyzeIntent(query string) Intent {
	lower := strings.ToLower(query)

	intent := Intent{
		IsDefinition:  containsAny(lower, "what is", "define", "definition"),
		IsExplanation: containsAny(lower, "explain", "how does", "tell me about"),
		IsComparison:  containsAny(lower, "compare", "difference", "vs", "versus"),
		IsExample:     containsAny(lower, "example", "instance", "case"),
		QueryLength:   len(strings.Fields(query)),
	}
	intent.IsQuestion = strings.Contains(lower, "?") || containsAny(lower, questionWords...)
	intent.HasTechnicalTerms = containsAny(lower, technicalTerms...)

	return intent
}

// buildRAGPrompt frames retrieved chunks and the question for the LLM.
func buildRAGPrompt(query string, hits []hit.Hit) string {
	parts := make([]string, 0, len(hits))
	for i := range hits {
		parts = append(parts, hits[i].Content())
	}

	return fmt.Sprintf(
		"Context: %s\n\nQuestion: %s\n\nPlease answer the question based on the provided context. "+
			"If the context doesn't contain enough information to answer the question, please say so.",
		strings.Join(parts, "\n\n"), query)
}

func sourcesOf(hits []hit.Hit) []Source {
	out := make([]Source, 0, len(hits))
	for i := range hits {
		h := &hits[i]
		out = append(out, Source{
			Content: preview(h.Content()),
			Source:  h.Source(),
			Score:   h.Score(),
			ChunkID: h.ChunkID(),
		})
	}
	return out
}

func preview(content string) string {
	if len(content) <= sourcePreviewLen {
		return content
	}
	return content[:sourcePreviewLen] + "..."
}

func avgScore(hits []hit.Hit) float64 {
	if len(hits) == 0 {
		return 0
	}
	var sum float64
	for i := range hits {
		sum += hits[i].Score()
	}
	return sum / float64(len(hits))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
