// Package agent implements a ReAct-style reasoning loop over the indexed
// corpus. The model interleaves thoughts with tool calls (document search,
// summarization) until it emits a final answer or the iteration budget runs
// out.
package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/textproc"
)

const (
	// maxIterations bounds the think/act loop.
	maxIterations = 5

	// searchTopK is the retrieval depth of the search tool.
	searchTopK = 5
	// searchPreviewLen caps each retrieved chunk in the observation.
	searchPreviewLen = 300

	noDocumentsObservation = "No relevant documents found."
	iterationLimitResponse = "Agent stopped due to iteration limit."
)

const promptTemplate = `Answer the following question as best you can. You have access to these tools:

search: Search the document index for relevant information. Input is a search query.
summarize: Summarize a piece of text. Input is the text to summarize.

Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the tool to use, one of [search, summarize]
Action Input: the input to the tool
Observation: the result of the tool
... (this Thought/Action/Action Input/Observation can repeat)
Thought: I now know the final answer
Final Answer: the final answer to the original question

Question: %s
Thought:`

// Step is one completed think/act round, kept for tracing.
type Step struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	Observation string `json:"observation"`
}

// Result is the outcome of an agent run.
type Result struct {
	Success    bool   `json:"success"`
	Response   string `json:"response"`
	Query      string `json:"query"`
	Iterations int    `json:"iterations"`
	Steps      []Step `json:"steps,omitempty"`
	TokensUsed int    `json:"tokens_used,omitempty"`
}

// Config tunes generation inside the loop.
type Config struct {
	MaxTokens   int
	Temperature float32
}

// Service runs the agent loop.
type Service struct {
	searcher  Searcher
	embedder  Embedder
	generator Generator
	cfg       Config
	logger    *zap.Logger
}

// New creates the agent service.
func New(searcher Searcher, embedder Embedder, generator Generator, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		searcher:  searcher,
		embedder:  embedder,
		generator: generator,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run answers a question with the ReAct loop. The loop ends when the model
// produces a final answer; hitting the iteration budget yields a non-success
// result rather than an error.
func (s *Service) Run(ctx context.Context, question string) (Result, error) {
	question = textproc.Clean(question)
	if question == "" {
		return Result{}, fmt.Errorf("empty query: %w", domain.ErrInvalidRequest)
	}

	transcript := fmt.Sprintf(promptTemplate, question)
	result := Result{Query: question}

	for i := 0; i < maxIterations; i++ {
		result.Iterations = i + 1

		gen, err := s.generator.Generate(ctx, domain.GenerateRequest{
			Prompt:      transcript,
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
		})
		if err != nil {
			return Result{}, fmt.Errorf("agent iteration %d: %w", i+1, err)
		}
		result.TokensUsed += gen.TotalTokens

		// Models often hallucinate the Observation line; everything after
		// the first one is replaced with the real tool output.
		text := cutAt(gen.Text, "\nObservation:")

		if answer, ok := finalAnswer(text); ok {
			result.Success = true
			result.Response = answer
			s.logger.Info("agent finished",
				zap.String("query", question),
				zap.Int("iterations", result.Iterations))
			return result, nil
		}

		thought, action, input, ok := parseAction(text)
		if !ok {
			// No action and no final answer: treat the whole output as the
			// answer rather than looping on garbage.
			result.Success = true
			result.Response = strings.TrimSpace(text)
			return result, nil
		}

		observation, err := s.runTool(ctx, action, input)
		if err != nil {
			return Result{}, fmt.Errorf("tool %s: %w", action, err)
		}

		result.Steps = append(result.Steps, Step{
			Thought:     thought,
			Action:      action,
			ActionInput: input,
			Observation: observation,
		})

		transcript += fmt.Sprintf(" %s\nObservation: %s\nThought:", strings.TrimSpace(text), observation)
	}

	s.logger.Warn("agent hit iteration limit", zap.String("query", question))
	result.Response = iterationLimitResponse
	return result, nil
}

// runTool dispatches a tool call. Unknown tool names return an observation
// instead of an error so the model can correct itself.
func (s *Service) runTool(ctx context.Context, action, input string) (string, error) {
	switch action {
	case "search":
		return s.searchTool(ctx, input)
	case "summarize":
		return s.summarizeTool(ctx, input)
	default:
		return fmt.Sprintf("Unknown tool %q, use one of [search, summarize].", action), nil
	}
}

// searchTool retrieves chunks for the query and joins truncated previews.
func (s *Service) searchTool(ctx context.Context, query string) (string, error) {
	emb, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed tool input: %w", err)
	}

	hits, err := s.searcher.Search(ctx, emb.Embedding, searchTopK, "")
	if err != nil {
		return "", fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return noDocumentsObservation, nil
	}

	parts := make([]string, 0, len(hits))
	for i := range hits {
		content := hits[i].Content()
		if len(content) > searchPreviewLen {
			content = content[:searchPreviewLen]
		}
		parts = append(parts, content)
	}
	return strings.Join(parts, "\n---\n"), nil
}

// summarizeTool asks the model for a three sentence summary.
func (s *Service) summarizeTool(ctx context.Context, text string) (string, error) {
	gen, err := s.generator.Generate(ctx, domain.GenerateRequest{
		Prompt:      "Summarize the following text in 3 sentences:\n\n" + text,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	return gen.Text, nil
}

// finalAnswer extracts the text after the Final Answer marker.
func finalAnswer(text string) (string, bool) {
	_, after, found := strings.Cut(text, "Final Answer:")
	if !found {
		return "", false
	}
	return strings.TrimSpace(after), true
}

// parseAction extracts the thought, tool name and tool input from one model
// turn.
func parseAction(text string) (thought, action, input string, ok bool) {
	before, after, found := strings.Cut(text, "Action:")
	if !found {
		return "", "", "", false
	}
	thought = strings.TrimSpace(before)

	actionPart, inputPart, found := strings.Cut(after, "Action Input:")
	if !found {
		return "", "", "", false
	}

	action = strings.ToLower(strings.TrimSpace(firstLine(actionPart)))
	input = strings.TrimSpace(firstLine(inputPart))
	if action == "" {
		return "", "", "", false
	}
	return thought, action, input, true
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, " \t\n")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func cutAt(s, marker string) string {
	if i := strings.Index(s, marker); i >= 0 {
		return s[:i]
	}
	return s
}
