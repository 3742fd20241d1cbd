package domain

import "context"

// GenerateRequest is a single LLM completion request.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// GenerateResult carries the completion text and token usage.
type GenerateResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator is the LLM text generation contract.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}
