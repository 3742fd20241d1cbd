package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/metrics"
)

// anthropicVersion is the Bedrock messages API version marker.
const anthropicVersion = "bedrock-2023-05-31"

// Generator is an LLM provider using Anthropic Claude models on Bedrock.
type Generator struct {
	client invoker
	model  string
	logger *zap.Logger
}

// NewGenerator creates a Bedrock text generation provider.
func NewGenerator(client invoker, model string, logger *zap.Logger) *Generator {
	return &Generator{client: client, model: model, logger: logger}
}

// claudeRequest is the Bedrock messages API request body.
type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      float32         `json:"temperature"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// claudeResponse is the Bedrock messages API response body.
type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate implements domain.Generator via the Bedrock messages API.
func (g *Generator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = 1000
	}

	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		Messages: []claudeMessage{
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
	})
	if err != nil {
		return domain.GenerateResult{}, fmt.Errorf("marshal generate request: %w", err)
	}

	start := time.Now()

	out, err := g.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(g.model),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("bedrock", g.model, "error").Inc()
		return domain.GenerateResult{}, fmt.Errorf("invoke %s: %v: %w",
			g.model, err, domain.ErrLLMProviderError)
	}

	var resp claudeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		metrics.LLMRequestsTotal.WithLabelValues("bedrock", g.model, "error").Inc()
		return domain.GenerateResult{}, fmt.Errorf("parse generate response: %v: %w",
			err, domain.ErrLLMProviderError)
	}
	if len(resp.Content) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues("bedrock", g.model, "error").Inc()
		return domain.GenerateResult{}, fmt.Errorf("empty generate response: %w",
			domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues("bedrock", g.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues("bedrock", g.model).Observe(duration.Seconds())
	if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues("bedrock", g.model, "prompt").
			Add(float64(resp.Usage.InputTokens))
		metrics.LLMTokensTotal.WithLabelValues("bedrock", g.model, "completion").
			Add(float64(resp.Usage.OutputTokens))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return domain.GenerateResult{
		Text:             sb.String(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}, nil
}

// HealthCheck probes the model with a minimal generation request.
func (g *Generator) HealthCheck(ctx context.Context) error {
	_, err := g.Generate(ctx, domain.GenerateRequest{Prompt: "ping", MaxTokens: 1})
	if err != nil {
		return fmt.Errorf("generate probe: %w", err)
	}
	return nil
}
