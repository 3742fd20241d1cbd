package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/metrics"
)

const contentTypeJSON = "application/json"

// Embedder is an embedding provider using Amazon Titan models on Bedrock.
type Embedder struct {
	client invoker
	model  string
	logger *zap.Logger
}

// NewEmbedder creates a Bedrock embedding provider.
func NewEmbedder(client invoker, model string, logger *zap.Logger) *Embedder {
	return &Embedder{client: client, model: model, logger: logger}
}

// titanEmbedRequest is the Titan embedding request body.
type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

// titanEmbedResponse is the Titan embedding response body.
type titanEmbedResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embed implements domain.Embedder via InvokeModel. Titan has no batch
// endpoint, ingestion falls back to per-text calls.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	body, err := json.Marshal(titanEmbedRequest{InputText: text})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("marshal embed request: %w", err)
	}

	start := time.Now()

	out, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(e.model),
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
		Body:        body,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("bedrock", e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("bedrock", e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("invoke %s: %v: %w",
			e.model, err, domain.ErrEmbeddingProviderError)
	}

	var resp titanEmbedResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("bedrock", e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("bedrock", e.model, "bad_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("parse embed response: %v: %w",
			err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("bedrock", e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("bedrock", e.model, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w",
			domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("bedrock", e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("bedrock", e.model).Observe(duration.Seconds())
	if resp.InputTextTokenCount > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues("bedrock", e.model, "prompt").
			Add(float64(resp.InputTextTokenCount))
		metrics.EmbeddingTokensTotal.WithLabelValues("bedrock", e.model, "total").
			Add(float64(resp.InputTextTokenCount))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Embedding,
		PromptTokens: resp.InputTextTokenCount,
		TotalTokens:  resp.InputTextTokenCount,
	}, nil
}

// HealthCheck probes the model with a minimal embedding request.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("embed probe: %w", err)
	}
	return nil
}
