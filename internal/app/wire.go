// Package app wires stores and model providers from configuration. Shared
// by the server and CLI entry points.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ragpipe/ragpipe/internal/config"
	"github.com/ragpipe/ragpipe/internal/domain"
	"github.com/ragpipe/ragpipe/internal/metrics"
	"github.com/ragpipe/ragpipe/internal/repository/embcache"
	"github.com/ragpipe/ragpipe/internal/store"
	storeRedis "github.com/ragpipe/ragpipe/internal/store/redis"
	storeWeaviate "github.com/ragpipe/ragpipe/internal/store/weaviate"
	"github.com/ragpipe/ragpipe/internal/transport/bedrock"
	"github.com/ragpipe/ragpipe/internal/transport/openai"
)

// BuildStore selects the vector store driver.
func BuildStore(cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "redis", "valkey":
		return storeRedis.NewStore(storeRedis.Config{
			Addrs:           cfg.Store.Addrs,
			Password:        cfg.Store.Password,
			IndexName:       cfg.Store.IndexName,
			VectorDim:       cfg.Store.VectorDim,
			HNSWM:           cfg.Store.HNSWM,
			HNSWEFConstruct: cfg.Store.HNSWEFConstruct,
		})
	case "weaviate":
		return storeWeaviate.NewStore(storeWeaviate.Config{
			Host:      cfg.Store.Weaviate.Host,
			Scheme:    cfg.Store.Weaviate.Scheme,
			APIKey:    cfg.Store.Weaviate.APIKey,
			ClassName: cfg.Store.Weaviate.ClassName,
			VectorDim: cfg.Store.VectorDim,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// BuildEmbedder assembles the embedder chain: provider -> cache.
func BuildEmbedder(
	ctx context.Context, cfg config.Config, st store.Store, logger *zap.Logger,
) (domain.Embedder, error) {
	var base domain.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		base = openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Store.VectorDim,
			Provider:   "openai",
			Logger:     logger,
		})
	case "bedrock":
		client, err := bedrock.NewRuntimeClient(ctx, bedrockConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("bedrock client: %w", err)
		}
		base = bedrock.NewEmbedder(client, cfg.Embedding.Model, logger)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}

	if !cfg.Embedding.Cache {
		return base, nil
	}

	// The cache needs a KV surface; drivers without one run uncached.
	kv, ok := st.(store.KV)
	if !ok {
		logger.Warn("embedding cache requested but store has no KV support",
			zap.String("driver", cfg.Store.Driver))
		return base, nil
	}
	return embcache.New(base, kv, metrics.EmbeddingCacheTotal, logger), nil
}

// BuildGenerator selects the LLM provider.
func BuildGenerator(
	ctx context.Context, cfg config.Config, logger *zap.Logger,
) (domain.Generator, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return openai.NewGenerator(&openai.GeneratorConfig{
			APIKey:   cfg.LLM.APIKey,
			BaseURL:  cfg.LLM.BaseURL,
			Model:    cfg.LLM.Model,
			Provider: "openai",
			Logger:   logger,
		}), nil
	case "bedrock":
		client, err := bedrock.NewRuntimeClient(ctx, bedrockConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("bedrock client: %w", err)
		}
		return bedrock.NewGenerator(client, cfg.LLM.Model, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

func bedrockConfig(cfg config.Config) bedrock.Config {
	return bedrock.Config{
		Region:          cfg.Bedrock.Region,
		AccessKeyID:     cfg.Bedrock.AccessKeyID,
		SecretAccessKey: cfg.Bedrock.SecretAccessKey,
		SessionToken:    cfg.Bedrock.SessionToken,
	}
}

// HealthChecker exposes a provider's optional HealthCheck, nil when the
// provider has none.
func HealthChecker(v any) domain.HealthChecker {
	if hc, ok := v.(domain.HealthChecker); ok {
		return hc
	}
	return nil
}
