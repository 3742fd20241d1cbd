// Package bedrock implements embedding and text generation providers on
// AWS Bedrock via the InvokeModel runtime API.
package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// invoker is the consumer interface over the Bedrock runtime client (ISP).
type invoker interface {
	InvokeModel(
		ctx context.Context,
		params *bedrockruntime.InvokeModelInput,
		optFns ...func(*bedrockruntime.Options),
	) (*bedrockruntime.InvokeModelOutput, error)
}

// Config holds AWS connection settings shared by both providers.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// NewRuntimeClient creates a Bedrock runtime client. Static credentials are
// used when provided, the default AWS chain otherwise.
func NewRuntimeClient(ctx context.Context, cfg Config) (*bedrockruntime.Client, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return bedrockruntime.NewFromConfig(awsCfg), nil
}
