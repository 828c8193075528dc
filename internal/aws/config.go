package aws

import (
	"context"
	"fmt"
	"os"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// ReadRetryAttempts bounds the SDK retryer for idempotent read calls.
const ReadRetryAttempts = 3

// LoadAWSConfig loads the shared AWS config. AWS_REGION defaults to us-east-1 and
// AWS_ENDPOINT_OVERRIDE points every client at a local stack (e.g. localstack).
func LoadAWSConfig(ctx context.Context) (sdkaws.Config, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1" // default fallback
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	if endpoint := os.Getenv("AWS_ENDPOINT_OVERRIDE"); endpoint != "" {
		opts = append(opts, config.WithBaseEndpoint(endpoint))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return cfg, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return cfg, nil
}

// ReadRetries is a per-call DynamoDB option for idempotent reads: the client's
// standard retryer (exponential backoff with jitter) bounded to ReadRetryAttempts.
func ReadRetries(o *dynamodb.Options) {
	o.RetryMaxAttempts = ReadRetryAttempts
}

// SingleAttempt is a per-call DynamoDB option for conditional writes. A lost
// response is surfaced to the caller instead of being replayed blindly.
func SingleAttempt(o *dynamodb.Options) {
	o.RetryMaxAttempts = 1
}
