package aws

import (
	"context"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// DefaultRegion applies when neither the caller nor the environment names one.
const DefaultRegion = "us-east-1"

// Options selects the region and, for local development against
// DynamoDB Local or LocalStack, an endpoint override.
type Options struct {
	Region           string
	EndpointOverride string
}

// LoadAWSConfig loads the shared SDK config. The override, when set, becomes
// the base endpoint of every client built from the result.
func LoadAWSConfig(ctx context.Context, opts Options) (sdkaws.Config, error) {
	region := opts.Region
	if region == "" {
		region = DefaultRegion
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return cfg, fmt.Errorf("load aws config (region %s): %w", region, err)
	}
	if opts.EndpointOverride != "" {
		cfg.BaseEndpoint = sdkaws.String(opts.EndpointOverride)
	}
	return cfg, nil
}
