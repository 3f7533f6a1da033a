package config

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// NewS3Client creates a new S3 client.
//
// profile takes precedence over the [s3] aws-profile setting; if both are empty the default credential chain applies.
func (l *Loader) NewS3Client(ctx context.Context, profile string, optFns ...func(*s3.Options)) (*s3.Client, error) {
	if profile == "" {
		profile = l.ForS3().AWSProfile
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithSharedConfigProfile(profile))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, optFns...), nil
}
