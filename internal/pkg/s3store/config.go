package s3store

import (
	"errors"

	"github.com/ShiinaKin/random-img/internal/pkg/env"
)

// Config holds object store configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	EndpointURL     string // Optional for S3-compatible services
	BucketName      string
	StagingBucket   string // archives dropped here are picked up by remote upload
	CDNUrl          string // authority prefix written into catalog rows
}

// LoadConfig loads object store configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		StagingBucket:   env.GetEnv("S3_STAGING_BUCKET_NAME", ""),
		CDNUrl:          env.GetEnv("S3_CDN_URL", ""),
	}

	if config.AccessKeyID == "" {
		return nil, errors.New("S3_ACCESS_KEY_ID is required")
	}
	if config.SecretAccessKey == "" {
		return nil, errors.New("S3_SECRET_ACCESS_KEY is required")
	}
	if config.BucketName == "" {
		return nil, errors.New("S3_BUCKET_NAME is required")
	}
	if config.CDNUrl == "" {
		return nil, errors.New("S3_CDN_URL is required")
	}

	return config, nil
}
