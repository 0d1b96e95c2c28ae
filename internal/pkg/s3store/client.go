package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// Client wraps the S3 client for the image bucket and the upload staging
// bucket.
type Client struct {
	s3Client *s3.Client
	config   *Config
}

// NewClient creates a new object store client
func NewClient(cfg *Config) (*Client, error) {
	awsConfig, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible services need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	client := &Client{
		s3Client: s3Client,
		config:   cfg,
	}

	log.Infof("[S3Store] Initialized S3 client for bucket: %s", cfg.BucketName)
	return client, nil
}

// PutObject uploads one variant payload under its deterministic key.
func (c *Client) PutObject(key string, payload []byte, modTime time.Time) error {
	ctx := context.Background()

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.BucketName),
		Key:           aws.String(key),
		Body:          bytes.NewReader(payload),
		ContentType:   aws.String(contentType(path.Ext(key))),
		ContentLength: aws.Int64(int64(len(payload))),
		Metadata: map[string]string{
			"upload-source": "random-img",
			"last-modified": modTime.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.Debugf("[S3Store] Uploaded: s3://%s/%s (%d bytes)", c.config.BucketName, key, len(payload))
	return nil
}

// DeleteObject removes an object from the image bucket. Deleting a missing
// key is not an error.
func (c *Client) DeleteObject(key string) error {
	return c.delete(c.config.BucketName, key)
}

// ListObjects returns every key in the image bucket
func (c *Client) ListObjects() ([]string, error) {
	return c.list(c.config.BucketName)
}

// ClearBucket deletes every object in the image bucket. Individual delete
// failures are logged and counted, not fatal.
func (c *Client) ClearBucket() (int, error) {
	keys, err := c.list(c.config.BucketName)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, key := range keys {
		if err := c.delete(c.config.BucketName, key); err != nil {
			log.Errorf("[S3Store] Failed to delete %s during bucket clear: %v", key, err)
			continue
		}
		deleted++
	}
	log.Infof("[S3Store] Cleared bucket %s: %d/%d objects deleted", c.config.BucketName, deleted, len(keys))
	return deleted, nil
}

// ListStaging returns the keys of archives waiting in the staging bucket
func (c *Client) ListStaging() ([]string, error) {
	return c.list(c.config.StagingBucket)
}

// GetStaging downloads a staged archive
func (c *Client) GetStaging(key string) ([]byte, error) {
	return c.get(c.config.StagingBucket, key)
}

// DeleteStaging removes a processed archive from the staging bucket
func (c *Client) DeleteStaging(key string) error {
	return c.delete(c.config.StagingBucket, key)
}

func (c *Client) get(bucket, key string) ([]byte, error) {
	ctx := context.Background()

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (c *Client) delete(bucket, key string) error {
	ctx := context.Background()

	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func (c *Client) list(bucket string) ([]string, error) {
	ctx := context.Background()

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.s3Client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// contentType returns the MIME type based on file extension
func contentType(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
