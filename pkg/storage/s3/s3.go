// Package s3 publishes report artifacts to S3-compatible object storage.
package s3

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	adconfig "github.com/autodoc/autodoc/pkg/config"
)

// Config holds S3 client configuration.
type Config struct {
	// Region is the AWS region (e.g., "us-east-1")
	Region string

	// Bucket is the target bucket name
	Bucket string

	// Endpoint overrides the default S3 endpoint (for S3-compatible services)
	Endpoint string

	// UsePathStyle forces path-style addressing (for MinIO, LocalStack)
	UsePathStyle bool

	// Credentials (optional - uses default chain if not provided)
	AccessKeyID     string
	SecretAccessKey string

	// UploadTimeout bounds a single PutFile call
	UploadTimeout time.Duration
}

// FromSettings converts the storage section of the AutoDoc configuration.
func FromSettings(s adconfig.S3Config) Config {
	return Config{
		Region:          s.Region,
		Bucket:          s.Bucket,
		Endpoint:        s.Endpoint,
		UsePathStyle:    s.PathStyle,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		UploadTimeout:   5 * time.Minute,
	}
}

// Client uploads files to one bucket.
type Client struct {
	cfg    Config
	client *s3.Client
}

// NewClient creates a new S3 client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 5 * time.Minute
	}

	var opts []func(*config.LoadOptions) error

	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{cfg: cfg, client: client}, nil
}

// Bucket returns the target bucket name.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// PutFile uploads the file at localPath under key.
func (c *Client) PutFile(ctx context.Context, key, localPath, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.UploadTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", c.cfg.Bucket, key, err)
	}
	return nil
}

// URI returns the s3:// URI of key in the client's bucket.
func (c *Client) URI(key string) string {
	return "s3://" + c.cfg.Bucket + "/" + key
}

// Location is a parsed s3://bucket/prefix URI.
type Location struct {
	Bucket string
	Prefix string
}

// ParseURI parses s3://bucket[/prefix]. Leading and trailing slashes of the
// prefix are dropped.
func ParseURI(uri string) (Location, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return Location{}, fmt.Errorf("s3: %q is not an s3:// URI", uri)
	}
	bucket, prefix, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("s3: %q has no bucket", uri)
	}
	return Location{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}, nil
}

// ObjectKey builds <prefix>/<runID>/<base name of file>.
func ObjectKey(prefix, runID, file string) string {
	return path.Join(prefix, runID, path.Base(strings.ReplaceAll(file, "\\", "/")))
}
