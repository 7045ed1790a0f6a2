// Package s3 stores calendar exports in an S3-compatible bucket.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"staycal/internal/app/policies"
)

const defaultRegion = "us-east-1"

var (
	ErrEndpointRequired = errors.New("s3: endpoint is required")
	ErrBucketRequired   = errors.New("s3: bucket is required")
	ErrKeyRequired      = errors.New("s3: object key is required")
)

type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	// LinkTTL is the lifetime of returned download links.
	LinkTTL time.Duration
}

// Client uploads objects to a private bucket and returns presigned links.
// Links are signed against PublicEndpoint when it is set.
type Client struct {
	bucket  string
	linkTTL time.Duration
	client  *minio.Client
	signer  *minio.Client
	logger  *slog.Logger

	mu           sync.Mutex
	bucketExists bool
}

func NewClient(opts Options, logger *slog.Logger) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointRequired
	}
	bucket := strings.TrimSpace(opts.Bucket)
	if bucket == "" {
		return nil, ErrBucketRequired
	}
	client, err := newMinio(endpoint, opts)
	if err != nil {
		return nil, err
	}
	signer := client
	if public := strings.TrimSpace(opts.PublicEndpoint); public != "" {
		if signer, err = newMinio(public, opts); err != nil {
			return nil, err
		}
	}
	ttl := opts.LinkTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{bucket: bucket, linkTTL: ttl, client: client, signer: signer, logger: logger}, nil
}

func newMinio(endpoint string, opts Options) (*minio.Client, error) {
	secure := opts.UseSSL
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		endpoint = parsed.Host
		secure = secure || parsed.Scheme == "https"
	}
	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: secure,
		Region: defaultRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return c, nil
}

func (c *Client) Upload(ctx context.Context, key string, reader io.Reader, contentType string) (string, error) {
	if reader == nil {
		return "", errors.New("s3: reader is required")
	}
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", ErrKeyRequired
	}
	if err := c.ensureBucket(ctx); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := c.client.PutObject(ctx, c.bucket, key, reader, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	link, err := c.signer.PresignedGetObject(ctx, c.bucket, key, c.linkTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	if c.logger != nil {
		c.logger.InfoContext(ctx, "s3 upload completed", "bucket", c.bucket, "key", key, "size", info.Size)
	}
	return link.String(), nil
}

// Ping reports whether the bucket is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	return err
}

// ensureBucket creates the bucket once. Failures are retried on the next call.
func (c *Client) ensureBucket(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bucketExists {
		return nil
	}
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("s3: check bucket: %w", err)
	}
	if !exists {
		if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: defaultRegion}); err != nil {
			return fmt.Errorf("s3: create bucket: %w", err)
		}
	}
	c.bucketExists = true
	return nil
}

var _ policies.ObjectUploader = (*Client)(nil)
