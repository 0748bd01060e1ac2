// Package s3 implements the storage backend on an S3-compatible object store
// (AWS S3 or MinIO): one object per kind under a configurable key prefix.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"statecore/internal/storage/core"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store maps each kind to the object key <prefix><flattened-kind><ext> in a
// single bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	ext    string
}

// Config holds explicit construction parameters (mostly for tests). For prod
// we rely primarily on environment variables.
type Config struct {
	Region    string
	Bucket    string
	Prefix    string // optional key prefix, e.g. "state/"
	Ext       string // object key extension (default ".json")
	Endpoint  string // optional; if set enables custom endpoint (e.g. MinIO)
	PathStyle bool
}

// Environment variables:
//   STATECORE_STORAGE_DRIVER=s3
//   STATECORE_S3_BUCKET=<bucket> (required)
//   STATECORE_S3_PREFIX=<prefix> (optional)
//   STATECORE_S3_REGION=<region> (default us-east-1)
//   STATECORE_S3_ENDPOINT=<url> (optional, for MinIO)
//   STATECORE_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// New creates an S3 storage backend from Config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	ext := cfg.Ext
	if ext == "" {
		ext = ".json"
	}
	return &Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, ext: ext}, nil
}

// OpenFromEnv constructs an S3 backend from process environment.
func OpenFromEnv(ctx context.Context, ext string) (*Store, error) {
	bucket := os.Getenv("STATECORE_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("STATECORE_S3_BUCKET required for s3 driver")
	}
	cfg := Config{
		Bucket:    bucket,
		Prefix:    os.Getenv("STATECORE_S3_PREFIX"),
		Ext:       ext,
		Region:    os.Getenv("STATECORE_S3_REGION"),
		Endpoint:  os.Getenv("STATECORE_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("STATECORE_S3_PATH_STYLE"), "true"),
	}
	return New(ctx, cfg)
}

// Driver returns the backend driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverS3 }

func (s *Store) key(kind string) string { return s.prefix + core.FileName(kind, s.ext) }

// PathFor returns the object URL for diagnostics.
func (s *Store) PathFor(kind string) string {
	return "s3://" + s.bucket + "/" + s.key(kind)
}

// Exists reports whether the kind's object is present. Any Head failure is
// collapsed into absence; the pipeline treats unreadable state as missing.
func (s *Store) Exists(ctx context.Context, kind string) (bool, error) {
	key := s.key(kind)
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, nil
	}
	return true, nil
}

// Read fetches and returns the object payload, or ErrNotFound when absent.
func (s *Store) Read(ctx context.Context, kind string) (string, error) {
	key := s.key(kind)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return "", fmt.Errorf("%s: %w", kind, core.ErrNotFound)
	}
	defer func() { _ = out.Body.Close() }()
	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", kind, err)
	}
	return string(b), nil
}

// Write stores the kind's payload, overwriting any previous object.
func (s *Store) Write(ctx context.Context, kind, text string) error {
	key := s.key(kind)
	contentType := "application/json"
	if s.ext == ".yaml" || s.ext == ".yml" {
		contentType = "application/yaml"
	}
	input := &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        strings.NewReader(text),
		ContentType: &contentType,
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("put %s: %w", kind, err)
	}
	return nil
}

// Delete removes the kind's object, reporting whether one existed.
func (s *Store) Delete(ctx context.Context, kind string) (bool, error) {
	existed, _ := s.Exists(ctx, kind)
	key := s.key(kind)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return false, fmt.Errorf("delete %s: %w", kind, err)
	}
	return existed, nil
}

// EnsureDir is a no-op; the bucket is provisioned out of band.
func (s *Store) EnsureDir(_ context.Context) error { return nil }

// Clear removes every object under the configured prefix.
func (s *Store) Clear(ctx context.Context) (int, error) {
	removed := 0
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &s.prefix, ContinuationToken: token})
		if err != nil {
			return removed, fmt.Errorf("list: %w", err)
		}
		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
				return removed, fmt.Errorf("delete %s: %w", key, err)
			}
			removed++
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	return removed, nil
}
