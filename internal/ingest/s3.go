// Rulemine - Association Rule Mining and Recommendation Rules
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rulemine

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Scheme prefixes object inputs: s3://bucket/key.
const S3Scheme = "s3://"

// S3Config selects the object store. Empty fields fall back to the AWS
// default chain (environment, shared config, instance role).
type S3Config struct {
	Region   string
	Endpoint string

	// UsePathStyle is needed by most S3-compatible stores (MinIO, Ceph).
	UsePathStyle bool

	AccessKeyID     string
	SecretAccessKey string
}

// ObjectGetter is the part of *s3.Client used to read transactions.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// IsS3URI reports whether input names an object rather than a local file.
func IsS3URI(input string) bool {
	return strings.HasPrefix(input, S3Scheme)
}

// ParseS3URI splits s3://bucket/key. Both parts must be non-empty.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, S3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%q is not an s3:// uri", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 uri %q needs a bucket and a key", uri)
	}
	return bucket, key, nil
}

// NewS3Client builds an S3 client from cfg.
//
//nolint:gocritic // hugeParam: config is read-only
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, errors.New("s3 access key id and secret access key must be set together")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

// OpenS3Object opens the object named by uri for streaming into a CSV or
// JSON Lines source. The caller closes the returned body.
func OpenS3Object(ctx context.Context, client ObjectGetter, uri string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", uri, err)
	}
	if out.Body == nil {
		return nil, fmt.Errorf("get object %s: empty body", uri)
	}
	return out.Body, nil
}
