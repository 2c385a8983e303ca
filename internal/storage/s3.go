// Package storage abstracts the object store holding user and ficada photos.
// This file provides the S3-backed implementation used in production.
package storage

import (
	"bytes"
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the boundary to the external photo store. Upload returns a
// publicly retrievable URL for the stored object; Delete removes an object by
// key and treats a missing object as success.
//
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// S3Store implements ObjectStore on top of an S3 (or S3-compatible) bucket.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string // public URL prefix, e.g. https://cdn.example.com
}

// NewS3Store builds an S3Store from the ambient AWS configuration (env vars,
// shared config, instance role). A non-empty region overrides the ambient
// one. baseURL is the public prefix under which uploaded keys are reachable;
// it is trimmed of trailing slashes.
func NewS3Store(ctx context.Context, bucket, region, baseURL string) (*S3Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3Store{
		client:  s3.NewFromConfig(cfg),
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload stores data under key and returns its public download URL.
func (s *S3Store) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if contentType == "" {
		contentType = "image/jpeg"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the object under key. Deleting a nonexistent key is not an
// error in S3, which matches the best-effort delete semantics of the callers.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
