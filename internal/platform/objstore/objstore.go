// Copyright (c) 2026 Tessera. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package objstore provides an S3-backed object store for user avatars.

Avatars fetched from external identity providers are mirrored here so
the SSO authority never serves third-party URLs directly. Keys are
stored in Postgres (users.avatar_path); clients receive short-lived
presigned URLs generated on demand.

Works with AWS S3 and S3-compatible services (MinIO, Wasabi) via a
custom endpoint and path-style addressing.
*/
package objstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config carries the connection settings for the object store.
type Config struct {
	Bucket         string
	Region         string
	Endpoint       string // empty for AWS S3
	AccessKeyID    string
	SecretKey      string
	ForcePathStyle bool // required for MinIO
}

// Store wraps the S3 client and its presigner. Safe for concurrent use.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New builds the S3 client from explicit credentials when provided,
// falling back to the ambient AWS credential chain otherwise.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("objstore: bucket and region are required")
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		loadOptions = append(loadOptions,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretKey,
				"",
			)),
		)
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("objstore: failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(options *s3.Options) {
		if cfg.Endpoint != "" {
			options.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		options.UsePathStyle = cfg.ForcePathStyle
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// Put uploads an object under the given key.
func (store *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) error {
	key = sanitizeKey(key)
	if key == "" {
		return fmt.Errorf("objstore: invalid key")
	}

	_, err := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(store.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("objstore: put %s: %w", key, err)
	}

	return nil
}

// PresignGet returns a time-limited download URL for the key.
func (store *Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	key = sanitizeKey(key)
	if key == "" {
		return "", fmt.Errorf("objstore: invalid key")
	}

	presigned, err := store.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("objstore: presign %s: %w", key, err)
	}

	return presigned.URL, nil
}

// Delete removes an object. Missing keys are not an error.
func (store *Store) Delete(ctx context.Context, key string) error {
	key = sanitizeKey(key)
	if key == "" {
		return fmt.Errorf("objstore: invalid key")
	}

	_, err := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("objstore: delete %s: %w", key, err)
	}

	return nil
}

// sanitizeKey rejects traversal attempts in object keys.
func sanitizeKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if strings.Contains(key, "..") {
		return ""
	}
	return key
}
