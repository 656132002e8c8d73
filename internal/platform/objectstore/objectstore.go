// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package objectstore wraps an S3-compatible bucket (AWS S3, MinIO, R2).

It only needs three verbs: upload an object, mint a short-lived download URL,
and check that the bucket is reachable for readiness probes.
*/
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultPresignTTL is how long a presigned download URL stays valid.
const DefaultPresignTTL = 15 * time.Minute

// Options configures a [Store].
type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// PresignTTL defaults to DefaultPresignTTL.
	PresignTTL time.Duration
}

// Store is a bucket handle.
type Store struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// New builds an S3 client from opts. Static credentials are used when both keys
// are set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, opts Options, logger *slog.Logger) (*Store, error) {
	loadOptions := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOptions = append(loadOptions, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("objectstore: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	presignTTL := opts.PresignTTL
	if presignTTL <= 0 {
		presignTTL = DefaultPresignTTL
	}

	logger.Info("object store configured",
		slog.String("bucket", opts.Bucket),
		slog.String("region", opts.Region),
	)

	return &Store{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     opts.Bucket,
		presignTTL: presignTTL,
	}, nil
}

// Put uploads body under key.
func (store *Store) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(store.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("objectstore: put %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a GET URL for key valid for the configured TTL.
func (store *Store) PresignGet(ctx context.Context, key string) (string, error) {
	request, err := store.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(store.presignTTL))
	if err != nil {
		return "", fmt.Errorf("objectstore: presign %s: %w", key, err)
	}
	return request.URL, nil
}

// Ping checks that the bucket exists and the credentials can reach it.
func (store *Store) Ping(ctx context.Context) error {
	if _, err := store.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(store.bucket)}); err != nil {
		return fmt.Errorf("objectstore: head bucket: %w", err)
	}
	return nil
}
