// Package storage archives generated report files in object storage.
package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/config"
)

// Archive stores report files. Put returns the object key it wrote.
type Archive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// MinioArchive writes to one minio (or any S3 compatible) bucket.
type MinioArchive struct {
	client *minio.Client
	bucket string
	log    *zap.Logger
}

// NewMinioArchive connects to the configured endpoint and creates the bucket
// when it does not exist yet.
func NewMinioArchive(ctx context.Context, cfg *config.StorageConfig, log *zap.Logger) (*MinioArchive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("Created storage bucket", zap.String("bucket", cfg.Bucket))
	}

	return &MinioArchive{client: client, bucket: cfg.Bucket, log: log}, nil
}

func (a *MinioArchive) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	a.log.Info("Report archived", zap.String("bucket", a.bucket), zap.String("key", key), zap.Int("size", len(data)))
	return key, nil
}
