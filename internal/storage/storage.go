// Package storage keeps receipts and certificates in object storage.
package storage

import (
	"context"
	"fmt"

	"charity/internal/infra"
)

// ObjectStore writes an object and returns the URL it can be fetched from.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// FromConfig builds the store selected by STORAGE_DRIVER.
func FromConfig(ctx context.Context, cfg *infra.Config) (ObjectStore, error) {
	switch cfg.StorageDriver {
	case "", "fs":
		return NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	case "s3":
		return NewS3Store(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			PublicBaseURL:   cfg.PublicBaseURL,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.StorageDriver)
	}
}

var (
	_ ObjectStore = (*FileStore)(nil)
	_ ObjectStore = (*S3Store)(nil)
)
