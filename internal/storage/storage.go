// Package storage wraps the S3-compatible object store holding tool images.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"toolshelf/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadURLExpiry bounds how long a presigned upload URL stays valid.
const UploadURLExpiry = 15 * time.Minute

// ObjectStore is the narrow object storage surface the application needs.
type ObjectStore interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Client is the minio-backed ObjectStore implementation.
type Client struct {
	mc     *minio.Client
	bucket string
}

// New constructs a storage client from configuration.
func New(cfg *config.Config) (*Client, error) {
	mc, err := minio.New(cfg.StorageEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.StorageAccessKey, cfg.StorageSecretKey, ""),
		Secure: cfg.StorageUseSSL,
		Region: cfg.StorageRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &Client{mc: mc, bucket: cfg.StorageBucket}, nil
}

// PresignUpload returns a time-limited URL the browser can PUT the file to.
func (c *Client) PresignUpload(ctx context.Context, key, contentType string) (string, error) {
	u, err := c.mc.PresignedPutObject(ctx, c.bucket, key, UploadURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign upload for %s: %w", key, err)
	}
	return u.String(), nil
}

// Download fetches the full object bytes.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer func() { _ = obj.Close() }()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return data, nil
}

// Upload stores the given bytes under key.
func (c *Client) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete removes the object. Deleting a missing key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

// NewObjectKey builds a fresh storage key for an upload, namespaced by kind
// ("logo" or "showcase") and preserving the original extension.
func NewObjectKey(kind, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("uploads/%s/%s%s", kind, uuid.NewString(), ext)
}

// VariantKey derives the storage key for a resized rendition of the original.
// Width 0 is the full-size re-encode.
func VariantKey(originalKey string, width int) string {
	base := strings.TrimSuffix(originalKey, path.Ext(originalKey))
	if width <= 0 {
		return base + "/full.webp"
	}
	return fmt.Sprintf("%s/w%d.webp", base, width)
}
