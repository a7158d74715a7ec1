// Package backup uploads export documents to S3-compatible storage and
// hands out pre-signed download URLs for the latest one. When no bucket is
// configured the NoopUploader is used and the service stays local-only.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hyperengineering/cadence/internal/config"
	"github.com/hyperengineering/cadence/internal/exchange"
)

// ErrNotConfigured is returned when backup storage is not configured.
var ErrNotConfigured = errors.New("backup storage not configured")

const contentType = "application/json"

// Uploader stores export documents and generates pre-signed download URLs.
type Uploader interface {
	// Upload stores data as a timestamped export and as the latest export.
	// Returns the timestamped object key.
	Upload(ctx context.Context, data []byte, at time.Time) (string, error)

	// PresignedURL returns a pre-signed URL for the latest export.
	// Returns ErrNotConfigured when storage is not configured.
	PresignedURL(ctx context.Context) (url string, expiry time.Time, err error)
}

// s3Client is the subset of minio.Client the uploader needs.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error
	PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error)
}

// minioClientWrapper adapts *minio.Client's concrete option types to s3Client.
type minioClientWrapper struct {
	client *minio.Client
}

func (w *minioClientWrapper) PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, contentType string) error {
	_, err := w.client.PutObject(ctx, bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (w *minioClientWrapper) PresignedGetObject(ctx context.Context, bucket, objectName string, expiry time.Duration) (*url.URL, error) {
	return w.client.PresignedGetObject(ctx, bucket, objectName, expiry, nil)
}

// S3Uploader stores exports in an S3-compatible bucket.
type S3Uploader struct {
	client    s3Client
	bucket    string
	prefix    string
	urlExpiry time.Duration
	now       func() time.Time
}

// Upload writes data twice: under a timestamped key for history, and under
// the latest key that PresignedURL points at.
func (u *S3Uploader) Upload(ctx context.Context, data []byte, at time.Time) (string, error) {
	key := historyKey(u.prefix, at)
	for _, k := range []string{key, latestKey(u.prefix)} {
		if err := u.client.PutObject(ctx, u.bucket, k, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			return "", fmt.Errorf("upload export to S3: %w", err)
		}
	}
	return key, nil
}

// PresignedURL returns a pre-signed GET URL for the latest export.
func (u *S3Uploader) PresignedURL(ctx context.Context) (string, time.Time, error) {
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, latestKey(u.prefix), u.urlExpiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate pre-signed URL: %w", err)
	}
	return presigned.String(), u.now().Add(u.urlExpiry), nil
}

// NoopUploader is used when backup storage is not configured.
type NoopUploader struct{}

// Upload is a no-op.
func (NoopUploader) Upload(context.Context, []byte, time.Time) (string, error) {
	return "", nil
}

// PresignedURL always returns ErrNotConfigured.
func (NoopUploader) PresignedURL(context.Context) (string, time.Time, error) {
	return "", time.Time{}, ErrNotConfigured
}

// NewUploader returns NoopUploader when no bucket is configured and an
// S3Uploader otherwise.
func NewUploader(cfg config.BackupConfig) (Uploader, error) {
	if !cfg.Enabled() {
		return NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}
	endpoint := stripScheme(cfg.Endpoint, &useSSL)

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{
		client:    &minioClientWrapper{client: client},
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		urlExpiry: time.Duration(cfg.URLExpiry),
		now:       time.Now,
	}, nil
}

// stripScheme removes an http:// or https:// prefix from endpoint. An
// explicit scheme overrides useSSL.
func stripScheme(endpoint string, useSSL *bool) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		*useSSL = true
		return strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		*useSSL = false
		return strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// Key convention: {prefix}/exports/{UTC timestamp}.json and
// {prefix}/exports/latest.json.
func historyKey(prefix string, at time.Time) string {
	return joinKey(prefix, "exports/"+at.UTC().Format("20060102T150405Z")+".json")
}

func latestKey(prefix string) string {
	return joinKey(prefix, "exports/latest.json")
}

func joinKey(prefix, rest string) string {
	if prefix == "" {
		return rest
	}
	return prefix + "/" + rest
}

// UploadDocument encodes doc and uploads it, keyed by its export time.
func UploadDocument(ctx context.Context, u Uploader, doc exchange.Document) (string, error) {
	data, err := exchange.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	return u.Upload(ctx, data, doc.ExportedAt)
}
