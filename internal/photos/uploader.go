// Package photos uploads lure and catch photos to S3-compatible storage.
// When storage is not configured (empty bucket), the NoopUploader is used
// and records keep their original device-local image URIs.
package photos

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/oklog/ulid/v2"

	"github.com/driftworks/tacklebox/internal/config"
)

// ErrNotConfigured is returned when photo storage is not configured.
var ErrNotConfigured = errors.New("photo storage not configured")

// Uploader stores photos and returns the URL to persist on the record.
type Uploader interface {
	// Upload stores one photo under the user's prefix and returns its URL.
	Upload(ctx context.Context, userID string, r io.Reader, size int64) (string, error)
}

// s3Client defines the minimal minio.Client surface used by S3Uploader.
// This interface enables testing with mock implementations.
type s3Client interface {
	PutObject(ctx context.Context, bucket, objectName string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	EndpointURL() *url.URL
}

// S3Uploader uploads photos to S3-compatible storage.
type S3Uploader struct {
	client s3Client
	bucket string
}

// Upload writes the photo as {userID}/{ulid}.jpg and returns a public URL.
func (u *S3Uploader) Upload(ctx context.Context, userID string, r io.Reader, size int64) (string, error) {
	key := fmt.Sprintf("%s/%s.jpg", userID, ulid.Make())
	_, err := u.client.PutObject(ctx, u.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", u.client.EndpointURL(), u.bucket, key), nil
}

// NoopUploader is used when photo storage is not configured.
type NoopUploader struct{}

// Upload returns ErrNotConfigured; callers keep the device-local URI.
func (u *NoopUploader) Upload(ctx context.Context, userID string, r io.Reader, size int64) (string, error) {
	return "", ErrNotConfigured
}

// NewUploader creates the appropriate Uploader based on configuration.
// Returns NoopUploader when bucket is empty, S3Uploader otherwise.
func NewUploader(cfg config.PhotoStorageConfig) (Uploader, error) {
	if cfg.Bucket == "" {
		return &NoopUploader{}, nil
	}

	useSSL := true
	if cfg.UseSSL != nil {
		useSSL = *cfg.UseSSL
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &S3Uploader{client: client, bucket: cfg.Bucket}, nil
}
