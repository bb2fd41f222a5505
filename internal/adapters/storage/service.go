// Package storage provides a domain-agnostic interface for S3-compatible object storage.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// StorageService defines the object storage operations used by the API.
type StorageService interface {
	// PutObject stores reader under the exact key, overwriting any existing object.
	PutObject(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error

	// PublicURL builds the stable public URL of an object. The URL only
	// resolves for keys under a prefix opened with AllowPublicRead.
	PublicURL(bucket, key string) string

	// GenerateDownloadURL creates a presigned URL for downloading a file.
	GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DeleteObject removes an object from storage.
	DeleteObject(ctx context.Context, bucket, fileKey string) error

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// AllowPublicRead grants anonymous GET on keys under prefix.
	AllowPublicRead(ctx context.Context, bucket, prefix string) error

	// ValidateContentType checks if the content type is allowed.
	ValidateContentType(contentType string) error

	// ValidateFileSize checks if the file size is within limits.
	ValidateFileSize(sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinIOPublicBaseURL() string
	IsMinIOEnabled() bool
}
