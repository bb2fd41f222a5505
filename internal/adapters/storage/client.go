package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	// PresignedURLTTL is the default expiration time for presigned URLs (15 minutes).
	PresignedURLTTL = 15 * time.Minute
)

var _ StorageService = (*MinIOService)(nil)

// MinIOService implements StorageService using MinIO.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
	publicBase  string
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{
		client:      client,
		maxFileSize: cfg.GetMinIOMaxFileSize(),
		publicBase:  publicBaseURL(cfg),
	}, nil
}

func publicBaseURL(cfg Config) string {
	if base := strings.TrimRight(cfg.GetMinIOPublicBaseURL(), "/"); base != "" {
		return base
	}
	scheme := "http"
	if cfg.GetMinIOUseSSL() {
		scheme = "https"
	}
	return scheme + "://" + cfg.GetMinIOEndpoint()
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// AllowPublicRead lets anonymous clients GET objects under prefix. Objects
// elsewhere in the bucket stay private.
func (s *MinIOService) AllowPublicRead(ctx context.Context, bucket, prefix string) error {
	policy, err := publicReadPolicy(bucket, prefix)
	if err != nil {
		return err
	}
	if err := s.client.SetBucketPolicy(ctx, bucket, policy); err != nil {
		return fmt.Errorf("failed to set policy on bucket %s: %w", bucket, err)
	}
	return nil
}

type policyStatement struct {
	Effect    string              `json:"Effect"`
	Principal map[string][]string `json:"Principal"`
	Action    []string            `json:"Action"`
	Resource  []string            `json:"Resource"`
}

type bucketPolicy struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

func publicReadPolicy(bucket, prefix string) (string, error) {
	raw, err := json.Marshal(bucketPolicy{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect:    "Allow",
			Principal: map[string][]string{"AWS": {"*"}},
			Action:    []string{"s3:GetObject"},
			Resource:  []string{"arn:aws:s3:::" + bucket + "/" + strings.TrimPrefix(prefix, "/") + "*"},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal bucket policy: %w", err)
	}
	return string(raw), nil
}

// PutObject uploads reader under key.
func (s *MinIOService) PutObject(ctx context.Context, bucket, key, contentType string, reader io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file %s: %w", key, err)
	}
	return nil
}

// PublicURL returns {public base}/{bucket}/{key} with the key path-escaped.
func (s *MinIOService) PublicURL(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return s.publicBase + "/" + bucket + "/" + strings.Join(parts, "/")
}

// GenerateDownloadURL creates a presigned URL for downloading a file.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	presignedURL, err := s.client.PresignedGetObject(ctx, bucket, fileKey, PresignedURLTTL, make(url.Values))
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// DeleteObject removes an object from storage.
func (s *MinIOService) DeleteObject(ctx context.Context, bucket, fileKey string) error {
	err := s.client.RemoveObject(ctx, bucket, fileKey, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", fileKey, err)
	}
	return nil
}
