package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes defines the MIME types accepted for invoice uploads.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
}

// ValidateContentType checks if the content type is allowed.
func (s *MinIOService) ValidateContentType(contentType string) error {
	return ValidateContentType(contentType)
}

// ValidateFileSize checks if the file size is within limits.
func (s *MinIOService) ValidateFileSize(sizeBytes int64) error {
	return ValidateFileSize(sizeBytes, s.maxFileSize)
}

// ValidateContentType ignores parameters such as charset.
func ValidateContentType(contentType string) error {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize rejects empty files and files above max; max <= 0 disables the upper bound.
func ValidateFileSize(sizeBytes, max int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if max > 0 && sizeBytes > max {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, max)
	}
	return nil
}
