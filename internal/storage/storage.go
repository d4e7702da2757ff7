package storage

import (
	"context"
	"fmt"
	"io"
	"path"
)

// ArchiveStore handles result archive storage
type ArchiveStore interface {
	UploadFile(ctx context.Context, key string, contentType string, body io.Reader, size int64) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// ArchiveKey is the object key of a run's archive
func ArchiveKey(runID, filename string) string {
	return path.Join("runs", runID, filename)
}

// validateContentType validates that the content type is supported
func validateContentType(contentType string) error {
	validTypes := map[string]bool{
		"application/zip":          true, // npz
		"application/octet-stream": true,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true, // xlsx
	}

	if !validTypes[contentType] {
		return fmt.Errorf("invalid content type: %s. Supported types: application/zip, application/octet-stream, xlsx", contentType)
	}

	return nil
}
