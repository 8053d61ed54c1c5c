package out

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// ObjectStore uploads archives to an S3-compatible bucket.
type ObjectStore interface {
	// PutObject uploads the file at localPath under objectKey.
	// Failures are reported in the outcome, never as a panic or error return.
	PutObject(ctx context.Context, localPath, objectKey string, cfg domain.StorageConfig) domain.UploadOutcome

	// GetObject downloads objectKey into memory.
	GetObject(ctx context.Context, objectKey string, cfg domain.StorageConfig) ([]byte, domain.UploadOutcome)

	// DeleteObject removes objectKey.
	DeleteObject(ctx context.Context, objectKey string, cfg domain.StorageConfig) domain.UploadOutcome
}
