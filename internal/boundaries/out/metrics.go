package out

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// BackupMetrics records run and upload measurements.
type BackupMetrics interface {
	RecordRun(ctx context.Context, result domain.RunResult)
	RecordUpload(ctx context.Context, category string, outcome domain.UploadOutcome, sizeBytes int64)
}
