package out

import "context"

// ActivityLog records human-readable run lines with structured context.
type ActivityLog interface {
	Record(ctx context.Context, level, message string, fields map[string]any)
}
