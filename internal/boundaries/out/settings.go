package out

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// SettingsStore provides a read-only settings snapshot.
type SettingsStore interface {
	Load(ctx context.Context) (domain.Settings, error)
}
