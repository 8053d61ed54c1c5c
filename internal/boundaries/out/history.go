package out

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// HistoryStore persists a bounded list of run results.
type HistoryStore interface {
	// Append stores result and evicts the oldest entries beyond the cap.
	Append(ctx context.Context, result domain.RunResult) error

	// List returns up to limit results, most recent first.
	List(ctx context.Context, limit int) ([]domain.RunResult, error)
}

// StatusStore persists the last connection test result.
type StatusStore interface {
	SaveConnectionTest(ctx context.Context, result domain.ConnectionTestResult) error
	LastConnectionTest(ctx context.Context) (*domain.ConnectionTestResult, error)
}
