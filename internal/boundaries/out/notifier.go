package out

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// Notifier reports runs for site using the notify settings of the run.
type Notifier interface {
	// Notify applies the enabled flag and the policy in cfg before sending.
	Notify(ctx context.Context, site string, cfg domain.NotifySettings, result domain.RunResult) error

	// Send delivers result regardless of the enabled flag and policy.
	Send(ctx context.Context, site string, cfg domain.NotifySettings, result domain.RunResult) error
}
