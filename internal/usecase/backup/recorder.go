package backup

import (
	"context"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
)

// recorder accumulates the message lines, uploaded keys and failure flag of
// one run. Each line also goes to the process log and the activity log,
// tagged with the run id.
type recorder struct {
	activity out.ActivityLog
	runID    string
	lines    []string
	keys     []string
	failed   bool
}

func (r *recorder) info(ctx context.Context, message string, fields map[string]any) {
	log := zerowrap.FromCtx(ctx)
	log.Info().Fields(fields).Msg(message)
	r.add(ctx, "info", message, fields)
}

func (r *recorder) warn(ctx context.Context, message string, fields map[string]any) {
	log := zerowrap.FromCtx(ctx)
	log.Warn().Fields(fields).Msg(message)
	r.add(ctx, "warn", message, fields)
}

// fail records a line and marks the run FAILED.
func (r *recorder) fail(ctx context.Context, message string, fields map[string]any) {
	log := zerowrap.FromCtx(ctx)
	log.Error().Fields(fields).Msg(message)
	r.failed = true
	r.add(ctx, "error", message, fields)
}

func (r *recorder) add(ctx context.Context, level, message string, fields map[string]any) {
	r.lines = append(r.lines, message)
	if r.activity != nil {
		r.activity.Record(ctx, level, message, r.tagged(fields))
	}
}

// tagged returns a copy of fields carrying the run id.
func (r *recorder) tagged(fields map[string]any) map[string]any {
	m := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		m[k] = v
	}
	m["run_id"] = r.runID
	return m
}

func (r *recorder) uploaded(key string) {
	r.keys = append(r.keys, key)
}

// result freezes the recorded run into a RunResult.
func (r *recorder) result(mode domain.RunMode, started, finished time.Time, categories []domain.CategoryOutcome) domain.RunResult {
	status := domain.RunStatusSuccess
	if r.failed {
		status = domain.RunStatusFailed
	}

	keys := make([]string, len(r.keys))
	copy(keys, r.keys)

	return domain.RunResult{
		RunID:           r.runID,
		Mode:            mode,
		StartedAt:       started,
		DurationSeconds: finished.Sub(started).Seconds(),
		Status:          status,
		UploadedKeys:    keys,
		Message:         strings.Join(r.lines, "\n"),
		Categories:      categories,
	}
}
