// Package backup implements the backup orchestration use case.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/siteback/internal/boundaries/in"
	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
)

var _ in.BackupService = (*Service)(nil)

// Dependencies are the ports the orchestrator drives. Activity, Metrics,
// Lock, Status and Notifier may be nil.
type Dependencies struct {
	Settings  out.SettingsStore
	Archiver  out.Archiver
	Store     out.ObjectStore
	Retention out.Retention
	History   out.HistoryStore
	Status    out.StatusStore
	Notifier  out.Notifier
	Activity  out.ActivityLog
	Metrics   out.BackupMetrics
	Lock      out.RunLock
}

// Service orchestrates backup runs.
type Service struct {
	deps    Dependencies
	tracer  trace.Tracer
	running atomic.Bool
	state   atomic.Value
	now     func() time.Time
	newID   func() string
}

// NewService creates a backup service.
func NewService(deps Dependencies) *Service {
	s := &Service{
		deps:   deps,
		tracer: otel.Tracer("siteback/backup"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	s.state.Store(domain.StateIdle)
	return s
}

// State reports the orchestrator's current state.
func (s *Service) State() domain.RunState {
	return s.state.Load().(domain.RunState)
}

func (s *Service) setState(ctx context.Context, state domain.RunState) {
	s.state.Store(state)
	log := zerowrap.FromCtx(ctx)
	log.Debug().Str("state", string(state)).Msg("run state changed")
}

// Run executes one backup run. The returned result is never modified afterwards.
func (s *Service) Run(ctx context.Context, mode domain.RunMode) (*domain.RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	if s.deps.Lock != nil {
		release, err := s.deps.Lock.TryLock()
		if err != nil {
			return nil, err
		}
		defer release()
	}

	runID := s.newID()
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "RunBackup",
		"run_id":              runID,
		"mode":                string(mode),
	})
	ctx, span := s.tracer.Start(ctx, "backup.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.String("mode", string(mode)),
	))
	defer span.End()

	started := s.now().UTC()
	rec := &recorder{activity: s.deps.Activity, runID: runID}
	rec.info(ctx, fmt.Sprintf("Backup run started (%s).", mode), nil)

	settings, categories := s.execute(ctx, rec, started)

	s.setState(ctx, domain.StateFinalizing)
	result := rec.result(mode, started, s.now().UTC(), categories)

	level := "info"
	if !result.Succeeded() {
		level = "error"
		span.SetStatus(codes.Error, "backup failed")
	}
	s.record(ctx, level, fmt.Sprintf("Backup run finished: %s", result.Status), rec.tagged(map[string]any{
		"duration_seconds": result.DurationSeconds,
		"uploaded":         len(result.UploadedKeys),
	}))

	s.finalize(ctx, settings, result)
	s.setState(ctx, domain.StateIdle)

	return &result, nil
}

// execute runs validation, category processing and retention, recording
// every step on rec. The settings snapshot it loads is the only one the run
// uses; it is returned with the per-category outcomes.
func (s *Service) execute(ctx context.Context, rec *recorder, started time.Time) (domain.Settings, []domain.CategoryOutcome) {
	s.setState(ctx, domain.StateValidating)

	settings, err := s.deps.Settings.Load(ctx)
	if err != nil {
		rec.fail(ctx, fmt.Sprintf("Settings could not be loaded: %v", err), nil)
		return domain.Settings{}, nil
	}
	if err := settings.Validate(); err != nil {
		rec.fail(ctx, err.Error(), nil)
		return settings, nil
	}

	if err := os.MkdirAll(settings.BackupDir, 0750); err != nil {
		rec.fail(ctx, fmt.Sprintf("%v: cannot create backup directory %s: %v", domain.ErrIO, settings.BackupDir, err), nil)
		return settings, nil
	}

	s.setState(ctx, domain.StateProcessing)
	site := domain.SanitizePathComponent(settings.Site)
	storage := settings.Storage.Normalize()
	rec.info(ctx, "Remote destination: "+storage.String(), nil)

	var (
		outcomes []domain.CategoryOutcome
		produced []string
	)
	for _, cat := range settings.Categories() {
		outcome := s.processCategory(ctx, rec, settings, storage, site, cat, started)
		outcomes = append(outcomes, outcome)
		if outcome.Archived {
			produced = append(produced, outcome.ArchivePath)
		}
	}

	s.setState(ctx, domain.StateRetaining)
	s.applyRetention(ctx, rec, settings, site, produced)

	return settings, outcomes
}

// processCategory archives and uploads one category. Its failure never
// affects the other categories.
func (s *Service) processCategory(
	ctx context.Context,
	rec *recorder,
	settings domain.Settings,
	storage domain.StorageConfig,
	site string,
	cat domain.Category,
	started time.Time,
) domain.CategoryOutcome {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{"category": cat.Name})
	ctx, span := s.tracer.Start(ctx, "backup.category", trace.WithAttributes(attribute.String("category", cat.Name)))
	defer span.End()

	fileName := domain.ArchiveFileName(site, cat.Name, started)
	job := domain.BackupJob{
		Category:         cat,
		LocalArchivePath: filepath.Join(settings.BackupDir, fileName),
		RemoteKey:        storage.ObjectKey(cat.Name, fileName),
	}
	outcome := domain.CategoryOutcome{Category: cat.Name}

	if err := s.archive(ctx, settings.Database, job); err != nil {
		outcome.Error = err.Error()
		span.SetStatus(codes.Error, "archive failed")
		rec.fail(ctx, fmt.Sprintf("%s: archive failed: %v", cat.Name, err), nil)
		return outcome
	}

	outcome.Archived = true
	outcome.ArchivePath = job.LocalArchivePath
	if info, err := os.Stat(job.LocalArchivePath); err == nil {
		outcome.SizeBytes = info.Size()
	}
	rec.info(ctx, fmt.Sprintf("%s: archive created %s (%s)", cat.Name, filepath.Base(job.LocalArchivePath), humanize.Bytes(uint64(outcome.SizeBytes))), map[string]any{
		zerowrap.FieldPath: job.LocalArchivePath,
		zerowrap.FieldSize: outcome.SizeBytes,
	})

	upload := s.deps.Store.PutObject(ctx, job.LocalArchivePath, job.RemoteKey, settings.Storage)
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordUpload(ctx, cat.Name, upload, outcome.SizeBytes)
	}
	outcome.RemoteKey = job.RemoteKey
	outcome.HTTPStatus = upload.HTTPStatus

	if !upload.OK {
		outcome.Error = upload.Message
		span.SetStatus(codes.Error, "upload failed")
		rec.fail(ctx, fmt.Sprintf("%s: upload failed: %s", cat.Name, upload.Message), map[string]any{
			"key":                job.RemoteKey,
			zerowrap.FieldStatus: upload.HTTPStatus,
		})
		return outcome
	}

	outcome.Uploaded = true
	rec.uploaded(job.RemoteKey)
	rec.info(ctx, fmt.Sprintf("%s: uploaded %s", cat.Name, job.RemoteKey), map[string]any{
		"key":                job.RemoteKey,
		zerowrap.FieldStatus: upload.HTTPStatus,
	})
	return outcome
}

func (s *Service) archive(ctx context.Context, db domain.DatabaseSettings, job domain.BackupJob) error {
	if job.Category.Kind != domain.KindDatabase {
		return s.deps.Archiver.ArchiveDirectory(ctx, job.Category.SourcePath, job.LocalArchivePath, job.Category.Name)
	}

	sqlPath := strings.TrimSuffix(job.LocalArchivePath, ".zip") + ".sql"
	if err := s.deps.Archiver.DumpDatabase(ctx, db, sqlPath); err != nil {
		_ = os.Remove(sqlPath)
		return err
	}
	return s.deps.Archiver.WrapDatabaseDump(ctx, sqlPath, job.LocalArchivePath)
}

// applyRetention prunes local archives. keep_local = 0 deletes everything
// this run produced; otherwise each category keeps its newest archives.
// Failures are reported but never fail the run.
func (s *Service) applyRetention(ctx context.Context, rec *recorder, settings domain.Settings, site string, produced []string) {
	if s.deps.Retention == nil {
		return
	}

	if settings.KeepLocal == 0 {
		deleted, err := s.deps.Retention.RemoveFiles(ctx, settings.BackupDir, produced)
		if err != nil {
			rec.warn(ctx, fmt.Sprintf("Retention: %v", err), nil)
		}
		rec.info(ctx, fmt.Sprintf("Retention: removed %d local archive(s), keep_local is 0", deleted), nil)
		return
	}

	total := 0
	for _, cat := range settings.Categories() {
		deleted, err := s.deps.Retention.Apply(ctx, settings.BackupDir, site, cat.Name, settings.KeepLocal)
		total += deleted
		if err != nil {
			rec.warn(ctx, fmt.Sprintf("Retention (%s): %v", cat.Name, err), nil)
		}
	}
	if total > 0 {
		rec.info(ctx, fmt.Sprintf("Retention: removed %d old local archive(s)", total), nil)
	}
}

// finalize persists, measures and reports a finished run. None of these
// steps can change the result.
func (s *Service) finalize(ctx context.Context, settings domain.Settings, result domain.RunResult) {
	log := zerowrap.FromCtx(ctx)

	if s.deps.History != nil {
		if err := s.deps.History.Append(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to persist run history")
		}
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.RecordRun(ctx, result)
	}
	if s.deps.Notifier != nil {
		if err := s.deps.Notifier.Notify(ctx, settings.Site, settings.Notify, result); err != nil {
			log.Warn().Err(err).Msg("failed to send run notification")
		}
	}
}

func (s *Service) record(ctx context.Context, level, message string, fields map[string]any) {
	if s.deps.Activity != nil {
		s.deps.Activity.Record(ctx, level, message, fields)
	}
}

// History returns persisted run results, most recent first.
func (s *Service) History(ctx context.Context, limit int) ([]domain.RunResult, error) {
	if s.deps.History == nil {
		return nil, nil
	}
	return s.deps.History.List(ctx, limit)
}

// TestConnection writes, reads back and deletes a test object under the key prefix.
func (s *Service) TestConnection(ctx context.Context) (*domain.ConnectionTestResult, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "TestConnection",
	})
	log := zerowrap.FromCtx(ctx)

	settings, err := s.deps.Settings.Load(ctx)
	if err != nil {
		return nil, log.WrapErr(err, "failed to load settings")
	}

	result := domain.ConnectionTestResult{CheckedAt: s.now().UTC()}
	result.OK, result.Message = s.roundTrip(ctx, settings.Storage)

	if result.OK {
		log.Info().Msg(result.Message)
	} else {
		log.Warn().Msg(result.Message)
	}
	s.record(ctx, levelFor(result.OK), "Connection test: "+result.Message, nil)

	if s.deps.Status != nil {
		if err := s.deps.Status.SaveConnectionTest(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to save connection test status")
		}
	}

	return &result, nil
}

// TestNotification mails a sample report with the current notify settings,
// ignoring notify.enabled and notify.on.
func (s *Service) TestNotification(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "TestNotification",
	})
	log := zerowrap.FromCtx(ctx)

	if s.deps.Notifier == nil {
		return fmt.Errorf("%w: no notifier configured", domain.ErrConfiguration)
	}

	settings, err := s.deps.Settings.Load(ctx)
	if err != nil {
		return log.WrapErr(err, "failed to load settings")
	}

	now := s.now().UTC()
	sample := domain.RunResult{
		RunID:     "test-" + s.newID(),
		Mode:      domain.RunModeManual,
		StartedAt: now,
		Status:    domain.RunStatusSuccess,
		Message:   "This is a test notification. No backup was run.",
	}
	if err := s.deps.Notifier.Send(ctx, settings.Site, settings.Notify, sample); err != nil {
		s.record(ctx, "error", fmt.Sprintf("Test notification failed: %v", err), nil)
		return log.WrapErr(err, "failed to send test notification")
	}

	log.Info().Str("to", settings.Notify.To).Msg("test notification sent")
	s.record(ctx, "info", "Test notification sent to "+settings.Notify.To, nil)
	return nil
}

func (s *Service) roundTrip(ctx context.Context, cfg domain.StorageConfig) (bool, string) {
	normalized := cfg.Normalize()
	if err := normalized.Validate(); err != nil {
		return false, "Remote not configured: " + err.Error()
	}

	key := normalized.KeyPrefix + "/.test-" + s.newID()
	body := []byte(fmt.Sprintf("siteback connection test: %d", s.now().Unix()))

	tmp, err := os.CreateTemp("", "siteback-conntest-*")
	if err != nil {
		return false, fmt.Sprintf("Test failed: %v: %v", domain.ErrIO, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return false, fmt.Sprintf("Test failed: %v: %v", domain.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Sprintf("Test failed: %v: %v", domain.ErrIO, err)
	}

	if put := s.deps.Store.PutObject(ctx, tmp.Name(), key, cfg); !put.OK {
		return false, "Test failed: write: " + put.Message
	}

	data, get := s.deps.Store.GetObject(ctx, key, cfg)
	del := s.deps.Store.DeleteObject(ctx, key, cfg)

	switch {
	case !get.OK:
		return false, "Test failed: read: " + get.Message
	case !bytes.Equal(data, body):
		return false, "Test failed: read returned different content"
	case !del.OK:
		return false, "Test failed: delete: " + del.Message
	}
	return true, "All operations OK (write/read/delete)."
}

func levelFor(ok bool) string {
	if ok {
		return "info"
	}
	return "error"
}
