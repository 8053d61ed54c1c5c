package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bnema/zerowrap"
	"github.com/spf13/viper"

	"github.com/bnema/siteback/internal/adapters/out/archive"
	"github.com/bnema/siteback/internal/adapters/out/dbdump"
	"github.com/bnema/siteback/internal/adapters/out/filesystem"
	"github.com/bnema/siteback/internal/adapters/out/logwriter"
	"github.com/bnema/siteback/internal/adapters/out/mailer"
	"github.com/bnema/siteback/internal/adapters/out/s3"
	"github.com/bnema/siteback/internal/adapters/out/settings"
	"github.com/bnema/siteback/internal/adapters/out/sqlite"
	"github.com/bnema/siteback/internal/adapters/out/telemetry"
	"github.com/bnema/siteback/internal/boundaries/in"
	"github.com/bnema/siteback/internal/domain"
	"github.com/bnema/siteback/internal/usecase/backup"
	"github.com/bnema/siteback/pkg/version"
)

// Kernel holds the wired services for one process.
//
// It does not register signal handlers; Serve does that for long-running mode.
type Kernel struct {
	cfg       Config
	log       zerowrap.Logger
	viper     *viper.Viper
	settings  *settings.Store
	backupSvc *backup.Service
	activity  *logwriter.ActivityLog
	status    *filesystem.StatusFile
	closers   []func()
}

// NewKernel loads configuration and wires every adapter.
func NewKernel(ctx context.Context, configPath string) (*Kernel, error) {
	v, cfg, err := initConfig(configPath)
	if err != nil {
		return nil, err
	}

	log, cleanup, err := initLogger(cfg)
	if err != nil {
		return nil, err
	}

	k := &Kernel{cfg: cfg, log: log, viper: v}
	if cleanup != nil {
		k.closers = append(k.closers, cleanup)
	}

	ctx = zerowrap.WithCtx(ctx, log)
	if err := k.wire(ctx); err != nil {
		_ = k.Close()
		return nil, err
	}

	return k, nil
}

func (k *Kernel) wire(ctx context.Context) error {
	log := zerowrap.FromCtx(ctx)
	cfg := k.cfg

	timeout, maxSize, err := uploadLimits(cfg)
	if err != nil {
		return err
	}

	_, shutdown, err := telemetry.NewProvider(ctx, cfg.Telemetry, "siteback", version.Version())
	if err != nil {
		return log.WrapErr(err, "failed to initialize telemetry")
	}
	k.closers = append(k.closers, func() { shutdown(context.Background()) })

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return log.WrapErr(err, "failed to create metrics")
	}

	k.settings = settings.NewStore(k.viper)

	history, err := sqlite.Open(resolveHistoryPath(cfg), sqlite.WithCap(cfg.History.Max))
	if err != nil {
		return log.WrapErr(err, "failed to open run history")
	}
	k.closers = append(k.closers, func() { _ = history.Close() })

	k.activity, err = logwriter.New(logwriter.Config{
		Path:       resolveActivityLogPath(cfg),
		MaxSize:    cfg.Logging.Activity.MaxSize,
		MaxBackups: cfg.Logging.Activity.MaxBackups,
		MaxAge:     cfg.Logging.Activity.MaxAge,
	})
	if err != nil {
		return log.WrapErr(err, "failed to create activity log")
	}
	k.closers = append(k.closers, func() { _ = k.activity.Close() })

	k.status, err = filesystem.NewStatusFile(filepath.Join(cfg.DataDir, "status.json"))
	if err != nil {
		return log.WrapErr(err, "failed to create status file")
	}

	lock, err := filesystem.NewRunLock(filepath.Join(cfg.DataDir, "run.lock"))
	if err != nil {
		return log.WrapErr(err, "failed to create run lock")
	}

	store := s3.New(s3.WithTimeout(timeout), s3.WithMaxUploadSize(maxSize))
	k.closers = append(k.closers, store.Close)

	k.backupSvc = backup.NewService(backup.Dependencies{
		Settings:  k.settings,
		Archiver:  archive.NewArchiver(databaseDumper),
		Store:     store,
		Retention: filesystem.NewRetention(),
		History:   history,
		Status:    k.status,
		Notifier:  mailer.New(),
		Activity:  k.activity,
		Metrics:   metrics,
		Lock:      lock,
	})

	log.Debug().
		Str(zerowrap.FieldLayer, "app").
		Str("data_dir", cfg.DataDir).
		Str("config", k.viper.ConfigFileUsed()).
		Msg("services wired")

	return nil
}

// databaseDumper builds the dump chain for the database settings of one run.
func databaseDumper(db domain.DatabaseSettings) archive.Dumper {
	return dbdump.ForSettings(db)
}

// Context returns ctx carrying the kernel's logger.
func (k *Kernel) Context(ctx context.Context) context.Context {
	return zerowrap.WithCtx(ctx, k.log)
}

// Close releases resources in reverse order of creation.
func (k *Kernel) Close() error {
	if k == nil {
		return nil
	}
	for i := len(k.closers) - 1; i >= 0; i-- {
		k.closers[i]()
	}
	k.closers = nil
	return nil
}

// Backup returns the backup service.
func (k *Kernel) Backup() in.BackupService { return k.backupSvc }

// Logger returns the process logger.
func (k *Kernel) Logger() zerowrap.Logger { return k.log }

// ActivityTail returns the last n activity log lines.
func (k *Kernel) ActivityTail(n int) ([]string, error) {
	if k.activity == nil {
		return nil, errors.New("activity log is not available")
	}
	return k.activity.Tail(n)
}

// LastConnectionTest returns the most recent connection test, or nil if none ran.
func (k *Kernel) LastConnectionTest(ctx context.Context) (*domain.ConnectionTestResult, error) {
	result, err := k.status.LastConnectionTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read connection test status: %w", err)
	}
	return result, nil
}
