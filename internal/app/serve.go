package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/siteback/internal/domain"
	"github.com/bnema/siteback/internal/usecase/cron"
)

// ServeOptions tunes long-running mode.
type ServeOptions struct {
	// Tick is how often the scheduler checks for a due backup. Zero keeps
	// the scheduler default.
	Tick time.Duration

	// RunNow starts one backup immediately instead of waiting for the schedule.
	RunNow bool

	// OnSchedule receives the next backup time whenever the schedule is
	// applied. The zero time means scheduled backups are off.
	OnSchedule func(next time.Time)
}

// Serve runs the scheduler until SIGINT or SIGTERM. Config file changes
// reload the settings and move the backup entry to the new schedule.
func (k *Kernel) Serve(ctx context.Context, opts ServeOptions) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = zerowrap.CtxWithFields(k.Context(ctx), map[string]any{
		zerowrap.FieldLayer:  "app",
		zerowrap.FieldAction: "serve",
	})
	log := zerowrap.FromCtx(ctx)

	current, err := k.settings.Load(ctx)
	if err != nil {
		return err
	}

	scheduler := cron.NewScheduler(log, cron.WithTick(opts.Tick))
	job := cron.BackupJob(k.backupSvc, log)

	report := func() {
		if opts.OnSchedule == nil {
			return
		}
		next, _ := scheduler.Next(cron.BackupJobID)
		opts.OnSchedule(next)
	}

	if err := k.applySchedule(ctx, scheduler, job, current.Schedule); err != nil {
		return err
	}
	report()

	k.settings.Watch(ctx, func(s domain.Settings) {
		if err := k.applySchedule(ctx, scheduler, job, s.Schedule); err != nil {
			log.Warn().Err(err).Msg("schedule not updated")
			return
		}
		report()
	})

	scheduler.Start(ctx)
	defer scheduler.Stop()

	if opts.RunNow {
		go k.runImmediately(ctx, scheduler, job)
	}

	log.Info().Msg("siteback is running, waiting for scheduled backups")
	<-ctx.Done()
	log.Info().Msg("shutting down")

	return nil
}

// runImmediately triggers the backup entry, or the bare job when no
// schedule is registered.
func (k *Kernel) runImmediately(ctx context.Context, scheduler *cron.Scheduler, job func(context.Context) error) {
	log := zerowrap.FromCtx(ctx)

	var err error
	if _, ok := scheduler.Next(cron.BackupJobID); ok {
		err = scheduler.RunNow(ctx, cron.BackupJobID)
	} else {
		err = job(ctx)
	}
	if err != nil {
		log.Warn().Err(err).Msg("immediate backup failed")
	}
}

// applySchedule registers, moves or removes the backup entry so that it
// matches settings.
func (k *Kernel) applySchedule(ctx context.Context, scheduler *cron.Scheduler, job func(context.Context) error, settings domain.ScheduleSettings) error {
	log := zerowrap.FromCtx(ctx)

	sched, err := settings.CronSchedule()
	if err != nil {
		return err
	}

	_, registered := scheduler.Next(cron.BackupJobID)

	switch {
	case sched.Preset == domain.ScheduleNone:
		if !registered {
			log.Info().Msg("no backup schedule configured")
			return nil
		}
		if err := scheduler.Remove(cron.BackupJobID); err != nil {
			if errors.Is(err, cron.ErrJobRunning) {
				log.Warn().Msg("backup is running, schedule removal deferred to the next reload")
			}
			return err
		}
		log.Info().Msg("backup schedule removed")
	case registered:
		if err := scheduler.Reschedule(cron.BackupJobID, sched); err != nil {
			return err
		}
		log.Info().Str("preset", string(sched.Preset)).Int("hour", sched.Hour).Int("minute", sched.Minute).Msg("backup rescheduled")
	default:
		if err := scheduler.Add(cron.BackupJobID, "scheduled backup", sched, job); err != nil {
			return err
		}
		log.Info().Str("preset", string(sched.Preset)).Int("hour", sched.Hour).Int("minute", sched.Minute).Msg("backup scheduled")
	}

	return nil
}
