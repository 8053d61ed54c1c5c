// Package cron implements the recurring trigger for scheduled backup runs.
package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/siteback/internal/boundaries/in"
	"github.com/bnema/siteback/internal/domain"
)

const (
	// BackupJobID is the entry id used for the scheduled backup.
	BackupJobID = "backup"

	// DefaultTick is how often due entries are checked.
	DefaultTick = 30 * time.Second
)

// ErrJobRunning is returned when an entry is modified or triggered while it runs.
var ErrJobRunning = errors.New("schedule is already running")

// Scheduler runs recurring jobs based on backup schedules.
type Scheduler struct {
	entries map[string]*entry
	mu      sync.RWMutex
	stopCh  chan struct{}
	stopped atomic.Bool
	started atomic.Bool
	log     zerowrap.Logger
	nowFn   func() time.Time
	tick    time.Duration
}

type entry struct {
	id       string
	name     string
	schedule domain.CronSchedule
	job      func(ctx context.Context) error
	lastRun  time.Time
	nextRun  time.Time
	running  atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTick sets how often due entries are checked.
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// NewScheduler creates a scheduler instance.
func NewScheduler(log zerowrap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
		log:     log,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
		tick: DefaultTick,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers a new scheduled job.
func (s *Scheduler) Add(id, name string, sched domain.CronSchedule, job func(ctx context.Context) error) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if job == nil {
		return fmt.Errorf("job is required")
	}

	nextRun, err := calculateNextRun(s.nowFn(), sched)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; exists {
		return fmt.Errorf("schedule %q already exists", id)
	}

	s.entries[id] = &entry{
		id:       id,
		name:     name,
		schedule: sched,
		job:      job,
		nextRun:  nextRun,
	}

	return nil
}

// Reschedule replaces the schedule of a registered job. The next run is
// recomputed from now; a run in progress keeps going.
func (s *Scheduler) Reschedule(id string, sched domain.CronSchedule) error {
	nextRun, err := calculateNextRun(s.nowFn(), sched)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("schedule %q not found", id)
	}
	e.schedule = sched
	e.nextRun = nextRun
	return nil
}

// Remove unregisters a scheduled job. A running job cannot be removed.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if e.running.Load() {
		return fmt.Errorf("remove %q: %w", id, ErrJobRunning)
	}
	delete(s.entries, id)
	return nil
}

// Start begins the scheduler loop. It is a no-op once stopped or when ctx
// is already done.
func (s *Scheduler) Start(ctx context.Context) {
	if s.stopped.Load() || ctx.Err() != nil {
		return
	}
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	ticker := time.NewTicker(s.tick)
	go func() {
		defer ticker.Stop()
		defer s.started.Store(false)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.runDue(ctx)
			}
		}
	}()
}

// Stop stops the scheduler loop.
func (s *Scheduler) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
}

// List returns current scheduler entries.
func (s *Scheduler) List() []domain.CronEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]domain.CronEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, domain.CronEntry{
			ID:       e.id,
			Name:     e.name,
			Schedule: e.schedule,
			LastRun:  e.lastRun,
			NextRun:  e.nextRun,
			Running:  e.running.Load(),
		})
	}

	return entries
}

// Next returns the next run time of entry id.
func (s *Scheduler) Next(id string) (time.Time, bool) {
	for _, e := range s.List() {
		if e.ID == id {
			return e.NextRun, true
		}
	}
	return time.Time{}, false
}

// RunNow triggers a registered job immediately.
func (s *Scheduler) RunNow(ctx context.Context, id string) error {
	e := s.getEntry(id)
	if e == nil {
		return fmt.Errorf("schedule %q not found", id)
	}

	return s.executeEntry(ctx, e)
}

func (s *Scheduler) runDue(ctx context.Context) {
	now := s.nowFn()
	for _, e := range s.snapshotEntries() {
		s.mu.RLock()
		due := !now.Before(e.nextRun)
		s.mu.RUnlock()
		if !due || e.running.Load() {
			continue
		}

		e := e
		go func() {
			if err := s.executeEntry(ctx, e); err != nil {
				s.log.Warn().Err(err).Str("schedule_id", e.id).Msg("scheduled job failed")
			}
		}()
	}
}

func (s *Scheduler) executeEntry(ctx context.Context, e *entry) (err error) {
	if !e.running.CompareAndSwap(false, true) {
		return fmt.Errorf("schedule %q: %w", e.id, ErrJobRunning)
	}
	defer e.running.Store(false)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("schedule %q: job panic: %v", e.id, r)
		}

		finished := s.nowFn()
		s.mu.Lock()
		e.lastRun = finished
		if next, nextErr := calculateNextRun(finished, e.schedule); nextErr == nil {
			e.nextRun = next
		}
		s.mu.Unlock()
	}()

	return e.job(ctx)
}

func (s *Scheduler) getEntry(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[id]
}

func (s *Scheduler) snapshotEntries() []*entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	return entries
}

// BackupJob adapts the backup service into a scheduler job. A run rejected
// because another one holds the lock is logged and skipped, not failed.
func BackupJob(svc in.BackupService, log zerowrap.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx = zerowrap.WithCtx(ctx, log)
		result, err := svc.Run(ctx, domain.RunModeScheduled)
		if errors.Is(err, domain.ErrRunInProgress) {
			log.Info().Msg("scheduled backup skipped, a run is already in progress")
			return nil
		}
		if err != nil {
			return err
		}
		if !result.Succeeded() {
			return fmt.Errorf("scheduled backup finished with status %s", result.Status)
		}
		return nil
	}
}

func calculateNextRun(now time.Time, schedule domain.CronSchedule) (time.Time, error) {
	now = now.UTC()
	hour, minute := schedule.Hour, schedule.Minute

	switch schedule.Preset {
	case domain.ScheduleHourly:
		next := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(time.Hour)
		}
		return next, nil
	case domain.ScheduleDaily:
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil
	case domain.ScheduleWeekly:
		daysUntilSunday := (7 - int(now.Weekday())) % 7
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC).AddDate(0, 0, daysUntilSunday)
		if !next.After(now) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil
	case domain.ScheduleMonthly:
		next := time.Date(now.Year(), now.Month(), 1, hour, minute, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.AddDate(0, 1, 0)
		}
		return next, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported schedule preset: %q", schedule.Preset)
	}
}
