package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// BackupSchedule is a recurring schedule preset.
type BackupSchedule string

const (
	ScheduleNone    BackupSchedule = ""
	ScheduleHourly  BackupSchedule = "hourly"
	ScheduleDaily   BackupSchedule = "daily"
	ScheduleWeekly  BackupSchedule = "weekly"
	ScheduleMonthly BackupSchedule = "monthly"
)

// CronSchedule represents a recurring schedule.
// Hour and Minute anchor daily, weekly and monthly presets (UTC); hourly
// presets only use Minute.
type CronSchedule struct {
	Preset BackupSchedule
	Hour   int
	Minute int
}

// DefaultCronSchedule returns the preset at its default anchor: hourly on
// the hour, daily at 02:00, weekly on Sunday at 03:00, monthly on the 1st at 04:00.
func DefaultCronSchedule(preset BackupSchedule) CronSchedule {
	switch preset {
	case ScheduleDaily:
		return CronSchedule{Preset: preset, Hour: 2}
	case ScheduleWeekly:
		return CronSchedule{Preset: preset, Hour: 3}
	case ScheduleMonthly:
		return CronSchedule{Preset: preset, Hour: 4}
	default:
		return CronSchedule{Preset: preset}
	}
}

// CronSchedule converts the configured preset and optional "HH:MM" anchor.
// An empty, "none" or "off" preset yields a zero schedule and no error.
func (s ScheduleSettings) CronSchedule() (CronSchedule, error) {
	switch s.Preset {
	case ScheduleNone, "none", "off":
		return CronSchedule{}, nil
	case ScheduleHourly, ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
	default:
		return CronSchedule{}, &ConfigError{Field: "schedule.preset", Reason: fmt.Sprintf("unsupported value %q", s.Preset)}
	}

	sched := DefaultCronSchedule(s.Preset)
	at := strings.TrimSpace(s.At)
	if at == "" {
		return sched, nil
	}

	hour, minute, err := parseClock(at)
	if err != nil {
		return CronSchedule{}, &ConfigError{Field: "schedule.at", Reason: err.Error()}
	}
	sched.Hour, sched.Minute = hour, minute
	return sched, nil
}

func parseClock(at string) (int, int, error) {
	hh, mm, ok := strings.Cut(at, ":")
	if !ok {
		return 0, 0, fmt.Errorf("must be HH:MM, got %q", at)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("hour must be 00-23, got %q", at)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("minute must be 00-59, got %q", at)
	}
	return hour, minute, nil
}

// CronEntry represents a registered cron job.
type CronEntry struct {
	ID       string
	Name     string
	Schedule CronSchedule
	LastRun  time.Time
	NextRun  time.Time
	Running  bool
}
