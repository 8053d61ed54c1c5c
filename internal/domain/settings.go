package domain

import (
	"fmt"
	"strings"
)

// DBDriver identifies the database engine behind the database category.
type DBDriver string

const (
	DriverMySQL    DBDriver = "mysql"
	DriverPostgres DBDriver = "postgres"
	DriverSQLite   DBDriver = "sqlite"
)

// Dump tool selection values.
const (
	DumpToolAuto = "auto"
	DumpToolNone = "none"
)

// DatabaseSettings configures the database category.
type DatabaseSettings struct {
	Enabled  bool
	Driver   DBDriver
	DSN      string
	DumpTool string
}

// NotifyPolicy decides which results the notifier reports.
type NotifyPolicy string

const (
	NotifyAlways    NotifyPolicy = "always"
	NotifyOnSuccess NotifyPolicy = "success"
	NotifyOnFailure NotifyPolicy = "failure"
)

// Allows reports whether a result with the given status should be reported.
func (p NotifyPolicy) Allows(status RunStatus) bool {
	switch p {
	case NotifyOnSuccess:
		return status == RunStatusSuccess
	case NotifyOnFailure:
		return status == RunStatusFailed
	default:
		return true
	}
}

// NotifySettings configures the mail notifier.
type NotifySettings struct {
	Enabled  bool
	On       NotifyPolicy
	To       string
	From     string
	SMTPHost string
	SMTPPort int
	Username string
	Password string
}

// ScheduleSettings configures the recurring trigger.
type ScheduleSettings struct {
	Preset BackupSchedule
	At     string
}

// Settings is the immutable snapshot a run works from.
type Settings struct {
	Site        string
	BackupDir   string
	KeepLocal   int
	Storage     StorageConfig
	Database    DatabaseSettings
	Directories []Category
	Schedule    ScheduleSettings
	Notify      NotifySettings
}

// Categories returns the enabled categories in processing order:
// database first, then directory trees in configured order.
func (s Settings) Categories() []Category {
	cats := make([]Category, 0, len(s.Directories)+1)
	if s.Database.Enabled {
		cats = append(cats, Category{Name: DatabaseCategory, Kind: KindDatabase, Enabled: true})
	}
	for _, d := range s.Directories {
		if !d.Enabled {
			continue
		}
		d.Kind = KindDirectory
		cats = append(cats, d)
	}
	return cats
}

// Validate checks the settings a run needs, returning the first problem found.
func (s Settings) Validate() error {
	if err := s.Storage.Normalize().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Site) == "" {
		return &ConfigError{Field: "backup.site", Reason: "is required"}
	}
	if strings.TrimSpace(s.BackupDir) == "" {
		return &ConfigError{Field: "backup.dir", Reason: "is required"}
	}
	if s.KeepLocal < 0 {
		return &ConfigError{Field: "backup.keep_local", Reason: fmt.Sprintf("must be >= 0, got %d", s.KeepLocal)}
	}
	if s.Database.Enabled {
		switch s.Database.Driver {
		case DriverMySQL, DriverPostgres, DriverSQLite:
		default:
			return &ConfigError{Field: "database.driver", Reason: fmt.Sprintf("unsupported value %q", s.Database.Driver)}
		}
		if strings.TrimSpace(s.Database.DSN) == "" {
			return &ConfigError{Field: "database.dsn", Reason: "is required"}
		}
	}

	seen := make(map[string]bool, len(s.Directories))
	for i, d := range s.Directories {
		if !d.Enabled {
			continue
		}
		if strings.TrimSpace(d.Name) == "" {
			return &ConfigError{Field: fmt.Sprintf("directories[%d].name", i), Reason: "is required"}
		}
		if d.Name == DatabaseCategory || seen[d.Name] {
			return &ConfigError{Field: fmt.Sprintf("directories[%d].name", i), Reason: fmt.Sprintf("%q is already used", d.Name)}
		}
		seen[d.Name] = true
		if strings.TrimSpace(d.SourcePath) == "" {
			return &ConfigError{Field: fmt.Sprintf("directories[%d].path", i), Reason: "is required"}
		}
	}

	if len(s.Categories()) == 0 {
		return &ConfigError{Field: "backup", Reason: "has nothing selected to back up"}
	}

	return nil
}
