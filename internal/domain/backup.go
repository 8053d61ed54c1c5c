package domain

import (
	"fmt"
	"time"
)

// ContentKind distinguishes what a category backs up.
type ContentKind string

const (
	KindDatabase  ContentKind = "database"
	KindDirectory ContentKind = "directory"
)

// DatabaseCategory is the category name used for the database dump.
const DatabaseCategory = "db"

// ArchiveTimestampLayout is the timestamp embedded in archive file names.
const ArchiveTimestampLayout = "20060102-150405"

// MaxHistoryEntries bounds the persisted run history.
const MaxHistoryEntries = 50

// Category is one unit of content to back up.
type Category struct {
	Name       string
	Kind       ContentKind
	SourcePath string
	Enabled    bool
}

// BackupJob tracks one category through a single run.
type BackupJob struct {
	Category         Category
	LocalArchivePath string
	RemoteKey        string
}

// ArchiveFileName builds {site}-{category}-{timestamp}.zip.
func ArchiveFileName(site, category string, ts time.Time) string {
	return fmt.Sprintf("%s-%s-%s.zip", site, category, ts.UTC().Format(ArchiveTimestampLayout))
}

// UploadOutcome is the result of exactly one PUT attempt.
type UploadOutcome struct {
	OK         bool
	HTTPStatus int
	Message    string
}

// RunStatus is the aggregate status of a run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusFailed  RunStatus = "FAILED"
)

// RunMode records what triggered a run.
type RunMode string

const (
	RunModeManual    RunMode = "manual"
	RunModeScheduled RunMode = "scheduled"
)

// RunState is the orchestrator's position in its state machine.
type RunState string

const (
	StateIdle       RunState = "idle"
	StateValidating RunState = "validating"
	StateProcessing RunState = "processing"
	StateRetaining  RunState = "retaining"
	StateFinalizing RunState = "finalizing"
)

// CategoryOutcome records what happened to one category in a run.
type CategoryOutcome struct {
	Category    string `json:"category"`
	ArchivePath string `json:"archive_path,omitempty"`
	RemoteKey   string `json:"remote_key,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	Archived    bool   `json:"archived"`
	Uploaded    bool   `json:"uploaded"`
	HTTPStatus  int    `json:"http_status,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Failed reports whether the category failed at the archive or upload stage.
func (o CategoryOutcome) Failed() bool {
	return !o.Archived || !o.Uploaded
}

// RunResult aggregates one orchestration run. It is not mutated once returned.
type RunResult struct {
	RunID           string            `json:"run_id"`
	Mode            RunMode           `json:"mode"`
	StartedAt       time.Time         `json:"started_at"`
	DurationSeconds float64           `json:"duration_seconds"`
	Status          RunStatus         `json:"status"`
	UploadedKeys    []string          `json:"uploaded_keys"`
	Message         string            `json:"message"`
	Categories      []CategoryOutcome `json:"categories,omitempty"`
}

// Succeeded reports whether the run finished with SUCCESS.
func (r RunResult) Succeeded() bool {
	return r.Status == RunStatusSuccess
}

// ConnectionTestResult is the outcome of a write/read/delete check.
type ConnectionTestResult struct {
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}
