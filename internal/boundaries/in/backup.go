// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (CLI, scheduler)
// and the business logic (use cases).
package in

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// BackupService defines backup orchestration use cases.
type BackupService interface {
	// Run executes one full backup run. It returns domain.ErrRunInProgress
	// without a result when another run holds the lock.
	Run(ctx context.Context, mode domain.RunMode) (*domain.RunResult, error)

	// History returns persisted run results, most recent first.
	History(ctx context.Context, limit int) ([]domain.RunResult, error)

	// TestConnection writes, reads back and deletes a test object.
	TestConnection(ctx context.Context) (*domain.ConnectionTestResult, error)

	// TestNotification sends a sample report regardless of the notify policy.
	TestNotification(ctx context.Context) error

	// State reports the orchestrator's current state.
	State() domain.RunState
}
