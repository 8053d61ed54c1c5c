package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/siteback/internal/domain"
)

// MockSettingsStore is a mock implementation of out.SettingsStore
type MockSettingsStore struct {
	mock.Mock
}

func (m *MockSettingsStore) Load(ctx context.Context) (domain.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Settings), args.Error(1)
}

// MockObjectStore is a mock implementation of out.ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, localPath, objectKey string, cfg domain.StorageConfig) domain.UploadOutcome {
	args := m.Called(ctx, localPath, objectKey, cfg)
	return args.Get(0).(domain.UploadOutcome)
}

func (m *MockObjectStore) GetObject(ctx context.Context, objectKey string, cfg domain.StorageConfig) ([]byte, domain.UploadOutcome) {
	args := m.Called(ctx, objectKey, cfg)
	if args.Get(0) == nil {
		return nil, args.Get(1).(domain.UploadOutcome)
	}
	return args.Get(0).([]byte), args.Get(1).(domain.UploadOutcome)
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, objectKey string, cfg domain.StorageConfig) domain.UploadOutcome {
	args := m.Called(ctx, objectKey, cfg)
	return args.Get(0).(domain.UploadOutcome)
}

// MockNotifier is a mock implementation of out.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, site string, cfg domain.NotifySettings, result domain.RunResult) error {
	args := m.Called(ctx, site, cfg, result)
	return args.Error(0)
}

func (m *MockNotifier) Send(ctx context.Context, site string, cfg domain.NotifySettings, result domain.RunResult) error {
	args := m.Called(ctx, site, cfg, result)
	return args.Error(0)
}

// MockHistoryStore is a mock implementation of out.HistoryStore
type MockHistoryStore struct {
	mock.Mock
}

func (m *MockHistoryStore) Append(ctx context.Context, result domain.RunResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockHistoryStore) List(ctx context.Context, limit int) ([]domain.RunResult, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RunResult), args.Error(1)
}

// MockStatusStore is a mock implementation of out.StatusStore
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) SaveConnectionTest(ctx context.Context, result domain.ConnectionTestResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockStatusStore) LastConnectionTest(ctx context.Context) (*domain.ConnectionTestResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConnectionTestResult), args.Error(1)
}

// MockRunLock is a mock implementation of out.RunLock
type MockRunLock struct {
	mock.Mock
}

func (m *MockRunLock) TryLock() (func(), error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// MockActivityLog is a mock implementation of out.ActivityLog
type MockActivityLog struct {
	mock.Mock
}

func (m *MockActivityLog) Record(ctx context.Context, level, message string, fields map[string]any) {
	m.Called(ctx, level, message, fields)
}

// MockBackupMetrics is a mock implementation of out.BackupMetrics
type MockBackupMetrics struct {
	mock.Mock
}

func (m *MockBackupMetrics) RecordRun(ctx context.Context, result domain.RunResult) {
	m.Called(ctx, result)
}

func (m *MockBackupMetrics) RecordUpload(ctx context.Context, category string, outcome domain.UploadOutcome, sizeBytes int64) {
	m.Called(ctx, category, outcome, sizeBytes)
}

// MockRetention is a mock implementation of out.Retention
type MockRetention struct {
	mock.Mock
}

func (m *MockRetention) Apply(ctx context.Context, dir, site, category string, keep int) (int, error) {
	args := m.Called(ctx, dir, site, category, keep)
	return args.Int(0), args.Error(1)
}

func (m *MockRetention) RemoveFiles(ctx context.Context, dir string, paths []string) (int, error) {
	args := m.Called(ctx, dir, paths)
	return args.Int(0), args.Error(1)
}

// MockArchiver is a mock implementation of out.Archiver
type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) DumpDatabase(ctx context.Context, db domain.DatabaseSettings, outputPath string) error {
	args := m.Called(ctx, db, outputPath)
	return args.Error(0)
}

func (m *MockArchiver) ArchiveDirectory(ctx context.Context, sourceDir, destZip, rootPrefix string) error {
	args := m.Called(ctx, sourceDir, destZip, rootPrefix)
	return args.Error(0)
}

func (m *MockArchiver) WrapDatabaseDump(ctx context.Context, sqlPath, destZip string) error {
	args := m.Called(ctx, sqlPath, destZip)
	return args.Error(0)
}
