package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
	"github.com/bnema/siteback/internal/usecase/cron"
)

type bucketServer struct {
	mu   sync.Mutex
	puts []string
}

func (b *bucketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Method == http.MethodPut {
		_, _ = io.Copy(io.Discard, r.Body)
		b.puts = append(b.puts, r.URL.Path)
	}
	w.WriteHeader(http.StatusOK)
}

func writeKernelConfig(t *testing.T, endpoint string) (string, string) {
	t.Helper()

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "data")
	themes := filepath.Join(tmpDir, "themes")
	require.NoError(t, os.MkdirAll(filepath.Join(themes, "twentyone"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(themes, "twentyone", "style.css"), []byte("body{}"), 0o644))

	cfg := fmt.Sprintf(`data_dir: %q
logging:
  level: warn
backup:
  site: example.com
  keep_local: 1
storage:
  endpoint: %q
  bucket: site-backups
  access_key: AKIAEXAMPLE
  secret_key: not-a-real-secret
directories:
  - name: themes
    path: %q
schedule:
  preset: daily
  at: "01:15"
`, dataDir, endpoint, themes)

	cfgPath := filepath.Join(tmpDir, "siteback.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, dataDir
}

func TestNewKernel(t *testing.T) {
	cfgPath, dataDir := writeKernelConfig(t, "http://127.0.0.1:1")

	kernel, err := NewKernel(context.Background(), cfgPath)
	require.NoError(t, err)
	require.NotNil(t, kernel)
	t.Cleanup(func() { require.NoError(t, kernel.Close()) })

	assert.Equal(t, dataDir, kernel.cfg.DataDir)
	assert.NotNil(t, kernel.Backup())
	assert.Equal(t, domain.StateIdle, kernel.Backup().State())
	assert.FileExists(t, filepath.Join(dataDir, "history.db"))
}

func TestKernel_RunUploadsAndRecords(t *testing.T) {
	bucket := &bucketServer{}
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	cfgPath, dataDir := writeKernelConfig(t, srv.URL)
	kernel, err := NewKernel(context.Background(), cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kernel.Close() })

	ctx := kernel.Context(context.Background())
	result, err := kernel.Backup().Run(ctx, domain.RunModeManual)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, result.Status, result.Message)
	require.Len(t, bucket.puts, 1)
	assert.Contains(t, bucket.puts[0], "/site-backups/backups/themes/example.com-themes-")

	history, err := kernel.Backup().History(ctx, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.RunID, history[0].RunID)

	lines, err := kernel.ActivityTail(20)
	require.NoError(t, err)
	assert.NotEmpty(t, lines)
	for _, line := range lines {
		assert.NotContains(t, line, "not-a-real-secret")
	}

	archives, err := os.ReadDir(filepath.Join(dataDir, "archives"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestKernel_ApplySchedule(t *testing.T) {
	cfgPath, _ := writeKernelConfig(t, "http://127.0.0.1:1")
	kernel, err := NewKernel(context.Background(), cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kernel.Close() })

	ctx := kernel.Context(context.Background())
	scheduler := cron.NewScheduler(kernel.Logger())
	job := func(context.Context) error { return nil }

	require.NoError(t, kernel.applySchedule(ctx, scheduler, job, domain.ScheduleSettings{Preset: domain.ScheduleDaily, At: "01:15"}))
	entries := scheduler.List()
	require.Len(t, entries, 1)
	assert.Equal(t, cron.BackupJobID, entries[0].ID)
	assert.Equal(t, 1, entries[0].Schedule.Hour)
	assert.Equal(t, 15, entries[0].Schedule.Minute)

	require.NoError(t, kernel.applySchedule(ctx, scheduler, job, domain.ScheduleSettings{Preset: domain.ScheduleHourly}))
	entries = scheduler.List()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ScheduleHourly, entries[0].Schedule.Preset)

	require.NoError(t, kernel.applySchedule(ctx, scheduler, job, domain.ScheduleSettings{Preset: "none"}))
	assert.Empty(t, scheduler.List())

	err = kernel.applySchedule(ctx, scheduler, job, domain.ScheduleSettings{Preset: "fortnightly"})
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "schedule.preset", cfgErr.Field)
}

func TestKernel_ServeReportsNextRun(t *testing.T) {
	cfgPath, _ := writeKernelConfig(t, "http://127.0.0.1:1")
	kernel, err := NewKernel(context.Background(), cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kernel.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var next time.Time
	err = kernel.Serve(ctx, ServeOptions{
		Tick: time.Hour,
		OnSchedule: func(at time.Time) {
			next = at
			cancel()
		},
	})
	require.NoError(t, err)

	require.False(t, next.IsZero())
	assert.Equal(t, 1, next.Hour())
	assert.Equal(t, 15, next.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestKernel_RunImmediately(t *testing.T) {
	cfgPath, _ := writeKernelConfig(t, "http://127.0.0.1:1")
	kernel, err := NewKernel(context.Background(), cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kernel.Close() })

	ctx := kernel.Context(context.Background())
	scheduler := cron.NewScheduler(kernel.Logger())
	runs := 0
	job := func(context.Context) error {
		runs++
		return nil
	}

	kernel.runImmediately(ctx, scheduler, job)
	assert.Equal(t, 1, runs)

	require.NoError(t, kernel.applySchedule(ctx, scheduler, job, domain.ScheduleSettings{Preset: domain.ScheduleDaily}))
	kernel.runImmediately(ctx, scheduler, job)
	assert.Equal(t, 2, runs)

	entries := scheduler.List()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].LastRun.IsZero())
}
