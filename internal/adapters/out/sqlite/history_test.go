package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
)

func result(i int) domain.RunResult {
	return domain.RunResult{
		RunID:           fmt.Sprintf("run-%02d", i),
		Mode:            domain.RunModeScheduled,
		StartedAt:       time.Date(2026, 2, 7, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		DurationSeconds: 1.5,
		Status:          domain.RunStatusSuccess,
		UploadedKeys:    []string{"backups/db/x.zip"},
		Message:         "ok",
	}
}

func TestHistoryStore_AppendAndList(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, result(i)))
	}

	got, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "run-02", got[0].RunID)
	assert.Equal(t, "run-00", got[2].RunID)
	assert.Equal(t, []string{"backups/db/x.zip"}, got[0].UploadedKeys)

	got, err = store.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "run-02", got[0].RunID)
}

func TestHistoryStore_EvictsOldest(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < domain.MaxHistoryEntries+5; i++ {
		require.NoError(t, store.Append(ctx, result(i)))
	}

	got, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, domain.MaxHistoryEntries)
	assert.Equal(t, fmt.Sprintf("run-%02d", domain.MaxHistoryEntries+4), got[0].RunID)
	assert.Equal(t, "run-05", got[len(got)-1].RunID)
}

func TestHistoryStore_CustomCapAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, WithCap(2))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, result(i)))
	}
	require.NoError(t, store.Close())

	reopened, err := Open(path, WithCap(2))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-03", got[0].RunID)
}

func TestHistoryStore_InMemory(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	got, err := store.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
