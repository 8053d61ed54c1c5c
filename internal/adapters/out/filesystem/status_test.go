package filesystem

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
)

func TestStatusFile_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "connection.json")
	store, err := NewStatusFile(path)
	require.NoError(t, err)

	last, err := store.LastConnectionTest(testCtx())
	require.NoError(t, err)
	assert.Nil(t, last)

	checked := time.Date(2026, 2, 7, 11, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveConnectionTest(testCtx(), domain.ConnectionTestResult{OK: true, Message: "write, read and delete succeeded", CheckedAt: checked}))
	require.NoError(t, store.SaveConnectionTest(testCtx(), domain.ConnectionTestResult{OK: false, Message: "HTTP 403", CheckedAt: checked.Add(time.Minute)}))

	last, err = store.LastConnectionTest(testCtx())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.False(t, last.OK)
	assert.Equal(t, "HTTP 403", last.Message)
	assert.True(t, last.CheckedAt.Equal(checked.Add(time.Minute)))
}

func TestStatusFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connection.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := NewStatusFile(path)
	require.NoError(t, err)

	_, err = store.LastConnectionTest(testCtx())
	assert.Error(t, err)
}
