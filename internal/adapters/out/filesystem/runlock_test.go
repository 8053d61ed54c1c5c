package filesystem

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
)

func TestRunLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	first, err := NewRunLock(path)
	require.NoError(t, err)
	second, err := NewRunLock(path)
	require.NoError(t, err)

	release, err := first.TryLock()
	require.NoError(t, err)

	_, err = second.TryLock()
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	release()

	release, err = second.TryLock()
	require.NoError(t, err)
	release()
}
