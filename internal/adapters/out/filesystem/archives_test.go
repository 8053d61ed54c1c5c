package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/siteback/internal/domain"
)

func testCtx() context.Context {
	return zerowrap.WithCtx(context.Background(), zerowrap.Default())
}

func writeArchiveAt(t *testing.T, dir, site, category string, ts time.Time) string {
	t.Helper()
	path := filepath.Join(dir, domain.ArchiveFileName(site, category, ts))
	require.NoError(t, os.WriteFile(path, []byte("zip"), 0o600))
	require.NoError(t, os.Chtimes(path, ts, ts))
	return path
}

func TestLocalArchives_ApplyKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalArchives(dir)
	require.NoError(t, err)

	base := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeArchiveAt(t, dir, "example.com", "themes", base.Add(time.Duration(i)*time.Hour)))
	}
	other := writeArchiveAt(t, dir, "example.com", "plugins", base)

	deleted, err := store.Apply(testCtx(), dir, "example.com", "themes", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	for _, p := range paths[:3] {
		assert.NoFileExists(t, p)
	}
	assert.FileExists(t, paths[3])
	assert.FileExists(t, paths[4])
	assert.FileExists(t, other, "other categories are untouched")
}

func TestLocalArchives_ApplyOrdersByModTime(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalArchives(dir)
	require.NoError(t, err)

	base := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	newerName := writeArchiveAt(t, dir, "example.com", "db", base.Add(time.Hour))
	olderName := writeArchiveAt(t, dir, "example.com", "db", base)
	// The archive with the older name was touched last.
	require.NoError(t, os.Chtimes(olderName, base.Add(2*time.Hour), base.Add(2*time.Hour)))

	deleted, err := store.Apply(testCtx(), dir, "example.com", "db", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.FileExists(t, olderName)
	assert.NoFileExists(t, newerName)
}

func TestLocalArchives_ApplyIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalArchives(dir)
	require.NoError(t, err)

	ts := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	kept := writeArchiveAt(t, dir, "example.com", "themes", ts)
	lookalike := filepath.Join(dir, "example.com-themes-child-20260207-060000.zip")
	require.NoError(t, os.WriteFile(lookalike, []byte("x"), 0o600))
	notes := filepath.Join(dir, "example.com-themes-notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("x"), 0o600))

	deleted, err := store.Apply(testCtx(), dir, "example.com", "themes", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, kept)
	assert.FileExists(t, lookalike)
	assert.FileExists(t, notes)
}

func TestLocalArchives_ApplyFewerThanKeep(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalArchives(dir)
	require.NoError(t, err)

	writeArchiveAt(t, dir, "example.com", "db", time.Now())

	deleted, err := store.Apply(testCtx(), dir, "example.com", "db", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}

func TestLocalArchives_RemoveFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalArchives(dir)
	require.NoError(t, err)

	ts := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	a := writeArchiveAt(t, dir, "example.com", "db", ts)
	b := writeArchiveAt(t, dir, "example.com", "themes", ts)

	deleted, err := store.RemoveFiles(testCtx(), []string{a, b, filepath.Join(dir, "already-gone.zip")})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
}

func TestLocalArchives_RemoveFilesOutsideRoot(t *testing.T) {
	store, err := NewLocalArchives(t.TempDir())
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "x.zip")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o600))

	deleted, err := store.RemoveFiles(testCtx(), []string{outside})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRetention)
	assert.Equal(t, 0, deleted)
	assert.FileExists(t, outside)
}

func TestRetention_UsesDirectoryOfEachCall(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	ts := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	a := writeArchiveAt(t, first, "example.com", "db", ts)
	b := writeArchiveAt(t, second, "example.com", "db", ts)

	r := NewRetention()

	deleted, err := r.RemoveFiles(testCtx(), first, []string{a})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, a)

	deleted, err = r.RemoveFiles(testCtx(), first, []string{b})
	assert.ErrorIs(t, err, domain.ErrRetention)
	assert.Equal(t, 0, deleted)
	assert.FileExists(t, b)
}

func TestRetention_ApplyInDirectory(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 2, 7, 6, 0, 0, 0, time.UTC)
	old := writeArchiveAt(t, dir, "example.com", "themes", base)
	newest := writeArchiveAt(t, dir, "example.com", "themes", base.Add(time.Hour))
	require.NoError(t, os.Chtimes(old, base, base))
	require.NoError(t, os.Chtimes(newest, base.Add(time.Hour), base.Add(time.Hour)))

	deleted, err := NewRetention().Apply(testCtx(), dir, "example.com", "themes", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, old)
	assert.FileExists(t, newest)
}

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "backups"), ExpandTilde("~/backups"))
	assert.Equal(t, "/var/backups", ExpandTilde("/var/backups"))
}
