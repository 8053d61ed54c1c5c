package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
	"github.com/bnema/siteback/pkg/validation"
)

// LocalArchives manages archive files in the local backup directory.
type LocalArchives struct {
	rootDir string
}

// NewLocalArchives creates the backup directory if needed.
func NewLocalArchives(rootDir string) (*LocalArchives, error) {
	rootDir = ExpandTilde(rootDir)

	if err := os.MkdirAll(rootDir, 0750); err != nil {
		return nil, fmt.Errorf("%w: failed to create backup directory: %v", domain.ErrIO, err)
	}

	return &LocalArchives{rootDir: rootDir}, nil
}

// Root returns the backup directory.
func (s *LocalArchives) Root() string {
	return s.rootDir
}

// ExpandTilde replaces a leading "~/" with the user's home directory.
func ExpandTilde(path string) string {
	return validation.ExpandHome(path)
}

// archiveFile is one archive found on disk.
type archiveFile struct {
	path    string
	modTime time.Time
}

// list returns the archives of one site and category, newest first.
// Only names of the form {site}-{category}-{timestamp}.zip match.
func (s *LocalArchives) list(dir, site, category string) ([]archiveFile, error) {
	prefix := site + "-" + category + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %v", domain.ErrIO, dir, err)
	}

	var files []archiveFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".zip") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".zip")
		if _, err := time.Parse(domain.ArchiveTimestampLayout, stamp); err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, archiveFile{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path > files[j].path
		}
		return files[i].modTime.After(files[j].modTime)
	})
	return files, nil
}

// Delete removes one archive inside the backup directory.
func (s *LocalArchives) Delete(path string) error {
	if err := validation.ValidatePathWithinRoot(s.rootDir, path); err != nil {
		return fmt.Errorf("archive %s: %w", filepath.Base(path), err)
	}
	return os.Remove(path)
}

// Apply keeps the keep most recently modified archives of one category and
// deletes the rest. Deletion failures are collected, never fatal to the loop.
func (s *LocalArchives) Apply(ctx context.Context, dir, site, category string, keep int) (int, error) {
	log := zerowrap.FromCtx(ctx)
	if keep < 0 {
		return 0, nil
	}

	files, err := s.list(dir, site, category)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRetention, err)
	}

	deleted := 0
	var errs []error
	for idx := keep; idx < len(files); idx++ {
		if err := s.Delete(files[idx].path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			log.Warn().Err(err).Str(zerowrap.FieldPath, files[idx].path).Msg("failed to delete old archive")
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(files[idx].path), err))
			continue
		}
		deleted++
	}

	if len(errs) > 0 {
		return deleted, fmt.Errorf("%w: %w", domain.ErrRetention, errors.Join(errs...))
	}
	return deleted, nil
}

// RemoveFiles deletes each path, continuing past failures.
func (s *LocalArchives) RemoveFiles(ctx context.Context, paths []string) (int, error) {
	log := zerowrap.FromCtx(ctx)

	deleted := 0
	var errs []error
	for _, p := range paths {
		if err := s.Delete(p); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			log.Warn().Err(err).Str(zerowrap.FieldPath, p).Msg("failed to delete archive")
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(p), err))
			continue
		}
		deleted++
	}

	if len(errs) > 0 {
		return deleted, fmt.Errorf("%w: %w", domain.ErrRetention, errors.Join(errs...))
	}
	return deleted, nil
}

// Retention implements the Retention port. The backup directory of each
// call is the containment root, so a run only prunes inside its own directory.
type Retention struct{}

var _ out.Retention = Retention{}

// NewRetention creates a Retention.
func NewRetention() Retention {
	return Retention{}
}

// Apply keeps the keep newest archives of one category in dir.
func (Retention) Apply(ctx context.Context, dir, site, category string, keep int) (int, error) {
	local, err := NewLocalArchives(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRetention, err)
	}
	return local.Apply(ctx, local.Root(), site, category, keep)
}

// RemoveFiles deletes paths, refusing any outside dir.
func (Retention) RemoveFiles(ctx context.Context, dir string, paths []string) (int, error) {
	local, err := NewLocalArchives(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrRetention, err)
	}
	return local.RemoveFiles(ctx, paths)
}
