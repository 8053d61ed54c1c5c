package filesystem

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/bnema/siteback/internal/domain"
)

// RunLock is an advisory file lock that serializes runs across processes.
type RunLock struct {
	path string
}

// NewRunLock creates a lock backed by the file at path.
func NewRunLock(path string) (*RunLock, error) {
	path = ExpandTilde(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: create lock directory: %v", domain.ErrIO, err)
	}
	return &RunLock{path: path}, nil
}

// TryLock acquires the lock without blocking.
func (l *RunLock) TryLock() (func(), error) {
	fl := flock.New(l.path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: acquire run lock: %v", domain.ErrIO, err)
	}
	if !locked {
		return nil, domain.ErrRunInProgress
	}
	return func() { _ = fl.Unlock() }, nil
}
