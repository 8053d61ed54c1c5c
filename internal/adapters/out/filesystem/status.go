package filesystem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/bnema/siteback/internal/domain"
)

// StatusFile persists the last connection test as JSON. Writes replace the
// file atomically so readers never see a partial document.
type StatusFile struct {
	path string
}

// NewStatusFile creates a status store at path.
func NewStatusFile(path string) (*StatusFile, error) {
	path = ExpandTilde(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: create status directory: %v", domain.ErrIO, err)
	}
	return &StatusFile{path: path}, nil
}

// SaveConnectionTest stores result, replacing any previous one.
func (s *StatusFile) SaveConnectionTest(_ context.Context, result domain.ConnectionTestResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode connection status: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: write connection status: %v", domain.ErrIO, err)
	}
	return nil
}

// LastConnectionTest returns the stored result, or nil when none exists.
func (s *StatusFile) LastConnectionTest(_ context.Context) (*domain.ConnectionTestResult, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read connection status: %v", domain.ErrIO, err)
	}

	var result domain.ConnectionTestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode connection status: %w", err)
	}
	return &result, nil
}
