package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bnema/siteback/internal/domain"
)

// DatabaseEntryName is the single entry of a wrapped database dump.
const DatabaseEntryName = "database.sql"

// zipDirectory writes every file and directory under sourceDir into destZip
// as rootPrefix/<relative path>. Directories, including empty ones, get
// entries ending in "/". It returns the number of files written.
func zipDirectory(sourceDir, destZip, rootPrefix string) (files int, err error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return 0, fmt.Errorf("%w: source %s: %v", domain.ErrIO, sourceDir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: source %s is not a directory", domain.ErrIO, sourceDir)
	}

	err = writeZip(destZip, func(w *zip.Writer) error {
		return filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			rel, err := filepath.Rel(sourceDir, p)
			if err != nil {
				return err
			}
			if rel == "." {
				return nil
			}

			if d.IsDir() {
				return addDirEntry(w, d, entryName(rootPrefix, rel)+"/")
			}
			if !d.Type().IsRegular() || filepath.Clean(p) == filepath.Clean(destZip) {
				// Symlinks, special files and the archive itself are skipped.
				return nil
			}
			if err := addFileEntry(w, p, entryName(rootPrefix, rel)); err != nil {
				return err
			}
			files++
			return nil
		})
	})
	return files, err
}

// zipSingleFile stores src as entryName in destZip.
func zipSingleFile(src, destZip, entryName string) error {
	return writeZip(destZip, func(w *zip.Writer) error {
		return addFileEntry(w, src, entryName)
	})
}

// writeZip creates destZip, runs fill and removes the partial file on failure.
func writeZip(destZip string, fill func(*zip.Writer) error) error {
	f, err := os.Create(destZip)
	if err != nil {
		return fmt.Errorf("%w: create archive: %v", domain.ErrIO, err)
	}

	w := zip.NewWriter(f)
	if err := fill(w); err != nil {
		_ = w.Close()
		_ = f.Close()
		_ = os.Remove(destZip)
		return fmt.Errorf("%w: write archive: %v", domain.ErrIO, err)
	}

	if err := w.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(destZip)
		return fmt.Errorf("%w: finalise archive: %v", domain.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(destZip)
		return fmt.Errorf("%w: close archive: %v", domain.ErrIO, err)
	}
	return nil
}

func addDirEntry(w *zip.Writer, d fs.DirEntry, name string) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("prepare archive header: %w", err)
	}
	header.Name = name
	header.Method = zip.Store
	_, err = w.CreateHeader(header)
	return err
}

func addFileEntry(w *zip.Writer, src, name string) error {
	file, err := os.Open(src)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("prepare archive header: %w", err)
	}
	header.Name = name
	header.Method = zip.Deflate

	entry, err := w.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}

// entryName joins rootPrefix and a relative OS path with forward slashes.
func entryName(rootPrefix, rel string) string {
	rel = filepath.ToSlash(rel)
	prefix := strings.Trim(filepath.ToSlash(rootPrefix), "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}
