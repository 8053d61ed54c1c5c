// Package archive implements the Archiver port: database dumps and
// directory trees packed into zip files in the local backup directory.
package archive

import (
	"context"
	"fmt"
	"os"

	"github.com/bnema/zerowrap"
	"github.com/dustin/go-humanize"

	"github.com/bnema/siteback/internal/boundaries/out"
	"github.com/bnema/siteback/internal/domain"
)

// Dumper writes a SQL dump to a path.
type Dumper interface {
	Dump(ctx context.Context, outputPath string) error
}

// DumperFactory builds the dumper for one run's database settings.
type DumperFactory func(db domain.DatabaseSettings) Dumper

// Archiver packs categories into zip archives.
type Archiver struct {
	dumperFor DumperFactory
}

var _ out.Archiver = (*Archiver)(nil)

// NewArchiver creates an Archiver. dumperFor may be nil when no database
// category is ever configured.
func NewArchiver(dumperFor DumperFactory) *Archiver {
	return &Archiver{dumperFor: dumperFor}
}

// DumpDatabase writes the SQL dump of db to outputPath.
func (a *Archiver) DumpDatabase(ctx context.Context, db domain.DatabaseSettings, outputPath string) error {
	if a.dumperFor == nil || !db.Enabled {
		return fmt.Errorf("%w: no database configured", domain.ErrDump)
	}
	dumper := a.dumperFor(db)
	if dumper == nil {
		return fmt.Errorf("%w: no dump strategy for driver %q", domain.ErrDump, db.Driver)
	}
	return dumper.Dump(ctx, outputPath)
}

// ArchiveDirectory zips sourceDir into destZip under rootPrefix.
func (a *Archiver) ArchiveDirectory(ctx context.Context, sourceDir, destZip, rootPrefix string) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "archive",
		zerowrap.FieldPath:    sourceDir,
	})
	log := zerowrap.FromCtx(ctx)

	files, err := zipDirectory(sourceDir, destZip, rootPrefix)
	if err != nil {
		return err
	}

	log.Debug().
		Int(zerowrap.FieldCount, files).
		Str(zerowrap.FieldSize, humanSize(destZip)).
		Msg("directory archived")
	return nil
}

// WrapDatabaseDump stores sqlPath as database.sql in destZip. sqlPath is
// removed whether or not wrapping succeeds.
func (a *Archiver) WrapDatabaseDump(ctx context.Context, sqlPath, destZip string) error {
	defer func() {
		if err := os.Remove(sqlPath); err != nil && !os.IsNotExist(err) {
			log := zerowrap.FromCtx(ctx)
			log.Warn().Err(err).Str(zerowrap.FieldPath, sqlPath).Msg("failed to remove raw dump")
		}
	}()

	if err := zipSingleFile(sqlPath, destZip, DatabaseEntryName); err != nil {
		return err
	}
	return nil
}

func humanSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "unknown"
	}
	return humanize.Bytes(uint64(info.Size()))
}
