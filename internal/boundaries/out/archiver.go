package out

import (
	"context"

	"github.com/bnema/siteback/internal/domain"
)

// Archiver produces the local archives a run uploads.
type Archiver interface {
	// DumpDatabase writes a SQL dump of db to outputPath.
	DumpDatabase(ctx context.Context, db domain.DatabaseSettings, outputPath string) error

	// ArchiveDirectory zips sourceDir into destZip, placing entries under rootPrefix.
	ArchiveDirectory(ctx context.Context, sourceDir, destZip, rootPrefix string) error

	// WrapDatabaseDump stores sqlPath as database.sql inside destZip and
	// removes sqlPath whatever the outcome.
	WrapDatabaseDump(ctx context.Context, sqlPath, destZip string) error
}

// DatabaseDumper is one strategy for producing a SQL dump.
type DatabaseDumper interface {
	// Name identifies the strategy in logs.
	Name() string

	// Available reports whether the strategy can run in this environment.
	Available(ctx context.Context) bool

	// Dump writes the SQL dump to outputPath.
	Dump(ctx context.Context, outputPath string) error
}
