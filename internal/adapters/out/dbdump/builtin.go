package dbdump

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	// database/sql drivers for the built-in dump.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/bnema/siteback/internal/domain"
)

// Builtin dumps a database through database/sql. It needs no external tool
// but gives no cross-table snapshot guarantee.
type Builtin struct {
	driver domain.DBDriver
	dsn    string
	now    func() time.Time
}

// NewBuiltin creates the built-in dump strategy.
func NewBuiltin(driver domain.DBDriver, dsn string) *Builtin {
	return &Builtin{driver: driver, dsn: dsn, now: time.Now}
}

// Name identifies the strategy.
func (b *Builtin) Name() string { return "builtin" }

// Available always reports true for a supported driver.
func (b *Builtin) Available(_ context.Context) bool {
	_, err := dialectFor(b.driver)
	return err == nil
}

// Dump writes DROP/CREATE/INSERT statements for every table to outputPath.
func (b *Builtin) Dump(ctx context.Context, outputPath string) error {
	log := zerowrap.FromCtx(ctx)

	d, err := dialectFor(b.driver)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDump, err)
	}

	db, err := sql.Open(d.sqlDriver(), b.dsn)
	if err != nil {
		return fmt.Errorf("%w: open database: %v", domain.ErrDump, err)
	}
	defer db.Close()

	tables, err := d.listTables(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: list tables: %v", domain.ErrDump, err)
	}
	if len(tables) == 0 {
		return fmt.Errorf("%w: no tables found", domain.ErrDump)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: create dump file: %v", domain.ErrIO, err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "-- siteback database dump (%s)\n", b.driver)
	fmt.Fprintf(w, "-- Generated: %s\n\n", b.now().UTC().Format("2006-01-02 15:04:05"))

	var rowCount int
	for _, table := range tables {
		n, err := b.dumpTable(ctx, db, d, table, w)
		if err != nil {
			_ = f.Close()
			return fmt.Errorf("%w: table %s: %v", domain.ErrDump, table, err)
		}
		rowCount += n
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("%w: write dump file: %v", domain.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close dump file: %v", domain.ErrIO, err)
	}

	log.Debug().Int(zerowrap.FieldCount, len(tables)).Int("rows", rowCount).Msg("built-in dump written")
	return nil
}

func (b *Builtin) dumpTable(ctx context.Context, db *sql.DB, d dialect, table string, w io.Writer) (int, error) {
	create, err := d.createStatement(ctx, db, table)
	if err != nil {
		return 0, fmt.Errorf("read table definition: %w", err)
	}

	quoted := d.quoteIdent(table)
	fmt.Fprintf(w, "\n-- Table: %s\n", table)
	fmt.Fprintf(w, "DROP TABLE IF EXISTS %s;\n", quoted)
	fmt.Fprintf(w, "%s;\n\n", strings.TrimRight(strings.TrimSpace(create), ";"))

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return 0, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	quotedCols := make([]string, len(cols))
	for i, c := range cols {
		quotedCols[i] = d.quoteIdent(c)
	}
	prefix := "INSERT INTO " + quoted + " (" + strings.Join(quotedCols, ", ") + ") VALUES ("

	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}

	var n int
	rendered := make([]string, len(cols))
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return n, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range values {
			if !v.Valid {
				rendered[i] = "NULL"
				continue
			}
			rendered[i] = d.quoteValue(v.String)
		}
		if _, err := io.WriteString(w, prefix+strings.Join(rendered, ", ")+");\n"); err != nil {
			return n, err
		}
		n++
	}

	return n, rows.Err()
}
