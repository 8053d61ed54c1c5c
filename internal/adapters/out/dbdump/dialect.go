package dbdump

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bnema/siteback/internal/domain"
)

// dialect holds the per-driver pieces of the built-in dump.
type dialect interface {
	// sqlDriver is the database/sql driver name.
	sqlDriver() string
	listTables(ctx context.Context, db *sql.DB) ([]string, error)
	createStatement(ctx context.Context, db *sql.DB, table string) (string, error)
	quoteIdent(name string) string
	quoteValue(v string) string
}

func dialectFor(driver domain.DBDriver) (dialect, error) {
	switch driver {
	case domain.DriverMySQL:
		return mysqlDialect{}, nil
	case domain.DriverPostgres:
		return postgresDialect{}, nil
	case domain.DriverSQLite:
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

type mysqlDialect struct{}

func (mysqlDialect) sqlDriver() string { return "mysql" }

func (mysqlDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryStrings(ctx, db, "SHOW TABLES")
}

func (d mysqlDialect) createStatement(ctx context.Context, db *sql.DB, table string) (string, error) {
	var name, create string
	if err := db.QueryRowContext(ctx, "SHOW CREATE TABLE "+d.quoteIdent(table)).Scan(&name, &create); err != nil {
		return "", err
	}
	return create, nil
}

func (mysqlDialect) quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// MySQL treats backslash as an escape character inside string literals.
func (mysqlDialect) quoteValue(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
}

type sqliteDialect struct{}

func (sqliteDialect) sqlDriver() string { return "sqlite" }

func (sqliteDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryStrings(ctx, db,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
}

func (sqliteDialect) createStatement(ctx context.Context, db *sql.DB, table string) (string, error) {
	var create string
	err := db.QueryRowContext(ctx,
		"SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&create)
	return create, err
}

func (sqliteDialect) quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLite has no backslash escapes in string literals; a quote is escaped by doubling it.
func (sqliteDialect) quoteValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

type postgresDialect struct{}

func (postgresDialect) sqlDriver() string { return "pgx" }

func (postgresDialect) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryStrings(ctx, db,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_type = 'BASE TABLE' ORDER BY table_name")
}

// createStatement rebuilds a CREATE TABLE from information_schema.columns.
// Constraints and indexes are not reproduced.
func (d postgresDialect) createStatement(ctx context.Context, db *sql.DB, table string) (string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT column_name, data_type, character_maximum_length, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			name, dataType, nullable string
			maxLen                   sql.NullInt64
			def                      sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &maxLen, &nullable, &def); err != nil {
			return "", err
		}

		col := d.quoteIdent(name) + " " + dataType
		if maxLen.Valid {
			col += fmt.Sprintf("(%d)", maxLen.Int64)
		}
		if def.Valid && !strings.HasPrefix(def.String, "nextval(") {
			col += " DEFAULT " + def.String
		}
		if nullable == "NO" {
			col += " NOT NULL"
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("table %s has no columns", table)
	}

	return "CREATE TABLE " + d.quoteIdent(table) + " (\n  " + strings.Join(cols, ",\n  ") + "\n)", nil
}

func (postgresDialect) quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// PostgreSQL standard strings (standard_conforming_strings=on) take backslashes
// literally, so only single quotes are doubled, unlike MySQL.
func (postgresDialect) quoteValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func queryStrings(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
