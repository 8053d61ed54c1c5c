package dbdump

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/bnema/zerowrap"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bnema/siteback/internal/domain"
)

const maxStderrBytes = 512

// toolNames maps each driver to its native dump utility.
var toolNames = map[domain.DBDriver]string{
	domain.DriverMySQL:    "mysqldump",
	domain.DriverPostgres: "pg_dump",
	domain.DriverSQLite:   "sqlite3",
}

// External runs the driver's native dump utility.
type External struct {
	driver   domain.DBDriver
	dsn      string
	toolPath string
	lookPath func(string) (string, error)

	lookOnce sync.Once
	resolved  string
}

// ExternalOption configures External.
type ExternalOption func(*External)

// WithToolPath pins the utility to an explicit binary.
func WithToolPath(path string) ExternalOption {
	return func(e *External) {
		e.toolPath = path
	}
}

// WithLookPath overrides binary resolution.
func WithLookPath(fn func(string) (string, error)) ExternalOption {
	return func(e *External) {
		e.lookPath = fn
	}
}

// NewExternal creates the external tool strategy.
func NewExternal(driver domain.DBDriver, dsn string, opts ...ExternalOption) *External {
	e := &External{
		driver:   driver,
		dsn:      dsn,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the strategy.
func (e *External) Name() string {
	if name, ok := toolNames[e.driver]; ok {
		return name
	}
	return "external"
}

// Available reports whether the utility was found. The lookup runs once.
func (e *External) Available(ctx context.Context) bool {
	e.lookOnce.Do(func() {
		name := e.toolPath
		if name == "" {
			name = toolNames[e.driver]
		}
		if name == "" {
			return
		}
		path, err := e.lookPath(name)
		if err != nil {
			log := zerowrap.FromCtx(ctx)
			log.Debug().Str("tool", name).Msg("dump utility not found")
			return
		}
		e.resolved = path
	})
	return e.resolved != ""
}

// Dump runs the utility with its stdout redirected to outputPath.
func (e *External) Dump(ctx context.Context, outputPath string) error {
	if !e.Available(ctx) {
		return fmt.Errorf("%w: %s is not available", domain.ErrDump, e.Name())
	}

	args, env, err := e.command()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDump, err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("%w: create dump file: %v", domain.ErrIO, err)
	}
	defer out.Close()

	var stderr bytes.Buffer
	// #nosec G204 - binary comes from operator configuration or PATH lookup
	cmd := exec.CommandContext(ctx, e.resolved, args...)
	cmd.Stdout = out
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), env...)

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrBytes {
			msg = msg[:maxStderrBytes]
		}
		return fmt.Errorf("%w: %s failed: %v: %s", domain.ErrDump, e.Name(), err, msg)
	}
	return nil
}

// command returns the arguments and extra environment for the utility.
// Passwords travel through the environment, never the argument list.
func (e *External) command() ([]string, []string, error) {
	switch e.driver {
	case domain.DriverMySQL:
		return mysqldumpArgs(e.dsn)
	case domain.DriverPostgres:
		return pgDumpArgs(e.dsn)
	case domain.DriverSQLite:
		return []string{sqlitePath(e.dsn), ".dump"}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", e.driver)
	}
}

func mysqldumpArgs(dsn string) ([]string, []string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.DBName == "" {
		return nil, nil, fmt.Errorf("mysql dsn has no database name")
	}

	args := []string{"--single-transaction", "--quick", "--routines", "--triggers"}
	if cfg.User != "" {
		args = append(args, "--user="+cfg.User)
	}
	switch cfg.Net {
	case "unix":
		args = append(args, "--socket="+cfg.Addr)
	default:
		host, port, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		if host != "" {
			args = append(args, "--host="+host)
		}
		if port != "" {
			args = append(args, "--port="+port)
		}
	}
	args = append(args, cfg.DBName)

	var env []string
	if cfg.Passwd != "" {
		env = append(env, "MYSQL_PWD="+cfg.Passwd)
	}
	return args, env, nil
}

func pgDumpArgs(dsn string) ([]string, []string, error) {
	cfg, err := pgconn.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	args := []string{"--no-owner", "--no-privileges", "--clean", "--if-exists"}
	if cfg.Host != "" {
		args = append(args, "--host="+cfg.Host)
	}
	if cfg.Port != 0 {
		args = append(args, fmt.Sprintf("--port=%d", cfg.Port))
	}
	if cfg.User != "" {
		args = append(args, "--username="+cfg.User)
	}
	args = append(args, "--dbname="+cfg.Database)

	var env []string
	if cfg.Password != "" {
		env = append(env, "PGPASSWORD="+cfg.Password)
	}
	return args, env, nil
}

// sqlitePath strips the file: scheme and query options from a sqlite DSN.
func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}
