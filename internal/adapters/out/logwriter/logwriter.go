// Package logwriter provides the run activity log with file rotation.
package logwriter

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bnema/siteback/internal/domain"
)

// LineTimeLayout is the timestamp at the start of each activity line.
const LineTimeLayout = "2006-01-02 15:04:05"

// Config holds the configuration for the activity log.
type Config struct {
	// Path is the activity log file.
	Path string
	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize int
	// MaxBackups is the number of old log files to retain.
	MaxBackups int
	// MaxAge is the maximum number of days to retain old log files.
	MaxAge int
}

// ActivityLog implements the ActivityLog port.
type ActivityLog struct {
	config Config
	logger *lumberjack.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// New creates a new ActivityLog.
func New(config Config) (*ActivityLog, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0700); err != nil {
		return nil, err
	}

	return &ActivityLog{
		config: config,
		logger: &lumberjack.Logger{
			Filename:   config.Path,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   true,
		},
		now: time.Now,
	}, nil
}

// Record appends one line. Credential fields are stripped first. Write
// failures go to the structured logger and never reach the caller.
func (a *ActivityLog) Record(ctx context.Context, level, message string, fields map[string]any) {
	line := FormatLine(a.now(), level, message, fields)

	a.mu.Lock()
	_, err := a.logger.Write([]byte(line))
	a.mu.Unlock()

	if err != nil {
		log := zerowrap.FromCtx(ctx)
		log.Warn().Err(err).Str(zerowrap.FieldPath, a.config.Path).Msg("failed to write activity log")
	}
}

// Tail returns up to n of the most recent lines of the current file.
func (a *ActivityLog) Tail(n int) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.Open(a.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	return lines, scanner.Err()
}

// Close releases the log file.
func (a *ActivityLog) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logger.Close()
}

// FormatLine renders "[ts] [LEVEL] message | {json}". The JSON part is
// omitted when no field survives redaction.
func FormatLine(ts time.Time, level, message string, fields map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", ts.Format(LineTimeLayout), strings.ToUpper(level), singleLine(message))

	clean := domain.RedactFields(fields)
	if len(clean) > 0 {
		data, err := json.Marshal(clean)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"encode_error":%q}`, err.Error()))
		}
		b.WriteString(" | ")
		b.Write(data)
	}
	b.WriteByte('\n')
	return b.String()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
