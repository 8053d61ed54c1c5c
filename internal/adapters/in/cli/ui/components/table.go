// Package components holds reusable terminal renderers for CLI output.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/bnema/siteback/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/siteback/internal/domain"
)

// TableColumn defines a table column. Width 0 lets the column grow to its content.
type TableColumn struct {
	Title string
	Width int
	Right bool
}

// CellColor picks a foreground for one body cell. An empty color keeps the default.
type CellColor func(row, col int, value string) lipgloss.TerminalColor

// TableModel renders rows under fixed-width columns with a rounded border.
type TableModel struct {
	columns     []TableColumn
	rows        [][]string
	borderStyle lipgloss.Style
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	cellColor   CellColor
}

// TableOption configures a TableModel.
type TableOption func(*TableModel)

// NewTable creates a table with the siteback theme.
func NewTable(opts ...TableOption) *TableModel {
	t := &TableModel{
		borderStyle: lipgloss.NewStyle().Foreground(styles.ColorBorder),
		headerStyle: lipgloss.NewStyle().Bold(true).Foreground(styles.ColorPrimary).Padding(0, 1),
		cellStyle:   lipgloss.NewStyle().Foreground(styles.ColorText).Padding(0, 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WithColumns sets the table columns.
func WithColumns(cols []TableColumn) TableOption {
	return func(t *TableModel) { t.columns = cols }
}

// WithRows sets the table rows.
func WithRows(rows [][]string) TableOption {
	return func(t *TableModel) { t.rows = rows }
}

// WithHeaderStyle sets the header style.
func WithHeaderStyle(s lipgloss.Style) TableOption {
	return func(t *TableModel) { t.headerStyle = s }
}

// WithCellStyle sets the body cell style.
func WithCellStyle(s lipgloss.Style) TableOption {
	return func(t *TableModel) { t.cellStyle = s }
}

// WithCellColor colors body cells by value.
func WithCellColor(fn CellColor) TableOption {
	return func(t *TableModel) { t.cellColor = fn }
}

// AddRow appends a row.
func (t *TableModel) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

// Render returns the table, or "" when no columns are set.
func (t *TableModel) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = truncateCell(col.Title, col.Width)
	}

	rows := make([][]string, len(t.rows))
	for r, row := range t.rows {
		rows[r] = make([]string, len(row))
		for c, cell := range row {
			rows[r][c] = truncateCell(cell, t.widthOf(c))
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(t.borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := t.cellStyle
			if row == table.HeaderRow {
				s = t.headerStyle
			} else if t.cellColor != nil && row >= 0 && row < len(rows) && col < len(rows[row]) {
				if color := t.cellColor(row, col, rows[row][col]); color != nil {
					s = s.Foreground(color)
				}
			}
			if col >= 0 && col < len(t.columns) && t.columns[col].Right {
				s = s.Align(lipgloss.Right)
			}
			if w := t.widthOf(col); w > 0 {
				s = s.Width(w).MaxWidth(w)
			}
			return s
		}).
		String()
}

func (t *TableModel) widthOf(col int) int {
	if col < 0 || col >= len(t.columns) {
		return 0
	}
	return t.columns[col].Width
}

// truncateCell shortens value to maxWidth display cells with a trailing
// "...", cutting on grapheme boundaries. Styled values pass through.
func truncateCell(value string, maxWidth int) string {
	if strings.Contains(value, "\x1b[") {
		return value
	}
	if maxWidth <= 0 || runewidth.StringWidth(value) <= maxWidth {
		return value
	}
	if maxWidth <= 3 {
		return strings.Repeat(".", maxWidth)
	}

	budget := maxWidth - 3
	var b strings.Builder
	used := 0
	g := uniseg.NewGraphemes(value)
	for g.Next() {
		w := runewidth.StringWidth(g.Str())
		if used+w > budget {
			break
		}
		b.WriteString(g.Str())
		used += w
	}
	if b.Len() == 0 {
		return strings.Repeat(".", maxWidth)
	}
	return b.String() + "..."
}

// SimpleTable renders headers and rows with content-sized columns.
func SimpleTable(headers []string, rows [][]string) string {
	cols := make([]TableColumn, len(headers))
	for i, h := range headers {
		cols[i] = TableColumn{Title: h}
	}
	return NewTable(WithColumns(cols), WithRows(rows)).Render()
}

const historyStatusCol = 2

// HistoryTable renders run results in the order given. Only the first line
// of each message is shown; `siteback run` output has the full report.
func HistoryTable(results []domain.RunResult) string {
	t := NewTable(
		WithColumns([]TableColumn{
			{Title: "Started (UTC)", Width: 21},
			{Title: "Mode", Width: 11},
			{Title: "Status", Width: 9},
			{Title: "Duration", Width: 10, Right: true},
			{Title: "Uploaded", Width: 10, Right: true},
			{Title: "Message", Width: 60},
		}),
		WithCellColor(func(_, col int, value string) lipgloss.TerminalColor {
			if col != historyStatusCol {
				return nil
			}
			if value == string(domain.RunStatusSuccess) {
				return styles.ColorSuccess
			}
			return styles.ColorError
		}),
	)

	for _, r := range results {
		t.AddRow([]string{
			r.StartedAt.UTC().Format("2006-01-02 15:04:05"),
			string(r.Mode),
			string(r.Status),
			fmt.Sprintf("%.1fs", r.DurationSeconds),
			fmt.Sprintf("%d", len(r.UploadedKeys)),
			firstLine(r.Message),
		})
	}

	return t.Render()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
