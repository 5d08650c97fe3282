package cli

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// columnGap separates adjacent columns.
const columnGap = 2

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Table prints column-aligned rows under a header and a dash divider.
// Rows are buffered until Flush. Widths ignore ANSI colour codes, so a
// coloured status column lines up with plain ones. A table with no rows
// prints nothing.
type Table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a table writing to w with the given column headers.
func NewTable(w io.Writer, headers ...string) *Table {
	return &Table{w: w, headers: headers}
}

// Row appends a row. Missing trailing cells print empty.
func (t *Table) Row(values ...string) {
	t.rows = append(t.rows, values)
}

// Flush prints the buffered rows and resets the table.
func (t *Table) Flush() {
	if len(t.rows) == 0 {
		return
	}

	divider := make([]string, len(t.headers))
	for i, h := range t.headers {
		divider[i] = strings.Repeat("-", len(h))
	}
	all := append([][]string{t.headers, divider}, t.rows...)

	widths := make([]int, len(t.headers))
	for _, row := range all {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], visibleWidth(cell))
		}
	}

	var b strings.Builder
	for _, row := range all {
		for i := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-visibleWidth(cell)+columnGap))
			}
		}
		b.WriteByte('\n')
	}
	io.WriteString(t.w, b.String())
	t.rows = nil
}

func visibleWidth(s string) int {
	return utf8.RuneCountInString(ansiEscape.ReplaceAllString(s, ""))
}
