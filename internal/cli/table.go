package cli

import (
	"strings"
	"unicode/utf8"
)

// Align selects how a column's cells are padded.
type Align int

const (
	// AlignLeft pads cells on the right.
	AlignLeft Align = iota
	// AlignRight pads cells on the left, for sizes and counts.
	AlignRight
)

// Table renders rows as plain-text columns sized to their widest cell.
type Table struct {
	headers []string
	rows    [][]string
	align   map[int]Align
	gap     string
}

// NewTable creates a table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{
		headers: headers,
		align:   make(map[int]Align),
		gap:     "  ",
	}
}

// SetAlign sets the alignment of column col.
func (t *Table) SetAlign(col int, a Align) {
	t.align[col] = a
}

// AddRow appends a row, padding or truncating it to the header count.
func (t *Table) AddRow(row []string) {
	cells := make([]string, len(t.headers))
	copy(cells, row)
	t.rows = append(t.rows, cells)
}

// Render returns the header, a dashed rule and every row, one per line.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder
	t.writeLine(&b, t.headers, widths)

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	t.writeLine(&b, rule, widths)

	for _, row := range t.rows {
		t.writeLine(&b, row, widths)
	}
	return b.String()
}

func (t *Table) writeLine(b *strings.Builder, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = pad(cell, widths[i], t.align[i])
	}
	// Trailing spaces of the last column are noise in terminals and diffs.
	b.WriteString(strings.TrimRight(strings.Join(parts, t.gap), " "))
	b.WriteByte('\n')
}

// pad fills s with spaces up to width on the side given by a.
func pad(s string, width int, a Align) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	if a == AlignRight {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}
