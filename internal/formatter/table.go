package formatter

import (
	"strings"

	"councilreader/pkg/utils"
)

var cellText = utils.NewStringHelper()

// Table builds an aligned markdown table row by row.
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth int
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// SetMaxCellWidth truncates cells wider than width. Zero disables truncation.
func (t *Table) SetMaxCellWidth(width int) *Table {
	t.maxWidth = width

	return t
}

// AddRow appends a row. Pipes in cells are escaped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(cells))

	for i, c := range cells {
		c = strings.ReplaceAll(cellText.NormalizeWhitespace(c), "|", `\|`)
		if t.maxWidth > 0 {
			c = cellText.TruncateString(c, t.maxWidth)
		}

		row[i] = c
	}

	t.rows = append(t.rows, row)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// String renders the table, one line per row, header and separator first.
func (t *Table) String() string {
	all := make([][]string, 0, len(t.rows)+2)
	all = append(all, t.headers, nil)
	all = append(all, t.rows...)

	return strings.Join(alignRows(all, 1), "\n")
}
