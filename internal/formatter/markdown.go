// Package formatter aligns markdown tables in summaries and run reports.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// FormatTables re-aligns every markdown table in content. Other lines pass
// through unchanged.
func FormatTables(content string) string {
	lines := strings.Split(content, "\n")

	var (
		out   []string
		table []string
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "|") && strings.HasSuffix(trimmed, "|") {
			table = append(table, line)

			continue
		}

		if len(table) > 0 {
			out = append(out, formatTable(table)...)
			table = nil
		}

		out = append(out, line)
	}

	if len(table) > 0 {
		out = append(out, formatTable(table)...)
	}

	return strings.Join(out, "\n")
}

// formatTable aligns the rows of one table. A single row is returned as is.
func formatTable(rows []string) []string {
	if len(rows) < 2 {
		return rows
	}

	cells := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells = append(cells, splitRow(row))
	}

	sep := -1
	if isSeparator(cells[1]) {
		sep = 1
	}

	return alignRows(cells, sep)
}

func splitRow(row string) []string {
	parts := strings.Split(strings.TrimSpace(row), "|")

	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}

	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}

	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, strings.TrimSpace(p))
	}

	return cells
}

func isSeparator(row []string) bool {
	for _, cell := range row {
		if strings.Trim(cell, "-: ") != "" {
			return false
		}
	}

	return len(row) > 0
}

// alignRows pads every cell to its column's display width. The row at index
// sep, if any, is redrawn as dashes.
func alignRows(rows [][]string, sep int) []string {
	cols := 0
	for _, row := range rows {
		cols = max(cols, len(row))
	}

	widths := make([]int, cols)
	for i := range widths {
		widths[i] = 3
	}

	for r, row := range rows {
		if r == sep {
			continue
		}

		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	out := make([]string, 0, len(rows))

	for r, row := range rows {
		var sb strings.Builder

		sb.WriteString("|")

		for i := range cols {
			sb.WriteString(" ")

			if r == sep {
				sb.WriteString(strings.Repeat("-", widths[i]))
			} else {
				var cell string
				if i < len(row) {
					cell = row[i]
				}

				sb.WriteString(runewidth.FillRight(cell, widths[i]))
			}

			sb.WriteString(" |")
		}

		out = append(out, sb.String())
	}

	return out
}
