// range.go - A1 range parsing and formatting shared by store implementations.
package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a parsed A1 range. Columns and rows are 1-based; zero means
// open-ended ("A2:J" has EndRow 0, "A:A" has StartRow and EndRow 0).
type Range struct {
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// ParseRange parses an A1-style range spec: "A2:J", "B3", "A:A", "C4:E4".
func ParseRange(spec string) (Range, error) {
	parts := strings.SplitN(spec, ":", 2)
	startCol, startRow, err := parseCell(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, spec)
	}

	r := Range{StartCol: startCol, StartRow: startRow}
	if len(parts) == 1 {
		// Single cell: range of exactly one cell.
		if startCol == 0 || startRow == 0 {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, spec)
		}
		r.EndCol, r.EndRow = startCol, startRow
		return r, nil
	}

	endCol, endRow, err := parseCell(parts[1])
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, spec)
	}
	r.EndCol, r.EndRow = endCol, endRow
	return r, nil
}

// parseCell splits "J7" into column 10, row 7. Either part may be absent:
// "J" yields (10, 0) and "7" yields (0, 7).
func parseCell(s string) (col, row int, err error) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		col = col*26 + int(s[i]-'A'+1)
		i++
	}
	if i < len(s) {
		row, err = strconv.Atoi(s[i:])
		if err != nil || row <= 0 {
			return 0, 0, fmt.Errorf("bad cell %q", s)
		}
	}
	if col == 0 && row == 0 {
		return 0, 0, fmt.Errorf("bad cell %q", s)
	}
	return col, row, nil
}

// ColumnName converts a 1-based column index to its A1 letters.
func ColumnName(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// Cell formats a 1-based (col, row) pair as an A1 cell reference.
func Cell(col, row int) string {
	return fmt.Sprintf("%s%d", ColumnName(col), row)
}

// RowSpan formats the range covering width cells of a single row,
// starting at column A: RowSpan(5, 10) == "A5:J5".
func RowSpan(row, width int) string {
	return fmt.Sprintf("A%d:%s%d", row, ColumnName(width), row)
}

// ClipCells clips a stored row to the columns of r and trims trailing
// empty cells, matching what the Sheets values API returns. Shared by the
// memory and SQLite store implementations.
func ClipCells(row []string, r Range) []string {
	startCol := r.StartCol
	if startCol == 0 {
		startCol = 1
	}
	endCol := r.EndCol
	if endCol == 0 || endCol > len(row) {
		endCol = len(row)
	}

	var cells []string
	if startCol <= endCol {
		cells = append([]string{}, row[startCol-1:endCol]...)
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells
}
