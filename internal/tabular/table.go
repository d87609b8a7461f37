// Package tabular ingests tabular files of unknown-but-bounded format
// (xlsx workbooks or delimited text in several encodings) into a uniform
// row-oriented structure with explicitly tagged cell values.
package tabular

import (
	"strconv"
	"strings"
	"time"
)

// CellKind tags the value held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellNumber
	CellTime
)

// Cell is a tagged cell value. Downstream normalization pattern-matches on
// Kind instead of probing dynamic types.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// EmptyCell returns the empty cell value.
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// StringCell returns a string-valued cell.
func StringCell(s string) Cell {
	return Cell{Kind: CellString, Text: s}
}

// NumberCell returns a numeric cell. The formatted text is kept alongside
// the value for display and diagnostics.
func NumberCell(n float64, text string) Cell {
	return Cell{Kind: CellNumber, Number: n, Text: text}
}

// TimeCell returns a timestamp-valued cell.
func TimeCell(t time.Time) Cell {
	return Cell{Kind: CellTime, Time: t}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

// String returns a textual representation of the cell value.
func (c Cell) String() string {
	switch c.Kind {
	case CellString:
		return c.Text
	case CellNumber:
		if c.Text != "" {
			return c.Text
		}
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellTime:
		return c.Time.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// Table is an ordered sequence of named columns plus row values.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]Cell
}

// ColumnIndex returns the index of the column with the given header, or -1.
func (t *Table) ColumnIndex(header string) int {
	for i, h := range t.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Cell returns the cell at (row, col), or the empty cell when the row is
// ragged and does not reach that column.
func (t *Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return EmptyCell()
	}
	r := t.Rows[row]
	if col >= len(r) {
		return EmptyCell()
	}
	return r[col]
}

// classifyText converts a raw textual field into a tagged cell.
func classifyText(s string) Cell {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmptyCell()
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return NumberCell(n, s)
	}
	return StringCell(s)
}

// isEmptyRow reports whether every cell of the row is empty.
func isEmptyRow(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}
