// Package table holds the uniform tabular representation every input file is
// loaded into, and the loaders that produce it.
//
// A Table is an ordered list of named columns of equal length. Cells carry
// their string form plus a Valid flag; a cell with Valid == false is missing.
// Column lookups are case-insensitive while names are kept exactly as read.
package table

import (
	"fmt"
	"strings"
)

// Cell is a single value in a column.
type Cell struct {
	Text  string
	Valid bool
}

// Text returns a present cell holding s.
func Text(s string) Cell {
	return Cell{Text: s, Valid: true}
}

// Null returns a missing cell.
func Null() Cell {
	return Cell{}
}

// String implements fmt.Stringer. Missing cells render as "".
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Text
}

// Column is a named, ordered sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	columns []*Column
	index   map[string]int // lowercase name -> position
	rows    int
}

// New builds a table from a header and row-major cell data.
// Short rows are padded with missing cells; long rows are an error.
func New(header []string, rows [][]Cell) (*Table, error) {
	t := &Table{
		columns: make([]*Column, len(header)),
		index:   make(map[string]int, len(header)),
		rows:    len(rows),
	}

	for i, name := range header {
		key := strings.ToLower(name)
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedInput, name)
		}
		t.index[key] = i
		t.columns[i] = &Column{Name: name, Cells: make([]Cell, len(rows))}
	}

	for r, row := range rows {
		if len(row) > len(header) {
			return nil, fmt.Errorf("%w: row %d has %d fields, header has %d",
				ErrMalformedInput, r+1, len(row), len(header))
		}
		for c := range header {
			if c < len(row) {
				t.columns[c].Cells[r] = row[c]
			}
		}
	}

	return t, nil
}

// FromColumns builds a table from pre-assembled columns.
// All columns must have the same length and distinct names.
func FromColumns(cols ...*Column) (*Table, error) {
	t := &Table{
		columns: cols,
		index:   make(map[string]int, len(cols)),
	}
	for i, col := range cols {
		key := strings.ToLower(col.Name)
		if _, dup := t.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformedInput, col.Name)
		}
		t.index[key] = i
		if i == 0 {
			t.rows = len(col.Cells)
		} else if len(col.Cells) != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, expected %d",
				ErrMalformedInput, col.Name, len(col.Cells), t.rows)
		}
	}
	return t, nil
}

// Columns returns the column names in source order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name, ignoring case.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// HasColumn reports whether the table has a column with the given name (any case).
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[strings.ToLower(name)]
	return ok
}

// ColumnAt returns the i-th column in source order.
func (t *Table) ColumnAt(i int) *Column {
	return t.columns[i]
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// RowCount returns the number of rows.
func (t *Table) RowCount() int {
	return t.rows
}
