package core

import (
	"fmt"
	"sort"
)

// Table is an ordered collection of equal-length columns.
//
// Tables are values: every operation returns a new Table and leaves the
// receiver untouched. Row positions are always contiguous and 0-based, so
// dropping rows re-derives the ordering.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from columns. Column names must be unique and all
// columns must have the same length.
func NewTable(columns ...*Column) (*Table, error) {
	t := &Table{
		columns: columns,
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c.Name()]; dup {
			return nil, &PreconditionError{Op: "build table", Kind: DuplicateColumn, Name: c.Name()}
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, &PreconditionError{Op: "build table", Kind: LengthMismatch, Name: c.Name()}
		}
		t.index[c.Name()] = i
	}
	return t, nil
}

// FromRecords builds a text table from a header and data rows.
// Short rows are padded with nulls; rows longer than the header are an error.
func FromRecords(header []string, records [][]string) (*Table, error) {
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = CleanCell(h)
	}

	values := make([][]string, len(names))
	for i := range values {
		values[i] = make([]string, len(records))
	}
	for r, rec := range records {
		if len(rec) > len(names) {
			return nil, fmt.Errorf("row %d has %d fields, header has %d", r, len(rec), len(names))
		}
		for c := range rec {
			values[c][r] = rec[c]
		}
	}

	cols := make([]*Column, len(names))
	for i, name := range names {
		cols[i] = NewTextColumn(name, values[i])
	}
	return NewTable(cols...)
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Width returns the number of columns.
func (t *Table) Width() int { return len(t.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.columns }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name()
	}
	return names
}

// Index returns the position of a column, or -1.
func (t *Table) Index(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// Column returns a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Require returns a column by name or a precondition error naming op.
func (t *Table) Require(op, name string) (*Column, error) {
	c, ok := t.Column(name)
	if !ok {
		return nil, &PreconditionError{Op: op, Kind: MissingColumn, Name: name}
	}
	return c, nil
}

// Row returns the formatted cells of row i.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.columns))
	for c, col := range t.columns {
		row[c] = col.Format(i)
	}
	return row
}

// Drop returns the table without the named columns.
// Every name must exist; a missing one fails the whole drop.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := t.index[n]; !ok {
			return nil, &PreconditionError{Op: "drop columns", Kind: MissingColumn, Name: n}
		}
		drop[n] = true
	}

	kept := make([]*Column, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c.Name()] {
			kept = append(kept, c)
		}
	}
	return NewTable(kept...)
}

// Select returns a table holding only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols := make([]*Column, len(names))
	for i, n := range names {
		c, err := t.Require("select columns", n)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return NewTable(cols...)
}

// DropRows returns the table without the rows at the given positions.
// Positions refer to the receiver's ordering; duplicates are ignored.
// Any position outside [0, Len) fails the drop.
func (t *Table) DropRows(positions ...int) (*Table, error) {
	drop := make(map[int]bool, len(positions))
	for _, p := range positions {
		if p < 0 || p >= t.rows {
			return nil, &PreconditionError{Op: "drop rows", Kind: RowOutOfRange, Row: p, Rows: t.rows}
		}
		drop[p] = true
	}

	keep := make([]int, 0, t.rows-len(drop))
	for i := 0; i < t.rows; i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return t.Take(keep), nil
}

// Take returns a table holding the given row positions in order.
// A negative position produces an all-null row.
func (t *Table) Take(rows []int) *Table {
	cols := make([]*Column, len(t.columns))
	for i, c := range t.columns {
		cols[i] = c.Take(rows)
	}
	return &Table{columns: cols, index: t.index, rows: len(rows)}
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	return t.Take(seq(0, n))
}

// Tail returns the last n rows.
func (t *Table) Tail(n int) *Table {
	if n > t.rows {
		n = t.rows
	}
	return t.Take(seq(t.rows-n, t.rows))
}

// Replace returns the table with the same-named column swapped for col.
func (t *Table) Replace(col *Column) (*Table, error) {
	i, ok := t.index[col.Name()]
	if !ok {
		return nil, &PreconditionError{Op: "replace column", Kind: MissingColumn, Name: col.Name()}
	}
	if col.Len() != t.rows {
		return nil, &PreconditionError{Op: "replace column", Kind: LengthMismatch, Name: col.Name()}
	}
	cols := append([]*Column(nil), t.columns...)
	cols[i] = col
	return NewTable(cols...)
}

// InsertAfter returns the table with col inserted immediately after the named column.
func (t *Table) InsertAfter(after string, col *Column) (*Table, error) {
	i, ok := t.index[after]
	if !ok {
		return nil, &PreconditionError{Op: "insert column", Kind: MissingColumn, Name: after}
	}
	return t.Insert(i+1, col)
}

// Insert returns the table with col inserted at position pos.
func (t *Table) Insert(pos int, col *Column) (*Table, error) {
	if pos < 0 || pos > len(t.columns) {
		return nil, fmt.Errorf("insert column %q: position %d out of range", col.Name(), pos)
	}
	cols := make([]*Column, 0, len(t.columns)+1)
	cols = append(cols, t.columns[:pos]...)
	cols = append(cols, col)
	cols = append(cols, t.columns[pos:]...)
	return NewTable(cols...)
}

// Append returns the table with col added as the last column.
func (t *Table) Append(col *Column) (*Table, error) {
	return t.Insert(len(t.columns), col)
}

// Rename returns the table with a column renamed.
func (t *Table) Rename(from, to string) (*Table, error) {
	c, err := t.Require("rename column", from)
	if err != nil {
		return nil, err
	}
	cols := append([]*Column(nil), t.columns...)
	cols[t.index[from]] = c.Renamed(to)
	return NewTable(cols...)
}

// Types returns the column types keyed by name.
func (t *Table) Types() map[string]FieldType {
	out := make(map[string]FieldType, len(t.columns))
	for _, c := range t.columns {
		out[c.Name()] = c.Type()
	}
	return out
}

// RowsWithNulls returns the positions of rows holding at least one null cell.
func (t *Table) RowsWithNulls() []int {
	seen := make(map[int]bool)
	for _, c := range t.columns {
		for i := 0; i < t.rows; i++ {
			if !c.Valid(i) {
				seen[i] = true
			}
		}
	}
	rows := make([]int, 0, len(seen))
	for r := range seen {
		rows = append(rows, r)
	}
	sort.Ints(rows)
	return rows
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
