package core

import (
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
)

// Column is a named, typed sequence of nullable cells.
//
// Cells hold pgtype values matching the column type:
//
//	FieldText  -> pgtype.Text
//	FieldInt   -> pgtype.Int8
//	FieldFloat -> pgtype.Float8
//	FieldDate  -> pgtype.Date
//
// A cell with Valid=false is null. Columns are never mutated after
// construction; transforms return a new Column.
type Column struct {
	name  string
	typ   FieldType
	cells []any
}

// NewTextColumn builds a text column from raw values.
// Values matching MissingMarkers become null.
func NewTextColumn(name string, values []string) *Column {
	cells := make([]any, len(values))
	for i, v := range values {
		if IsMissing(v) {
			cells[i] = pgtype.Text{}
			continue
		}
		cells[i] = pgtype.Text{String: v, Valid: true}
	}
	return &Column{name: name, typ: FieldText, cells: cells}
}

// NewIntColumn builds an integer column.
func NewIntColumn(name string, values []pgtype.Int8) *Column {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &Column{name: name, typ: FieldInt, cells: cells}
}

// NewFloatColumn builds a float column.
func NewFloatColumn(name string, values []pgtype.Float8) *Column {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &Column{name: name, typ: FieldFloat, cells: cells}
}

// NewDateColumn builds a date column.
func NewDateColumn(name string, values []pgtype.Date) *Column {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &Column{name: name, typ: FieldDate, cells: cells}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the column type.
func (c *Column) Type() FieldType { return c.typ }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.cells) }

// Cell returns the raw pgtype value at row i.
func (c *Column) Cell(i int) any { return c.cells[i] }

// Valid reports whether the cell at row i is non-null.
func (c *Column) Valid(i int) bool {
	switch v := c.cells[i].(type) {
	case pgtype.Text:
		return v.Valid
	case pgtype.Int8:
		return v.Valid
	case pgtype.Float8:
		return v.Valid
	case pgtype.Date:
		return v.Valid
	default:
		return false
	}
}

// NullCount returns the number of null cells.
func (c *Column) NullCount() int {
	n := 0
	for i := range c.cells {
		if !c.Valid(i) {
			n++
		}
	}
	return n
}

// Text returns the text cell at row i. Non-text columns return their formatted value.
func (c *Column) Text(i int) pgtype.Text {
	if v, ok := c.cells[i].(pgtype.Text); ok {
		return v
	}
	if !c.Valid(i) {
		return pgtype.Text{}
	}
	return pgtype.Text{String: c.Format(i), Valid: true}
}

// Int returns the integer cell at row i, or an invalid value for other types.
func (c *Column) Int(i int) pgtype.Int8 {
	v, _ := c.cells[i].(pgtype.Int8)
	return v
}

// Float returns the cell at row i as a float. Integer cells are widened.
func (c *Column) Float(i int) pgtype.Float8 {
	switch v := c.cells[i].(type) {
	case pgtype.Float8:
		return v
	case pgtype.Int8:
		return pgtype.Float8{Float64: float64(v.Int64), Valid: v.Valid}
	default:
		return pgtype.Float8{}
	}
}

// Date returns the date cell at row i, or an invalid value for other types.
func (c *Column) Date(i int) pgtype.Date {
	v, _ := c.cells[i].(pgtype.Date)
	return v
}

// Format renders the cell at row i the way it is written to delimited text.
// Nulls render as the empty string.
func (c *Column) Format(i int) string {
	switch v := c.cells[i].(type) {
	case pgtype.Text:
		if v.Valid {
			return v.String
		}
	case pgtype.Int8:
		if v.Valid {
			return strconv.FormatInt(v.Int64, 10)
		}
	case pgtype.Float8:
		if v.Valid {
			return strconv.FormatFloat(v.Float64, 'f', -1, 64)
		}
	case pgtype.Date:
		if v.Valid {
			return v.Time.Format(DateLayout)
		}
	}
	return ""
}

// Values returns every cell formatted with Format.
func (c *Column) Values() []string {
	out := make([]string, len(c.cells))
	for i := range c.cells {
		out[i] = c.Format(i)
	}
	return out
}

// Renamed returns a copy of the column under a new name.
func (c *Column) Renamed(name string) *Column {
	return &Column{name: name, typ: c.typ, cells: c.cells}
}

// Take returns a column holding the cells at the given row positions, in order.
// A negative position yields a null cell.
func (c *Column) Take(rows []int) *Column {
	cells := make([]any, len(rows))
	for i, r := range rows {
		if r < 0 {
			cells[i] = nullOf(c.typ)
			continue
		}
		cells[i] = c.cells[r]
	}
	return &Column{name: c.name, typ: c.typ, cells: cells}
}

// MapText applies fn to every non-null text cell and returns the new column.
// The column must be a text column.
func (c *Column) MapText(fn func(string) string) (*Column, error) {
	if c.typ != FieldText {
		return nil, fmt.Errorf("column %q is %s, not text", c.name, c.typ)
	}
	cells := make([]any, len(c.cells))
	for i, cell := range c.cells {
		v := cell.(pgtype.Text)
		if v.Valid {
			v.String = fn(v.String)
		}
		cells[i] = v
	}
	return &Column{name: c.name, typ: FieldText, cells: cells}, nil
}

// nullOf returns the null cell for a field type.
func nullOf(ft FieldType) any {
	switch ft {
	case FieldInt:
		return pgtype.Int8{}
	case FieldFloat:
		return pgtype.Float8{}
	case FieldDate:
		return pgtype.Date{}
	default:
		return pgtype.Text{}
	}
}
