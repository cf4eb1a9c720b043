package core

// convert.go provides type conversion for table columns.
//
// Raw tables are read as text. These functions coerce text columns into
// nullable integer, float and date columns:
//   - Null cells stay null (Valid=false), they never fail a conversion
//   - Integer coercion accepts integral float text ("12.0") the way a
//     float-to-nullable-int cast does, and rejects fractional values
//   - Date coercion is strict: one layout, no fallbacks
//
// A value that cannot be converted fails the whole column with a *ParseError.

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

var (
	errFractional = errors.New("value has a fractional part")
	errNotDecimal = errors.New("not a decimal number")
)

// decimalNumber matches plain decimal text. Exponents, hex floats and
// infinities are not counts.
var decimalNumber = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]*)?$`)

// ParseInt8 converts a string to pgtype.Int8.
// Returns an invalid value without error for missing markers.
func ParseInt8(s string) (pgtype.Int8, error) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return pgtype.Int8{}, nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return pgtype.Int8{Int64: i, Valid: true}, nil
	}

	if !decimalNumber.MatchString(s) {
		return pgtype.Int8{}, errNotDecimal
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Int8{}, err
	}
	return floatToInt8(f)
}

// ParseFloat8 converts a string to pgtype.Float8.
// Returns an invalid value without error for missing markers.
func ParseFloat8(s string) (pgtype.Float8, error) {
	s = strings.TrimSpace(s)
	if IsMissing(s) {
		return pgtype.Float8{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{}, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{}, nil
	}
	return pgtype.Float8{Float64: f, Valid: true}, nil
}

// ParseDate converts a string to pgtype.Date using exactly one layout.
// The value is not trimmed; surrounding whitespace fails the layout.
// Returns an invalid value without error for missing markers.
func ParseDate(s, layout string) (pgtype.Date, error) {
	if IsMissing(s) {
		return pgtype.Date{}, nil
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return pgtype.Date{}, err
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func floatToInt8(f float64) (pgtype.Int8, error) {
	if math.IsNaN(f) {
		return pgtype.Int8{}, nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return pgtype.Int8{}, errFractional
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return pgtype.Int8{}, strconv.ErrRange
	}
	return pgtype.Int8{Int64: int64(f), Valid: true}, nil
}

// ToInt coerces a column to a nullable integer column.
func ToInt(c *Column) (*Column, error) {
	out := make([]pgtype.Int8, c.Len())
	switch c.Type() {
	case FieldInt:
		return c, nil
	case FieldFloat:
		for i := range out {
			v := c.Float(i)
			if !v.Valid {
				continue
			}
			n, err := floatToInt8(v.Float64)
			if err != nil {
				return nil, &ParseError{Column: c.Name(), Row: i, Value: c.Format(i), Want: "integer", Err: err}
			}
			out[i] = n
		}
	case FieldText:
		for i := range out {
			t := c.Text(i)
			if !t.Valid {
				continue
			}
			n, err := ParseInt8(t.String)
			if err != nil {
				return nil, &ParseError{Column: c.Name(), Row: i, Value: t.String, Want: "integer", Err: err}
			}
			out[i] = n
		}
	default:
		return nil, &PreconditionError{Op: "convert to integer", Kind: WrongType, Name: c.Name()}
	}
	return NewIntColumn(c.Name(), out), nil
}

// ToFloat coerces a column to a nullable float column.
func ToFloat(c *Column) (*Column, error) {
	out := make([]pgtype.Float8, c.Len())
	switch c.Type() {
	case FieldFloat:
		return c, nil
	case FieldInt:
		for i := range out {
			out[i] = c.Float(i)
		}
	case FieldText:
		for i := range out {
			t := c.Text(i)
			if !t.Valid {
				continue
			}
			f, err := ParseFloat8(t.String)
			if err != nil {
				return nil, &ParseError{Column: c.Name(), Row: i, Value: t.String, Want: "number", Err: err}
			}
			out[i] = f
		}
	default:
		return nil, &PreconditionError{Op: "convert to float", Kind: WrongType, Name: c.Name()}
	}
	return NewFloatColumn(c.Name(), out), nil
}

// ToDate coerces a text column to a date column using one layout.
// The first value that does not match fails the conversion.
func ToDate(c *Column, layout string) (*Column, error) {
	if c.Type() == FieldDate {
		return c, nil
	}
	if c.Type() != FieldText {
		return nil, &PreconditionError{Op: "convert to date", Kind: WrongType, Name: c.Name()}
	}

	out := make([]pgtype.Date, c.Len())
	for i := range out {
		t := c.Text(i)
		if !t.Valid {
			continue
		}
		d, err := ParseDate(t.String, layout)
		if err != nil {
			return nil, &ParseError{Column: c.Name(), Row: i, Value: t.String, Want: "date " + layout, Err: err}
		}
		out[i] = d
	}
	return NewDateColumn(c.Name(), out), nil
}

// InferNumeric returns the column as an integer or float column when every
// non-null text cell parses as one, and the column unchanged otherwise.
// Columns with no non-null cells are left as text.
func InferNumeric(c *Column) *Column {
	if c.Type() != FieldText || c.NullCount() == c.Len() {
		return c
	}
	allInt := true
	for i := 0; i < c.Len(); i++ {
		t := c.Text(i)
		if !t.Valid {
			continue
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(t.String), 10, 64); err != nil {
			allInt = false
			break
		}
	}
	if allInt {
		if ic, err := ToInt(c); err == nil {
			return ic
		}
	}
	if fc, err := ToFloat(c); err == nil {
		return fc
	}
	return c
}

// InferTypes applies InferNumeric to every column of a table.
func InferTypes(t *Table) *Table {
	cols := make([]*Column, t.Width())
	for i, c := range t.Columns() {
		cols[i] = InferNumeric(c)
	}
	out, err := NewTable(cols...)
	if err != nil {
		// Names and lengths are unchanged from a valid table.
		panic(err)
	}
	return out
}

// DaysBetween returns a nullable integer column holding end-start in whole
// days for every row. A row is null when either date is null.
func DaysBetween(name string, start, end *Column) (*Column, error) {
	if start.Type() != FieldDate {
		return nil, &PreconditionError{Op: "days between", Kind: WrongType, Name: start.Name()}
	}
	if end.Type() != FieldDate {
		return nil, &PreconditionError{Op: "days between", Kind: WrongType, Name: end.Name()}
	}
	if start.Len() != end.Len() {
		return nil, &PreconditionError{Op: "days between", Kind: LengthMismatch, Name: end.Name()}
	}

	out := make([]pgtype.Int8, start.Len())
	for i := range out {
		s, e := start.Date(i), end.Date(i)
		if !s.Valid || !e.Valid {
			continue
		}
		out[i] = pgtype.Int8{Int64: daysBetween(s.Time, e.Time), Valid: true}
	}
	return NewIntColumn(name, out), nil
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int64 {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int64(db.Sub(da).Hours() / 24)
}
