package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes a preparation run can hit.
// Every concrete error below unwraps to one of these.
var (
	// ErrPrecondition marks a missing column, row position or other input
	// the configuration expected to exist.
	ErrPrecondition = errors.New("precondition violated")

	// ErrParse marks a cell that could not be converted to its target type.
	ErrParse = errors.New("parse failure")
)

// PreconditionKind classifies a precondition violation.
type PreconditionKind string

const (
	MissingColumn   PreconditionKind = "missing column"
	DuplicateColumn PreconditionKind = "duplicate column"
	RowOutOfRange   PreconditionKind = "row position out of range"
	LengthMismatch  PreconditionKind = "column length mismatch"
	WrongType       PreconditionKind = "wrong column type"
)

// PreconditionError reports that an operation referenced something the
// table does not have.
type PreconditionError struct {
	Op   string           // Operation that failed: "drop columns", "join"
	Kind PreconditionKind // What was wrong
	Name string           // Column name, when applicable
	Row  int              // Row position, when Kind is RowOutOfRange
	Rows int              // Table length, when Kind is RowOutOfRange
}

func (e *PreconditionError) Error() string {
	switch e.Kind {
	case RowOutOfRange:
		return fmt.Sprintf("%s: %s: %d (table has %d rows)", e.Op, e.Kind, e.Row, e.Rows)
	default:
		return fmt.Sprintf("%s: %s %q", e.Op, e.Kind, e.Name)
	}
}

func (e *PreconditionError) Unwrap() error { return ErrPrecondition }

// ParseError reports a cell that did not match the expected format.
type ParseError struct {
	Column string // Column name
	Row    int    // 0-based row position
	Value  string // Offending raw value
	Want   string // Expected format or type
	Err    error  // Underlying conversion error, may be nil
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("invalid %s in column %q at row %d: %q", e.Want, e.Column, e.Row, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}
