package core

// validation.go checks a table against the columns an operation expects
// before any transform runs, so a misconfigured run fails on the first
// step instead of halfway through.

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateHeaders checks that every required column in specs exists in t.
// All missing columns are reported together; the returned error unwraps to
// ErrPrecondition.
func ValidateHeaders(t *Table, specs []FieldSpec) error {
	var errs []error
	for _, spec := range specs {
		if spec.Required && t.Index(spec.Name) < 0 {
			errs = append(errs, &PreconditionError{Op: "validate headers", Kind: MissingColumn, Name: spec.Name})
		}
	}
	return errors.Join(errs...)
}

// ValidateTypes checks that every column named in specs has the declared type.
// Columns absent from t are skipped; ValidateHeaders covers those.
func ValidateTypes(t *Table, specs []FieldSpec) error {
	var bad []string
	for _, spec := range specs {
		c, ok := t.Column(spec.Name)
		if !ok {
			continue
		}
		if c.Type() != spec.Type {
			bad = append(bad, fmt.Sprintf("%s is %s, want %s", spec.Name, c.Type(), spec.Type))
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("column types: %s", strings.Join(bad, "; "))
	}
	return nil
}

// UnknownValues returns the distinct non-null cells of c that are not in
// allowed, in order of first appearance. Comparison is exact. An empty allowed
// list accepts everything.
func UnknownValues(c *Column, allowed []string) []string {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	var unknown []string
	for i := 0; i < c.Len(); i++ {
		if !c.Valid(i) {
			continue
		}
		if v := c.Format(i); !set[v] {
			set[v] = true
			unknown = append(unknown, v)
		}
	}
	return unknown
}
