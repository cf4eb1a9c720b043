// Package prepare turns a raw table and a reference table into a prepared
// table by running a fixed sequence of cleaning steps, then persists it.
package prepare

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// Plan holds every fixed configuration value of a preparation run.
// A Plan is data only; Preparer executes it.
type Plan struct {
	// DropColumns are removed first. Each must exist in the raw table.
	DropColumns []string

	// DropRows are 0-based positions removed after column pruning.
	// Each must exist; the remaining rows are renumbered from 0.
	DropRows []int

	// Category normalizes one categorical text column.
	Category CategoryRule

	// IntColumns are coerced to nullable integers.
	IntColumns []string

	// DateColumns are parsed with DateLayout.
	DateColumns []string

	// DateLayout is a Go time layout. Values that do not match fail the run.
	DateLayout string

	// Duration derives a day-count column from two date columns.
	Duration DurationRule

	// Join attaches a code from the reference table.
	Join JoinRule
}

// CategoryRule strips whitespace from a text column and rewrites known-bad
// values to their canonical spelling.
type CategoryRule struct {
	Column string

	// Rewrites maps a rejected spelling (after trimming) to its canonical form.
	Rewrites map[string]string

	// Vocabulary lists the canonical values. Values outside it are kept
	// and reported in Result.Unknown. Empty disables the check.
	Vocabulary []string
}

// DurationRule names the derived duration column and its inputs.
// The column is inserted immediately after End.
type DurationRule struct {
	Name  string
	Start string
	End   string
}

// JoinRule describes the reference lookup.
type JoinRule struct {
	// Column is the raw table's key column.
	Column string

	// Renames rewrites key values before joining so they match the reference.
	Renames map[string]string

	// ReferenceKey is the reference column matched against Column. It is
	// dropped after the join.
	ReferenceKey string

	// ReferenceValue is the reference column carried into the output.
	ReferenceValue string

	// As is the output name of ReferenceValue. Empty keeps the reference name.
	As string
}

// OutputName returns the name the joined value column has in the output.
func (j JoinRule) OutputName() string {
	if j.As != "" {
		return j.As
	}
	return j.ReferenceValue
}

// Validate checks the plan for internal consistency.
func (p Plan) Validate() error {
	var errs []error

	if p.Category.Column == "" {
		errs = append(errs, errors.New("category column is required"))
	}
	if len(p.DateColumns) > 0 && p.DateLayout == "" {
		errs = append(errs, errors.New("date layout is required when date columns are set"))
	}
	if p.Duration.Name == "" || p.Duration.Start == "" || p.Duration.End == "" {
		errs = append(errs, errors.New("duration name, start and end are required"))
	}
	if !contains(p.DateColumns, p.Duration.Start) || !contains(p.DateColumns, p.Duration.End) {
		errs = append(errs, fmt.Errorf("duration inputs %q and %q must be date columns", p.Duration.Start, p.Duration.End))
	}
	if p.Join.Column == "" || p.Join.ReferenceKey == "" || p.Join.ReferenceValue == "" {
		errs = append(errs, errors.New("join column, reference key and reference value are required"))
	}
	for _, r := range p.DropRows {
		if r < 0 {
			errs = append(errs, fmt.Errorf("drop row position %d is negative", r))
		}
	}
	for _, c := range p.DropColumns {
		if c == p.Category.Column || c == p.Join.Column || contains(p.IntColumns, c) || contains(p.DateColumns, c) {
			errs = append(errs, fmt.Errorf("column %q is both dropped and transformed", c))
		}
	}
	for _, canon := range p.Category.Rewrites {
		if len(p.Category.Vocabulary) > 0 && !contains(p.Category.Vocabulary, canon) {
			errs = append(errs, fmt.Errorf("category rewrite target %q is not in the vocabulary", canon))
		}
	}

	return errors.Join(errs...)
}

// RawSpecs returns the columns the raw table must carry.
func (p Plan) RawSpecs() []core.FieldSpec {
	var specs []core.FieldSpec
	add := func(name string, ft core.FieldType) {
		for _, s := range specs {
			if s.Name == name {
				return
			}
		}
		specs = append(specs, core.FieldSpec{Name: name, Type: ft, Required: true})
	}
	for _, c := range p.DropColumns {
		add(c, core.FieldText)
	}
	add(p.Category.Column, core.FieldText)
	for _, c := range p.IntColumns {
		add(c, core.FieldText)
	}
	for _, c := range p.DateColumns {
		add(c, core.FieldText)
	}
	add(p.Join.Column, core.FieldText)
	return specs
}

// ReferenceSpecs returns the columns the reference table must carry.
func (p Plan) ReferenceSpecs() []core.FieldSpec {
	return []core.FieldSpec{
		{Name: p.Join.ReferenceKey, Type: core.FieldText, Required: true},
		{Name: p.Join.ReferenceValue, Type: core.FieldText, Required: true},
	}
}

// OutputSpecs returns the typed columns the prepared table must carry.
func (p Plan) OutputSpecs() []core.FieldSpec {
	specs := []core.FieldSpec{
		{Name: p.Category.Column, Type: core.FieldText, Required: true},
	}
	for _, c := range p.IntColumns {
		specs = append(specs, core.FieldSpec{Name: c, Type: core.FieldInt, Required: true})
	}
	for _, c := range p.DateColumns {
		specs = append(specs, core.FieldSpec{Name: c, Type: core.FieldDate, Required: true})
	}
	specs = append(specs,
		core.FieldSpec{Name: p.Duration.Name, Type: core.FieldInt, Required: true},
		core.FieldSpec{Name: p.Join.OutputName(), Type: core.FieldText, Required: true},
	)
	return specs
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
