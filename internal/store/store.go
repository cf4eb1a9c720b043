// Package store provides sinks that persist a prepared table: delimited
// text files and writers, database/sql tables (SQLite) and PostgreSQL
// tables loaded with COPY.
//
// Every sink replaces what it wrote before, so rerunning a preparation
// leaves exactly one copy of the output.
package store

import (
	"strings"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// quoteIdentifier safely quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// cellValue returns the database/sql argument for a cell. Dates are written
// as YYYY-MM-DD text so they read back the same in every driver.
func cellValue(c *core.Column, row int) any {
	if !c.Valid(row) {
		return nil
	}
	switch c.Type() {
	case core.FieldInt:
		return c.Int(row).Int64
	case core.FieldFloat:
		return c.Float(row).Float64
	default:
		return c.Format(row)
	}
}
