// Package core provides the table model and table I/O for paraprep.
//
// This package is the base of every other package: the preparer, the
// reports, the sinks and the HTTP handlers all exchange [Table] values.
// It has no dependency on any UI or transport layer.
//
// # Tables
//
// A [Table] is an ordered set of named [Column] values of equal length.
// Cells are nullable pgtype values (Text, Int8, Float8, Date), so a missing
// count is represented without a sentinel. Every operation derives a new
// table:
//
//	t, err := core.ReadFile("paralympics_raw.csv", core.ReadOptions{})
//	t, err = t.Drop("URL", "highlights")
//	t, err = t.DropRows(0, 17, 31)
//
// # Conversions
//
// Tables are read as text. [ToInt], [ToFloat] and [ToDate] coerce columns and
// fail with a [*ParseError] on the first value that does not convert.
// [InferTypes] is the lenient variant used by reports.
//
// # Joins
//
// [LeftJoin] keeps every left row, fills unmatched rows with nulls and
// reports the distinct keys that missed.
//
// # Error Handling
//
// Failures unwrap to [ErrPrecondition] or [ErrParse]. [MapError] maps any error to a user-facing message
// with a support code:
//
//   - PRE001-PRE004: precondition violations (columns, rows, types)
//   - PARSE001-PARSE002: conversion failures (dates, integers)
//   - FILE001-FILE006: file errors (missing, format, encoding)
package core
