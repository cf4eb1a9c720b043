package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/JonMunkholm/paraprep/internal/core"
)

// Dialect describes how column types and placeholders are spelled.
type Dialect struct {
	Name        string
	Types       map[core.FieldType]string
	Placeholder func(n int) string // n is 1-based
}

// SQLite is the dialect for modernc.org/sqlite.
var SQLite = Dialect{
	Name: "sqlite",
	Types: map[core.FieldType]string{
		core.FieldText:  "TEXT",
		core.FieldInt:   "INTEGER",
		core.FieldFloat: "REAL",
		core.FieldDate:  "TEXT",
	},
	Placeholder: func(int) string { return "?" },
}

// OpenSQLite opens a SQLite database file, creating it if needed.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, nil
}

// SQLSink replaces a database table with the prepared table.
type SQLSink struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// SQL returns a sink writing to table through db.
func SQL(db *sql.DB, d Dialect, table string) *SQLSink {
	return &SQLSink{db: db, dialect: d, table: table}
}

// Name implements prepare.Sink.
func (s *SQLSink) Name() string { return s.dialect.Name + ":" + s.table }

// Write drops and recreates the table and inserts every row in one
// transaction. Nulls are stored as SQL NULL.
func (s *SQLSink) Write(ctx context.Context, t *core.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, dropTableSQL(s.table)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(s.table, t, s.dialect.Types)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.insertSQL(t))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	cols := t.Columns()
	args := make([]any, len(cols))
	for i := 0; i < t.Len(); i++ {
		for c, col := range cols {
			args[c] = cellValue(col, i)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func dropTableSQL(table string) string {
	return "DROP TABLE IF EXISTS " + quoteIdentifier(table)
}

func createTableSQL(table string, t *core.Table, types map[core.FieldType]string) string {
	defs := make([]string, t.Width())
	for i, c := range t.Columns() {
		defs[i] = quoteIdentifier(c.Name()) + " " + types[c.Type()]
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdentifier(table), strings.Join(defs, ", "))
}

func (s *SQLSink) insertSQL(t *core.Table) string {
	names := make([]string, t.Width())
	marks := make([]string, t.Width())
	for i, n := range t.Names() {
		names[i] = quoteIdentifier(n)
		marks[i] = s.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(s.table), strings.Join(names, ", "), strings.Join(marks, ", "))
}
