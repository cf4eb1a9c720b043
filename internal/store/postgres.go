package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/paraprep/internal/core"
)

var postgresTypes = map[core.FieldType]string{
	core.FieldText:  "TEXT",
	core.FieldInt:   "BIGINT",
	core.FieldFloat: "DOUBLE PRECISION",
	core.FieldDate:  "DATE",
}

// Beginner starts a transaction. *pgxpool.Pool and *pgx.Conn satisfy it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OpenPostgres connects a pool and verifies the connection.
func OpenPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// PostgresSink replaces a PostgreSQL table with the prepared table using COPY.
type PostgresSink struct {
	db    Beginner
	table string
}

// Postgres returns a sink bulk loading table through db.
func Postgres(db Beginner, table string) *PostgresSink {
	return &PostgresSink{db: db, table: table}
}

// Name implements prepare.Sink.
func (s *PostgresSink) Name() string { return "postgres:" + s.table }

// Write drops and recreates the table and copies every row in one
// transaction. Cells are sent as their pgtype values, so nulls stay NULL.
func (s *PostgresSink) Write(ctx context.Context, t *core.Table) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, dropTableSQL(s.table)); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	if _, err := tx.Exec(ctx, createTableSQL(s.table, t, postgresTypes)); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	cols := t.Columns()
	n, err := tx.CopyFrom(ctx, pgx.Identifier{s.table}, t.Names(), pgx.CopyFromSlice(t.Len(), func(i int) ([]any, error) {
		row := make([]any, len(cols))
		for c, col := range cols {
			row[c] = col.Cell(i)
		}
		return row, nil
	}))
	if err != nil {
		return fmt.Errorf("copy rows: %w", err)
	}
	if int(n) != t.Len() {
		return fmt.Errorf("copy rows: copied %d of %d", n, t.Len())
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
