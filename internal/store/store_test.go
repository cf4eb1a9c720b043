package store

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/paraprep/internal/core"
)

func preparedTable(t *testing.T) *core.Table {
	t.Helper()
	d := func(y int, m time.Month, day int) pgtype.Date {
		return pgtype.Date{Time: time.Date(y, m, day, 0, 0, 0, 0, time.UTC), Valid: true}
	}
	tbl, err := core.NewTable(
		core.NewTextColumn("country", []string{"Great Britain", "Atlantis"}),
		core.NewDateColumn("start", []pgtype.Date{d(2000, 9, 1), {}}),
		core.NewIntColumn("duration", []pgtype.Int8{{Int64: 11, Valid: true}, {}}),
		core.NewFloatColumn("ratio", []pgtype.Float8{{Float64: 0.5, Valid: true}, {}}),
		core.NewTextColumn("country_code", []string{"GBR", ""}),
	)
	require.NoError(t, err)
	return tbl
}

func TestCSVFile_WritesAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prepared.csv")
	sink := CSVFile(path)
	assert.Equal(t, "csv:"+path, sink.Name())

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stale content that is longer than the output\n"), 0o644))

	require.NoError(t, sink.Write(context.Background(), preparedTable(t)))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "country,start,duration,ratio,country_code\n" +
		"Great Britain,2000-09-01,11,0.5,GBR\n" +
		"Atlantis,,,,\n"
	assert.Equal(t, want, string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestCSVFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.csv")
	require.NoError(t, CSVFile(path).Write(context.Background(), preparedTable(t)))
	assert.FileExists(t, path)
}

func TestCSV_Writer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf).Write(context.Background(), preparedTable(t)))
	assert.Contains(t, buf.String(), "Great Britain,2000-09-01,11,0.5,GBR")
}

func TestCSV_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	assert.ErrorIs(t, CSV(&buf).Write(ctx, preparedTable(t)), context.Canceled)
	assert.Zero(t, buf.Len())
}

func TestSQL_SQLite(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "prepared.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	sink := SQL(db, SQLite, "prepared")
	assert.Equal(t, "sqlite:prepared", sink.Name())

	// Twice: the second write replaces the first.
	for i := 0; i < 2; i++ {
		require.NoError(t, sink.Write(context.Background(), preparedTable(t)))
	}

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM "prepared"`).Scan(&count))
	assert.Equal(t, 2, count)

	var (
		start    sql.NullString
		duration sql.NullInt64
		code     sql.NullString
	)
	require.NoError(t, db.QueryRow(`SELECT "start", "duration", "country_code" FROM "prepared" WHERE "country" = ?`, "Great Britain").
		Scan(&start, &duration, &code))
	assert.Equal(t, "2000-09-01", start.String)
	assert.Equal(t, int64(11), duration.Int64)
	assert.Equal(t, "GBR", code.String)

	require.NoError(t, db.QueryRow(`SELECT "start", "duration", "country_code" FROM "prepared" WHERE "country" = ?`, "Atlantis").
		Scan(&start, &duration, &code))
	assert.False(t, start.Valid)
	assert.False(t, duration.Valid)
	assert.False(t, code.Valid)
}

func TestSQL_Statements(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS "out"`)).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE "out" ("country" TEXT, "start" TEXT, "duration" INTEGER, "ratio" REAL, "country_code" TEXT)`)).
					WillReturnResult(sqlmock.NewResult(0, 0))
				prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "out" ("country", "start", "duration", "ratio", "country_code") VALUES (?, ?, ?, ?, ?)`))
				prep.ExpectExec().WithArgs("Great Britain", "2000-09-01", int64(11), 0.5, "GBR").WillReturnResult(sqlmock.NewResult(1, 1))
				prep.ExpectExec().WithArgs("Atlantis", nil, nil, nil, nil).WillReturnResult(sqlmock.NewResult(2, 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "create fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE TABLE").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "create table",
		},
		{
			name: "insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
				prep := mock.ExpectPrepare("INSERT INTO")
				prep.ExpectExec().WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "insert row 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()
			tt.setupMock(mock)

			err = SQL(db, SQLite, "out").Write(context.Background(), preparedTable(t))
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

// fakeTx records the statements and rows sent to it. Methods not
// overridden panic through the nil embedded interface.
type fakeTx struct {
	pgx.Tx
	execs      []string
	copied     [][]any
	columns    []string
	table      pgx.Identifier
	committed  bool
	rolledBack bool
	copyErr    error
}

func (f *fakeTx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.CommandTag{}, nil
}

func (f *fakeTx) CopyFrom(_ context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error) {
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	f.table, f.columns = table, columns
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return 0, err
		}
		f.copied = append(f.copied, vals)
	}
	return int64(len(f.copied)), src.Err()
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakeBeginner struct{ tx *fakeTx }

func (b fakeBeginner) Begin(context.Context) (pgx.Tx, error) { return b.tx, nil }

func TestPostgres_Copy(t *testing.T) {
	tx := &fakeTx{}
	sink := Postgres(fakeBeginner{tx}, "prepared")
	assert.Equal(t, "postgres:prepared", sink.Name())

	require.NoError(t, sink.Write(context.Background(), preparedTable(t)))

	require.Len(t, tx.execs, 2)
	assert.Equal(t, `DROP TABLE IF EXISTS "prepared"`, tx.execs[0])
	assert.Equal(t, `CREATE TABLE "prepared" ("country" TEXT, "start" DATE, "duration" BIGINT, "ratio" DOUBLE PRECISION, "country_code" TEXT)`, tx.execs[1])
	assert.Equal(t, pgx.Identifier{"prepared"}, tx.table)
	assert.Equal(t, []string{"country", "start", "duration", "ratio", "country_code"}, tx.columns)

	require.Len(t, tx.copied, 2)
	assert.Equal(t, pgtype.Int8{Int64: 11, Valid: true}, tx.copied[0][2])
	assert.Equal(t, pgtype.Text{}, tx.copied[1][4])
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
}

func TestPostgres_CopyError(t *testing.T) {
	tx := &fakeTx{copyErr: assert.AnError}
	err := Postgres(fakeBeginner{tx}, "prepared").Write(context.Background(), preparedTable(t))
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "copy rows")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}
