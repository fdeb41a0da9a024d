package sql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlcraft"
	"github.com/syssam/sqlcraft/dialect"
)

func TestWithVars(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "foo", "bar"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.NoError(t, err)
	require.NoError(t, rows.Close(), "rows should be closed to release the connection")
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec("SET foo = 'bar'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectCommit()
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	err = tx.Query(
		WithVar(context.Background(), "foo", "bar"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectExec("SET foo = 'qux'").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO users DEFAULT VALUES").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("RESET foo").WillReturnResult(sqlmock.NewResult(0, 0))
	err = drv.Exec(
		WithVar(context.Background(), "foo", "qux"),
		"INSERT INTO users DEFAULT VALUES",
		[]any{},
		nil,
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarsInvalidIdentifier(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	drv := OpenDB(dialect.Postgres, db)

	rows := &Rows{}
	err = drv.Query(
		WithVar(context.Background(), "foo; DROP TABLE users; --", "bar"),
		"SELECT 1",
		[]any{},
		rows,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid session variable name")
}

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{dialect.Postgres, dialect.Postgres},
		{"postgresql", dialect.Postgres},
		{dialect.MySQL, dialect.MySQL},
		{dialect.MariaDB, dialect.MariaDB},
		{"sqlite3", dialect.SQLite},
		{"mssql", dialect.SQLServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.name, db)
			assert.Equal(t, tt.expected, drv.Dialect())
		})
	}
}

func TestDriverServerVersion(t *testing.T) {
	tests := []struct {
		dialect string
		query   string
		raw     string
		name    string
		version dialect.Version
	}{
		{dialect.SQLite, "SELECT sqlite_version()", "3.45.1", dialect.SQLite, dialect.V(3, 45, 1)},
		{dialect.Postgres, "SHOW server_version", "16.2 (Debian 16.2-1.pgdg120+2)", dialect.Postgres, dialect.V(16, 2, 0)},
		{dialect.MySQL, "SELECT VERSION()", "8.0.36-0ubuntu0.22.04.1", dialect.MySQL, dialect.V(8, 0, 36)},
		{dialect.MySQL, "SELECT VERSION()", "10.11.6-MariaDB-0+deb12u1", dialect.MariaDB, dialect.V(10, 11, 6)},
		{dialect.DuckDB, "SELECT version()", "v1.1.3", dialect.DuckDB, dialect.V(1, 1, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
			require.NoError(t, err)
			defer db.Close()
			drv := OpenDB(tt.dialect, db)

			mock.ExpectQuery(tt.query).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(tt.raw))
			v, err := drv.ServerVersion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.version, v)

			// Cached: no second query.
			d, err := drv.Formatter(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.name, d.Name())
			assert.Equal(t, tt.version, d.Version())
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDriverInvalidate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.SQLite, db)

	mock.ExpectQuery("SELECT sqlite_version()").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("3.34.0"))
	d, err := drv.Formatter(context.Background())
	require.NoError(t, err)
	assert.False(t, d.SupportsReturning())

	drv.Invalidate()
	mock.ExpectQuery("SELECT sqlite_version()").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("3.45.0"))
	d, err = drv.Formatter(context.Background())
	require.NoError(t, err)
	assert.True(t, d.SupportsReturning())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverServerVersionError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)

	denied := &mysql.MySQLError{Number: 1142, Message: "SELECT command denied"}
	mock.ExpectQuery("SELECT VERSION()").WillReturnError(denied)
	_, err = drv.ServerVersion(context.Background())
	require.Error(t, err)
	var me *mysql.MySQLError
	require.True(t, errors.As(err, &me))
	assert.EqualValues(t, 1142, me.Number)

	// Failures are not cached.
	mock.ExpectQuery("SELECT VERSION()").WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow("8.0.36"))
	v, err := drv.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dialect.V(8, 0, 36), v)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecNode(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.Postgres, db)
	d := Postgres(dialect.V(16, 0, 0))

	mock.ExpectExec(`UPDATE "users" SET "name" = $1 WHERE "id" = $2`).
		WithArgs("a8m", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	res, err := ExecNode(context.Background(), drv, d, Update("users").Set("name", "a8m").Where(EQ("id", 1)))
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// Render failures never reach the database.
	_, err = ExecNode(context.Background(), drv, d, Update("users"))
	require.True(t, sqlcraft.IsStructuralError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryNode(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := OpenDB(dialect.MySQL, db)
	d := MySQL(dialect.V(8, 0, 36))

	mock.ExpectQuery("SELECT `id`, `name` FROM `users` WHERE `age` > ? LIMIT ?").
		WithArgs(30, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m").AddRow(2, "nati"))
	rows, err := QueryNode(context.Background(), drv, d, Select("id", "name").From(T("users")).Where(GT("age", 30)).Limit(10))
	require.NoError(t, err)
	var names []string
	for rows.Next() {
		var (
			id   int
			name string
		)
		require.NoError(t, rows.Scan(&id, &name))
		names = append(names, name)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"a8m", "nati"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriverRecordsRenders(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
	d := SQLite(dialect.V(3, 30, 0))

	mock.ExpectExec(`DELETE FROM "users" WHERE "id" = ?`).WithArgs(1).WillReturnResult(sqlmock.NewResult(0, 1))
	_, err = ExecNode(context.Background(), drv, d, Delete("users").Where(EQ("id", 1)))
	require.NoError(t, err)

	_, err = QueryNode(context.Background(), drv, d, Select().From(NewJoin(JoinRight, T("a"), T("b")).OnColumns("a.id", "b.a_id")))
	require.True(t, sqlcraft.IsUnsupportedFeature(err))

	s := drv.QueryStats().Stats()
	assert.EqualValues(t, 2, s.Rendered)
	assert.EqualValues(t, 1, s.RenderErrors)
	assert.EqualValues(t, 1, s.Unsupported)
	assert.EqualValues(t, 1, s.TotalExecs)
	assert.EqualValues(t, 0, s.TotalQueries)
	require.NoError(t, mock.ExpectationsWereMet())

	drv.QueryStats().Reset()
	assert.Zero(t, drv.QueryStats().Stats())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"pq unique", &pq.Error{Code: "23505"}, IsUniqueConstraintError, true},
		{"pq fk is not unique", &pq.Error{Code: "23503"}, IsUniqueConstraintError, false},
		{"pq fk", &pq.Error{Code: "23503"}, IsForeignKeyConstraintError, true},
		{"pq check", &pq.Error{Code: "23514"}, IsCheckConstraintError, true},
		{"pq serialization", &pq.Error{Code: "40001"}, IsSerializationFailure, true},
		{"pq savepoint", &pq.Error{Code: "3B001"}, IsSavepointNotFound, true},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, IsUniqueConstraintError, true},
		{"mysql fk child", &mysql.MySQLError{Number: 1452}, IsForeignKeyConstraintError, true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, IsSerializationFailure, true},
		{"mysql savepoint", &mysql.MySQLError{Number: 1305}, IsSavepointNotFound, true},
		{"wrapped", fmt.Errorf("dialect/sql: exec: %w", &mysql.MySQLError{Number: 1062}), IsConstraintError, true},
		{"text sqlite", errors.New("UNIQUE constraint failed: users.email"), IsUniqueConstraintError, true},
		{"text sqlite savepoint", errors.New("no such savepoint: SP_1"), IsSavepointNotFound, true},
		{"nil", nil, IsConstraintError, false},
		{"other", errors.New("connection refused"), IsSerializationFailure, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.err))
		})
	}
}

func TestIsValidIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"valid_simple", "foo", true},
		{"valid_with_underscore", "foo_bar", true},
		{"valid_with_dot", "schema.table", true},
		{"invalid_empty", "", false},
		{"invalid_starting_number", "123foo", false},
		{"invalid_with_space", "foo bar", false},
		{"invalid_with_semicolon", "foo;DROP TABLE", false},
		{"invalid_too_long", string(make([]byte, 129)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isValidIdentifier(tt.input))
		})
	}
}

func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_escaping_needed", "hello", "hello"},
		{"single_quote", "it's", "it''s"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"both_quote_and_backslash", `it's a \test`, `it''s a \\test`},
		{"sql_injection_attempt", "'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeStringValue(tt.input))
		})
	}
}
