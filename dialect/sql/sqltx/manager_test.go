package sqltx

import (
	"bytes"
	"context"
	stdsql "database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlcraft"
	"github.com/syssam/sqlcraft/dialect"
	"github.com/syssam/sqlcraft/dialect/sql"
)

// recorder is a Backend recording every physical operation.
type recorder struct {
	calls []string
	opts  []*sql.TxOptions
	fail  map[string]error
}

func (r *recorder) do(op string) error {
	if err, ok := r.fail[op]; ok {
		return err
	}
	r.calls = append(r.calls, op)
	return nil
}

func (r *recorder) Begin(_ context.Context, opts *sql.TxOptions) error {
	r.opts = append(r.opts, opts)
	return r.do("BEGIN")
}

func (r *recorder) Commit(context.Context) error   { return r.do("COMMIT") }
func (r *recorder) Rollback(context.Context) error { return r.do("ROLLBACK") }

func (r *recorder) Exec(_ context.Context, query string) error { return r.do(query) }

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newManager(d *sql.Dialect, opts ...Option) (*Manager, *recorder) {
	r := &recorder{fail: make(map[string]error)}
	return New(r, d, append([]Option{quiet()}, opts...)...), r
}

func requireTxError(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, sqlcraft.IsTransactionError(err), "unexpected error type %T", err)
	var te *sqlcraft.TransactionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, msg, te.Msg)
}

func TestNestedCommit(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.SQLite(dialect.Version{}))
	require.False(t, m.IsActive())
	require.Equal(t, uuid.Nil, m.ID())

	require.NoError(t, m.Begin(ctx))
	id := m.ID()
	require.NotEqual(t, uuid.Nil, id)
	require.NoError(t, m.Begin(ctx))
	require.Equal(t, 2, m.Level())
	require.Equal(t, []string{"SP_1"}, m.Savepoints())

	require.NoError(t, m.Commit(ctx))
	require.True(t, m.IsActive())
	require.Equal(t, 1, m.Level())
	require.Empty(t, m.Savepoints())
	require.Equal(t, id, m.ID())

	require.NoError(t, m.Commit(ctx))
	require.False(t, m.IsActive())
	require.Equal(t, 0, m.Level())
	require.Equal(t, uuid.Nil, m.ID())

	require.Equal(t, []string{"BEGIN", `SAVEPOINT "SP_1"`, `RELEASE SAVEPOINT "SP_1"`, "COMMIT"}, r.calls)
}

func TestNestedRollback(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.Postgres(dialect.Version{}))
	require.NoError(t, m.Begin(ctx))
	require.NoError(t, m.Begin(ctx))
	require.NoError(t, m.Begin(ctx))
	require.Equal(t, []string{"SP_1", "SP_2"}, m.Savepoints())

	require.NoError(t, m.Rollback(ctx))
	require.Equal(t, 2, m.Level())
	require.NoError(t, m.Rollback(ctx))
	require.Equal(t, 1, m.Level())
	require.NoError(t, m.Rollback(ctx))
	require.False(t, m.IsActive())

	require.Equal(t, []string{
		"BEGIN",
		`SAVEPOINT "SP_1"`,
		`SAVEPOINT "SP_2"`,
		`ROLLBACK TO SAVEPOINT "SP_2"`,
		`ROLLBACK TO SAVEPOINT "SP_1"`,
		"ROLLBACK",
	}, r.calls)
}

func TestSavepoints(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.MySQL(dialect.Version{}))
	require.NoError(t, m.Begin(ctx))

	name, err := m.Savepoint(ctx, "A")
	require.NoError(t, err)
	require.Equal(t, "A", name)
	_, err = m.Savepoint(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, m.Savepoints())

	require.NoError(t, m.RollbackTo(ctx, "A"))
	require.Equal(t, []string{"A"}, m.Savepoints())
	require.NoError(t, m.Release(ctx, "A"))
	require.Empty(t, m.Savepoints())
	require.NoError(t, m.Commit(ctx))
	require.False(t, m.IsActive())
	require.Equal(t, 0, m.Level())

	err = m.RollbackTo(ctx, "B")
	requireTxError(t, err, "Invalid savepoint name: B")

	require.Equal(t, []string{
		"BEGIN",
		"SAVEPOINT `A`",
		"SAVEPOINT `B`",
		"ROLLBACK TO SAVEPOINT `A`",
		"RELEASE SAVEPOINT `A`",
		"COMMIT",
	}, r.calls)
}

func TestSavepointNames(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(sql.SQLite(dialect.Version{}))

	_, err := m.Savepoint(ctx, "A")
	requireTxError(t, err, "No active transaction for savepoint")

	require.NoError(t, m.Begin(ctx))
	name, err := m.Savepoint(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "SP_AUTO_1", name)
	name, err = m.Savepoint(ctx, "")
	require.NoError(t, err)
	require.Equal(t, "SP_AUTO_2", name)

	_, err = m.Savepoint(ctx, "A")
	require.NoError(t, err)
	_, err = m.Savepoint(ctx, "A")
	requireTxError(t, err, "Savepoint already exists: A")

	err = m.Release(ctx, "missing")
	requireTxError(t, err, "Invalid savepoint name: missing")

	// Releasing an earlier savepoint releases the later ones.
	require.NoError(t, m.Release(ctx, "SP_AUTO_2"))
	require.Equal(t, []string{"SP_AUTO_1"}, m.Savepoints())
}

func TestSavepointReservedNames(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.Postgres(dialect.Version{}))
	require.NoError(t, m.Begin(ctx))

	for _, name := range []string{"SP_1", "SP_2", "SP_10"} {
		_, err := m.Savepoint(ctx, name)
		requireTxError(t, err, "Savepoint name is reserved: "+name)
	}
	for _, name := range []string{"SP_", "SP_X", "sp_1", "SP_AUTO_9"} {
		_, err := m.Savepoint(ctx, name)
		require.NoError(t, err, name)
	}
	require.NoError(t, m.Release(ctx, "SP_"))
	require.Empty(t, m.Savepoints())

	// Nested savepoints never collide with user savepoints.
	_, err := m.Savepoint(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, m.Begin(ctx))
	require.Equal(t, []string{"A", "SP_1"}, m.Savepoints())
	require.NoError(t, m.Commit(ctx))
	require.Equal(t, []string{"A"}, m.Savepoints())
	require.NoError(t, m.RollbackTo(ctx, "A"))
	require.Equal(t, `ROLLBACK TO SAVEPOINT "A"`, r.calls[len(r.calls)-1])
}

func TestInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.Postgres(dialect.Version{}))
	requireTxError(t, m.Commit(ctx), "No active transaction to commit")
	requireTxError(t, m.Rollback(ctx), "No active transaction to rollback")
	requireTxError(t, m.Release(ctx, "A"), "Invalid savepoint name: A")
	require.Empty(t, r.calls)
}

func TestFailedOperations(t *testing.T) {
	ctx := context.Background()
	failure := errors.New("connection reset")

	t.Run("begin", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		r.fail["BEGIN"] = failure
		err := m.Begin(ctx)
		requireTxError(t, err, "Failed to begin transaction")
		require.ErrorIs(t, err, failure)
		require.False(t, m.IsActive())
		require.Equal(t, 0, m.Level())
	})

	t.Run("commit", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		r.fail["COMMIT"] = failure
		err := m.Commit(ctx)
		requireTxError(t, err, "Failed to commit transaction")
		require.ErrorIs(t, err, failure)
		require.True(t, m.IsActive())
		require.Equal(t, 1, m.Level())
		require.NoError(t, m.Rollback(ctx))
		require.False(t, m.IsActive())
	})

	t.Run("rollback", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		r.fail["ROLLBACK"] = failure
		requireTxError(t, m.Rollback(ctx), "Failed to rollback transaction")
		require.True(t, m.IsActive())
	})

	t.Run("nested begin", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		r.fail[`SAVEPOINT "SP_1"`] = failure
		requireTxError(t, m.Begin(ctx), "Failed to begin transaction")
		require.Equal(t, 1, m.Level())
		require.Empty(t, m.Savepoints())
	})

	t.Run("nested commit", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		require.NoError(t, m.Begin(ctx))
		r.fail[`RELEASE SAVEPOINT "SP_1"`] = failure
		requireTxError(t, m.Commit(ctx), "Failed to commit transaction")
		require.Equal(t, 2, m.Level())
		require.Equal(t, []string{"SP_1"}, m.Savepoints())
	})

	t.Run("nested commit of a lost savepoint", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		require.NoError(t, m.Begin(ctx))
		r.fail[`RELEASE SAVEPOINT "SP_1"`] = errors.New("no such savepoint: SP_1")
		require.NoError(t, m.Commit(ctx))
		require.Equal(t, 1, m.Level())
		require.Empty(t, m.Savepoints())
	})

	t.Run("savepoint", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		r.fail[`SAVEPOINT "A"`] = failure
		_, err := m.Savepoint(ctx, "A")
		requireTxError(t, err, "Failed to create savepoint A")
		require.Empty(t, m.Savepoints())
	})

	t.Run("release", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.NoError(t, m.Begin(ctx))
		_, err := m.Savepoint(ctx, "A")
		require.NoError(t, err)
		r.fail[`RELEASE SAVEPOINT "A"`] = failure
		requireTxError(t, m.Release(ctx, "A"), "Failed to release savepoint A")
		require.Equal(t, []string{"A"}, m.Savepoints())
		r.fail[`ROLLBACK TO SAVEPOINT "A"`] = failure
		requireTxError(t, m.RollbackTo(ctx, "A"), "Failed to rollback to savepoint A")
	})
}

func TestIsolationLevel(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.Postgres(dialect.Version{}))
	_, ok := m.IsolationLevel()
	require.False(t, ok)

	require.NoError(t, m.SetIsolationLevel(stdsql.LevelRepeatableRead))
	level, ok := m.IsolationLevel()
	require.True(t, ok)
	require.Equal(t, stdsql.LevelRepeatableRead, level)

	require.NoError(t, m.Begin(ctx))
	require.Equal(t, &sql.TxOptions{Isolation: stdsql.LevelRepeatableRead}, r.opts[0])
	err := m.SetIsolationLevel(stdsql.LevelSerializable)
	require.True(t, sqlcraft.IsIsolationLevelError(err))
	require.True(t, sqlcraft.IsTransactionError(err))
	require.True(t, sqlcraft.IsIsolationLevelError(m.ClearIsolationLevel()))
	require.NoError(t, m.Commit(ctx))

	require.NoError(t, m.ClearIsolationLevel())
	require.NoError(t, m.Begin(ctx))
	require.Nil(t, r.opts[1])
	require.NoError(t, m.Rollback(ctx))

	err = m.SetIsolationLevel(stdsql.LevelSnapshot)
	require.True(t, sqlcraft.IsIsolationLevelError(err))
	require.Contains(t, err.Error(), "not supported by postgres 17.0.0")

	lite, _ := newManager(sql.SQLite(dialect.Version{}))
	require.True(t, sqlcraft.IsIsolationLevelError(lite.SetIsolationLevel(stdsql.LevelReadCommitted)))
	require.NoError(t, lite.SetIsolationLevel(stdsql.LevelSerializable))

	ss, r := newManager(sql.SQLServer(dialect.Version{}), WithIsolationLevel(stdsql.LevelSnapshot))
	require.NoError(t, ss.Begin(ctx))
	require.Equal(t, &sql.TxOptions{Isolation: stdsql.LevelSnapshot}, r.opts[0])
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		err := m.Run(ctx, func(ctx context.Context) error {
			require.True(t, m.IsActive())
			return m.Run(ctx, func(context.Context) error {
				require.Equal(t, 2, m.Level())
				return nil
			})
		})
		require.NoError(t, err)
		require.False(t, m.IsActive())
		require.Equal(t, []string{"BEGIN", `SAVEPOINT "SP_1"`, `RELEASE SAVEPOINT "SP_1"`, "COMMIT"}, r.calls)
	})

	t.Run("error", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		failure := errors.New("insert failed")
		err := m.Run(ctx, func(ctx context.Context) error {
			inner := m.Run(ctx, func(context.Context) error { return failure })
			require.ErrorIs(t, inner, failure)
			require.Equal(t, 1, m.Level())
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, []string{"BEGIN", `SAVEPOINT "SP_1"`, `ROLLBACK TO SAVEPOINT "SP_1"`, "COMMIT"}, r.calls)

		r.calls = nil
		err = m.Run(ctx, func(context.Context) error { return failure })
		require.Equal(t, failure, err)
		require.Equal(t, []string{"BEGIN", "ROLLBACK"}, r.calls)
	})

	t.Run("error and failed rollback", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		failure := errors.New("insert failed")
		r.fail["ROLLBACK"] = errors.New("connection reset")
		err := m.Run(ctx, func(context.Context) error { return failure })
		var agg *sqlcraft.AggregateError
		require.True(t, errors.As(err, &agg))
		require.Len(t, agg.Errors, 2)
		require.ErrorIs(t, err, failure)
		require.True(t, sqlcraft.IsTransactionError(err))
	})

	t.Run("failed commit", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		r.fail["COMMIT"] = errors.New("disk I/O error")
		err := m.Run(ctx, func(context.Context) error { return nil })
		requireTxError(t, err, "Failed to commit transaction")
		require.False(t, m.IsActive())
		require.Equal(t, []string{"BEGIN", "ROLLBACK"}, r.calls)
	})

	t.Run("failed nested commit", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		r.fail[`RELEASE SAVEPOINT "SP_1"`] = errors.New("disk I/O error")
		require.NoError(t, m.Begin(ctx))
		err := m.Run(ctx, func(context.Context) error { return nil })
		requireTxError(t, err, "Failed to commit transaction")
		require.Equal(t, 1, m.Level())
		require.Equal(t, []string{"BEGIN", `SAVEPOINT "SP_1"`, `ROLLBACK TO SAVEPOINT "SP_1"`}, r.calls)
	})

	t.Run("panic", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		require.PanicsWithValue(t, "boom", func() {
			_ = m.Run(ctx, func(context.Context) error { panic("boom") })
		})
		require.False(t, m.IsActive())
		require.Equal(t, []string{"BEGIN", "ROLLBACK"}, r.calls)
	})

	t.Run("begin failure", func(t *testing.T) {
		m, r := newManager(sql.SQLite(dialect.Version{}))
		r.fail["BEGIN"] = errors.New("too many connections")
		called := false
		err := m.Run(ctx, func(context.Context) error {
			called = true
			return nil
		})
		requireTxError(t, err, "Failed to begin transaction")
		require.False(t, called)
	})
}

func TestNestingWithoutSavepoints(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	m, r := newManager(sql.DuckDB(dialect.Version{}), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	require.NoError(t, m.Begin(ctx))
	require.NoError(t, m.Begin(ctx))
	require.NoError(t, m.Begin(ctx))
	require.Equal(t, 3, m.Level())
	require.Empty(t, m.Savepoints())

	require.NoError(t, m.Rollback(ctx))
	require.NoError(t, m.Commit(ctx))
	require.Equal(t, 1, m.Level())
	require.Contains(t, buf.String(), "nested rollback without savepoint support")

	_, err := m.Savepoint(ctx, "A")
	requireTxError(t, err, "Failed to create savepoint A")
	require.True(t, sqlcraft.IsUnsupportedFeature(err))

	require.NoError(t, m.Commit(ctx))
	require.False(t, m.IsActive())
	require.Equal(t, []string{"BEGIN", "COMMIT"}, r.calls)
}

func TestNestingWithoutRelease(t *testing.T) {
	ctx := context.Background()
	m, r := newManager(sql.SQLServer(dialect.Version{}))
	require.NoError(t, m.Begin(ctx))
	require.NoError(t, m.Begin(ctx))
	require.NoError(t, m.Commit(ctx))
	_, err := m.Savepoint(ctx, "A")
	require.NoError(t, err)
	require.NoError(t, m.Release(ctx, "A"))
	require.Empty(t, m.Savepoints())
	require.NoError(t, m.Commit(ctx))
	require.Equal(t, []string{"BEGIN", "SAVE TRANSACTION [SP_1]", "SAVE TRANSACTION [A]", "COMMIT"}, r.calls)
}

func TestDriverBackend(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := sql.OpenDB(dialect.Postgres, db)
	b := NewDriverBackend(drv)
	m := New(b, sql.Postgres(dialect.V(16, 2, 0)), quiet())
	require.Equal(t, drv, b.ExecQuerier())

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users" ("name") VALUES ($1)`)).
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`SAVEPOINT "SP_1"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users" ("name") VALUES ($1)`)).
		WithArgs("b").
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectExec(regexp.QuoteMeta(`ROLLBACK TO SAVEPOINT "SP_1"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	insert := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := sql.ExecNode(ctx, b.ExecQuerier(), sql.Postgres(dialect.V(16, 2, 0)), sql.Insert("users").Columns("name").Values(name))
			return err
		}
	}
	err = m.Run(ctx, func(ctx context.Context) error {
		require.NotEqual(t, drv, b.ExecQuerier())
		if err := insert("a")(ctx); err != nil {
			return err
		}
		err := m.Run(ctx, insert("b"))
		require.True(t, sql.IsUniqueConstraintError(err))
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, drv, b.ExecQuerier())
	require.NoError(t, mock.ExpectationsWereMet())

	require.Error(t, b.Commit(ctx))
	require.Error(t, b.Exec(ctx, "SELECT 1"))
}

func TestDriverBackendSQLite(t *testing.T) {
	ctx := context.Background()
	drv, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	drv.DB().SetMaxOpenConns(1)
	defer drv.Close()
	require.NoError(t, drv.Exec(ctx, "CREATE TABLE items (name TEXT)", []any{}, nil))

	d, err := drv.Formatter(ctx)
	require.NoError(t, err)
	b := NewDriverBackend(drv)
	m := New(b, d, quiet())
	insert := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			_, err := sql.ExecNode(ctx, b.ExecQuerier(), d, sql.Insert("items").Columns("name").Values(name))
			return err
		}
	}
	rollback := errors.New("rollback")
	err = m.Run(ctx, func(ctx context.Context) error {
		require.NoError(t, insert("kept")(ctx))
		require.NoError(t, m.Run(ctx, insert("nested")))
		err := m.Run(ctx, func(ctx context.Context) error {
			require.NoError(t, insert("discarded")(ctx))
			return rollback
		})
		require.ErrorIs(t, err, rollback)
		return nil
	})
	require.NoError(t, err)

	rows, err := sql.QueryNode(ctx, drv, d, sql.Select("name").From(sql.T("items")).OrderBy(sql.Asc("name")))
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"kept", "nested"}, names)
}
