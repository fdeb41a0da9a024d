package sql

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlcraft"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name      string
		dialect   *Dialect
		query     string
		params    []any
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "plain values",
			dialect:   testSQLite,
			query:     `SELECT * FROM "t" WHERE a = ? AND b = ?`,
			params:    []any{1, "x"},
			wantQuery: `SELECT * FROM "t" WHERE a = ? AND b = ?`,
			wantArgs:  []any{1, "x"},
		},
		{
			name:      "raw node",
			dialect:   testSQLite,
			query:     `UPDATE "t" SET updated_at = ? WHERE id = ?`,
			params:    []any{Raw("CURRENT_TIMESTAMP"), 7},
			wantQuery: `UPDATE "t" SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			wantArgs:  []any{7},
		},
		{
			name:      "expanded list renumbered",
			dialect:   testPostgres,
			query:     `SELECT * FROM "t" WHERE a = $1 AND b IN $2 AND c = $3`,
			params:    []any{1, Lit([]int{2, 3}), 4},
			wantQuery: `SELECT * FROM "t" WHERE a = $1 AND b IN ($2, $3) AND c = $4`,
			wantArgs:  []any{1, 2, 3, 4},
		},
		{
			name:      "subquery node",
			dialect:   testSQLServer,
			query:     `SELECT * FROM t WHERE x = @p1 AND id IN (@p2)`,
			params:    []any{"a", Select("id").From(T("u")).Where(EQ("active", true))},
			wantQuery: `SELECT * FROM t WHERE x = @p1 AND id IN (SELECT [id] FROM [u] WHERE [active] = @p2)`,
			wantArgs:  []any{"a", true},
		},
		{
			name:      "positional order",
			dialect:   testOracle,
			query:     `SELECT :2 FROM dual WHERE :1 = 1`,
			params:    []any{"first", Raw("SYSDATE")},
			wantQuery: `SELECT :1 FROM dual WHERE SYSDATE = 1`,
			wantArgs:  []any{"first"},
		},
		{
			name:      "no placeholders",
			dialect:   testMySQL,
			query:     "SELECT 1",
			wantQuery: "SELECT 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := Substitute(tt.dialect, tt.query, tt.params...)
			require.NoError(t, err)
			require.Equal(t, tt.wantQuery, query)
			require.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestSubstituteCountMismatch(t *testing.T) {
	_, _, err := Substitute(testSQLite, "SELECT ? + ?", 1)
	require.True(t, sqlcraft.IsStructuralError(err))
	require.EqualError(t, err, "sqlcraft: SUBSTITUTE: query has 2 placeholders but 1 parameters were given")

	_, _, err = Substitute(testPostgres, "SELECT $1", 1, 2)
	require.True(t, sqlcraft.IsStructuralError(err))
}

func TestSubstituteNodeError(t *testing.T) {
	join := NewJoin(JoinRight, T("a"), T("b")).OnColumns("a.id", "b.id")
	query, _, err := Substitute(testSQLite, "SELECT * FROM ?", join)
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM "a" RIGHT JOIN "b" ON "a"."id" = "b"."id"`, query)

	_, _, err = Substitute(SQLite(testSQLite.Version()).Without(FeatureRightJoin), "SELECT * FROM ?", join)
	requireUnsupported(t, err, "RIGHT JOIN")
}

// Placeholder tokens are located by text search, so a token inside a
// string literal is counted like any other.
func TestSubstituteStringLiteral(t *testing.T) {
	_, _, err := Substitute(testSQLite, "SELECT '?', ?", 1)
	require.True(t, sqlcraft.IsStructuralError(err))

	query, args, err := Substitute(testSQLite, "SELECT '?', ?", Raw("x"), 1)
	require.NoError(t, err)
	require.Equal(t, "SELECT 'x', ?", query)
	require.Equal(t, []any{1}, args)
}
