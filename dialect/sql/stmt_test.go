package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlcraft"
	"github.com/syssam/sqlcraft/dialect"
)

func TestRenderInsert(t *testing.T) {
	tests := []renderCase{
		{
			name:      "values",
			dialect:   testSQLite,
			node:      Insert("users").Columns("name", "email").Values("A", "a@x.com"),
			wantQuery: `INSERT INTO "users" ("name", "email") VALUES (?, ?)`,
			wantArgs:  []any{"A", "a@x.com"},
		},
		{
			name:      "multiple rows",
			dialect:   testPostgres,
			node:      Insert("t").Columns("a").Values(1).Values(2),
			wantQuery: `INSERT INTO "t" ("a") VALUES ($1), ($2)`,
			wantArgs:  []any{1, 2},
		},
		{
			name:      "raw value",
			dialect:   testSQLite,
			node:      Insert("t").Columns("a", "b").Values(Raw("CURRENT_TIMESTAMP"), 1),
			wantQuery: `INSERT INTO "t" ("a", "b") VALUES (CURRENT_TIMESTAMP, ?)`,
			wantArgs:  []any{1},
		},
		{
			name:      "default values",
			dialect:   testPostgres,
			node:      Insert("t").DefaultValues(),
			wantQuery: `INSERT INTO "t" DEFAULT VALUES`,
		},
		{
			name:      "default values/mysql",
			dialect:   testMySQL,
			node:      Insert("t").DefaultValues(),
			wantQuery: "INSERT INTO `t` () VALUES ()",
		},
		{
			name:      "select",
			dialect:   testPostgres,
			node:      Insert("archive").Columns("id").Select(Select("id").From(T("users")).Where(EQ("active", false))),
			wantQuery: `INSERT INTO "archive" ("id") SELECT "id" FROM "users" WHERE "active" = $1`,
			wantArgs:  []any{false},
		},
		{
			name:      "returning",
			dialect:   testPostgres,
			node:      Insert("users").Columns("name").Values("A").Returning(Returning("id", "created_at")),
			wantQuery: `INSERT INTO "users" ("name") VALUES ($1) RETURNING "id", "created_at"`,
			wantArgs:  []any{"A"},
		},
		{
			name:      "returning alias",
			dialect:   Postgres(dialect.V(18, 0, 0)),
			node:      Insert("t").Columns("a").Values(1).Returning(&ReturningClause{Exprs: []Node{C("n.a")}, Alias: "n"}),
			wantQuery: `INSERT INTO "t" ("a") VALUES ($1) RETURNING WITH (NEW AS "n") "n"."a"`,
			wantArgs:  []any{1},
		},
		{
			name:    "on conflict do update",
			dialect: testPostgres,
			node: Insert("users").Columns("email", "name").Values("a@x.com", "A").
				OnConflict(DoUpdate([]string{"email"}, SetExcluded("name")...)),
			wantQuery: `INSERT INTO "users" ("email", "name") VALUES ($1, $2) ON CONFLICT ("email") DO UPDATE SET "name" = EXCLUDED."name"`,
			wantArgs:  []any{"a@x.com", "A"},
		},
		{
			name:    "on conflict where",
			dialect: testSQLite,
			node: Insert("t").Columns("id", "n").Values(1, 2).
				OnConflict(&OnConflict{Target: []string{"id"}, Updates: []Assignment{Set("n", 3)}, Where: LT("n", 5)}),
			wantQuery: `INSERT INTO "t" ("id", "n") VALUES (?, ?) ON CONFLICT ("id") DO UPDATE SET "n" = ? WHERE "n" < ?`,
			wantArgs:  []any{1, 2, 3, 5},
		},
		{
			name:      "on conflict do nothing",
			dialect:   testDuckDB,
			node:      Insert("t").Columns("id").Values(1).OnConflict(DoNothing()),
			wantQuery: `INSERT INTO "t" ("id") VALUES (?) ON CONFLICT DO NOTHING`,
			wantArgs:  []any{1},
		},
		{
			name:    "on duplicate key update",
			dialect: testMySQL,
			node: Insert("users").Columns("email", "name").Values("a@x.com", "A").
				OnConflict(DoUpdate([]string{"email"}, SetExcluded("name")...)),
			wantQuery: "INSERT INTO `users` (`email`, `name`) VALUES (?, ?) ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)",
			wantArgs:  []any{"a@x.com", "A"},
		},
		{
			name:      "on duplicate key do nothing",
			dialect:   testMariaDB,
			node:      Insert("t").Columns("id").Values(1).OnConflict(DoNothing("id")),
			wantQuery: "INSERT INTO `t` (`id`) VALUES (?) ON DUPLICATE KEY UPDATE `id` = `id`",
			wantArgs:  []any{1},
		},
	}
	runRenderCases(t, tests)
}

func TestInsertValidation(t *testing.T) {
	tests := []struct {
		name    string
		stmt    *InsertStmt
		wantErr string
	}{
		{
			name:    "no data source",
			stmt:    Insert("users").Columns("name"),
			wantErr: "sqlcraft: INSERT: At least one of values/select/default must be provided",
		},
		{
			name:    "two data sources",
			stmt:    Insert("users").Values(1).DefaultValues(),
			wantErr: "sqlcraft: INSERT: Only one of values/select/default may be provided",
		},
		{
			name:    "default values with columns",
			stmt:    Insert("users").Columns("name").DefaultValues(),
			wantErr: "sqlcraft: INSERT: Default values cannot be combined with explicit columns",
		},
		{
			name:    "row width",
			stmt:    Insert("users").Columns("a", "b").Values(1),
			wantErr: "sqlcraft: INSERT: row 0 has 1 values, expected 2",
		},
		{
			name:    "ragged rows",
			stmt:    Insert("users").Values(1, 2).Values(3),
			wantErr: "sqlcraft: INSERT: row 1 has 1 values, expected 2",
		},
		{
			name:    "missing table",
			stmt:    Insert("").Values(1),
			wantErr: "sqlcraft: INSERT: missing table",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stmt.Validate()
			require.EqualError(t, err, tt.wantErr)
			require.True(t, sqlcraft.IsStructuralError(err))
			_, _, err = tt.stmt.Render(testPostgres)
			require.EqualError(t, err, tt.wantErr)
		})
	}
	require.NoError(t, Insert("users").Columns("name").Values("A").Validate())
}

func TestRenderUpsertErrors(t *testing.T) {
	insert := Insert("t").Columns("id", "n").Values(1, 2)

	_, _, err := insert.OnConflict(&OnConflict{Updates: []Assignment{Set("n", 1)}}).Render(testPostgres)
	require.True(t, sqlcraft.IsStructuralError(err))
	require.Contains(t, err.Error(), "DO UPDATE requires a conflict target")

	_, _, err = insert.OnConflict(&OnConflict{Target: []string{"id"}, DoNothing: true, Updates: []Assignment{Set("n", 1)}}).Render(testPostgres)
	require.True(t, sqlcraft.IsStructuralError(err))

	_, _, err = insert.OnConflict(&OnConflict{Target: []string{"id"}, Updates: []Assignment{Set("n", 1)}, Where: GT("n", 0)}).Render(testMySQL)
	requireUnsupported(t, err, "ON DUPLICATE KEY UPDATE ... WHERE")

	_, _, err = insert.OnConflict(DoNothing("id")).Render(testSQLServer)
	requireUnsupported(t, err, "UPSERT")
	require.EqualError(t, err, "sqlcraft: UPSERT is not supported by sqlserver 16.0.0: use MERGE")

	_, _, err = insert.OnConflict(DoNothing("id")).Render(SQLite(dialect.V(3, 23, 0)))
	requireUnsupported(t, err, "UPSERT")
}

func TestRenderReturningGate(t *testing.T) {
	stmt := Delete("users").Where(EQ("id", 1)).Returning(Returning("id"))

	_, _, err := stmt.Render(SQLite(dialect.V(3, 34, 0)))
	requireUnsupported(t, err, "RETURNING")

	query, args, err := stmt.Render(SQLite(dialect.V(3, 35, 0)))
	require.NoError(t, err)
	require.Equal(t, `DELETE FROM "users" WHERE "id" = ? RETURNING "id"`, query)
	require.Equal(t, []any{1}, args)

	_, _, err = stmt.Render(testMySQL)
	requireUnsupported(t, err, "RETURNING")

	query, _, err = stmt.Render(testMariaDB)
	require.NoError(t, err)
	require.Equal(t, "DELETE FROM `users` WHERE `id` = ? RETURNING `id`", query)

	_, _, err = Update("users").Set("a", 1).Returning(Returning("id")).Render(testMariaDB)
	requireUnsupported(t, err, "UPDATE RETURNING")

	_, _, err = Insert("t").Columns("a").Values(1).Returning(&ReturningClause{Exprs: []Node{C("a")}, Alias: "n"}).Render(testPostgres)
	requireUnsupported(t, err, "RETURNING WITH")
}

func TestRenderUpdateDelete(t *testing.T) {
	tests := []renderCase{
		{
			name:      "update",
			dialect:   testPostgres,
			node:      Update("users").Set("name", "B").Where(EQ("id", 1)),
			wantQuery: `UPDATE "users" SET "name" = $1 WHERE "id" = $2`,
			wantArgs:  []any{"B", 1},
		},
		{
			name:      "update/raw assignment",
			dialect:   testSQLite,
			node:      Update("t").Set("updated_at", Raw("CURRENT_TIMESTAMP")).Set("n", 2),
			wantQuery: `UPDATE "t" SET "updated_at" = CURRENT_TIMESTAMP, "n" = ?`,
			wantArgs:  []any{2},
		},
		{
			name:      "update/column value",
			dialect:   testSQLServer,
			node:      Update("t").Set("a", C("b")).Where(EQ("id", 1)),
			wantQuery: "UPDATE [t] SET [a] = [b] WHERE [id] = @p1",
			wantArgs:  []any{1},
		},
		{
			name:      "update/returning",
			dialect:   testSQLite,
			node:      Update("t").Set("a", 1).Where(EQ("id", 2)).Returning(Returning("id")),
			wantQuery: `UPDATE "t" SET "a" = ? WHERE "id" = ? RETURNING "id"`,
			wantArgs:  []any{1, 2},
		},
		{
			name:      "delete",
			dialect:   testMySQL,
			node:      Delete("users").Where(LT("age", 18)),
			wantQuery: "DELETE FROM `users` WHERE `age` < ?",
			wantArgs:  []any{18},
		},
		{
			name:      "delete/all",
			dialect:   testOracle,
			node:      Delete("users"),
			wantQuery: `DELETE FROM "users"`,
		},
	}
	runRenderCases(t, tests)

	_, _, err := Update("t").Render(testPostgres)
	require.EqualError(t, err, "sqlcraft: UPDATE: requires at least one assignment")

	_, _, err = Delete("").Render(testPostgres)
	require.EqualError(t, err, "sqlcraft: DELETE: missing table")
}

func TestRenderExplain(t *testing.T) {
	src := Select().From(T("t"))
	tests := []renderCase{
		{
			name:      "postgres/plain",
			dialect:   testPostgres,
			node:      &Explain{Statement: src},
			wantQuery: `EXPLAIN SELECT * FROM "t"`,
		},
		{
			name:      "postgres/options",
			dialect:   testPostgres,
			node:      &Explain{Statement: src, Analyze: true, Verbose: true, Format: "json"},
			wantQuery: `EXPLAIN (ANALYZE, VERBOSE, FORMAT JSON) SELECT * FROM "t"`,
		},
		{
			name:      "mysql/analyze",
			dialect:   testMySQL,
			node:      &Explain{Statement: src, Analyze: true},
			wantQuery: "EXPLAIN ANALYZE SELECT * FROM `t`",
		},
		{
			name:      "mysql/format",
			dialect:   testMySQL,
			node:      &Explain{Statement: src, Format: "json"},
			wantQuery: "EXPLAIN FORMAT=JSON SELECT * FROM `t`",
		},
		{
			name:      "sqlite",
			dialect:   testSQLite,
			node:      &Explain{Statement: src},
			wantQuery: `EXPLAIN QUERY PLAN SELECT * FROM "t"`,
		},
		{
			name:      "oracle",
			dialect:   testOracle,
			node:      &Explain{Statement: src},
			wantQuery: `EXPLAIN PLAN FOR SELECT * FROM "t"`,
		},
		{
			name:      "duckdb/analyze",
			dialect:   testDuckDB,
			node:      &Explain{Statement: Delete("t").Where(EQ("id", 1)), Analyze: true},
			wantQuery: `EXPLAIN ANALYZE DELETE FROM "t" WHERE "id" = ?`,
			wantArgs:  []any{1},
		},
	}
	runRenderCases(t, tests)

	_, _, err := (&Explain{Statement: src}).Render(testSQLServer)
	requireUnsupported(t, err, "EXPLAIN")

	_, _, err = (&Explain{Statement: src, Verbose: true}).Render(testMySQL)
	requireUnsupported(t, err, "EXPLAIN VERBOSE")

	_, _, err = (&Explain{Statement: src, Format: "json; DROP"}).Render(testPostgres)
	require.True(t, sqlcraft.IsStructuralError(err))
	require.Contains(t, err.Error(), `invalid format "json; DROP"`)
}

func TestRenderDropTable(t *testing.T) {
	query, _, err := Drop("t", true).Render(testPostgres)
	require.NoError(t, err)
	require.Equal(t, `DROP TABLE IF EXISTS "t"`, query)

	query, _, err = Drop("s.t", false).Render(testSQLServer)
	require.NoError(t, err)
	require.Equal(t, "DROP TABLE [s].[t]", query)

	_, _, err = Drop("t", true).Render(SQLServer(dialect.V(12, 0, 0)))
	requireUnsupported(t, err, "DROP TABLE IF EXISTS")
}

func TestRenderMerge(t *testing.T) {
	merge := Merge(T("target").As("t")).
		Using(T("source").As("s")).
		On(ColumnsEQ("t.id", "s.id")).
		WhenNotMatched(InsertColumns("id", "name")).
		WhenMatched(UpdateSet(Set("name", C("s.name"))).When(GT("s.version", 1)))
	tests := []renderCase{
		{
			name:      "postgres",
			dialect:   testPostgres,
			node:      merge,
			wantQuery: `MERGE INTO "target" AS "t" USING "source" AS "s" ON "t"."id" = "s"."id" WHEN MATCHED AND "s"."version" > $1 THEN UPDATE SET "name" = "s"."name" WHEN NOT MATCHED THEN INSERT ("id", "name") VALUES ("s"."id", "s"."name")`,
			wantArgs:  []any{1},
		},
		{
			name:      "sqlserver",
			dialect:   testSQLServer,
			node:      merge,
			wantQuery: "MERGE INTO [target] AS [t] USING [source] AS [s] ON [t].[id] = [s].[id] WHEN MATCHED AND [s].[version] > @p1 THEN UPDATE SET [name] = [s].[name] WHEN NOT MATCHED THEN INSERT ([id], [name]) VALUES ([s].[id], [s].[name]);",
			wantArgs:  []any{1},
		},
		{
			name:      "oracle",
			dialect:   testOracle,
			node:      merge,
			wantQuery: `MERGE INTO "target" "t" USING "source" "s" ON ("t"."id" = "s"."id") WHEN MATCHED THEN UPDATE SET "name" = "s"."name" WHERE "s"."version" > :1 WHEN NOT MATCHED THEN INSERT ("id", "name") VALUES ("s"."id", "s"."name")`,
			wantArgs:  []any{1},
		},
		{
			name:      "not matched by source",
			dialect:   testPostgres,
			node:      merge.WhenNotMatchedBySource(DeleteRow()),
			wantQuery: `MERGE INTO "target" AS "t" USING "source" AS "s" ON "t"."id" = "s"."id" WHEN MATCHED AND "s"."version" > $1 THEN UPDATE SET "name" = "s"."name" WHEN NOT MATCHED THEN INSERT ("id", "name") VALUES ("s"."id", "s"."name") WHEN NOT MATCHED BY SOURCE THEN DELETE`,
			wantArgs:  []any{1},
		},
		{
			name:    "subquery source with explicit values",
			dialect: testPostgres,
			node: Merge(T("users")).
				Using(Sub(Select("id", "name").From(T("staging")), "s")).
				On(ColumnsEQ("users.id", "s.id")).
				WhenMatched(DeleteRow().When(Null("s.name"))).
				WhenNotMatched(InsertColumns("id", "name", "source").WithValues(C("s.id"), C("s.name"), "import")),
			wantQuery: `MERGE INTO "users" USING (SELECT "id", "name" FROM "staging") AS "s" ON "users"."id" = "s"."id" WHEN MATCHED AND "s"."name" IS NULL THEN DELETE WHEN NOT MATCHED THEN INSERT ("id", "name", "source") VALUES ("s"."id", "s"."name", $1)`,
			wantArgs:  []any{"import"},
		},
	}
	runRenderCases(t, tests)

	_, _, err := merge.Render(testMySQL)
	requireUnsupported(t, err, "MERGE")

	_, _, err = merge.Render(Postgres(dialect.V(14, 0, 0)))
	requireUnsupported(t, err, "MERGE")

	_, _, err = merge.WhenNotMatchedBySource(DeleteRow()).Render(Postgres(dialect.V(16, 0, 0)))
	requireUnsupported(t, err, "WHEN NOT MATCHED BY SOURCE")

	_, _, err = merge.WhenMatched(DeleteRow()).Render(testOracle)
	requireUnsupported(t, err, "MERGE DELETE")

	invalid := []struct {
		name    string
		stmt    *MergeStmt
		wantErr string
	}{
		{"no when", Merge(T("t")).Using(T("s")).On(ColumnsEQ("t.id", "s.id")), "requires at least one WHEN clause"},
		{"no source", Merge(T("t")).On(ColumnsEQ("t.id", "s.id")).WhenMatched(DeleteRow()), "missing source"},
		{"insert when matched", Merge(T("t")).Using(T("s")).On(ColumnsEQ("t.id", "s.id")).WhenMatched(InsertColumns("id")), "invalid action for WHEN MATCHED"},
		{"delete when not matched", Merge(T("t")).Using(T("s")).On(ColumnsEQ("t.id", "s.id")).WhenNotMatched(DeleteRow()), "invalid action for WHEN NOT MATCHED"},
		{"value count", Merge(T("t")).Using(T("s")).On(ColumnsEQ("t.id", "s.id")).WhenNotMatched(InsertColumns("a", "b").WithValues(1)), "INSERT action has 1 values for 2 columns"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.stmt.Render(testPostgres)
			require.Error(t, err)
			assert.True(t, sqlcraft.IsStructuralError(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRenderGraphMatch(t *testing.T) {
	tests := []renderCase{
		{
			name:      "path",
			dialect:   testOracle,
			node:      MatchPath(V("a", "Person"), E("e", "KNOWS", DirRight), V("b", "Person")),
			wantQuery: `MATCH (a IS "Person")-[e IS "KNOWS"]->(b IS "Person")`,
		},
		{
			name:      "edge/left",
			dialect:   testOracle,
			node:      E("", "L", DirLeft),
			wantQuery: `<-[IS "L"]-`,
		},
		{
			name:      "edge/any",
			dialect:   testOracle,
			node:      E("x", "", DirAny),
			wantQuery: `<-[x]->`,
		},
		{
			name:      "edge/none",
			dialect:   testOracle,
			node:      E("", "", DirNone),
			wantQuery: `-[]-`,
		},
		{
			name:      "anonymous vertex",
			dialect:   testOracle,
			node:      V("", ""),
			wantQuery: `()`,
		},
	}
	runRenderCases(t, tests)

	_, _, err := MatchPath(V("a", "Person")).Render(testPostgres)
	requireUnsupported(t, err, "MATCH")

	for _, path := range [][]Node{
		{V("a", "P"), E("e", "K", DirRight)},
		{V("a", "P"), V("b", "P"), V("c", "P")},
		{V("a b", "P")},
	} {
		_, _, err := MatchPath(path...).Render(testOracle)
		require.Error(t, err)
		require.True(t, sqlcraft.IsStructuralError(err))
	}
}
