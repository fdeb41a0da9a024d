// Package sql compiles SQL expression trees into dialect-specific SQL text
// and positional parameters.
//
// # Nodes
//
// Every piece of a statement is an immutable Node: atoms (Literal, Column,
// Identifier, RawSQL), calls, predicates, advanced expressions (CASE,
// CAST, JSON and array access), query parts, query sources and whole
// statements. Methods that change a node return a modified copy.
//
//	stmt := sql.Select("id", "name").
//	    From(sql.T("users").As("u")).
//	    Where(sql.GTE("age", 18), sql.In("status", "active", "pending")).
//	    OrderBy(sql.Desc("created_at")).
//	    Limit(10)
//
// # Dialects
//
// A Dialect is bound to a database family and server version. It decides
// identifier quoting, placeholders, keyword spelling and which features
// may be emitted:
//
//	query, args, err := stmt.Render(sql.Postgres(dialect.V(16, 0, 0)))
//	// SELECT "id", "name" FROM "users" AS "u" WHERE "age" >= $1 AND "status" IN ($2, $3)
//	//   ORDER BY "created_at" DESC LIMIT $4
//
// Rendering a node the dialect cannot express fails with an
// sqlcraft.UnsupportedFeatureError naming the SQL feature, for example
// "RIGHT JOIN" on SQLite before 3.39.0. The Supports methods allow
// checking a capability up front.
//
// # Parameters
//
// Parameters are returned in the order their placeholders appear in the
// text, and numbered placeholders ($n, @pn, :n) count across the whole
// statement, including subqueries. Substitute binds nodes as parameters
// of hand-written SQL:
//
//	query, args, err := sql.Substitute(d, "SELECT * FROM t WHERE ? AND b = ?", sql.EQ("a", 1), 2)
//
// # Execution
//
// Driver wraps database/sql. Its Formatter method probes the server
// version once and returns the matching Dialect; ExecNode and QueryNode
// render and run a node. StatsDriver and DebugDriver observe statements.
package sql
