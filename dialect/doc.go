// Package dialect defines the database families known to sqlcraft, the
// server Version used for capability gating, and the Driver, Tx and
// ExecQuerier contracts of the backends that execute rendered statements.
//
// # Families
//
//	dialect.SQLite    = "sqlite"
//	dialect.MySQL     = "mysql"
//	dialect.MariaDB   = "mariadb"
//	dialect.Postgres  = "postgres"
//	dialect.SQLServer = "sqlserver"
//	dialect.Oracle    = "oracle"
//	dialect.DuckDB    = "duckdb"
//
// Normalize maps common aliases ("postgresql", "sqlite3", "mssql") to
// these names.
//
// # Versions
//
// A Version is a (major, minor, patch) triple. ParseVersion extracts it
// from server banners such as "8.0.36-0ubuntu0.22.04.1" or
// "PostgreSQL 16.2 on x86_64":
//
//	v, err := dialect.ParseVersion("3.45.1")
//	v.AtLeast(dialect.V(3, 39, 0)) // true
//
// # Sub-packages
//
//   - dialect/sql: expression nodes, dialect formatters and the database/sql driver
//   - dialect/sql/sqltx: nested transactions over savepoints
package dialect
