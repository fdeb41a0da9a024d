package dialect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Dialect names for external usage.
const (
	MySQL     = "mysql"
	MariaDB   = "mariadb"
	SQLite    = "sqlite"
	Postgres  = "postgres"
	SQLServer = "sqlserver"
	Oracle    = "oracle"
	DuckDB    = "duckdb"
)

// Names lists every supported dialect name.
var Names = []string{SQLite, MySQL, MariaDB, Postgres, SQLServer, Oracle, DuckDB}

// ExecQuerier wraps the 2 database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example, in SQL, INSERT or UPDATE.
	// It scans the result into the pointer v. For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for clients.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	// The provided context is used until the transaction is committed or rolled back.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in transaction.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// Version is a (major, minor, patch) server version used for capability gating.
type Version struct {
	Major, Minor, Patch int
}

// V is a shorthand constructor for Version.
func V(major, minor, patch int) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

var versionRe = regexp.MustCompile(`(\d+)(?:\.(\d+))?(?:\.(\d+))?`)

// ParseVersion extracts the first dotted version number from s.
// It accepts bare versions ("3.45.1") as well as server banners such as
// "PostgreSQL 15.3 on x86_64-pc-linux-gnu" or "10.11.2-MariaDB-1:10.11.2".
func ParseVersion(s string) (Version, error) {
	m := versionRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("dialect: no version number in %q", s)
	}
	var v Version
	for i, p := range []*int{&v.Major, &v.Minor, &v.Patch} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Version{}, fmt.Errorf("dialect: invalid version %q: %w", s, err)
		}
		*p = n
	}
	return v, nil
}

// MustParseVersion is like ParseVersion but panics on error.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the dotted version, e.g. "3.8.3".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// semver returns the canonical semantic version form ("v3.8.3").
func (v Version) semver() string {
	return "v" + v.String()
}

// Compare returns -1, 0 or +1 depending on whether v < w, v == w or v > w.
func (v Version) Compare(w Version) int {
	return semver.Compare(v.semver(), w.semver())
}

// AtLeast reports whether v >= w.
func (v Version) AtLeast(w Version) bool {
	return v.Compare(w) >= 0
}

// IsZero reports whether v is the zero version.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Normalize maps dialect aliases ("postgresql", "sqlite3", "mssql", ...) to
// the canonical dialect name. Unknown names are returned lower-cased.
func Normalize(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "postgresql", "pg", "pgx":
		return Postgres
	case "sqlite3":
		return SQLite
	case "mssql", "sqlserver", "azuresql":
		return SQLServer
	case "maria":
		return MariaDB
	default:
		return n
	}
}
