package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/syssam/sqlcraft/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for a single-quoted literal of a
// dialect that treats backslash as an escape character.
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// Driver is a dialect.Driver implementation for SQL based databases.
// It also knows the server version it talks to, which selects the
// Dialect used to render statements for it.
type Driver struct {
	Conn
	dialect string
	probe   *versionProbe
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(name string, c Conn) *Driver {
	return &Driver{dialect: name, Conn: c, probe: &versionProbe{}}
}

// Open wraps the database/sql.Open method and returns a Driver.
// The driverName is the registered database/sql driver (e.g. "sqlite",
// "mysql" or "postgres") and is also used as the dialect name.
func Open(driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(driverName, db), nil
}

// OpenDB wraps the given database/sql.DB method with a Driver.
func OpenDB(name string, db *sql.DB) *Driver {
	name = dialect.Normalize(name)
	return NewDriver(name, Conn{db, name})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect implements the dialect.Dialect method.
func (d Driver) Dialect() string {
	// If the underlying driver is wrapped with a telemetry driver.
	for _, name := range dialect.Names {
		if strings.HasPrefix(d.dialect, name) {
			return name
		}
	}
	return d.dialect
}

// Tx starts and returns a transaction.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn: Conn{tx, d.dialect},
		Tx:   tx,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// versionQueries holds the statement reporting the server version of each
// dialect. The first column of the first row is parsed with
// dialect.ParseVersion.
var versionQueries = map[string]string{
	dialect.SQLite:    "SELECT sqlite_version()",
	dialect.MySQL:     "SELECT VERSION()",
	dialect.MariaDB:   "SELECT VERSION()",
	dialect.Postgres:  "SHOW server_version",
	dialect.SQLServer: "SELECT CAST(SERVERPROPERTY('ProductVersion') AS VARCHAR(128))",
	dialect.Oracle:    "SELECT version FROM product_component_version WHERE product LIKE 'Oracle%'",
	dialect.DuckDB:    "SELECT version()",
}

// versionProbe caches the server version of one driver handle.
type versionProbe struct {
	mu      sync.Mutex
	name    string
	version dialect.Version
	ok      bool
}

// ServerVersion returns the version of the database server. The first
// successful lookup is cached until Invalidate is called.
func (d *Driver) ServerVersion(ctx context.Context) (dialect.Version, error) {
	_, v, err := d.server(ctx)
	return v, err
}

// server returns the dialect family and version reported by the server.
// A MySQL connection to a MariaDB server reports the mariadb family.
func (d *Driver) server(ctx context.Context) (string, dialect.Version, error) {
	p := d.probe
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ok {
		return p.name, p.version, nil
	}
	name := d.Dialect()
	query, ok := versionQueries[name]
	if !ok {
		return "", dialect.Version{}, fmt.Errorf("dialect/sql: no version query for dialect %q", name)
	}
	rows := &Rows{}
	if err := d.Query(ctx, query, []any{}, rows); err != nil {
		return "", dialect.Version{}, fmt.Errorf("dialect/sql: query server version: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", dialect.Version{}, fmt.Errorf("dialect/sql: query server version: %w", err)
		}
		return "", dialect.Version{}, fmt.Errorf("dialect/sql: server version: no rows")
	}
	var raw string
	if err := rows.Scan(&raw); err != nil {
		return "", dialect.Version{}, fmt.Errorf("dialect/sql: scan server version: %w", err)
	}
	v, err := dialect.ParseVersion(raw)
	if err != nil {
		return "", dialect.Version{}, err
	}
	if name == dialect.MySQL && strings.Contains(strings.ToLower(raw), "mariadb") {
		name = dialect.MariaDB
	}
	p.name, p.version, p.ok = name, v, true
	return name, v, nil
}

// Invalidate drops the cached server version. It must be called after the
// driver is pointed at a different server, for example on reconnect.
func (d *Driver) Invalidate() {
	d.probe.mu.Lock()
	defer d.probe.mu.Unlock()
	d.probe.name, d.probe.version, d.probe.ok = "", dialect.Version{}, false
}

// Formatter returns the Dialect matching the connected server.
func (d *Driver) Formatter(ctx context.Context) (*Dialect, error) {
	name, v, err := d.server(ctx)
	if err != nil {
		return nil, err
	}
	return New(name, v)
}

// ExecNode renders the statement node with d and executes it.
func ExecNode(ctx context.Context, ex dialect.ExecQuerier, d *Dialect, n Node) (Result, error) {
	query, args, err := n.Render(d)
	if r, ok := ex.(renderRecorder); ok {
		r.recordRender(ctx, n, err)
	}
	if err != nil {
		return nil, err
	}
	var res Result
	if err := ex.Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// QueryNode renders the query node with d and executes it. The caller
// must close the returned rows.
func QueryNode(ctx context.Context, ex dialect.ExecQuerier, d *Dialect, n Node) (*Rows, error) {
	query, args, err := n.Render(d)
	if r, ok := ex.(renderRecorder); ok {
		r.recordRender(ctx, n, err)
	}
	if err != nil {
		return nil, err
	}
	rows := &Rows{}
	if err := ex.Query(ctx, query, args, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Tx implements dialect.Tx interface.
type Tx struct {
	Conn
	driver.Tx
}

// ctyVarsKey is the key used for attaching and reading the context variables.
type ctxVarsKey struct{}

// sessionVars holds sessions/transactions variables to set before every statement.
type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a new context that holds the session variable to be executed before every query.
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	sv.vars = append(sv.vars[:len(sv.vars):len(sv.vars)], struct {
		k, v string
	}{
		k: name,
		v: value,
	})
	return context.WithValue(ctx, ctxVarsKey{}, sv)
}

// VarFromContext returns the session variable value from the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, s := range sv.vars {
		if s.k == name {
			return s.v, true
		}
	}
	return "", false
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (rerr error) {
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	switch v := v.(type) {
	case nil:
		if _, err := ex.ExecContext(ctx, query, argv...); err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
	case *sql.Result:
		res, err := ex.ExecContext(ctx, query, argv...)
		if err != nil {
			return fmt.Errorf("dialect/sql: exec: %w", err)
		}
		*v = res
	default:
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Result", v)
	}
	return nil
}

// Query implements the dialect.Query method.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	vr, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect *sql.Rows", v)
	}
	argv, ok := args.([]any)
	if !ok {
		return fmt.Errorf("dialect/sql: invalid type %T. expect []any for args", args)
	}
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	rows, err := ex.QueryContext(ctx, query, argv...)
	if err != nil {
		if cf != nil {
			err = errors.Join(err, cf())
		}
		return fmt.Errorf("dialect/sql: query: %w", err)
	}
	*vr = Rows{rows}
	if cf != nil {
		vr.ColumnScanner = rowsWithCloser{rows, cf}
	}
	return nil
}

// maySetVars sets the session variables before executing a query.
func (c Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c, nil, nil
	}
	var (
		ex    ExecQuerier  // Underlying ExecQuerier.
		cf    func() error // Close function.
		reset []string     // Reset variables.
		seen  = make(map[string]struct{}, len(sv.vars))
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	for _, s := range sv.vars {
		if !isValidIdentifier(s.k) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("invalid session variable name: %q", s.k)
		}
		if _, ok := seen[s.k]; !ok {
			switch c.dialect {
			case dialect.Postgres:
				reset = append(reset, fmt.Sprintf("RESET %s", s.k))
			case dialect.MySQL, dialect.MariaDB:
				reset = append(reset, fmt.Sprintf("SET %s = NULL", s.k))
			}
			seen[s.k] = struct{}{}
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", s.k, escapeStringValue(s.v))); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	// Variables set on a pooled connection are reset before it is
	// returned, with a fresh context in case ctx is already canceled.
	if cls := cf; cf != nil && len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows wraps the sql.Rows to avoid locks copy.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
	// IsolationLevel is an alias to sql.IsolationLevel.
	IsolationLevel = sql.IsolationLevel
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	ColumnTypes() ([]*sql.ColumnType, error)
	Columns() ([]string, error)
	Err() error
	Next() bool
	NextResultSet() bool
	Scan(dest ...any) error
}

// rowsWithCloser wraps the ColumnScanner interface with a custom Close hook.
type rowsWithCloser struct {
	ColumnScanner
	closer func() error
}

// Close closes the underlying ColumnScanner and calls the custom closer.
func (r rowsWithCloser) Close() error {
	err := r.ColumnScanner.Close()
	return errors.Join(err, r.closer())
}
