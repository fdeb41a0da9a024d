// Package sqltx manages nested transactions on one connection. Nesting is
// implemented with savepoints when the dialect has them, and is counted
// without any physical effect otherwise.
package sqltx

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/syssam/sqlcraft"
	"github.com/syssam/sqlcraft/dialect/sql"
)

// Manager is the transaction state of one connection. Calls are applied
// in the order they are made; a Manager must not be shared by logical
// callers that need independent transactions.
//
// If a context is canceled during a physical operation, the outcome on
// the server is unknown. Callers should inspect IsActive and Level.
type Manager struct {
	mu         sync.Mutex
	backend    Backend
	dialect    *sql.Dialect
	logger     *slog.Logger
	level      int
	active     bool
	savepoints []string
	isolation  sql.IsolationLevel
	hasLevel   bool
	auto       int
	id         uuid.UUID
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithIsolationLevel sets the isolation level of the transactions the
// manager starts. It is not validated; use SetIsolationLevel for that.
func WithIsolationLevel(l sql.IsolationLevel) Option {
	return func(m *Manager) {
		m.isolation, m.hasLevel = l, true
	}
}

// New returns a Manager running the physical operations on b with the
// savepoint syntax of d.
func New(b Backend, d *sql.Dialect, opts ...Option) *Manager {
	m := &Manager{backend: b, dialect: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IsActive reports whether a transaction is open.
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Level returns the nesting level. It is 0 when no transaction is open.
func (m *Manager) Level() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// ID returns the correlation id of the open outermost transaction, or
// uuid.Nil.
func (m *Manager) ID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id
}

// Savepoints returns the active savepoints, oldest first.
func (m *Manager) Savepoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.savepoints)
}

// IsolationLevel returns the isolation level of the next transaction, and
// false if none was set.
func (m *Manager) IsolationLevel() (sql.IsolationLevel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isolation, m.hasLevel
}

// SetIsolationLevel sets the isolation level of the next transaction.
// It fails while a transaction is open, or if the dialect cannot start a
// transaction at that level.
func (m *Manager) SetIsolationLevel(l sql.IsolationLevel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return sqlcraft.NewIsolationLevelError(l.String(), "cannot change isolation level while a transaction is active")
	}
	if !m.dialect.SupportsIsolationLevel(l) {
		return sqlcraft.NewIsolationLevelError(l.String(), "not supported by "+m.dialect.String())
	}
	m.isolation, m.hasLevel = l, true
	return nil
}

// ClearIsolationLevel makes the next transaction use the server default.
func (m *Manager) ClearIsolationLevel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		return sqlcraft.NewIsolationLevelError("", "cannot change isolation level while a transaction is active")
	}
	m.isolation, m.hasLevel = 0, false
	return nil
}

// Begin opens a transaction, or a nested one inside the open transaction.
func (m *Manager) Begin(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level == 0 {
		var opts *sql.TxOptions
		if m.hasLevel {
			opts = &sql.TxOptions{Isolation: m.isolation}
		}
		if err := m.backend.Begin(ctx, opts); err != nil {
			return sqlcraft.NewTransactionError("Failed to begin transaction", err)
		}
		m.id = uuid.New()
		m.active, m.level = true, 1
		m.log().DebugContext(ctx, "begin transaction")
		return nil
	}
	if !m.dialect.SupportsSavepoints() {
		m.level++
		m.log().DebugContext(ctx, "begin nested transaction without savepoint", "level", m.level)
		return nil
	}
	name := implicitName(m.level)
	if err := m.exec(ctx, name, m.dialect.SavepointSQL); err != nil {
		return sqlcraft.NewTransactionError("Failed to begin transaction", err)
	}
	m.savepoints = append(m.savepoints, name)
	m.level++
	m.log().DebugContext(ctx, "begin nested transaction", "level", m.level, "savepoint", name)
	return nil
}

// Commit commits the innermost open transaction. A nested commit releases
// the savepoint of its level.
func (m *Manager) Commit(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return sqlcraft.NewTransactionError("No active transaction to commit", nil)
	}
	if m.level == 1 {
		if err := m.backend.Commit(ctx); err != nil {
			return sqlcraft.NewTransactionError("Failed to commit transaction", err)
		}
		m.log().DebugContext(ctx, "commit transaction")
		m.reset()
		return nil
	}
	level := m.level - 1
	if m.dialect.SupportsSavepoints() {
		name := implicitName(level)
		i := slices.Index(m.savepoints, name)
		if i < 0 {
			m.log().WarnContext(ctx, "savepoint of nested transaction not found", "level", m.level, "savepoint", name)
		} else {
			err := m.exec(ctx, name, m.dialect.ReleaseSavepointSQL)
			switch {
			case sql.IsSavepointNotFound(err):
				m.log().WarnContext(ctx, "savepoint of nested transaction not found on server", "level", m.level, "savepoint", name)
			case err != nil:
				return sqlcraft.NewTransactionError("Failed to commit transaction", err)
			}
			m.savepoints = m.savepoints[:i]
		}
	}
	m.level = level
	m.log().DebugContext(ctx, "commit nested transaction", "level", m.level)
	return nil
}

// Rollback rolls back the innermost open transaction. A nested rollback
// returns to the savepoint of its level. Without savepoint support a
// nested rollback only decrements the level; its changes are undone only
// if an enclosing transaction is rolled back.
func (m *Manager) Rollback(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return sqlcraft.NewTransactionError("No active transaction to rollback", nil)
	}
	if m.level == 1 {
		if err := m.backend.Rollback(ctx); err != nil {
			return sqlcraft.NewTransactionError("Failed to rollback transaction", err)
		}
		m.log().DebugContext(ctx, "rollback transaction")
		m.reset()
		return nil
	}
	level := m.level - 1
	if !m.dialect.SupportsSavepoints() {
		m.log().WarnContext(ctx, "nested rollback without savepoint support", "level", m.level)
		m.level = level
		return nil
	}
	name := implicitName(level)
	i := slices.Index(m.savepoints, name)
	if i < 0 {
		m.log().WarnContext(ctx, "savepoint of nested transaction not found", "level", m.level, "savepoint", name)
		m.level = level
		return nil
	}
	if err := m.exec(ctx, name, m.dialect.RollbackToSavepointSQL); err != nil {
		return sqlcraft.NewTransactionError("Failed to rollback transaction", err)
	}
	m.savepoints = m.savepoints[:i]
	m.level = level
	m.log().DebugContext(ctx, "rollback nested transaction", "level", m.level)
	return nil
}

// Savepoint creates a named savepoint in the open transaction and returns
// its name. An empty name is replaced by a generated one.
func (m *Manager) Savepoint(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return "", sqlcraft.NewTransactionError("No active transaction for savepoint", nil)
	}
	if name == "" {
		m.auto++
		name = "SP_AUTO_" + strconv.Itoa(m.auto)
	}
	if isImplicitName(name) {
		return "", sqlcraft.NewTransactionError("Savepoint name is reserved: "+name, nil)
	}
	if slices.Contains(m.savepoints, name) {
		return "", sqlcraft.NewTransactionError("Savepoint already exists: "+name, nil)
	}
	if err := m.exec(ctx, name, m.dialect.SavepointSQL); err != nil {
		return "", sqlcraft.NewTransactionError("Failed to create savepoint "+name, err)
	}
	m.savepoints = append(m.savepoints, name)
	m.log().DebugContext(ctx, "savepoint", "savepoint", name)
	return name, nil
}

// Release releases the savepoint and every savepoint created after it.
func (m *Manager) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.lookup(name)
	if err != nil {
		return err
	}
	if err := m.exec(ctx, name, m.dialect.ReleaseSavepointSQL); err != nil {
		return sqlcraft.NewTransactionError("Failed to release savepoint "+name, err)
	}
	m.savepoints = m.savepoints[:i]
	m.log().DebugContext(ctx, "release savepoint", "savepoint", name)
	return nil
}

// RollbackTo rolls back to the savepoint. Savepoints created after it are
// discarded; the savepoint itself stays active.
func (m *Manager) RollbackTo(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.lookup(name)
	if err != nil {
		return err
	}
	if err := m.exec(ctx, name, m.dialect.RollbackToSavepointSQL); err != nil {
		return sqlcraft.NewTransactionError("Failed to rollback to savepoint "+name, err)
	}
	m.savepoints = m.savepoints[:i+1]
	m.log().DebugContext(ctx, "rollback to savepoint", "savepoint", name)
	return nil
}

// Run runs fn in a transaction, nested if one is already open. The
// transaction is committed if fn returns nil and rolled back if fn
// returns an error, panics, or the commit fails.
func (m *Manager) Run(ctx context.Context, fn func(context.Context) error) (err error) {
	if err := m.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			if rerr := m.Rollback(ctx); rerr != nil {
				m.log().ErrorContext(ctx, "rollback after panic failed", "error", rerr)
			}
			panic(v)
		}
	}()
	if err := fn(ctx); err != nil {
		return sqlcraft.NewAggregateError(err, m.Rollback(ctx))
	}
	if err := m.Commit(ctx); err != nil {
		return sqlcraft.NewAggregateError(err, m.Rollback(ctx))
	}
	return nil
}

// lookup returns the index of an active savepoint.
func (m *Manager) lookup(name string) (int, error) {
	i := slices.Index(m.savepoints, name)
	if !m.active || i < 0 {
		return 0, sqlcraft.NewTransactionError("Invalid savepoint name: "+name, nil)
	}
	return i, nil
}

// exec runs the savepoint statement built by stmt. Dialects without a
// statement for the operation return an empty one, which is skipped.
func (m *Manager) exec(ctx context.Context, name string, stmt func(string) (string, error)) error {
	query, err := stmt(name)
	if err != nil {
		return err
	}
	if query == "" {
		return nil
	}
	return m.backend.Exec(ctx, query)
}

func (m *Manager) reset() {
	m.level, m.active = 0, false
	m.savepoints = nil
	m.id = uuid.Nil
}

func (m *Manager) log() *slog.Logger {
	if m.id == uuid.Nil {
		return m.logger
	}
	return m.logger.With("tx", m.id.String())
}

func implicitName(level int) string {
	return fmt.Sprintf("SP_%d", level)
}

// isImplicitName reports whether name has the form used for the savepoints
// of nested transactions.
func isImplicitName(name string) bool {
	n, ok := strings.CutPrefix(name, "SP_")
	if !ok || n == "" {
		return false
	}
	_, err := strconv.ParseUint(n, 10, 64)
	return err == nil
}
