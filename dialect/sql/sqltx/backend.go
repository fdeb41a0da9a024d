package sqltx

import (
	"context"
	"errors"

	"github.com/syssam/sqlcraft/dialect"
	"github.com/syssam/sqlcraft/dialect/sql"
)

// Backend performs the physical transaction operations of one connection.
// Exec runs the savepoint statements produced by the dialect.
type Backend interface {
	Begin(ctx context.Context, opts *sql.TxOptions) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Exec(ctx context.Context, query string) error
}

// txBeginner is implemented by drivers accepting transaction options,
// such as *sql.Driver.
type txBeginner interface {
	BeginTx(context.Context, *sql.TxOptions) (dialect.Tx, error)
}

// DriverBackend is a Backend over a dialect.Driver. While a transaction
// is open, statements of the unit of work must run on ExecQuerier.
type DriverBackend struct {
	drv dialect.Driver
	tx  dialect.Tx
}

// NewDriverBackend returns a Backend starting its transactions on drv.
func NewDriverBackend(drv dialect.Driver) *DriverBackend {
	return &DriverBackend{drv: drv}
}

// ExecQuerier returns the open transaction, or the driver when there is none.
func (b *DriverBackend) ExecQuerier() dialect.ExecQuerier {
	if b.tx != nil {
		return b.tx
	}
	return b.drv
}

// Begin starts a transaction.
func (b *DriverBackend) Begin(ctx context.Context, opts *sql.TxOptions) error {
	if b.tx != nil {
		return errors.New("dialect/sql/sqltx: transaction already started")
	}
	var (
		tx  dialect.Tx
		err error
	)
	switch bt, ok := b.drv.(txBeginner); {
	case ok:
		tx, err = bt.BeginTx(ctx, opts)
	case opts != nil && (opts.Isolation != 0 || opts.ReadOnly):
		return errors.New("dialect/sql/sqltx: driver does not accept transaction options")
	default:
		tx, err = b.drv.Tx(ctx)
	}
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

// Commit commits the open transaction.
func (b *DriverBackend) Commit(context.Context) error {
	if b.tx == nil {
		return errors.New("dialect/sql/sqltx: no open transaction")
	}
	if err := b.tx.Commit(); err != nil {
		return err
	}
	b.tx = nil
	return nil
}

// Rollback rolls back the open transaction.
func (b *DriverBackend) Rollback(context.Context) error {
	if b.tx == nil {
		return errors.New("dialect/sql/sqltx: no open transaction")
	}
	if err := b.tx.Rollback(); err != nil {
		return err
	}
	b.tx = nil
	return nil
}

// Exec runs a statement without arguments in the open transaction.
func (b *DriverBackend) Exec(ctx context.Context, query string) error {
	if b.tx == nil {
		return errors.New("dialect/sql/sqltx: no open transaction")
	}
	return b.tx.Exec(ctx, query, []any{}, nil)
}
