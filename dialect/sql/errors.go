package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgInvalidSavepoint     = "3B001"
)

// MySQL error numbers.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
	mysqlLockWaitTimeout        = 1205
	mysqlDeadlock               = 1213
	mysqlSavepointNotExist      = 1305
)

// errorClass is a family of backend errors recognized across drivers.
type errorClass struct {
	pg     []string
	mysql  []uint16
	sqlite []int
	text   []string
}

var (
	uniqueViolation = errorClass{
		pg:     []string{pgUniqueViolation},
		mysql:  []uint16{mysqlDuplicateEntry},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		text:   []string{"violates unique constraint", "UNIQUE constraint failed", "Violation of UNIQUE KEY", "ORA-00001"},
	}
	foreignKeyViolation = errorClass{
		pg:     []string{pgForeignKeyViolation},
		mysql:  []uint16{mysqlForeignKeyParent, mysqlForeignKeyChild},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		text:   []string{"violates foreign key constraint", "FOREIGN KEY constraint failed", "ORA-02291", "ORA-02292"},
	}
	checkViolation = errorClass{
		pg:     []string{pgCheckViolation},
		mysql:  []uint16{mysqlCheckConstraintViolate},
		sqlite: []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		text:   []string{"violates check constraint", "CHECK constraint failed", "ORA-02290"},
	}
	serializationFailure = errorClass{
		pg:     []string{pgSerializationFailure, pgDeadlockDetected},
		mysql:  []uint16{mysqlDeadlock, mysqlLockWaitTimeout},
		sqlite: []int{sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED},
		text:   []string{"could not serialize access", "deadlock", "ORA-08177"},
	}
	savepointNotFound = errorClass{
		pg:    []string{pgInvalidSavepoint},
		mysql: []uint16{mysqlSavepointNotExist},
		text:  []string{"no such savepoint", "ORA-01086"},
	}
)

// match reports whether err belongs to the class. Typed driver errors are
// checked first; drivers without typed errors are matched by message.
func (c errorClass) match(err error) bool {
	if err == nil {
		return false
	}
	if e := (*pq.Error)(nil); errors.As(err, &e) {
		return contains(c.pg, string(e.Code))
	}
	if e := (*mysql.MySQLError)(nil); errors.As(err, &e) {
		return contains(c.mysql, e.Number)
	}
	if e := (*sqlite.Error)(nil); errors.As(err, &e) {
		return contains(c.sqlite, e.Code())
	}
	msg := err.Error()
	for _, s := range c.text {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func contains[T comparable](vs []T, v T) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
func IsUniqueConstraintError(err error) bool { return uniqueViolation.match(err) }

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
func IsForeignKeyConstraintError(err error) bool { return foreignKeyViolation.match(err) }

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool { return checkViolation.match(err) }

// IsSerializationFailure reports if the transaction failed because of a
// concurrent transaction (serialization failure, deadlock or lock timeout)
// and may succeed when run again.
func IsSerializationFailure(err error) bool { return serializationFailure.match(err) }

// IsSavepointNotFound reports if the server does not know the savepoint a
// statement referred to.
func IsSavepointNotFound(err error) bool { return savepointNotFound.match(err) }
