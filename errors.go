package sqlcraft

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy of the compiler and the transaction manager.
var (
	// ErrStructural is matched by every StructuralError.
	ErrStructural = errors.New("sqlcraft: structural error")

	// ErrUnsupportedFeature is matched by every UnsupportedFeatureError.
	ErrUnsupportedFeature = errors.New("sqlcraft: unsupported feature")

	// ErrTransaction is matched by every TransactionError and IsolationLevelError.
	ErrTransaction = errors.New("sqlcraft: transaction error")
)

// StructuralError reports a malformed node configuration, such as an INSERT
// without a data source or a placeholder/parameter count mismatch.
// It denotes a programming error and is never retried.
type StructuralError struct {
	Node string // Node kind, e.g. "INSERT"
	Msg  string
}

// Error returns the error string.
func (e *StructuralError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("sqlcraft: %s: %s", e.Node, e.Msg)
	}
	return "sqlcraft: " + e.Msg
}

// Is reports whether the target error matches StructuralError.
func (e *StructuralError) Is(err error) bool {
	return err == ErrStructural
}

// NewStructuralError returns a new StructuralError for the given node kind.
func NewStructuralError(node, format string, args ...any) *StructuralError {
	return &StructuralError{Node: node, Msg: fmt.Sprintf(format, args...)}
}

// IsStructuralError returns true if the error is a StructuralError.
func IsStructuralError(err error) bool {
	if err == nil {
		return false
	}
	var e *StructuralError
	return errors.As(err, &e) || errors.Is(err, ErrStructural)
}

// UnsupportedFeatureError is returned when a node requires a capability
// the rendering dialect (at its version) does not provide.
type UnsupportedFeatureError struct {
	Feature string // SQL feature name, e.g. "RIGHT JOIN"
	Dialect string // Dialect name and version, e.g. "sqlite 3.30.0"
	Reason  string // Optional detail
}

// Error returns the error string.
func (e *UnsupportedFeatureError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("sqlcraft: %s is not supported by %s: %s", e.Feature, e.Dialect, e.Reason)
	}
	return fmt.Sprintf("sqlcraft: %s is not supported by %s", e.Feature, e.Dialect)
}

// Is reports whether the target error matches UnsupportedFeatureError.
func (e *UnsupportedFeatureError) Is(err error) bool {
	return err == ErrUnsupportedFeature
}

// NewUnsupportedFeatureError returns a new UnsupportedFeatureError.
func NewUnsupportedFeatureError(feature, dialect, reason string) *UnsupportedFeatureError {
	return &UnsupportedFeatureError{Feature: feature, Dialect: dialect, Reason: reason}
}

// IsUnsupportedFeature returns true if the error is an UnsupportedFeatureError.
func IsUnsupportedFeature(err error) bool {
	if err == nil {
		return false
	}
	var e *UnsupportedFeatureError
	return errors.As(err, &e) || errors.Is(err, ErrUnsupportedFeature)
}

// TransactionError reports an invalid transaction state transition or a
// wrapped failure of a physical begin/commit/rollback/savepoint operation.
type TransactionError struct {
	Msg string
	Err error // Underlying backend error, if any
}

// Error returns the error string.
func (e *TransactionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sqlcraft: %s: %v", e.Msg, e.Err)
	}
	return "sqlcraft: " + e.Msg
}

// Unwrap returns the underlying error.
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches TransactionError.
func (e *TransactionError) Is(err error) bool {
	return err == ErrTransaction
}

// NewTransactionError returns a new TransactionError wrapping err (may be nil).
func NewTransactionError(msg string, err error) *TransactionError {
	return &TransactionError{Msg: msg, Err: err}
}

// IsTransactionError returns true if the error is a TransactionError
// or an IsolationLevelError.
func IsTransactionError(err error) bool {
	if err == nil {
		return false
	}
	var e *TransactionError
	return errors.As(err, &e) || errors.Is(err, ErrTransaction)
}

// IsolationLevelError is the TransactionError subtype returned when the
// isolation level is changed while a transaction is active, or when the
// dialect cannot express the requested level.
type IsolationLevelError struct {
	Level string
	Msg   string
}

// Error returns the error string.
func (e *IsolationLevelError) Error() string {
	if e.Level != "" {
		return fmt.Sprintf("sqlcraft: isolation level %s: %s", e.Level, e.Msg)
	}
	return "sqlcraft: " + e.Msg
}

// Is reports whether the target error matches IsolationLevelError.
// IsolationLevelError also matches ErrTransaction.
func (e *IsolationLevelError) Is(err error) bool {
	return err == ErrTransaction
}

// NewIsolationLevelError returns a new IsolationLevelError.
func NewIsolationLevelError(level, msg string) *IsolationLevelError {
	return &IsolationLevelError{Level: level, Msg: msg}
}

// IsIsolationLevelError returns true if the error is an IsolationLevelError.
func IsIsolationLevelError(err error) bool {
	if err == nil {
		return false
	}
	var e *IsolationLevelError
	return errors.As(err, &e)
}

// AggregateError represents multiple errors collected during an operation,
// e.g. a failed rollback after a failed body in a scoped transaction.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sqlcraft: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "sqlcraft: multiple errors:"
	for i, err := range e.Errors {
		msg += fmt.Sprintf("\n  [%d] %v", i+1, err)
	}
	return msg
}

// Unwrap returns the collected errors so errors.Is/As inspect each of them.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
