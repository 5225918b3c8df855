package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no record matched the filter of an update.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTable indicates a table name that is not a safe identifier.
	ErrInvalidTable = errors.New("invalid table name")
)

// StoreError wraps a record store failure with the operation and table.
type StoreError struct {
	Op    string // Operation being performed (e.g., "select", "insert", "update")
	Table string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for table %s: %v", e.Op, e.Table, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for store errors.
func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a new store error with context.
func NewStoreError(op, table string, err error) *StoreError {
	return &StoreError{
		Op:    op,
		Table: table,
		Err:   err,
	}
}

// IsNotFound checks if an error indicates no record matched.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidTable checks if an error indicates an unsafe table name.
func IsInvalidTable(err error) bool {
	return errors.Is(err, ErrInvalidTable)
}
