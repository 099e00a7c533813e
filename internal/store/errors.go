package store

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch is returned when values do not fit the table schema.
	ErrSchemaMismatch = errors.New("schema mismatch")
	// ErrInvalidPredicate is returned for empty predicates, unknown fields or
	// mismatched field/value counts.
	ErrInvalidPredicate = errors.New("invalid predicate")
	// ErrNotFound is returned by GetOne and GetField when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable means the backing database could not be reached.
	// Operations are never retried.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConflict is returned by conditional writes that lost to an existing row.
	ErrConflict = errors.New("conflicting record")
)

// ConflictError reports which guard of a conditional write matched.
// Guard is -1 when a unique key rejected the write instead.
type ConflictError struct {
	Table string
	Guard int
}

func (e *ConflictError) Error() string {
	if e.Guard < 0 {
		return fmt.Sprintf("%s: unique key violated", e.Table)
	}
	return fmt.Sprintf("%s: guard %d matched an existing row", e.Table, e.Guard)
}

// Unwrap lets errors.Is(err, ErrConflict) succeed.
func (e *ConflictError) Unwrap() error { return ErrConflict }
