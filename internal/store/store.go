// Package store is a small table abstraction over fixed VARCHAR schemas.
// Rows are selected by predicates made only of field = value conjunctions.
package store

import "context"

// RecordStore is implemented by Memory and GormStore.
type RecordStore interface {
	// Insert appends a row. Values must match the schema arity.
	Insert(ctx context.Context, t *Table, values []string) error
	// Exists reports whether any row matches.
	Exists(ctx context.Context, t *Table, p Predicate) (bool, error)
	// QueryAll returns every matching row. No match is not an error.
	QueryAll(ctx context.Context, t *Table, p Predicate) ([]Row, error)
	// GetOne returns the first matching row or ErrNotFound.
	GetOne(ctx context.Context, t *Table, p Predicate) (Row, error)
	// GetField projects one field of GetOne.
	GetField(ctx context.Context, t *Table, p Predicate, field string) (string, error)
	// Update rewrites every matching row and returns how many matched.
	Update(ctx context.Context, t *Table, p Predicate, set ...Assignment) (int64, error)
	// Delete removes every matching row and returns how many were removed.
	Delete(ctx context.Context, t *Table, p Predicate) (int64, error)

	// InsertUnless inserts values only if no guard matches an existing row.
	// A matching guard or unique key yields a *ConflictError.
	InsertUnless(ctx context.Context, t *Table, values []string, guards ...Predicate) error
	// Replace deletes rows matching p and, if any were removed, inserts values
	// once. Guards are checked after the delete. Returns rows replaced.
	Replace(ctx context.Context, t *Table, p Predicate, values []string, guards ...Predicate) (int64, error)
}
