package store

import (
	"fmt"
	"unicode/utf8"
)

// Absent is the stored value of an optional field that was never set.
// Rows written by the legacy desktop client carry this literal, so lookups
// compare against it exactly instead of treating it as a wildcard.
const Absent = "null"

// Field describes one column of a table.
type Field struct {
	Name      string
	MaxLength int
	Nullable  bool
}

// Table is an ordered schema plus the unique keys enforced on it.
type Table struct {
	Name   string
	Fields []Field
	Unique [][]string
}

// Index returns the position of the named field, or -1.
func (t *Table) Index(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Columns returns the field names in schema order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		cols[i] = f.Name
	}
	return cols
}

func (t *Table) checkValues(values []string) error {
	if len(values) != len(t.Fields) {
		return fmt.Errorf("%w: %s expects %d values, got %d", ErrSchemaMismatch, t.Name, len(t.Fields), len(values))
	}
	for i, f := range t.Fields {
		if err := f.check(values[i]); err != nil {
			return fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	return nil
}

func (f Field) check(v string) error {
	if !f.Nullable && v == Absent {
		return fmt.Errorf("%w: %s is not nullable", ErrSchemaMismatch, f.Name)
	}
	if f.MaxLength > 0 && utf8.RuneCountInString(v) > f.MaxLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrSchemaMismatch, f.Name, f.MaxLength)
	}
	return nil
}
