package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory keeps tables in process. All operations hold one lock, which makes
// the conditional writes atomic.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*memTable
}

type memTable struct {
	schema *Table
	rows   [][]string
}

// NewMemory creates an empty in-process store for the given tables.
func NewMemory(tables ...*Table) *Memory {
	m := &Memory{tables: make(map[string]*memTable, len(tables))}
	for _, t := range tables {
		m.tables[t.Name] = &memTable{schema: t}
	}
	return m
}

func (m *Memory) table(t *Table) (*memTable, error) {
	mt, ok := m.tables[t.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown table %s", ErrSchemaMismatch, t.Name)
	}
	return mt, nil
}

func (m *Memory) Insert(ctx context.Context, t *Table, values []string) error {
	return m.InsertUnless(ctx, t, values)
}

func (m *Memory) Exists(ctx context.Context, t *Table, p Predicate) (bool, error) {
	rows, err := m.QueryAll(ctx, t, p)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (m *Memory) QueryAll(_ context.Context, t *Table, p Predicate) ([]Row, error) {
	if err := p.validate(t); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	mt, err := m.table(t)
	if err != nil {
		return nil, err
	}
	var out []Row
	for _, values := range mt.rows {
		if p.matches(t, values) {
			out = append(out, NewRow(t, values))
		}
	}
	return out, nil
}

func (m *Memory) GetOne(ctx context.Context, t *Table, p Predicate) (Row, error) {
	rows, err := m.QueryAll(ctx, t, p)
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, ErrNotFound
	}
	return rows[0], nil
}

func (m *Memory) GetField(ctx context.Context, t *Table, p Predicate, field string) (string, error) {
	if t.Index(field) < 0 {
		return "", fmt.Errorf("%w: %s has no field %q", ErrInvalidPredicate, t.Name, field)
	}
	row, err := m.GetOne(ctx, t, p)
	if err != nil {
		return "", err
	}
	return row.Get(field), nil
}

func (m *Memory) Update(_ context.Context, t *Table, p Predicate, set ...Assignment) (int64, error) {
	if err := p.validate(t); err != nil {
		return 0, err
	}
	if err := validateAssignments(t, set); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, err := m.table(t)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, values := range mt.rows {
		if !p.matches(t, values) {
			continue
		}
		for _, a := range set {
			values[t.Index(a.Field)] = a.Value
		}
		n++
	}
	return n, nil
}

func (m *Memory) Delete(_ context.Context, t *Table, p Predicate) (int64, error) {
	if err := p.validate(t); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, err := m.table(t)
	if err != nil {
		return 0, err
	}
	return mt.delete(p), nil
}

func (m *Memory) InsertUnless(_ context.Context, t *Table, values []string, guards ...Predicate) error {
	if err := t.checkValues(values); err != nil {
		return err
	}
	for _, g := range guards {
		if err := g.validate(t); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, err := m.table(t)
	if err != nil {
		return err
	}
	return mt.insertUnless(values, guards)
}

func (m *Memory) Replace(_ context.Context, t *Table, p Predicate, values []string, guards ...Predicate) (int64, error) {
	if err := p.validate(t); err != nil {
		return 0, err
	}
	if err := t.checkValues(values); err != nil {
		return 0, err
	}
	for _, g := range guards {
		if err := g.validate(t); err != nil {
			return 0, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	mt, err := m.table(t)
	if err != nil {
		return 0, err
	}
	saved := append([][]string(nil), mt.rows...)
	n := mt.delete(p)
	if n == 0 {
		return 0, nil
	}
	if err := mt.insertUnless(values, guards); err != nil {
		mt.rows = saved
		return 0, err
	}
	return n, nil
}

func (mt *memTable) delete(p Predicate) int64 {
	kept := mt.rows[:0:0]
	var n int64
	for _, values := range mt.rows {
		if p.matches(mt.schema, values) {
			n++
			continue
		}
		kept = append(kept, values)
	}
	mt.rows = kept
	return n
}

func (mt *memTable) insertUnless(values []string, guards []Predicate) error {
	for i, g := range guards {
		for _, row := range mt.rows {
			if g.matches(mt.schema, row) {
				return &ConflictError{Table: mt.schema.Name, Guard: i}
			}
		}
	}
	for _, key := range mt.schema.Unique {
		p := Predicate{}
		for _, f := range key {
			p.conds = append(p.conds, Cond{Field: f, Value: values[mt.schema.Index(f)]})
		}
		for _, row := range mt.rows {
			if p.matches(mt.schema, row) {
				return &ConflictError{Table: mt.schema.Name, Guard: -1}
			}
		}
	}
	mt.rows = append(mt.rows, append([]string(nil), values...))
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
