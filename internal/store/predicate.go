package store

import "fmt"

// Cond is a single field = value equality.
type Cond struct {
	Field string
	Value string
}

// Assignment sets Field to Value in Update.
type Assignment = Cond

// Set builds an Assignment.
func Set(field, value string) Assignment {
	return Assignment{Field: field, Value: value}
}

// Predicate is an ordered conjunction of exact string equalities.
// Values are always bound as query parameters, never spliced into SQL.
type Predicate struct {
	conds []Cond
	err   error
}

// Where starts a predicate with one equality.
func Where(field, value string) Predicate {
	return Predicate{conds: []Cond{{Field: field, Value: value}}}
}

// Match pairs fields with values positionally. A count mismatch yields a
// predicate that every store operation rejects with ErrInvalidPredicate.
func Match(fields, values []string) Predicate {
	if len(fields) != len(values) {
		return Predicate{err: fmt.Errorf("%w: %d fields, %d values", ErrInvalidPredicate, len(fields), len(values))}
	}
	p := Predicate{conds: make([]Cond, len(fields))}
	for i := range fields {
		p.conds[i] = Cond{Field: fields[i], Value: values[i]}
	}
	return p
}

// And returns a copy of p with one more equality appended.
func (p Predicate) And(field, value string) Predicate {
	conds := make([]Cond, len(p.conds), len(p.conds)+1)
	copy(conds, p.conds)
	return Predicate{conds: append(conds, Cond{Field: field, Value: value}), err: p.err}
}

// Conds returns the equalities in order.
func (p Predicate) Conds() []Cond {
	return append([]Cond(nil), p.conds...)
}

func (p Predicate) matches(t *Table, values []string) bool {
	for _, c := range p.conds {
		if values[t.Index(c.Field)] != c.Value {
			return false
		}
	}
	return true
}

func (p Predicate) validate(t *Table) error {
	if p.err != nil {
		return p.err
	}
	if len(p.conds) == 0 {
		return fmt.Errorf("%w: empty predicate on %s", ErrInvalidPredicate, t.Name)
	}
	for _, c := range p.conds {
		if t.Index(c.Field) < 0 {
			return fmt.Errorf("%w: %s has no field %q", ErrInvalidPredicate, t.Name, c.Field)
		}
	}
	return nil
}

func validateAssignments(t *Table, set []Assignment) error {
	if len(set) == 0 {
		return fmt.Errorf("%w: no assignments for %s", ErrInvalidPredicate, t.Name)
	}
	for _, a := range set {
		i := t.Index(a.Field)
		if i < 0 {
			return fmt.Errorf("%w: %s has no field %q", ErrInvalidPredicate, t.Name, a.Field)
		}
		if err := t.Fields[i].check(a.Value); err != nil {
			return fmt.Errorf("%s: %w", t.Name, err)
		}
	}
	return nil
}
