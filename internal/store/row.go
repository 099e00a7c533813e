package store

// Row is one record, values in schema order.
type Row struct {
	table  *Table
	values []string
}

// NewRow binds values to a table without validating them.
func NewRow(t *Table, values []string) Row {
	return Row{table: t, values: append([]string(nil), values...)}
}

// Get returns the value of the named field, or "" if the table has no such field.
func (r Row) Get(field string) string {
	i := r.table.Index(field)
	if i < 0 {
		return ""
	}
	return r.values[i]
}

// Values returns a copy of the row's values.
func (r Row) Values() []string {
	return append([]string(nil), r.values...)
}

// With returns a copy of the row with field set to value.
func (r Row) With(field, value string) Row {
	out := NewRow(r.table, r.values)
	if i := r.table.Index(field); i >= 0 {
		out.values[i] = value
	}
	return out
}

// Predicate matches this exact row on every field.
func (r Row) Predicate() Predicate {
	return Match(r.table.Columns(), r.values)
}
