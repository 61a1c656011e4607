// Package table provides the in-memory columnar dataset used by the loader,
// cleaner and profiler.
//
// A Table is an ordered set of uniquely named columns of equal length. Each
// column has one logical type (int, float or text) and may contain nulls.
// Tables are not safe for concurrent mutation; one owner at a time.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// Column is a named, typed sequence of values.
type Column struct {
	name   string
	kind   Kind
	values []Value
}

// NewColumn builds a column of the given kind. Non-null values must match
// kind; integer values are widened when kind is KindFloat. A column of kind
// KindNull is promoted to KindFloat, the type an all-missing column loads as.
func NewColumn(name string, kind Kind, values []Value) (*Column, error) {
	if kind == KindNull {
		kind = KindFloat
	}
	out := make([]Value, len(values))
	for i, v := range values {
		switch {
		case v.IsNull():
			out[i] = v
		case v.kind == kind:
			out[i] = v
		case kind == KindFloat && v.kind == KindInt:
			out[i] = Float(float64(v.i))
		default:
			return nil, fmt.Errorf("%w: column %q row %d holds %s, want %s",
				ErrInvalidArgument, name, i, v.kind, kind)
		}
	}
	return &Column{name: name, kind: kind, values: out}, nil
}

// ColumnOf builds a column from plain Go values (see ValueOf), inferring its
// kind: all integers give KindInt, any float widens to KindFloat, and text
// cannot be mixed with numbers. Nil entries become nulls.
func ColumnOf(name string, values ...any) (*Column, error) {
	vals := make([]Value, len(values))
	kind := KindNull
	for i, x := range values {
		v, err := ValueOf(x)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		vals[i] = v
		switch {
		case v.IsNull() || v.kind == kind:
		case kind == KindNull:
			kind = v.kind
		case kind.Numeric() && v.kind.Numeric():
			kind = KindFloat
		default:
			return nil, fmt.Errorf("%w: column %q mixes %s and %s",
				ErrInvalidArgument, name, kind, v.kind)
		}
	}
	return NewColumn(name, kind, vals)
}

// MustColumnOf is like ColumnOf but panics on error.
func MustColumnOf(name string, values ...any) *Column {
	c, err := ColumnOf(name, values...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Kind returns the column's logical type.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of values.
func (c *Column) Len() int { return len(c.values) }

// Value returns the value at row i.
func (c *Column) Value(i int) Value { return c.values[i] }

// Values returns a copy of the column's values.
func (c *Column) Values() []Value {
	return append([]Value(nil), c.values...)
}

// NullCount returns the number of null values.
func (c *Column) NullCount() int {
	n := 0
	for _, v := range c.values {
		if v.IsNull() {
			n++
		}
	}
	return n
}

// Strings renders every value with Value.String, so nulls read "nan".
func (c *Column) Strings() []string {
	out := make([]string, len(c.values))
	for i, v := range c.values {
		out[i] = v.String()
	}
	return out
}

func (c *Column) take(rows []int) *Column {
	vals := make([]Value, len(rows))
	for i, r := range rows {
		vals[i] = c.values[r]
	}
	return &Column{name: c.name, kind: c.kind, values: vals}
}

// Table is an ordered collection of equal-length, uniquely named columns.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New assembles a table. It fails when names repeat or lengths differ.
func New(columns ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int, len(columns))}
	for i, c := range columns {
		if c == nil {
			return nil, fmt.Errorf("%w: nil column at position %d", ErrInvalidArgument, i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrInvalidArgument, c.name)
		}
		if i > 0 && c.Len() != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
				ErrInvalidArgument, c.name, c.Len(), t.rows)
		}
		t.rows = c.Len()
		t.index[c.name] = i
		t.columns = append(t.columns, c)
	}
	return t, nil
}

// MustNew is like New but panics on error. Intended for tests and fixtures.
func MustNew(columns ...*Column) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Columns returns the columns in order. The slice is a copy; the columns
// themselves are shared.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, columnNotFound(name)
	}
	return t.columns[i], nil
}

// HasColumn reports whether name is a column of t.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Replace swaps in a column with the same name and length as an existing one.
func (t *Table) Replace(c *Column) error {
	i, ok := t.index[c.name]
	if !ok {
		return columnNotFound(c.name)
	}
	if c.Len() != t.rows {
		return fmt.Errorf("%w: column %q has %d rows, want %d",
			ErrInvalidArgument, c.name, c.Len(), t.rows)
	}
	t.columns[i] = c
	return nil
}

// Row returns the values of row i in column order.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.columns))
	for j, c := range t.columns {
		row[j] = c.values[i]
	}
	return row
}

// Take returns a new table holding the given rows, in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{index: make(map[string]int, len(t.columns)), rows: len(rows)}
	for i, c := range t.columns {
		out.columns = append(out.columns, c.take(rows))
		out.index[c.name] = i
	}
	return out
}

// Copy returns a deep copy of t.
func (t *Table) Copy() *Table {
	rows := make([]int, t.rows)
	for i := range rows {
		rows[i] = i
	}
	return t.Take(rows)
}

// WriteCSV writes t with a header row. Nulls are written as empty fields.
func (t *Table) WriteCSV(w io.Writer, delimiter rune) error {
	cw := csv.NewWriter(w)
	if delimiter != 0 {
		cw.Comma = delimiter
	}
	if err := cw.Write(t.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.columns))
	for i := 0; i < t.rows; i++ {
		for j, c := range t.columns {
			if v := c.values[i]; v.IsNull() {
				record[j] = ""
			} else {
				record[j] = v.String()
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
