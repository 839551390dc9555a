// Package table provides the small columnar record set used by the feature
// pipeline. It is deliberately narrow: named typed columns, stable row
// filtering and deep copies. It is not a general dataframe.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// Kind is the storage type of a column.
type Kind int

const (
	Float Kind = iota
	String
	Bool
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

type column struct {
	kind    Kind
	floats  []float64
	strings []string
	bools   []bool
}

func (c *column) clone() *column {
	out := &column{kind: c.kind}
	switch c.kind {
	case Float:
		out.floats = append([]float64(nil), c.floats...)
	case String:
		out.strings = append([]string(nil), c.strings...)
	case Bool:
		out.bools = append([]bool(nil), c.bools...)
	}
	return out
}

func (c *column) len() int {
	switch c.kind {
	case Float:
		return len(c.floats)
	case String:
		return len(c.strings)
	default:
		return len(c.bools)
	}
}

// View is the read-only surface of a Table. Every getter returns a copy.
type View interface {
	Name() string
	Len() int
	Columns() []string
	Has(col string) bool
	KindOf(col string) (Kind, bool)
	Float(col string) ([]float64, error)
	String(col string) ([]string, error)
	Bool(col string) ([]bool, error)
	Keys(col string) ([]string, error)
	Cell(col string, row int) string
}

// Table is an ordered set of rows sharing a fixed set of named columns.
// A zero-column table has zero rows; the first column added fixes the row
// count for the rest.
type Table struct {
	name  string
	order []string
	cols  map[string]*column
	rows  int
}

var _ View = (*Table)(nil)

// New creates an empty table.
func New(name string) *Table {
	return &Table{name: name, cols: make(map[string]*column)}
}

// Name returns the dataset name the table was loaded as.
func (t *Table) Name() string { return t.name }

// Len returns the number of rows.
func (t *Table) Len() int { return t.rows }

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.order...)
}

// Has reports whether the column exists.
func (t *Table) Has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

// KindOf returns the storage kind of a column.
func (t *Table) KindOf(col string) (Kind, bool) {
	c, ok := t.cols[col]
	if !ok {
		return 0, false
	}
	return c.kind, true
}

// AddFloat adds or replaces a float column.
func (t *Table) AddFloat(col string, values []float64) error {
	return t.put(col, &column{kind: Float, floats: append([]float64(nil), values...)})
}

// AddString adds or replaces a string column.
func (t *Table) AddString(col string, values []string) error {
	return t.put(col, &column{kind: String, strings: append([]string(nil), values...)})
}

// AddBool adds or replaces a bool column.
func (t *Table) AddBool(col string, values []bool) error {
	return t.put(col, &column{kind: Bool, bools: append([]bool(nil), values...)})
}

func (t *Table) put(name string, c *column) error {
	n := c.len()
	if len(t.order) > 0 && !(len(t.order) == 1 && t.Has(name)) && n != t.rows {
		return &DataConsistencyError{
			Table:  t.name,
			Column: name,
			Row:    -1,
			Reason: fmt.Sprintf("column has %d rows, table has %d", n, t.rows),
		}
	}
	if _, exists := t.cols[name]; !exists {
		t.order = append(t.order, name)
	}
	t.cols[name] = c
	t.rows = n
	return nil
}

func (t *Table) lookup(col string) (*column, error) {
	c, ok := t.cols[col]
	if !ok {
		return nil, &DataConsistencyError{Table: t.name, Column: col, Row: -1, Reason: "column not present"}
	}
	return c, nil
}

// Float returns a copy of a numeric column. Bool columns read as 0/1.
func (t *Table) Float(col string) ([]float64, error) {
	c, err := t.lookup(col)
	if err != nil {
		return nil, err
	}
	switch c.kind {
	case Float:
		return append([]float64(nil), c.floats...), nil
	case Bool:
		out := make([]float64, len(c.bools))
		for i, b := range c.bools {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, &DataConsistencyError{Table: t.name, Column: col, Row: -1,
			Reason: fmt.Sprintf("expected numeric column, found %s", c.kind)}
	}
}

// String returns a copy of a string column.
func (t *Table) String(col string) ([]string, error) {
	c, err := t.lookup(col)
	if err != nil {
		return nil, err
	}
	if c.kind != String {
		return nil, &DataConsistencyError{Table: t.name, Column: col, Row: -1,
			Reason: fmt.Sprintf("expected string column, found %s", c.kind)}
	}
	return append([]string(nil), c.strings...), nil
}

// Bool returns a copy of a bool column.
func (t *Table) Bool(col string) ([]bool, error) {
	c, err := t.lookup(col)
	if err != nil {
		return nil, err
	}
	if c.kind != Bool {
		return nil, &DataConsistencyError{Table: t.name, Column: col, Row: -1,
			Reason: fmt.Sprintf("expected bool column, found %s", c.kind)}
	}
	return append([]bool(nil), c.bools...), nil
}

// Keys renders every value of a column as a comparable string, whatever its
// kind. Identifiers such as channels may load as numbers or labels; Keys
// gives both a single identity.
func (t *Table) Keys(col string) ([]string, error) {
	c, err := t.lookup(col)
	if err != nil {
		return nil, err
	}
	out := make([]string, c.len())
	for i := range out {
		out[i] = c.format(i)
	}
	return out, nil
}

// Cell renders one cell. Unknown columns and out-of-range rows render as "".
func (t *Table) Cell(col string, row int) string {
	c, ok := t.cols[col]
	if !ok || row < 0 || row >= c.len() {
		return ""
	}
	return c.format(row)
}

func (c *column) format(i int) string {
	switch c.kind {
	case Float:
		v := c.floats[i]
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case String:
		return c.strings[i]
	default:
		if c.bools[i] {
			return "True"
		}
		return "False"
	}
}

// Where returns a new table holding the rows whose keep entry is true, in
// their original order.
func (t *Table) Where(keep []bool) (*Table, error) {
	if len(keep) != t.rows {
		return nil, &DataConsistencyError{Table: t.name, Row: -1,
			Reason: fmt.Sprintf("row mask has %d entries, table has %d rows", len(keep), t.rows)}
	}
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := &Table{
		name:  t.name,
		order: append([]string(nil), t.order...),
		cols:  make(map[string]*column, len(t.cols)),
		rows:  n,
	}
	for name, c := range t.cols {
		nc := &column{kind: c.kind}
		switch c.kind {
		case Float:
			nc.floats = make([]float64, 0, n)
			for i, k := range keep {
				if k {
					nc.floats = append(nc.floats, c.floats[i])
				}
			}
		case String:
			nc.strings = make([]string, 0, n)
			for i, k := range keep {
				if k {
					nc.strings = append(nc.strings, c.strings[i])
				}
			}
		case Bool:
			nc.bools = make([]bool, 0, n)
			for i, k := range keep {
				if k {
					nc.bools = append(nc.bools, c.bools[i])
				}
			}
		}
		out.cols[name] = nc
	}
	return out, nil
}

// Clone returns a deep copy sharing no storage with t.
func (t *Table) Clone() *Table {
	out := &Table{
		name:  t.name,
		order: append([]string(nil), t.order...),
		cols:  make(map[string]*column, len(t.cols)),
		rows:  t.rows,
	}
	for name, c := range t.cols {
		out.cols[name] = c.clone()
	}
	return out
}

type readOnly struct{ t *Table }

// ReadOnly wraps t so that holders of the View cannot reach its mutators.
func ReadOnly(t *Table) View { return readOnly{t} }

func (r readOnly) Name() string                        { return r.t.Name() }
func (r readOnly) Len() int                            { return r.t.Len() }
func (r readOnly) Columns() []string                   { return r.t.Columns() }
func (r readOnly) Has(col string) bool                 { return r.t.Has(col) }
func (r readOnly) KindOf(col string) (Kind, bool)      { return r.t.KindOf(col) }
func (r readOnly) Float(col string) ([]float64, error) { return r.t.Float(col) }
func (r readOnly) String(col string) ([]string, error) { return r.t.String(col) }
func (r readOnly) Bool(col string) ([]bool, error)     { return r.t.Bool(col) }
func (r readOnly) Keys(col string) ([]string, error)   { return r.t.Keys(col) }
func (r readOnly) Cell(col string, row int) string     { return r.t.Cell(col, row) }
