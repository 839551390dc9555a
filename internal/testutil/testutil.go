// Package testutil provides shared test utilities and fixtures.
//
// The helpers compare tables by content: column order, kinds and values,
// with NaN equal to NaN.
package testutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/kahfeatures/kahfeatures/internal/table"
)

// Snapshot is a comparable copy of a table's contents. Float columns are
// kept as numbers; every other kind is rendered through Keys.
type Snapshot struct {
	Name    string
	Len     int
	Columns []string
	Kinds   map[string]table.Kind
	Floats  map[string][]float64
	Keys    map[string][]string
}

// TakeSnapshot copies the contents of v.
func TakeSnapshot(t testing.TB, v table.View) Snapshot {
	t.Helper()
	s := Snapshot{
		Name:    v.Name(),
		Len:     v.Len(),
		Columns: v.Columns(),
		Kinds:   make(map[string]table.Kind),
		Floats:  make(map[string][]float64),
		Keys:    make(map[string][]string),
	}
	for _, c := range s.Columns {
		kind, _ := v.KindOf(c)
		s.Kinds[c] = kind
		if kind == table.Float {
			vals, err := v.Float(c)
			require.NoError(t, err)
			s.Floats[c] = vals
			continue
		}
		keys, err := v.Keys(c)
		require.NoError(t, err)
		s.Keys[c] = keys
	}
	return s
}

// TableDiff returns a cmp diff of the two tables' contents, or "".
func TableDiff(t testing.TB, want, got table.View) string {
	t.Helper()
	return cmp.Diff(TakeSnapshot(t, want), TakeSnapshot(t, got), cmpopts.EquateNaNs())
}

// AssertTablesEqual fails the test if the tables differ in content.
func AssertTablesEqual(t testing.TB, want, got table.View) {
	t.Helper()
	if diff := TableDiff(t, want, got); diff != "" {
		t.Errorf("table %s mismatch (-want +got):\n%s", want.Name(), diff)
	}
}
