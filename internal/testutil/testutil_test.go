package testutil

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahfeatures/kahfeatures/internal/table"
)

func sample(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New("singlechannel")
	require.NoError(t, tb.AddString("subject", []string{"R1020J", "R1034D"}))
	require.NoError(t, tb.AddFloat("thetabump", []float64{1, math.NaN()}))
	require.NoError(t, tb.AddBool("thetachan", []bool{true, false}))
	return tb
}

func TestTakeSnapshot(t *testing.T) {
	s := TakeSnapshot(t, sample(t))

	assert.Equal(t, "singlechannel", s.Name)
	assert.Equal(t, 2, s.Len)
	assert.Equal(t, []string{"subject", "thetabump", "thetachan"}, s.Columns)
	assert.Equal(t, table.Bool, s.Kinds["thetachan"])
	assert.Equal(t, []string{"True", "False"}, s.Keys["thetachan"])
	assert.Len(t, s.Floats["thetabump"], 2)
	assert.True(t, math.IsNaN(s.Floats["thetabump"][1]))
}

func TestTableDiff(t *testing.T) {
	a := sample(t)
	assert.Empty(t, TableDiff(t, a, a.Clone()))
	AssertTablesEqual(t, a, table.ReadOnly(a.Clone()))

	b := a.Clone()
	require.NoError(t, b.AddFloat("thetabump", []float64{0, math.NaN()}))
	assert.NotEmpty(t, TableDiff(t, a, b))

	c := a.Clone()
	require.NoError(t, c.AddString("thetachan", []string{"True", "False"}))
	assert.NotEmpty(t, TableDiff(t, a, c), "kind change must show up")
}
