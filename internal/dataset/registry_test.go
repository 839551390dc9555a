package dataset

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

func init() {
	monitoring.SetLogger(nil)
}

func minimal(t *testing.T, d Dataset) *table.Table {
	t.Helper()
	tb := table.New(d.Name())
	require.NoError(t, tb.AddString("subject", []string{"R1020J", "R1034D"}))
	for _, c := range d.ChannelColumns() {
		require.NoError(t, tb.AddString(c, []string{"LA1", "LA2"}))
	}
	for _, c := range d.RegionColumns() {
		require.NoError(t, tb.AddString(c, []string{"hippocampus", "MTL"}))
	}
	return tb
}

func activeSource(t *testing.T) StaticSource {
	return StaticSource{
		SingleTrialSingleChannel: minimal(t, SingleTrialSingleChannel),
		SingleTrialMultiChannel:  minimal(t, SingleTrialMultiChannel),
		SingleChannel:            minimal(t, SingleChannel),
	}
}

func TestDatasetMetadata(t *testing.T) {
	assert.Equal(t, "singletrial_multichannel", SingleTrialMultiChannel.Name())
	assert.Equal(t, "stmc", SingleTrialMultiChannel.ShortName())
	assert.True(t, SingleTrialMultiChannel.IsPair())
	assert.False(t, SingleChannel.IsPair())
	assert.Equal(t, []string{"thetachanA", "thetachanB"}, MultiChannel.ThetaColumns())
	assert.False(t, MultiChannel.Required())

	d, err := Parse("sc")
	require.NoError(t, err)
	assert.Equal(t, SingleChannel, d)
	d, err = Parse("singletrial_singlechannel")
	require.NoError(t, err)
	assert.Equal(t, SingleTrialSingleChannel, d)
	_, err = Parse("nope")
	assert.Error(t, err)

	assert.True(t, IsKnownSubject("R1177M"))
	assert.False(t, IsKnownSubject("R9999X"))
}

func TestRegistryLoadOnce(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Loaded())

	require.NoError(t, reg.Load(context.Background(), activeSource(t)))
	assert.True(t, reg.Loaded())
	assert.True(t, reg.Has(SingleChannel))
	assert.False(t, reg.Has(MultiChannel), "optional dataset should be skipped")

	err := reg.Load(context.Background(), activeSource(t))
	assert.ErrorIs(t, err, ErrRegistryLoaded)
}

func TestRegistryMissingRequired(t *testing.T) {
	src := activeSource(t)
	delete(src, SingleChannel)

	reg := NewRegistry()
	err := reg.Load(context.Background(), src)
	assert.ErrorIs(t, err, ErrDatasetNotFound)
	assert.False(t, reg.Loaded())
}

func TestRegistryValidatesColumns(t *testing.T) {
	src := activeSource(t)
	bad := table.New(SingleTrialMultiChannel.Name())
	require.NoError(t, bad.AddString("subject", []string{"R1020J"}))
	require.NoError(t, bad.AddString("channelA", []string{"LA1"}))
	src[SingleTrialMultiChannel] = bad

	err := NewRegistry().Load(context.Background(), src)
	var dce *table.DataConsistencyError
	require.True(t, errors.As(err, &dce))
	assert.Equal(t, "channelB", dce.Column)
}

func TestRegistryRejectsBlankKeys(t *testing.T) {
	for _, d := range All {
		cols := append([]string{"subject"}, d.ChannelColumns()...)
		cols = append(cols, d.RegionColumns()...)
		for _, col := range cols {
			t.Run(d.ShortName()+"/"+col, func(t *testing.T) {
				src := activeSource(t)
				src[MultiChannel] = minimal(t, MultiChannel)
				tb := src[d]
				vals, err := tb.String(col)
				require.NoError(t, err)
				vals[1] = " "
				require.NoError(t, tb.AddString(col, vals))

				reg := NewRegistry()
				err = reg.Load(context.Background(), src)
				var dce *table.DataConsistencyError
				require.ErrorAs(t, err, &dce)
				assert.Equal(t, d.Name(), dce.Table)
				assert.Equal(t, col, dce.Column)
				assert.Equal(t, 1, dce.Row)
				assert.False(t, reg.Loaded())
			})
		}
	}
}

func TestRegistryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRegistry().Load(ctx, activeSource(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotBeforeLoad(t *testing.T) {
	_, err := NewRegistry().Snapshot()
	assert.ErrorIs(t, err, ErrRegistryNotLoaded)
}

func TestSnapshotIsIndependent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load(context.Background(), activeSource(t)))

	a, err := reg.Snapshot()
	require.NoError(t, err)
	require.NoError(t, a[SingleChannel].AddString("subject", []string{"X", "Y"}))

	b, err := reg.Snapshot()
	require.NoError(t, err)
	subj, err := b[SingleChannel].String("subject")
	require.NoError(t, err)
	assert.Equal(t, []string{"R1020J", "R1034D"}, subj)
}

func TestSnapshotConcurrent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load(context.Background(), activeSource(t)))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := reg.Snapshot()
			if !assert.NoError(t, err) {
				return
			}
			keep := []bool{true, false}
			out, err := snap[SingleTrialSingleChannel].Where(keep)
			if assert.NoError(t, err) {
				assert.Equal(t, 1, out.Len())
			}
		}()
	}
	wg.Wait()
}

func TestStaticSourceCopies(t *testing.T) {
	src := activeSource(t)
	got, err := src.LoadTable(context.Background(), SingleChannel)
	require.NoError(t, err)
	require.NoError(t, got.AddString("region", []string{"x", "y"}))

	orig, err := src[SingleChannel].String("region")
	require.NoError(t, err)
	assert.Equal(t, []string{"hippocampus", "MTL"}, orig)
}

func TestInitDefault(t *testing.T) {
	require.NoError(t, InitDefault(context.Background(), activeSource(t)))
	assert.True(t, Default().Loaded())
	assert.True(t, Default().Has(SingleTrialMultiChannel))

	err := InitDefault(context.Background(), activeSource(t))
	assert.ErrorIs(t, err, ErrRegistryLoaded)
}
