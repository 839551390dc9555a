package features

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

func TestEnforceAndExcludeAlwaysConflict(t *testing.T) {
	reg := fixtureRegistry(t)
	subjects := []string{"", "all", "R1020J"}
	types := []string{"", "bump", "pvalue", "percent", "bogus"}
	levels := []*float64{nil, ptr(0.05)}
	regions := [][]string{nil, {"PFC"}}

	for _, subj := range subjects {
		for _, tt := range types {
			for _, lvl := range levels {
				for _, rg := range regions {
					name := fmt.Sprintf("%s/%s/%v/%v", subj, tt, lvl != nil, rg)
					t.Run(name, func(t *testing.T) {
						_, err := NewSession(reg, Options{
							Subject:             subj,
							IncludeRegions:      rg,
							EnforceTheta:        true,
							ExcludeTheta:        true,
							ThetaThresholdType:  tt,
							ThetaThresholdLevel: lvl,
						})
						var ce *ConfigurationError
						require.ErrorAs(t, err, &ce)
						assert.Equal(t, "enforce_theta", ce.Field)
					})
				}
			}
		}
	}
}

func TestConfigurationErrors(t *testing.T) {
	reg := fixtureRegistry(t)
	tests := []struct {
		name  string
		opts  Options
		field string
	}{
		{"unknown threshold type", Options{ThetaThresholdType: "zscore"}, "theta_threshold_type"},
		{"pvalue without level", Options{ThetaThresholdType: "pvalue"}, "theta_threshold_level"},
		{"percent without level", Options{ThetaThresholdType: "percent"}, "theta_threshold_level"},
		{"unknown baseline policy", Options{MissingBaseline: "ignore"}, "missing_baseline"},
		{"phase pairs without multichannel", Options{EnforcePhase: true}, "mark_phase_pairs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(reg, tt.opts)
			var ce *ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestSessionRequiresLoadedRegistry(t *testing.T) {
	_, err := NewSession(dataset.NewRegistry(), Options{})
	assert.ErrorIs(t, err, dataset.ErrRegistryNotLoaded)
}

func TestSessionDefaults(t *testing.T) {
	s := mustSession(t, fixtureRegistry(t), Options{})
	opts := s.Options()

	assert.Equal(t, AllSubjects, opts.Subject)
	assert.Equal(t, string(ThresholdBump), opts.ThetaThresholdType)
	assert.Equal(t, MissingBaselineError, opts.MissingBaseline)
	assert.NotEmpty(t, s.ID())

	_, ok := s.Table(dataset.MultiChannel)
	assert.False(t, ok)
}

// Subject R1020J with bump detection: only R1020J rows survive and the
// bump flags reach every table.
func TestBumpScenarioSingleSubject(t *testing.T) {
	s := mustSession(t, fixtureRegistry(t), Options{Subject: "R1020J", ThetaThresholdType: "bump"})

	for _, d := range []dataset.Dataset{dataset.SingleChannel, dataset.SingleTrialSingleChannel, dataset.SingleTrialMultiChannel} {
		v := view(t, s, d)
		require.NotZero(t, v.Len(), d.Name())
		for _, subj := range strs(t, v, "subject") {
			assert.Equal(t, "R1020J", subj, d.Name())
		}
	}

	sc := view(t, s, dataset.SingleChannel)
	assert.Equal(t, []string{"LA1", "LA2", "LA3"}, strs(t, sc, "channel"))
	assert.Equal(t, []float64{1, 0, 1}, floats(t, sc, "thetachan"))

	stsc := view(t, s, dataset.SingleTrialSingleChannel)
	assert.Equal(t, []float64{1, 1, 0, 0, 1, 1}, floats(t, stsc, "thetachan"))

	stmc := view(t, s, dataset.SingleTrialMultiChannel)
	assert.Equal(t, []float64{1, 1, 0}, floats(t, stmc, "thetachanA"))
	assert.Equal(t, []float64{1, 0, 1}, floats(t, stmc, "thetachanB"))

	assert.Equal(t, []ChannelKey{{"R1020J", "LA1"}, {"R1020J", "LA3"}}, s.ThetaChannels())
}

func TestUnknownSubjectYieldsEmptyTables(t *testing.T) {
	s := mustSession(t, fixtureRegistry(t), Options{Subject: "R9999X"})
	for _, d := range []dataset.Dataset{dataset.SingleChannel, dataset.SingleTrialSingleChannel, dataset.SingleTrialMultiChannel} {
		assert.Equal(t, 0, view(t, s, d).Len(), d.Name())
	}
	assert.Empty(t, s.ThetaChannels())
}

func TestSessionsDoNotShareTables(t *testing.T) {
	reg := fixtureRegistry(t)
	narrow := mustSession(t, reg, Options{Subject: "R1034D", EnforceTheta: true})
	wide := mustSession(t, reg, Options{})

	assert.Equal(t, 1, view(t, narrow, dataset.SingleChannel).Len())
	assert.Equal(t, 6, view(t, wide, dataset.SingleChannel).Len())

	snap, err := reg.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 6, snap[dataset.SingleChannel].Len())
	assert.False(t, snap[dataset.SingleChannel].Has("thetachan"), "registry table was mutated")
	assert.False(t, snap[dataset.SingleTrialMultiChannel].Has("prerawpac"), "registry table was mutated")
}

func TestConcurrentSessions(t *testing.T) {
	reg := fixtureRegistry(t)
	subjects := []string{"R1020J", "R1034D", "all", "R1020J", "R1034D", "all"}

	var wg sync.WaitGroup
	for _, subj := range subjects {
		subj := subj
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := NewSession(reg, Options{Subject: subj, IncludeRegions: []string{"hippocampus", "PFC"}})
			if !assert.NoError(t, err) {
				return
			}
			v, _ := s.Table(dataset.SingleTrialMultiChannel)
			got, err := v.Keys("subject")
			if !assert.NoError(t, err) {
				return
			}
			for _, g := range got {
				if subj != "all" {
					assert.Equal(t, subj, g)
				}
			}
		}()
	}
	wg.Wait()
}

func TestMissingColumnIsDataConsistencyError(t *testing.T) {
	src := fixtureSource(t)
	src[dataset.SingleTrialSingleChannel] = without(t, src[dataset.SingleTrialSingleChannel], "posttheta")
	reg := loadRegistry(t, src)

	_, err := NewSession(reg, Options{ThetaThresholdType: "percent", ThetaThresholdLevel: ptr(0.5)})
	var dce *table.DataConsistencyError
	require.True(t, errors.As(err, &dce), "got %v", err)
	assert.Equal(t, "posttheta", dce.Column)

	// bump mode never reads posttheta
	_, err = NewSession(reg, Options{})
	assert.NoError(t, err)
}

func TestFailingStageIsTimed(t *testing.T) {
	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	defer monitoring.SetLogger(nil)

	src := fixtureSource(t)
	src[dataset.SingleTrialMultiChannel] = without(t, src[dataset.SingleTrialMultiChannel], "laterawpacAB")
	_, err := NewSession(loadRegistry(t, src), Options{})
	require.Error(t, err)

	var timed bool
	for _, l := range lines {
		if strings.Contains(l, "directional coupling took") {
			timed = true
		}
	}
	assert.True(t, timed, "no timing logged for the failing stage: %q", lines)
}

func without(t *testing.T, src *table.Table, drop string) *table.Table {
	t.Helper()
	out := table.New(src.Name())
	for _, col := range src.Columns() {
		if col == drop {
			continue
		}
		kind, _ := src.KindOf(col)
		switch kind {
		case table.Float:
			v, err := src.Float(col)
			require.NoError(t, err)
			require.NoError(t, out.AddFloat(col, v))
		case table.String:
			v, err := src.String(col)
			require.NoError(t, err)
			require.NoError(t, out.AddString(col, v))
		case table.Bool:
			v, err := src.Bool(col)
			require.NoError(t, err)
			require.NoError(t, out.AddBool(col, v))
		}
	}
	return out
}

func withValue(t *testing.T, src *table.Table, col string, row int, v float64) *table.Table {
	t.Helper()
	out := src.Clone()
	vals, err := out.Float(col)
	require.NoError(t, err)
	vals[row] = v
	require.NoError(t, out.AddFloat(col, vals))
	return out
}
