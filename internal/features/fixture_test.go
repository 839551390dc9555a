package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

func init() {
	monitoring.SetLogger(nil)
}

type scRow struct {
	subject, channel, region string
	pval, bump               float64
	post                     [2]float64 // posttheta for trials 1 and 2
}

// Channel labels repeat across subjects on purpose: R1034D/LA1 must never
// inherit R1020J/LA1's classification.
var scRows = []scRow{
	{"R1020J", "LA1", "hippocampus", 0.01, 1, [2]float64{0.5, 0.3}},
	{"R1020J", "LA2", "MTL", 0.04, 0, [2]float64{-0.1, 0.2}},
	{"R1020J", "LA3", "PFC", 0.03, 1, [2]float64{-1, -1}},
	{"R1034D", "LA1", "hippocampus", 0.50, 0, [2]float64{0.2, 0.2}},
	{"R1034D", "LA2", "MTL", 0.90, 0, [2]float64{-0.3, -0.2}},
	{"R1034D", "LB1", "PFC", 0.001, 1, [2]float64{0.1, -0.1}},
}

type stmcRow struct {
	subject              string
	trial                float64
	chA, chB, regA, regB string
	pac                  [3][2]float64 // pre, early, late x AB, BA
}

var stmcRows = []stmcRow{
	{"R1020J", 1, "LA1", "LA3", "hippocampus", "PFC", [3][2]float64{{0.2, 0.5}, {0.7, 0.1}, {0.3, 0.3}}},
	{"R1020J", 1, "LA1", "LA2", "hippocampus", "MTL", [3][2]float64{{0.4, 0.1}, {0.2, 0.6}, {0.5, 0.4}}},
	{"R1020J", 2, "LA2", "LA3", "MTL", "PFC", [3][2]float64{{0.1, 0.2}, {0.3, 0.2}, {0.1, 0.9}}},
	{"R1034D", 1, "LA1", "LB1", "hippocampus", "PFC", [3][2]float64{{0.6, 0.6}, {0.8, 0.2}, {0.2, 0.4}}},
	{"R1034D", 2, "LA1", "LA2", "hippocampus", "MTL", [3][2]float64{{0.3, 0.1}, {0.1, 0.2}, {0.4, 0.0}}},
}

func singleChannel(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New(dataset.SingleChannel.Name())
	var subj, ch, reg []string
	var pval, bump []float64
	for _, r := range scRows {
		subj = append(subj, r.subject)
		ch = append(ch, r.channel)
		reg = append(reg, r.region)
		pval = append(pval, r.pval)
		bump = append(bump, r.bump)
	}
	require.NoError(t, tb.AddString("subject", subj))
	require.NoError(t, tb.AddString("channel", ch))
	require.NoError(t, tb.AddString("region", reg))
	require.NoError(t, tb.AddFloat("pvalposttheta", pval))
	require.NoError(t, tb.AddFloat("thetabump", bump))
	return tb
}

// singleTrialSingleChannel has two trials per channel. Feature values are
// pre = base, early = base + 0.5, late = base - 0.25 with base derived from
// the row index so every row differs.
func singleTrialSingleChannel(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New(dataset.SingleTrialSingleChannel.Name())
	var subj, ch, reg []string
	var trial, post []float64
	vals := make(map[string][]float64)
	row := 0
	for _, r := range scRows {
		for tr := 0; tr < 2; tr++ {
			subj = append(subj, r.subject)
			ch = append(ch, r.channel)
			reg = append(reg, r.region)
			trial = append(trial, float64(tr+1))
			post = append(post, r.post[tr])
			for k, f := range SingleChannelFeatures {
				base := float64(row) + float64(k)/10
				vals["pre"+f] = append(vals["pre"+f], base)
				vals["early"+f] = append(vals["early"+f], base+0.5)
				vals["late"+f] = append(vals["late"+f], base-0.25)
			}
			row++
		}
	}
	require.NoError(t, tb.AddString("subject", subj))
	require.NoError(t, tb.AddFloat("trial", trial))
	require.NoError(t, tb.AddString("channel", ch))
	require.NoError(t, tb.AddString("region", reg))
	require.NoError(t, tb.AddFloat("posttheta", post))
	for _, f := range SingleChannelFeatures {
		for _, w := range Windows {
			require.NoError(t, tb.AddFloat(w+f, vals[w+f]))
		}
	}
	return tb
}

func singleTrialMultiChannel(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New(dataset.SingleTrialMultiChannel.Name())
	var subj, pair, chA, chB, regA, regB []string
	var trial []float64
	pac := make(map[string][]float64)
	for _, r := range stmcRows {
		subj = append(subj, r.subject)
		trial = append(trial, r.trial)
		pair = append(pair, r.chA+"-"+r.chB)
		chA = append(chA, r.chA)
		chB = append(chB, r.chB)
		regA = append(regA, r.regA)
		regB = append(regB, r.regB)
		for w, win := range Windows {
			pac[win+"rawpacAB"] = append(pac[win+"rawpacAB"], r.pac[w][0])
			pac[win+"rawpacBA"] = append(pac[win+"rawpacBA"], r.pac[w][1])
		}
	}
	require.NoError(t, tb.AddString("subject", subj))
	require.NoError(t, tb.AddFloat("trial", trial))
	require.NoError(t, tb.AddString("pair", pair))
	require.NoError(t, tb.AddString("channelA", chA))
	require.NoError(t, tb.AddString("channelB", chB))
	require.NoError(t, tb.AddString("regionA", regA))
	require.NoError(t, tb.AddString("regionB", regB))
	for _, w := range Windows {
		require.NoError(t, tb.AddFloat(w+"rawpacAB", pac[w+"rawpacAB"]))
		require.NoError(t, tb.AddFloat(w+"rawpacBA", pac[w+"rawpacBA"]))
	}
	return tb
}

func multiChannel(t *testing.T) *table.Table {
	t.Helper()
	tb := table.New(dataset.MultiChannel.Name())
	require.NoError(t, tb.AddString("subject", []string{"R1020J", "R1020J", "R1020J", "R1034D", "R1034D"}))
	require.NoError(t, tb.AddString("pair", []string{"LA1-LA3", "LA1-LA2", "LA2-LA3", "LA1-LB1", "LA1-LA2"}))
	require.NoError(t, tb.AddString("channelA", []string{"LA1", "LA1", "LA2", "LA1", "LA1"}))
	require.NoError(t, tb.AddString("channelB", []string{"LA3", "LA2", "LA3", "LB1", "LA2"}))
	require.NoError(t, tb.AddString("regionA", []string{"hippocampus", "hippocampus", "MTL", "hippocampus", "hippocampus"}))
	require.NoError(t, tb.AddString("regionB", []string{"PFC", "MTL", "PFC", "PFC", "MTL"}))
	// R1020J LA1-LA2 encodes; R1034D LA1-LA2 shares the label but does not.
	require.NoError(t, tb.AddFloat("encodingepisodes", []float64{3, 1, 0, 0, 0}))
	return tb
}

func fixtureSource(t *testing.T) dataset.StaticSource {
	t.Helper()
	return dataset.StaticSource{
		dataset.SingleChannel:            singleChannel(t),
		dataset.SingleTrialSingleChannel: singleTrialSingleChannel(t),
		dataset.SingleTrialMultiChannel:  singleTrialMultiChannel(t),
	}
}

func loadRegistry(t *testing.T, src dataset.TableSource) *dataset.Registry {
	t.Helper()
	reg := dataset.NewRegistry()
	require.NoError(t, reg.Load(context.Background(), src))
	return reg
}

func fixtureRegistry(t *testing.T) *dataset.Registry {
	t.Helper()
	return loadRegistry(t, fixtureSource(t))
}

func mustSession(t *testing.T, reg *dataset.Registry, opts Options) *Session {
	t.Helper()
	s, err := NewSession(reg, opts)
	require.NoError(t, err)
	return s
}

func view(t *testing.T, s *Session, d dataset.Dataset) table.View {
	t.Helper()
	v, ok := s.Table(d)
	require.True(t, ok, "session has no %s table", d)
	return v
}

func floats(t *testing.T, v table.View, col string) []float64 {
	t.Helper()
	out, err := v.Float(col)
	require.NoError(t, err)
	return out
}

func strs(t *testing.T, v table.View, col string) []string {
	t.Helper()
	out, err := v.Keys(col)
	require.NoError(t, err)
	return out
}

func ptr(v float64) *float64 { return &v }
