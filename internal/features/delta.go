package features

import (
	"math"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// DeltaWindows are the windows a delta is taken for, against "pre".
var DeltaWindows = []string{"early", "late"}

// SingleChannelFeatures are the single-trial, single-channel features that
// get baseline deltas.
var SingleChannelFeatures = []string{"theta", "hfa", "slope", "rawpac"}

// computeDeltas writes <window><feature>delta = <window><feature> - pre<feature>
// on the single-trial single-channel table, and <window>rawpacdelta on the
// pair table against the pre value of the direction that won that window.
func computeDeltas(s *Session) error {
	stsc := s.tables[dataset.SingleTrialSingleChannel]
	for _, f := range SingleChannelFeatures {
		base, err := stsc.Float("pre" + f)
		if err != nil {
			return err
		}
		for _, w := range DeltaWindows {
			cur, err := stsc.Float(w + f)
			if err != nil {
				return err
			}
			baseCol := "pre" + f
			delta, err := s.subtract(stsc, func(int) string { return baseCol }, cur, base)
			if err != nil {
				return err
			}
			if err := stsc.AddFloat(w+f+"delta", delta); err != nil {
				return err
			}
		}
	}

	stmc := s.tables[dataset.SingleTrialMultiChannel]
	preAB, err := stmc.Float("prerawpacAB")
	if err != nil {
		return err
	}
	preBA, err := stmc.Float("prerawpacBA")
	if err != nil {
		return err
	}
	for _, w := range DeltaWindows {
		col := w + "rawpac"
		cur, err := stmc.Float(col)
		if err != nil {
			return err
		}
		orient, err := stmc.Bool(col + "ABorBA")
		if err != nil {
			return err
		}
		base := make([]float64, len(cur))
		for i, ab := range orient {
			if ab {
				base[i] = preAB[i]
			} else {
				base[i] = preBA[i]
			}
		}
		delta, err := s.subtract(stmc, func(i int) string {
			if orient[i] {
				return "prerawpacAB"
			}
			return "prerawpacBA"
		}, cur, base)
		if err != nil {
			return err
		}
		if err := stmc.AddFloat(col+"delta", delta); err != nil {
			return err
		}
	}
	return nil
}

// subtract returns cur - base. baseCol names the baseline column of a row
// for error reporting.
func (s *Session) subtract(t *table.Table, baseCol func(row int) string, cur, base []float64) ([]float64, error) {
	out := make([]float64, len(cur))
	for i := range cur {
		if math.IsNaN(base[i]) && s.opts.MissingBaseline == MissingBaselineError {
			return nil, &table.DataConsistencyError{Table: t.Name(), Column: baseCol(i), Row: i, Reason: "baseline value missing"}
		}
		out[i] = cur[i] - base[i]
	}
	return out, nil
}
