// Package report summarises and plots the derived feature columns of a
// session.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kahfeatures/kahfeatures/internal/dataset"
	"github.com/kahfeatures/kahfeatures/internal/features"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// Summary describes the distribution of one numeric column. NaN cells are
// counted in Missing and left out of every statistic. With fewer than two
// values StdDev is NaN; with none, every statistic is NaN.
type Summary struct {
	Column  string
	Count   int
	Missing int
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
}

// DeltaColumns lists the delta columns the pipeline derives on d, in the
// order they are written.
func DeltaColumns(d dataset.Dataset) []string {
	var out []string
	switch d {
	case dataset.SingleTrialSingleChannel:
		for _, f := range features.SingleChannelFeatures {
			for _, w := range features.DeltaWindows {
				out = append(out, w+f+"delta")
			}
		}
	case dataset.SingleTrialMultiChannel:
		for _, w := range features.DeltaWindows {
			out = append(out, w+"rawpacdelta")
		}
	}
	return out
}

// Summarize computes a Summary per column of v.
func Summarize(v table.View, cols []string) ([]Summary, error) {
	out := make([]Summary, 0, len(cols))
	for _, c := range cols {
		vals, err := v.Float(c)
		if err != nil {
			return nil, err
		}
		present := finite(vals)
		s := Summary{
			Column:  c,
			Count:   len(present),
			Missing: len(vals) - len(present),
			Mean:    math.NaN(),
			StdDev:  math.NaN(),
			Min:     math.NaN(),
			Max:     math.NaN(),
		}
		if len(present) > 0 {
			s.Min = floats.Min(present)
			s.Max = floats.Max(present)
			if len(present) > 1 {
				s.Mean, s.StdDev = stat.MeanStdDev(present, nil)
			} else {
				s.Mean = present[0]
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// WriteSummary writes summaries as an aligned text table under title.
func WriteSummary(w io.Writer, title string, summaries []Summary) error {
	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "column\tn\tmissing\tmean\tstd\tmin\tmax")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%.4f\n",
			s.Column, s.Count, s.Missing, s.Mean, s.StdDev, s.Min, s.Max)
	}
	return tw.Flush()
}
