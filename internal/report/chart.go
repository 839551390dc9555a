package report

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/kahfeatures/kahfeatures/internal/table"
)

// SubjectMeans returns, per subject in order of first appearance, the mean
// of each column over that subject's non-NaN rows. A subject with no values
// in a column gets NaN.
func SubjectMeans(v table.View, cols []string) ([]string, map[string][]float64, error) {
	subjects, err := v.Keys("subject")
	if err != nil {
		return nil, nil, err
	}
	var order []string
	index := make(map[string]int)
	for _, s := range subjects {
		if _, ok := index[s]; !ok {
			index[s] = len(order)
			order = append(order, s)
		}
	}

	means := make(map[string][]float64, len(cols))
	for _, c := range cols {
		vals, err := v.Float(c)
		if err != nil {
			return nil, nil, err
		}
		groups := make([][]float64, len(order))
		for i, s := range subjects {
			groups[index[s]] = append(groups[index[s]], vals[i])
		}
		out := make([]float64, len(order))
		for i, g := range groups {
			out[i] = stat.Mean(finite(g), nil)
		}
		means[c] = out
	}
	return order, means, nil
}

// WriteDeltaChart renders an HTML page with one bar series per column,
// showing each subject's mean.
func WriteDeltaChart(w io.Writer, v table.View, cols []string) error {
	subjects, means, err := SubjectMeans(v, cols)
	if err != nil {
		return err
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "KAH feature deltas", Width: "100%", Height: "640px"}),
		charts.WithTitleOpts(opts.Title{Title: v.Name(), Subtitle: fmt.Sprintf("subjects=%d rows=%d", len(subjects), v.Len())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(subjects)
	for _, c := range cols {
		data := make([]opts.BarData, len(subjects))
		for i, m := range means[c] {
			// NaN has no JSON encoding; leave the bar empty.
			if !math.IsNaN(m) {
				data[i] = opts.BarData{Value: m}
			}
		}
		bar.AddSeries(c, data)
	}

	page := components.NewPage()
	page.AddCharts(bar)
	return page.Render(w)
}
