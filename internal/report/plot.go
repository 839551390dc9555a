package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/kahfeatures/kahfeatures/internal/fsutil"
	"github.com/kahfeatures/kahfeatures/internal/monitoring"
	"github.com/kahfeatures/kahfeatures/internal/security"
	"github.com/kahfeatures/kahfeatures/internal/table"
)

// DefaultBins is the histogram bin count used when none is given.
const DefaultBins = 30

// PlotHistograms writes one PNG histogram per column of v into dir, named
// by security.PlotFilename, and returns the written paths. Columns without
// any non-NaN value are skipped.
func PlotHistograms(fsys fsutil.FileSystem, v table.View, cols []string, dir string, bins int) ([]string, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory: %w", err)
	}

	var written []string
	for _, c := range cols {
		vals, err := v.Float(c)
		if err != nil {
			return written, err
		}
		present := finite(vals)
		if len(present) == 0 {
			monitoring.Logf("skipping histogram for %s.%s: no values", v.Name(), c)
			continue
		}

		p := plot.New()
		p.Title.Text = fmt.Sprintf("%s: %s", v.Name(), c)
		p.X.Label.Text = c
		p.Y.Label.Text = "trials"

		hist, err := plotter.NewHist(plotter.Values(present), bins)
		if err != nil {
			return written, fmt.Errorf("histogram %s: %w", c, err)
		}
		hist.FillColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
		hist.LineStyle.Width = vg.Points(0.5)
		p.Add(hist)

		wt, err := p.WriterTo(8*vg.Inch, 5*vg.Inch, "png")
		if err != nil {
			return written, fmt.Errorf("render %s: %w", c, err)
		}
		path := filepath.Join(dir, security.PlotFilename(v.Name(), c, "png"))
		f, err := fsys.Create(path)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		if _, err := wt.WriteTo(f); err != nil {
			f.Close()
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("close %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}
