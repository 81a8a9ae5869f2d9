package explain

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SummaryPlot saves a horizontal bar chart of the mean absolute attribution
// of every feature to path, the most important feature on top.  The image
// format follows the extension of path.
func SummaryPlot(path, title string, names []string, meanAbs []float64) (err error) {
	if len(names) != len(meanAbs) {
		return fmt.Errorf("plotting %d names and %d values: %w", len(names), len(meanAbs), ErrLength)
	}

	order := make([]int, len(names))
	for i := range order {
		order[i] = i
	}

	// Bars are drawn bottom up.
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(meanAbs[a], meanAbs[b]) })

	vals := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for i, j := range order {
		vals[i] = meanAbs[j]
		labels[i] = names[j]
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "mean |attribution|"

	bars, err := plotter.NewBarChart(vals, vg.Points(12))
	if err != nil {
		return fmt.Errorf("creating bars: %w", err)
	}

	bars.Horizontal = true
	bars.LineStyle.Width = 0
	bars.Color = plotutil.Color(0)

	p.Add(bars)
	p.NominalY(labels...)

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}

	return p.Save(6*vg.Inch, vg.Length(len(labels)+2)*0.4*vg.Inch, path)
}
