package eda

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// HistogramPlot saves the distribution of values over bins bins to path.
// The image format follows the extension of path.
func HistogramPlot(path, column string, values []float64, bins int) (err error) {
	h, err := plotter.NewHist(plotter.Values(values), max(bins, 1))
	if err != nil {
		return fmt.Errorf("creating histogram: %w", err)
	}

	h.FillColor = plotutil.Color(0)

	p := plot.New()
	p.Title.Text = "Distribution of " + column
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"
	p.Add(h)

	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// BarPlot saves counts as a bar chart to path.
func BarPlot(path, title, xLabel string, counts []Count) (err error) {
	vals := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		vals[i] = float64(c.N)
		labels[i] = c.Value
	}

	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return fmt.Errorf("creating bars: %w", err)
	}

	bars.Color = plotutil.Color(1)
	bars.LineStyle.Width = 0

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Count"
	p.Add(bars)
	p.NominalX(labels...)

	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}

// BoxPlotByClass saves the box plots of values over the legitimate and the
// fraudulent rows to path.  class holds the label of every value.
func BoxPlotByClass(path, column string, values, class []float64) (err error) {
	var legit, fraud plotter.Values
	for i, v := range values {
		if class[i] == 1 {
			fraud = append(fraud, v)
		} else {
			legit = append(legit, v)
		}
	}

	p := plot.New()
	p.Title.Text = column + " by class"
	p.Y.Label.Text = column

	for i, vals := range []plotter.Values{legit, fraud} {
		if len(vals) == 0 {
			continue
		}

		b, berr := plotter.NewBoxPlot(vg.Points(40), float64(i), vals)
		if berr != nil {
			return fmt.Errorf("creating box plot: %w", berr)
		}

		p.Add(b)
	}

	p.NominalX("legit", "fraud")

	return save(p, 5*vg.Inch, 5*vg.Inch, path)
}

// corrGrid is a correlation matrix as a [plotter.GridXYZ].
type corrGrid struct {
	m *mat.SymDense
}

// type check
var _ plotter.GridXYZ = corrGrid{}

// Dims implements the [plotter.GridXYZ] interface for corrGrid.
func (g corrGrid) Dims() (c, r int) {
	n := g.m.SymmetricDim()

	return n, n
}

// Z implements the [plotter.GridXYZ] interface for corrGrid.
func (g corrGrid) Z(c, r int) (z float64) {
	return g.m.At(r, c)
}

// X implements the [plotter.GridXYZ] interface for corrGrid.
func (g corrGrid) X(c int) (x float64) {
	return float64(c)
}

// Y implements the [plotter.GridXYZ] interface for corrGrid.
func (g corrGrid) Y(r int) (y float64) {
	return float64(r)
}

// HeatMapPlot saves the correlation matrix corr of the columns names as a
// heat map to path.
func HeatMapPlot(path string, names []string, corr *mat.SymDense) (err error) {
	if n := corr.SymmetricDim(); n != len(names) {
		return fmt.Errorf("plotting %d names for %d columns: %w", len(names), n, ErrUnknownColumn)
	}

	h := plotter.NewHeatMap(corrGrid{m: corr}, palette.Heat(20, 1))
	h.Min, h.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation matrix"
	p.Add(h)
	p.NominalX(names...)
	p.NominalY(names...)

	return save(p, 8*vg.Inch, 8*vg.Inch, path)
}

// save saves p to path creating the missing directories.
func save(p *plot.Plot, w, h vg.Length, path string) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plot directory: %w", err)
	}

	return p.Save(w, h, path)
}
