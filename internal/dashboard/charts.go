package dashboard

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"time"

	"frauddetect/internal/eda"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Chart names.
const (
	ChartTrend   = "trend"
	ChartDevice  = "device"
	ChartBrowser = "browser"
)

// Chart size.
const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 4 * vg.Inch
)

// TrendChart returns the line chart of the fraud cases over time.
func TrendChart(trends []eda.Trend) (p *plot.Plot, err error) {
	p = plot.New()
	p.Title.Text = "Fraud Cases Over Time"
	p.X.Label.Text = "date"
	p.Y.Label.Text = "fraud_cases"
	p.X.Tick.Marker = plot.TimeTicks{Format: eda.DateLayout}

	if len(trends) == 0 {
		return p, nil
	}

	pts := make(plotter.XYs, len(trends))
	for i, tr := range trends {
		d, perr := time.Parse(eda.DateLayout, tr.Date)
		if perr != nil {
			return nil, fmt.Errorf("trend %d: %w", i, perr)
		}

		pts[i].X = float64(d.Unix())
		pts[i].Y = float64(tr.FraudCases)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("creating line: %w", err)
	}

	line.Color = plotutil.Color(0)
	p.Add(line)

	return p, nil
}

// CountChart returns the bar chart of counts, highest first.
func CountChart(title, xLabel string, counts map[string]int) (p *plot.Plot, err error) {
	p = plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "fraud_cases"

	if len(counts) == 0 {
		return p, nil
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b string) int {
		return cmp.Or(cmp.Compare(counts[b], counts[a]), cmp.Compare(a, b))
	})

	vals := make(plotter.Values, len(keys))
	for i, k := range keys {
		vals[i] = float64(counts[k])
	}

	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return nil, fmt.Errorf("creating bars: %w", err)
	}

	bars.Color = plotutil.Color(2)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(keys...)

	return p, nil
}

// WritePNG renders p as a PNG image to w.
func WritePNG(w io.Writer, p *plot.Plot) (err error) {
	wt, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}

	_, err = wt.WriteTo(w)

	return err
}
