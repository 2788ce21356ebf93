// Package plot renders statistic series as line charts.
package plot

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"popgen/internal/stats"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 5 * vg.Inch
)

var supportedFormats = map[string]struct{}{
	".png": {}, ".svg": {}, ".pdf": {}, ".jpg": {}, ".jpeg": {}, ".tif": {}, ".tiff": {}, ".eps": {},
}

// Build assembles a chart with one line per series label, generation on
// the x axis and yLabel on the y axis.
func Build(title string, series stats.Series, yLabel string) (*plot.Plot, error) {
	if len(series.Labels) == 0 {
		return nil, fmt.Errorf("series %q has no lines", series.Name)
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Generation"
	p.Y.Label.Text = yLabel
	p.Add(plotter.NewGrid())

	for i, label := range series.Labels {
		values := series.Values[label]
		pts := make(plotter.XYs, len(values))
		for g, v := range values {
			pts[g].X = float64(g)
			pts[g].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", label, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(0)
		p.Add(line)
		p.Legend.Add(label, line)
	}
	p.Legend.Top = true
	p.Legend.Left = false
	p.BackgroundColor = color.White
	return p, nil
}

// Render builds the chart and saves it to path. The format follows the file
// extension.
func Render(title string, series stats.Series, yLabel, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := supportedFormats[ext]; !ok {
		return fmt.Errorf("unsupported plot format %q", ext)
	}
	p, err := Build(title, series, yLabel)
	if err != nil {
		return err
	}
	return p.Save(DefaultWidth, DefaultHeight, path)
}

// RenderSeries uses the series' own title and axis label.
func RenderSeries(series stats.Series, path string) error {
	return Render(series.Title, series, series.YLabel, path)
}
