package analyzer

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// Chart file names. Fixed so repeated runs overwrite instead of accumulating.
const (
	ChartTotalRows     = "chart_total_rows.png"
	ChartSumNumeric    = "chart_sum_numeric.png"
	ChartTopCategories = "chart_top_categories.png"
)

var barColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// chartDef describes one bar chart.
type chartDef struct {
	file   string
	title  string
	labels []string
	values plotter.Values
	rotate bool
}

// chartDefs lists the charts for m in their fixed order.
func chartDefs(m *Metrics) []chartDef {
	defs := []chartDef{{
		file:   ChartTotalRows,
		title:  "Total Rows",
		labels: []string{"rows"},
		values: plotter.Values{float64(m.TotalRows)},
	}}

	if len(m.NumericColumns) > 0 {
		def := chartDef{
			file:   ChartSumNumeric,
			title:  "Sum by Numeric Column",
			rotate: true,
		}
		for _, s := range m.SumByNumeric {
			def.labels = append(def.labels, s.Column)
			def.values = append(def.values, barHeight(s.Sum))
		}
		defs = append(defs, def)
	}

	if m.CategoryColumn != "" {
		def := chartDef{
			file:   ChartTopCategories,
			title:  fmt.Sprintf("Top %s (count)", m.CategoryColumn),
			rotate: true,
		}
		for _, c := range m.TopCategories {
			def.labels = append(def.labels, c.Value)
			def.values = append(def.values, float64(c.Count))
		}
		defs = append(defs, def)
	}

	return defs
}

// barHeight maps a sum to a drawable bar. Infinite or NaN sums still get
// a label, drawn as an empty bar.
func barHeight(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// renderChart draws def as a PNG in dir and returns its path.
func (a *Analyzer) renderChart(def chartDef, dir string) (string, error) {
	p := plot.New()
	p.Title.Text = def.title
	p.Y.Min = 0

	barWidth := vg.Points(40)
	if n := len(def.values); n > 6 {
		barWidth = vg.Points(240 / float64(n))
	}

	bars, err := plotter.NewBarChart(def.values, barWidth)
	if err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeChartFailed, "failed to build chart").
			WithContext("chart", def.file)
	}
	bars.Color = barColor
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(def.labels...)

	if def.rotate {
		p.X.Tick.Label.Rotation = math.Pi / 6
		p.X.Tick.Label.XAlign = text.XRight
	}

	path := filepath.Join(dir, def.file)
	if err := p.Save(a.width, a.height, path); err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeChartFailed, "failed to save chart").
			WithContext("path", path)
	}
	return path, nil
}
