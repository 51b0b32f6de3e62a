// Package analyzer computes the KPI record for a dataset and renders its charts.
package analyzer

import (
	"os"

	"gonum.org/v1/plot/vg"

	"github.com/autodoc/autodoc/internal/model"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// Default chart size.
const (
	DefaultChartWidth  = 6 * vg.Inch
	DefaultChartHeight = 4 * vg.Inch
)

// Analyzer turns a dataset into metrics and chart images.
type Analyzer struct {
	width  vg.Length
	height vg.Length
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithChartSize sets the chart size in inches. Non-positive values keep the default.
func WithChartSize(widthIn, heightIn float64) Option {
	return func(a *Analyzer) {
		if widthIn > 0 {
			a.width = vg.Length(widthIn) * vg.Inch
		}
		if heightIn > 0 {
			a.height = vg.Length(heightIn) * vg.Inch
		}
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		width:  DefaultChartWidth,
		height: DefaultChartHeight,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes metrics for ds and writes its charts into outDir, which is
// created if missing. The returned chart paths are in fixed order: total rows,
// numeric sums (if any numeric column), top categories (if a category column).
func (a *Analyzer) Analyze(ds *model.Dataset, outDir string) (*Metrics, []string, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, nil, aderrors.Wrap(err, aderrors.CodeWriteFailed, "cannot create output directory").
			WithContext("dir", outDir)
	}

	m := ComputeMetrics(ds)

	defs := chartDefs(m)
	charts := make([]string, 0, len(defs))
	for _, def := range defs {
		path, err := a.renderChart(def, outDir)
		if err != nil {
			return nil, nil, err
		}
		charts = append(charts, path)
	}

	return m, charts, nil
}

// Analyze runs a default Analyzer.
func Analyze(ds *model.Dataset, outDir string) (*Metrics, []string, error) {
	return New().Analyze(ds, outDir)
}
