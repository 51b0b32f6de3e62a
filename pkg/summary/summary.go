// Package summary produces the optional report narrative, either from a
// hosted language model or from a fixed local template.
package summary

import (
	"context"
	"strconv"
	"strings"

	"github.com/autodoc/autodoc/pkg/analyzer"
	"github.com/autodoc/autodoc/pkg/config"
)

// ErrorPrefix marks a narrative produced from a failed model call.
const ErrorPrefix = "[AI Error]"

// Context is everything a Summarizer may look at.
type Context struct {
	Title    string
	Metrics  *analyzer.Metrics
	Columns  []string
	RowCount int
}

// NewContext builds a Context from a title and a metrics record.
func NewContext(title string, m *analyzer.Metrics) Context {
	return Context{
		Title:    title,
		Metrics:  m,
		Columns:  m.Columns,
		RowCount: m.TotalRows,
	}
}

// sums returns the numeric sums, tolerating a nil metrics record.
func (c Context) sums() []analyzer.ColumnSum {
	if c.Metrics == nil {
		return nil
	}
	return c.Metrics.SumByNumeric
}

// Summarizer turns a Context into narrative text. Implementations never fail:
// problems are reported inside the returned text.
type Summarizer interface {
	Summarize(ctx context.Context, c Context) string
	Name() string
}

// New picks the model-backed summarizer when cfg carries a credential and the
// local template otherwise. The choice is made once, here.
func New(cfg config.SummaryConfig) Summarizer {
	if cfg.APIKey != "" {
		return NewModel(cfg)
	}
	return Fallback{}
}

// formatContext renders c as the plain-text block embedded in the model prompt.
func formatContext(c Context) string {
	sums := c.sums()
	pairs := make([]string, 0, len(sums))
	for _, s := range sums {
		pairs = append(pairs, s.Column+": "+strconv.FormatFloat(s.Sum, 'f', -1, 64))
	}

	return strings.Join([]string{
		"Title: " + c.Title,
		"Rows: " + strconv.Itoa(c.RowCount),
		"Columns: " + strings.Join(c.Columns, ", "),
		"Numeric summaries: " + strings.Join(pairs, ", "),
	}, "\n")
}
