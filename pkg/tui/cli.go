// Package tui renders AutoDoc's terminal output.
// Simple, streaming, no complex TUI - just clean lines and a stage bar.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/autodoc/autodoc/pkg/analyzer"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
	"github.com/autodoc/autodoc/pkg/pipeline"
)

// Colors
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(muted).PaddingRight(2)
)

// Tag prefixes every result line so scripts can grep for it.
const Tag = "[AutoDoc]"

// PrintHeader prints the program banner.
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  AUTODOC")+mutedStyle.Render(" "+version))
	fmt.Fprintln(w, mutedStyle.Render("  Tabular data in, business report out"))
	fmt.Fprintln(w)
}

// PrintResult prints one line per artifact and published location.
func PrintResult(w io.Writer, res *pipeline.Result) {
	if res.PDFPath != "" {
		fmt.Fprintf(w, "%s PDF generated at: %s\n", Tag, res.PDFPath)
	}
	if res.ExcelPath != "" {
		fmt.Fprintf(w, "%s Excel generated at: %s\n", Tag, res.ExcelPath)
	}
	for _, uri := range res.Published {
		fmt.Fprintf(w, "%s Published: %s\n", Tag, uri)
	}
}

// PrintKPIs renders the metrics as an aligned key/value table.
func PrintKPIs(w io.Writer, source string, m *analyzer.Metrics) {
	fmt.Fprintln(w, accentStyle.Render("▸ "+strings.ToUpper(source)))
	fmt.Fprintln(w, mutedStyle.Render("  ─────────────────────────────────────"))

	numeric := strings.Join(m.NumericColumns, ", ")
	if numeric == "" {
		numeric = "-"
	}
	rows := [][2]string{
		{"Total Rows", strconv.Itoa(m.TotalRows)},
		{"Columns", strings.Join(m.Columns, ", ")},
		{"Numeric Columns", numeric},
	}
	for _, s := range m.SumByNumeric {
		rows = append(rows, [2]string{"Sum(" + s.Column + ")", fmt.Sprintf("%.2f", s.Sum)})
	}
	if m.CategoryColumn != "" {
		for _, c := range m.TopCategories {
			rows = append(rows, [2]string{m.CategoryColumn + "=" + c.Value, strconv.Itoa(c.Count)})
		}
	}

	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r[0]))
	}
	label := labelStyle.Width(width + 2)
	for _, r := range rows {
		fmt.Fprintf(w, "  %s%s\n", label.Render(r[0]), titleStyle.Render(r[1]))
	}
	fmt.Fprintln(w, mutedStyle.Render("  ─────────────────────────────────────"))
}

// PrintNarrative prints the narrative under a heading.
func PrintNarrative(w io.Writer, text string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ AI SUMMARY"))
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(w, "  "+line)
	}
}

// PrintError prints err; verbose adds the captured stack trace.
func PrintError(w io.Writer, err error, verbose bool) {
	fmt.Fprintln(w, accentStyle.Render("  ✗ ")+err.Error())
	if !verbose {
		return
	}
	var adErr *aderrors.AutoDocError
	if errors.As(err, &adErr) && len(adErr.StackTrace) > 0 {
		fmt.Fprint(w, mutedStyle.Render(adErr.FormatStack()))
		fmt.Fprintln(w)
	}
}

// PrintDone prints the total run time.
func PrintDone(w io.Writer, res *pipeline.Result) {
	var total time.Duration
	for _, s := range res.Stages {
		total += s.Duration
	}
	fmt.Fprintln(w, successStyle.Render("  ✓ REPORT COMPLETE ")+mutedStyle.Render(formatDuration(total)))
}

// StageProgress returns a stage hook that drives a progress bar on w.
func StageProgress(w io.Writer) func(pipeline.StageEvent) {
	var bar *progressbar.ProgressBar
	return func(ev pipeline.StageEvent) {
		if bar == nil {
			bar = progressbar.NewOptions(ev.Total,
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetWidth(30),
				progressbar.OptionShowCount(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "█",
					SaucerHead:    "█",
					SaucerPadding: "░",
					BarStart:      "",
					BarEnd:        "",
				}),
				progressbar.OptionClearOnFinish(),
			)
		}
		if !ev.Done {
			bar.Describe("  " + ev.Stage)
			return
		}
		bar.Add(1)
		if ev.Err != nil || ev.Index == ev.Total {
			bar.Finish()
			bar = nil
		}
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
