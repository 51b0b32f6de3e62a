package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/autodoc/autodoc/pkg/analyzer"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
	"github.com/autodoc/autodoc/pkg/pipeline"
)

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	PrintResult(&buf, &pipeline.Result{
		PDFPath:   "output/report.pdf",
		ExcelPath: "output/report.xlsx",
	})

	want := "[AutoDoc] PDF generated at: output/report.pdf\n" +
		"[AutoDoc] Excel generated at: output/report.xlsx\n"
	if buf.String() != want {
		t.Errorf("PrintResult() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestPrintKPIs(t *testing.T) {
	var buf bytes.Buffer
	PrintKPIs(&buf, "vendas.csv", &analyzer.Metrics{
		TotalRows:      3,
		Columns:        []string{"produto", "receita"},
		NumericColumns: []string{"receita"},
		SumByNumeric:   []analyzer.ColumnSum{{Column: "receita", Sum: 150.5}},
		CategoryColumn: "produto",
		TopCategories:  []analyzer.CategoryCount{{Value: "A", Count: 2}},
	})

	out := buf.String()
	for _, want := range []string{"VENDAS.CSV", "Total Rows", "Sum(receita)", "150.50", "produto=A"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintError(t *testing.T) {
	err := aderrors.FileNotFound("x.csv")

	var quiet, verbose bytes.Buffer
	PrintError(&quiet, err, false)
	PrintError(&verbose, err, true)

	if !strings.Contains(quiet.String(), "file not found") {
		t.Errorf("quiet output = %q", quiet.String())
	}
	if strings.Contains(quiet.String(), " at ") {
		t.Error("quiet output should not include a stack trace")
	}
	if !strings.Contains(verbose.String(), " at ") {
		t.Errorf("verbose output should include a stack trace:\n%s", verbose.String())
	}

	var plain bytes.Buffer
	PrintError(&plain, errors.New("boom"), true)
	if !strings.Contains(plain.String(), "boom") {
		t.Errorf("plain error output = %q", plain.String())
	}
}

func TestStageProgress(t *testing.T) {
	var buf bytes.Buffer
	hook := StageProgress(&buf)

	for i, st := range []string{pipeline.StageLoad, pipeline.StageAnalyze} {
		hook(pipeline.StageEvent{Stage: st, Index: i + 1, Total: 2})
		hook(pipeline.StageEvent{Stage: st, Index: i + 1, Total: 2, Done: true, Duration: time.Millisecond})
	}
	if buf.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{250 * time.Millisecond, "250ms"},
		{1500 * time.Millisecond, "1.5s"},
		{125 * time.Second, "2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
