package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/autodoc/autodoc/internal/model"
	"github.com/autodoc/autodoc/pkg/analyzer"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 128})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func sampleMetrics() *analyzer.Metrics {
	return &analyzer.Metrics{
		TotalRows:      2,
		Columns:        []string{"a", "b"},
		NumericColumns: []string{"a"},
		SumByNumeric:   []analyzer.ColumnSum{{Column: "a", Sum: 3}},
	}
}

func readPDF(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF")
	}
	return data
}

func TestRenderPDF_Minimal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	path, err := RenderPDF(PDFInput{
		Title:     "Relatório de Vendas",
		Metrics:   sampleMetrics(),
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("RenderPDF() error: %v", err)
	}
	if path != filepath.Join(dir, PDFFile) {
		t.Errorf("path = %s", path)
	}
	readPDF(t, path)
}

func TestRenderPDF_SkipsBadImages(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 60, 30)
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "out")
	path, err := RenderPDF(PDFInput{
		Title:     "Charts",
		Metrics:   sampleMetrics(),
		Charts:    []string{filepath.Join(dir, "missing.png"), corrupt, good},
		OutputDir: out,
		LogoPath:  filepath.Join(dir, "no-logo.png"),
		Narrative: "Resumo automático (fallback):\n- Linhas processadas: 2",
	})
	if err != nil {
		t.Fatalf("RenderPDF() error: %v", err)
	}

	data := readPDF(t, path)
	if n := bytes.Count(data, []byte("/Subtype /Image")); n != 1 {
		t.Errorf("embedded %d images, want 1", n)
	}
}

func TestRenderPDF_ManyChartsFlowAcrossPages(t *testing.T) {
	dir := t.TempDir()
	chart := filepath.Join(dir, "chart.png")
	writePNG(t, chart, 600, 400)

	charts := []string{chart, chart, chart, chart}
	path, err := RenderPDF(PDFInput{Title: "x", Metrics: sampleMetrics(), Charts: charts, OutputDir: dir, LogoPath: chart})
	if err != nil {
		t.Fatalf("RenderPDF() error: %v", err)
	}
	data := readPDF(t, path)
	if n := bytes.Count(data, []byte("/Type /Page\n")); n < 2 {
		t.Errorf("expected charts to flow onto more pages, got %d page(s)", n)
	}
}

func TestKPIRows(t *testing.T) {
	got := kpiRows(sampleMetrics())
	want := [][2]string{
		{"Total Rows", "2"},
		{"Numeric Columns", "a"},
		{"Sum(a)", "3.00"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("kpiRows() = %v, want %v", got, want)
	}

	got = kpiRows(&analyzer.Metrics{TotalRows: 1})
	if got[1][1] != "-" {
		t.Errorf("Numeric Columns without numeric columns = %q, want -", got[1][1])
	}
}

func TestRenderXLSX(t *testing.T) {
	ds := model.NewDataset("test", []string{"a", "b"})
	ds.AppendRow([]model.Value{model.Number(1), model.Text("x")})
	ds.AppendRow([]model.Value{model.Number(2), model.Null()})

	out := filepath.Join(t.TempDir(), "out", XLSXFile)
	path, err := RenderXLSX(ds, sampleMetrics(), out)
	if err != nil {
		t.Fatalf("RenderXLSX() error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{DataSheet, KPIsSheet}) {
		t.Errorf("sheets = %v", got)
	}

	data, err := f.GetRows(DataSheet)
	if err != nil {
		t.Fatal(err)
	}
	wantData := [][]string{{"a", "b"}, {"1", "x"}, {"2"}}
	if !reflect.DeepEqual(data, wantData) {
		t.Errorf("Data rows = %v, want %v", data, wantData)
	}

	kpis, err := f.GetRows(KPIsSheet)
	if err != nil {
		t.Fatal(err)
	}
	wantKPIs := [][]string{
		{"metric", "value"},
		{"total_rows", "2"},
		{"numeric_columns", "a"},
		{"sum_a", "3"},
	}
	if !reflect.DeepEqual(kpis, wantKPIs) {
		t.Errorf("KPI rows = %v, want %v", kpis, wantKPIs)
	}

	// sum_a is stored as a number, not text.
	typ, err := f.GetCellType(KPIsSheet, "B4")
	if err != nil {
		t.Fatal(err)
	}
	if typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("sum_a cell type = %v, want numeric", typ)
	}
}

func TestRenderXLSX_InfiniteValues(t *testing.T) {
	ds := model.NewDataset("test", []string{"a"})
	ds.AppendRow([]model.Value{model.Number(1)})
	ds.AppendRow([]model.Value{model.Number(math.Inf(1))})
	m := &analyzer.Metrics{
		TotalRows:      2,
		Columns:        []string{"a"},
		NumericColumns: []string{"a"},
		SumByNumeric:   []analyzer.ColumnSum{{Column: "a", Sum: math.Inf(1)}},
	}

	path, err := RenderXLSX(ds, m, filepath.Join(t.TempDir(), XLSXFile))
	if err != nil {
		t.Fatalf("RenderXLSX() error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile() error: %v", err)
	}
	defer f.Close()

	for _, c := range []struct{ sheet, cell string }{{DataSheet, "A3"}, {KPIsSheet, "B4"}} {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatal(err)
		}
		if got != "+Inf" {
			t.Errorf("%s!%s = %q, want +Inf", c.sheet, c.cell, got)
		}
	}
}

func TestRenderXLSX_Overwrites(t *testing.T) {
	ds := model.NewDataset("test", []string{"a"})
	ds.AppendRow([]model.Value{model.Number(1)})
	out := filepath.Join(t.TempDir(), XLSXFile)

	for i := 0; i < 2; i++ {
		if _, err := RenderXLSX(ds, sampleMetrics(), out); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
}
