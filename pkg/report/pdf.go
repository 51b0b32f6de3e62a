// Package report renders the final artifacts: a PDF document and a
// two-sheet spreadsheet workbook.
package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/autodoc/autodoc/pkg/analyzer"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// PDFFile is the name of the rendered document inside the output directory.
const PDFFile = "report.pdf"

// Layout, in points.
const (
	pageMargin = 56.7 // 2 cm
	logoWidth  = 140
	chartWidth = 400
	spacer     = 12
	rowHeight  = 18
	cellPad    = 6
)

// PDFInput is everything the PDF renderer needs.
type PDFInput struct {
	Title     string
	Metrics   *analyzer.Metrics
	Charts    []string
	OutputDir string
	LogoPath  string
	Narrative string
}

// RenderPDF writes <OutputDir>/report.pdf and returns its path.
// Images that cannot be read or decoded are left out.
func RenderPDF(in PDFInput) (string, error) {
	if err := os.MkdirAll(in.OutputDir, 0755); err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeWriteFailed, "cannot create output directory").
			WithContext("dir", in.OutputDir)
	}
	path := filepath.Join(in.OutputDir, PDFFile)

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetCreator("AutoDoc", true)
	pdf.SetTitle(in.Title, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	left, _, right, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	bodyW := pageW - left - right

	if in.LogoPath != "" {
		if drawImage(pdf, in.LogoPath, left, logoWidth) {
			pdf.Ln(spacer)
		}
	}

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(bodyW, 22, tr(in.Title), "", "C", false)
	pdf.Ln(spacer)

	writeKPITable(pdf, tr, kpiRows(in.Metrics))
	pdf.Ln(spacer)

	if in.Narrative != "" {
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(bodyW, 18, tr("AI Summary"), "", 1, "L", false, 0, "")
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(bodyW, 13, tr(in.Narrative), "", "L", false)
		pdf.Ln(spacer)
	}

	for _, chart := range in.Charts {
		x := left + (bodyW-chartWidth)/2
		if drawImage(pdf, chart, x, chartWidth) {
			pdf.Ln(spacer)
		}
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeRenderFailed, "cannot write PDF").
			WithContext("path", path)
	}
	return path, nil
}

// kpiRows returns the KPI table rows as label/value pairs.
func kpiRows(m *analyzer.Metrics) [][2]string {
	if m == nil {
		return [][2]string{{"Total Rows", "-"}, {"Numeric Columns", "-"}}
	}

	numeric := strings.Join(m.NumericColumns, ", ")
	if numeric == "" {
		numeric = "-"
	}
	rows := [][2]string{
		{"Total Rows", fmt.Sprint(m.TotalRows)},
		{"Numeric Columns", numeric},
	}
	for _, s := range m.SumByNumeric {
		rows = append(rows, [2]string{"Sum(" + s.Column + ")", fmt.Sprintf("%.2f", s.Sum)})
	}
	return rows
}

// writeKPITable draws a bordered two-column table; the first row is shaded.
func writeKPITable(pdf *fpdf.Fpdf, tr func(string) string, rows [][2]string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(211, 211, 211)
	pdf.SetDrawColor(0, 0, 0)

	var w0, w1 float64
	for _, r := range rows {
		w0 = max(w0, pdf.GetStringWidth(tr(r[0])))
		w1 = max(w1, pdf.GetStringWidth(tr(r[1])))
	}
	w0 += 2 * cellPad
	w1 += 2 * cellPad

	for i, r := range rows {
		fill := i == 0
		pdf.CellFormat(w0, rowHeight, tr(r[0]), "1", 0, "LM", fill, 0, "")
		pdf.CellFormat(w1, rowHeight, tr(r[1]), "1", 1, "LM", fill, 0, "")
	}
}

// drawImage places the image at path in the flow, width w points wide and
// keeping its aspect ratio. It reports whether the image was drawn.
func drawImage(pdf *fpdf.Fpdf, path string, x, w float64) bool {
	data, err := loadImage(path)
	if err != nil {
		return false
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	info := pdf.RegisterImageOptionsReader(path, opts, bytes.NewReader(data))
	if pdf.Err() || info == nil || info.Width() == 0 {
		pdf.ClearError()
		return false
	}

	h := w * info.Height() / info.Width()
	pdf.ImageOptions(path, x, -1, w, h, true, opts, 0, "")
	if pdf.Err() {
		pdf.ClearError()
		return false
	}
	return true
}

// loadImage decodes any PNG, JPEG or GIF file and re-encodes it as an
// opaque PNG the PDF writer accepts.
func loadImage(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("empty image")
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
