package report

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/autodoc/autodoc/internal/model"
	"github.com/autodoc/autodoc/pkg/analyzer"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// Workbook layout.
const (
	XLSXFile   = "report.xlsx"
	DataSheet  = "Data"
	KPIsSheet  = "KPIs"
	firstSheet = "Sheet1"
)

// RenderXLSX writes ds and the KPI table to a workbook at outPath and returns the path.
func RenderXLSX(ds *model.Dataset, m *analyzer.Metrics, outPath string) (string, error) {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", aderrors.Wrap(err, aderrors.CodeWriteFailed, "cannot create output directory").
				WithContext("dir", dir)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(firstSheet, DataSheet); err != nil {
		return "", renderErr(err, outPath)
	}
	if err := writeDataSheet(f, ds); err != nil {
		return "", renderErr(err, outPath)
	}

	if _, err := f.NewSheet(KPIsSheet); err != nil {
		return "", renderErr(err, outPath)
	}
	for i, row := range kpiSheetRows(m) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", renderErr(err, outPath)
		}
		r := row
		if err := f.SetSheetRow(KPIsSheet, cell, &r); err != nil {
			return "", renderErr(err, outPath)
		}
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(outPath); err != nil {
		return "", aderrors.Wrap(err, aderrors.CodeWriteFailed, "cannot write workbook").
			WithContext("path", outPath)
	}
	return outPath, nil
}

// writeDataSheet streams the header and every row of ds into the Data sheet.
func writeDataSheet(f *excelize.File, ds *model.Dataset) error {
	sw, err := f.NewStreamWriter(DataSheet)
	if err != nil {
		return err
	}

	names := ds.ColumnNames()
	header := make([]interface{}, len(names))
	for i, n := range names {
		header[i] = n
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	row := make([]interface{}, len(names))
	for i := 0; i < ds.NumRows(); i++ {
		for j, v := range ds.Row(i) {
			row[j] = cellValue(v.Interface())
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	return sw.Flush()
}

// kpiSheetRows returns the metric/value table, header first.
func kpiSheetRows(m *analyzer.Metrics) [][]interface{} {
	rows := [][]interface{}{{"metric", "value"}}
	if m == nil {
		return append(rows, []interface{}{"total_rows", 0}, []interface{}{"numeric_columns", ""})
	}

	rows = append(rows,
		[]interface{}{"total_rows", m.TotalRows},
		[]interface{}{"numeric_columns", strings.Join(m.NumericColumns, ", ")},
	)
	for _, s := range m.SumByNumeric {
		rows = append(rows, []interface{}{"sum_" + s.Column, cellValue(s.Sum)})
	}
	return rows
}

// cellValue writes infinite and NaN numbers as text; spreadsheets cannot
// store them as numbers.
func cellValue(v interface{}) interface{} {
	if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return v
}

func renderErr(err error, path string) error {
	return aderrors.Wrap(err, aderrors.CodeRenderFailed, "cannot build workbook").
		WithContext("path", path)
}
