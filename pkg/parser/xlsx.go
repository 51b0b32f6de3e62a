package parser

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/autodoc/autodoc/internal/model"
)

// formattedNumber matches cell text that is a number wearing a display
// format: currency symbols, thousands separators, percent signs.
var formattedNumber = regexp.MustCompile(`^\(?[-+]?[^\d\s()]{0,3}\s?\d[\d.,\s]*%?\)?$`)

// XLSXParser parses Excel workbooks.
type XLSXParser struct {
	cfg Config
}

// NewXLSXParser creates a new XLSX parser.
func NewXLSXParser(cfg Config) *XLSXParser {
	return &XLSXParser{cfg: cfg}
}

// Parse reads the configured sheet (or the first one). The first row is the header.
func (p *XLSXParser) Parse(ctx context.Context, r io.Reader, source string) (*model.Dataset, error) {
	xlFile, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer xlFile.Close()

	sheetName := p.cfg.Sheet
	if sheetName == "" {
		sheetName = xlFile.GetSheetName(0)
	}
	if sheetName == "" {
		sheetList := xlFile.GetSheetList()
		if len(sheetList) == 0 {
			return nil, fmt.Errorf("no sheets found in xlsx file")
		}
		sheetName = sheetList[0]
	}

	// Display values keep dates and text intact; raw values recover
	// numbers hidden behind a number format.
	formatted, err := xlFile.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	raw, err := xlFile.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read raw rows: %w", err)
	}

	if len(formatted) == 0 {
		return model.NewDataset(source, nil), nil
	}

	names := headerNames(formatted[0])
	ds := model.NewDataset(source, names)

	row := make([]model.Value, len(names))
	for rowIdx := 1; rowIdx < len(formatted); rowIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cols := formatted[rowIdx]
		if isBlankRow(cols) {
			continue
		}

		var rawCols []string
		if rowIdx < len(raw) {
			rawCols = raw[rowIdx]
		}

		for i := range row {
			var display, value string
			if i < len(cols) {
				display = cols[i]
			}
			if i < len(rawCols) {
				value = rawCols[i]
			}
			row[i] = xlsxCell(display, value)
		}
		ds.AppendRow(row)
	}

	return ds, nil
}

// xlsxCell picks the typed value of a cell from its display and raw text.
func xlsxCell(display, raw string) model.Value {
	v := model.ParseCell(display)
	if v.Kind != model.KindText {
		return v
	}
	if formattedNumber.MatchString(strings.TrimSpace(display)) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return model.Number(f)
		}
	}
	return v
}

func isBlankRow(cols []string) bool {
	for _, c := range cols {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
