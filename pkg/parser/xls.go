package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/extrame/xls"

	"github.com/autodoc/autodoc/internal/model"
)

// XLSParser parses legacy BIFF (.xls) workbooks.
type XLSParser struct {
	cfg Config
}

// NewXLSParser creates a new XLS parser.
func NewXLSParser(cfg Config) *XLSParser {
	return &XLSParser{cfg: cfg}
}

// Parse reads the configured sheet (or the first one). The first row is the header.
func (p *XLSParser) Parse(ctx context.Context, r io.Reader, source string) (ds *model.Dataset, err error) {
	// The BIFF reader panics on some malformed streams.
	defer func() {
		if rec := recover(); rec != nil {
			ds, err = nil, fmt.Errorf("failed to read xls: %v", rec)
		}
	}()

	rs, ok := r.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		rs = bytes.NewReader(data)
	}

	wb, err := xls.OpenReader(rs, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open xls: %w", err)
	}
	if wb == nil {
		return nil, fmt.Errorf("failed to open xls: no workbook stream")
	}

	sheet, err := p.sheet(wb)
	if err != nil {
		return nil, err
	}

	header := xlsRow(sheet, 0)
	if header == nil {
		return model.NewDataset(source, nil), nil
	}
	cells := make([]string, headerWidth(header))
	for i := range cells {
		cells[i] = header.Col(i)
	}
	names := headerNames(cells)
	ds = model.NewDataset(source, names)

	row := make([]model.Value, len(names))
	for rowIdx := 1; rowIdx <= int(sheet.MaxRow); rowIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		xr := xlsRow(sheet, rowIdx)
		if xr == nil {
			continue
		}
		for i := range cells {
			cells[i] = xr.Col(i)
		}
		if isBlankRow(cells) {
			continue
		}

		for i, c := range cells {
			row[i] = xlsxCell(c, c)
		}
		ds.AppendRow(row)
	}

	return ds, nil
}

// sheet picks the configured worksheet by name, or the first one.
func (p *XLSParser) sheet(wb *xls.WorkBook) (*xls.WorkSheet, error) {
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("no sheets found in xls file")
	}
	if p.cfg.Sheet == "" {
		return wb.GetSheet(0), nil
	}
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil && s.Name == p.cfg.Sheet {
			return s, nil
		}
	}
	return nil, fmt.Errorf("sheet %q not found in xls file", p.cfg.Sheet)
}

// maxXLSColumns is the BIFF8 column limit.
const maxXLSColumns = 256

// headerWidth is the position after the last named header cell. Rows built
// without a ROW record report no last column, so the cells are scanned too.
func headerWidth(header *xls.Row) int {
	width := header.LastCol()
	for i := maxXLSColumns - 1; i >= width; i-- {
		if header.Col(i) != "" {
			return i + 1
		}
	}
	return width
}

// xlsRow returns row i, or nil when the sheet stores no cells for it.
// WorkSheet.Row panics on rows that are absent from the file.
func xlsRow(sheet *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sheet.Row(i)
}
