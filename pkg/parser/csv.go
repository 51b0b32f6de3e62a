package parser

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/autodoc/autodoc/internal/model"
)

// CSVParser reads delimited text with a header row.
type CSVParser struct {
	cfg Config
}

// NewCSVParser creates a new CSV parser.
func NewCSVParser(cfg Config) *CSVParser {
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	return &CSVParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *CSVParser) Parse(ctx context.Context, r io.Reader, source string) (*model.Dataset, error) {
	reader := csv.NewReader(bufio.NewReaderSize(r, 64*1024))
	reader.Comma = p.cfg.Delimiter
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.NewDataset(source, nil), nil
	}
	if err != nil {
		return nil, err
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	names := headerNames(header)
	ds := model.NewDataset(source, names)

	row := make([]model.Value, len(names))
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		for i := range row {
			if i < len(record) {
				row[i] = model.ParseCell(record[i])
			} else {
				row[i] = model.Null()
			}
		}
		ds.AppendRow(row)
	}

	return ds, nil
}
