// Package parser loads tabular data files (CSV, XLSX, XLS, JSON) into a
// model.Dataset. The format is chosen by file extension.
package parser

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/autodoc/autodoc/internal/model"
	aderrors "github.com/autodoc/autodoc/pkg/errors"
)

// Parser reads one input format into a dataset.
type Parser interface {
	// Parse reads all rows from r. source is recorded on the dataset
	// and used in error messages.
	Parse(ctx context.Context, r io.Reader, source string) (*model.Dataset, error)
}

// Format represents a supported input format.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
	FormatXLS
	FormatJSON
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	case ".json":
		return FormatJSON
	default:
		return FormatUnknown
	}
}

// Config holds parser configuration.
type Config struct {
	// Delimiter is the CSV field delimiter (default: comma).
	Delimiter rune

	// Sheet selects the XLSX or XLS worksheet. Empty means the first sheet.
	Sheet string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Delimiter: ',',
	}
}

// NewParser creates a parser for the given format.
func NewParser(format Format, cfg Config) (Parser, error) {
	switch format {
	case FormatCSV:
		return NewCSVParser(cfg), nil
	case FormatXLSX:
		return NewXLSXParser(cfg), nil
	case FormatXLS:
		return NewXLSParser(cfg), nil
	case FormatJSON:
		return NewJSONParser(cfg), nil
	default:
		return nil, aderrors.ErrUnsupportedFormat
	}
}

// Loader resolves a path, picks a parser and enforces the non-empty invariant.
type Loader struct {
	cfg Config
}

// NewLoader creates a loader with the given parser configuration.
func NewLoader(cfg Config) *Loader {
	return &Loader{cfg: cfg}
}

// Load reads the file at path into a dataset.
//
// It fails with CodeFileNotFound when path is not an existing file,
// CodeUnsupportedFormat for an unknown extension, CodeParseFailed when
// the format parser rejects the content and CodeEmptyDataset when the
// file holds no data rows.
func (l *Loader) Load(ctx context.Context, path string) (*model.Dataset, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, aderrors.FileNotFound(path)
	}

	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, aderrors.UnsupportedFormat(path, filepath.Ext(path))
	}

	p, err := NewParser(format, l.cfg)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, aderrors.Wrap(err, aderrors.CodeFileNotFound, "cannot open file").
			WithContext("path", path)
	}
	defer f.Close()

	ds, err := p.Parse(ctx, f, path)
	if err != nil {
		if aderrors.GetCode(err) != aderrors.CodeUnknown {
			return nil, err
		}
		return nil, aderrors.ParseError(format.String(), path, err)
	}

	if ds.NumRows() == 0 {
		return nil, aderrors.EmptyDataset(path)
	}

	return ds, nil
}

// Load reads path with the default configuration.
func Load(ctx context.Context, path string) (*model.Dataset, error) {
	return NewLoader(DefaultConfig()).Load(ctx, path)
}

// headerName returns a usable column name for position i.
func headerName(name string, i int) string {
	if strings.TrimSpace(name) == "" {
		return "Unnamed: " + strconv.Itoa(i)
	}
	return name
}

// headerNames names every header cell and makes repeats unique by
// suffixing ".1", ".2" and so on, skipping names already taken.
func headerNames(header []string) []string {
	names := make([]string, len(header))
	counts := make(map[string]int, len(header))
	for i, h := range header {
		name := headerName(h, i)
		n := counts[name]
		for n > 0 {
			counts[name] = n + 1
			name = name + "." + strconv.Itoa(n)
			n = counts[name]
		}
		names[i] = name
		counts[name] = n + 1
	}
	return names
}
