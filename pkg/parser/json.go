package parser

import (
	"context"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/autodoc/autodoc/internal/model"
)

// JSONParser reads a JSON document in one of two orientations:
//
//	[{"a": 1, "b": "x"}, ...]          records
//	{"a": [1, ...], "b": ["x", ...]}   columns
//	{"a": {"0": 1}, "b": {"0": "x"}}   columns keyed by row index
type JSONParser struct {
	cfg Config
}

// NewJSONParser creates a new JSON parser.
func NewJSONParser(cfg Config) *JSONParser {
	return &JSONParser{cfg: cfg}
}

// Parse implements the Parser interface.
func (p *JSONParser) Parse(ctx context.Context, r io.Reader, source string) (*model.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON document")
	}

	doc := gjson.ParseBytes(data)
	switch {
	case doc.IsArray():
		return p.parseRecords(ctx, doc, source)
	case doc.IsObject():
		return p.parseColumns(ctx, doc, source)
	default:
		return nil, fmt.Errorf("expected a JSON array or object, got %s", doc.Type)
	}
}

// parseRecords handles an array of objects. Columns appear in first-seen key order.
func (p *JSONParser) parseRecords(ctx context.Context, doc gjson.Result, source string) (*model.Dataset, error) {
	var (
		names   []string
		index   = make(map[string]int)
		records []map[string]model.Value
		bad     error
	)

	doc.ForEach(func(_, rec gjson.Result) bool {
		if err := ctx.Err(); err != nil {
			bad = err
			return false
		}
		if !rec.IsObject() {
			bad = fmt.Errorf("record %d is not an object", len(records))
			return false
		}
		row := make(map[string]model.Value)
		rec.ForEach(func(k, v gjson.Result) bool {
			name := k.String()
			if _, ok := index[name]; !ok {
				index[name] = len(names)
				names = append(names, name)
			}
			row[name] = jsonValue(v)
			return true
		})
		records = append(records, row)
		return true
	})
	if bad != nil {
		return nil, bad
	}

	ds := model.NewDataset(source, names)
	row := make([]model.Value, len(names))
	for _, rec := range records {
		for i, name := range names {
			v, ok := rec[name]
			if !ok {
				v = model.Null()
			}
			row[i] = v
		}
		ds.AppendRow(row)
	}
	return ds, nil
}

// parseColumns handles an object of columns. Each column is either an array or
// an object keyed by row label; row labels keep first-seen order.
func (p *JSONParser) parseColumns(ctx context.Context, doc gjson.Result, source string) (*model.Dataset, error) {
	var (
		names    []string
		cols     []map[string]model.Value
		colIndex = make(map[string]int)
		labels   []string
		seen     = make(map[string]struct{})
		bad      error
	)

	addLabel := func(label string) {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			labels = append(labels, label)
		}
	}

	doc.ForEach(func(k, col gjson.Result) bool {
		if err := ctx.Err(); err != nil {
			bad = err
			return false
		}
		values := make(map[string]model.Value)
		switch {
		case col.IsArray():
			i := 0
			col.ForEach(func(_, v gjson.Result) bool {
				label := fmt.Sprint(i)
				values[label] = jsonValue(v)
				addLabel(label)
				i++
				return true
			})
		case col.IsObject():
			col.ForEach(func(label, v gjson.Result) bool {
				values[label.String()] = jsonValue(v)
				addLabel(label.String())
				return true
			})
		default:
			bad = fmt.Errorf("column %q is neither an array nor an object", k.String())
			return false
		}
		// A repeated key keeps its first position and its last values.
		if i, ok := colIndex[k.String()]; ok {
			cols[i] = values
			return true
		}
		colIndex[k.String()] = len(names)
		names = append(names, k.String())
		cols = append(cols, values)
		return true
	})
	if bad != nil {
		return nil, bad
	}

	ds := model.NewDataset(source, names)
	row := make([]model.Value, len(names))
	for _, label := range labels {
		for i, values := range cols {
			v, ok := values[label]
			if !ok {
				v = model.Null()
			}
			row[i] = v
		}
		ds.AppendRow(row)
	}
	return ds, nil
}

func jsonValue(v gjson.Result) model.Value {
	switch v.Type {
	case gjson.Null:
		return model.Null()
	case gjson.Number:
		return model.Number(v.Num)
	case gjson.True:
		return model.Bool(true)
	case gjson.False:
		return model.Bool(false)
	case gjson.String:
		return model.Text(v.Str)
	default:
		return model.Text(v.Raw)
	}
}
