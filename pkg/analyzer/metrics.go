package analyzer

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/autodoc/autodoc/internal/model"
)

// MaxTopCategories is the number of category values kept in Metrics.TopCategories.
const MaxTopCategories = 10

// CategoryColumns is the ordered allowlist of column names treated as a
// grouping dimension. The first exact, case-sensitive match wins.
var CategoryColumns = []string{
	"category", "Category",
	"produto", "Produto",
	"product", "Product",
	"categoria", "Categoria",
}

// ColumnSum is the sum of one numeric column.
type ColumnSum struct {
	Column string
	Sum    float64
}

// CategoryCount is the number of occurrences of one category value.
type CategoryCount struct {
	Value string
	Count int
}

// Metrics is the fixed KPI record computed for a dataset.
type Metrics struct {
	TotalRows      int
	Columns        []string
	NumericColumns []string
	// SumByNumeric follows NumericColumns order.
	SumByNumeric []ColumnSum
	// TopCategories is sorted by descending count, at most MaxTopCategories long.
	TopCategories []CategoryCount
	// CategoryColumn is the detected category column, empty if none.
	CategoryColumn string
}

// Sum returns the sum for a numeric column.
func (m *Metrics) Sum(column string) (float64, bool) {
	for _, s := range m.SumByNumeric {
		if s.Column == column {
			return s.Sum, true
		}
	}
	return 0, false
}

// ComputeMetrics builds the KPI record for ds.
func ComputeMetrics(ds *model.Dataset) *Metrics {
	m := &Metrics{
		TotalRows:      ds.NumRows(),
		Columns:        ds.ColumnNames(),
		NumericColumns: []string{},
		SumByNumeric:   []ColumnSum{},
		TopCategories:  []CategoryCount{},
	}

	for _, col := range ds.Columns {
		if !col.IsNumeric() {
			continue
		}
		m.NumericColumns = append(m.NumericColumns, col.Name)
		m.SumByNumeric = append(m.SumByNumeric, ColumnSum{
			Column: col.Name,
			Sum:    floats.Sum(numbers(col)),
		})
	}

	if col := DetectCategoryColumn(ds); col != nil {
		m.CategoryColumn = col.Name
		m.TopCategories = TopCategories(col, MaxTopCategories)
	}

	return m
}

// DetectCategoryColumn returns the first column named in CategoryColumns.
func DetectCategoryColumn(ds *model.Dataset) *model.Column {
	for _, name := range CategoryColumns {
		if col, ok := ds.Column(name); ok {
			return col
		}
	}
	return nil
}

// TopCategories counts the text form of every value in col and returns the
// n most frequent. Equal counts keep first-encountered order.
func TopCategories(col *model.Column, n int) []CategoryCount {
	index := make(map[string]int)
	var counts []CategoryCount

	for _, v := range col.Values {
		key := v.String()
		i, ok := index[key]
		if !ok {
			i = len(counts)
			index[key] = i
			counts = append(counts, CategoryCount{Value: key})
		}
		counts[i].Count++
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > n {
		counts = counts[:n]
	}
	if counts == nil {
		counts = []CategoryCount{}
	}
	return counts
}

// numbers returns the numeric values of col, skipping nulls.
func numbers(col *model.Column) []float64 {
	out := make([]float64, 0, len(col.Values))
	for _, v := range col.Values {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// MarshalJSON encodes sums and top categories as objects that keep their order.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"total_rows":`)
	writeJSON(&buf, m.TotalRows)
	buf.WriteString(`,"columns":`)
	writeJSON(&buf, nonNil(m.Columns))
	buf.WriteString(`,"numeric_columns":`)
	writeJSON(&buf, nonNil(m.NumericColumns))

	buf.WriteString(`,"sum_by_numeric":{`)
	for i, s := range m.SumByNumeric {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSON(&buf, s.Column)
		buf.WriteByte(':')
		if math.IsInf(s.Sum, 0) || math.IsNaN(s.Sum) {
			buf.WriteString("null")
			continue
		}
		writeJSON(&buf, s.Sum)
	}

	buf.WriteString(`},"top_categories":{`)
	for i, c := range m.TopCategories {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSON(&buf, c.Value)
		buf.WriteByte(':')
		writeJSON(&buf, c.Count)
	}

	buf.WriteString(`},"category_column":`)
	writeJSON(&buf, m.CategoryColumn)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v interface{}) {
	b, _ := json.Marshal(v)
	buf.Write(b)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
