// Package model defines core data structures for AutoDoc.
package model

import (
	"strconv"
	"strings"
)

// Kind is the dynamic type of a single cell value.
type Kind uint8

const (
	KindNull Kind = iota
	KindNumber
	KindText
	KindBool
)

// Value is one cell of a dataset.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Bool bool
}

// Null returns a missing value.
func Null() Value { return Value{Kind: KindNull} }

// Number returns a numeric value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Text returns a text value.
func Text(s string) Value { return Value{Kind: KindText, Str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsNull reports whether the value is missing.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// Float returns the numeric reading of the value and whether it has one.
// Bools read as 1 and 0.
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String renders the value as text. Missing values render as "nan",
// numbers use the shortest representation that round-trips.
func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Str
	case KindBool:
		if v.Bool {
			return "True"
		}
		return "False"
	default:
		return "nan"
	}
}

// Interface returns the value as a plain Go value for spreadsheet writers.
// Missing values map to nil.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindText:
		return v.Str
	case KindBool:
		return v.Bool
	default:
		return nil
	}
}

// naTokens are the strings treated as missing values when parsing text cells.
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// boolTokens are the spellings read as booleans.
var boolTokens = map[string]bool{
	"True": true, "TRUE": true, "true": true,
	"False": false, "FALSE": false, "false": false,
}

// ParseCell converts a raw text cell into a Value.
// NA tokens become null, boolean spellings become bools and anything
// strconv can read as a float becomes a number.
func ParseCell(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, ok := naTokens[s]; ok {
		return Null()
	}
	if b, ok := boolTokens[s]; ok {
		return Bool(b)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number(f)
	}
	return Text(raw)
}

// ColumnType is the inferred type of a whole column.
type ColumnType uint8

const (
	ColumnEmpty ColumnType = iota
	ColumnNumeric
	ColumnText
	ColumnMixed
	ColumnBool
)

// String returns the type name.
func (t ColumnType) String() string {
	switch t {
	case ColumnNumeric:
		return "numeric"
	case ColumnText:
		return "text"
	case ColumnMixed:
		return "mixed"
	case ColumnBool:
		return "bool"
	default:
		return "empty"
	}
}

// Column is a named, ordered sequence of values.
type Column struct {
	Name   string
	Values []Value
}

// Type infers the column type from its values.
// A column is numeric only when every non-null value is a number. It is
// bool only when every value is a bool; a missing cell turns it mixed.
func (c *Column) Type() ColumnType {
	var nulls, numbers, bools, others int
	for _, v := range c.Values {
		switch v.Kind {
		case KindNull:
			nulls++
		case KindNumber:
			numbers++
		case KindBool:
			bools++
		default:
			others++
		}
	}
	switch {
	case numbers > 0 && bools == 0 && others == 0:
		return ColumnNumeric
	case bools > 0 && nulls == 0 && numbers == 0 && others == 0:
		return ColumnBool
	case numbers > 0 || bools > 0:
		return ColumnMixed
	case others > 0:
		return ColumnText
	default:
		return ColumnEmpty
	}
}

// IsNumeric reports whether the column takes part in sums. Bool columns
// count true as 1, and an all-missing column sums to 0.
func (c *Column) IsNumeric() bool {
	switch c.Type() {
	case ColumnNumeric, ColumnBool, ColumnEmpty:
		return true
	default:
		return false
	}
}

// Dataset is an ordered set of equally long columns.
type Dataset struct {
	// Source is the path the dataset was loaded from.
	Source  string
	Columns []*Column
}

// NewDataset creates an empty dataset with the given column names.
func NewDataset(source string, names []string) *Dataset {
	ds := &Dataset{Source: source, Columns: make([]*Column, len(names))}
	for i, name := range names {
		ds.Columns[i] = &Column{Name: name}
	}
	return ds
}

// AppendRow appends one row. Short rows are padded with nulls,
// extra cells are dropped.
func (d *Dataset) AppendRow(row []Value) {
	for i, col := range d.Columns {
		if i < len(row) {
			col.Values = append(col.Values, row[i])
		} else {
			col.Values = append(col.Values, Null())
		}
	}
}

// NumRows returns the number of rows.
func (d *Dataset) NumRows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return len(d.Columns[0].Values)
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the exact given name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Row returns the values of row i across all columns.
func (d *Dataset) Row(i int) []Value {
	row := make([]Value, len(d.Columns))
	for j, c := range d.Columns {
		row[j] = c.Values[i]
	}
	return row
}
