package model

import (
	"math"
	"testing"
)

func TestParseCell(t *testing.T) {
	tests := []struct {
		raw  string
		kind Kind
		num  float64
	}{
		{"42", KindNumber, 42},
		{" 3.5 ", KindNumber, 3.5},
		{"-1e3", KindNumber, -1000},
		{"", KindNull, 0},
		{"NA", KindNull, 0},
		{"null", KindNull, 0},
		{"abc", KindText, 0},
		{"12abc", KindText, 0},
		{"inf", KindNumber, math.Inf(1)},
		{"True", KindBool, 0},
		{"false", KindBool, 0},
		{"yes", KindText, 0},
	}

	for _, tt := range tests {
		v := ParseCell(tt.raw)
		if v.Kind != tt.kind {
			t.Errorf("ParseCell(%q).Kind = %d, want %d", tt.raw, v.Kind, tt.kind)
			continue
		}
		if tt.kind == KindNumber && v.Num != tt.num {
			t.Errorf("ParseCell(%q).Num = %v, want %v", tt.raw, v.Num, tt.num)
		}
	}
}

func TestColumnType(t *testing.T) {
	tests := []struct {
		name   string
		values []Value
		want   ColumnType
	}{
		{"numeric", []Value{Number(1), Number(2)}, ColumnNumeric},
		{"numeric with nulls", []Value{Number(1), Null(), Number(2)}, ColumnNumeric},
		{"text", []Value{Text("a"), Null()}, ColumnText},
		{"mixed", []Value{Number(1), Text("x")}, ColumnMixed},
		{"bool", []Value{Bool(true), Bool(false)}, ColumnBool},
		{"bool with number", []Value{Bool(true), Number(1)}, ColumnMixed},
		{"bool with nulls", []Value{Bool(true), Null()}, ColumnMixed},
		{"empty", []Value{Null(), Null()}, ColumnEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Column{Name: tt.name, Values: tt.values}
			if got := c.Type(); got != tt.want {
				t.Errorf("Type() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestColumn_IsNumeric(t *testing.T) {
	tests := []struct {
		values []Value
		want   bool
	}{
		{[]Value{Number(1), Null()}, true},
		{[]Value{Bool(true), Bool(false)}, true},
		{[]Value{Null(), Null()}, true},
		{[]Value{Bool(true), Null()}, false},
		{[]Value{Number(1), Text("x")}, false},
		{[]Value{Text("a")}, false},
	}

	for _, tt := range tests {
		c := &Column{Name: "c", Values: tt.values}
		if got := c.IsNumeric(); got != tt.want {
			t.Errorf("IsNumeric(%v) = %v, want %v", tt.values, got, tt.want)
		}
	}
}

func TestDataset_AppendRow(t *testing.T) {
	ds := NewDataset("mem", []string{"a", "b", "c"})
	ds.AppendRow([]Value{Number(1), Text("x"), Bool(true)})
	ds.AppendRow([]Value{Number(2)})
	ds.AppendRow([]Value{Number(3), Text("y"), Null(), Text("dropped")})

	if ds.NumRows() != 3 {
		t.Fatalf("NumRows() = %d, want 3", ds.NumRows())
	}
	if !ds.Columns[1].Values[1].IsNull() {
		t.Error("Short row should be padded with nulls")
	}

	row := ds.Row(2)
	if len(row) != 3 {
		t.Fatalf("Row(2) has %d cells, want 3", len(row))
	}
	if row[1].String() != "y" {
		t.Errorf("Row(2)[1] = %q, want %q", row[1].String(), "y")
	}

	names := ds.ColumnNames()
	if names[0] != "a" || names[2] != "c" {
		t.Errorf("ColumnNames() = %v", names)
	}
	if _, ok := ds.Column("b"); !ok {
		t.Error("Column(b) not found")
	}
	if _, ok := ds.Column("B"); ok {
		t.Error("Column lookup must be case-sensitive")
	}
}

func TestValue_String(t *testing.T) {
	if s := Number(150.5).String(); s != "150.5" {
		t.Errorf("Number(150.5).String() = %q", s)
	}
	if s := Null().String(); s != "nan" {
		t.Errorf("Null().String() = %q", s)
	}
	if Null().Interface() != nil {
		t.Error("Null().Interface() should be nil")
	}
}
