package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRowWidth        = errors.New("row width does not match schema")
	ErrNoSuchColumn    = errors.New("no such column")
)

// ColumnType is the declared type of a dataset column
type ColumnType string

const (
	ColumnNumeric ColumnType = "numeric"
	ColumnText    ColumnType = "text"
	ColumnBoolean ColumnType = "boolean"
)

// ValueKind tells which field of a Value is meaningful
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindText
	KindBool
)

// Value is a single cell. Raw keeps the source text so that the textual
// form of a cell is exactly what the source file contained.
type Value struct {
	Kind ValueKind
	Num  float64
	Bool bool
	Raw  string
}

func NullValue() Value {
	return Value{Kind: KindNull}
}

// NumberValue builds a numeric cell; an empty raw is replaced by the
// shortest decimal form of f.
func NumberValue(f float64, raw string) Value {
	if raw == "" {
		raw = strconv.FormatFloat(f, 'f', -1, 64)
	}
	return Value{Kind: KindNumber, Num: f, Raw: raw}
}

func TextValue(s string) Value {
	return Value{Kind: KindText, Raw: s}
}

func BoolValue(b bool, raw string) Value {
	if raw == "" {
		if b {
			raw = "True"
		} else {
			raw = "False"
		}
	}
	return Value{Kind: KindBool, Bool: b, Raw: raw}
}

func (v Value) IsNull() bool {
	return v.Kind == KindNull
}

// String returns the textual form of the cell, "" for null.
func (v Value) String() string {
	if v.Kind == KindNull {
		return ""
	}
	return v.Raw
}

// Float returns the numeric content of the cell.
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Truthy reports whether the cell reads as a set flag. Null is false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindText:
		switch strings.ToLower(strings.TrimSpace(v.Raw)) {
		case "", "0", "false", "no", "n", "f":
			return false
		}
		return true
	}
	return false
}

// Key is the canonical form used to match cells across tables.
// Null has no key.
func (v Value) Key() (string, bool) {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64), true
	case KindBool:
		return strconv.FormatBool(v.Bool), true
	case KindText:
		return strings.TrimSpace(v.Raw), true
	}
	return "", false
}

// Equals compares the cell with an identifier supplied as text, numerically
// when the cell is numeric.
func (v Value) Equals(id string) bool {
	id = strings.TrimSpace(id)
	switch v.Kind {
	case KindNull:
		return false
	case KindNumber:
		f, err := strconv.ParseFloat(id, 64)
		return err == nil && f == v.Num
	case KindBool:
		b, err := strconv.ParseBool(id)
		return err == nil && b == v.Bool
	}
	return strings.TrimSpace(v.Raw) == id
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindText:
		return json.Marshal(v.Raw)
	}
	return []byte("null"), nil
}

// Column is one named, typed column of a schema
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is an ordered set of columns, fixed at dataset construction
type Schema struct {
	columns []Column
	index   map[string]int
}

func NewSchema(columns []Column) (*Schema, error) {
	s := &Schema{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		s.columns[i] = c
		s.index[c.Name] = i
	}
	return s, nil
}

// Columns returns a copy of the column list
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

func (s *Schema) Len() int {
	return len(s.columns)
}

// Lookup finds a column and its position
func (s *Schema) Lookup(name string) (Column, int, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, -1, false
	}
	return s.columns[i], i, true
}

// Record is one row bound to its dataset's schema
type Record struct {
	schema *Schema
	values []Value
}

// Get returns the cell for column; ok is false when the schema has no such
// column.
func (r Record) Get(column string) (Value, bool) {
	if r.schema == nil {
		return NullValue(), false
	}
	_, i, ok := r.schema.Lookup(column)
	if !ok {
		return NullValue(), false
	}
	return r.values[i], true
}

// Value is Get without the presence flag; absent columns read as null.
func (r Record) Value(column string) Value {
	v, _ := r.Get(column)
	return v
}

func (r Record) Values() []Value {
	out := make([]Value, len(r.values))
	copy(out, r.values)
	return out
}

func (r Record) Schema() *Schema {
	return r.schema
}

func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]Value, len(r.values))
	if r.schema != nil {
		for i, c := range r.schema.columns {
			m[c.Name] = r.values[i]
		}
	}
	return json.Marshal(m)
}

// Dataset is an immutable, ordered table of records sharing one schema
type Dataset struct {
	Name    string
	schema  *Schema
	records []Record
}

// NewDataset builds a dataset from rows of cells laid out in schema order
func NewDataset(name string, schema *Schema, rows [][]Value) (*Dataset, error) {
	ds := &Dataset{
		Name:    name,
		schema:  schema,
		records: make([]Record, 0, len(rows)),
	}
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, fmt.Errorf("%s row %d: %w (got %d, want %d)", name, i+1, ErrRowWidth, len(row), schema.Len())
		}
		values := make([]Value, len(row))
		copy(values, row)
		ds.records = append(ds.records, Record{schema: schema, values: values})
	}
	return ds, nil
}

func (d *Dataset) Schema() *Schema {
	return d.schema
}

func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns the rows in order. The returned slice is a copy.
func (d *Dataset) Records() []Record {
	out := make([]Record, len(d.records))
	copy(out, d.records)
	return out
}

func (d *Dataset) Record(i int) Record {
	return d.records[i]
}

// Where returns the records satisfying pred, in their original order.
func (d *Dataset) Where(pred func(Record) bool) *Dataset {
	out := &Dataset{Name: d.Name, schema: d.schema}
	for _, r := range d.records {
		if pred(r) {
			out.records = append(out.records, r)
		}
	}
	return out
}

// Slice returns rows [start, end) clamped to the dataset bounds.
func (d *Dataset) Slice(start, end int) []Record {
	if start < 0 {
		start = 0
	}
	if end > len(d.records) {
		end = len(d.records)
	}
	if start >= end {
		return []Record{}
	}
	out := make([]Record, end-start)
	copy(out, d.records[start:end])
	return out
}

// Column returns every cell of one column in row order.
func (d *Dataset) Column(name string) ([]Value, error) {
	_, i, ok := d.schema.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: %w: %s", d.Name, ErrNoSuchColumn, name)
	}
	out := make([]Value, len(d.records))
	for j, r := range d.records {
		out[j] = r.values[i]
	}
	return out, nil
}

// Select projects the dataset onto the named columns, in the given order.
func (d *Dataset) Select(columns ...string) (*Dataset, error) {
	cols := make([]Column, len(columns))
	idx := make([]int, len(columns))
	for i, name := range columns {
		c, j, ok := d.schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", d.Name, ErrNoSuchColumn, name)
		}
		cols[i] = c
		idx[i] = j
	}
	schema, err := NewSchema(cols)
	if err != nil {
		return nil, err
	}
	out := &Dataset{Name: d.Name, schema: schema, records: make([]Record, len(d.records))}
	for r, rec := range d.records {
		values := make([]Value, len(idx))
		for i, j := range idx {
			values[i] = rec.values[j]
		}
		out.records[r] = Record{schema: schema, values: values}
	}
	return out, nil
}
