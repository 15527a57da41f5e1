package table

import (
	"fmt"
)

type ColumnType int

const (
	String ColumnType = iota
	NullableString
	Int64
	NullableInt64
	NullableFloat64
	NullableBool
	StringArray
)

func (t ColumnType) String() string {
	switch t {
	case String:
		return "String"
	case NullableString:
		return "Nullable(String)"
	case Int64:
		return "Int64"
	case NullableInt64:
		return "Nullable(Int64)"
	case NullableFloat64:
		return "Nullable(Float64)"
	case NullableBool:
		return "Nullable(Bool)"
	case StringArray:
		return "Array(String)"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

type Column struct {
	Name string
	Type ColumnType
}

// Schema describes one output table. Key lists the columns that identify a
// row; stores order and index by it.
type Schema struct {
	Namespace string
	Name      string
	Columns   []Column
	Key       []string
}

func (s Schema) FullName() string {
	return s.Namespace + "." + s.Name
}

func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Table is a fully materialized table. Row values use the Go type matching
// the column type: string, *string, int64, *int64, *float64, *bool, []string.
type Table struct {
	Schema Schema
	Rows   [][]any
}

func New(schema Schema) *Table {
	return &Table{Schema: schema}
}

func (t *Table) Append(row ...any) {
	t.Rows = append(t.Rows, row)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Validate checks every row has the right width and value types.
func (t *Table) Validate() error {
	width := len(t.Schema.Columns)
	for i, row := range t.Rows {
		if len(row) != width {
			return fmt.Errorf("%s: row %d has %d values, want %d", t.Schema.FullName(), i, len(row), width)
		}
		for j, v := range row {
			if !accepts(t.Schema.Columns[j].Type, v) {
				return fmt.Errorf("%s: row %d column %s: unexpected value type %T for %s",
					t.Schema.FullName(), i, t.Schema.Columns[j].Name, v, t.Schema.Columns[j].Type)
			}
		}
	}
	return nil
}

func accepts(ct ColumnType, v any) bool {
	switch ct {
	case String:
		_, ok := v.(string)
		return ok
	case NullableString:
		_, ok := v.(*string)
		return ok
	case Int64:
		_, ok := v.(int64)
		return ok
	case NullableInt64:
		_, ok := v.(*int64)
		return ok
	case NullableFloat64:
		_, ok := v.(*float64)
		return ok
	case NullableBool:
		_, ok := v.(*bool)
		return ok
	case StringArray:
		_, ok := v.([]string)
		return ok
	}
	return false
}
