package table

import "fmt"

// Cursor reads typed values out of a row by column name.
type Cursor struct {
	schema Schema
	index  map[string]int
	row    []any
	err    error
}

func NewCursor(schema Schema) *Cursor {
	index := make(map[string]int, len(schema.Columns))
	for i, c := range schema.Columns {
		index[c.Name] = i
	}
	return &Cursor{schema: schema, index: index}
}

func (c *Cursor) Reset(row []any) {
	c.row = row
}

// Err reports the first missing column or type mismatch seen by the cursor.
func (c *Cursor) Err() error {
	return c.err
}

func (c *Cursor) value(name string) any {
	i, ok := c.index[name]
	if !ok || i >= len(c.row) {
		if c.err == nil {
			c.err = fmt.Errorf("%s: no column %q", c.schema.FullName(), name)
		}
		return nil
	}
	return c.row[i]
}

func (c *Cursor) mismatch(name string, v any) {
	if c.err == nil {
		c.err = fmt.Errorf("%s: column %q holds %T", c.schema.FullName(), name, v)
	}
}

func (c *Cursor) String(name string) string {
	switch v := c.value(name).(type) {
	case string:
		return v
	case *string:
		if v != nil {
			return *v
		}
		return ""
	case nil:
		return ""
	default:
		c.mismatch(name, v)
		return ""
	}
}

func (c *Cursor) NullString(name string) *string {
	switch v := c.value(name).(type) {
	case *string:
		return v
	case string:
		return &v
	case nil:
		return nil
	default:
		c.mismatch(name, v)
		return nil
	}
}

func (c *Cursor) Int64(name string) int64 {
	switch v := c.value(name).(type) {
	case int64:
		return v
	case *int64:
		if v != nil {
			return *v
		}
		return 0
	case nil:
		return 0
	default:
		c.mismatch(name, v)
		return 0
	}
}

func (c *Cursor) NullInt64(name string) *int64 {
	switch v := c.value(name).(type) {
	case *int64:
		return v
	case int64:
		return &v
	case nil:
		return nil
	default:
		c.mismatch(name, v)
		return nil
	}
}

func (c *Cursor) NullFloat64(name string) *float64 {
	switch v := c.value(name).(type) {
	case *float64:
		return v
	case nil:
		return nil
	default:
		c.mismatch(name, v)
		return nil
	}
}

func (c *Cursor) NullBool(name string) *bool {
	switch v := c.value(name).(type) {
	case *bool:
		return v
	case nil:
		return nil
	default:
		c.mismatch(name, v)
		return nil
	}
}

func (c *Cursor) Strings(name string) []string {
	switch v := c.value(name).(type) {
	case []string:
		return v
	case nil:
		return nil
	default:
		c.mismatch(name, v)
		return nil
	}
}
