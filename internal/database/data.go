package database

import (
	"fmt"
	"strings"
	"time"
)

// Data is one row: an ordered set of column values.
type Data struct {
	keys   []string
	values map[string]any
}

// NewData returns an empty record.
func NewData() *Data {
	return &Data{values: make(map[string]any)}
}

// Set assigns a column value and returns d for chaining.
func (d *Data) Set(key string, value any) *Data {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return d
}

// Get returns a column value.
func (d *Data) Get(key string) (any, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Keys returns the column names in insertion order.
func (d *Data) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Int returns an integer column, or 0.
func (d *Data) Int(key string) int64 {
	switch v := d.values[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

// Float returns a real column, or 0.
func (d *Data) Float(key string) float64 {
	switch v := d.values[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// String returns a text column, or "".
func (d *Data) String(key string) string {
	switch v := d.values[key].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns a boolean column, accepting 0/1 integers.
func (d *Data) Bool(key string) bool {
	switch v := d.values[key].(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	}
	return false
}

// Time returns a timestamp column, or the zero time.
func (d *Data) Time(key string) time.Time {
	switch v := d.values[key].(type) {
	case time.Time:
		return v
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func (d *Data) format() string {
	parts := make([]string, len(d.keys))
	for i, k := range d.keys {
		parts[i] = fmt.Sprintf("%s=%v", k, d.values[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
