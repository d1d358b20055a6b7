package tables

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// Type is the column type of a Field.
type Type uint8

const (
	Unknown Type = iota
	Bool
	Uint8
	Int16
	Int32
	Int64
	Float32
	Float64
	String
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

type Field struct {
	Name string
	Type Type
}

// Table is a small row-oriented table. A nil value in a row is a null.
type Table struct {
	Fields []Field
	Rows   [][]any
}

var ErrSchema = errors.New("schema mismatch")

// Index returns the position of the field named name, or -1.
func (t *Table) Index(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Require returns an ErrSchema naming every missing field.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if t.Index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing columns %q", ErrSchema, missing)
	}
	return nil
}

// Rename changes the name of a field in place.
func (t *Table) Rename(from, to string) error {
	i := t.Index(from)
	if i < 0 {
		return fmt.Errorf("%w: no column %q to rename", ErrSchema, from)
	}
	if from != to && t.Index(to) >= 0 {
		return fmt.Errorf("%w: column %q already exists", ErrSchema, to)
	}
	t.Fields[i].Name = to
	return nil
}

func (t *Table) NumRows() int {
	return len(t.Rows)
}

func (t *Table) NumCols() int {
	return len(t.Fields)
}

var ErrConvert = errors.New("converting value")

// AsFloat64 converts any numeric cell to a float64. Nulls become NaN.
func AsFloat64(v any) (float64, error) {
	switch o := v.(type) {
	case nil:
		return math.NaN(), nil
	case float64:
		return o, nil
	case float32:
		return float64(o), nil
	case int64:
		return float64(o), nil
	case int32:
		return float64(o), nil
	case int16:
		return float64(o), nil
	case int8:
		return float64(o), nil
	case int:
		return float64(o), nil
	case uint8:
		return float64(o), nil
	case uint16:
		return float64(o), nil
	case uint32:
		return float64(o), nil
	case uint64:
		return float64(o), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("%w: %T is not numeric", ErrConvert, v)
}

// AsInt64 converts an integral cell to an int64. Floats are accepted only
// when they hold an exact integer.
func AsInt64(v any) (int64, bool, error) {
	switch o := v.(type) {
	case nil:
		return 0, false, nil
	case int64:
		return o, true, nil
	case int32:
		return int64(o), true, nil
	case int16:
		return int64(o), true, nil
	case int8:
		return int64(o), true, nil
	case int:
		return int64(o), true, nil
	case uint8:
		return int64(o), true, nil
	case uint16:
		return int64(o), true, nil
	case uint32:
		return int64(o), true, nil
	case uint64:
		if o > math.MaxInt64 {
			return 0, false, fmt.Errorf("%w: %d overflows int64", ErrConvert, o)
		}
		return int64(o), true, nil
	case float64:
		if math.IsNaN(o) {
			return 0, false, nil
		}
		if math.Trunc(o) != o {
			return 0, false, fmt.Errorf("%w: %v is not an integer", ErrConvert, o)
		}
		return int64(o), true, nil
	case float32:
		return AsInt64(float64(o))
	}
	return 0, false, fmt.Errorf("%w: %T is not an integer", ErrConvert, v)
}
