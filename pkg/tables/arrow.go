package tables

import (
	"fmt"
	"math"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// Pool is the allocator shared by record builders and Parquet readers.
var Pool = memory.NewGoAllocator()

func ArrowType(t Type) (arrow.DataType, error) {
	switch t {
	case Bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case Uint8:
		return arrow.PrimitiveTypes.Uint8, nil
	case Int16:
		return arrow.PrimitiveTypes.Int16, nil
	case Int32:
		return arrow.PrimitiveTypes.Int32, nil
	case Int64:
		return arrow.PrimitiveTypes.Int64, nil
	case Float32:
		return arrow.PrimitiveTypes.Float32, nil
	case Float64:
		return arrow.PrimitiveTypes.Float64, nil
	case String:
		return arrow.BinaryTypes.String, nil
	default:
		return nil, fmt.Errorf("%w: no arrow type for %s", ErrSchema, t)
	}
}

// Schema builds the arrow schema of t. Every field is nullable.
func (t *Table) Schema(md *arrow.Metadata) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(t.Fields))
	for i, f := range t.Fields {
		dt, err := ArrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, md), nil
}

// Record copies every row of t into a single arrow record. The caller
// releases the record.
func (t *Table) Record(mem memory.Allocator, schema *arrow.Schema) (arrow.Record, error) {
	if schema.NumFields() != len(t.Fields) {
		return nil, fmt.Errorf("%w: schema has %d fields but table has %d",
			ErrSchema, schema.NumFields(), len(t.Fields))
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for r, row := range t.Rows {
		if len(row) != len(t.Fields) {
			return nil, fmt.Errorf("%w: row %d has %d values but table has %d columns",
				ErrSchema, r, len(row), len(t.Fields))
		}
		for c, v := range row {
			err := appendValue(builder.Field(c), v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, t.Fields[c].Name, err)
			}
		}
	}

	return builder.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}

	switch builder := b.(type) {
	case *array.BooleanBuilder:
		x, ok := v.(bool)
		if !ok {
			return fmt.Errorf("%w: %T is not a bool", ErrConvert, v)
		}
		builder.Append(x)
	case *array.StringBuilder:
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("%w: %T is not a string", ErrConvert, v)
		}
		builder.Append(x)
	case *array.Float64Builder:
		x, err := AsFloat64(v)
		if err != nil {
			return err
		}
		builder.Append(x)
	case *array.Float32Builder:
		x, err := AsFloat64(v)
		if err != nil {
			return err
		}
		builder.Append(float32(x))
	case *array.Int64Builder:
		x, ok, err := AsInt64(v)
		if err != nil {
			return err
		}
		if !ok {
			builder.AppendNull()
			return nil
		}
		builder.Append(x)
	case *array.Int32Builder:
		x, ok, err := intInRange(v, math.MinInt32, math.MaxInt32)
		if err != nil {
			return err
		}
		if !ok {
			builder.AppendNull()
			return nil
		}
		builder.Append(int32(x))
	case *array.Int16Builder:
		x, ok, err := intInRange(v, math.MinInt16, math.MaxInt16)
		if err != nil {
			return err
		}
		if !ok {
			builder.AppendNull()
			return nil
		}
		builder.Append(int16(x))
	case *array.Uint8Builder:
		x, ok, err := intInRange(v, 0, math.MaxUint8)
		if err != nil {
			return err
		}
		if !ok {
			builder.AppendNull()
			return nil
		}
		builder.Append(uint8(x))
	default:
		return fmt.Errorf("%w: unsupported builder %T", ErrConvert, b)
	}

	return nil
}

func intInRange(v any, lo, hi int64) (int64, bool, error) {
	x, ok, err := AsInt64(v)
	if err != nil || !ok {
		return x, ok, err
	}
	if x < lo || x > hi {
		return 0, false, fmt.Errorf("%w: %d out of range [%d, %d]", ErrConvert, x, lo, hi)
	}
	return x, true, nil
}
