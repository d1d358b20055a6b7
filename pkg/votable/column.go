package votable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/willbeason/astro-prep/pkg/tables"
)

type datatype uint8

const (
	typeBoolean datatype = iota + 1
	typeBit
	typeUnsignedByte
	typeShort
	typeInt
	typeLong
	typeChar
	typeUnicodeChar
	typeFloat
	typeDouble
	typeFloatComplex
	typeDoubleComplex
)

var datatypes = map[string]datatype{
	"boolean":       typeBoolean,
	"bit":           typeBit,
	"unsignedByte":  typeUnsignedByte,
	"short":         typeShort,
	"int":           typeInt,
	"long":          typeLong,
	"char":          typeChar,
	"unicodeChar":   typeUnicodeChar,
	"float":         typeFloat,
	"double":        typeDouble,
	"floatComplex":  typeFloatComplex,
	"doubleComplex": typeDoubleComplex,
}

// size is the number of bytes one element takes in a binary stream. Bits are
// packed and handled separately.
func (d datatype) size() int {
	switch d {
	case typeBoolean, typeUnsignedByte, typeChar:
		return 1
	case typeShort, typeUnicodeChar:
		return 2
	case typeInt, typeFloat:
		return 4
	case typeLong, typeDouble, typeFloatComplex:
		return 8
	case typeDoubleComplex:
		return 16
	default:
		return 0
	}
}

func (d datatype) isText() bool {
	return d == typeChar || d == typeUnicodeChar
}

type column struct {
	name     string
	datatype datatype

	// count is the fixed number of elements, or the maximum when variable.
	count    int
	variable bool

	// null is the integer sentinel declared in VALUES, if any.
	null    int64
	hasNull bool
}

func newColumn(f field) (column, error) {
	c := column{name: f.Name}
	if c.name == "" {
		c.name = f.ID
	}

	var ok bool
	c.datatype, ok = datatypes[f.Datatype]
	if !ok {
		return c, fmt.Errorf("%w: field %q has unknown datatype %q", ErrDecode, c.name, f.Datatype)
	}

	var err error
	c.count, c.variable, err = parseArraysize(f.Arraysize)
	if err != nil {
		return c, fmt.Errorf("%w: field %q: %w", ErrDecode, c.name, err)
	}

	if f.Values != nil && f.Values.Null != "" {
		switch c.datatype {
		case typeUnsignedByte, typeShort, typeInt, typeLong:
			c.null, err = strconv.ParseInt(f.Values.Null, 0, 64)
			if err != nil {
				return c, fmt.Errorf("%w: field %q has invalid null value %q: %w",
					ErrDecode, c.name, f.Values.Null, err)
			}
			c.hasNull = true
		}
	}

	return c, nil
}

// parseArraysize reads values such as "", "*", "12", "12*" and "3x4x*". The
// returned count is the product of the fixed dimensions.
func parseArraysize(s string) (int, bool, error) {
	if s == "" {
		return 1, false, nil
	}

	count := 1
	variable := false
	dims := strings.Split(s, "x")
	for i, dim := range dims {
		if strings.HasSuffix(dim, "*") {
			if i != len(dims)-1 {
				return 0, false, fmt.Errorf("arraysize %q: only the last dimension may be variable", s)
			}
			variable = true
			dim = strings.TrimSuffix(dim, "*")
			if dim == "" {
				continue
			}
		}
		n, err := strconv.Atoi(dim)
		if err != nil || n < 0 {
			return 0, false, fmt.Errorf("arraysize %q: invalid dimension %q", s, dim)
		}
		count *= n
	}

	return count, variable, nil
}

func (c *column) scalar() bool {
	return !c.variable && c.count == 1
}

func (c *column) tableType() tables.Type {
	if c.datatype.isText() {
		return tables.String
	}
	if !c.scalar() {
		return tables.Unknown
	}

	switch c.datatype {
	case typeBoolean, typeBit:
		return tables.Bool
	case typeUnsignedByte:
		return tables.Uint8
	case typeShort:
		return tables.Int16
	case typeInt:
		return tables.Int32
	case typeLong:
		return tables.Int64
	case typeFloat:
		return tables.Float32
	case typeDouble:
		return tables.Float64
	default:
		return tables.Unknown
	}
}

// integer narrows v to the column's Go type, or returns nil for the null
// sentinel.
func (c *column) integer(v int64) any {
	if c.hasNull && v == c.null {
		return nil
	}

	switch c.datatype {
	case typeUnsignedByte:
		return uint8(v)
	case typeShort:
		return int16(v)
	case typeInt:
		return int32(v)
	default:
		return v
	}
}
