package votable

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf16"
)

// decodeStream decodes a base64 BINARY or BINARY2 stream. BINARY2 rows start
// with a null bitmask, one bit per field, most significant bit first.
func decodeStream(columns []column, s *stream, withNullMask bool) ([][]any, error) {
	if s.Href != "" {
		return nil, fmt.Errorf("%w: external stream %q", ErrUnsupported, s.Href)
	}
	if s.Encoding != "base64" {
		return nil, fmt.Errorf("%w: stream encoding %q", ErrUnsupported, s.Encoding)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(s.Text), ""))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64 stream: %w", ErrDecode, err)
	}

	cur := &cursor{data: raw}
	maskLen := (len(columns) + 7) / 8

	var rows [][]any
	for !cur.done() {
		var mask []byte
		if withNullMask {
			mask, err = cur.next(maskLen)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d null mask: %w", ErrDecode, len(rows), err)
			}
		}

		row := make([]any, len(columns))
		for i := range columns {
			v, err := columns[i].readBinary(cur)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d field %q: %w", ErrDecode, len(rows), columns[i].name, err)
			}
			if mask != nil && mask[i/8]&(0x80>>(i%8)) != 0 {
				v = nil
			}
			row[i] = v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

type cursor struct {
	data []byte
	off  int
}

func (c *cursor) done() bool {
	return c.off >= len(c.data)
}

func (c *cursor) next(n int) ([]byte, error) {
	if n < 0 || c.off+n > len(c.data) {
		return nil, fmt.Errorf("need %d bytes at offset %d but stream has %d", n, c.off, len(c.data))
	}
	b := c.data[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *column) readBinary(cur *cursor) (any, error) {
	n := c.count
	if c.variable {
		b, err := cur.next(4)
		if err != nil {
			return nil, err
		}
		n = int(binary.BigEndian.Uint32(b))
	}

	if c.datatype == typeBit {
		b, err := cur.next((n + 7) / 8)
		if err != nil {
			return nil, err
		}
		bits := make([]bool, n)
		for i := range bits {
			bits[i] = b[i/8]&(0x80>>(i%8)) != 0
		}
		if c.scalar() {
			return bits[0], nil
		}
		return bits, nil
	}

	size := c.datatype.size()
	b, err := cur.next(n * size)
	if err != nil {
		return nil, err
	}

	switch c.datatype {
	case typeChar:
		s := strings.TrimRight(string(b), "\x00")
		if s == "" {
			return nil, nil
		}
		return s, nil
	case typeUnicodeChar:
		units := make([]uint16, n)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(b[2*i:])
		}
		s := strings.TrimRight(string(utf16.Decode(units)), "\x00")
		if s == "" {
			return nil, nil
		}
		return s, nil
	}

	values := make([]any, n)
	for i := range values {
		values[i] = c.element(b[i*size : (i+1)*size])
	}
	if c.scalar() {
		return values[0], nil
	}
	return values, nil
}

func (c *column) element(b []byte) any {
	switch c.datatype {
	case typeBoolean:
		switch b[0] {
		case 'T', 't', '1':
			return true
		case 'F', 'f', '0':
			return false
		default:
			return nil
		}
	case typeUnsignedByte:
		return c.integer(int64(b[0]))
	case typeShort:
		return c.integer(int64(int16(binary.BigEndian.Uint16(b))))
	case typeInt:
		return c.integer(int64(int32(binary.BigEndian.Uint32(b))))
	case typeLong:
		return c.integer(int64(binary.BigEndian.Uint64(b)))
	case typeFloat:
		return math.Float32frombits(binary.BigEndian.Uint32(b))
	case typeDouble:
		return math.Float64frombits(binary.BigEndian.Uint64(b))
	case typeFloatComplex:
		re := math.Float32frombits(binary.BigEndian.Uint32(b))
		im := math.Float32frombits(binary.BigEndian.Uint32(b[4:]))
		return complex(float64(re), float64(im))
	case typeDoubleComplex:
		re := math.Float64frombits(binary.BigEndian.Uint64(b))
		im := math.Float64frombits(binary.BigEndian.Uint64(b[8:]))
		return complex(re, im)
	}
	return nil
}
