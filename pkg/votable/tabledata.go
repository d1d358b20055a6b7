package votable

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

func decodeTableData(columns []column, td *tableData) ([][]any, error) {
	rows := make([][]any, len(td.Rows))

	for r, tr := range td.Rows {
		if len(tr.Cells) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d cells but table has %d fields",
				ErrDecode, r, len(tr.Cells), len(columns))
		}

		row := make([]any, len(columns))
		for i := range columns {
			cell := tr.Cells[i]
			if cell.Encoding != "" {
				return nil, fmt.Errorf("%w: TD encoding %q", ErrUnsupported, cell.Encoding)
			}

			v, err := columns[i].parseText(cell.Text)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d field %q: %w", ErrDecode, r, columns[i].name, err)
			}
			row[i] = v
		}
		rows[r] = row
	}

	return rows, nil
}

// parseText decodes the text of one TD cell. Surrounding whitespace is
// dropped and empty cells are nulls.
func (c *column) parseText(text string) (any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if c.datatype.isText() {
		return text, nil
	}

	if c.datatype == typeBit {
		return parseBits(text, c.scalar())
	}

	tokens := strings.Fields(text)
	if c.scalar() {
		switch c.datatype {
		case typeFloatComplex, typeDoubleComplex:
			if len(tokens) != 2 {
				return nil, fmt.Errorf("complex value %q needs two parts", text)
			}
		default:
			if len(tokens) != 1 {
				return nil, fmt.Errorf("got %d values for scalar field", len(tokens))
			}
		}
	}

	switch c.datatype {
	case typeBoolean:
		if c.scalar() {
			return parseBool(tokens[0])
		}
		result := make([]any, len(tokens))
		for i, tok := range tokens {
			v, err := parseBool(tok)
			if err != nil {
				return nil, err
			}
			result[i] = v
		}
		return result, nil
	case typeUnsignedByte, typeShort, typeInt, typeLong:
		bits := c.datatype.size() * 8
		result := make([]int64, len(tokens))
		for i, tok := range tokens {
			v, err := parseInteger(tok, bits, c.datatype == typeUnsignedByte)
			if err != nil {
				return nil, err
			}
			result[i] = v
		}
		if c.scalar() {
			return c.integer(result[0]), nil
		}
		return result, nil
	case typeFloat, typeDouble:
		bits := c.datatype.size() * 8
		result := make([]float64, len(tokens))
		for i, tok := range tokens {
			v, err := parseFloat(tok, bits)
			if err != nil {
				return nil, err
			}
			result[i] = v
		}
		if c.scalar() {
			if c.datatype == typeFloat {
				return float32(result[0]), nil
			}
			return result[0], nil
		}
		return result, nil
	case typeFloatComplex, typeDoubleComplex:
		if len(tokens)%2 != 0 {
			return nil, fmt.Errorf("complex array %q has an odd number of parts", text)
		}
		result := make([]complex128, len(tokens)/2)
		for i := range result {
			re, err := parseFloat(tokens[2*i], 64)
			if err != nil {
				return nil, err
			}
			im, err := parseFloat(tokens[2*i+1], 64)
			if err != nil {
				return nil, err
			}
			result[i] = complex(re, im)
		}
		if c.scalar() {
			return result[0], nil
		}
		return result, nil
	}

	return nil, fmt.Errorf("%w: datatype %d", ErrUnsupported, c.datatype)
}

func parseBool(s string) (any, error) {
	switch s {
	case "T", "t", "true", "TRUE", "True", "1":
		return true, nil
	case "F", "f", "false", "FALSE", "False", "0":
		return false, nil
	case "?", " ":
		return nil, nil
	}
	return nil, fmt.Errorf("invalid boolean %q", s)
}

// parseInteger reads a decimal integer, or a hexadecimal one prefixed with 0x.
func parseInteger(s string, bits int, unsigned bool) (int64, error) {
	base := 10
	digits := s
	sign := ""
	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		sign, digits = digits[:1], digits[1:]
	}
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	}

	if unsigned {
		if sign == "-" {
			return 0, fmt.Errorf("negative value %q for unsigned field", s)
		}
		u, err := strconv.ParseUint(digits, base, bits)
		return int64(u), err
	}
	return strconv.ParseInt(sign+digits, base, bits)
}

func parseFloat(s string, bits int) (float64, error) {
	v, err := strconv.ParseFloat(s, bits)
	if err != nil {
		// ParseFloat reports values beyond the range of bits as an error
		// but still returns the infinity.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange && math.IsInf(v, 0) {
			return v, nil
		}
		return 0, err
	}
	return v, nil
}

func parseBits(text string, scalar bool) (any, error) {
	digits := strings.Join(strings.Fields(text), "")
	result := make([]bool, len(digits))
	for i, d := range digits {
		switch d {
		case '0':
		case '1':
			result[i] = true
		default:
			return nil, fmt.Errorf("invalid bit %q", d)
		}
	}
	if scalar {
		if len(result) != 1 {
			return nil, fmt.Errorf("got %d bits for scalar field", len(result))
		}
		return result[0], nil
	}
	return result, nil
}
