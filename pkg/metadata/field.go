package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/willbeason/astro-prep/pkg/tables"
)

// Field infers the column type of one JSON key over every row it appears in.
type Field interface {
	Add(raw json.RawMessage) (Field, error)
	Type() tables.Type
}

var null = []byte("null")

// NullField represents a field which is never filled in.
// Adding any non-null value to a NullField returns a non-NullField.
type NullField struct{}

func (nf *NullField) Add(raw json.RawMessage) (Field, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return nf, nil
	}

	var f Field
	switch {
	case raw[0] == '"':
		f = &StringField{}
	case raw[0] == 't' || raw[0] == 'f':
		f = &BoolField{}
	default:
		f = &NumberField{Integral: true}
	}
	return f.Add(raw)
}

func (nf *NullField) Type() tables.Type {
	// Columns without a single value are kept as strings of nulls.
	return tables.String
}

type BoolField struct {
	True  int
	False int
}

func (f *BoolField) Add(raw json.RawMessage) (Field, error) {
	var o *bool
	err := json.Unmarshal(raw, &o)
	if err != nil {
		return nil, fmt.Errorf("%w: value %s added to %T: %w", ErrJSON, raw, f, err)
	}
	if o == nil {
		return f, nil
	}
	if *o {
		f.True++
	} else {
		f.False++
	}
	return f, nil
}

func (f *BoolField) Type() tables.Type {
	return tables.Bool
}

// NumberField stays integral until it sees a value that does not parse as an
// int64.
type NumberField struct {
	Integral bool
}

func (f *NumberField) Add(raw json.RawMessage) (Field, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, null) {
		return f, nil
	}

	s := string(raw)
	if f.Integral {
		_, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return f, nil
		}
		f.Integral = false
	}

	_, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: value %s added to %T", ErrJSON, raw, f)
	}
	return f, nil
}

func (f *NumberField) Type() tables.Type {
	if f.Integral {
		return tables.Int64
	}
	return tables.Float64
}

type StringField struct{}

func (f *StringField) Add(raw json.RawMessage) (Field, error) {
	var o *string
	err := json.Unmarshal(raw, &o)
	if err != nil {
		return nil, fmt.Errorf("%w: value %s added to %T: %w", ErrJSON, raw, f, err)
	}
	return f, nil
}

func (f *StringField) Type() tables.Type {
	return tables.String
}

// parse decodes raw as a value of type t. JSON null becomes nil.
func parse(raw json.RawMessage, t tables.Type) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, null) {
		return nil, nil
	}

	switch t {
	case tables.Bool:
		var b bool
		err := json.Unmarshal(raw, &b)
		return b, err
	case tables.Int64:
		return strconv.ParseInt(string(raw), 10, 64)
	case tables.Float64:
		return strconv.ParseFloat(string(raw), 64)
	default:
		var s string
		err := json.Unmarshal(raw, &s)
		return s, err
	}
}
