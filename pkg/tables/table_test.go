package tables

import (
	"errors"
	"math"
	"testing"
)

func TestRequire(t *testing.T) {
	table := &Table{Fields: []Field{{Name: "a", Type: Int64}, {Name: "b", Type: String}}}

	if err := table.Require("a", "b"); err != nil {
		t.Fatalf("got error %v, want nil", err)
	}

	err := table.Require("a", "c", "d")
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("got error %v, want %v", err, ErrSchema)
	}
}

func TestRename(t *testing.T) {
	table := &Table{Fields: []Field{{Name: "SOURCE_ID", Type: Int64}, {Name: "x", Type: Float64}}}

	if err := table.Rename("SOURCE_ID", "source_id"); err != nil {
		t.Fatal(err)
	}
	if got := table.Index("source_id"); got != 0 {
		t.Errorf("got index %d, want 0", got)
	}

	if err := table.Rename("missing", "y"); !errors.Is(err, ErrSchema) {
		t.Errorf("got error %v, want %v", err, ErrSchema)
	}
	if err := table.Rename("source_id", "x"); !errors.Is(err, ErrSchema) {
		t.Errorf("got error %v, want %v", err, ErrSchema)
	}
}

func TestAsInt64(t *testing.T) {
	tcs := []struct {
		name    string
		v       any
		want    int64
		wantOK  bool
		wantErr error
	}{
		{name: "int64", v: int64(5853498713190525696), want: 5853498713190525696, wantOK: true},
		{name: "int16", v: int16(-3), want: -3, wantOK: true},
		{name: "uint8", v: uint8(200), want: 200, wantOK: true},
		{name: "integral float", v: 42.0, want: 42, wantOK: true},
		{name: "nil", v: nil},
		{name: "NaN", v: math.NaN()},
		{name: "fractional float", v: 1.5, wantErr: ErrConvert},
		{name: "string", v: "12", wantErr: ErrConvert},
		{name: "overflow", v: uint64(math.MaxUint64), wantErr: ErrConvert},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := AsInt64(tc.v)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if ok != tc.wantOK || got != tc.want {
				t.Errorf("got (%d, %t), want (%d, %t)", got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestAsFloat64(t *testing.T) {
	got, err := AsFloat64(float32(0.25))
	if err != nil || got != 0.25 {
		t.Errorf("got (%v, %v), want (0.25, nil)", got, err)
	}

	got, err = AsFloat64(nil)
	if err != nil || !math.IsNaN(got) {
		t.Errorf("got (%v, %v), want (NaN, nil)", got, err)
	}

	_, err = AsFloat64(true)
	if !errors.Is(err, ErrConvert) {
		t.Errorf("got error %v, want %v", err, ErrConvert)
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range Compressions {
		if _, err := ParseCompression(name); err != nil {
			t.Errorf("ParseCompression(%q): %v", name, err)
		}
	}

	if _, err := ParseCompression("lzma"); !errors.Is(err, ErrCompression) {
		t.Errorf("got error %v, want %v", err, ErrCompression)
	}
}
