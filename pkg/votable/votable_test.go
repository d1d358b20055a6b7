package votable

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/willbeason/astro-prep/pkg/tables"
)

const spectrumTableData = `<?xml version="1.0" encoding="UTF-8"?>
<VOTABLE version="1.4" xmlns="http://www.ivoa.net/xml/VOTable/v1.3">
  <RESOURCE type="results">
    <INFO name="QUERY_STATUS" value="OK"/>
    <RESOURCE>
      <TABLE name="XP_SAMPLED">
        <FIELD name="source_id" datatype="long">
          <VALUES null="-1"/>
        </FIELD>
        <FIELD name="wavelength" datatype="float" unit="nm"/>
        <FIELD name="flux" datatype="double"/>
        <FIELD name="flux_error" datatype="double"/>
        <FIELD name="band" datatype="char" arraysize="*"/>
        <FIELD name="ok" datatype="boolean"/>
        <PARAM name="ignored" datatype="int" value="3"/>
        <DATA>
          <TABLEDATA>
            <TR><TD>42</TD><TD>336.0</TD><TD>1.5e-16</TD><TD>2e-18</TD><TD>BP</TD><TD>T</TD></TR>
            <TR><TD>-1</TD><TD>338.0</TD><TD></TD><TD>NaN</TD><TD></TD><TD>?</TD></TR>
          </TABLEDATA>
        </DATA>
      </TABLE>
    </RESOURCE>
  </RESOURCE>
</VOTABLE>`

func TestDecode_TableData(t *testing.T) {
	got, err := Decode(strings.NewReader(spectrumTableData))
	if err != nil {
		t.Fatal(err)
	}

	wantFields := []tables.Field{
		{Name: "source_id", Type: tables.Int64},
		{Name: "wavelength", Type: tables.Float32},
		{Name: "flux", Type: tables.Float64},
		{Name: "flux_error", Type: tables.Float64},
		{Name: "band", Type: tables.String},
		{Name: "ok", Type: tables.Bool},
	}
	if diff := cmp.Diff(wantFields, got.Fields); diff != "" {
		t.Fatal(diff)
	}

	wantRows := [][]any{
		{int64(42), float32(336), 1.5e-16, 2e-18, "BP", true},
		{nil, float32(338), nil, math.NaN(), nil, nil},
	}
	if diff := cmp.Diff(wantRows, got.Rows, cmp.Comparer(sameFloat)); diff != "" {
		t.Error(diff)
	}
}

func sameFloat(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func TestDecode_Empty(t *testing.T) {
	doc := `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="int"/></TABLE></RESOURCE></VOTABLE>`

	got, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if got.NumCols() != 1 || got.NumRows() != 0 {
		t.Errorf("got %d columns and %d rows, want 1 and 0", got.NumCols(), got.NumRows())
	}
}

func TestDecode_Errors(t *testing.T) {
	tcs := []struct {
		name string
		doc  string
		want error
	}{
		{
			name: "not xml",
			doc:  "SIMPLE  =                    T",
			want: ErrDecode,
		},
		{
			name: "no table",
			doc:  `<VOTABLE><RESOURCE/></VOTABLE>`,
			want: ErrDecode,
		},
		{
			name: "unknown datatype",
			doc:  `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="quad"/></TABLE></RESOURCE></VOTABLE>`,
			want: ErrDecode,
		},
		{
			name: "short row",
			doc: `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="int"/><FIELD name="b" datatype="int"/>
<DATA><TABLEDATA><TR><TD>1</TD></TR></TABLEDATA></DATA></TABLE></RESOURCE></VOTABLE>`,
			want: ErrDecode,
		},
		{
			name: "bad integer",
			doc: `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="short"/>
<DATA><TABLEDATA><TR><TD>70000</TD></TR></TABLEDATA></DATA></TABLE></RESOURCE></VOTABLE>`,
			want: ErrDecode,
		},
		{
			name: "fits serialization",
			doc: `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="int"/>
<DATA><FITS><STREAM href="file:///tmp/x.fits"/></FITS></DATA></TABLE></RESOURCE></VOTABLE>`,
			want: ErrUnsupported,
		},
		{
			name: "external stream",
			doc: `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="int"/>
<DATA><BINARY><STREAM href="http://example.org/data"/></BINARY></DATA></TABLE></RESOURCE></VOTABLE>`,
			want: ErrUnsupported,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Errorf("got error %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecode_TableDataIntegers(t *testing.T) {
	tcs := []struct {
		name     string
		datatype string
		text     string
		want     any
		wantErr  bool
	}{
		{name: "leading zero", datatype: "int", text: "010", want: int32(10)},
		{name: "leading zero beyond octal", datatype: "short", text: "08", want: int16(8)},
		{name: "hex", datatype: "int", text: "0x1F", want: int32(31)},
		{name: "upper hex", datatype: "long", text: "0X1f", want: int64(31)},
		{name: "negative hex", datatype: "short", text: "-0x10", want: int16(-16)},
		{name: "unsigned byte", datatype: "unsignedByte", text: "0255", want: uint8(255)},
		{name: "negative unsigned byte", datatype: "unsignedByte", text: "-1", wantErr: true},
		{name: "hex without digits", datatype: "int", text: "0x", wantErr: true},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			doc := `<VOTABLE><RESOURCE><TABLE><FIELD name="a" datatype="` + tc.datatype + `"/>
<DATA><TABLEDATA><TR><TD>` + tc.text + `</TD></TR></TABLEDATA></DATA></TABLE></RESOURCE></VOTABLE>`

			got, err := Decode(strings.NewReader(doc))
			if tc.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("got error %v, want %v", err, ErrDecode)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got.Rows[0][0]); diff != "" {
				t.Error(diff)
			}
		})
	}
}

func TestDecode_TableDataTrimsText(t *testing.T) {
	doc := `<VOTABLE><RESOURCE><TABLE><FIELD name="designation" datatype="char" arraysize="*"/>
<DATA><TABLEDATA>
<TR>
  <TD>
    Gaia DR3 42
  </TD>
</TR>
<TR><TD>   </TD></TR>
</TABLEDATA></DATA></TABLE></RESOURCE></VOTABLE>`

	got, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}

	want := [][]any{{"Gaia DR3 42"}, {nil}}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Error(diff)
	}
}

func TestParseArraysize(t *testing.T) {
	tcs := []struct {
		in           string
		wantCount    int
		wantVariable bool
		wantErr      bool
	}{
		{in: "", wantCount: 1},
		{in: "*", wantCount: 1, wantVariable: true},
		{in: "12", wantCount: 12},
		{in: "12*", wantCount: 12, wantVariable: true},
		{in: "3x4", wantCount: 12},
		{in: "3x4x*", wantCount: 12, wantVariable: true},
		{in: "*x3", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tc := range tcs {
		t.Run(tc.in, func(t *testing.T) {
			count, variable, err := parseArraysize(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("got error %v, want error %t", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if count != tc.wantCount || variable != tc.wantVariable {
				t.Errorf("got (%d, %t), want (%d, %t)", count, variable, tc.wantCount, tc.wantVariable)
			}
		})
	}
}

// binaryRows encodes rows of (long source_id, float teff, char[*] name,
// boolean flag) with an optional BINARY2 null mask.
func binaryRows(t *testing.T, withMask bool) string {
	t.Helper()

	buf := &bytes.Buffer{}
	write := func(v any) {
		if err := binary.Write(buf, binary.BigEndian, v); err != nil {
			t.Fatal(err)
		}
	}

	// Row 1: all present.
	if withMask {
		write(uint8(0))
	}
	write(int64(5853498713190525696))
	write(float32(5772.5))
	write(uint32(3))
	buf.WriteString("Sun")
	buf.WriteByte('T')

	// Row 2: teff null. BINARY still carries a value for it.
	if withMask {
		write(uint8(0x40))
	}
	write(int64(-99))
	write(float32(math.NaN()))
	write(uint32(0))
	buf.WriteByte('F')

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func binaryDoc(element, payload string) string {
	return `<VOTABLE version="1.4"><RESOURCE><TABLE>
<FIELD name="SOURCE_ID" datatype="long"><VALUES null="-99"/></FIELD>
<FIELD name="teff_gspphot" datatype="float"/>
<FIELD name="name" datatype="char" arraysize="*"/>
<FIELD name="has_xp_sampled" datatype="boolean"/>
<DATA><` + element + `><STREAM encoding="base64">
` + payload + `
</STREAM></` + element + `></DATA></TABLE></RESOURCE></VOTABLE>`
}

func TestDecode_Binary2(t *testing.T) {
	got, err := Decode(strings.NewReader(binaryDoc("BINARY2", binaryRows(t, true))))
	if err != nil {
		t.Fatal(err)
	}

	want := [][]any{
		{int64(5853498713190525696), float32(5772.5), "Sun", true},
		{nil, nil, nil, false},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Error(diff)
	}
}

func TestDecode_Binary(t *testing.T) {
	got, err := Decode(strings.NewReader(binaryDoc("BINARY", binaryRows(t, false))))
	if err != nil {
		t.Fatal(err)
	}

	if got.NumRows() != 2 {
		t.Fatalf("got %d rows, want 2", got.NumRows())
	}
	if got.Rows[1][0] != nil {
		t.Errorf("got source id %v, want null sentinel decoded as nil", got.Rows[1][0])
	}
	teff, ok := got.Rows[1][1].(float32)
	if !ok || !math.IsNaN(float64(teff)) {
		t.Errorf("got teff %v, want NaN", got.Rows[1][1])
	}
}

func TestDecode_BinaryTruncated(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte{0, 1, 2})

	_, err := Decode(strings.NewReader(binaryDoc("BINARY2", payload)))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got error %v, want %v", err, ErrDecode)
	}
}

func TestReadFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates-result.vot.gz")

	buf := &bytes.Buffer{}
	w := gzip.NewWriter(buf)
	if _, err := w.Write([]byte(spectrumTableData)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.NumRows() != 2 || got.NumCols() != 6 {
		t.Errorf("got %d rows and %d columns, want 2 and 6", got.NumRows(), got.NumCols())
	}
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	if !errors.Is(err, ErrDecode) {
		t.Errorf("got error %v, want %v", err, ErrDecode)
	}
}
