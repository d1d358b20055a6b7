// Package votable decodes the first table of an IVOA VOTable document into a
// tables.Table.
//
// TABLEDATA, BINARY and BINARY2 serializations are supported. Scalar fields
// decode to bool, uint8, int16, int32, int64, float32, float64 or string.
// Character arrays decode to strings; other arrays and complex values decode
// to slices and complex numbers, and are reported with type tables.Unknown.
package votable

import (
	"bufio"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/willbeason/astro-prep/pkg/tables"
)

var (
	ErrDecode      = errors.New("decoding VOTable")
	ErrUnsupported = errors.New("unsupported VOTable feature")
)

type document struct {
	Resources []resource `xml:"RESOURCE"`
}

type resource struct {
	Name      string     `xml:"name,attr"`
	Tables    []table    `xml:"TABLE"`
	Resources []resource `xml:"RESOURCE"`
}

type table struct {
	Name   string  `xml:"name,attr"`
	Fields []field `xml:"FIELD"`
	Data   *data   `xml:"DATA"`
}

type field struct {
	Name      string  `xml:"name,attr"`
	ID        string  `xml:"ID,attr"`
	Datatype  string  `xml:"datatype,attr"`
	Arraysize string  `xml:"arraysize,attr"`
	Unit      string  `xml:"unit,attr"`
	Values    *values `xml:"VALUES"`
}

type values struct {
	Null string `xml:"null,attr"`
}

type data struct {
	TableData *tableData  `xml:"TABLEDATA"`
	Binary    *binaryData `xml:"BINARY"`
	Binary2   *binaryData `xml:"BINARY2"`
	FITS      *struct{}   `xml:"FITS"`
}

type tableData struct {
	Rows []tableRow `xml:"TR"`
}

type tableRow struct {
	Cells []tableCell `xml:"TD"`
}

type tableCell struct {
	Encoding string `xml:"encoding,attr"`
	Text     string `xml:",chardata"`
}

type binaryData struct {
	Stream stream `xml:"STREAM"`
}

type stream struct {
	Encoding string `xml:"encoding,attr"`
	Href     string `xml:"href,attr"`
	Text     string `xml:",chardata"`
}

// Decode reads a VOTable document and returns its first table.
func Decode(r io.Reader) (*tables.Table, error) {
	doc := &document{}
	err := xml.NewDecoder(r).Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	t := firstTable(doc.Resources)
	if t == nil {
		return nil, fmt.Errorf("%w: document has no TABLE", ErrDecode)
	}

	columns := make([]column, len(t.Fields))
	for i, f := range t.Fields {
		columns[i], err = newColumn(f)
		if err != nil {
			return nil, err
		}
	}

	result := &tables.Table{Fields: make([]tables.Field, len(columns))}
	for i, c := range columns {
		result.Fields[i] = tables.Field{Name: c.name, Type: c.tableType()}
	}

	if t.Data == nil {
		return result, nil
	}

	switch {
	case t.Data.TableData != nil:
		result.Rows, err = decodeTableData(columns, t.Data.TableData)
	case t.Data.Binary2 != nil:
		result.Rows, err = decodeStream(columns, &t.Data.Binary2.Stream, true)
	case t.Data.Binary != nil:
		result.Rows, err = decodeStream(columns, &t.Data.Binary.Stream, false)
	case t.Data.FITS != nil:
		err = fmt.Errorf("%w: FITS serialization", ErrUnsupported)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}

func firstTable(resources []resource) *table {
	for i := range resources {
		if len(resources[i].Tables) > 0 {
			return &resources[i].Tables[0]
		}
		if t := firstTable(resources[i].Resources); t != nil {
			return t
		}
	}
	return nil
}

// ReadFile decodes the VOTable at path. Files ending in .gz are decompressed.
func ReadFile(path string) (*tables.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrDecode, path, err)
	}
	defer func() {
		err := file.Close()
		if err != nil {
			fmt.Println(err)
		}
	}()

	var reader io.Reader = bufio.NewReader(file)
	if strings.HasSuffix(path, ".gz") {
		gzipReader, err := gzip.NewReader(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: starting gzip reader stream for %q: %w", ErrDecode, path, err)
		}
		defer func() {
			err := gzipReader.Close()
			if err != nil {
				fmt.Println(err)
			}
		}()
		reader = gzipReader
	}

	t, err := Decode(reader)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return t, nil
}
