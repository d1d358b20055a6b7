package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/astrogo/fitsio"
	"github.com/willbeason/astro-prep/pkg/tables"
)

var ErrReadFITS = errors.New("reading FITS catalog")

// FITSTable is the first binary table extension of a FITS file.
type FITSTable struct {
	path  string
	file  *os.File
	fits  *fitsio.File
	table *fitsio.Table
}

func OpenFITS(path string) (*FITSTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrReadFITS, path, err)
	}

	f, err := fitsio.Open(bufio.NewReader(file))
	if err != nil {
		closeAll(path, file)
		return nil, fmt.Errorf("%w: parsing %q: %w", ErrReadFITS, path, err)
	}

	for _, hdu := range f.HDUs() {
		if hdu.Type() != fitsio.BINARY_TBL {
			continue
		}
		table, ok := hdu.(*fitsio.Table)
		if !ok {
			continue
		}
		return &FITSTable{path: path, file: file, fits: f, table: table}, nil
	}

	closeAll(path, f, file)
	return nil, fmt.Errorf("%w: %q has no binary table extension", ErrReadFITS, path)
}

func closeAll(path string, closers ...io.Closer) {
	for _, c := range closers {
		err := c.Close()
		if err != nil {
			log.Printf("error closing %q: %v\n", path, err)
		}
	}
}

func (t *FITSTable) Close() error {
	err := t.fits.Close()
	err2 := t.file.Close()
	if err != nil {
		return err
	}
	return err2
}

func (t *FITSTable) NumRows() int64 {
	return t.table.NumRows()
}

// Require checks that every named column is present, naming all that are not.
func (t *FITSTable) Require(names ...string) error {
	var missing []string
	for _, name := range names {
		if t.table.Index(name) < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %q is missing columns %q", tables.ErrSchema, t.path, missing)
	}
	return nil
}

// Rows scans only the named columns of every row. Each yielded map is fresh.
func (t *FITSTable) Rows(names ...string) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		rows, err := t.table.Read(0, t.table.NumRows())
		if err != nil {
			yield(nil, fmt.Errorf("%w: %q: %w", ErrReadFITS, t.path, err))
			return
		}
		defer func() {
			err := rows.Close()
			if err != nil {
				fmt.Println(err)
			}
		}()

		i := 0
		for rows.Next() {
			data := make(map[string]any, len(names))
			for _, name := range names {
				data[name] = nil
			}

			err = rows.Scan(&data)
			if err != nil {
				yield(nil, fmt.Errorf("%w: %q row %d: %w", ErrReadFITS, t.path, i, err))
				return
			}
			if !yield(data, nil) {
				return
			}
			i++
		}

		err = rows.Err()
		if err != nil {
			yield(nil, fmt.Errorf("%w: %q: %w", ErrReadFITS, t.path, err))
		}
	}
}

// cellString converts a FITS character cell. Trailing blanks and NULs are
// padding.
func cellString(v any) (string, error) {
	switch o := v.(type) {
	case string:
		return strings.TrimRight(o, " \x00"), nil
	case []byte:
		return strings.TrimRight(string(o), " \x00"), nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		b := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(b), rv)
		return strings.TrimRight(string(b), " \x00"), nil
	}
	return "", fmt.Errorf("%w: %T is not a string", tables.ErrConvert, v)
}
