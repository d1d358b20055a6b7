// Package metadata reads the per-source parameter tables that spectra are
// joined against: VOTable results from the Gaia archive, or their JSON lines
// exports.
package metadata

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/willbeason/astro-prep/pkg/tables"
	"github.com/willbeason/astro-prep/pkg/votable"
	bondsmith_io "github.com/willbeason/bondsmith-io"
)

var (
	ErrFormat = errors.New("unknown metadata format")
	ErrJSON   = errors.New("reading JSON lines metadata")
)

// ReadFile reads the metadata table at path, choosing the decoder from the
// file extension. A trailing .gz is decompressed.
func ReadFile(path string) (*tables.Table, error) {
	name := strings.TrimSuffix(strings.ToLower(path), ".gz")

	switch filepath.Ext(name) {
	case ".vot", ".votable", ".xml":
		return votable.ReadFile(path)
	case ".jsonl", ".json":
		return ReadJSONLFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, path)
	}
}

func ReadJSONLFile(path string) (*tables.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrJSON, path, err)
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
			return nil, fmt.Errorf("%w: starting gzip reader stream for %q: %w", ErrJSON, path, err)
		}
		defer func() {
			err := gzipReader.Close()
			if err != nil {
				fmt.Println(err)
			}
		}()
		reader = gzipReader
	}

	t, err := ReadJSONL(reader)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", path, err)
	}
	return t, nil
}

// ReadJSONL reads one flat JSON object per line. Columns appear in the order
// their keys are first seen; keys missing from a row are nulls.
func ReadJSONL(r io.Reader) (*tables.Table, error) {
	entries := bondsmith_io.NewJsonReader(r, func() *record {
		return &record{}
	})

	var names []string
	fields := make(map[string]Field)
	var records []*record

	for entry, err := range entries.Read() {
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: row %d: %w", ErrJSON, len(records), err)
		}

		for _, key := range entry.keys {
			f, seen := fields[key]
			if !seen {
				names = append(names, key)
				f = &NullField{}
			}

			f, err = f.Add(entry.values[key])
			if err != nil {
				return nil, fmt.Errorf("row %d key %q: %w", len(records), key, err)
			}
			fields[key] = f
		}

		records = append(records, entry)
	}

	result := &tables.Table{
		Fields: make([]tables.Field, len(names)),
		Rows:   make([][]any, len(records)),
	}
	for i, name := range names {
		result.Fields[i] = tables.Field{Name: name, Type: fields[name].Type()}
	}

	for r, rec := range records {
		row := make([]any, len(names))
		for i, f := range result.Fields {
			raw, ok := rec.values[f.Name]
			if !ok {
				continue
			}
			v, err := parse(raw, f.Type)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d key %q: %w", ErrJSON, r, f.Name, err)
			}
			row[i] = v
		}
		result.Rows[r] = row
	}

	return result, nil
}

// record is one JSON object with its keys in document order.
type record struct {
	keys   []string
	values map[string]json.RawMessage
}

func (rec *record) UnmarshalJSON(b []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(b))

	tok, err := decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("%w: got %v but want an object", ErrJSON, tok)
	}

	rec.keys = rec.keys[:0]
	rec.values = make(map[string]json.RawMessage)
	for decoder.More() {
		tok, err = decoder.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("%w: got key %v but want a string", ErrJSON, tok)
		}

		var raw json.RawMessage
		err = decoder.Decode(&raw)
		if err != nil {
			return err
		}

		if _, dup := rec.values[key]; !dup {
			rec.keys = append(rec.keys, key)
		}
		rec.values[key] = raw
	}

	_, err = decoder.Token()
	return err
}
