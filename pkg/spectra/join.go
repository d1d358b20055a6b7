package spectra

import (
	"errors"
	"fmt"

	"github.com/willbeason/astro-prep/pkg/tables"
)

// SourceIDColumn is the name of the join key in the output.
const SourceIDColumn = "source_id"

var ErrDuplicateID = errors.New("duplicate source ID")

// Join inner-joins metadata to spectra on the metadata column key. Rows keep
// metadata order; the key column is renamed to SourceIDColumn and followed by
// the flux then flux error columns of grid. Metadata rows with a null key
// match nothing. Duplicate IDs on either side are an error.
func Join(metadata *tables.Table, key string, spectra []*Spectrum, grid Grid) (*tables.Table, error) {
	err := metadata.Require(key)
	if err != nil {
		return nil, err
	}
	keyIndex := metadata.Index(key)

	fluxNames, err := grid.ColumnNames()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*Spectrum, len(spectra))
	for _, s := range spectra {
		if _, dup := byID[s.SourceID]; dup {
			return nil, fmt.Errorf("%w: %d has more than one spectrum", ErrDuplicateID, s.SourceID)
		}
		if len(s.Flux) != len(grid) || len(s.FluxError) != len(grid) {
			return nil, fmt.Errorf("%w: source %d has %d samples but the grid has %d",
				ErrGridMismatch, s.SourceID, len(s.Flux), len(grid))
		}
		byID[s.SourceID] = s
	}

	result := &tables.Table{
		Fields: make([]tables.Field, 0, len(metadata.Fields)+len(fluxNames)),
	}
	result.Fields = append(result.Fields, metadata.Fields...)
	for _, name := range fluxNames {
		result.Fields = append(result.Fields, tables.Field{Name: name, Type: tables.Float64})
	}

	err = result.Rename(key, SourceIDColumn)
	if err != nil {
		return nil, err
	}
	for _, name := range fluxNames {
		if metadata.Index(name) >= 0 {
			return nil, fmt.Errorf("%w: metadata already has column %q", tables.ErrSchema, name)
		}
	}

	seen := make(map[int64]bool, len(metadata.Rows))
	for r, row := range metadata.Rows {
		id, ok, err := tables.AsInt64(row[keyIndex])
		if err != nil {
			return nil, fmt.Errorf("metadata row %d column %q: %w", r, key, err)
		}
		if !ok {
			continue
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %d appears more than once in metadata", ErrDuplicateID, id)
		}
		seen[id] = true

		s, found := byID[id]
		if !found {
			continue
		}

		joined := make([]any, 0, len(result.Fields))
		joined = append(joined, row...)
		for _, v := range s.Flux {
			joined = append(joined, v)
		}
		for _, v := range s.FluxError {
			joined = append(joined, v)
		}
		result.Rows = append(result.Rows, joined)
	}

	return result, nil
}
