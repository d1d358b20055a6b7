// Package catalog reduces the APOGEE allStarLite catalog to the positions and
// abundances of each unique star.
package catalog

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/vbauerster/mpb"
	"github.com/willbeason/astro-prep/pkg/progress"
	"github.com/willbeason/astro-prep/pkg/tables"
)

const (
	IDColumn     = "APOGEE_ID"
	GLonColumn   = "GLON"
	GLatColumn   = "GLAT"
	MHColumn     = "M_H"
	AlphaMColumn = "ALPHA_M"

	DefaultInPath  = "allStarLite-dr17-synspec_rev1.fits"
	DefaultOutPath = "apogee-dr17-metallicites-and-alphas-cut.parquet"
)

// Columns is the exact column set of a reduced catalog, in output order.
var Columns = []string{IDColumn, GLonColumn, GLatColumn, MHColumn, AlphaMColumn}

var ErrReduce = errors.New("reducing catalog")

// Star is one catalog row. Missing measurements are NaN.
type Star struct {
	ID     string
	GLon   float64
	GLat   float64
	MH     float64
	AlphaM float64
}

// Complete reports whether both abundances were measured.
func (s Star) Complete() bool {
	return !math.IsNaN(s.MH) && !math.IsNaN(s.AlphaM)
}

// Dedupe keeps the first occurrence of each ID and sorts the result by ID.
func Dedupe(stars []Star) []Star {
	seen := make(map[string]bool, len(stars))
	result := make([]Star, 0, len(stars))
	for _, s := range stars {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		result = append(result, s)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// FilterComplete drops stars missing either abundance.
func FilterComplete(stars []Star) []Star {
	result := make([]Star, 0, len(stars))
	for _, s := range stars {
		if s.Complete() {
			result = append(result, s)
		}
	}
	return result
}

// Reduce deduplicates before filtering, so a star whose first row lacks
// abundances is dropped even if a later duplicate has them.
func Reduce(stars []Star) []Star {
	return FilterComplete(Dedupe(stars))
}

// Table returns stars as a table with exactly Columns.
func Table(stars []Star) *tables.Table {
	t := &tables.Table{
		Fields: []tables.Field{
			{Name: IDColumn, Type: tables.String},
			{Name: GLonColumn, Type: tables.Float64},
			{Name: GLatColumn, Type: tables.Float64},
			{Name: MHColumn, Type: tables.Float64},
			{Name: AlphaMColumn, Type: tables.Float64},
		},
		Rows: make([][]any, len(stars)),
	}
	for i, s := range stars {
		t.Rows[i] = []any{s.ID, s.GLon, s.GLat, s.MH, s.AlphaM}
	}
	return t
}

// ReadFITS reads every row of the catalog at path. Only Columns are decoded.
func ReadFITS(path string, p *mpb.Progress) ([]Star, error) {
	table, err := OpenFITS(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		err := table.Close()
		if err != nil {
			log.Printf("error closing %q: %v\n", path, err)
		}
	}()

	err = table.Require(Columns...)
	if err != nil {
		return nil, err
	}

	bar := progress.AddCounter(p, IDColumn, table.NumRows())

	stars := make([]Star, 0, table.NumRows())
	for row, err := range table.Rows(Columns...) {
		if err != nil {
			return nil, err
		}

		s, err := starFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %q row %d: %w", ErrReadFITS, path, len(stars), err)
		}
		stars = append(stars, s)

		bar.Incr()
	}
	bar.Done(int64(len(stars)))

	return stars, nil
}

func starFromRow(row map[string]any) (Star, error) {
	var s Star
	var err error

	s.ID, err = cellString(row[IDColumn])
	if err != nil {
		return s, fmt.Errorf("column %q: %w", IDColumn, err)
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{GLonColumn, &s.GLon},
		{GLatColumn, &s.GLat},
		{MHColumn, &s.MH},
		{AlphaMColumn, &s.AlphaM},
	}
	for _, f := range floats {
		*f.dst, err = tables.AsFloat64(row[f.name])
		if err != nil {
			return s, fmt.Errorf("column %q: %w", f.name, err)
		}
	}

	return s, nil
}

type Config struct {
	InPath      string
	OutPath     string
	Compression compress.Compression

	// Progress is optional.
	Progress *mpb.Progress
}

type Result struct {
	Read    int
	Written int
}

// Run reduces the catalog at cfg.InPath and writes it to cfg.OutPath.
func Run(cfg Config) (Result, error) {
	stars, err := ReadFITS(cfg.InPath, cfg.Progress)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrReduce, err)
	}

	reduced := Reduce(stars)

	err = tables.WriteParquet(cfg.OutPath, Table(reduced), tables.WriteOptions{
		Compression: cfg.Compression,
		Source:      cfg.InPath,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrReduce, err)
	}

	return Result{Read: len(stars), Written: len(reduced)}, nil
}
