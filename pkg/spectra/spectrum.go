package spectra

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/willbeason/astro-prep/pkg/tables"
	"github.com/willbeason/astro-prep/pkg/votable"
)

const (
	WavelengthColumn = "wavelength"
	FluxColumn       = "flux"
	FluxErrorColumn  = "flux_error"
)

var (
	ErrFilename     = errors.New("parsing source ID from filename")
	ErrReadSpectrum = errors.New("reading spectrum")
	ErrGridMismatch = errors.New("wavelength grids differ")
)

// Spectrum is one sampled spectrum. Wavelengths, Flux and FluxError have
// equal length; missing samples are NaN.
type Spectrum struct {
	SourceID    int64
	Wavelengths []float64
	Flux        []float64
	FluxError   []float64
}

// SourceIDFromPath parses the last space-separated token of the filename
// stem, as in "XP_SAMPLED-Gaia DR3 5853498713190525696.xml".
func SourceIDFromPath(path string) (int64, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	tokens := strings.Split(stem, " ")
	last := tokens[len(tokens)-1]

	id, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrFilename, path, err)
	}
	return id, nil
}

// Glob lists the files in dir matching pattern, sorted by name.
func Glob(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %q: %w", ErrReadSpectrum, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", ErrReadSpectrum, dir)
	}

	paths, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("%w: pattern %q: %w", ErrReadSpectrum, pattern, err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadFile reads the spectrum at path. The source ID comes from the filename.
func ReadFile(path string) (*Spectrum, error) {
	id, err := SourceIDFromPath(path)
	if err != nil {
		return nil, err
	}

	t, err := votable.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadSpectrum, err)
	}

	s, err := FromTable(id, t)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrReadSpectrum, path, err)
	}
	return s, nil
}

// FromTable extracts the wavelength, flux and flux error columns of t.
func FromTable(id int64, t *tables.Table) (*Spectrum, error) {
	err := t.Require(WavelengthColumn, FluxColumn, FluxErrorColumn)
	if err != nil {
		return nil, err
	}

	columns := []int{t.Index(WavelengthColumn), t.Index(FluxColumn), t.Index(FluxErrorColumn)}
	values := make([][]float64, len(columns))
	for i := range values {
		values[i] = make([]float64, len(t.Rows))
	}

	for r, row := range t.Rows {
		for i, c := range columns {
			values[i][r], err = tables.AsFloat64(row[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", r, t.Fields[c].Name, err)
			}
		}
		if math.IsNaN(values[0][r]) {
			return nil, fmt.Errorf("%w: row %d has no wavelength", tables.ErrSchema, r)
		}
	}

	return &Spectrum{
		SourceID:    id,
		Wavelengths: values[0],
		Flux:        values[1],
		FluxError:   values[2],
	}, nil
}

// Grid is a wavelength sampling shared by a set of spectra.
type Grid []float64

// Label is the integer part of w, as used in column names.
func Label(w float64) int64 {
	return int64(w)
}

func (g Grid) Equal(other Grid) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if g[i] != other[i] {
			return false
		}
	}
	return true
}

// ColumnNames returns flux_<w> for every wavelength followed by
// flux_<w>_error for every wavelength. Truncated labels must be distinct.
func (g Grid) ColumnNames() ([]string, error) {
	names := make([]string, 2*len(g))
	seen := make(map[int64]bool, len(g))
	for i, w := range g {
		label := Label(w)
		if seen[label] {
			return nil, fmt.Errorf("%w: wavelength %v truncates to duplicate label %d", ErrGridMismatch, w, label)
		}
		seen[label] = true

		names[i] = fmt.Sprintf("flux_%d", label)
		names[len(g)+i] = fmt.Sprintf("flux_%d_error", label)
	}
	return names, nil
}

// CheckGrid returns the wavelength grid shared by every spectrum. Spectra
// sampled differently from the first are rejected.
func CheckGrid(spectra []*Spectrum) (Grid, error) {
	if len(spectra) == 0 {
		return nil, nil
	}

	grid := Grid(spectra[0].Wavelengths)
	for _, s := range spectra[1:] {
		if !grid.Equal(s.Wavelengths) {
			return nil, fmt.Errorf("%w: source %d (%d samples) and source %d (%d samples)",
				ErrGridMismatch, spectra[0].SourceID, len(grid), s.SourceID, len(s.Wavelengths))
		}
	}

	_, err := grid.ColumnNames()
	if err != nil {
		return nil, err
	}
	return grid, nil
}
