// Package spectra assembles per-source sampled spectra into one table joined
// to the parameters of each source.
package spectra

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/vbauerster/mpb"
	"github.com/willbeason/astro-prep/pkg/metadata"
	"github.com/willbeason/astro-prep/pkg/progress"
	"github.com/willbeason/astro-prep/pkg/tables"
)

const (
	DefaultDir          = "./raw_xp_spectra"
	DefaultPattern      = "*.xml"
	DefaultMetadataName = "Gaia spectra candidates-result.vot.gz"
	DefaultMetadataKey  = "SOURCE_ID"
	DefaultOutPath      = "100_gaia_xp_spectra.parquet"
)

var ErrAssemble = errors.New("assembling spectra")

type Config struct {
	Dir     string
	Pattern string

	// MetadataPath defaults to DefaultMetadataName inside Dir.
	MetadataPath string
	MetadataKey  string

	OutPath     string
	Compression compress.Compression

	// Progress is optional.
	Progress *mpb.Progress
}

func (cfg *Config) setDefaults() {
	if cfg.Pattern == "" {
		cfg.Pattern = DefaultPattern
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = filepath.Join(cfg.Dir, DefaultMetadataName)
	}
	if cfg.MetadataKey == "" {
		cfg.MetadataKey = DefaultMetadataKey
	}
}

type Result struct {
	Spectra  int
	Metadata int
	Joined   int
	Samples  int
}

// Run reads every spectrum in cfg.Dir, joins them to the metadata table and
// writes the result to cfg.OutPath.
func Run(cfg Config) (Result, error) {
	cfg.setDefaults()

	paths, err := Glob(cfg.Dir, cfg.Pattern)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAssemble, err)
	}
	if len(paths) == 0 {
		return Result{}, fmt.Errorf("%w: no files in %q match %q", ErrAssemble, cfg.Dir, cfg.Pattern)
	}

	spectra, err := readAll(paths, cfg.Progress, filepath.Base(cfg.Dir))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	grid, err := CheckGrid(spectra)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	meta, err := metadata.ReadFile(cfg.MetadataPath)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	joined, err := Join(meta, cfg.MetadataKey, spectra, grid)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	err = tables.WriteParquet(cfg.OutPath, joined, tables.WriteOptions{
		Compression: cfg.Compression,
		Source:      cfg.Dir,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAssemble, err)
	}

	return Result{
		Spectra:  len(spectra),
		Metadata: meta.NumRows(),
		Joined:   joined.NumRows(),
		Samples:  len(grid),
	}, nil
}

func readAll(paths []string, p *mpb.Progress, name string) ([]*Spectrum, error) {
	bar := progress.AddCounter(p, name, int64(len(paths)))

	spectra := make([]*Spectrum, 0, len(paths))
	for _, path := range paths {
		s, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		spectra = append(spectra, s)

		bar.Incr()
	}
	bar.Done(int64(len(spectra)))

	return spectra, nil
}
