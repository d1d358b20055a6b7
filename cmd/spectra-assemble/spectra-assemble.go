package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/astro-prep/pkg/progress"
	"github.com/willbeason/astro-prep/pkg/spectra"
	"github.com/willbeason/astro-prep/pkg/tables"
	"log"
	"os"
)

func main() {
	cmd.Flags().String("dir", spectra.DefaultDir, "directory of per-source spectrum files")
	cmd.Flags().String("pattern", spectra.DefaultPattern, "glob matching spectrum files inside --dir")
	cmd.Flags().String("metadata", "", fmt.Sprintf("source parameter table (default: %q inside --dir)", spectra.DefaultMetadataName))
	cmd.Flags().String("key", spectra.DefaultMetadataKey, "source ID column of the metadata table")
	cmd.Flags().String("out", spectra.DefaultOutPath, "Parquet file to write")
	cmd.Flags().String("compression", "gzip", fmt.Sprintf("Parquet compression codec, one of %q", tables.Compressions))
	cmd.Flags().Bool("progress", true, "show a progress bar while reading spectra")

	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "spectra-assemble",
	Short:   "joins a directory of sampled spectra to their source parameters in one Parquet file",
	Args:    cobra.NoArgs,
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, _ []string) error {
	cfg := spectra.Config{}

	var err error
	for name, dst := range map[string]*string{
		"dir":      &cfg.Dir,
		"pattern":  &cfg.Pattern,
		"metadata": &cfg.MetadataPath,
		"key":      &cfg.MetadataKey,
		"out":      &cfg.OutPath,
	} {
		*dst, err = cmd.Flags().GetString(name)
		if err != nil {
			return err
		}
	}

	codecName, err := cmd.Flags().GetString("compression")
	if err != nil {
		return err
	}
	cfg.Compression, err = tables.ParseCompression(codecName)
	if err != nil {
		return err
	}

	showProgress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return err
	}
	if showProgress {
		cfg.Progress = progress.New()
	}

	result, err := spectra.Run(cfg)
	if err != nil {
		return err
	}
	if cfg.Progress != nil {
		cfg.Progress.Wait()
	}

	log.Printf("joined %d of %d spectra (%d samples each) to %d metadata rows, wrote %d rows to %q\n",
		result.Joined, result.Spectra, result.Samples, result.Metadata, result.Joined, cfg.OutPath)

	return nil
}
