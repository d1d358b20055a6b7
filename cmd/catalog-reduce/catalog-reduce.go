package main

import (
	"fmt"
	"github.com/spf13/cobra"
	"github.com/willbeason/astro-prep/pkg/catalog"
	"github.com/willbeason/astro-prep/pkg/progress"
	"github.com/willbeason/astro-prep/pkg/tables"
	"log"
	"os"
)

func main() {
	cmd.Flags().String("in", catalog.DefaultInPath, "FITS catalog to reduce")
	cmd.Flags().String("out", catalog.DefaultOutPath, "Parquet file to write")
	cmd.Flags().String("compression", "gzip", fmt.Sprintf("Parquet compression codec, one of %q", tables.Compressions))
	cmd.Flags().Bool("progress", true, "show a progress bar while scanning rows")

	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "catalog-reduce",
	Short:   "reduces the APOGEE allStarLite catalog to unique stars with positions and abundances",
	Args:    cobra.NoArgs,
	Version: "0.1.0",
	RunE:    runE,
}

func runE(cmd *cobra.Command, _ []string) error {
	inPath, err := cmd.Flags().GetString("in")
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	codecName, err := cmd.Flags().GetString("compression")
	if err != nil {
		return err
	}
	showProgress, err := cmd.Flags().GetBool("progress")
	if err != nil {
		return err
	}

	codec, err := tables.ParseCompression(codecName)
	if err != nil {
		return err
	}

	cfg := catalog.Config{
		InPath:      inPath,
		OutPath:     outPath,
		Compression: codec,
	}
	if showProgress {
		cfg.Progress = progress.New()
	}

	result, err := catalog.Run(cfg)
	if err != nil {
		return err
	}
	if cfg.Progress != nil {
		cfg.Progress.Wait()
	}

	log.Printf("read %d rows from %q, wrote %d unique stars with abundances to %q\n",
		result.Read, inPath, result.Written, outPath)

	return nil
}
