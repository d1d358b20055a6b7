package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/spf13/cobra"
	"github.com/willbeason/astro-prep/pkg/tables"
	"io"
	"os"
)

func main() {
	cmd.Flags().Bool("columns", false, "list every column with its type")
	cmd.Flags().String("out", "", "output file path (default: stdout)")

	err := cmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var cmd = cobra.Command{
	Use:     "parquet-info FILE...",
	Short:   "Print row and column counts and provenance of Parquet files",
	Args:    cobra.MinimumNArgs(1),
	Version: "0.1.0",
	RunE:    runE,
}

var ErrParquetInfo = errors.New("describing parquet file")

func runE(cmd *cobra.Command, args []string) error {
	listColumns, err := cmd.Flags().GetBool("columns")
	if err != nil {
		return err
	}

	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		outFile, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("%w: creating %q: %w", ErrParquetInfo, outPath, err)
		}
		defer func() {
			err := outFile.Close()
			if err != nil {
				fmt.Println(err)
			}
		}()
		out = outFile
	}

	for _, inPath := range args {
		err = describe(cmd.Context(), out, inPath, listColumns)
		if err != nil {
			return err
		}
	}

	return nil
}

func describe(ctx context.Context, out io.Writer, inPath string, listColumns bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	table, err := tables.ReadParquet(ctx, inPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParquetInfo, err)
	}
	defer table.Release()

	_, err = fmt.Fprintf(out, "%s;rows:%d;columns:%d\n", inPath, table.NumRows(), table.NumCols())
	if err != nil {
		return err
	}

	err = writeMetadata(out, table.Schema().Metadata())
	if err != nil {
		return err
	}

	if !listColumns {
		return nil
	}

	for _, field := range table.Schema().Fields() {
		_, err = fmt.Fprintf(out, "\t%s;%s\n", field.Name, field.Type)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeMetadata(out io.Writer, md arrow.Metadata) error {
	for _, key := range []string{tables.MetadataRunID, tables.MetadataSource, tables.MetadataCreatedBy} {
		i := md.FindKey(key)
		if i < 0 {
			continue
		}
		_, err := fmt.Fprintf(out, "\t%s=%s\n", key, md.Values()[i])
		if err != nil {
			return err
		}
	}
	return nil
}
