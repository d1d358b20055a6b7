package tables

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/google/uuid"
)

var (
	ErrWriteParquet = errors.New("writing parquet")
	ErrReadParquet  = errors.New("reading parquet")
)

type WriteOptions struct {
	Compression compress.Compression
	// Source names the input the table was derived from.
	Source string
}

// Provenance returns the key-value metadata stored alongside every written
// table. Each call carries a fresh run ID.
func Provenance(source string) arrow.Metadata {
	return arrow.NewMetadata(
		[]string{MetadataRunID, MetadataSource, MetadataCreatedBy},
		[]string{uuid.NewString(), source, CreatedBy},
	)
}

// WriteParquet writes t as a single row group to path, replacing any
// existing file.
func WriteParquet(path string, t *Table, opts WriteOptions) error {
	md := Provenance(opts.Source)
	schema, err := t.Schema(&md)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrWriteParquet, path, err)
	}

	record, err := t.Record(Pool, schema)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrWriteParquet, path, err)
	}
	defer record.Release()

	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %q: %w", ErrWriteParquet, path, err)
	}
	// Don't close outFile; parquet handles closing it.

	writer, err := pqarrow.NewFileWriter(
		schema,
		outFile,
		parquet.NewWriterProperties(parquet.WithCompression(opts.Compression)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		_ = outFile.Close()
		return fmt.Errorf("%w: %q: %w", ErrWriteParquet, path, err)
	}

	err = writer.Write(record)
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("%w: %q: %w", ErrWriteParquet, path, err)
	}

	err = writer.Close()
	if err != nil {
		return fmt.Errorf("%w: closing %q: %w", ErrWriteParquet, path, err)
	}

	return nil
}

// ReadParquet loads the whole file at path. The caller releases the table.
func ReadParquet(ctx context.Context, path string) (arrow.Table, error) {
	inFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrReadParquet, path, err)
	}
	defer func() {
		err := inFile.Close()
		if err != nil {
			fmt.Println(err)
		}
	}()

	table, err := pqarrow.ReadTable(ctx, inFile,
		parquet.NewReaderProperties(Pool), pqarrow.ArrowReadProperties{}, Pool)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrReadParquet, path, err)
	}

	return table, nil
}
