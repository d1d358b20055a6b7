package tables

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v18/parquet/compress"
)

const (
	ParquetExt = ".parquet"

	// CreatedBy is recorded in the key-value metadata of every written file.
	CreatedBy = "astro-prep"

	MetadataRunID     = "run_id"
	MetadataSource    = "source"
	MetadataCreatedBy = "created_by"
)

var ErrCompression = errors.New("unknown compression codec")

// Compressions lists the codec names accepted by ParseCompression.
var Compressions = []string{"gzip", "snappy", "zstd", "brotli", "none"}

// ParseCompression maps a codec name to its Parquet codec. Matching ignores case.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "none", "uncompressed", "":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed, fmt.Errorf("%w: %q, want one of %q", ErrCompression, name, Compressions)
	}
}
