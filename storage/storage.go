// Package storage writes the feature table to disk and reads it back.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/TFMV/featgen/table"
)

// Format selects the on-disk encoding.
type Format string

const (
	// CSV is comma-delimited text with a header row and no index column.
	CSV Format = "csv"
	// Arrow is the Arrow IPC file format.
	Arrow Format = "arrow"
	// Parquet is snappy-compressed Parquet.
	Parquet Format = "parquet"
)

const (
	// DataDir and ProcessedDir are joined under the project root.
	DataDir      = "data"
	ProcessedDir = "processed"
	// BaseName is the output file name without extension.
	BaseName = "sample_feature"
)

// ErrUnknownFormat is returned for a format name that is not csv, arrow or parquet.
var ErrUnknownFormat = errors.New("unknown format")

// ParseFormat maps a case-insensitive name to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Arrow, Parquet:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// OutputPath returns <root>/data/processed/sample_feature.<ext>.
func OutputPath(root string, f Format) string {
	return filepath.Join(root, DataDir, ProcessedDir, BaseName+f.Extension())
}

// countingWriter tracks bytes written. It has no Close method, so encoders
// that close their sink leave the file open.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Save writes t to path, creating missing parent directories and replacing
// any existing file. It returns the number of bytes written. A failed write
// leaves whatever was written in place.
func Save(t *table.Table, path string, f Format) (int64, error) {
	if _, err := ParseFormat(string(f)); err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %q: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	cw := &countingWriter{w: file}
	switch f {
	case CSV:
		err = writeCSV(cw, t.Record())
	case Arrow:
		err = writeIPC(cw, t.Record())
	default:
		err = writeParquet(cw, t.Record())
	}
	if err != nil {
		return cw.n, err
	}

	if err := file.Close(); err != nil {
		return cw.n, fmt.Errorf("failed to close file %q: %w", path, err)
	}
	return cw.n, nil
}

func writeCSV(w io.Writer, rec arrow.Record) error {
	writer := csv.NewWriter(w, rec.Schema(), csv.WithComma(','), csv.WithHeader(true))
	// Write emits the header even for an empty record.
	if err := writer.Write(rec); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return writer.Error()
}

func writeIPC(w io.Writer, rec arrow.Record) error {
	writer, err := ipc.NewFileWriter(
		w,
		ipc.WithSchema(rec.Schema()),
		ipc.WithAllocator(table.Pool),
	)
	if err != nil {
		return fmt.Errorf("failed to create Arrow file writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write record to Arrow file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close Arrow file writer: %w", err)
	}
	return nil
}

func writeParquet(w io.Writer, rec arrow.Record) error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Snappy),
		parquet.WithAllocator(table.Pool),
	)
	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, pqarrow.NewArrowWriterProperties(pqarrow.WithAllocator(table.Pool)))
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write parquet record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// Load reads a file written by Save. The caller must Release the result.
func Load(path string, f Format) (*table.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	switch f {
	case CSV:
		return readCSV(file)
	case Arrow:
		return readIPC(file)
	case Parquet:
		return readParquet(file)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

func readCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r, table.Schema,
		csv.WithComma(','),
		csv.WithHeader(true),
		csv.WithChunk(-1),
		csv.WithAllocator(table.Pool),
	)
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		return table.New(nil), nil
	}
	t, err := table.FromRecord(reader.Record())
	if err != nil {
		return nil, err
	}
	if err := reader.Err(); err != nil {
		t.Release()
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return t, nil
}

func readIPC(r ipc.ReadAtSeeker) (*table.Table, error) {
	reader, err := ipc.NewFileReader(r, ipc.WithAllocator(table.Pool))
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	if reader.NumRecords() == 0 {
		return table.New(nil), nil
	}
	rec, err := reader.RecordAt(0)
	if err != nil {
		return nil, fmt.Errorf("failed to read record 0 from file: %w", err)
	}
	defer rec.Release()
	return table.FromRecord(rec)
}

func readParquet(r parquet.ReaderAtSeeker) (*table.Table, error) {
	tbl, err := pqarrow.ReadTable(context.Background(), r, parquet.NewReaderProperties(table.Pool),
		pqarrow.ArrowReadProperties{}, table.Pool)
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet table: %w", err)
	}
	defer tbl.Release()

	if tbl.NumRows() == 0 {
		return table.New(nil), nil
	}

	cols := make([]arrow.Array, 0, tbl.NumCols())
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()
	for i := 0; i < int(tbl.NumCols()); i++ {
		col, err := array.Concatenate(tbl.Column(i).Data().Chunks(), table.Pool)
		if err != nil {
			return nil, fmt.Errorf("failed to concatenate column %s: %w", tbl.Schema().Field(i).Name, err)
		}
		cols = append(cols, col)
	}

	rec := array.NewRecord(tbl.Schema(), cols, tbl.NumRows())
	defer rec.Release()
	return table.FromRecord(rec)
}
