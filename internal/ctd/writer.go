package ctd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// WriterOptions configures the Parquet artifact.
type WriterOptions struct {
	RowGroupSize int    // Rows per row group (default: DefaultRowGroupSize)
	Compression  string // "zstd" (default), "gzip" or "snappy"
	Application  string // Recorded in the created_by footer field
	Version      string
}

// WriteSummary describes a published artifact.
type WriteSummary struct {
	Path        string
	RecordCount int64
	RowGroups   int
	ByteSize    int64
	Elapsed     time.Duration
}

// Writer serializes a corpus to a single Parquet file. It is a single serial
// consumer; concurrent writes to the same path are not supported.
type Writer struct {
	path   string
	opts   WriterOptions
	codec  compress.Codec
	logger *slog.Logger

	stat func(name string) (os.FileInfo, error)
}

// NewWriter creates a writer for path.
func NewWriter(path string, opts WriterOptions, logger *slog.Logger) (*Writer, error) {
	if opts.RowGroupSize <= 0 {
		opts.RowGroupSize = DefaultRowGroupSize
	}
	if opts.Compression == "" {
		opts.Compression = "zstd"
	}
	if opts.Application == "" {
		opts.Application = "ctd-convert"
	}
	codec, err := CodecFor(opts.Compression)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{path: path, opts: opts, codec: codec, logger: logger, stat: os.Stat}, nil
}

// CodecFor maps a codec name to its lossless Parquet codec.
func CodecFor(name string) (compress.Codec, error) {
	switch name {
	case "zstd":
		return &parquet.Zstd, nil
	case "gzip":
		return &parquet.Gzip, nil
	case "snappy":
		return &parquet.Snappy, nil
	default:
		return nil, fmt.Errorf("unsupported compression %q", name)
	}
}

// Write serializes records in order and atomically publishes the artifact.
//
// Rows are written to a temporary file next to the target, which is closed,
// synced and renamed over the target only after the footer is written. On
// any failure the temporary file is removed and an existing artifact at the
// target path is left untouched. Every returned error wraps ErrWriteFailed,
// ErrSchemaViolation or ErrNoRecords.
func (w *Writer) Write(ctx context.Context, records []Record) (*WriteSummary, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	start := time.Now()

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ErrWriteFailed, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %v", ErrWriteFailed, err)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	rowGroups, err := w.writeRows(ctx, tmp, records)
	if err != nil {
		return nil, err
	}

	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("%w: sync: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %v", ErrWriteFailed, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return nil, fmt.Errorf("%w: chmod: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		return nil, fmt.Errorf("%w: rename: %v", ErrWriteFailed, err)
	}
	published = true

	summary := &WriteSummary{
		Path:        w.path,
		RecordCount: int64(len(records)),
		RowGroups:   rowGroups,
		Elapsed:     time.Since(start),
	}
	// The artifact is already published; a failed stat only loses the size.
	if info, err := w.stat(w.path); err != nil {
		w.logger.Warn("artifact size unavailable", "path", w.path, "error", err)
	} else {
		summary.ByteSize = info.Size()
	}
	w.logger.Info("artifact written",
		"path", w.path,
		"records", summary.RecordCount,
		"row_groups", summary.RowGroups,
		"bytes", summary.ByteSize,
		"compression", w.opts.Compression,
	)
	return summary, nil
}

// writeRows streams records into f, flushing one row group per RowGroupSize rows.
func (w *Writer) writeRows(ctx context.Context, f *os.File, records []Record) (int, error) {
	pw := parquet.NewGenericWriter[Row](f,
		parquet.Compression(w.codec),
		parquet.CreatedBy(w.opts.Application, w.opts.Version, ""),
		parquet.KeyValueMetadata(SchemaVersionKey, strconv.Itoa(SchemaVersion)),
	)

	batchSize := w.opts.RowGroupSize
	if len(records) < batchSize {
		batchSize = len(records)
	}
	batch := make([]Row, 0, batchSize)
	rowGroups := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("%w: write rows: %v", ErrWriteFailed, err)
		}
		if err := pw.Flush(); err != nil {
			return fmt.Errorf("%w: flush row group: %v", ErrWriteFailed, err)
		}
		rowGroups++
		batch = batch[:0]
		return nil
	}

	for i := range records {
		row := records[i].Row()
		if err := row.Validate(); err != nil {
			return 0, err
		}
		batch = append(batch, row)

		if len(batch) >= w.opts.RowGroupSize {
			if err := ctx.Err(); err != nil {
				return 0, fmt.Errorf("%w: %v", ErrWriteFailed, err)
			}
			if err := flush(); err != nil {
				return 0, err
			}
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}

	if err := pw.Close(); err != nil {
		return 0, fmt.Errorf("%w: close parquet writer: %v", ErrWriteFailed, err)
	}
	return rowGroups, nil
}
