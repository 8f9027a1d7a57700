package ctd

import (
	"bufio"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/pgzip"
)

const (
	readBufferSize = 64 * 1024  // 64KB buffer for plain files
	pgzipBlockSize = 256 * 1024 // pgzip block size
)

// openReader wraps r for reading path, decompressing .gz input. With
// workers > 1 the parallel pgzip reader is used; otherwise the single-stream
// ASM-optimized klauspost gzip reader.
func openReader(r io.Reader, path string, workers int) (io.Reader, func(), error) {
	buffered := bufio.NewReaderSize(r, readBufferSize)
	if !strings.HasSuffix(path, ".gz") {
		return buffered, func() {}, nil
	}

	if workers > 1 {
		gz, err := pgzip.NewReaderN(buffered, pgzipBlockSize, workers)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { gz.Close() }, nil
	}

	gz, err := gzip.NewReader(buffered)
	if err != nil {
		return nil, nil, err
	}
	return gz, func() { gz.Close() }, nil
}
