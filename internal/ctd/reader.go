package ctd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
)

// ArtifactInfo is what the footer of an artifact says about it.
type ArtifactInfo struct {
	Path          string
	NumRows       int64
	RowGroups     int
	ByteSize      int64
	SchemaVersion int
	CreatedBy     string
}

func openArtifact(path string) (*os.File, *parquet.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, 0, err
	}

	pf, err := parquet.OpenFile(f, info.Size(),
		parquet.SkipPageIndex(true),
		parquet.SkipBloomFilters(true),
	)
	if err != nil {
		f.Close()
		return nil, nil, 0, fmt.Errorf("parquet open %s: %w", path, err)
	}
	return f, pf, info.Size(), nil
}

// CountRows returns the number of rows in the artifact. Only the footer is
// read; no column data is decoded.
func CountRows(path string) (int64, error) {
	f, pf, _, err := openArtifact(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return pf.NumRows(), nil
}

// Inspect reads the artifact footer.
func Inspect(path string) (*ArtifactInfo, error) {
	f, pf, size, err := openArtifact(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info := &ArtifactInfo{
		Path:      path,
		NumRows:   pf.NumRows(),
		RowGroups: len(pf.RowGroups()),
		ByteSize:  size,
		CreatedBy: pf.Metadata().CreatedBy,
	}
	if v, ok := pf.Lookup(SchemaVersionKey); ok {
		info.SchemaVersion, _ = strconv.Atoi(v)
	}
	return info, nil
}

// ReadArtifact streams the artifact's rows to fn in batches of up to
// batchSize rows, in file order. The slice passed to fn is reused.
func ReadArtifact(path string, batchSize int, fn func([]Row) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	f, pf, _, err := openArtifact(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	rows := make([]Row, batchSize)
	for {
		n, err := reader.Read(rows)
		if n > 0 {
			if ferr := fn(rows[:n]); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if n == 0 {
			return nil
		}
	}
}

// ReadAllRecords loads the whole artifact back into records.
func ReadAllRecords(path string) ([]Record, error) {
	var out []Record
	err := ReadArtifact(path, 1000, func(rows []Row) error {
		for i := range rows {
			out = append(out, rows[i].Record())
		}
		return nil
	})
	return out, err
}
