// Package ctd provides CTD cast processing utilities.
// This file contains the station file parser.
package ctd

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// =============================================================================
// Parse Options
// =============================================================================

// ParseOptions tunes how a station file is read and interpreted.
type ParseOptions struct {
	// ZeroInvalidCoordinates records an unparsable LATITUDE/LONGITUDE as 0.0
	// instead of leaving it absent. Off by default: 0.0 is a real position.
	ZeroInvalidCoordinates bool

	// GunzipWorkers selects the decompressor for .gz input: 0 or 1 streams
	// through klauspost/compress/gzip, >1 uses pgzip with that many blocks
	// in flight.
	GunzipWorkers int
}

// =============================================================================
// Station File Parsing
// =============================================================================

// ParseFile opens and parses a station file. Files ending in .gz are
// decompressed on the fly.
func ParseFile(path string, opts ParseOptions) (*FileResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, closeFn, err := openReader(f, path, opts.GunzipWorkers)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer closeFn()

	return Parse(reader, filepath.Base(path), opts)
}

// Parse reads one station file and returns its metadata and records.
//
// Malformed content never fails the call: a file without a CTDPRS/CTDTMP
// header line yields no records and an ErrNoDataHeader warning, and a file
// whose data section is empty yields no records and no warning. The error
// return is reserved for read failures.
func Parse(r io.Reader, filename string, opts ParseOptions) (*FileResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	res := &FileResult{File: filename, Bytes: int64(len(data))}
	lines := strings.Split(string(data), "\n")

	headerIdx := scanHeader(lines, res, opts)
	if headerIdx < 0 {
		res.Warnings = append(res.Warnings, ErrNoDataHeader)
		return res, nil
	}

	columns := splitHeader(lines[headerIdx])
	body := dataWindow(lines, headerIdx+2)
	res.Stats.DataLines = int64(len(body))
	if len(body) == 0 {
		return res, nil
	}

	res.Records = parseRows(body, columns, filename, res.Metadata, &res.Stats)
	return res, nil
}

// scanHeader walks the file top-down collecting metadata markers until the
// column header line. Returns the header line index, or -1 if there is none.
func scanHeader(lines []string, res *FileResult, opts ParseOptions) int {
	for i, raw := range lines {
		line := strings.TrimSpace(raw)

		if key, value, ok := splitMarker(line); ok {
			switch key {
			case MarkerDate:
				res.Metadata.Date = optionalString(value)
				continue
			case MarkerTime:
				res.Metadata.Time = optionalString(value)
				continue
			case MarkerStationNumber:
				res.Metadata.StationNumber = optionalString(value)
				continue
			case MarkerLatitude:
				res.Metadata.Latitude = parseCoordinate(value, key, res, opts)
				continue
			case MarkerLongitude:
				res.Metadata.Longitude = parseCoordinate(value, key, res, opts)
				continue
			}
		}

		if strings.Contains(line, ColPressure) && strings.Contains(line, ColTemperature) {
			return i
		}
	}
	return -1
}

// splitMarker splits a "KEY = value" line at the first '='.
func splitMarker(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, '=')
	if idx <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// parseCoordinate applies the coordinate policy: empty means absent, an
// unparsable value is absent (or 0.0 with ZeroInvalidCoordinates) and is
// reported as a warning.
func parseCoordinate(value, key string, res *FileResult, opts ParseOptions) *float64 {
	if value == "" {
		return nil
	}
	if v, ok := parseReading(value); ok {
		return &v
	}

	res.Warnings = append(res.Warnings, fmt.Errorf("%w: %s = %q", ErrInvalidCoordinate, key, value))
	if opts.ZeroInvalidCoordinates {
		zero := 0.0
		return &zero
	}
	return nil
}

func splitHeader(line string) []string {
	columns := strings.Split(line, ",")
	for i := range columns {
		columns[i] = strings.TrimSpace(columns[i])
	}
	return columns
}

// dataWindow returns the trimmed data lines from start up to END_DATA,
// skipping blank lines, comments and lines without a delimiter.
func dataWindow(lines []string, start int) []string {
	var body []string
	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, EndDataSentinel) {
			break
		}
		if line == "" || strings.HasPrefix(line, "#") || !strings.Contains(line, ",") {
			continue
		}
		body = append(body, line)
	}
	return body
}

// =============================================================================
// Row Parsing
// =============================================================================

func parseRows(body []string, columns []string, filename string, meta Metadata, stats *ParseStats) []Record {
	keys := NewKeyResolver(columns)

	records := make([]Record, 0, len(body))
	for _, line := range body {
		row, ok := splitRow(line)
		if !ok {
			stats.MalformedRows++
			continue
		}

		pressure, ok := readingAt(keys, row, ColPressure)
		if !ok {
			stats.DroppedNoPress++
			continue
		}

		rec := Record{
			Pressure:   pressure,
			SourceFile: filename,
			Metadata:   meta,
		}
		rec.Temperature = defaultedReading(keys, row, ColTemperature, stats)
		rec.Salinity = defaultedReading(keys, row, ColSalinity, stats)
		rec.Depth = defaultedReading(keys, row, ColDepth, stats)

		records = append(records, rec)
		stats.RowsParsed++
	}

	return records
}

// splitRow parses one data line as a CSV record. Each line gets its own
// reader, so an unbalanced quote is confined to the line it appears on.
func splitRow(line string) ([]string, bool) {
	csvReader := csv.NewReader(strings.NewReader(line))
	csvReader.FieldsPerRecord = -1 // Rows may be shorter or longer than the header
	csvReader.TrimLeadingSpace = true

	row, err := csvReader.Read()
	if err != nil {
		return nil, false
	}
	return row, true
}

func readingAt(keys *KeyResolver, row []string, column string) (float64, bool) {
	s, ok := keys.Lookup(row, column)
	if !ok {
		return 0, false
	}
	return parseReading(s)
}

func defaultedReading(keys *KeyResolver, row []string, column string, stats *ParseStats) float64 {
	v, ok := readingAt(keys, row, column)
	if !ok {
		stats.DefaultedCells++
		return 0
	}
	return v
}

// parseReading parses a finite float. NaN and Inf count as unparsable.
func parseReading(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
