// Package ctd provides CTD (Conductivity-Temperature-Depth) cast processing.
// This package contains the station file parser, the corpus loader and the
// Parquet schema and writer used to build the consolidated CTD dataset.
//
// Pipeline:
//   - Parse: one raw station file -> metadata + observation records
//   - Loader: input directory -> ordered Corpus with per-file fault isolation
//   - Writer: Corpus -> single Parquet artifact (atomic publish)
package ctd

import (
	"errors"
	"fmt"
)

// =============================================================================
// Schema Constants
// =============================================================================

// SchemaVersion is the current output schema version, stored in the
// artifact's key/value metadata under SchemaVersionKey.
const SchemaVersion = 1

// SchemaVersionKey is the Parquet key/value metadata key for SchemaVersion.
const SchemaVersionKey = "ctd.schema_version"

// DefaultRowGroupSize is the number of rows materialized per row group.
const DefaultRowGroupSize = 50_000

// Column names of the CTD readings in raw station files.
const (
	ColPressure    = "CTDPRS"
	ColTemperature = "CTDTMP"
	ColSalinity    = "CTDSAL"
	ColDepth       = "CTDDEPTH"
)

// Metadata markers in the station file header (KEY = value).
const (
	MarkerDate          = "DATE"
	MarkerTime          = "TIME"
	MarkerLatitude      = "LATITUDE"
	MarkerLongitude     = "LONGITUDE"
	MarkerStationNumber = "STNNBR"
)

// EndDataSentinel terminates the data section of a station file.
const EndDataSentinel = "END_DATA"

// =============================================================================
// Record Types
// =============================================================================

// Metadata is the per-cast station information extracted from a file header.
// Every field is independently optional.
type Metadata struct {
	Date          *string
	Time          *string
	Latitude      *float64
	Longitude     *float64
	StationNumber *string
}

// Record is a single CTD observation (one depth bin of a cast).
type Record struct {
	Pressure    float64 // dbar, always finite
	Temperature float64 // deg C, 0 when unparsable
	Salinity    float64 // PSU, 0 when unparsable
	Depth       float64 // m, 0 when unparsable
	SourceFile  string  // base name of the station file
	Metadata
}

// ParseStats holds statistics for parsing a single station file.
type ParseStats struct {
	DataLines      int64 // Lines kept in the data window
	RowsParsed     int64 // Rows emitted as records
	DroppedNoPress int64 // Rows dropped for an unparsable pressure
	MalformedRows  int64 // Rows the CSV reader rejected
	DefaultedCells int64 // Temperature/salinity/depth cells replaced with 0
}

// Add accumulates other into s.
func (s *ParseStats) Add(other ParseStats) {
	s.DataLines += other.DataLines
	s.RowsParsed += other.RowsParsed
	s.DroppedNoPress += other.DroppedNoPress
	s.MalformedRows += other.MalformedRows
	s.DefaultedCells += other.DefaultedCells
}

// FileResult is the outcome of parsing one station file.
type FileResult struct {
	File     string
	Metadata Metadata
	Records  []Record
	Stats    ParseStats
	Bytes    int64
	Warnings []error
}

// =============================================================================
// Errors
// =============================================================================

// Warnings: the file is kept, but the operator should know.
var (
	ErrNoDataHeader      = errors.New("no CTDPRS/CTDTMP column header line found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// Run-fatal conditions.
var (
	ErrInputDirMissing = errors.New("input directory not found")
	ErrNoInputFiles    = errors.New("no input files found")
	ErrNoRecords       = errors.New("no records produced")
	ErrWriteFailed     = errors.New("write failed")
	ErrSchemaViolation = errors.New("record violates output schema")
)

// FileError records a file that was skipped because it could not be read or parsed.
type FileError struct {
	File string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// FileWarning is a non-fatal parse condition attached to a file.
type FileWarning struct {
	File string
	Err  error
}

func (w FileWarning) String() string {
	return fmt.Sprintf("%s: %v", w.File, w.Err)
}
