package ctd

import (
	"fmt"
	"math"

	"github.com/parquet-go/parquet-go"
)

// Row is the Parquet layout of one observation. Optional station metadata
// is stored as nullable columns; everything else is required.
type Row struct {
	Pressure      float64  `parquet:"pressure"`
	Temperature   float64  `parquet:"temperature"`
	Salinity      float64  `parquet:"salinity"`
	Depth         float64  `parquet:"depth"`
	SourceFile    string   `parquet:"sourceFile"`
	Date          *string  `parquet:"date,optional"`
	Time          *string  `parquet:"time,optional"`
	Latitude      *float64 `parquet:"latitude,optional"`
	Longitude     *float64 `parquet:"longitude,optional"`
	StationNumber *string  `parquet:"stationNumber,optional"`
}

// Column describes one column of the output schema.
type Column struct {
	Name     string
	Kind     parquet.Kind
	Optional bool
}

// Columns is the declared output schema, in file order. The compression
// codec is chosen per artifact (WriterOptions.Compression) and applies to
// every column.
var Columns = []Column{
	{Name: "pressure", Kind: parquet.Double},
	{Name: "temperature", Kind: parquet.Double},
	{Name: "salinity", Kind: parquet.Double},
	{Name: "depth", Kind: parquet.Double},
	{Name: "sourceFile", Kind: parquet.ByteArray},
	{Name: "date", Kind: parquet.ByteArray, Optional: true},
	{Name: "time", Kind: parquet.ByteArray, Optional: true},
	{Name: "latitude", Kind: parquet.Double, Optional: true},
	{Name: "longitude", Kind: parquet.Double, Optional: true},
	{Name: "stationNumber", Kind: parquet.ByteArray, Optional: true},
}

// Schema returns the Parquet schema derived from Row.
func Schema() *parquet.Schema {
	return parquet.SchemaOf(Row{})
}

// Row converts the record to its Parquet layout.
func (r *Record) Row() Row {
	return Row{
		Pressure:      r.Pressure,
		Temperature:   r.Temperature,
		Salinity:      r.Salinity,
		Depth:         r.Depth,
		SourceFile:    r.SourceFile,
		Date:          r.Date,
		Time:          r.Time,
		Latitude:      r.Latitude,
		Longitude:     r.Longitude,
		StationNumber: r.StationNumber,
	}
}

// Record converts a Parquet row back to a Record. Optional values are
// copied, so the row buffer can be reused by the reader.
func (r *Row) Record() Record {
	return Record{
		Pressure:    r.Pressure,
		Temperature: r.Temperature,
		Salinity:    r.Salinity,
		Depth:       r.Depth,
		SourceFile:  r.SourceFile,
		Metadata: Metadata{
			Date:          clone(r.Date),
			Time:          clone(r.Time),
			Latitude:      clone(r.Latitude),
			Longitude:     clone(r.Longitude),
			StationNumber: clone(r.StationNumber),
		},
	}
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Validate checks the row against the schema's required columns.
func (r *Row) Validate() error {
	if r.SourceFile == "" {
		return fmt.Errorf("%w: sourceFile is required", ErrSchemaViolation)
	}
	if math.IsNaN(r.Pressure) || math.IsInf(r.Pressure, 0) {
		return fmt.Errorf("%w: pressure must be finite (%s)", ErrSchemaViolation, r.SourceFile)
	}
	return nil
}
