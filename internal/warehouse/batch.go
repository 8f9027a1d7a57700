package warehouse

import (
	"github.com/ClickHouse/ch-go/proto"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
)

// Batch holds column data for a native insert. Column order and names match
// ctd.Columns.
type Batch struct {
	Pressure      *proto.ColFloat64
	Temperature   *proto.ColFloat64
	Salinity      *proto.ColFloat64
	Depth         *proto.ColFloat64
	SourceFile    *proto.ColStr
	Date          *proto.ColNullable[string]
	Time          *proto.ColNullable[string]
	Latitude      *proto.ColNullable[float64]
	Longitude     *proto.ColNullable[float64]
	StationNumber *proto.ColNullable[string]
}

func NewBatch() *Batch {
	return &Batch{
		Pressure:      new(proto.ColFloat64),
		Temperature:   new(proto.ColFloat64),
		Salinity:      new(proto.ColFloat64),
		Depth:         new(proto.ColFloat64),
		SourceFile:    new(proto.ColStr),
		Date:          proto.NewColNullable[string](new(proto.ColStr)),
		Time:          proto.NewColNullable[string](new(proto.ColStr)),
		Latitude:      proto.NewColNullable[float64](new(proto.ColFloat64)),
		Longitude:     proto.NewColNullable[float64](new(proto.ColFloat64)),
		StationNumber: proto.NewColNullable[string](new(proto.ColStr)),
	}
}

func (b *Batch) Reset() {
	b.Pressure.Reset()
	b.Temperature.Reset()
	b.Salinity.Reset()
	b.Depth.Reset()
	b.SourceFile.Reset()
	b.Date.Reset()
	b.Time.Reset()
	b.Latitude.Reset()
	b.Longitude.Reset()
	b.StationNumber.Reset()
}

func (b *Batch) Len() int {
	return b.Pressure.Rows()
}

func (b *Batch) Input() proto.Input {
	return proto.Input{
		{Name: "pressure", Data: b.Pressure},
		{Name: "temperature", Data: b.Temperature},
		{Name: "salinity", Data: b.Salinity},
		{Name: "depth", Data: b.Depth},
		{Name: "sourceFile", Data: b.SourceFile},
		{Name: "date", Data: b.Date},
		{Name: "time", Data: b.Time},
		{Name: "latitude", Data: b.Latitude},
		{Name: "longitude", Data: b.Longitude},
		{Name: "stationNumber", Data: b.StationNumber},
	}
}

// AddRow appends one artifact row. Absent metadata becomes NULL.
func (b *Batch) AddRow(r *ctd.Row) {
	b.Pressure.Append(r.Pressure)
	b.Temperature.Append(r.Temperature)
	b.Salinity.Append(r.Salinity)
	b.Depth.Append(r.Depth)
	b.SourceFile.Append(r.SourceFile)
	b.Date.Append(nullable(r.Date))
	b.Time.Append(nullable(r.Time))
	b.Latitude.Append(nullable(r.Latitude))
	b.Longitude.Append(nullable(r.Longitude))
	b.StationNumber.Append(nullable(r.StationNumber))
}

func nullable[T any](p *T) proto.Nullable[T] {
	if p == nil {
		return proto.Null[T]()
	}
	return proto.NewNullable(*p)
}
