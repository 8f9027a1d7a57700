package ctd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_MatchesColumns(t *testing.T) {
	fields := Schema().Fields()
	require.Len(t, fields, len(Columns))

	for i, col := range Columns {
		assert.Equal(t, col.Name, fields[i].Name())
		assert.Equal(t, col.Optional, fields[i].Optional(), col.Name)
		assert.Equal(t, col.Kind, fields[i].Type().Kind(), col.Name)
	}
}

func TestRow_Validate(t *testing.T) {
	ok := Row{Pressure: 10, SourceFile: "a.csv"}
	assert.NoError(t, ok.Validate())

	noFile := Row{Pressure: 10}
	assert.ErrorIs(t, noFile.Validate(), ErrSchemaViolation)

	nan := Row{Pressure: math.NaN(), SourceFile: "a.csv"}
	assert.ErrorIs(t, nan.Validate(), ErrSchemaViolation)
}

func TestRow_RecordCopiesOptionalValues(t *testing.T) {
	row := Row{Pressure: 10, SourceFile: "a.csv", StationNumber: ptr("001"), Latitude: ptr(1.5)}

	rec := row.Record()
	*row.StationNumber = "999"
	*row.Latitude = 0

	require.NotNil(t, rec.StationNumber)
	assert.Equal(t, "001", *rec.StationNumber)
	assert.Equal(t, 1.5, *rec.Latitude)
	assert.Nil(t, rec.Date)
}
