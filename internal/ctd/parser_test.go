package ctd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stationFile = `CTD,20230115WHPSIODSM
NUMBER_HEADERS = 9
EXPOCODE = 33RR20160208
STNNBR = 001
CASTNO = 1
DATE = 20230115
TIME = 0930
LATITUDE = 39.35
LONGITUDE = -70.5
CTDPRS,CTDPRS_FLAG_W,CTDTMP,CTDTMP_FLAG_W,CTDSAL,CTDSAL_FLAG_W,CTDDEPTH
DBAR,,ITS-90,,PSS-78,,METERS
10.0,2,15.1,2,35.01,2,9.9
20.0,2,14.8,2,35.02,2,19.8
END_DATA
`

func parseString(t *testing.T, content string, opts ParseOptions) *FileResult {
	t.Helper()
	res, err := Parse(strings.NewReader(content), "test.csv", opts)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestParse_StationFile(t *testing.T) {
	res := parseString(t, stationFile, ParseOptions{})

	assert.Empty(t, res.Warnings)
	require.Len(t, res.Records, 2)

	meta := res.Metadata
	require.NotNil(t, meta.StationNumber)
	require.NotNil(t, meta.Date)
	require.NotNil(t, meta.Time)
	require.NotNil(t, meta.Latitude)
	require.NotNil(t, meta.Longitude)
	assert.Equal(t, "001", *meta.StationNumber)
	assert.Equal(t, "20230115", *meta.Date)
	assert.Equal(t, "0930", *meta.Time)
	assert.Equal(t, 39.35, *meta.Latitude)
	assert.Equal(t, -70.5, *meta.Longitude)

	first := res.Records[0]
	assert.Equal(t, 10.0, first.Pressure)
	assert.Equal(t, 15.1, first.Temperature)
	assert.Equal(t, 35.01, first.Salinity)
	assert.Equal(t, 9.9, first.Depth)
	assert.Equal(t, "test.csv", first.SourceFile)
	assert.Equal(t, "001", *first.StationNumber)

	assert.Equal(t, 20.0, res.Records[1].Pressure)
	assert.Equal(t, int64(2), res.Stats.RowsParsed)
	assert.Equal(t, int64(2), res.Stats.DataLines)
	assert.Equal(t, int64(len(stationFile)), res.Bytes)
}

func TestParse_NoDataHeader(t *testing.T) {
	res := parseString(t, "STNNBR = 5\nfoo,bar\n1,2\n", ParseOptions{})

	assert.Empty(t, res.Records)
	require.Len(t, res.Warnings, 1)
	assert.ErrorIs(t, res.Warnings[0], ErrNoDataHeader)
	require.NotNil(t, res.Metadata.StationNumber)
	assert.Equal(t, "5", *res.Metadata.StationNumber)
}

func TestParse_EmptyDataSection(t *testing.T) {
	content := "STNNBR = 7\nCTDPRS,CTDTMP\nDBAR,ITS-90\nEND_DATA\n"
	res := parseString(t, content, ParseOptions{})

	assert.Empty(t, res.Records)
	assert.Empty(t, res.Warnings)
	assert.Zero(t, res.Stats.DataLines)
}

func TestParse_HeaderIsLastLine(t *testing.T) {
	res := parseString(t, "CTDPRS,CTDTMP", ParseOptions{})
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Warnings)
}

func TestParse_DropsRowsWithoutPressure(t *testing.T) {
	content := `CTDPRS,CTDTMP,CTDSAL
DBAR,ITS-90,PSS-78
,15.1,35.0
abc,15.0,35.0
NaN,14.9,35.0
Inf,14.9,35.0
30.0,14.0,34.9
END_DATA
`
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 30.0, res.Records[0].Pressure)
	assert.Equal(t, int64(4), res.Stats.DroppedNoPress)
}

func TestParse_DefaultsUnparsableReadings(t *testing.T) {
	content := `CTDPRS,CTDTMP,CTDSAL,CTDDEPTH
DBAR,ITS-90,PSS-78,METERS
10.0,bad,,5.0
20.0
END_DATA
`
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 0.0, res.Records[0].Temperature)
	assert.Equal(t, 0.0, res.Records[0].Salinity)
	assert.Equal(t, 5.0, res.Records[0].Depth)

	// "20.0" has no delimiter, so it never reaches the row parser.
	assert.Equal(t, int64(1), res.Stats.DataLines)
}

func TestParse_UnbalancedQuoteStaysOnItsLine(t *testing.T) {
	content := `CTDPRS,CTDTMP
DBAR,ITS-90
"10.0,4.5
20.0,4.0
1"5.0,4.2
30.0,3.0
"40.0",2.0
END_DATA
`
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 3)
	assert.Equal(t, 20.0, res.Records[0].Pressure)
	assert.Equal(t, 30.0, res.Records[1].Pressure)
	assert.Equal(t, 40.0, res.Records[2].Pressure)
	assert.Equal(t, int64(2), res.Stats.MalformedRows)
	assert.Zero(t, res.Stats.DroppedNoPress)
}

func TestParse_ShortRow(t *testing.T) {
	content := "CTDPRS,CTDTMP,CTDSAL,CTDDEPTH\nDBAR,ITS-90,PSS-78,METERS\n30.0,12.5\nEND_DATA\n"
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, 30.0, rec.Pressure)
	assert.Equal(t, 12.5, rec.Temperature)
	assert.Equal(t, 0.0, rec.Salinity)
	assert.Equal(t, 0.0, rec.Depth)
	assert.Equal(t, int64(2), res.Stats.DefaultedCells)
}

func TestParse_MissingColumnsDefaultToZero(t *testing.T) {
	content := "CTDPRS,CTDTMP\nDBAR,ITS-90\n10.0,4.5\nEND_DATA\n"
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 4.5, res.Records[0].Temperature)
	assert.Equal(t, 0.0, res.Records[0].Salinity)
	assert.Equal(t, 0.0, res.Records[0].Depth)
}

func TestParse_StopsAtEndData(t *testing.T) {
	content := "CTDPRS,CTDTMP\nDBAR,ITS-90\n10.0,4.5\nEND_DATA\n20.0,4.0\n"
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 10.0, res.Records[0].Pressure)
}

func TestParse_SkipsBlankAndCommentLines(t *testing.T) {
	content := "CTDPRS,CTDTMP\nDBAR,ITS-90\n\n# comment, with comma\n10.0,4.5\n   \ngarbage\n20.0,4.0\nEND_DATA\n"
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 2)
	assert.Equal(t, 20.0, res.Records[1].Pressure)
}

func TestParse_CRLFAndPaddedHeader(t *testing.T) {
	content := "STNNBR = 12\r\n CTDTMP , CTDPRS \r\nITS-90,DBAR\r\n 4.5 , 10.0 \r\nEND_DATA\r\n"
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 10.0, res.Records[0].Pressure)
	assert.Equal(t, 4.5, res.Records[0].Temperature)
	require.NotNil(t, res.Metadata.StationNumber)
	assert.Equal(t, "12", *res.Metadata.StationNumber)
}

func TestParse_ByteOrderMarkHeader(t *testing.T) {
	content := "\ufeffCTDPRS,CTDTMP\nDBAR,ITS-90\n10.0,4.5\nEND_DATA\n"
	res := parseString(t, content, ParseOptions{})

	require.Len(t, res.Records, 1)
	assert.Equal(t, 10.0, res.Records[0].Pressure)
}

func TestParse_MetadataRules(t *testing.T) {
	content := `STNNBR = 1
STNNBR = 2
DATE =
stnnbr = 3
TIME = 12=30
CTDPRS,CTDTMP
DBAR,ITS-90
END_DATA
`
	res := parseString(t, content, ParseOptions{})

	require.NotNil(t, res.Metadata.StationNumber)
	assert.Equal(t, "2", *res.Metadata.StationNumber, "last occurrence wins, keys are case-sensitive")
	assert.Nil(t, res.Metadata.Date, "empty value is absent")
	require.NotNil(t, res.Metadata.Time)
	assert.Equal(t, "12=30", *res.Metadata.Time, "split at the first '='")
	assert.Nil(t, res.Metadata.Latitude)
}

func TestParse_InvalidCoordinate(t *testing.T) {
	content := "LATITUDE = north\nLONGITUDE = -70.5\nCTDPRS,CTDTMP\nDBAR,ITS-90\n10.0,4.5\nEND_DATA\n"

	t.Run("absent by default", func(t *testing.T) {
		res := parseString(t, content, ParseOptions{})

		assert.Nil(t, res.Metadata.Latitude)
		require.NotNil(t, res.Metadata.Longitude)
		require.Len(t, res.Warnings, 1)
		assert.ErrorIs(t, res.Warnings[0], ErrInvalidCoordinate)
		assert.Contains(t, res.Warnings[0].Error(), "LATITUDE")
		require.Len(t, res.Records, 1)
		assert.Nil(t, res.Records[0].Latitude)
	})

	t.Run("zeroed when requested", func(t *testing.T) {
		res := parseString(t, content, ParseOptions{ZeroInvalidCoordinates: true})

		require.NotNil(t, res.Metadata.Latitude)
		assert.Equal(t, 0.0, *res.Metadata.Latitude)
		require.Len(t, res.Warnings, 1)
		assert.ErrorIs(t, res.Warnings[0], ErrInvalidCoordinate)
	})
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestParseFile_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.csv.gz")
	writeGzip(t, path, stationFile)

	for _, workers := range []int{0, 4} {
		res, err := ParseFile(path, ParseOptions{GunzipWorkers: workers})
		require.NoError(t, err, "workers=%d", workers)
		require.Len(t, res.Records, 2)
		assert.Equal(t, "station.csv.gz", res.File)
		assert.Equal(t, "station.csv.gz", res.Records[0].SourceFile)
	}
}

func TestParseFile_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.csv.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip at all"), 0644))

	_, err := ParseFile(path, ParseOptions{})
	require.Error(t, err)
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.csv"), ParseOptions{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
