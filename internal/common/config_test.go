package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./data/csv", cfg.InputDir)
	assert.Equal(t, "./public/data/ctd_data.parquet", cfg.OutputPath)
	assert.Equal(t, "public/data", cfg.OutputDir())
	assert.Equal(t, 50_000, cfg.RowGroupSize)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, []string{".csv", ".csv.gz"}, cfg.Extensions)
	assert.False(t, cfg.ZeroInvalidLoc)
	assert.Empty(t, cfg.MetricsFile)
	assert.Empty(t, cfg.ReportDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "localhost:9000", cfg.ClickHouseAddr())
	assert.Equal(t, "ctd", cfg.ClickHouseDatabase)
	assert.Equal(t, "observations", cfg.ClickHouseTable)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("CTD_INPUT_DIR", "/srv/ctd/raw")
	t.Setenv("CTD_OUTPUT_PATH", "/srv/www/ctd.parquet")
	t.Setenv("CTD_ROW_GROUP_SIZE", "1000")
	t.Setenv("CTD_COMPRESSION", "SNAPPY")
	t.Setenv("CTD_WORKERS", "8")
	t.Setenv("CTD_EXTENSIONS", " .csv , ,.txt")
	t.Setenv("CTD_ZERO_INVALID_COORDS", "true")
	t.Setenv("CTD_METRICS_FILE", "/var/lib/node_exporter/ctd.prom")
	t.Setenv("CTD_REPORT_DIR", "/var/log/ctd")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("CLICKHOUSE_HOST", "ch.local")
	t.Setenv("CLICKHOUSE_PORT", "9440")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/srv/ctd/raw", cfg.InputDir)
	assert.Equal(t, "/srv/www/ctd.parquet", cfg.OutputPath)
	assert.Equal(t, 1000, cfg.RowGroupSize)
	assert.Equal(t, "snappy", cfg.Compression)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []string{".csv", ".txt"}, cfg.Extensions)
	assert.True(t, cfg.ZeroInvalidLoc)
	assert.Equal(t, "/var/lib/node_exporter/ctd.prom", cfg.MetricsFile)
	assert.Equal(t, "/var/log/ctd", cfg.ReportDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "ch.local:9440", cfg.ClickHouseAddr())
}

func TestLoad_InvalidIntegers(t *testing.T) {
	for _, key := range []string{"CTD_ROW_GROUP_SIZE", "CTD_WORKERS", "CLICKHOUSE_PORT"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "lots")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestCheckIntEnv_Overridden(t *testing.T) {
	t.Setenv("CTD_ROW_GROUP_SIZE", "big")
	t.Setenv("CTD_WORKERS", "many")

	require.NoError(t, CheckIntEnv("CTD_ROW_GROUP_SIZE", "CTD_WORKERS"))

	err := CheckIntEnv("CTD_WORKERS")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CTD_ROW_GROUP_SIZE")
}

func TestLoad_NonPositive(t *testing.T) {
	t.Setenv("CTD_ROW_GROUP_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CTD_ROW_GROUP_SIZE")
}

func TestLoad_UnknownCompression(t *testing.T) {
	t.Setenv("CTD_COMPRESSION", "brotli")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CTD_COMPRESSION")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputDir = ""
	assert.ErrorContains(t, cfg.Validate(), "CTD_INPUT_DIR")

	cfg = DefaultConfig()
	cfg.Extensions = nil
	assert.ErrorContains(t, cfg.Validate(), "CTD_EXTENSIONS")

	cfg = DefaultConfig()
	cfg.Workers = -2
	assert.ErrorContains(t, cfg.Validate(), "CTD_WORKERS")
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, ParseList("a, b,,"))
	assert.Nil(t, ParseList(""))
}
