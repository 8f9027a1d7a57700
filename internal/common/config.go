// Package common provides shared utilities for the KI7MT CTD lab applications.
package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds common configuration for all applications.
type Config struct {
	InputDir       string
	OutputPath     string
	RowGroupSize   int
	Compression    string
	Workers        int
	Extensions     []string
	ZeroInvalidLoc bool
	MetricsFile    string
	ReportDir      string
	LogLevel       string
	LogFormat      string

	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseTable    string
	ClickHouseUser     string
	ClickHousePassword string
}

// Supported output codecs. All are lossless.
var Compressions = []string{"zstd", "gzip", "snappy"}

// DefaultConfig returns configuration with sensible defaults, read from the
// environment without validation.
func DefaultConfig() *Config {
	return &Config{
		InputDir:       getEnv("CTD_INPUT_DIR", "./data/csv"),
		OutputPath:     getEnv("CTD_OUTPUT_PATH", "./public/data/ctd_data.parquet"),
		RowGroupSize:   getEnvInt("CTD_ROW_GROUP_SIZE", 50_000),
		Compression:    strings.ToLower(getEnv("CTD_COMPRESSION", "zstd")),
		Workers:        getEnvInt("CTD_WORKERS", 1),
		Extensions:     ParseList(getEnv("CTD_EXTENSIONS", ".csv,.csv.gz")),
		ZeroInvalidLoc: getEnv("CTD_ZERO_INVALID_COORDS", "false") == "true",
		MetricsFile:    getEnv("CTD_METRICS_FILE", ""),
		ReportDir:      getEnv("CTD_REPORT_DIR", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),

		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "ctd"),
		ClickHouseTable:    getEnv("CLICKHOUSE_TABLE", "observations"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
	}
}

// IntEnvVars are the environment variables that must hold integers.
var IntEnvVars = []string{"CTD_ROW_GROUP_SIZE", "CTD_WORKERS", "CLICKHOUSE_PORT"}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	if err := CheckIntEnv(); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CheckIntEnv rejects a non-integer value in any of IntEnvVars, except the
// ones listed in overridden (typically replaced by a command-line flag).
func CheckIntEnv(overridden ...string) error {
	skip := make(map[string]bool, len(overridden))
	for _, key := range overridden {
		skip[key] = true
	}
	for _, key := range IntEnvVars {
		if skip[key] {
			continue
		}
		if v := os.Getenv(key); v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				return fmt.Errorf("invalid %s: %q", key, v)
			}
		}
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return errors.New("CTD_INPUT_DIR is required")
	}
	if c.OutputPath == "" {
		return errors.New("CTD_OUTPUT_PATH is required")
	}
	if c.RowGroupSize <= 0 {
		return fmt.Errorf("CTD_ROW_GROUP_SIZE must be positive, got %d", c.RowGroupSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("CTD_WORKERS must be positive, got %d", c.Workers)
	}
	if len(c.Extensions) == 0 {
		return errors.New("CTD_EXTENSIONS must list at least one extension")
	}
	if !validCompression(c.Compression) {
		return fmt.Errorf("CTD_COMPRESSION must be one of %s, got %q", strings.Join(Compressions, ", "), c.Compression)
	}
	return nil
}

// OutputDir returns the directory holding the output artifact.
func (c *Config) OutputDir() string {
	return filepath.Dir(c.OutputPath)
}

// ClickHouseAddr returns the ClickHouse native protocol address.
func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouseHost, c.ClickHousePort)
}

// ParseList splits a comma-separated list, dropping empty items.
func ParseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validCompression(name string) bool {
	for _, c := range Compressions {
		if c == name {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
