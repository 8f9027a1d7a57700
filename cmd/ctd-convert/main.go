// ctd-convert - Consolidate raw CTD station files into one Parquet artifact
//
// Reads every station file in the input directory, parses metadata and
// readings, and atomically publishes a single columnar file for the web app.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/ctd-convert ./cmd/ctd-convert

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/common"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/convert"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/observability"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	os.Exit(run())
}

func run() int {
	defaults := common.DefaultConfig()

	inputDir := flag.String("input-dir", defaults.InputDir, "Directory of raw station files (CTD_INPUT_DIR)")
	output := flag.String("output", defaults.OutputPath, "Parquet artifact path (CTD_OUTPUT_PATH)")
	rowGroup := flag.Int("row-group-size", defaults.RowGroupSize, "Rows per row group (CTD_ROW_GROUP_SIZE)")
	compression := flag.String("compression", defaults.Compression, "Codec: zstd, gzip or snappy (CTD_COMPRESSION)")
	workers := flag.Int("workers", defaults.Workers, "Parallel file parsers (CTD_WORKERS)")
	extensions := flag.String("extensions", strings.Join(defaults.Extensions, ","), "Input file suffixes (CTD_EXTENSIONS)")
	zeroCoords := flag.Bool("zero-invalid-coords", defaults.ZeroInvalidLoc, "Store unparsable coordinates as 0.0 (CTD_ZERO_INVALID_COORDS)")
	metricsFile := flag.String("metrics-file", defaults.MetricsFile, "Prometheus textfile output (CTD_METRICS_FILE)")
	reportDir := flag.String("report-dir", defaults.ReportDir, "Run report directory (CTD_REPORT_DIR)")
	logLevel := flag.String("log-level", defaults.LogLevel, "debug, info, warn or error (LOG_LEVEL)")
	logFormat := flag.String("log-format", defaults.LogFormat, "text or json (LOG_FORMAT)")
	progress := flag.Bool("progress", false, "Print progress every 2s")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ctd-convert v%s - CTD Station File to Parquet Converter\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Every option defaults to its environment variable.\n\n")
		fmt.Fprintf(os.Stderr, "Exit codes:\n")
		fmt.Fprintf(os.Stderr, "  0  artifact published\n")
		fmt.Fprintf(os.Stderr, "  1  usage or configuration error\n")
		fmt.Fprintf(os.Stderr, "  2  input directory missing\n")
		fmt.Fprintf(os.Stderr, "  3  no input files\n")
		fmt.Fprintf(os.Stderr, "  4  no records produced\n")
		fmt.Fprintf(os.Stderr, "  5  artifact write failed\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Printf("ctd-convert v%s\n", Version)
		return convert.ExitOK
	}

	// Integer env vars replaced by a flag are not checked.
	if err := common.CheckIntEnv(overriddenEnv(flag.CommandLine)...); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return convert.ExitUsage
	}
	cfg := defaults
	cfg.InputDir = *inputDir
	cfg.OutputPath = *output
	cfg.RowGroupSize = *rowGroup
	cfg.Compression = strings.ToLower(*compression)
	cfg.Workers = *workers
	cfg.Extensions = common.ParseList(*extensions)
	cfg.ZeroInvalidLoc = *zeroCoords
	cfg.MetricsFile = *metricsFile
	cfg.ReportDir = *reportDir
	cfg.LogLevel = *logLevel
	cfg.LogFormat = *logFormat
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return convert.ExitUsage
	}

	logger := common.SetupLogging(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	console := common.NewConsole(os.Stderr)

	console.Println("=========================================================")
	console.Printf("CTD Parquet Converter v%s", Version)
	console.Println("=========================================================")
	console.Printf("Input:       %s", cfg.InputDir)
	console.Printf("Output:      %s", cfg.OutputPath)
	console.Printf("Workers:     %d | Row group: %d", cfg.Workers, cfg.RowGroupSize)
	console.Printf("Compression: %s", cfg.Compression)
	console.Printf("CPUs:        %d", runtime.NumCPU())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		console.Println("Shutdown requested...")
		cancel()
	}()

	var stats *common.Stats
	if *progress {
		stats = common.NewStats()
	}

	summary, err := convert.Run(ctx, cfg, convert.Options{
		Logger:  logger,
		Stats:   stats,
		Metrics: observability.NewMetrics(),
		Version: Version,
	})

	if summary != nil {
		printSummary(console, summary)
	}
	if err != nil {
		logger.Error("conversion failed", "error", err)
		return convert.ExitCode(err)
	}
	return convert.ExitOK
}

var flagEnv = map[string]string{
	"row-group-size": "CTD_ROW_GROUP_SIZE",
	"workers":        "CTD_WORKERS",
}

// overriddenEnv lists the integer env vars whose flag was set explicitly.
func overriddenEnv(fs *flag.FlagSet) []string {
	var keys []string
	fs.Visit(func(f *flag.Flag) {
		if key, ok := flagEnv[f.Name]; ok {
			keys = append(keys, key)
		}
	})
	return keys
}

func printSummary(console *log.Logger, s *convert.Summary) {
	console.Println()
	console.Println("=========================================================")
	console.Println("Final Statistics")
	console.Println("=========================================================")
	console.Printf("Files:        %d attempted, %d skipped", s.FilesAttempted, len(s.Errors))
	console.Printf("Warnings:     %d", len(s.Warnings))
	console.Printf("Records:      %d", s.Records)
	console.Printf("Dropped:      %d (no pressure), %d malformed", s.Stats.DroppedNoPress, s.Stats.MalformedRows)
	if s.Write != nil {
		console.Printf("Output:       %s", s.Write.Path)
		console.Printf("Size:         %.2f MB", float64(s.Write.ByteSize)/1024/1024)
		console.Printf("Row groups:   %d", s.Write.RowGroups)
	}
	console.Printf("Elapsed:      %v", s.Elapsed.Round(time.Millisecond))
	console.Println("=========================================================")
}
