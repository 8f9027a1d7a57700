// ctd-load - Load the CTD Parquet artifact into ClickHouse
//
// Reads the artifact with parquet-go and inserts it either over the ch-go
// native protocol (LZ4) or through the clickhouse-go driver.
//
// Build: CGO_ENABLED=0 go build -ldflags="-s -w" -o build/ctd-load ./cmd/ctd-load

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/common"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/warehouse"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

func main() {
	cfg := common.DefaultConfig()

	input := flag.String("input", cfg.OutputPath, "Parquet artifact to load (CTD_OUTPUT_PATH)")
	chHost := flag.String("ch-host", cfg.ClickHouseAddr(), "ClickHouse address")
	chDB := flag.String("ch-db", cfg.ClickHouseDatabase, "ClickHouse database")
	chTable := flag.String("ch-table", cfg.ClickHouseTable, "ClickHouse table")
	protocol := flag.String("protocol", "native", "Insert path: native (ch-go) or driver (clickhouse-go)")
	batchSize := flag.Int("batch", warehouse.DefaultBatchSize, "Rows per insert")
	truncate := flag.Bool("truncate", false, "Truncate the table before loading")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ctd-load v%s - CTD Parquet to ClickHouse Loader\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Features:\n")
		fmt.Fprintf(os.Stderr, "  - Native Go Parquet reading (parquet-go)\n")
		fmt.Fprintf(os.Stderr, "  - ch-go native protocol with LZ4, or clickhouse-go batches\n")
		fmt.Fprintf(os.Stderr, "  - Creates the table if it does not exist\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := common.SetupLogging(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	console := common.NewConsole(os.Stderr)

	info, err := ctd.Inspect(*input)
	if err != nil {
		console.Fatalf("Cannot open artifact: %v", err)
	}

	table := warehouse.Table{Database: *chDB, Name: *chTable}

	console.Println("=========================================================")
	console.Printf("CTD ClickHouse Loader v%s", Version)
	console.Println("=========================================================")
	console.Printf("Input:    %s (%d rows, %d row groups)", info.Path, info.NumRows, info.RowGroups)
	console.Printf("Target:   %s @ %s", table.FQN(), *chHost)
	console.Printf("Protocol: %s | Batch: %d", *protocol, *batchSize)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		console.Println("Shutdown requested...")
		cancel()
	}()

	opts := warehouse.NativeOptions{
		Address:  *chHost,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	}

	var ins warehouse.Inserter
	switch *protocol {
	case "native":
		ins, err = warehouse.DialNative(ctx, opts, table)
	case "driver":
		ins, err = warehouse.OpenDriver(ctx, opts, table)
	default:
		console.Fatalf("Unknown protocol %q (want native or driver)", *protocol)
	}
	if err != nil {
		console.Fatalf("ClickHouse connection failed: %v", err)
	}
	defer ins.Close()

	start := time.Now()
	res, err := warehouse.Load(ctx, ins, *input, *batchSize, *truncate, logger)
	if err != nil {
		logger.Error("load failed", "error", err, "rows_loaded", res.Rows)
		ins.Close()
		os.Exit(1)
	}
	elapsed := time.Since(start)

	console.Println()
	console.Println("=========================================================")
	console.Println("Final Statistics")
	console.Println("=========================================================")
	console.Printf("Total Rows:   %d", res.Rows)
	console.Printf("Batches:      %d", res.Batches)
	console.Printf("Elapsed:      %v", elapsed.Round(time.Millisecond))
	console.Printf("Throughput:   %.0f rows/s", float64(res.Rows)/elapsed.Seconds())
	console.Println("=========================================================")
}
