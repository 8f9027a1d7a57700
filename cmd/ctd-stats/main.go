// ctd-stats - Report the record count of the CTD Parquet artifact
//
// Prints {"recordCount":N} on success. Only the Parquet footer is read.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/common"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
)

// Version can be overridden at build time via -ldflags
var Version = "1.0.0"

type statsResponse struct {
	RecordCount int64 `json:"recordCount"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func main() {
	cfg := common.DefaultConfig()
	path := flag.String("path", cfg.OutputPath, "Parquet artifact (CTD_OUTPUT_PATH)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "ctd-stats v%s - CTD Artifact Record Count\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: %s [-path FILE]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	os.Exit(report(os.Stdout, *path))
}

// report writes the JSON response for path and returns the exit code:
// 0 ok, 2 artifact missing, 1 unreadable.
func report(w io.Writer, path string) int {
	enc := json.NewEncoder(w)

	n, err := ctd.CountRows(path)
	if err != nil {
		enc.Encode(errorResponse{Error: err.Error()})
		if errors.Is(err, fs.ErrNotExist) {
			return 2
		}
		return 1
	}
	enc.Encode(statsResponse{RecordCount: n})
	return 0
}
