package convert

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReportName is the file written to the report directory after each run.
const ReportName = "ctd_convert_report.txt"

// WriteReport writes a plain-text run report to dir/ReportName, replacing
// the previous one. runErr is the error Run returned, if any.
func WriteReport(dir string, s *Summary, runErr error) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	path := filepath.Join(dir, ReportName)
	if err := os.WriteFile(path, FormatReport(s, runErr), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// FormatReport renders the run summary in the same layout ctd-convert
// prints at the end of a run.
func FormatReport(s *Summary, runErr error) []byte {
	var b bytes.Buffer

	status := "OK"
	if runErr != nil {
		status = "FAILED: " + runErr.Error()
	}

	fmt.Fprintln(&b, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(&b, "  CTD Conversion Report")
	fmt.Fprintln(&b, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(&b, "Status:          %s\n", status)
	fmt.Fprintf(&b, "Files attempted: %d\n", s.FilesAttempted)
	fmt.Fprintf(&b, "Files skipped:   %d\n", len(s.Errors))
	fmt.Fprintf(&b, "Warnings:        %d\n", len(s.Warnings))
	fmt.Fprintf(&b, "Records:         %d\n", s.Records)
	fmt.Fprintf(&b, "Rows dropped:    %d (missing pressure)\n", s.Stats.DroppedNoPress)
	fmt.Fprintf(&b, "Rows malformed:  %d\n", s.Stats.MalformedRows)
	fmt.Fprintf(&b, "Cells defaulted: %d\n", s.Stats.DefaultedCells)
	if s.Write != nil {
		fmt.Fprintf(&b, "Output:          %s\n", s.Write.Path)
		fmt.Fprintf(&b, "Size:            %.2f MB\n", float64(s.Write.ByteSize)/(1024*1024))
		fmt.Fprintf(&b, "Row groups:      %d\n", s.Write.RowGroups)
	}
	fmt.Fprintf(&b, "Elapsed:         %s\n", s.Elapsed.Round(time.Millisecond))

	if len(s.Files) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Files:")
		for _, f := range s.Files {
			if f.Failed {
				fmt.Fprintf(&b, "  %-40s SKIPPED\n", f.File)
				continue
			}
			fmt.Fprintf(&b, "  %-40s %8d records\n", f.File, f.Records)
		}
	}
	if len(s.Errors) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Errors:")
		for _, e := range s.Errors {
			fmt.Fprintf(&b, "  %s\n", e.Error())
		}
	}
	if len(s.Warnings) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Warnings:")
		for _, w := range s.Warnings {
			fmt.Fprintf(&b, "  %s\n", w.String())
		}
	}
	return b.Bytes()
}
