// Package convert runs the CTD conversion: load every station file, then
// publish one Parquet artifact.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/common"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/ctd"
	"github.com/KI7MT/ki7mt-ctd-lab/internal/observability"
)

// Exit codes of ctd-convert.
const (
	ExitOK           = 0
	ExitUsage        = 1
	ExitInputMissing = 2
	ExitNoInputFiles = 3
	ExitNoRecords    = 4
	ExitWriteFailed  = 5
)

// Options carries the collaborators of a run. Nil fields get defaults.
type Options struct {
	Logger  *slog.Logger
	Stats   *common.Stats
	Metrics *observability.Metrics
	Version string
}

// Summary is the operator-facing result of a run. It is returned alongside
// ErrNoRecords as well, so skipped files can still be reported.
type Summary struct {
	FilesAttempted int
	Records        int
	Stats          ctd.ParseStats
	Files          []ctd.FileSummary
	Warnings       []ctd.FileWarning
	Errors         []ctd.FileError
	Write          *ctd.WriteSummary
	Elapsed        time.Duration
}

// Run executes one full rebuild of the artifact described by cfg.
func Run(ctx context.Context, cfg *common.Config, opts Options) (*Summary, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NewMetrics()
	}

	summary, err := run(ctx, cfg, opts, logger, metrics)
	if summary != nil {
		summary.Elapsed = time.Since(start)
	}

	metrics.RunDuration.Set(time.Since(start).Seconds())
	if err == nil {
		metrics.RunSucceeded.Set(1)
		metrics.LastSuccess.SetToCurrentTime()
	} else {
		metrics.RunSucceeded.Set(0)
	}
	if cfg.ReportDir != "" && summary != nil {
		if rerr := WriteReport(cfg.ReportDir, summary, err); rerr != nil {
			logger.Warn("report write failed", "dir", cfg.ReportDir, "error", rerr)
		}
	}
	if cfg.MetricsFile != "" {
		if merr := metrics.WriteTextfile(cfg.MetricsFile); merr != nil {
			logger.Warn("metrics export failed", "path", cfg.MetricsFile, "error", merr)
		}
	}

	return summary, err
}

func run(ctx context.Context, cfg *common.Config, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Summary, error) {
	if err := os.MkdirAll(cfg.OutputDir(), 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", ctd.ErrWriteFailed, err)
	}

	writer, err := ctd.NewWriter(cfg.OutputPath, ctd.WriterOptions{
		RowGroupSize: cfg.RowGroupSize,
		Compression:  cfg.Compression,
		Application:  "ctd-convert",
		Version:      opts.Version,
	}, logger)
	if err != nil {
		return nil, err
	}

	loader := ctd.NewLoader(ctd.LoaderOptions{
		Extensions: cfg.Extensions,
		Workers:    cfg.Workers,
		Parse:      ctd.ParseOptions{ZeroInvalidCoordinates: cfg.ZeroInvalidLoc},
	}, logger, opts.Stats)

	if opts.Stats != nil {
		opts.Stats.StartReporter()
	}
	corpus, err := loader.LoadAll(ctx, cfg.InputDir)
	if opts.Stats != nil {
		opts.Stats.StopReporter()
	}
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		FilesAttempted: corpus.FilesAttempted(),
		Records:        len(corpus.Records),
		Stats:          corpus.Stats,
		Files:          corpus.Files,
		Warnings:       corpus.Warnings,
		Errors:         corpus.Errors,
	}
	observeCorpus(metrics, corpus)

	if len(corpus.Records) == 0 {
		return summary, fmt.Errorf("%w: %d file(s) attempted", ctd.ErrNoRecords, summary.FilesAttempted)
	}

	ws, err := writer.Write(ctx, corpus.Records)
	if err != nil {
		return summary, err
	}
	summary.Write = ws
	metrics.ArtifactBytes.Set(float64(ws.ByteSize))
	metrics.RowGroups.Set(float64(ws.RowGroups))

	return summary, nil
}

func observeCorpus(m *observability.Metrics, corpus *ctd.Corpus) {
	warned := make(map[string]bool, len(corpus.Warnings))
	for _, w := range corpus.Warnings {
		warned[w.File] = true
	}
	for _, f := range corpus.Files {
		switch {
		case f.Failed:
			m.FilesProcessed.WithLabelValues("error").Inc()
		case warned[f.File]:
			m.FilesProcessed.WithLabelValues("warning").Inc()
		default:
			m.FilesProcessed.WithLabelValues("parsed").Inc()
		}
	}
	m.Records.Add(float64(len(corpus.Records)))
	m.RowsDropped.WithLabelValues("pressure").Add(float64(corpus.Stats.DroppedNoPress))
	m.RowsDropped.WithLabelValues("malformed").Add(float64(corpus.Stats.MalformedRows))
}

// ExitCode maps a Run error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ctd.ErrInputDirMissing):
		return ExitInputMissing
	case errors.Is(err, ctd.ErrNoInputFiles):
		return ExitNoInputFiles
	case errors.Is(err, ctd.ErrNoRecords):
		return ExitNoRecords
	case errors.Is(err, ctd.ErrWriteFailed), errors.Is(err, ctd.ErrSchemaViolation):
		return ExitWriteFailed
	default:
		return ExitUsage
	}
}
