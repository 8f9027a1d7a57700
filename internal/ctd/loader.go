package ctd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/KI7MT/ki7mt-ctd-lab/internal/common"
)

// DefaultExtensions are the raw station file suffixes picked up by the loader.
var DefaultExtensions = []string{".csv", ".csv.gz"}

// LoaderOptions configures file discovery and parsing.
type LoaderOptions struct {
	Extensions []string     // File suffixes to load (default: DefaultExtensions)
	Workers    int          // Parallel file parsers (<= 1: sequential)
	Parse      ParseOptions // Passed through to ParseFile
}

// FileSummary is the per-file line of the run summary.
type FileSummary struct {
	File    string
	Records int
	Bytes   int64
	Stats   ParseStats
	Failed  bool
}

// Corpus is the ordered set of records for one run: filename order, then
// in-file order.
type Corpus struct {
	Records  []Record
	Files    []FileSummary
	Errors   []FileError
	Warnings []FileWarning
	Stats    ParseStats
}

// FilesAttempted returns the number of files the loader tried to parse.
func (c *Corpus) FilesAttempted() int {
	return len(c.Files)
}

// Loader discovers station files and parses them into a Corpus.
type Loader struct {
	opts   LoaderOptions
	logger *slog.Logger
	stats  *common.Stats

	parseFn func(path string, opts ParseOptions) (*FileResult, error)
}

// NewLoader creates a Loader. stats may be nil.
func NewLoader(opts LoaderOptions, logger *slog.Logger, stats *common.Stats) *Loader {
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultExtensions
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	// Sequential file parsing leaves the cores to parallel gunzip.
	if opts.Workers == 1 && opts.Parse.GunzipWorkers == 0 {
		opts.Parse.GunzipWorkers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		opts:    opts,
		logger:  logger,
		stats:   stats,
		parseFn: ParseFile,
	}
}

// Discover lists the station files in dir, sorted by name.
func (l *Loader) Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputDirMissing, dir)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInputDirMissing, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !l.matches(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (l *Loader) matches(name string) bool {
	for _, ext := range l.opts.Extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

type fileOutcome struct {
	result *FileResult
	err    error
}

// LoadAll parses every station file in dir. Per-file failures are collected
// in Corpus.Errors and never abort the run. Returns ErrInputDirMissing or
// ErrNoInputFiles for an unusable input directory; an empty corpus is not an
// error at this level.
func (l *Loader) LoadAll(ctx context.Context, dir string) (*Corpus, error) {
	files, err := l.Discover(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s (extensions: %s)", ErrNoInputFiles, dir, strings.Join(l.opts.Extensions, ", "))
	}

	l.logger.Info("processing station files", "files", len(files), "workers", l.opts.Workers)

	// Results are stored by discovery index, so the corpus order never
	// depends on which worker finishes first.
	outcomes := make([]fileOutcome, len(files))
	if l.opts.Workers == 1 {
		for i, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = l.parseIsolated(path)
			l.record(outcomes[i])
		}
	} else {
		if err := l.parseParallel(ctx, files, outcomes); err != nil {
			return nil, err
		}
	}

	return l.merge(files, outcomes), nil
}

func (l *Loader) parseParallel(ctx context.Context, files []string, outcomes []fileOutcome) error {
	sem := make(chan struct{}, l.opts.Workers)
	var wg sync.WaitGroup

	for i, path := range files {
		if ctx.Err() != nil {
			break
		}

		sem <- struct{}{} // Acquire
		wg.Add(1)

		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }() // Release
			outcomes[i] = l.parseIsolated(path)
			l.record(outcomes[i])
		}(i, path)
	}

	wg.Wait()
	return ctx.Err()
}

// parseIsolated runs the parser for one file behind a failure boundary:
// errors and panics become a FileError for that file only.
func (l *Loader) parseIsolated(path string) (out fileOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = fileOutcome{err: fmt.Errorf("parser panic: %v", r)}
		}
	}()

	res, err := l.parseFn(path, l.opts.Parse)
	if err == nil && res == nil {
		err = errors.New("parser returned no result")
	}
	return fileOutcome{result: res, err: err}
}

func (l *Loader) record(o fileOutcome) {
	if l.stats == nil {
		return
	}
	if o.err != nil {
		l.stats.AddFailure()
		return
	}
	l.stats.AddFile(uint64(len(o.result.Records)), uint64(o.result.Bytes))
}

// merge concatenates outcomes in file order and logs each file.
func (l *Loader) merge(files []string, outcomes []fileOutcome) *Corpus {
	corpus := &Corpus{}

	total := 0
	for _, o := range outcomes {
		if o.result != nil {
			total += len(o.result.Records)
		}
	}
	corpus.Records = make([]Record, 0, total)

	for i, o := range outcomes {
		name := filepath.Base(files[i])

		if o.err != nil {
			corpus.Errors = append(corpus.Errors, FileError{File: name, Err: o.err})
			corpus.Files = append(corpus.Files, FileSummary{File: name, Failed: true})
			l.logger.Error("station file skipped", "file", name, "error", o.err)
			continue
		}

		res := o.result
		for _, w := range res.Warnings {
			corpus.Warnings = append(corpus.Warnings, FileWarning{File: name, Err: w})
			l.logger.Warn("station file warning", "file", name, "warning", w)
		}

		corpus.Records = append(corpus.Records, res.Records...)
		corpus.Stats.Add(res.Stats)
		corpus.Files = append(corpus.Files, FileSummary{
			File:    name,
			Records: len(res.Records),
			Bytes:   res.Bytes,
			Stats:   res.Stats,
		})
		l.logger.Info("station file parsed",
			"file", name,
			"records", len(res.Records),
			"dropped", res.Stats.DroppedNoPress,
			"malformed", res.Stats.MalformedRows,
		)
	}

	return corpus
}
