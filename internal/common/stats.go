package common

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultReportInterval is how often the progress reporter prints.
const DefaultReportInterval = 2 * time.Second

// Stats holds atomic counters for run telemetry.
type Stats struct {
	FilesProcessed uint64 // Files parsed (with or without records)
	FilesFailed    uint64 // Files skipped with a FileError
	RecordsParsed  uint64 // Records admitted into the corpus
	BytesRead      uint64 // Raw bytes read from station files

	clock     clockwork.Clock
	out       io.Writer
	interval  time.Duration
	startTime time.Time

	// Internal state for reporter
	running   atomic.Bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	lastRows  uint64
	lastTime  time.Time
	filesSeen uint64
}

// NewStats creates a Stats instance on the real clock writing to stderr.
func NewStats() *Stats {
	return NewStatsWithClock(clockwork.NewRealClock(), os.Stderr)
}

// NewStatsWithClock creates a Stats instance with an injected clock and
// progress output, so tests can drive the reporter deterministically.
func NewStatsWithClock(clock clockwork.Clock, out io.Writer) *Stats {
	return &Stats{
		clock:     clock,
		out:       out,
		interval:  DefaultReportInterval,
		startTime: clock.Now(),
	}
}

// SetInterval changes the reporter interval. Must be called before StartReporter.
func (s *Stats) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// AddFile records one parsed file with its record and byte counts.
func (s *Stats) AddFile(records, bytes uint64) {
	atomic.AddUint64(&s.FilesProcessed, 1)
	atomic.AddUint64(&s.RecordsParsed, records)
	atomic.AddUint64(&s.BytesRead, bytes)
}

// AddFailure records one file skipped with an error.
func (s *Stats) AddFailure() {
	atomic.AddUint64(&s.FilesFailed, 1)
}

// Files returns the number of files attempted so far.
func (s *Stats) Files() uint64 {
	return atomic.LoadUint64(&s.FilesProcessed) + atomic.LoadUint64(&s.FilesFailed)
}

// Records returns the number of records admitted so far.
func (s *Stats) Records() uint64 {
	return atomic.LoadUint64(&s.RecordsParsed)
}

// Bytes returns the number of raw bytes read so far.
func (s *Stats) Bytes() uint64 {
	return atomic.LoadUint64(&s.BytesRead)
}

// Elapsed returns the time since the Stats were created.
func (s *Stats) Elapsed() time.Duration {
	return s.clock.Since(s.startTime)
}

// StartReporter starts a background goroutine that prints progress every interval.
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}

	s.running.Store(true)
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.lastTime = s.clock.Now()
	s.lastRows = s.Records()

	ticker := s.clock.NewTicker(s.interval)
	go s.reporterLoop(ticker)
}

// StopReporter stops the background reporter and waits for it to exit.
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	close(s.stopCh)
	<-s.doneCh
}

func (s *Stats) reporterLoop(ticker clockwork.Ticker) {
	defer close(s.doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.Chan():
			s.printStatus()
		}
	}
}

// printStatus prints one progress line. Silent when nothing changed.
func (s *Stats) printStatus() {
	now := s.clock.Now()
	elapsed := now.Sub(s.lastTime).Seconds()
	if elapsed < 0.001 {
		return
	}

	files := s.Files()
	rows := s.Records()
	if files == s.filesSeen && rows == s.lastRows {
		return
	}

	rps := float64(rows-s.lastRows) / elapsed
	fmt.Fprintf(s.out, "[Progress] Files: %d | Records: %d | Rate: %.0f rec/s | Read: %.2f MB\n",
		files,
		rows,
		rps,
		float64(s.Bytes())/(1024*1024),
	)

	s.filesSeen = files
	s.lastRows = rows
	s.lastTime = now
}
